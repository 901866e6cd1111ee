package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/bugfix-pairs/internal/aggregator"
	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
)

var showCmd = &cobra.Command{
	Use:   "show [dataset]",
	Short: "Show the run ledger of a dataset",
	Long:  `Display per-project outcome counts recorded by previous runs.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShowDataset,
}

var showProjectCmd = &cobra.Command{
	Use:   "project [dataset] [project]",
	Short: "Show the bugs of a project",
	Long:  `Display the latest recorded outcome of every bug of a project.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runShowProject,
}

var showStatsCmd = &cobra.Command{
	Use:   "stats [dataset]",
	Short: "Show stored diff statistics",
	Long:  `Display the totals of the diff statistics stored for a dataset.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShowStats,
}

func parseDataset(arg string) (domain.Dataset, error) {
	ds := domain.Dataset(arg)
	if !ds.Valid() {
		return "", fmt.Errorf("unknown dataset %q", arg)
	}
	return ds, nil
}

func newAggregator() (aggregator.Aggregator, func() error, error) {
	store, err := getStorage(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return aggregator.NewAggregator(store), store.Close, nil
}

func runShowDataset(cmd *cobra.Command, args []string) error {
	ds, err := parseDataset(args[0])
	if err != nil {
		return err
	}
	agg, closeFn, err := newAggregator()
	if err != nil {
		return err
	}
	defer closeFn()

	summary, err := agg.SummarizeDataset(cmd.Context(), ds)
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}
	if outputJSON {
		return printJSON(summary)
	}

	fmt.Printf("\nDataset Summary: %s\n\n", ds)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Project", "Processed", "Already", "Deprecated", "Failed", "Files"})
	for _, p := range summary.Projects {
		table.Append(summaryRow(p))
	}
	table.SetFooter(summaryRow(&summary.Total))
	table.Render()

	return nil
}

func summaryRow(p *domain.ProjectSummary) []string {
	return []string{
		string(p.Project),
		strconv.Itoa(p.Processed),
		strconv.Itoa(p.AlreadyProcessed),
		strconv.Itoa(p.Deprecated),
		strconv.Itoa(p.Failed),
		strconv.Itoa(p.Files),
	}
}

func runShowProject(cmd *cobra.Command, args []string) error {
	ds, err := parseDataset(args[0])
	if err != nil {
		return err
	}
	project := domain.Project(args[1])
	agg, closeFn, err := newAggregator()
	if err != nil {
		return err
	}
	defer closeFn()

	bugs, err := agg.LatestBugs(cmd.Context(), ds, project)
	if err != nil {
		return fmt.Errorf("failed to get bugs: %w", err)
	}
	if outputJSON {
		return printJSON(bugs)
	}
	if len(bugs) == 0 {
		fmt.Printf("No ledger entries for %s/%s\n", ds, project)
		return nil
	}

	fmt.Printf("\nProject Bugs: %s/%s\n\n", ds, project)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Bug", "Status", "Files", "Recorded", "Error"})
	for _, b := range bugs {
		table.Append([]string{
			string(b.Bug),
			string(b.Status),
			strings.Join(b.Files, " "),
			b.CreatedAt.Format("2006-01-02 15:04:05"),
			b.Error,
		})
	}
	table.Render()

	return nil
}

func runShowStats(cmd *cobra.Command, args []string) error {
	ds, err := parseDataset(args[0])
	if err != nil {
		return err
	}
	agg, closeFn, err := newAggregator()
	if err != nil {
		return err
	}
	defer closeFn()

	summary, err := agg.StatsSummary(cmd.Context(), ds)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}
	if outputJSON {
		return printJSON(summary)
	}
	printStatsSummary(summary)
	return nil
}
