package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/bugfix-pairs/internal/aggregator"
	"github.com/kurihiro0119/bugfix-pairs/internal/cases"
	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	"github.com/kurihiro0119/bugfix-pairs/internal/runner"
	"github.com/kurihiro0119/bugfix-pairs/internal/stats"
)

var modified bool

var statsCmd = &cobra.Command{
	Use:   "stats [dataset-dir] [extension]",
	Short: "Compute diff statistics of a harvested dataset",
	Long: `Compare every file under <dataset-dir>/before with its sibling under
<dataset-dir>/after and write INSERTED,DELETED,MODIFIED,FILENAME rows to
<dataset-dir>.csv. When the directory is named after a known dataset the
rows are also stored in the ledger.`,
	Args: cobra.ExactArgs(2),
	RunE: runStats,
}

var casesCmd = &cobra.Command{
	Use:   "cases [cases.csv] [output]",
	Short: "Render gumtree HTML diffs for selected pairs",
	Long: `Read a CSV with before and after columns and run gumtree htmldiff on
every row, once with the default matcher (_opt.html) and once with the
simple matcher (_simple.html).`,
	Args: cobra.ExactArgs(2),
	RunE: runCases,
}

func init() {
	statsCmd.Flags().BoolVar(&modified, "modified", false, "count paired removed/added lines as modified")
}

func runStats(cmd *cobra.Command, args []string) error {
	datasetDir, ext := args[0], args[1]

	rows, err := stats.Compute(cmd.Context(), datasetDir, ext, stats.Options{Modified: modified, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}
	path, err := stats.WriteFile(datasetDir, rows)
	if err != nil {
		return fmt.Errorf("failed to write statistics: %w", err)
	}
	logger.Infof("wrote %s", path)

	ds := domain.Dataset(filepath.Base(filepath.Clean(datasetDir)))
	if ds.Valid() {
		store, err := openLedger()
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			if err := store.SaveFileStats(cmd.Context(), ds, rows); err != nil {
				return fmt.Errorf("failed to save statistics: %w", err)
			}
		}
	}

	summary := aggregator.SummarizeStats(ds, rows)
	if outputJSON {
		return printJSON(summary)
	}
	printStatsSummary(&summary)
	return nil
}

func printStatsSummary(s *domain.StatsSummary) {
	fmt.Printf("\nDiff Statistics: %s\n\n", s.Dataset)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Files", strconv.Itoa(s.Files)})
	table.Append([]string{"Lines inserted", strconv.FormatInt(s.Inserted, 10)})
	table.Append([]string{"Lines deleted", strconv.FormatInt(s.Deleted, 10)})
	table.Append([]string{"Lines modified", strconv.FormatInt(s.Modified, 10)})
	table.Render()
}

func runCases(cmd *cobra.Command, args []string) error {
	ex := cases.NewExtractor(runner.NewExecRunner(logger), cfg.GumTreeBin, logger)
	report, err := ex.Extract(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to extract cases: %w", err)
	}
	if outputJSON {
		return printJSON(report)
	}
	fmt.Printf("Rendered %d diffs for %d cases (%d failed)\n", report.Written, report.Cases, report.Failed)
	return nil
}
