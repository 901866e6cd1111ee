package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/bugfix-pairs/internal/config"
	"github.com/kurihiro0119/bugfix-pairs/internal/dataset"
	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	"github.com/kurihiro0119/bugfix-pairs/internal/pipeline"
	"github.com/kurihiro0119/bugfix-pairs/internal/runner"
	"github.com/kurihiro0119/bugfix-pairs/internal/storage"
)

var extended bool

var defects4jCmd = &cobra.Command{
	Use:   "defects4j [tool] [output] [scratch]",
	Short: "Harvest Defects4J bug pairs",
	Long: `Check out the buggy and fixed version of every active Defects4J bug and
copy the changed .java files into <output>/before and <output>/after.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHarvest(cmd, domain.DatasetDefects4J, args)
	},
}

var bugsinpyCmd = &cobra.Command{
	Use:   "bugsinpy [tool-prefix] [output] [scratch]",
	Short: "Harvest BugsInPy bug pairs",
	Long: `Check out the buggy and fixed version of every BugsInPy bug and copy the
changed .py files into <output>/before and <output>/after. The tool prefix
is completed with -info and -checkout.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHarvest(cmd, domain.DatasetBugsInPy, args)
	},
}

func init() {
	bugsinpyCmd.Flags().BoolVar(&extended, "extended", false, "use the extended project list")
}

func runHarvest(cmd *cobra.Command, ds domain.Dataset, args []string) error {
	hc, err := config.NewHarvestConfig(args[0], args[1], args[2])
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	reg, err := dataset.LoadRegistry(cfg.RegistryFile)
	if err != nil {
		return err
	}

	tool, err := dataset.NewTool(ds, hc.ToolPath, runner.NewExecRunner(logger))
	if err != nil {
		return err
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	store, err := openLedger()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, pipeline.WithRecorder(storage.NewRecorder(store)))
	}

	report, runErr := pipeline.New(hc, tool, opts...).Run(cmd.Context(), reg.Projects(ds, extended))
	if report != nil {
		if err := printReport(report); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("run interrupted, re-run to resume: %w", runErr)
	}
	return nil
}

func printReport(report *domain.RunReport) error {
	if outputJSON {
		return printJSON(struct {
			Dataset          domain.Dataset   `json:"dataset"`
			Processed        int              `json:"processed"`
			AlreadyProcessed int              `json:"already_processed"`
			Deprecated       int              `json:"deprecated"`
			Failed           int              `json:"failed"`
			Files            int              `json:"files"`
			FailedProjects   []domain.Project `json:"failed_projects"`
		}{
			report.Dataset, report.Processed, report.AlreadyProcessed,
			report.Deprecated, report.Failed, report.Files, report.FailedProjects,
		})
	}

	fmt.Printf("\nRun Report: %s\n\n", report.Dataset)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Outcome", "Count"})
	table.Append([]string{"Processed", strconv.Itoa(report.Processed)})
	table.Append([]string{"Already processed", strconv.Itoa(report.AlreadyProcessed)})
	table.Append([]string{"Deprecated", strconv.Itoa(report.Deprecated)})
	table.Append([]string{"Failed", strconv.Itoa(report.Failed)})
	table.Append([]string{"Files copied", strconv.Itoa(report.Files)})
	table.Render()

	for _, p := range report.FailedProjects {
		fmt.Printf("Warning: bugs of project %s could not be listed\n", p)
	}
	return nil
}
