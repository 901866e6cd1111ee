package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kurihiro0119/bugfix-pairs/internal/collector"
	"github.com/kurihiro0119/bugfix-pairs/internal/dataset"
	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
)

var (
	maxFiles int
	baseDir  string
)

var mineCmd = &cobra.Command{
	Use:   "mine [java|python|all]",
	Short: "Mine before/after pairs from GitHub commit histories",
	Long: `Walk the commit history of the registered GitHub repositories and store
the before and after version of every modified source file under
<base-dir>/before/<project>/<sha> and <base-dir>/after/<project>/<sha>.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"java", "python", "all"},
	RunE:      runMine,
}

func init() {
	mineCmd.Flags().IntVar(&maxFiles, "max-files", collector.DefaultMaxFiles, "pairs gathered per project")
	mineCmd.Flags().StringVar(&baseDir, "base-dir", "", "output directory (default is the dataset name)")
}

func runMine(cmd *cobra.Command, args []string) error {
	var targets []domain.Dataset
	switch args[0] {
	case "java":
		targets = []domain.Dataset{domain.DatasetGHJava}
	case "python":
		targets = []domain.Dataset{domain.DatasetGHPython}
	case "all":
		targets = []domain.Dataset{domain.DatasetGHJava, domain.DatasetGHPython}
	default:
		return fmt.Errorf("unknown language %q (want java, python or all)", args[0])
	}
	if baseDir != "" && len(targets) > 1 {
		return fmt.Errorf("--base-dir needs a single language")
	}

	if err := cfg.ValidateGitHub(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	reg, err := dataset.LoadRegistry(cfg.RegistryFile)
	if err != nil {
		return err
	}

	miner := collector.NewGitHubMiner(cfg.GitHubToken, logger)
	for _, ds := range targets {
		dir := baseDir
		if dir == "" {
			dir = string(ds)
		}
		logger.Infof("mining %s into %s", ds, dir)

		total, err := miner.MineAll(cmd.Context(), reg.GitHubProjects(ds), dataset.Extension(ds), dir, maxFiles)
		fmt.Printf("%s: gathered %d new pairs\n", ds, total)
		if err != nil {
			return fmt.Errorf("mining interrupted, re-run to resume: %w", err)
		}
	}
	return nil
}
