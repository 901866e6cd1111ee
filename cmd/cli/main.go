package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/src-d/go-log.v1"

	"github.com/kurihiro0119/bugfix-pairs/internal/config"
	"github.com/kurihiro0119/bugfix-pairs/internal/logging"
	"github.com/kurihiro0119/bugfix-pairs/internal/storage"
	"github.com/kurihiro0119/bugfix-pairs/internal/storage/postgres"
	"github.com/kurihiro0119/bugfix-pairs/internal/storage/sqlite"
)

var (
	cfgFile    string
	outputJSON bool
	logLevel   string
	noLedger   bool

	cfg    *config.Config
	logger log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bugfix-pairs",
	Short: "Bug-fix before/after pair harvesting toolkit",
	Long: `A CLI tool for harvesting before/after source file pairs of bug fixes.

It drives the Defects4J and BugsInPy checkout tools, mines GitHub commit
histories, computes diff statistics and renders gumtree diffs. Every run
can be interrupted and resumed: bugs whose output directories exist are
skipped.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warning, error)")
	rootCmd.PersistentFlags().BoolVar(&noLedger, "no-ledger", false, "do not record outcomes in the run ledger")

	rootCmd.AddCommand(defects4jCmd)
	rootCmd.AddCommand(bugsinpyCmd)
	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(casesCmd)
	rootCmd.AddCommand(showCmd)
	showCmd.AddCommand(showProjectCmd)
	showCmd.AddCommand(showStatsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger shared by every command
func setup(cmd *cobra.Command, args []string) error {
	var files []string
	if cfgFile != "" {
		files = append(files, cfgFile)
	}

	var err error
	cfg, err = config.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	return nil
}

func getStorage(cfg *config.Config) (storage.Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}

// openLedger returns nil when --no-ledger is set
func openLedger() (storage.Storage, error) {
	if noLedger {
		return nil, nil
	}
	store, err := getStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
