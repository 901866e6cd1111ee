package main

import (
	"fmt"
	"os"

	"gopkg.in/src-d/go-log.v1"

	"github.com/kurihiro0119/bugfix-pairs/internal/aggregator"
	"github.com/kurihiro0119/bugfix-pairs/internal/api"
	"github.com/kurihiro0119/bugfix-pairs/internal/config"
	"github.com/kurihiro0119/bugfix-pairs/internal/logging"
	"github.com/kurihiro0119/bugfix-pairs/internal/storage"
	"github.com/kurihiro0119/bugfix-pairs/internal/storage/postgres"
	"github.com/kurihiro0119/bugfix-pairs/internal/storage/sqlite"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid logging configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize storage
	var store storage.Storage
	switch cfg.StorageType {
	case "postgres":
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		store, err = sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
	if err != nil {
		logger.Errorf(err, "failed to initialize %s storage", cfg.StorageType)
		os.Exit(1)
	}
	defer store.Close()

	handler := api.NewHandler(aggregator.NewAggregator(store))
	router := api.SetupRoutes(handler, logger)

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	logger.With(log.Fields{"addr": addr, "storage": cfg.StorageType}).Infof("starting API server")

	if err := router.Run(addr); err != nil {
		logger.Errorf(err, "server stopped")
		store.Close()
		os.Exit(1)
	}
}
