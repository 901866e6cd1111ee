package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken string

	// Storage
	StorageType string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string

	// API Server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string

	// Logging
	LogLevel  string
	LogFormat string

	// Harvesting
	RegistryFile string
	GumTreeBin   string
}

// Load loads the configuration from environment variables. Files are
// dotenv files read before the environment; without files ".env" is tried.
func Load(files ...string) (*Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, err
		}
	} else {
		// Load .env file if it exists (ignore error if not found)
		_ = godotenv.Load()
	}

	return &Config{
		GitHubToken:  getEnv("GITHUB_TOKEN", ""),
		StorageType:  getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:   getEnv("SQLITE_PATH", "./bugfix-pairs.db"),
		PostgresURL:  getEnv("POSTGRES_URL", ""),
		APIPort:      getEnv("API_PORT", "8080"),
		APIHost:      getEnv("API_HOST", "localhost"),
		APIEndpoint:  getEnv("API_ENDPOINT", "http://localhost:8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
		RegistryFile: getEnv("REGISTRY_FILE", ""),
		GumTreeBin:   getEnv("GUMTREE_BIN", "gumtree"),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.StorageType != "sqlite" && c.StorageType != "postgres" {
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite' or 'postgres'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	return nil
}

// ValidateGitHub validates the settings needed to mine GitHub
func (c *Config) ValidateGitHub() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.GitHubToken == "" {
		return &ConfigError{Field: "GITHUB_TOKEN", Message: "GitHub token is required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

// HarvestConfig is the per-run configuration of a dataset driver. It is
// built once from the command line and never modified afterwards.
type HarvestConfig struct {
	ToolPath    string
	OutputRoot  string
	ScratchRoot string
}

// NewHarvestConfig validates and normalizes the three driver arguments.
// Directory arguments are made absolute; the tool path is kept as given so
// that bare names are still resolved through PATH.
func NewHarvestConfig(toolPath, outputRoot, scratchRoot string) (HarvestConfig, error) {
	if toolPath == "" {
		return HarvestConfig{}, &ConfigError{Field: "tool", Message: "path to the dataset tool is required"}
	}
	if outputRoot == "" {
		return HarvestConfig{}, &ConfigError{Field: "output", Message: "output directory is required"}
	}
	if scratchRoot == "" {
		return HarvestConfig{}, &ConfigError{Field: "scratch", Message: "scratch directory is required"}
	}

	out, err := filepath.Abs(outputRoot)
	if err != nil {
		return HarvestConfig{}, err
	}
	scratch, err := filepath.Abs(scratchRoot)
	if err != nil {
		return HarvestConfig{}, err
	}
	if out == scratch {
		return HarvestConfig{}, &ConfigError{Field: "scratch", Message: "must differ from the output directory"}
	}
	// <scratch>/before and <scratch>/after are wiped for every bug
	for _, side := range []string{domain.BeforeDir, domain.AfterDir} {
		if within(out, filepath.Join(scratch, side)) {
			return HarvestConfig{}, &ConfigError{Field: "output", Message: "must not be inside " + filepath.Join(scratch, side)}
		}
	}

	return HarvestConfig{
		ToolPath:    filepath.Clean(toolPath),
		OutputRoot:  out,
		ScratchRoot: scratch,
	}, nil
}

// within reports whether path equals dir or lies below it
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
