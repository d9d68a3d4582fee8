// Package main provides the tender_agent CLI: cost simulations, KİK/ADT
// checks and guarded execution of the tender pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/config"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "tender_agent",
	Short:         "Tender pipeline orchestrator",
	Long:          "tender_agent simulates catering tender costs, checks bids against the KİK abnormally low tender threshold and runs the guarded, idempotent tender pipeline.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	logLevel   string
	logFormat  string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (json or console)")
}

// loadConfig reads the config file and environment and applies CLI overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	merged := cfg.MergeWithDefaults(config.Defaults())
	if logLevel != "" {
		merged.LogLevel = logLevel
	}
	if logFormat != "" {
		merged.LogFormat = logFormat
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
