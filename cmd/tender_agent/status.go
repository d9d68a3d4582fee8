package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/db"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/observability"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the ledger rows of a document",
	RunE:  runStatus,
}

var (
	statusDocHash     string
	statusDatabaseURL string
	statusOutput      string
)

func init() {
	statusCmd.Flags().StringVar(&statusDocHash, "doc-hash", "", "Document hash (required)")
	statusCmd.Flags().StringVar(&statusDatabaseURL, "db-url", "", "Database URL (defaults to config / DATABASE_URL)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table, json or yaml)")

	if err := statusCmd.MarkFlagRequired("doc-hash"); err != nil {
		panic(fmt.Sprintf("failed to mark doc-hash flag as required: %v", err))
	}

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	docHash, err := resolveDocHash(statusDocHash, "")
	if err != nil {
		return err
	}

	databaseURL := statusDatabaseURL
	if databaseURL == "" {
		databaseURL = cfg.DatabaseURL
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL not set (set DATABASE_URL environment variable or use --db-url flag)")
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	jobs, err := newOrchestrator(cfg, database, logger).Status(ctx, docHash)
	if err != nil {
		return err
	}

	if statusOutput == "table" {
		observability.NewPrinter(cmd.OutOrStdout()).PrintJobs(docHash, jobs)
		return nil
	}
	return writeOutput(cmd.OutOrStdout(), jobs, statusOutput)
}
