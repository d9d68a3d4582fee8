package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/observability"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/pipeline"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the tender pipeline for several documents in parallel",
	Long:  "Reads a manifest (JSON or YAML) listing documents and their analysis files and runs the full pipeline for each, --concurrency documents at a time.",
	RunE:  runBatch,
}

var (
	batchManifest    string
	batchConcurrency int
	batchDatabaseURL string
	batchOutput      string
	batchVerbose     bool
)

// BatchManifest lists the documents of a batch run. Relative paths are
// resolved against the manifest's directory.
type BatchManifest struct {
	Documents []BatchEntry `json:"documents"`
}

// BatchEntry is one document of a batch manifest
type BatchEntry struct {
	DocHash  string `json:"doc_hash,omitempty"`
	Document string `json:"document,omitempty"`
	Analysis string `json:"analysis"`
	UserID   string `json:"user_id"`
	TenderID string `json:"tender_id,omitempty"`
}

// BatchSummaryEntry is the outcome of one document
type BatchSummaryEntry struct {
	DocHash  string             `json:"doc_hash"`
	Complete bool               `json:"complete"`
	Error    string             `json:"error,omitempty"`
	Results  []*types.JobResult `json:"results"`
}

func init() {
	batchCmd.Flags().StringVarP(&batchManifest, "manifest", "m", "", "Path to the batch manifest (required)")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 0, "Documents processed in parallel (defaults to config)")
	batchCmd.Flags().StringVar(&batchDatabaseURL, "db-url", "", "Database URL (defaults to config / DATABASE_URL)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", formatJSON, "Output format (json or yaml)")
	batchCmd.Flags().BoolVarP(&batchVerbose, "verbose", "v", false, "Print a formatted summary per document to stderr")

	if err := batchCmd.MarkFlagRequired("manifest"); err != nil {
		panic(fmt.Sprintf("failed to mark manifest flag as required: %v", err))
	}

	rootCmd.AddCommand(batchCmd)
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func loadBatchRequests(manifestPath string) ([]pipeline.BatchRequest, error) {
	var manifest BatchManifest
	if err := decodeFile(manifestPath, &manifest); err != nil {
		return nil, err
	}
	if len(manifest.Documents) == 0 {
		return nil, fmt.Errorf("manifest %s lists no documents", manifestPath)
	}

	base := filepath.Dir(manifestPath)
	reqs := make([]pipeline.BatchRequest, 0, len(manifest.Documents))
	for i, entry := range manifest.Documents {
		docHash, err := resolveDocHash(entry.DocHash, resolvePath(base, entry.Document))
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		var analysis map[string]any
		if err := decodeFile(resolvePath(base, entry.Analysis), &analysis); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		reqs = append(reqs, pipeline.BatchRequest{
			DocHash:      docHash,
			TenderID:     entry.TenderID,
			UserID:       entry.UserID,
			AnalysisData: analysis,
		})
	}
	return reqs, nil
}

func runBatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reqs, err := loadBatchRequests(batchManifest)
	if err != nil {
		return err
	}

	concurrency := batchConcurrency
	if concurrency <= 0 {
		concurrency = cfg.BatchConcurrency
	}
	databaseURL := batchDatabaseURL
	if databaseURL == "" {
		databaseURL = cfg.DatabaseURL
	}

	ctx := context.Background()
	repo, closeRepo, err := openRepository(ctx, databaseURL, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	results := newOrchestrator(cfg, repo, logger).ExecuteBatch(ctx, reqs, concurrency)

	printer := observability.NewPrinter(cmd.ErrOrStderr())
	summary := make([]BatchSummaryEntry, 0, len(results))
	incomplete := 0
	for _, r := range results {
		entry := BatchSummaryEntry{DocHash: r.DocHash, Complete: r.Completed, Results: r.Results}
		if r.Err != nil {
			entry.Error = r.Err.Error()
		} else if failed := firstFailure(r.Results); failed != nil {
			entry.Error = fmt.Sprintf("%s: %s", failed.Step, failed.ErrorCode)
		}
		if !r.Completed {
			incomplete++
		}
		if batchVerbose {
			printer.PrintJobResults(r.Results)
		}
		summary = append(summary, entry)
	}

	if err := writeOutput(cmd.OutOrStdout(), summary, batchOutput); err != nil {
		return err
	}
	if incomplete > 0 {
		return fmt.Errorf("%d of %d documents did not complete", incomplete, len(results))
	}
	return nil
}
