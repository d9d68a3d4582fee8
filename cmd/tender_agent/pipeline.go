package main

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/config"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/db"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/dochash"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/guards"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/pipeline"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/sli"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

const meterName = "github.com/aydarnuman/ProCheff-New-sub000/cmd/tender_agent"

var (
	_ pipeline.Repository = (*db.DB)(nil)
	_ pipeline.Repository = (*db.MemoryStore)(nil)
)

// openRepository connects to PostgreSQL when a URL is configured and falls
// back to a process-local ledger otherwise. The returned func releases it.
func openRepository(ctx context.Context, databaseURL string, logger *zap.Logger) (pipeline.Repository, func(), error) {
	if databaseURL == "" {
		logger.Warn("no database configured; using in-memory ledger")
		return db.NewMemoryStore(), func() {}, nil
	}
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, database.Close, nil
}

// newOrchestrator wires the orchestrator from configuration
func newOrchestrator(cfg *config.Config, repo pipeline.Repository, logger *zap.Logger) *pipeline.Orchestrator {
	// Histograms go to the global MeterProvider, a no-op until the embedding
	// process calls otel.SetMeterProvider. The log recorder is always live.
	recorder := sli.Multi(
		sli.NewLogRecorder(logger.Named("sli")),
		sli.NewOtelRecorder(otel.Meter(meterName)),
	)
	return pipeline.NewOrchestrator(repo,
		pipeline.WithRegistry(guards.DefaultRegistry(cfg.GuardSettings())),
		pipeline.WithMaxRetries(cfg.MaxRetries),
		pipeline.WithRecorder(recorder),
		pipeline.WithLogger(logger),
		pipeline.WithProgress(func(ev pipeline.ProgressEvent) {
			logger.Debug("step progress",
				zap.String("doc_hash", ev.DocHash),
				zap.String("step", string(ev.Step)),
				zap.String("status", string(ev.Status)),
				zap.String("message", ev.Message),
			)
		}),
	)
}

// resolveDocHash returns the hash given directly or computed from a document file
func resolveDocHash(docHash, documentPath string) (string, error) {
	if documentPath != "" {
		content, err := os.ReadFile(documentPath)
		if err != nil {
			return "", fmt.Errorf("failed to read document %s: %w", documentPath, err)
		}
		return dochash.Compute(content), nil
	}
	if docHash == "" {
		return "", fmt.Errorf("one of --doc-hash or --document is required")
	}
	if !dochash.Valid(docHash) {
		return "", fmt.Errorf("invalid doc hash %q: want 64 lowercase hex characters", docHash)
	}
	return docHash, nil
}

// firstFailure returns the first unsuccessful result, or nil
func firstFailure(results []*types.JobResult) *types.JobResult {
	for _, r := range results {
		if !r.Success {
			return r
		}
	}
	return nil
}
