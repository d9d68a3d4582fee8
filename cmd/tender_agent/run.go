package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/observability"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tender pipeline for a document",
	Long: `Runs ANALYZE_COMPLETED through OFFER_DRAFTED for one document, or a single
step with --step. Completed steps replay their stored output, so the command
is safe to repeat. Without a database URL the ledger lives in memory.`,
	RunE: runPipeline,
}

var (
	runAnalysis    string
	runDocHash     string
	runDocument    string
	runUserID      string
	runTenderID    string
	runStep        string
	runDatabaseURL string
	runOutput      string
	runVerbose     bool
)

// RunSummary is the output of the run command
type RunSummary struct {
	DocHash  string             `json:"doc_hash"`
	Complete bool               `json:"complete"`
	Results  []*types.JobResult `json:"results"`
}

func init() {
	runCmd.Flags().StringVarP(&runAnalysis, "analysis", "a", "", "Path to analysis data JSON or YAML (required)")
	runCmd.Flags().StringVar(&runDocHash, "doc-hash", "", "Document hash (64 hex characters)")
	runCmd.Flags().StringVar(&runDocument, "document", "", "Path to the tender document; its hash is used as doc hash")
	runCmd.Flags().StringVarP(&runUserID, "user-id", "u", "", "Owner user ID")
	runCmd.Flags().StringVar(&runTenderID, "tender-id", "", "Existing tender ID")
	runCmd.Flags().StringVar(&runStep, "step", "", "Run only this step")
	runCmd.Flags().StringVar(&runDatabaseURL, "db-url", "", "Database URL (defaults to config / DATABASE_URL)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", formatJSON, "Output format (json or yaml)")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print a formatted summary to stderr")

	if err := runCmd.MarkFlagRequired("analysis"); err != nil {
		panic(fmt.Sprintf("failed to mark analysis flag as required: %v", err))
	}

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	docHash, err := resolveDocHash(runDocHash, runDocument)
	if err != nil {
		return err
	}
	var analysis map[string]any
	if err := decodeFile(runAnalysis, &analysis); err != nil {
		return err
	}

	var step types.StepName
	if runStep != "" {
		if step, err = types.ParseStepName(runStep); err != nil {
			return err
		}
	}

	ctx := context.Background()
	databaseURL := runDatabaseURL
	if databaseURL == "" {
		databaseURL = cfg.DatabaseURL
	}
	repo, closeRepo, err := openRepository(ctx, databaseURL, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	orch := newOrchestrator(cfg, repo, logger)

	var results []*types.JobResult
	if step != "" {
		res, err := orch.ExecuteStep(ctx, docHash, step, types.JobContext{
			TenderID:     runTenderID,
			UserID:       runUserID,
			AnalysisData: analysis,
		})
		if err != nil {
			return err
		}
		results = []*types.JobResult{res}
	} else {
		results, err = orch.ExecuteFullPipeline(ctx, docHash, runTenderID, runUserID, analysis)
		if err != nil {
			return err
		}
	}

	failed := firstFailure(results)
	if runVerbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintJobResults(results)
	}
	summary := RunSummary{
		DocHash:  docHash,
		Complete: failed == nil && step == "" && len(results) == len(types.OrderedSteps),
		Results:  results,
	}
	if err := writeOutput(cmd.OutOrStdout(), summary, runOutput); err != nil {
		return err
	}
	if failed != nil {
		return fmt.Errorf("step %s did not complete (%s): %s", failed.Step, failed.ErrorCode, failed.Error)
	}
	return nil
}
