package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// BatchRequest is one document to run through the full pipeline
type BatchRequest struct {
	DocHash      string
	TenderID     string
	UserID       string
	AnalysisData map[string]any
}

// BatchResult is the outcome of one batch request
type BatchResult struct {
	DocHash   string
	Results   []*types.JobResult
	Completed bool
	Err       error
}

// ExecuteBatch runs full pipelines for independent documents concurrently.
// Steps of one document stay sequential; results keep request order.
func (o *Orchestrator) ExecuteBatch(ctx context.Context, reqs []BatchRequest, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	start := time.Now()
	results := make([]BatchResult, len(reqs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := o.ExecuteFullPipeline(gCtx, req.DocHash, req.TenderID, req.UserID, req.AnalysisData)
			results[i] = BatchResult{
				DocHash:   req.DocHash,
				Results:   res,
				Completed: err == nil && allSucceeded(res),
				Err:       err,
			}
			// one document failing never cancels the others
			return nil
		})
	}
	_ = g.Wait()

	completed := 0
	for _, r := range results {
		if r.Completed {
			completed++
		}
	}
	o.logger.Info("batch finished",
		zap.Int("documents", len(reqs)),
		zap.Int("completed", completed),
		zap.Int("concurrency", concurrency),
		zap.Duration("duration", time.Since(start)),
	)
	return results
}

func allSucceeded(results []*types.JobResult) bool {
	if len(results) != len(types.OrderedSteps) {
		return false
	}
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}
