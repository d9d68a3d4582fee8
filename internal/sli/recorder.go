// Package sli records service-level indicators emitted by the pipeline:
// step outcomes and durations, guard confidence, cost accuracy and ledger
// outcomes. Recording is write-only and must never affect orchestration.
package sli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Indicator names
const (
	StepResult        = "pipeline.step.result"
	StepDurationMs    = "pipeline.step.duration_ms"
	GuardConfidence   = "pipeline.guard.confidence"
	CostAccuracyRatio = "pipeline.cost.accuracy_ratio"
	LedgerOutcome     = "pipeline.ledger.outcome"
)

// Ledger outcome labels
const (
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
	OutcomeRetried  = "retried"
	OutcomeConflict = "conflict"
)

// Recorder is a sink for indicator samples
type Recorder interface {
	Record(ctx context.Context, name string, value float64, labels map[string]string, details map[string]any) error
}

// Nop discards every sample
type Nop struct{}

// Record implements Recorder
func (Nop) Record(context.Context, string, float64, map[string]string, map[string]any) error {
	return nil
}

type multi []Recorder

// Multi fans samples out to every recorder. All recorders are called even
// when one fails.
func Multi(recorders ...Recorder) Recorder {
	return multi(recorders)
}

func (m multi) Record(ctx context.Context, name string, value float64, labels map[string]string, details map[string]any) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, name, value, labels, details); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit records a sample and forgets it: errors and panics from the recorder
// are logged and swallowed.
func Emit(ctx context.Context, rec Recorder, logger *zap.Logger, name string, value float64, labels map[string]string, details map[string]any) {
	if rec == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("sli recorder panicked",
				zap.String("sli", name),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	if err := rec.Record(ctx, name, value, labels, details); err != nil {
		logger.Warn("failed to record sli", zap.String("sli", name), zap.Error(err))
	}
}
