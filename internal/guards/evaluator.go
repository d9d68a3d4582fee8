package guards

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/money"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/sli"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// Evaluator runs the registered conditions of a step. Results are never cached.
type Evaluator struct {
	registry *Registry
	reader   Reader
	recorder sli.Recorder
	logger   *zap.Logger
}

// EvaluatorOption configures an Evaluator
type EvaluatorOption func(*Evaluator)

// WithRecorder sets the SLI recorder for per-guard samples
func WithRecorder(rec sli.Recorder) EvaluatorOption {
	return func(e *Evaluator) {
		if rec != nil {
			e.recorder = rec
		}
	}
}

// WithLogger sets the evaluator logger
func WithLogger(logger *zap.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEvaluator creates an evaluator
func NewEvaluator(registry *Registry, reader Reader, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		registry: registry,
		reader:   reader,
		recorder: sli.Nop{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs every condition of step against the current context. It
// fails only when the step has no registered conditions.
func (e *Evaluator) Evaluate(ctx context.Context, step types.StepName, docHash string, job types.JobContext) (*types.GuardEvaluation, error) {
	conds, ok := e.registry.Conditions(step)
	if !ok {
		return nil, fmt.Errorf("unknown step: %s", step)
	}

	gc := NewContext(step, docHash, job, e.reader)
	eval := &types.GuardEvaluation{Step: step}

	var total float64
	seenMissing := map[string]bool{}
	seenRec := map[string]bool{}

	for _, cond := range conds {
		res := e.run(ctx, cond, gc)
		total += res.Confidence

		switch {
		case res.Passed:
			eval.Passed = append(eval.Passed, res)
		case res.Required:
			eval.Blockers = append(eval.Blockers, res)
			for _, m := range res.Missing {
				if !seenMissing[m] {
					seenMissing[m] = true
					eval.Missing = append(eval.Missing, m)
				}
			}
		default:
			eval.Warnings = append(eval.Warnings, res)
		}
		for _, r := range res.Recommendations {
			if !seenRec[r] {
				seenRec[r] = true
				eval.Recommendations = append(eval.Recommendations, r)
			}
		}

		sli.Emit(ctx, e.recorder, e.logger, sli.GuardConfidence, res.Confidence, map[string]string{
			"step":     string(step),
			"guard":    res.Name,
			"required": strconv.FormatBool(res.Required),
			"result":   passLabel(res.Passed),
		}, nil)
	}

	eval.CanProceed = len(eval.Blockers) == 0
	eval.OverallConfidence = 1
	if len(conds) > 0 {
		eval.OverallConfidence = money.Round(total/float64(len(conds)), 4)
	}

	if !eval.CanProceed {
		e.logger.Info("guards blocked step",
			zap.String("step", string(step)),
			zap.String("doc_hash", docHash),
			zap.Strings("missing", eval.Missing),
			zap.Int("blockers", len(eval.Blockers)),
		)
	}
	return eval, nil
}

// run executes one validator, converting errors and panics into a failed,
// zero-confidence result.
func (e *Evaluator) run(ctx context.Context, cond Condition, gc *Context) (res types.GuardResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("guard validator panicked",
				zap.String("guard", cond.Name),
				zap.String("panic", fmt.Sprint(r)),
			)
			res = errored(cond, fmt.Errorf("panic: %v", r))
		}
	}()

	out, err := cond.Validate(ctx, gc)
	if err != nil {
		e.logger.Warn("guard validator failed", zap.String("guard", cond.Name), zap.Error(err))
		return errored(cond, err)
	}
	out.Name = cond.Name
	out.Required = cond.Required
	if !out.Passed && out.Message == "" {
		out.Message = cond.Description
	}
	return out
}

func errored(cond Condition, err error) types.GuardResult {
	return types.GuardResult{
		Name:           cond.Name,
		Required:       cond.Required,
		Passed:         false,
		Confidence:     0,
		Message:        fmt.Sprintf("guard %s could not be evaluated", cond.Name),
		BlockingIssues: []string{err.Error()},
	}
}

func passLabel(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}
