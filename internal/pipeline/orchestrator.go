// Package pipeline provides the guarded, idempotent orchestration of the tender pipeline.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/costing"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/db"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/guards"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/sli"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// DefaultMaxRetries is the executor failure budget of a ledger row
const DefaultMaxRetries = 3

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	DocHash string          `json:"doc_hash"`
	Step    types.StepName  `json:"step"`
	Status  types.JobStatus `json:"status"`
	Message string          `json:"message"`
}

// ProgressCallback is called after every step invocation
type ProgressCallback func(event ProgressEvent)

// StepRequest is the input handed to a step executor
type StepRequest struct {
	DocHash string
	Step    types.StepName
	Job     types.JobContext
	// Attempt is 1 for the first execution and grows with each retry
	Attempt int
}

// Executor performs the side effects of one step and returns its output
type Executor func(ctx context.Context, req StepRequest) (map[string]any, error)

// Orchestrator advances documents through the pipeline steps
type Orchestrator struct {
	repo       Repository
	registry   *guards.Registry
	evaluator  *guards.Evaluator
	engine     *costing.Engine
	prices     PriceProvider
	recorder   sli.Recorder
	logger     *zap.Logger
	maxRetries int
	clock      func() time.Time
	executors  map[types.StepName]Executor
	onProgress ProgressCallback
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRegistry replaces the guard registry
func WithRegistry(r *guards.Registry) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithEngine sets the cost simulation engine
func WithEngine(e *costing.Engine) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.engine = e
		}
	}
}

// WithPriceProvider sets the market price collaborator
func WithPriceProvider(p PriceProvider) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.prices = p
		}
	}
}

// WithRecorder sets the SLI sink
func WithRecorder(r sli.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxRetries sets the failure budget for newly created ledger rows
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithClock overrides the time source
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithExecutor replaces the executor of one step
func WithExecutor(step types.StepName, exec Executor) Option {
	return func(o *Orchestrator) {
		if exec != nil {
			o.executors[step] = exec
		}
	}
}

// WithProgress registers a progress callback
func WithProgress(cb ProgressCallback) Option {
	return func(o *Orchestrator) {
		o.onProgress = cb
	}
}

// NewOrchestrator creates an orchestrator over repo
func NewOrchestrator(repo Repository, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		repo:       repo,
		registry:   guards.DefaultRegistry(guards.DefaultSettings()),
		prices:     DefaultPriceProvider(),
		recorder:   sli.Nop{},
		logger:     zap.NewNop(),
		maxRetries: DefaultMaxRetries,
		clock:      func() time.Time { return time.Now().UTC() },
		executors:  make(map[types.StepName]Executor),
	}
	defaults := map[types.StepName]Executor{
		types.StepAnalyzeCompleted: o.executeAnalysis,
		types.StepTenderUpserted:   o.executeTenderUpsert,
		types.StepChecklistDone:    o.executeChecklist,
		types.StepSimulationDone:   o.executeSimulation,
		types.StepOfferDrafted:     o.executeOffer,
	}
	for _, opt := range opts {
		opt(o)
	}
	for step, exec := range defaults {
		if _, ok := o.executors[step]; !ok {
			o.executors[step] = exec
		}
	}
	if o.engine == nil {
		o.engine = costing.NewEngine(nil, costing.WithLogger(o.logger))
	}
	o.evaluator = guards.NewEvaluator(o.registry, repo,
		guards.WithRecorder(o.recorder),
		guards.WithLogger(o.logger.Named("guards")),
	)
	return o
}

// Engine returns the cost simulation engine used by the simulation step
func (o *Orchestrator) Engine() *costing.Engine {
	return o.engine
}

// ExecuteStep runs one step for a document. Guards are evaluated on every
// call; a blocked step returns waiting_input without touching the ledger. A
// completed step replays its stored output. The returned error is non-nil
// only for an unknown step.
func (o *Orchestrator) ExecuteStep(ctx context.Context, docHash string, step types.StepName, jc types.JobContext) (*types.JobResult, error) {
	if !step.Valid() {
		return nil, fmt.Errorf("unknown step: %s", step)
	}
	exec, ok := o.executors[step]
	if !ok {
		return nil, fmt.Errorf("no executor registered for step %s", step)
	}

	start := o.clock()
	log := o.logger.With(zap.String("doc_hash", docHash), zap.String("step", string(step)))

	eval, err := o.evaluator.Evaluate(ctx, step, docHash, jc)
	if err != nil {
		return nil, err
	}
	if !eval.CanProceed {
		log.Info("step blocked by guards", zap.Strings("missing", eval.Missing))
		return o.finish(ctx, start, docHash, blockedResult(step, eval)), nil
	}

	existing, err := o.repo.GetJob(ctx, docHash, step)
	if err != nil {
		err = eris.Wrapf(err, "pipeline: ledger lookup %s", step)
		log.Error("ledger lookup failed", zap.Error(err))
		return o.finish(ctx, start, docHash, ledgerErrorResult(step, eval, err)), nil
	}

	if existing != nil {
		switch {
		case existing.Status == types.JobStatusCompleted:
			o.recordLedger(ctx, step, sli.OutcomeExisting)
			log.Debug("replaying completed step")
			return o.finish(ctx, start, docHash, replayResult(existing, eval)), nil
		case existing.Status == types.JobStatusRunning:
			o.recordLedger(ctx, step, sli.OutcomeConflict)
			return o.finish(ctx, start, docHash, conflictResult(step, existing, eval)), nil
		case existing.Terminal():
			o.recordLedger(ctx, step, sli.OutcomeExisting)
			return o.finish(ctx, start, docHash, exhaustedResult(existing, eval)), nil
		}
	}

	job, claimed, err := o.repo.ClaimJob(ctx, docHash, step, o.maxRetries, evidence(eval))
	if err != nil {
		err = eris.Wrapf(err, "pipeline: claim %s", step)
		log.Error("ledger claim failed", zap.Error(err))
		return o.finish(ctx, start, docHash, ledgerErrorResult(step, eval, err)), nil
	}
	if !claimed {
		o.recordLedger(ctx, step, sli.OutcomeConflict)
		return o.finish(ctx, start, docHash, conflictResult(step, existing, eval)), nil
	}
	if existing == nil {
		o.recordLedger(ctx, step, sli.OutcomeCreated)
	} else {
		o.recordLedger(ctx, step, sli.OutcomeRetried)
	}

	output, execErr := o.run(ctx, exec, StepRequest{
		DocHash: docHash,
		Step:    step,
		Job:     jc,
		Attempt: job.RetryCount + 1,
	})
	if execErr == nil {
		output, execErr = normalize(output)
	}
	if execErr != nil {
		return o.finish(ctx, start, docHash, o.fail(ctx, log, job, eval, execErr)), nil
	}

	now := o.clock()
	job.Status = types.JobStatusCompleted
	job.Metadata = output
	job.ErrorCode = nil
	job.ErrorMessage = nil
	job.CompletedAt = &now
	if err := o.repo.UpsertJob(ctx, job); err != nil {
		err = eris.Wrapf(err, "pipeline: complete %s", step)
		log.Error("failed to record completion", zap.Error(err))
		return o.finish(ctx, start, docHash, ledgerErrorResult(step, eval, err)), nil
	}

	log.Info("step completed", zap.Int("attempt", job.RetryCount+1))
	return o.finish(ctx, start, docHash, &types.JobResult{
		Success:         true,
		JobID:           job.ID.String(),
		Step:            step,
		Status:          types.JobStatusCompleted,
		Output:          output,
		Message:         fmt.Sprintf("step %s completed", step),
		Confidence:      eval.OverallConfidence,
		Warnings:        eval.WarningMessages(),
		Recommendations: eval.Recommendations,
	}), nil
}

// fail records an executor failure on the claimed ledger row
func (o *Orchestrator) fail(ctx context.Context, log *zap.Logger, job *types.PipelineJob, eval *types.GuardEvaluation, execErr error) *types.JobResult {
	code, canRetry := classify(execErr)
	msg := execErr.Error()

	res := &types.JobResult{
		JobID:           job.ID.String(),
		Step:            job.Step,
		Error:           msg,
		ErrorCode:       code,
		Confidence:      eval.OverallConfidence,
		Warnings:        eval.WarningMessages(),
		Recommendations: eval.Recommendations,
	}

	var inErr *InputRequiredError
	if errors.As(execErr, &inErr) {
		job.Status = types.JobStatusWaitingInput
		res.Missing = inErr.Missing
		res.Message = fmt.Sprintf("step %s is waiting for input", job.Step)
	} else {
		job.Status = types.JobStatusFailed
		job.RetryCount++
		if !canRetry {
			job.RetryCount = job.MaxRetries
		}
		remaining := job.MaxRetries - job.RetryCount
		if remaining > 0 {
			res.Message = fmt.Sprintf("step %s failed; %d retries left", job.Step, remaining)
		} else {
			res.Message = fmt.Sprintf("step %s failed permanently; manual intervention required", job.Step)
		}
		res.BlockingIssues = []string{msg}

		var ptErr *costing.PTMismatchError
		if errors.As(execErr, &ptErr) {
			log.Error("project total invariant violated",
				zap.String("severity", "critical"),
				zap.Float64("project_total", ptErr.ProjectTotal),
				zap.Float64("component_sum", ptErr.ComponentSum),
			)
		} else {
			log.Warn("step failed", zap.String("error_code", code), zap.Bool("retryable", canRetry), zap.Error(execErr))
		}
	}
	res.Status = job.Status
	job.ErrorCode = &code
	job.ErrorMessage = &msg

	if err := o.repo.UpsertJob(ctx, job); err != nil {
		err = eris.Wrapf(err, "pipeline: record failure %s", job.Step)
		log.Error("failed to record step failure", zap.Error(err))
		res.BlockingIssues = append(res.BlockingIssues, err.Error())
	}
	return res
}

// run calls the executor, converting a panic into an error
func (o *Orchestrator) run(ctx context.Context, exec Executor, req StepRequest) (out map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()
	return exec(ctx, req)
}

// finish stamps the duration, emits step SLIs and progress, and returns res
func (o *Orchestrator) finish(ctx context.Context, start time.Time, docHash string, res *types.JobResult) *types.JobResult {
	res.Duration = o.clock().Sub(start)

	value := 0.0
	if res.Success {
		value = 1
	}
	labels := map[string]string{"step": string(res.Step), "status": string(res.Status)}
	sli.Emit(ctx, o.recorder, o.logger, sli.StepResult, value, labels, map[string]any{
		"doc_hash":   docHash,
		"error_code": res.ErrorCode,
	})
	sli.Emit(ctx, o.recorder, o.logger, sli.StepDurationMs, float64(res.Duration.Milliseconds()), labels, nil)

	if o.onProgress != nil {
		o.onProgress(ProgressEvent{DocHash: docHash, Step: res.Step, Status: res.Status, Message: res.Message})
	}
	return res
}

func (o *Orchestrator) recordLedger(ctx context.Context, step types.StepName, outcome string) {
	sli.Emit(ctx, o.recorder, o.logger, sli.LedgerOutcome, 1, map[string]string{
		"step":    string(step),
		"outcome": outcome,
	}, nil)
}

// ExecuteFullPipeline runs every step in order, stopping at the first result
// that is not a success.
func (o *Orchestrator) ExecuteFullPipeline(ctx context.Context, docHash, tenderID, userID string, analysisData map[string]any) ([]*types.JobResult, error) {
	jc := types.JobContext{TenderID: tenderID, UserID: userID, AnalysisData: analysisData}
	results := make([]*types.JobResult, 0, len(types.OrderedSteps))
	for _, step := range types.OrderedSteps {
		res, err := o.ExecuteStep(ctx, docHash, step, jc)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if !res.Success {
			break
		}
		if id, ok := res.Output["tender_id"].(string); ok && jc.TenderID == "" {
			jc.TenderID = id
		}
	}
	return results, nil
}

// Status returns the ledger rows of a document in step order. Steps that
// were never claimed are omitted.
func (o *Orchestrator) Status(ctx context.Context, docHash string) ([]types.PipelineJob, error) {
	jobs, err := o.repo.ListJobs(ctx, docHash)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list jobs")
	}
	byStep := make(map[types.StepName]types.PipelineJob, len(jobs))
	for _, j := range jobs {
		byStep[j.Step] = j
	}
	ordered := make([]types.PipelineJob, 0, len(jobs))
	for _, step := range types.OrderedSteps {
		if j, ok := byStep[step]; ok {
			ordered = append(ordered, j)
		}
	}
	return ordered, nil
}

// normalize round-trips executor output through JSON so the returned value
// is identical to what a later replay reads back from the ledger.
func normalize(output map[string]any) (map[string]any, error) {
	if output == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("step output is not serializable: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("step output is not serializable: %w", err)
	}
	return out, nil
}

func evidence(eval *types.GuardEvaluation) map[string]any {
	return map[string]any{"guards": eval.Summary()}
}

func blockedResult(step types.StepName, eval *types.GuardEvaluation) *types.JobResult {
	return &types.JobResult{
		Step:            step,
		Status:          types.JobStatusWaitingInput,
		Error:           fmt.Sprintf("guards blocked step %s", step),
		ErrorCode:       CodeGuardBlocked,
		Message:         fmt.Sprintf("step %s is waiting for input", step),
		Confidence:      eval.OverallConfidence,
		Missing:         eval.Missing,
		BlockingIssues:  eval.BlockingMessages(),
		Warnings:        eval.WarningMessages(),
		Recommendations: eval.Recommendations,
	}
}

func replayResult(job *types.PipelineJob, eval *types.GuardEvaluation) *types.JobResult {
	return &types.JobResult{
		Success:    true,
		JobID:      job.ID.String(),
		Step:       job.Step,
		Status:     types.JobStatusCompleted,
		Output:     job.Metadata,
		Message:    fmt.Sprintf("step %s already completed", job.Step),
		Confidence: eval.OverallConfidence,
		Warnings:   eval.WarningMessages(),
	}
}

func conflictResult(step types.StepName, existing *types.PipelineJob, eval *types.GuardEvaluation) *types.JobResult {
	res := &types.JobResult{
		Step:       step,
		Status:     types.JobStatusCancelled,
		Error:      fmt.Sprintf("step %s is already running for this document", step),
		ErrorCode:  CodeRaceConflict,
		Message:    "another execution owns this step; poll for its result",
		Confidence: eval.OverallConfidence,
	}
	if existing != nil {
		res.JobID = existing.ID.String()
	}
	return res
}

func exhaustedResult(job *types.PipelineJob, eval *types.GuardEvaluation) *types.JobResult {
	res := &types.JobResult{
		JobID:      job.ID.String(),
		Step:       job.Step,
		Status:     types.JobStatusFailed,
		ErrorCode:  CodeRetriesExhausted,
		Message:    fmt.Sprintf("step %s failed %d times; manual intervention required", job.Step, job.RetryCount),
		Confidence: eval.OverallConfidence,
	}
	if job.ErrorMessage != nil {
		res.Error = *job.ErrorMessage
		res.BlockingIssues = []string{*job.ErrorMessage}
	}
	return res
}

func ledgerErrorResult(step types.StepName, eval *types.GuardEvaluation, err error) *types.JobResult {
	res := &types.JobResult{
		Step:           step,
		Status:         types.JobStatusFailed,
		Error:          err.Error(),
		ErrorCode:      codeLedgerUnavailable,
		Message:        "the pipeline ledger is unavailable; retry later",
		Confidence:     eval.OverallConfidence,
		BlockingIssues: []string{err.Error()},
	}
	if errors.Is(err, db.ErrJobCompleted) {
		res.Message = "the step was completed by another execution"
	}
	return res
}
