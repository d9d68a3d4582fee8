package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/compliance"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/costing"
)

// Error codes carried in JobResult.ErrorCode and the ledger
const (
	CodeGuardBlocked      = "GUARD_BLOCKED"
	CodeRaceConflict      = "RACE_CONFLICT"
	CodeStepExecution     = "STEP_EXECUTION_ERROR"
	CodeRetriesExhausted  = "RETRIES_EXHAUSTED"
	CodePTMismatch        = "PT_MISMATCH"
	CodeValidation        = "VALIDATION_ERROR"
	CodeConfig            = "CONFIG_ERROR"
	CodeInputRequired     = "INPUT_REQUIRED"
	codeLedgerUnavailable = "LEDGER_ERROR"
)

// InputRequiredError is returned by an executor that cannot run until the
// caller supplies more input. The ledger row moves to waiting_input and the
// attempt does not count against the retry budget.
type InputRequiredError struct {
	Step    string
	Missing []string
}

func (e *InputRequiredError) Error() string {
	return fmt.Sprintf("step %s requires input: %s", e.Step, strings.Join(e.Missing, ", "))
}

// retryable is implemented by domain errors that know whether a retry can help
type retryable interface {
	Retryable() bool
}

// classify maps an executor error to its error code and retry policy
func classify(err error) (code string, canRetry bool) {
	var ptErr *costing.PTMismatchError
	var vErr *costing.ValidationError
	var cfgErr *compliance.ConfigError
	var inErr *InputRequiredError

	switch {
	case errors.As(err, &inErr):
		return CodeInputRequired, true
	case errors.As(err, &ptErr):
		return CodePTMismatch, false
	case errors.As(err, &vErr):
		return CodeValidation, false
	case errors.As(err, &cfgErr):
		return CodeConfig, false
	}

	var r retryable
	if errors.As(err, &r) {
		return CodeStepExecution, r.Retryable()
	}
	return CodeStepExecution, true
}
