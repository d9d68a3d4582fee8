package types

import (
	"time"

	"github.com/google/uuid"
)

// PipelineJob is one ledger row per (DocHash, Step)
type PipelineJob struct {
	ID           uuid.UUID      `json:"id"`
	DocHash      string         `json:"doc_hash"`
	Step         StepName       `json:"step"`
	Status       JobStatus      `json:"status"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	ErrorCode    *string        `json:"error_code,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Evidence     map[string]any `json:"evidence,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Terminal reports whether the row can no longer be executed
func (j *PipelineJob) Terminal() bool {
	if j.Status == JobStatusCompleted {
		return true
	}
	return j.Status == JobStatusFailed && j.RetryCount >= j.MaxRetries
}

// Claimable reports whether a RUNNING claim may be placed on the row
func (j *PipelineJob) Claimable() bool {
	switch j.Status {
	case JobStatusPending, JobStatusWaitingInput, JobStatusCancelled:
		return true
	case JobStatusFailed:
		return j.RetryCount < j.MaxRetries
	default:
		return false
	}
}

// JobContext is the caller-supplied input for one step invocation
type JobContext struct {
	TenderID     string         `json:"tender_id,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	AnalysisData map[string]any `json:"analysis_data,omitempty"`
}

// JobResult is returned to the caller for every step invocation
type JobResult struct {
	Success         bool           `json:"success"`
	JobID           string         `json:"job_id,omitempty"`
	Step            StepName       `json:"step"`
	Status          JobStatus      `json:"status"`
	Output          map[string]any `json:"output,omitempty"`
	Error           string         `json:"error,omitempty"`
	ErrorCode       string         `json:"error_code,omitempty"`
	Message         string         `json:"message,omitempty"`
	Confidence      float64        `json:"confidence"`
	Duration        time.Duration  `json:"duration"`
	Missing         []string       `json:"missing,omitempty"`
	BlockingIssues  []string       `json:"blocking_issues,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
}
