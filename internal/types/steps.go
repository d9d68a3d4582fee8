// Package types provides type definitions for structured data used throughout the tender pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "fmt"

// StepName identifies one stage of the fixed tender pipeline
type StepName string

// Pipeline steps, in execution order
const (
	StepAnalyzeCompleted StepName = "ANALYZE_COMPLETED"
	StepTenderUpserted   StepName = "TENDER_UPSERTED"
	StepChecklistDone    StepName = "CHECKLIST_DONE"
	StepSimulationDone   StepName = "SIMULATION_DONE"
	StepOfferDrafted     StepName = "OFFER_DRAFTED"
)

// OrderedSteps is the fixed declared order of the pipeline
var OrderedSteps = []StepName{
	StepAnalyzeCompleted,
	StepTenderUpserted,
	StepChecklistDone,
	StepSimulationDone,
	StepOfferDrafted,
}

// Valid reports whether s is one of the declared steps
func (s StepName) Valid() bool {
	for _, step := range OrderedSteps {
		if step == s {
			return true
		}
	}
	return false
}

// ParseStepName converts a raw string into a StepName
func ParseStepName(raw string) (StepName, error) {
	step := StepName(raw)
	if !step.Valid() {
		return "", fmt.Errorf("unknown step: %s", raw)
	}
	return step, nil
}

// JobStatus is the ledger status of a (docHash, step) row
type JobStatus string

// JobStatus constants
const (
	JobStatusPending      JobStatus = "pending"
	JobStatusRunning      JobStatus = "running"
	JobStatusCompleted    JobStatus = "completed"
	JobStatusFailed       JobStatus = "failed"
	JobStatusCancelled    JobStatus = "cancelled"
	JobStatusWaitingInput JobStatus = "waiting_input"
)
