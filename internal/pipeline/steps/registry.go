// Package steps provides step definitions and dependency validation
// for the tender pipeline.
package steps

import (
	"context"
	"fmt"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// Step categories
const (
	CategoryIntake   = "intake"
	CategoryPlanning = "planning"
	CategoryCosting  = "costing"
	CategoryProposal = "proposal"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         types.StepName
	Order        int
	Category     string
	Description  string
	Dependencies []types.StepName
}

// JobReader is the read side of the ledger needed for dependency checks
type JobReader interface {
	GetJob(ctx context.Context, docHash string, step types.StepName) (*types.PipelineJob, error)
}

// StepRegistry holds all step definitions
var StepRegistry = map[types.StepName]StepDefinition{
	types.StepAnalyzeCompleted: {
		Name:         types.StepAnalyzeCompleted,
		Order:        1,
		Category:     CategoryIntake,
		Description:  "Document analysis accepted",
		Dependencies: []types.StepName{},
	},
	types.StepTenderUpserted: {
		Name:         types.StepTenderUpserted,
		Order:        2,
		Category:     CategoryIntake,
		Description:  "Tender record created or updated",
		Dependencies: []types.StepName{types.StepAnalyzeCompleted},
	},
	types.StepChecklistDone: {
		Name:         types.StepChecklistDone,
		Order:        3,
		Category:     CategoryPlanning,
		Description:  "Submission checklist generated",
		Dependencies: []types.StepName{types.StepTenderUpserted},
	},
	types.StepSimulationDone: {
		Name:         types.StepSimulationDone,
		Order:        4,
		Category:     CategoryCosting,
		Description:  "Cost simulation and ADT analysis completed",
		Dependencies: []types.StepName{types.StepTenderUpserted},
	},
	types.StepOfferDrafted: {
		Name:         types.StepOfferDrafted,
		Order:        5,
		Category:     CategoryProposal,
		Description:  "Offer drafted from the latest simulation",
		Dependencies: []types.StepName{types.StepSimulationDone},
	},
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                types.StepName
	MissingDependencies []types.StepName
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("missing dependencies: %v", e.MissingDependencies)
}

// Lookup returns the definition of a step
func Lookup(step types.StepName) (StepDefinition, error) {
	def, ok := StepRegistry[step]
	if !ok {
		return StepDefinition{}, fmt.Errorf("unknown step: %s", step)
	}
	return def, nil
}

// Ordered returns step definitions in execution order
func Ordered() []StepDefinition {
	defs := make([]StepDefinition, 0, len(types.OrderedSteps))
	for _, name := range types.OrderedSteps {
		defs = append(defs, StepRegistry[name])
	}
	return defs
}

// Next returns the step following the given one, or false for the last step
func Next(step types.StepName) (types.StepName, bool) {
	for i, name := range types.OrderedSteps {
		if name == step && i+1 < len(types.OrderedSteps) {
			return types.OrderedSteps[i+1], true
		}
	}
	return "", false
}

// ValidateDependencies checks if all required dependencies for a step are completed
func ValidateDependencies(ctx context.Context, reader JobReader, docHash string, step types.StepName) error {
	def, err := Lookup(step)
	if err != nil {
		return err
	}

	var missing []types.StepName

	for _, dep := range def.Dependencies {
		job, err := reader.GetJob(ctx, docHash, dep)
		if err != nil {
			return fmt.Errorf("failed to check dependency %s: %w", dep, err)
		}
		if job == nil || job.Status != types.JobStatusCompleted {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                step,
			MissingDependencies: missing,
		}
	}

	return nil
}

// GetAvailableSteps returns steps that can be executed (dependencies met),
// in execution order.
func GetAvailableSteps(ctx context.Context, reader JobReader, docHash string) ([]types.StepName, error) {
	var available []types.StepName

	for _, step := range types.OrderedSteps {
		existing, err := reader.GetJob(ctx, docHash, step)
		if err != nil {
			return nil, fmt.Errorf("failed to check step %s: %w", step, err)
		}
		if existing != nil && (existing.Terminal() || existing.Status == types.JobStatusRunning) {
			continue
		}

		if err := ValidateDependencies(ctx, reader, docHash, step); err != nil {
			continue
		}

		available = append(available, step)
	}

	return available, nil
}
