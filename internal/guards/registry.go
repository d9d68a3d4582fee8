// Package guards implements admission control for pipeline steps. Every step
// has an ordered list of conditions; required failures block the step,
// optional failures only warn.
package guards

import (
	"context"
	"fmt"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// Validator inspects the evaluation context. It must only read.
type Validator func(ctx context.Context, gc *Context) (types.GuardResult, error)

// Condition is one named precondition of a step
type Condition struct {
	Name        string
	Required    bool
	Description string
	Validate    Validator
}

// Settings are the tunable thresholds used by the default conditions
type Settings struct {
	MinAnalysisConfidence float64
	CostBandMin           float64
	CostBandMax           float64
}

// DefaultSettings returns the standard thresholds
func DefaultSettings() Settings {
	return Settings{
		MinAnalysisConfidence: 0.6,
		CostBandMin:           0.5,
		CostBandMax:           1.5,
	}
}

// Registry maps each step to its ordered conditions
type Registry struct {
	table map[types.StepName][]Condition
}

// NewRegistry wraps a static condition table
func NewRegistry(table map[types.StepName][]Condition) *Registry {
	return &Registry{table: table}
}

// DefaultRegistry builds the standard condition table
func DefaultRegistry(s Settings) *Registry {
	return NewRegistry(map[types.StepName][]Condition{
		types.StepAnalyzeCompleted: {
			docHashFormat(),
			{Name: "analysis_present", Required: true, Description: "Analysis data was supplied", Validate: analysisPresent},
			{Name: "analysis_schema", Required: true, Description: "Analysis data matches the analysis schema", Validate: analysisSchema},
			{Name: "analysis_confidence", Required: false, Description: "Extraction confidence meets the configured minimum", Validate: analysisConfidence(s.MinAnalysisConfidence)},
		},
		types.StepTenderUpserted: {
			docHashFormat(),
			dependencies(),
			{Name: "owner_present", Required: true, Description: "The tender has an owning user", Validate: ownerPresent},
			{Name: "person_count", Required: false, Description: "A positive person count is known", Validate: personCount},
		},
		types.StepChecklistDone: {
			dependencies(),
			{Name: "tender_exists", Required: true, Description: "The tender record exists", Validate: tenderExists},
			{Name: "requirements_present", Required: false, Description: "Technical requirements were extracted", Validate: requirementsPresent},
		},
		types.StepSimulationDone: {
			dependencies(),
			{Name: "persons", Required: true, Description: "A positive person count is known", Validate: persons},
			{Name: "meals_per_day", Required: true, Description: "Meals per day is known", Validate: mealsPerDay},
			{Name: "duration_days", Required: true, Description: "The contract duration is known", Validate: durationDays},
			{Name: "portion_specs", Required: false, Description: "Portion sizes were extracted", Validate: portionSpecs},
			{Name: "estimated_value", Required: false, Description: "The tender estimate is known", Validate: estimatedValue},
		},
		types.StepOfferDrafted: {
			dependencies(),
			{Name: "simulation_present", Required: true, Description: "A simulation exists for the document", Validate: simulationPresent},
			{Name: "project_total_consistent", Required: true, Description: "The stored simulation satisfies the project total invariant", Validate: projectTotalConsistent},
			{Name: "cost_within_estimate", Required: true, Description: "The simulated cost is within the band around the estimate", Validate: costWithinEstimate(s.CostBandMin, s.CostBandMax)},
		},
	})
}

// Conditions returns the ordered conditions of a step
func (r *Registry) Conditions(step types.StepName) ([]Condition, bool) {
	conds, ok := r.table[step]
	return conds, ok
}

// Verify checks that every pipeline step is registered and every condition
// is well formed.
func (r *Registry) Verify() error {
	for _, step := range types.OrderedSteps {
		conds, ok := r.table[step]
		if !ok {
			return fmt.Errorf("no guard conditions registered for step %s", step)
		}
		seen := make(map[string]bool, len(conds))
		for _, c := range conds {
			if c.Name == "" || c.Validate == nil {
				return fmt.Errorf("step %s has an incomplete guard condition", step)
			}
			if seen[c.Name] {
				return fmt.Errorf("step %s registers guard %s twice", step, c.Name)
			}
			seen[c.Name] = true
		}
	}
	for step := range r.table {
		if !step.Valid() {
			return fmt.Errorf("guard conditions registered for unknown step %s", step)
		}
	}
	return nil
}
