package guards

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/costing"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/dochash"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/money"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/pipeline/steps"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/schemas"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

func pass(confidence float64, message string) types.GuardResult {
	return types.GuardResult{Passed: true, Confidence: confidence, Message: message}
}

func fail(message string, missing []string, recommendations ...string) types.GuardResult {
	return types.GuardResult{
		Passed:          false,
		Confidence:      0,
		Message:         message,
		Missing:         missing,
		Recommendations: recommendations,
	}
}

func docHashFormat() Condition {
	return Condition{
		Name:        "doc_hash_format",
		Required:    true,
		Description: "The document hash is 64 lowercase hex characters",
		Validate: func(_ context.Context, gc *Context) (types.GuardResult, error) {
			if !dochash.Valid(gc.DocHash) {
				return fail("document hash is malformed", []string{"doc_hash"},
					"Compute the document hash as BLAKE2b-256 hex of the source document"), nil
			}
			return pass(1, "document hash is well formed"), nil
		},
	}
}

func dependencies() Condition {
	return Condition{
		Name:        "dependencies",
		Required:    true,
		Description: "Every prerequisite step is completed",
		Validate: func(ctx context.Context, gc *Context) (types.GuardResult, error) {
			err := steps.ValidateDependencies(ctx, gc.reader, gc.DocHash, gc.Step)
			if err == nil {
				return pass(1, "prerequisite steps completed"), nil
			}
			var depErr *steps.DependencyError
			if !errors.As(err, &depErr) {
				return types.GuardResult{}, err
			}
			missing := make([]string, 0, len(depErr.MissingDependencies))
			recs := make([]string, 0, len(depErr.MissingDependencies))
			for _, dep := range depErr.MissingDependencies {
				missing = append(missing, string(dep))
				recs = append(recs, fmt.Sprintf("Complete step %s first", dep))
			}
			res := fail(fmt.Sprintf("step %s is waiting on %v", gc.Step, depErr.MissingDependencies), missing, recs...)
			res.Evidence = map[string]any{"missing_steps": missing}
			return res, nil
		},
	}
}

func analysisPresent(_ context.Context, gc *Context) (types.GuardResult, error) {
	if len(gc.Job.AnalysisData) == 0 {
		return fail("no analysis data supplied", []string{"analysis_data"},
			"Run document analysis and pass its output as analysis data"), nil
	}
	res := pass(1, "analysis data supplied")
	res.Evidence = map[string]any{"fields": len(gc.Job.AnalysisData)}
	return res, nil
}

func analysisSchema(_ context.Context, gc *Context) (types.GuardResult, error) {
	err := schemas.ValidateAnalysis(gc.Job.AnalysisData)
	if err == nil {
		return pass(1, "analysis data matches schema"), nil
	}
	var vErr *schemas.ValidationError
	if !errors.As(err, &vErr) {
		return types.GuardResult{}, err
	}
	res := fail("analysis data does not match schema", vErr.Fields(), "Fix the reported analysis fields and retry")
	for _, fe := range vErr.Errors {
		res.BlockingIssues = append(res.BlockingIssues, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return res, nil
}

func analysisConfidence(minimum float64) Validator {
	return func(_ context.Context, gc *Context) (types.GuardResult, error) {
		meta, err := gc.Metadata()
		if err != nil {
			return types.GuardResult{}, err
		}
		if meta.Confidence == 0 {
			return fail("analysis confidence not reported", nil, "Report extraction confidence with the analysis"), nil
		}
		if meta.Confidence < minimum {
			res := fail(fmt.Sprintf("analysis confidence %.2f is below %.2f", meta.Confidence, minimum), nil,
				"Review extracted fields manually before pricing")
			res.Confidence = meta.Confidence
			return res, nil
		}
		return pass(meta.Confidence, "analysis confidence is acceptable"), nil
	}
}

func ownerPresent(ctx context.Context, gc *Context) (types.GuardResult, error) {
	if gc.Job.UserID != "" {
		return pass(1, "tender owner supplied"), nil
	}
	tender, err := gc.Tender(ctx)
	if err != nil {
		return types.GuardResult{}, err
	}
	if tender != nil && tender.UserID != "" {
		return pass(1, "tender owner already recorded"), nil
	}
	return fail("tender owner is unknown", []string{"user_id"}, "Supply the owning user id"), nil
}

func personCount(ctx context.Context, gc *Context) (types.GuardResult, error) {
	facts, err := gc.Facts(ctx)
	if err != nil {
		return types.GuardResult{}, err
	}
	if facts.PersonCount <= 0 {
		return fail("person count is unknown", []string{"persons"}, "Provide personCount before simulation"), nil
	}
	return pass(1, fmt.Sprintf("%d persons", facts.PersonCount)), nil
}

func tenderExists(ctx context.Context, gc *Context) (types.GuardResult, error) {
	tender, err := gc.Tender(ctx)
	if err != nil {
		return types.GuardResult{}, err
	}
	if tender == nil {
		return fail("tender record not found", []string{"tender"}, "Complete step TENDER_UPSERTED first"), nil
	}
	res := pass(1, "tender record found")
	res.Evidence = map[string]any{"tender_id": tender.ID.String()}
	return res, nil
}

func requirementsPresent(ctx context.Context, gc *Context) (types.GuardResult, error) {
	facts, err := gc.Facts(ctx)
	if err != nil {
		return types.GuardResult{}, err
	}
	if len(facts.Requirements) == 0 {
		return fail("no technical requirements extracted", nil,
			"Only the standard document checklist will be generated"), nil
	}
	return pass(1, fmt.Sprintf("%d requirements", len(facts.Requirements))), nil
}

func persons(ctx context.Context, gc *Context) (types.GuardResult, error) {
	facts, err := gc.Facts(ctx)
	if err != nil {
		return types.GuardResult{}, err
	}
	if facts.PersonCount <= 0 {
		return fail("person count must be positive", []string{"persons"},
			"Provide personCount in the analysis data"), nil
	}
	return pass(1, fmt.Sprintf("%d persons", facts.PersonCount)), nil
}

func mealsPerDay(ctx context.Context, gc *Context) (types.GuardResult, error) {
	facts, err := gc.Facts(ctx)
	if err != nil {
		return types.GuardResult{}, err
	}
	if facts.MealsPerDay <= 0 {
		return fail("meals per day is unknown", []string{"meals_per_day"},
			"Provide mealsPerDay or mealTypes in the analysis data"), nil
	}
	return pass(1, fmt.Sprintf("%d meals per day", facts.MealsPerDay)), nil
}

func durationDays(ctx context.Context, gc *Context) (types.GuardResult, error) {
	facts, err := gc.Facts(ctx)
	if err != nil {
		return types.GuardResult{}, err
	}
	if facts.DurationDays <= 0 {
		return fail("contract duration is unknown", []string{"duration_days"},
			"Provide serviceDays in the analysis data"), nil
	}
	return pass(1, fmt.Sprintf("%d days", facts.DurationDays)), nil
}

func portionSpecs(ctx context.Context, gc *Context) (types.GuardResult, error) {
	facts, err := gc.Facts(ctx)
	if err != nil {
		return types.GuardResult{}, err
	}
	if len(facts.PortionSizes) == 0 {
		res := fail("no portion sizes extracted", nil, "Default portion sizes will be used; supply portionSizes for accuracy")
		res.Confidence = 0.5
		return res, nil
	}
	return pass(1, fmt.Sprintf("%d portion categories", len(facts.PortionSizes))), nil
}

func estimatedValue(ctx context.Context, gc *Context) (types.GuardResult, error) {
	facts, err := gc.Facts(ctx)
	if err != nil {
		return types.GuardResult{}, err
	}
	if facts.EstimatedValue <= 0 {
		return fail("tender estimate is unknown", nil, "Supply estimatedValue to enable the cost band check"), nil
	}
	return pass(1, fmt.Sprintf("estimate %.2f", facts.EstimatedValue)), nil
}

func simulationPresent(ctx context.Context, gc *Context) (types.GuardResult, error) {
	sim, err := gc.LatestSimulation(ctx)
	if err != nil {
		return types.GuardResult{}, err
	}
	if sim == nil {
		return fail("no simulation stored for this document", []string{"simulation"},
			"Complete step SIMULATION_DONE first"), nil
	}
	res := pass(1, "simulation found")
	res.Evidence = map[string]any{"simulation_id": sim.ID.String()}
	return res, nil
}

func projectTotalConsistent(ctx context.Context, gc *Context) (types.GuardResult, error) {
	sim, err := gc.LatestSimulation(ctx)
	if err != nil {
		return types.GuardResult{}, err
	}
	if sim == nil {
		return fail("no simulation to check", []string{"simulation"}), nil
	}
	if err := costing.CheckProjectTotal(&sim.Output); err != nil {
		res := fail("stored simulation violates the project total invariant", nil,
			"Re-run the simulation; do not adjust totals by hand")
		res.BlockingIssues = []string{err.Error()}
		return res, nil
	}
	return pass(1, "project total equals the sum of its components"), nil
}

func costWithinEstimate(low, high float64) Validator {
	return func(ctx context.Context, gc *Context) (types.GuardResult, error) {
		sim, err := gc.LatestSimulation(ctx)
		if err != nil {
			return types.GuardResult{}, err
		}
		if sim == nil {
			return fail("no simulation to compare", []string{"simulation"}), nil
		}
		facts, err := gc.Facts(ctx)
		if err != nil {
			return types.GuardResult{}, err
		}
		if facts.EstimatedValue <= 0 {
			res := pass(0.5, "tender estimate unknown; cost band not checked")
			res.Warnings = []string{"tender estimate unknown; cost band not checked"}
			return res, nil
		}

		ratio := money.Round(sim.Output.ProjectTotal/facts.EstimatedValue, 4)
		evidence := map[string]any{
			"project_total":   sim.Output.ProjectTotal,
			"estimated_value": facts.EstimatedValue,
			"ratio":           ratio,
		}
		if ratio < low || ratio > high {
			res := fail(fmt.Sprintf("simulated cost is %.0f%% of the estimate, outside %.0f%%-%.0f%%",
				ratio*100, low*100, high*100), nil,
				"Check person count, duration and portion prices against the tender document")
			res.Evidence = evidence
			return res, nil
		}
		res := pass(money.Round(1-math.Abs(1-ratio)/2, 4), "simulated cost is within the expected band")
		res.Evidence = evidence
		return res, nil
	}
}
