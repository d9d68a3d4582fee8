package guards

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/db"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/sli"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

var docHash = strings.Repeat("0f", 32)

func completeStep(t *testing.T, store *db.MemoryStore, step types.StepName) {
	t.Helper()
	ctx := context.Background()
	job, ok, err := store.ClaimJob(ctx, docHash, step, 3, nil)
	require.NoError(t, err)
	require.True(t, ok)
	job.Status = types.JobStatusCompleted
	require.NoError(t, store.UpsertJob(ctx, job))
}

func resultNamed(results []types.GuardResult, name string) (types.GuardResult, bool) {
	for _, r := range results {
		if r.Name == name {
			return r, true
		}
	}
	return types.GuardResult{}, false
}

func TestDefaultRegistry_Verify(t *testing.T) {
	require.NoError(t, DefaultRegistry(DefaultSettings()).Verify())

	for _, step := range types.OrderedSteps {
		conds, ok := DefaultRegistry(DefaultSettings()).Conditions(step)
		assert.True(t, ok, step)
		assert.NotEmpty(t, conds, step)
	}
}

func TestRegistry_VerifyFailures(t *testing.T) {
	noop := func(context.Context, *Context) (types.GuardResult, error) { return pass(1, "ok"), nil }

	tests := []struct {
		name  string
		table map[types.StepName][]Condition
		want  string
	}{
		{
			name:  "missing step",
			table: map[types.StepName][]Condition{types.StepAnalyzeCompleted: {{Name: "a", Validate: noop}}},
			want:  "no guard conditions registered",
		},
		{
			name: "duplicate guard",
			table: func() map[types.StepName][]Condition {
				m := allSteps(noop)
				m[types.StepOfferDrafted] = []Condition{{Name: "x", Validate: noop}, {Name: "x", Validate: noop}}
				return m
			}(),
			want: "twice",
		},
		{
			name: "nil validator",
			table: func() map[types.StepName][]Condition {
				m := allSteps(noop)
				m[types.StepChecklistDone] = []Condition{{Name: "x"}}
				return m
			}(),
			want: "incomplete",
		},
		{
			name: "unknown step",
			table: func() map[types.StepName][]Condition {
				m := allSteps(noop)
				m["PUBLISHED"] = []Condition{{Name: "x", Validate: noop}}
				return m
			}(),
			want: "unknown step",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry(tt.table).Verify()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func allSteps(v Validator) map[types.StepName][]Condition {
	m := make(map[types.StepName][]Condition)
	for _, step := range types.OrderedSteps {
		m[step] = []Condition{{Name: "ok", Required: true, Validate: v}}
	}
	return m
}

func TestEvaluate_UnknownStep(t *testing.T) {
	e := NewEvaluator(DefaultRegistry(DefaultSettings()), db.NewMemoryStore())
	_, err := e.Evaluate(context.Background(), "PUBLISHED", docHash, types.JobContext{})
	assert.Error(t, err)
}

func TestEvaluate_AnalyzeCompleted(t *testing.T) {
	e := NewEvaluator(DefaultRegistry(DefaultSettings()), db.NewMemoryStore())
	ctx := context.Background()

	t.Run("valid analysis", func(t *testing.T) {
		eval, err := e.Evaluate(ctx, types.StepAnalyzeCompleted, docHash, types.JobContext{
			AnalysisData: map[string]any{"personCount": 500, "confidence": 0.9},
		})
		require.NoError(t, err)
		assert.True(t, eval.CanProceed)
		assert.Empty(t, eval.Blockers)
		assert.Len(t, eval.Passed, 4)
		// (1 + 1 + 1 + 0.9) / 4
		assert.Equal(t, 0.975, eval.OverallConfidence)
	})

	t.Run("low confidence only warns", func(t *testing.T) {
		eval, err := e.Evaluate(ctx, types.StepAnalyzeCompleted, docHash, types.JobContext{
			AnalysisData: map[string]any{"personCount": 500, "confidence": 0.4},
		})
		require.NoError(t, err)
		assert.True(t, eval.CanProceed)
		require.Len(t, eval.Warnings, 1)
		assert.Equal(t, "analysis_confidence", eval.Warnings[0].Name)
		assert.NotEmpty(t, eval.Recommendations)
	})

	t.Run("bad hash and missing data", func(t *testing.T) {
		eval, err := e.Evaluate(ctx, types.StepAnalyzeCompleted, "not-a-hash", types.JobContext{})
		require.NoError(t, err)
		assert.False(t, eval.CanProceed)
		assert.Contains(t, eval.Missing, "doc_hash")
		assert.Contains(t, eval.Missing, "analysis_data")
	})

	t.Run("schema violation", func(t *testing.T) {
		eval, err := e.Evaluate(ctx, types.StepAnalyzeCompleted, docHash, types.JobContext{
			AnalysisData: map[string]any{"personCount": "many"},
		})
		require.NoError(t, err)
		assert.False(t, eval.CanProceed)
		blocker, ok := resultNamed(eval.Blockers, "analysis_schema")
		require.True(t, ok)
		assert.NotEmpty(t, blocker.BlockingIssues)
	})
}

func TestEvaluate_SimulationMissingPersons(t *testing.T) {
	store := db.NewMemoryStore()
	completeStep(t, store, types.StepAnalyzeCompleted)
	completeStep(t, store, types.StepTenderUpserted)
	e := NewEvaluator(DefaultRegistry(DefaultSettings()), store)
	ctx := context.Background()

	eval, err := e.Evaluate(ctx, types.StepSimulationDone, docHash, types.JobContext{
		AnalysisData: map[string]any{"personCount": 0, "mealsPerDay": 3, "serviceDays": 365},
	})
	require.NoError(t, err)
	assert.False(t, eval.CanProceed)
	assert.Equal(t, []string{"persons"}, eval.Missing)
	require.Len(t, eval.Blockers, 1)
	assert.Equal(t, "persons", eval.Blockers[0].Name)
	assert.Equal(t, 0.0, eval.Blockers[0].Confidence)

	eval, err = e.Evaluate(ctx, types.StepSimulationDone, docHash, types.JobContext{
		AnalysisData: map[string]any{"personCount": 500, "mealsPerDay": 3, "serviceDays": 365},
	})
	require.NoError(t, err)
	assert.True(t, eval.CanProceed)
	assert.Empty(t, eval.Missing)
	_, ok := resultNamed(eval.Passed, "persons")
	assert.True(t, ok)
}

func TestEvaluate_PersistedTenderFillsFacts(t *testing.T) {
	store := db.NewMemoryStore()
	completeStep(t, store, types.StepAnalyzeCompleted)
	completeStep(t, store, types.StepTenderUpserted)
	_, err := store.UpsertTender(context.Background(), &types.Tender{
		DocHash: docHash, UserID: "u1", PersonCount: 250, MealsPerDay: 2, DurationDays: 180,
	})
	require.NoError(t, err)

	e := NewEvaluator(DefaultRegistry(DefaultSettings()), store)
	eval, err := e.Evaluate(context.Background(), types.StepSimulationDone, docHash, types.JobContext{})
	require.NoError(t, err)
	assert.True(t, eval.CanProceed)
}

func TestEvaluate_DependenciesBlock(t *testing.T) {
	store := db.NewMemoryStore()
	e := NewEvaluator(DefaultRegistry(DefaultSettings()), store)

	eval, err := e.Evaluate(context.Background(), types.StepTenderUpserted, docHash, types.JobContext{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, eval.CanProceed)
	assert.Contains(t, eval.Missing, string(types.StepAnalyzeCompleted))
	assert.Contains(t, eval.Recommendations, "Complete step ANALYZE_COMPLETED first")
	// optional person_count failure is a warning, never a blocker
	_, ok := resultNamed(eval.Warnings, "person_count")
	assert.True(t, ok)
	_, ok = resultNamed(eval.Blockers, "person_count")
	assert.False(t, ok)
}

func TestEvaluate_DoesNotWrite(t *testing.T) {
	store := db.NewMemoryStore()
	completeStep(t, store, types.StepAnalyzeCompleted)
	before := store.LedgerWrites()

	e := NewEvaluator(DefaultRegistry(DefaultSettings()), store)
	for _, step := range types.OrderedSteps {
		_, err := e.Evaluate(context.Background(), step, docHash, types.JobContext{UserID: "u1"})
		require.NoError(t, err)
	}
	assert.Equal(t, before, store.LedgerWrites())
}

func TestEvaluate_ValidatorErrorsAndPanics(t *testing.T) {
	table := allSteps(func(context.Context, *Context) (types.GuardResult, error) { return pass(1, "ok"), nil })
	table[types.StepChecklistDone] = []Condition{
		{Name: "ok", Required: true, Validate: func(context.Context, *Context) (types.GuardResult, error) {
			return pass(0.8, "ok"), nil
		}},
		{Name: "broken", Required: true, Validate: func(context.Context, *Context) (types.GuardResult, error) {
			return types.GuardResult{}, errors.New("connection reset")
		}},
		{Name: "panicky", Required: false, Validate: func(context.Context, *Context) (types.GuardResult, error) {
			panic("nil map")
		}},
	}

	e := NewEvaluator(NewRegistry(table), db.NewMemoryStore())
	eval, err := e.Evaluate(context.Background(), types.StepChecklistDone, docHash, types.JobContext{})
	require.NoError(t, err)

	assert.False(t, eval.CanProceed)
	require.Len(t, eval.Blockers, 1)
	assert.Equal(t, "broken", eval.Blockers[0].Name)
	assert.Equal(t, 0.0, eval.Blockers[0].Confidence)
	assert.Contains(t, eval.Blockers[0].BlockingIssues, "connection reset")

	require.Len(t, eval.Warnings, 1)
	assert.Equal(t, "panicky", eval.Warnings[0].Name)
	assert.Contains(t, eval.Warnings[0].BlockingIssues[0], "nil map")

	assert.Equal(t, 0.2667, eval.OverallConfidence)
}

func TestEvaluate_NoConditions(t *testing.T) {
	table := allSteps(func(context.Context, *Context) (types.GuardResult, error) { return pass(1, "ok"), nil })
	table[types.StepOfferDrafted] = nil

	e := NewEvaluator(NewRegistry(table), nil)
	eval, err := e.Evaluate(context.Background(), types.StepOfferDrafted, docHash, types.JobContext{})
	require.NoError(t, err)
	assert.True(t, eval.CanProceed)
	assert.Equal(t, 1.0, eval.OverallConfidence)
}

func TestEvaluate_OfferCostBand(t *testing.T) {
	ctx := context.Background()
	output := types.SimulationOutput{
		Material:     types.CostBreakdown{Total: 600},
		Labor:        types.CostBreakdown{Total: 300},
		Overhead:     types.CostBreakdown{Total: 100},
		ProjectTotal: 1000,
	}

	tests := []struct {
		name       string
		estimate   float64
		canProceed bool
		confidence float64
	}{
		{"on estimate", 1000, true, 1},
		{"unknown estimate", 0, true, 0.5},
		{"far below estimate", 5000, false, 0},
		{"far above estimate", 400, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := db.NewMemoryStore()
			completeStep(t, store, types.StepSimulationDone)
			require.NoError(t, store.CreateSimulation(ctx, &types.SimulationRecord{DocHash: docHash, Output: output}))

			e := NewEvaluator(DefaultRegistry(DefaultSettings()), store)
			eval, err := e.Evaluate(ctx, types.StepOfferDrafted, docHash, types.JobContext{
				AnalysisData: map[string]any{"estimatedValue": tt.estimate},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.canProceed, eval.CanProceed)

			all := append(append([]types.GuardResult{}, eval.Passed...), eval.Blockers...)
			band, ok := resultNamed(all, "cost_within_estimate")
			require.True(t, ok)
			assert.Equal(t, tt.confidence, band.Confidence)
		})
	}
}

func TestEvaluate_OfferRejectsInconsistentTotal(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	completeStep(t, store, types.StepSimulationDone)
	require.NoError(t, store.CreateSimulation(ctx, &types.SimulationRecord{DocHash: docHash, Output: types.SimulationOutput{
		Material:     types.CostBreakdown{Total: 600},
		Labor:        types.CostBreakdown{Total: 300},
		Overhead:     types.CostBreakdown{Total: 100},
		ProjectTotal: 1200,
	}}))

	e := NewEvaluator(DefaultRegistry(DefaultSettings()), store)
	eval, err := e.Evaluate(ctx, types.StepOfferDrafted, docHash, types.JobContext{})
	require.NoError(t, err)
	assert.False(t, eval.CanProceed)
	blocker, ok := resultNamed(eval.Blockers, "project_total_consistent")
	require.True(t, ok)
	assert.NotEmpty(t, blocker.BlockingIssues)
}

func TestEvaluate_RecordsGuardSamples(t *testing.T) {
	rec := sli.NewMemoryRecorder()
	store := db.NewMemoryStore()
	e := NewEvaluator(DefaultRegistry(DefaultSettings()), store, WithRecorder(rec))

	_, err := e.Evaluate(context.Background(), types.StepTenderUpserted, docHash, types.JobContext{})
	require.NoError(t, err)

	samples := rec.ByName(sli.GuardConfidence)
	require.Len(t, samples, 4)
	assert.Equal(t, 1, rec.Count(sli.GuardConfidence, map[string]string{
		"step": string(types.StepTenderUpserted), "guard": "dependencies", "required": "true", "result": "fail",
	}))
	assert.Equal(t, 1, rec.Count(sli.GuardConfidence, map[string]string{
		"guard": "doc_hash_format", "result": "pass",
	}))
}

func TestContext_TenderLookup(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	stored, err := store.UpsertTender(ctx, &types.Tender{DocHash: docHash, UserID: "u1", PersonCount: 10})
	require.NoError(t, err)

	byID := NewContext(types.StepChecklistDone, strings.Repeat("11", 32), types.JobContext{TenderID: stored.ID.String()}, store)
	tender, err := byID.Tender(ctx)
	require.NoError(t, err)
	require.NotNil(t, tender)
	assert.Equal(t, stored.ID, tender.ID)

	byHash := NewContext(types.StepChecklistDone, docHash, types.JobContext{TenderID: "not-a-uuid"}, store)
	tender, err = byHash.Tender(ctx)
	require.NoError(t, err)
	require.NotNil(t, tender)

	facts, err := byHash.Facts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, facts.PersonCount)

	none := NewContext(types.StepChecklistDone, strings.Repeat("22", 32), types.JobContext{}, store)
	tender, err = none.Tender(ctx)
	require.NoError(t, err)
	assert.Nil(t, tender)
}
