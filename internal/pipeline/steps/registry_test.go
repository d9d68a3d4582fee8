package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

type fakeReader struct {
	jobs map[types.StepName]*types.PipelineJob
	err  error
}

func (f *fakeReader) GetJob(_ context.Context, _ string, step types.StepName) (*types.PipelineJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.jobs[step], nil
}

func completed(step types.StepName) *types.PipelineJob {
	return &types.PipelineJob{Step: step, Status: types.JobStatusCompleted}
}

func TestStepRegistry(t *testing.T) {
	for i, stepName := range types.OrderedSteps {
		def, ok := StepRegistry[stepName]
		require.True(t, ok, "Step %s should be in registry", stepName)
		assert.Equal(t, stepName, def.Name)
		assert.Equal(t, i+1, def.Order)
		assert.NotEmpty(t, def.Category)
	}
	assert.Len(t, StepRegistry, len(types.OrderedSteps))
}

func TestStepRegistry_DependenciesPrecede(t *testing.T) {
	for _, def := range Ordered() {
		for _, dep := range def.Dependencies {
			assert.Less(t, StepRegistry[dep].Order, def.Order, "%s depends on later step %s", def.Name, dep)
		}
	}
}

func TestNext(t *testing.T) {
	next, ok := Next(types.StepAnalyzeCompleted)
	assert.True(t, ok)
	assert.Equal(t, types.StepTenderUpserted, next)

	_, ok = Next(types.StepOfferDrafted)
	assert.False(t, ok)
}

func TestDependencyError(t *testing.T) {
	err := &DependencyError{
		Step:                types.StepOfferDrafted,
		MissingDependencies: []types.StepName{types.StepSimulationDone},
	}

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing dependencies")
	assert.Contains(t, err.Error(), "SIMULATION_DONE")
}

func TestValidateDependencies_UnknownStep(t *testing.T) {
	err := ValidateDependencies(context.Background(), &fakeReader{}, "hash", "unknown_step")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step")
}

func TestValidateDependencies(t *testing.T) {
	reader := &fakeReader{jobs: map[types.StepName]*types.PipelineJob{
		types.StepAnalyzeCompleted: completed(types.StepAnalyzeCompleted),
		types.StepTenderUpserted:   {Step: types.StepTenderUpserted, Status: types.JobStatusFailed},
	}}

	assert.NoError(t, ValidateDependencies(context.Background(), reader, "hash", types.StepAnalyzeCompleted))
	assert.NoError(t, ValidateDependencies(context.Background(), reader, "hash", types.StepTenderUpserted))

	err := ValidateDependencies(context.Background(), reader, "hash", types.StepSimulationDone)
	var depErr *DependencyError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, []types.StepName{types.StepTenderUpserted}, depErr.MissingDependencies)
}

func TestValidateDependencies_ReaderError(t *testing.T) {
	reader := &fakeReader{err: errors.New("connection refused")}
	err := ValidateDependencies(context.Background(), reader, "hash", types.StepTenderUpserted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	var depErr *DependencyError
	assert.False(t, errors.As(err, &depErr))
}

func TestGetAvailableSteps(t *testing.T) {
	reader := &fakeReader{jobs: map[types.StepName]*types.PipelineJob{
		types.StepAnalyzeCompleted: completed(types.StepAnalyzeCompleted),
		types.StepTenderUpserted:   completed(types.StepTenderUpserted),
	}}

	available, err := GetAvailableSteps(context.Background(), reader, "hash")
	require.NoError(t, err)
	assert.Equal(t, []types.StepName{types.StepChecklistDone, types.StepSimulationDone}, available)
}
