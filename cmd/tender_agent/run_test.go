package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/dochash"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

var testDocHash = strings.Repeat("ab", 32)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunCommand_FullPipeline(t *testing.T) {
	stdout, stderr, err := executeCommand(t, "run", "-v",
		"--analysis", filepath.Join("testdata", "analysis.json"),
		"--doc-hash", testDocHash,
		"--user-id", "user-1")
	require.NoError(t, err)

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, testDocHash, summary.DocHash)
	assert.True(t, summary.Complete)
	require.Len(t, summary.Results, len(types.OrderedSteps))
	for i, r := range summary.Results {
		assert.Equal(t, types.OrderedSteps[i], r.Step)
		assert.Equal(t, types.JobStatusCompleted, r.Status)
	}
	assert.Contains(t, stderr, "PIPELINE STEPS")
}

func TestRunCommand_DocumentHash(t *testing.T) {
	content, err := os.ReadFile(filepath.Join("testdata", "document.txt"))
	require.NoError(t, err)

	stdout, _, err := executeCommand(t, "run",
		"--analysis", filepath.Join("testdata", "analysis.json"),
		"--document", filepath.Join("testdata", "document.txt"),
		"--user-id", "user-1",
		"--step", "ANALYZE_COMPLETED")
	require.NoError(t, err)

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, dochash.Compute(content), summary.DocHash)
	require.Len(t, summary.Results, 1)
	assert.True(t, summary.Results[0].Success)
	assert.False(t, summary.Complete)
}

func TestRunCommand_MissingPersonsBlocksSimulation(t *testing.T) {
	stdout, _, err := executeCommand(t, "run",
		"--analysis", filepath.Join("testdata", "analysis_no_persons.yaml"),
		"--doc-hash", testDocHash,
		"--user-id", "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SIMULATION_DONE")
	assert.Contains(t, err.Error(), "GUARD_BLOCKED")

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.False(t, summary.Complete)
	last := summary.Results[len(summary.Results)-1]
	assert.Equal(t, types.StepSimulationDone, last.Step)
	assert.Equal(t, types.JobStatusWaitingInput, last.Status)
	assert.Contains(t, last.Missing, "persons")
}

func TestRunCommand_Validation(t *testing.T) {
	analysis := filepath.Join("testdata", "analysis.json")
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no hash", []string{"run", "--analysis", analysis}, "--doc-hash or --document"},
		{"bad hash", []string{"run", "--analysis", analysis, "--doc-hash", "XYZ"}, "invalid doc hash"},
		{"bad step", []string{"run", "--analysis", analysis, "--doc-hash", testDocHash, "--step", "PUBLISHED"}, "unknown step"},
		{"missing analysis file", []string{"run", "--analysis", "testdata/none.json", "--doc-hash", testDocHash}, "failed to read"},
		{"missing analysis flag", []string{"run", "--doc-hash", testDocHash}, "required flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBatchCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "batch", "--manifest", filepath.Join("testdata", "batch.yaml"), "-c", "2")
	require.NoError(t, err)

	var summary []BatchSummaryEntry
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	require.Len(t, summary, 2)
	for _, entry := range summary {
		assert.True(t, entry.Complete, entry.Error)
		assert.Len(t, entry.Results, len(types.OrderedSteps))
	}
	assert.Equal(t, strings.Repeat("0f", 32), summary[1].DocHash)
}

func TestBatchCommand_EmptyManifest(t *testing.T) {
	path := writeTempFile(t, "empty.yaml", "documents: []\n")

	_, _, err := executeCommand(t, "batch", "--manifest", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lists no documents")
}

func TestStatusAndMigrate_RequireDatabase(t *testing.T) {
	_, _, err := executeCommand(t, "status", "--doc-hash", testDocHash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL not set")

	_, _, err = executeCommand(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL not set")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	path := writeTempFile(t, "tender.yaml", "cost_band_min: 2.0\n")

	_, _, err := executeCommand(t, "simulate", "--config", path, "--input", filepath.Join("testdata", "scenario_a.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cost_band_min")
}
