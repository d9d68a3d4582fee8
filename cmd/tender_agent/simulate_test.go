package main

import (
	"encoding/json"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

func TestSimulateCommand_JSONInput(t *testing.T) {
	stdout, _, err := executeCommand(t, "simulate", "--input", filepath.Join("testdata", "scenario_a.json"))
	require.NoError(t, err)

	var out types.SimulationOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 14310.0, out.Material.Daily)
	assert.Equal(t, 14366049.6, out.ProjectTotal)
	assert.Equal(t, 15515333.57, out.RecommendedPrice)
	assert.Equal(t, types.RiskLevelLow, out.KIKAnalysis.RiskLevel)
}

func TestSimulateCommand_YAMLInputAndOutput(t *testing.T) {
	stdout, _, err := executeCommand(t, "simulate",
		"--input", filepath.Join("testdata", "scenario_a.yaml"),
		"--output", "yaml")
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 14366049.6, out["project_total"])
	assert.Equal(t, 15515333.57, out["recommended_price"])
	assert.Contains(t, out, "kik_analysis")
}

func TestSimulateCommand_Verbose(t *testing.T) {
	_, stderr, err := executeCommand(t, "simulate", "-v", "--input", filepath.Join("testdata", "scenario_a.yaml"))
	require.NoError(t, err)

	assert.Contains(t, stderr, "COST SIMULATION")
	assert.Contains(t, stderr, "KİK THRESHOLD ANALYSIS")
}

func TestSimulateCommand_InvalidInput(t *testing.T) {
	path := writeTempFile(t, "bad.json", `{"persons": 0, "meals_per_day": 3, "duration_days": 10, "portion_specs": []}`)

	_, _, err := executeCommand(t, "simulate", "--input", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid simulation input")
}

func TestSimulateCommand_UnknownOutputFormat(t *testing.T) {
	_, _, err := executeCommand(t, "simulate", "--input", filepath.Join("testdata", "scenario_a.json"), "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestSimulateCommand_MissingInputFlag(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := getBinaryPath(t)
	cmd := exec.Command(binaryPath, "simulate")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required")
}
