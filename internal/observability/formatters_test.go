package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

func sampleOutput() *types.SimulationOutput {
	return &types.SimulationOutput{
		Input:            types.SimulationInput{Persons: 500, MealsPerDay: 3, DurationDays: 365},
		ServiceDays:      365,
		Material:         types.CostBreakdown{Daily: 14310, Total: 5223150},
		Labor:            types.CostBreakdown{Daily: 20000, Total: 7300000},
		Overhead:         types.CostBreakdown{Total: 1842899.6},
		ProjectTotal:     14366049.6,
		RecommendedPrice: 15515333.57,
		ProfitMarginPct:  8,
		OverheadPct:      15,
		Risk: types.RiskAssessment{
			Score:   3,
			Tier:    types.RiskTierStandard,
			Factors: []string{"a", "b", "c", "d", "e", "f", "g"},
		},
		KIKAnalysis: types.KIKAnalysis{
			Threshold: 12000000,
			KFactor:   1.2,
			RiskLevel: types.RiskLevelLow,
			AuditTrail: types.AuditTrail{
				Fingerprint: "abc123",
			},
		},
		Confidence: 0.85,
	}
}

func TestPrintSimulation(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSimulation(sampleOutput())
	output := buf.String()

	assert.Contains(t, output, "COST SIMULATION")
	assert.Contains(t, output, "14366049.60 TL")
	assert.Contains(t, output, "15515333.57 TL")
	assert.Contains(t, output, "standard")
	assert.Contains(t, output, "... and 2 more")
	assert.Contains(t, output, "KİK THRESHOLD ANALYSIS")
	assert.Contains(t, output, "abc123")
	assert.NotContains(t, output, "Maintenance")
}

func TestPrintSimulation_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSimulation(nil)

	assert.Empty(t, buf.String())
}

func TestPrintADTStatus(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintADTStatus(900, 1000, &types.ADTStatus{
		IsADT:               true,
		ExplanationRequired: true,
		RiskLevel:           types.RiskLevelHigh,
		DeviationPercentage: 10,
		Ratio:               0.9,
	})
	output := buf.String()

	assert.Contains(t, output, "ADT CHECK")
	assert.Contains(t, output, "900.00 TL")
	assert.Contains(t, output, "HIGH")
	assert.Contains(t, output, "yes")
}

func TestPrintExplanation(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintExplanation(&types.ADTExplanation{
		Price:     900,
		Threshold: 1000,
		RiskLevel: types.RiskLevelHigh,
		Justifications: []types.JustificationBlock{
			{Category: "Malzeme", Amount: 500, ShareOfBase: 0.5, CalculationMethod: "gramaj x fiyat"},
		},
		Citations:          []types.EvidenceCitation{{ID: "C1", Title: "Kamu İhale Kanunu"}},
		MitigationMeasures: []string{"toplu alım"},
	})
	output := buf.String()

	assert.Contains(t, output, "ADT EXPLANATION")
	assert.Contains(t, output, "Malzeme: 500.00 TL (50.0% of base)")
	assert.Contains(t, output, "[C1] Kamu İhale Kanunu")
	assert.Contains(t, output, "toplu alım")
}

func TestPrintGuardEvaluation(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintGuardEvaluation(&types.GuardEvaluation{
		Step:              types.StepSimulationDone,
		OverallConfidence: 0.5,
		Blockers:          []types.GuardResult{{Name: "persons", Message: "person count missing"}},
		Passed:            []types.GuardResult{{Name: "tender_exists"}},
		Missing:           []string{"persons"},
	})
	output := buf.String()

	assert.Contains(t, output, "SIMULATION_DONE")
	assert.Contains(t, output, "✗ persons: person count missing")
	assert.Contains(t, output, "✓ tender_exists")
	assert.Contains(t, output, "Missing:      persons")
}

func TestPrintJobResults(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintJobResults([]*types.JobResult{
		{Success: true, Step: types.StepAnalyzeCompleted, Status: types.JobStatusCompleted, Duration: 12 * time.Millisecond},
		{Step: types.StepSimulationDone, Status: types.JobStatusWaitingInput, ErrorCode: "GUARD_BLOCKED", Error: "blocked", Missing: []string{"persons"}},
	})
	output := buf.String()

	assert.Contains(t, output, "PIPELINE STEPS")
	assert.Contains(t, output, "✓ ANALYZE_COMPLETED")
	assert.Contains(t, output, "12ms")
	assert.Contains(t, output, "GUARD_BLOCKED: blocked")
	assert.Contains(t, output, "missing: persons")
}

func TestPrintJobResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintJobResults(nil)
	assert.Empty(t, buf.String())
}

func TestPrintJobs(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	msg := "2 retries left"
	p.PrintJobs(strings.Repeat("ab", 32), []types.PipelineJob{
		{Step: types.StepAnalyzeCompleted, Status: types.JobStatusCompleted, MaxRetries: 3},
		{Step: types.StepTenderUpserted, Status: types.JobStatusFailed, RetryCount: 1, MaxRetries: 3, ErrorMessage: &msg},
	})
	output := buf.String()

	assert.Contains(t, output, "PIPELINE STATUS")
	assert.Contains(t, output, "retries 1/3")
	assert.Contains(t, output, "2 retries left")
	assert.Contains(t, output, "ababababababababababa...")
}

func TestPrintBox_TruncatesByRune(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("T", strings.Repeat("ğ", 200))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)), line)
	}
}
