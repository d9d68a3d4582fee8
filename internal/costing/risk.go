package costing

import "github.com/aydarnuman/ProCheff-New-sub000/internal/types"

// Risk scoring limits
const (
	riskPersonsLimit    = 1000
	riskDurationLimit   = 365
	riskConfidenceFloor = 0.7
)

// Percentages by risk tier
const (
	OverheadPct         = 12.0
	HighRiskOverheadPct = 18.0
	MaintenancePct      = 1.5
)

var profitPct = map[types.RiskTier]float64{
	types.RiskTierCompetitive: 8,
	types.RiskTierStandard:    12,
	types.RiskTierHighRisk:    15,
}

// AssessRisk scores the service profile: one point each for a large head
// count, a multi-year contract and low extraction confidence.
func AssessRisk(persons, durationDays int, confidence float64) types.RiskAssessment {
	var factors []string
	if persons > riskPersonsLimit {
		factors = append(factors, "persons")
	}
	if durationDays > riskDurationLimit {
		factors = append(factors, "duration_days")
	}
	if confidence < riskConfidenceFloor {
		factors = append(factors, "confidence")
	}

	tier := types.RiskTierCompetitive
	switch len(factors) {
	case 0:
	case 1:
		tier = types.RiskTierStandard
	default:
		tier = types.RiskTierHighRisk
	}
	return types.RiskAssessment{Score: len(factors), Tier: tier, Factors: factors}
}

// ProfitPct returns the profit margin percentage for a tier
func ProfitPct(tier types.RiskTier) float64 {
	return profitPct[tier]
}

// OverheadPctFor returns the overhead percentage for a tier
func OverheadPctFor(tier types.RiskTier) float64 {
	if tier == types.RiskTierHighRisk {
		return HighRiskOverheadPct
	}
	return OverheadPct
}
