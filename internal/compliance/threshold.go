// Package compliance implements the abnormally-low-bid (ADT) analysis of the
// KİK regulatory framework: threshold calculation, risk tiering, and the
// justification document with its audit trail.
package compliance

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/money"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// KFactor is the regulatory multiplier for catering service tenders
const KFactor = 0.93

// Ratio boundaries for the risk tiers
const (
	HighRiskRatio   = 0.85
	MediumRiskRatio = 0.95
)

// Analyzer evaluates simulations against the ADT threshold
type Analyzer struct {
	kFactor float64
}

// NewAnalyzer creates an analyzer using the fixed legal k-factor
func NewAnalyzer() *Analyzer {
	return &Analyzer{kFactor: KFactor}
}

// KFactor returns the multiplier used by the analyzer
func (a *Analyzer) KFactor() float64 {
	return a.kFactor
}

// CalculateThreshold computes threshold = k_factor * (material + labor + overhead).
// Maintenance is excluded from the base by regulation.
func (a *Analyzer) CalculateThreshold(out *types.SimulationOutput) (types.ThresholdResult, error) {
	if out == nil {
		return types.ThresholdResult{}, &ConfigError{Field: "simulation", Message: "simulation output is nil"}
	}
	base := money.Sum(out.Material.Total, out.Labor.Total, out.Overhead.Total)
	return types.ThresholdResult{
		Threshold: money.Mul(a.kFactor, base),
		KFactor:   a.kFactor,
		BaseValue: base,
	}, nil
}

// CheckStatus classifies price against threshold
func (a *Analyzer) CheckStatus(price, threshold float64) (types.ADTStatus, error) {
	return CheckStatus(price, threshold)
}

// CheckStatus classifies price against threshold. A non-positive threshold is
// a configuration error since the ratio is undefined.
func CheckStatus(price, threshold float64) (types.ADTStatus, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold <= 0 {
		return types.ADTStatus{}, &ConfigError{Field: "threshold", Message: "threshold must be a positive number"}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return types.ADTStatus{}, &ConfigError{Field: "price", Message: "price must be a non-negative number"}
	}

	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(threshold)

	level := types.RiskLevelLow
	switch {
	case p.LessThan(t.Mul(decimal.NewFromFloat(HighRiskRatio))):
		level = types.RiskLevelHigh
	case p.LessThan(t.Mul(decimal.NewFromFloat(MediumRiskRatio))):
		level = types.RiskLevelMedium
	}

	below := p.LessThan(t)
	deviation := t.Sub(p).Div(t).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()

	return types.ADTStatus{
		IsADT:               below,
		ExplanationRequired: below,
		RiskLevel:           level,
		DeviationPercentage: deviation,
		Ratio:               p.Div(t).Round(4).InexactFloat64(),
	}, nil
}

// Analyze computes the full KİK verdict for the simulation's recommended price
func (a *Analyzer) Analyze(out *types.SimulationOutput) (types.KIKAnalysis, error) {
	th, err := a.CalculateThreshold(out)
	if err != nil {
		return types.KIKAnalysis{}, err
	}
	status, err := CheckStatus(out.RecommendedPrice, th.Threshold)
	if err != nil {
		return types.KIKAnalysis{}, err
	}
	return types.KIKAnalysis{
		Threshold:           th.Threshold,
		KFactor:             th.KFactor,
		BaseValue:           th.BaseValue,
		IsADT:               status.IsADT,
		ExplanationRequired: status.ExplanationRequired,
		RiskLevel:           status.RiskLevel,
		DeviationPercentage: status.DeviationPercentage,
		AuditTrail:          BuildAuditTrail(out, th, status, out.RecommendedPrice),
	}, nil
}

// RequiresFullJustification reports whether a verdict forces generation of
// the full justification document.
func RequiresFullJustification(k types.KIKAnalysis) bool {
	return k.ExplanationRequired && k.RiskLevel.Severity() >= types.RiskLevelMedium.Severity()
}
