// Package costing implements the deterministic cost simulation for catering
// tenders: material, labor, overhead and maintenance, risk-tiered profit, and
// the project total invariant.
package costing

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/compliance"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/money"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// Input defaults
const (
	DefaultWastePercentage    = 6.0
	DefaultServiceDaysPerWeek = 7
	DefaultConfidence         = 0.8
	confidenceNudge           = 0.05
	maintenanceAfterDays      = 365
)

// Engine runs cost simulations
type Engine struct {
	analyzer *compliance.Analyzer
	validate *validator.Validate
	clock    func() time.Time
	logger   *zap.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the clock used when an input carries no AsOf time
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a simulation engine. A nil analyzer gets the default one.
func NewEngine(analyzer *compliance.Analyzer, opts ...Option) *Engine {
	if analyzer == nil {
		analyzer = compliance.NewAnalyzer()
	}
	e := &Engine{
		analyzer: analyzer,
		validate: newValidator(),
		clock:    time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyzer returns the compliance analyzer used for the KİK verdict
func (e *Engine) Analyzer() *compliance.Analyzer {
	return e.analyzer
}

// Simulate computes the full cost breakdown, recommended price and KİK
// verdict for a service profile. It performs no I/O; given input.AsOf the
// output is fully deterministic.
func (e *Engine) Simulate(input types.SimulationInput) (*types.SimulationOutput, error) {
	if err := e.validateInput(&input); err != nil {
		return nil, err
	}
	input = cloneInput(input)

	sdpw := input.ServiceDaysPerWeek
	if sdpw == 0 {
		sdpw = DefaultServiceDaysPerWeek
	}
	// kept exact; only the money derived from it is rounded
	serviceDays := decimal.NewFromInt(int64(input.DurationDays)).
		Mul(decimal.NewFromInt(int64(sdpw))).
		Div(decimal.NewFromInt(7))

	baseConfidence := DefaultConfidence
	if input.Confidence != nil {
		baseConfidence = *input.Confidence
	}

	staffing := input.Staffing
	if len(staffing) == 0 {
		staffing = DeriveStaffing(input.Persons)
	}
	effective := make([]types.StaffingSpec, 0, len(staffing))
	for _, s := range staffing {
		effective = append(effective, withDefaults(s))
	}

	material := materialCost(input, serviceDays)
	labor := laborCost(effective, input.Persons, serviceDays)

	risk := AssessRisk(input.Persons, input.DurationDays, baseConfidence)
	overheadPct := OverheadPctFor(risk.Tier)
	overhead := percentOf(material, labor, overheadPct, input.Persons)
	overhead.Details = map[string]float64{"rate_pct": overheadPct}

	var maintenance *types.CostBreakdown
	if input.DurationDays > maintenanceAfterDays {
		m := percentOf(material, labor, MaintenancePct, input.Persons)
		m.Details = map[string]float64{"rate_pct": MaintenancePct}
		maintenance = &m
	}

	out := &types.SimulationOutput{
		Material:     material,
		Labor:        labor,
		Overhead:     overhead,
		Maintenance:  maintenance,
		OverheadPct:  overheadPct,
		ServiceDays:  serviceDays.InexactFloat64(),
		Staffing:     effective,
		Risk:         risk,
		Confidence:   adjustConfidence(baseConfidence, input),
		CalculatedAt: e.calculatedAt(input),
		Input:        input,
	}
	out.ProjectTotal = money.Sum(material.Total, labor.Total, overhead.Total, out.MaintenanceTotal())
	out.ProfitMarginPct = ProfitPct(risk.Tier)
	out.ProfitMargin = money.Percent(out.ProjectTotal, out.ProfitMarginPct)
	out.RecommendedPrice = money.Sum(out.ProjectTotal, out.ProfitMargin)

	if err := e.CheckProjectTotal(out); err != nil {
		return nil, err
	}

	kik, err := e.analyzer.Analyze(out)
	if err != nil {
		return nil, err
	}
	out.KIKAnalysis = kik

	return out, nil
}

// CheckProjectTotal enforces project_total == material + labor + overhead +
// maintenance within money.Tolerance. A violation is logged as critical.
func (e *Engine) CheckProjectTotal(out *types.SimulationOutput) error {
	if err := CheckProjectTotal(out); err != nil {
		e.logger.Error("project total invariant violated",
			zap.String("severity", "critical"),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// CheckProjectTotal verifies the additive cost invariant of a simulation output
func CheckProjectTotal(out *types.SimulationOutput) error {
	sum := money.Sum(out.Material.Total, out.Labor.Total, out.Overhead.Total, out.MaintenanceTotal())
	if money.Equal(out.ProjectTotal, sum) {
		return nil
	}
	return &PTMismatchError{
		ProjectTotal: out.ProjectTotal,
		ComponentSum: sum,
		Difference:   money.Sum(out.ProjectTotal, -sum),
	}
}

func (e *Engine) calculatedAt(input types.SimulationInput) time.Time {
	if input.AsOf != nil && !input.AsOf.IsZero() {
		return input.AsOf.UTC()
	}
	return e.clock().UTC()
}

func materialCost(input types.SimulationInput, serviceDays decimal.Decimal) types.CostBreakdown {
	details := make(map[string]float64, len(input.PortionSpecs))
	dailies := make([]float64, 0, len(input.PortionSpecs))
	for _, spec := range input.PortionSpecs {
		waste := DefaultWastePercentage
		if spec.WastePercentage != nil {
			waste = *spec.WastePercentage
		}
		costPerPortion := decimal.NewFromFloat(spec.GramPerPortion).
			Div(decimal.NewFromInt(1000)).
			Mul(decimal.NewFromFloat(spec.MarketPricePerKg))
		daily := decimal.NewFromInt(int64(input.Persons)).
			Mul(decimal.NewFromInt(int64(input.MealsPerDay))).
			Mul(costPerPortion).
			Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(waste).Div(decimal.NewFromInt(100)))).
			Round(2).InexactFloat64()

		details[spec.Category] = money.Sum(details[spec.Category], daily)
		dailies = append(dailies, daily)
	}
	return breakdown(money.Sum(dailies...), serviceDays, input.Persons, details)
}

func laborCost(staffing []types.StaffingSpec, persons int, serviceDays decimal.Decimal) types.CostBreakdown {
	details := make(map[string]float64, len(staffing))
	dailies := make([]float64, 0, len(staffing))
	for _, s := range staffing {
		daily := money.Mul(float64(s.Count), s.HoursPerDay, s.HourlyWage, *s.ShiftMultiplier, *s.BenefitsMultiplier)
		details[s.Role] = money.Sum(details[s.Role], daily)
		dailies = append(dailies, daily)
	}
	return breakdown(money.Sum(dailies...), serviceDays, persons, details)
}

func percentOf(material, labor types.CostBreakdown, pct float64, persons int) types.CostBreakdown {
	daily := money.Percent(money.Sum(material.Daily, labor.Daily), pct)
	total := money.Percent(money.Sum(material.Total, labor.Total), pct)
	return types.CostBreakdown{
		Daily:     daily,
		Total:     total,
		PerPerson: money.Div(total, float64(persons)),
	}
}

func breakdown(daily float64, serviceDays decimal.Decimal, persons int, details map[string]float64) types.CostBreakdown {
	total := decimal.NewFromFloat(daily).Mul(serviceDays).Round(2).InexactFloat64()
	return types.CostBreakdown{
		Daily:     daily,
		Total:     total,
		PerPerson: money.Div(total, float64(persons)),
		Details:   details,
	}
}

func adjustConfidence(base float64, input types.SimulationInput) float64 {
	c := decimal.NewFromFloat(base)
	nudge := decimal.NewFromFloat(confidenceNudge)

	if len(input.Staffing) > 0 {
		c = c.Add(nudge)
	}
	categories := make(map[string]struct{}, len(input.PortionSpecs))
	for _, spec := range input.PortionSpecs {
		categories[spec.Category] = struct{}{}
	}
	if len(categories) >= 3 {
		c = c.Add(nudge)
	}
	if input.Location != "" {
		c = c.Add(nudge)
	}
	if c.GreaterThan(decimal.NewFromInt(1)) {
		c = decimal.NewFromInt(1)
	}
	return c.Round(4).InexactFloat64()
}

func cloneInput(in types.SimulationInput) types.SimulationInput {
	out := in
	out.PortionSpecs = append([]types.PortionSpec(nil), in.PortionSpecs...)
	if in.Staffing != nil {
		out.Staffing = append([]types.StaffingSpec(nil), in.Staffing...)
	}
	if in.AsOf != nil {
		t := in.AsOf.UTC()
		out.AsOf = &t
	}
	return out
}
