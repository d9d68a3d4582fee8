package types

import (
	"time"

	"github.com/google/uuid"
)

// SimulationInput is the service profile fed to the cost engine
type SimulationInput struct {
	Persons            int            `json:"persons" validate:"gt=0"`
	MealsPerDay        int            `json:"meals_per_day" validate:"gt=0"`
	DurationDays       int            `json:"duration_days" validate:"gt=0"`
	PortionSpecs       []PortionSpec  `json:"portion_specs" validate:"required,min=1,dive"`
	Staffing           []StaffingSpec `json:"staffing,omitempty" validate:"omitempty,dive"`
	ServiceDaysPerWeek int            `json:"service_days_per_week,omitempty" validate:"gte=0,lte=7"`
	Confidence         *float64       `json:"confidence,omitempty" validate:"omitempty,finite,gte=0,lte=1"`
	Location           string         `json:"location,omitempty"`
	AsOf               *time.Time     `json:"as_of,omitempty"`
}

// PortionSpec describes one menu category
type PortionSpec struct {
	Category         string   `json:"category" validate:"required"`
	GramPerPortion   float64  `json:"gram_per_portion" validate:"finite,gt=0"`
	MarketPricePerKg float64  `json:"market_price_per_kg" validate:"finite,gte=0"`
	WastePercentage  *float64 `json:"waste_percentage,omitempty" validate:"omitempty,finite,gte=0,lt=100"`
	PriceSource      string   `json:"price_source,omitempty"`
}

// StaffingSpec describes one staff role
type StaffingSpec struct {
	Role               string   `json:"role" validate:"required"`
	Count              int      `json:"count" validate:"gt=0"`
	HoursPerDay        float64  `json:"hours_per_day" validate:"finite,gt=0,lte=24"`
	HourlyWage         float64  `json:"hourly_wage" validate:"finite,gte=0"`
	ShiftMultiplier    *float64 `json:"shift_multiplier,omitempty" validate:"omitempty,finite,gt=0"`
	BenefitsMultiplier *float64 `json:"benefits_multiplier,omitempty" validate:"omitempty,finite,gt=0"`
}

// CostBreakdown is one cost bucket of a simulation
type CostBreakdown struct {
	Daily     float64            `json:"daily"`
	Total     float64            `json:"total"`
	PerPerson float64            `json:"per_person"`
	Details   map[string]float64 `json:"details"`
}

// RiskTier drives the overhead and profit percentages
type RiskTier string

// RiskTier constants
const (
	RiskTierCompetitive RiskTier = "competitive"
	RiskTierStandard    RiskTier = "standard"
	RiskTierHighRisk    RiskTier = "high_risk"
)

// RiskAssessment is the scored risk profile of a service input
type RiskAssessment struct {
	Score   int      `json:"score"`
	Tier    RiskTier `json:"tier"`
	Factors []string `json:"factors,omitempty"`
}

// SimulationOutput is the full result of a cost simulation
type SimulationOutput struct {
	Material         CostBreakdown   `json:"material"`
	Labor            CostBreakdown   `json:"labor"`
	Overhead         CostBreakdown   `json:"overhead"`
	Maintenance      *CostBreakdown  `json:"maintenance,omitempty"`
	ProjectTotal     float64         `json:"project_total"`
	ProfitMargin     float64         `json:"profit_margin"`
	ProfitMarginPct  float64         `json:"profit_margin_pct"`
	OverheadPct      float64         `json:"overhead_pct"`
	RecommendedPrice float64         `json:"recommended_price"`
	ServiceDays      float64         `json:"service_days"`
	Staffing         []StaffingSpec  `json:"staffing"`
	Risk             RiskAssessment  `json:"risk"`
	KIKAnalysis      KIKAnalysis     `json:"kik_analysis"`
	Confidence       float64         `json:"confidence"`
	CalculatedAt     time.Time       `json:"calculated_at"`
	Input            SimulationInput `json:"input"`
}

// MaintenanceTotal returns the maintenance total or zero when not applicable
func (o *SimulationOutput) MaintenanceTotal() float64 {
	if o.Maintenance == nil {
		return 0
	}
	return o.Maintenance.Total
}

// SimulationRecord is a persisted simulation for a tender
type SimulationRecord struct {
	ID          uuid.UUID        `json:"id"`
	TenderID    uuid.UUID        `json:"tender_id"`
	DocHash     string           `json:"doc_hash"`
	Output      SimulationOutput `json:"output"`
	Explanation *ADTExplanation  `json:"explanation,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}
