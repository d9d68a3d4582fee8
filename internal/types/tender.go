package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentMetadata is the typed view of the analysis data produced upstream
type DocumentMetadata struct {
	Title              string        `json:"title,omitempty"`
	Institution        string        `json:"institution,omitempty"`
	Location           string        `json:"location,omitempty"`
	PersonCount        int           `json:"personCount"`
	EstimatedValue     float64       `json:"estimatedValue,omitempty"`
	OfferPrice         float64       `json:"offerPrice,omitempty"` // intended bid price, if the bidder has one
	MealTypes          []string      `json:"mealTypes,omitempty"`
	MealsPerDay        int           `json:"mealsPerDay,omitempty"`
	ServiceDays        int           `json:"serviceDays,omitempty"` // contract duration in days
	ServiceDaysPerWeek int           `json:"serviceDaysPerWeek,omitempty"`
	PortionSizes       []PortionSize `json:"portionSizes,omitempty"`
	Requirements       []string      `json:"requirements,omitempty"`
	Confidence         float64       `json:"confidence,omitempty"`
}

// PortionSize is one extracted portion rule from the technical specification
type PortionSize struct {
	Category        string   `json:"category"`
	Grams           float64  `json:"grams"`
	PricePerKg      float64  `json:"pricePerKg,omitempty"`
	WastePercentage *float64 `json:"wastePercentage,omitempty"`
}

// ParseDocumentMetadata decodes raw analysis data into DocumentMetadata
func ParseDocumentMetadata(data map[string]any) (*DocumentMetadata, error) {
	if len(data) == 0 {
		return &DocumentMetadata{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis data: %w", err)
	}
	var meta DocumentMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode analysis data: %w", err)
	}
	return &meta, nil
}

// Tender is the persisted tender record
type Tender struct {
	ID                 uuid.UUID `json:"id"`
	DocHash            string    `json:"doc_hash"`
	UserID             string    `json:"user_id"`
	Title              string    `json:"title"`
	Institution        string    `json:"institution,omitempty"`
	Location           string    `json:"location,omitempty"`
	PersonCount        int       `json:"person_count"`
	MealsPerDay        int       `json:"meals_per_day"`
	DurationDays       int       `json:"duration_days"`
	ServiceDaysPerWeek int       `json:"service_days_per_week"`
	EstimatedValue     float64   `json:"estimated_value"`
	MealTypes          []string  `json:"meal_types,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Tender status constants
const (
	TenderStatusDraft     = "draft"
	TenderStatusAnalyzed  = "analyzed"
	TenderStatusSimulated = "simulated"
	TenderStatusOffered   = "offered"
)

// Facts is the merged view of the current analysis data and the persisted tender.
// Values from the current analysis win when they are set.
type Facts struct {
	Title              string
	Institution        string
	Location           string
	PersonCount        int
	MealsPerDay        int
	MealTypes          []string
	DurationDays       int
	ServiceDaysPerWeek int
	EstimatedValue     float64
	OfferPrice         float64
	PortionSizes       []PortionSize
	Requirements       []string
	Confidence         float64
}

// MergeFacts combines analysis metadata with a persisted tender; either may be nil
func MergeFacts(meta *DocumentMetadata, tender *Tender) Facts {
	var f Facts
	if tender != nil {
		f.Title = tender.Title
		f.Institution = tender.Institution
		f.Location = tender.Location
		f.PersonCount = tender.PersonCount
		f.MealsPerDay = tender.MealsPerDay
		f.MealTypes = tender.MealTypes
		f.DurationDays = tender.DurationDays
		f.ServiceDaysPerWeek = tender.ServiceDaysPerWeek
		f.EstimatedValue = tender.EstimatedValue
	}
	if meta == nil {
		return f
	}

	if strings.TrimSpace(meta.Title) != "" {
		f.Title = meta.Title
	}
	if strings.TrimSpace(meta.Institution) != "" {
		f.Institution = meta.Institution
	}
	if strings.TrimSpace(meta.Location) != "" {
		f.Location = meta.Location
	}
	if meta.PersonCount > 0 {
		f.PersonCount = meta.PersonCount
	}
	if len(meta.MealTypes) > 0 {
		f.MealTypes = meta.MealTypes
	}
	switch {
	case meta.MealsPerDay > 0:
		f.MealsPerDay = meta.MealsPerDay
	case len(meta.MealTypes) > 0:
		f.MealsPerDay = len(meta.MealTypes)
	}
	if meta.ServiceDays > 0 {
		f.DurationDays = meta.ServiceDays
	}
	if meta.ServiceDaysPerWeek > 0 {
		f.ServiceDaysPerWeek = meta.ServiceDaysPerWeek
	}
	if meta.EstimatedValue > 0 {
		f.EstimatedValue = meta.EstimatedValue
	}
	f.OfferPrice = meta.OfferPrice
	f.PortionSizes = meta.PortionSizes
	f.Requirements = meta.Requirements
	f.Confidence = meta.Confidence
	return f
}

// ChecklistItem is one generated compliance checklist entry for a tender
type ChecklistItem struct {
	ID        uuid.UUID `json:"id"`
	TenderID  uuid.UUID `json:"tender_id"`
	DocHash   string    `json:"doc_hash"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Required  bool      `json:"required"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Offer is the drafted bid derived from a simulation
type Offer struct {
	ID                  uuid.UUID   `json:"id"`
	TenderID            uuid.UUID   `json:"tender_id"`
	DocHash             string      `json:"doc_hash"`
	SimulationID        uuid.UUID   `json:"simulation_id"`
	OfferPrice          float64     `json:"offer_price"`
	ProjectTotal        float64     `json:"project_total"`
	ProfitMargin        float64     `json:"profit_margin"`
	RiskLevel           RiskLevel   `json:"risk_level"`
	ExplanationRequired bool        `json:"explanation_required"`
	ValidUntil          time.Time   `json:"valid_until"`
	Lines               []OfferLine `json:"lines"`
	CreatedAt           time.Time   `json:"created_at"`
}

// OfferLine is one priced line of a drafted offer
type OfferLine struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}
