package types

// RiskLevel is the abnormally-low-bid severity tier
type RiskLevel string

// RiskLevel constants
const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// Severity orders risk levels so that higher means more severe
func (r RiskLevel) Severity() int {
	switch r {
	case RiskLevelHigh:
		return 2
	case RiskLevelMedium:
		return 1
	default:
		return 0
	}
}

// ThresholdResult is the legal ADT threshold computation
type ThresholdResult struct {
	Threshold float64 `json:"threshold"`
	KFactor   float64 `json:"k_factor"`
	BaseValue float64 `json:"base_value"`
}

// ADTStatus classifies a price against a threshold
type ADTStatus struct {
	IsADT               bool      `json:"is_adt"`
	ExplanationRequired bool      `json:"explanation_required"`
	RiskLevel           RiskLevel `json:"risk_level"`
	DeviationPercentage float64   `json:"deviation_percentage"`
	Ratio               float64   `json:"ratio"`
}

// KIKAnalysis is the compliance verdict attached to every simulation
type KIKAnalysis struct {
	Threshold           float64    `json:"threshold"`
	KFactor             float64    `json:"k_factor"`
	BaseValue           float64    `json:"base_value"`
	IsADT               bool       `json:"is_adt"`
	ExplanationRequired bool       `json:"explanation_required"`
	RiskLevel           RiskLevel  `json:"risk_level"`
	DeviationPercentage float64    `json:"deviation_percentage"`
	AuditTrail          AuditTrail `json:"audit_trail"`
}

// AuditTrail records everything needed to reproduce a compliance verdict
type AuditTrail struct {
	SchemaVersion string             `json:"schema_version"`
	Timestamp     string             `json:"timestamp"`
	Formulas      map[string]string  `json:"formulas"`
	Inputs        map[string]float64 `json:"inputs"`
	Intermediate  map[string]float64 `json:"intermediate"`
	Fingerprint   string             `json:"fingerprint"`
}

// CitationType classifies an evidence citation
type CitationType string

// CitationType constants
const (
	CitationPriceList  CitationType = "PRICE_LIST"
	CitationRegulation CitationType = "REGULATION"
	CitationBenchmark  CitationType = "BENCHMARK"
	CitationContract   CitationType = "CONTRACT"
)

// EvidenceCitation is one cited source backing a justification
type EvidenceCitation struct {
	ID        string       `json:"id"`
	Type      CitationType `json:"type"`
	Title     string       `json:"title"`
	Reference string       `json:"reference"`
}

// EvidenceRecord is one quantitative evidence entry
type EvidenceRecord struct {
	Source             string  `json:"source"`
	Date               string  `json:"date"`
	PricePerUnit       float64 `json:"price_per_unit"`
	Unit               string  `json:"unit"`
	VerificationMethod string  `json:"verification_method"`
}

// JustificationBlock justifies one cost category
type JustificationBlock struct {
	Category          string           `json:"category"`
	Amount            float64          `json:"amount"`
	ShareOfBase       float64          `json:"share_of_base"`
	CalculationMethod string           `json:"calculation_method"`
	DataSources       []string         `json:"data_sources"`
	Evidence          []EvidenceRecord `json:"evidence"`
}

// ADTExplanation is the formal abnormally-low-bid justification document
type ADTExplanation struct {
	Price               float64              `json:"price"`
	Threshold           float64              `json:"threshold"`
	RiskLevel           RiskLevel            `json:"risk_level"`
	Justifications      []JustificationBlock `json:"justifications"`
	Citations           []EvidenceCitation   `json:"citations"`
	ComplianceStatement string               `json:"compliance_statement"`
	MitigationMeasures  []string             `json:"mitigation_measures"`
	AuditTrail          AuditTrail           `json:"audit_trail"`
}
