package compliance

import (
	"fmt"
	"sort"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/money"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// Citation identifiers referenced by justification blocks
const (
	CitationLaw       = "C1"
	CitationPrices    = "C2"
	CitationWages     = "C3"
	CitationSpecifics = "C4"
)

const defaultPriceSource = "market price list"

// GenerateExplanation builds the formal justification document for the
// simulation's recommended price.
func (a *Analyzer) GenerateExplanation(out *types.SimulationOutput) (*types.ADTExplanation, error) {
	if out == nil {
		return nil, &ConfigError{Field: "simulation", Message: "simulation output is nil"}
	}
	return a.GenerateExplanationForPrice(out, out.RecommendedPrice)
}

// GenerateExplanationForPrice builds the justification document for an
// arbitrary bid price against the simulation's cost base.
func (a *Analyzer) GenerateExplanationForPrice(out *types.SimulationOutput, price float64) (*types.ADTExplanation, error) {
	th, err := a.CalculateThreshold(out)
	if err != nil {
		return nil, err
	}
	status, err := CheckStatus(price, th.Threshold)
	if err != nil {
		return nil, err
	}

	return &types.ADTExplanation{
		Price:               price,
		Threshold:           th.Threshold,
		RiskLevel:           status.RiskLevel,
		Justifications:      justifications(out, th.BaseValue),
		Citations:           citations(),
		ComplianceStatement: complianceStatement(price, th.Threshold, status),
		MitigationMeasures:  mitigationMeasures(status.RiskLevel),
		AuditTrail:          BuildAuditTrail(out, th, status, price),
	}, nil
}

func citations() []types.EvidenceCitation {
	return []types.EvidenceCitation{
		{
			ID:        CitationLaw,
			Type:      types.CitationRegulation,
			Title:     "Kamu İhale Kanunu - aşırı düşük teklifler",
			Reference: "4734 sayılı Kanun, Madde 38",
		},
		{
			ID:        CitationPrices,
			Type:      types.CitationPriceList,
			Title:     "Güncel piyasa fiyat listesi",
			Reference: "portion market prices per kg",
		},
		{
			ID:        CitationWages,
			Type:      types.CitationBenchmark,
			Title:     "Sektörel işçilik maliyeti karşılaştırması",
			Reference: "hourly wage benchmark per role",
		},
		{
			ID:        CitationSpecifics,
			Type:      types.CitationContract,
			Title:     "İhale teknik şartnamesi",
			Reference: "service profile from the tender document",
		},
	}
}

func justifications(out *types.SimulationOutput, base float64) []types.JustificationBlock {
	date := out.CalculatedAt.UTC().Format("2006-01-02")

	blocks := []types.JustificationBlock{
		{
			Category:          "material",
			Amount:            out.Material.Total,
			ShareOfBase:       share(out.Material.Total, base),
			CalculationMethod: "persons × meals_per_day × Σ(gram_per_portion / 1000 × price_per_kg × (1 + waste%)) × service_days",
			DataSources:       []string{CitationPrices, CitationSpecifics},
			Evidence:          materialEvidence(out.Input.PortionSpecs, date),
		},
		{
			Category:          "labor",
			Amount:            out.Labor.Total,
			ShareOfBase:       share(out.Labor.Total, base),
			CalculationMethod: "Σ(count × hours_per_day × hourly_wage × shift_multiplier × benefits_multiplier) × service_days",
			DataSources:       []string{CitationWages, CitationSpecifics},
			Evidence:          laborEvidence(out.Staffing, date),
		},
		{
			Category:          "overhead",
			Amount:            out.Overhead.Total,
			ShareOfBase:       share(out.Overhead.Total, base),
			CalculationMethod: fmt.Sprintf("(material + labor) × %.2f%% for risk tier %s", out.OverheadPct, out.Risk.Tier),
			DataSources:       []string{CitationLaw, CitationWages},
			Evidence: []types.EvidenceRecord{{
				Source:             "overhead rate table",
				Date:               date,
				PricePerUnit:       out.OverheadPct,
				Unit:               "%",
				VerificationMethod: "fixed rate by risk tier",
			}},
		},
	}

	if out.Maintenance != nil {
		blocks = append(blocks, types.JustificationBlock{
			Category:          "maintenance",
			Amount:            out.Maintenance.Total,
			ShareOfBase:       share(out.Maintenance.Total, base),
			CalculationMethod: "(material + labor) × maintenance rate for contracts longer than one year",
			DataSources:       []string{CitationSpecifics},
			Evidence: []types.EvidenceRecord{{
				Source:             "equipment maintenance allowance",
				Date:               date,
				PricePerUnit:       out.Maintenance.Details["rate_pct"],
				Unit:               "%",
				VerificationMethod: "fixed rate",
			}},
		})
	}
	return blocks
}

func materialEvidence(specs []types.PortionSpec, date string) []types.EvidenceRecord {
	records := make([]types.EvidenceRecord, 0, len(specs))
	for _, spec := range specs {
		source := spec.PriceSource
		if source == "" {
			source = defaultPriceSource
		}
		records = append(records, types.EvidenceRecord{
			Source:             fmt.Sprintf("%s (%s)", source, spec.Category),
			Date:               date,
			PricePerUnit:       spec.MarketPricePerKg,
			Unit:               "TL/kg",
			VerificationMethod: "market price quotation",
		})
	}
	return records
}

func laborEvidence(staff []types.StaffingSpec, date string) []types.EvidenceRecord {
	sorted := make([]types.StaffingSpec, len(staff))
	copy(sorted, staff)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Role < sorted[j].Role })

	records := make([]types.EvidenceRecord, 0, len(sorted))
	for _, s := range sorted {
		records = append(records, types.EvidenceRecord{
			Source:             fmt.Sprintf("wage benchmark (%s × %d)", s.Role, s.Count),
			Date:               date,
			PricePerUnit:       s.HourlyWage,
			Unit:               "TL/hour",
			VerificationMethod: "payroll calculation",
		})
	}
	if len(records) == 0 {
		records = append(records, types.EvidenceRecord{
			Source:             "no staffing declared",
			Date:               date,
			Unit:               "TL/hour",
			VerificationMethod: "payroll calculation",
		})
	}
	return records
}

func share(amount, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return money.Round2(amount / base * 100)
}

func complianceStatement(price, threshold float64, status types.ADTStatus) string {
	if !status.ExplanationRequired {
		return fmt.Sprintf(
			"Teklif bedeli %.2f TL, aşırı düşük teklif sınır değeri %.2f TL'nin altında değildir; açıklama zorunlu değildir.",
			price, threshold)
	}
	return fmt.Sprintf(
		"Teklif bedeli %.2f TL, sınır değer %.2f TL'nin %%%.2f altındadır (risk seviyesi %s). Maliyet kalemleri ekli belgelerle gerekçelendirilmiştir.",
		price, threshold, status.DeviationPercentage, status.RiskLevel)
}

func mitigationMeasures(level types.RiskLevel) []string {
	measures := []string{
		"Keep supplier quotations for every priced portion category on file",
		"Maintain payroll records supporting declared staffing levels",
	}
	switch level {
	case types.RiskLevelHigh:
		measures = append(measures,
			"Attach signed supplier price commitments covering the contract period",
			"Obtain an independent cost review before submission",
			"Reconsider the bid price against the threshold before submission",
		)
	case types.RiskLevelMedium:
		measures = append(measures,
			"Attach signed supplier price commitments covering the contract period",
		)
	}
	return measures
}
