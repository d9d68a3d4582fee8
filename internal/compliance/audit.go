package compliance

import (
	"encoding/json"
	"time"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/dochash"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// SchemaVersion identifies the audit trail layout
const SchemaVersion = "kik-adt/v1"

var formulas = map[string]string{
	"base_value":           "material.total + labor.total + overhead.total",
	"threshold":            "k_factor * base_value",
	"ratio":                "price / threshold",
	"deviation_percentage": "(threshold - price) / threshold * 100",
	"risk_level":           "ratio < 0.85 => HIGH; ratio < 0.95 => MEDIUM; otherwise LOW",
	"explanation_required": "price < threshold",
}

// BuildAuditTrail records the formulas, inputs, and intermediate values of a
// verdict. The timestamp is the simulation's calculation time, so identical
// simulations yield byte-identical trails.
func BuildAuditTrail(out *types.SimulationOutput, th types.ThresholdResult, status types.ADTStatus, price float64) types.AuditTrail {
	f := make(map[string]string, len(formulas))
	for k, v := range formulas {
		f[k] = v
	}

	trail := types.AuditTrail{
		SchemaVersion: SchemaVersion,
		Timestamp:     out.CalculatedAt.UTC().Format(time.RFC3339),
		Formulas:      f,
		Inputs: map[string]float64{
			"material_total":    out.Material.Total,
			"labor_total":       out.Labor.Total,
			"overhead_total":    out.Overhead.Total,
			"maintenance_total": out.MaintenanceTotal(),
			"price":             price,
			"k_factor":          th.KFactor,
		},
		Intermediate: map[string]float64{
			"base_value":           th.BaseValue,
			"threshold":            th.Threshold,
			"ratio":                status.Ratio,
			"deviation_percentage": status.DeviationPercentage,
		},
	}
	trail.Fingerprint = Fingerprint(trail)
	return trail
}

// Fingerprint hashes the canonical JSON of a trail, ignoring any existing
// fingerprint. Map keys are emitted sorted so the encoding is stable.
func Fingerprint(trail types.AuditTrail) string {
	trail.Fingerprint = ""
	data, err := json.Marshal(trail)
	if err != nil {
		return ""
	}
	return dochash.Compute(data)
}

// VerifyAuditTrail reports whether a trail's fingerprint matches its content
func VerifyAuditTrail(trail types.AuditTrail) bool {
	return trail.Fingerprint != "" && trail.Fingerprint == Fingerprint(trail)
}
