package costing

import (
	"math"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

// Labor multiplier defaults
const (
	DefaultShiftMultiplier    = 1.0
	DefaultBenefitsMultiplier = 1.4
	DefaultHoursPerDay        = 8.0
)

// staffingRatio is one row of the headcount table used when the caller
// supplies no staffing plan: one employee per PerPersons diners.
type staffingRatio struct {
	Role       string
	PerPersons int
	HourlyWage float64
}

var staffingRatios = []staffingRatio{
	{Role: "cook", PerPersons: 200, HourlyWage: 180},
	{Role: "kitchen_helper", PerPersons: 100, HourlyWage: 120},
	{Role: "service_staff", PerPersons: 150, HourlyWage: 125},
	{Role: "dietitian", PerPersons: 1000, HourlyWage: 220},
}

// DeriveStaffing builds a staffing plan from the fixed per-person ratios.
// Every role gets at least one employee.
func DeriveStaffing(persons int) []types.StaffingSpec {
	plan := make([]types.StaffingSpec, 0, len(staffingRatios))
	for _, r := range staffingRatios {
		count := int(math.Ceil(float64(persons) / float64(r.PerPersons)))
		if count < 1 {
			count = 1
		}
		plan = append(plan, types.StaffingSpec{
			Role:        r.Role,
			Count:       count,
			HoursPerDay: DefaultHoursPerDay,
			HourlyWage:  r.HourlyWage,
		})
	}
	return plan
}

// withDefaults fills in the optional multipliers
func withDefaults(s types.StaffingSpec) types.StaffingSpec {
	if s.ShiftMultiplier == nil {
		v := DefaultShiftMultiplier
		s.ShiftMultiplier = &v
	}
	if s.BenefitsMultiplier == nil {
		v := DefaultBenefitsMultiplier
		s.BenefitsMultiplier = &v
	}
	return s
}
