// Package money applies the single rounding policy used for every monetary
// value: round half-up (away from zero) to two decimals.
package money

import "github.com/shopspring/decimal"

// Tolerance is the absolute tolerance for monetary equality checks
const Tolerance = 0.01

// Round2 rounds v half-up to two decimals
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Round rounds v half-up to the given number of decimals
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Sum adds values exactly and rounds the result to two decimals
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// Mul multiplies factors exactly and rounds the result to two decimals
func Mul(factors ...float64) float64 {
	if len(factors) == 0 {
		return 0
	}
	product := decimal.NewFromFloat(factors[0])
	for _, f := range factors[1:] {
		product = product.Mul(decimal.NewFromFloat(f))
	}
	return product.Round(2).InexactFloat64()
}

// Percent returns pct percent of base, rounded to two decimals
func Percent(base, pct float64) float64 {
	return decimal.NewFromFloat(base).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		Round(2).InexactFloat64()
}

// Div divides a by b and rounds to two decimals; b must be non-zero
func Div(a, b float64) float64 {
	return decimal.NewFromFloat(a).Div(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// Equal reports whether a and b are equal within Tolerance
func Equal(a, b float64) bool {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs().
		LessThanOrEqual(decimal.NewFromFloat(Tolerance))
}
