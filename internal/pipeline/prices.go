package pipeline

import (
	"context"
	"strings"
)

// PriceQuote is one market price for a menu category
type PriceQuote struct {
	Category   string  `json:"category"`
	PricePerKg float64 `json:"price_per_kg"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// PriceProvider supplies market prices used to build simulation input.
// A category without a quote returns ok == false.
type PriceProvider interface {
	Quote(ctx context.Context, category, location string) (quote PriceQuote, ok bool, err error)
}

// StaticPriceProvider serves prices from a fixed table keyed by category
type StaticPriceProvider struct {
	quotes map[string]PriceQuote
}

// NewStaticPriceProvider builds a provider from quotes; categories match case-insensitively
func NewStaticPriceProvider(quotes ...PriceQuote) *StaticPriceProvider {
	p := &StaticPriceProvider{quotes: make(map[string]PriceQuote, len(quotes))}
	for _, q := range quotes {
		p.quotes[categoryKey(q.Category)] = q
	}
	return p
}

// DefaultPriceProvider returns the reference price table for institutional catering
func DefaultPriceProvider() *StaticPriceProvider {
	const source = "reference price list"
	return NewStaticPriceProvider(
		PriceQuote{Category: "Ana Yemek", PricePerKg: 45, Source: source, Confidence: 0.85},
		PriceQuote{Category: "Çorba", PricePerKg: 18, Source: source, Confidence: 0.9},
		PriceQuote{Category: "Pilav", PricePerKg: 24, Source: source, Confidence: 0.9},
		PriceQuote{Category: "Makarna", PricePerKg: 22, Source: source, Confidence: 0.9},
		PriceQuote{Category: "Salata", PricePerKg: 20, Source: source, Confidence: 0.8},
		PriceQuote{Category: "Tatlı", PricePerKg: 32, Source: source, Confidence: 0.8},
		PriceQuote{Category: "Meyve", PricePerKg: 16, Source: source, Confidence: 0.75},
		PriceQuote{Category: "Ekmek", PricePerKg: 12, Source: source, Confidence: 0.95},
		PriceQuote{Category: "Yoğurt", PricePerKg: 28, Source: source, Confidence: 0.85},
	)
}

// Quote implements PriceProvider
func (p *StaticPriceProvider) Quote(_ context.Context, category, _ string) (PriceQuote, bool, error) {
	q, ok := p.quotes[categoryKey(category)]
	return q, ok, nil
}

func categoryKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// defaultPortions is used when the analysis extracted no portion sizes
var defaultPortions = []struct {
	category string
	grams    float64
}{
	{"Çorba", 250},
	{"Ana Yemek", 200},
	{"Pilav", 150},
	{"Salata", 100},
	{"Ekmek", 100},
}
