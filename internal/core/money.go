// Package core defines the typed cashflow model shared by the engine
// packages: events, policies, payloads, and plans.
//
// This file holds the money arithmetic. Amounts travel as float64 for wire
// compatibility with upstream feeds, but every rounding or share computation
// goes through shopspring/decimal so totals and split parts stay exact to
// the cent.
package core

import "github.com/shopspring/decimal"

// Round2 rounds a monetary value to two decimal places (half away from zero).
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Share returns ratio of a base amount, rounded to the cent. Used for split
// parts: Share(200, 0.6) == 120.00.
func Share(base, ratio float64) float64 {
	f, _ := decimal.NewFromFloat(base).
		Mul(decimal.NewFromFloat(ratio)).
		Round(2).
		Float64()
	return f
}

// SumParts adds split part amounts exactly.
func SumParts(parts []SplitPart) float64 {
	total := decimal.Zero
	for _, p := range parts {
		total = total.Add(decimal.NewFromFloat(p.Amount))
	}
	f, _ := total.Float64()
	return f
}
