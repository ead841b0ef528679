// Package pricestep resolves and applies the price bucket width used by
// the footprint aggregator. Authoritative tick sizes come from exchange
// metadata; heuristic estimation covers everything else.
package pricestep

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultStep is the last-resort bucket width when no metadata,
// trade sample, or reference price is available.
const DefaultStep = 0.01

// Decimals returns the number of decimal places the step is quoted in,
// e.g. 0.5 -> 1, 0.001 -> 3, 5 -> 0.
func Decimals(step float64) int {
	if !isFinite(step) || step <= 0 {
		return 0
	}
	d := decimal.NewFromFloat(step)
	if exp := d.Exponent(); exp < 0 {
		return int(-exp)
	}
	return 0
}

// Floor buckets a price to the nearest lower multiple of step, rounded
// back to the step's own decimal precision so map keys stay stable.
// A non-positive or non-finite step leaves the price untouched.
func Floor(price, step float64) float64 {
	if !isFinite(price) || !isFinite(step) || step <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	s := decimal.NewFromFloat(step)
	bucket := p.Div(s).Floor().Mul(s).Round(int32(Decimals(step)))
	f, _ := bucket.Float64()
	return f
}

// Fallback returns max(referencePrice*0.05%, 0.01), or DefaultStep when
// no usable reference price exists.
func Fallback(referencePrice float64) float64 {
	if isFinite(referencePrice) && referencePrice > 0 {
		return math.Max(referencePrice*0.0005, DefaultStep)
	}
	return DefaultStep
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
