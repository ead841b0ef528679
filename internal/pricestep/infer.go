package pricestep

import (
	"math"
	"sort"

	"github.com/quantfold/orderflow/internal/domain/trade"
)

// OHLC is the minimal bar shape needed for true-range math.
type OHLC struct {
	High  float64
	Low   float64
	Close float64
}

// InferFromTrades estimates a step as the median of positive deltas
// between consecutive sorted trade prices. The median, not the mean,
// keeps a single outlier gap from dominating the estimate. Returns 0
// when fewer than two distinct prices exist.
func InferFromTrades(trades []trade.Normalized) float64 {
	if len(trades) < 2 {
		return 0
	}

	prices := make([]float64, 0, len(trades))
	for _, t := range trades {
		if isFinite(t.Price) {
			prices = append(prices, t.Price)
		}
	}
	sort.Float64s(prices)

	deltas := make([]float64, 0, len(prices))
	for i := 1; i < len(prices); i++ {
		if diff := prices[i] - prices[i-1]; diff > 0 {
			deltas = append(deltas, diff)
		}
	}
	if len(deltas) == 0 {
		return 0
	}

	sort.Float64s(deltas)
	mid := len(deltas) / 2
	if len(deltas)%2 == 0 {
		return (deltas[mid-1] + deltas[mid]) / 2
	}
	return deltas[mid]
}

// atrRowDivisor splits one average true range into footprint rows.
const atrRowDivisor = 12

// ATRStep derives a step from the average true range of the most recent
// atrPeriod bars, normalized onto a 1/2/5 ladder. Returns 0 when no
// usable true range exists.
func ATRStep(bars []OHLC, atrPeriod int) float64 {
	if len(bars) == 0 {
		return 0
	}
	period := atrPeriod
	if period < 1 {
		period = 1
	}
	if len(bars) > period {
		bars = bars[len(bars)-period:]
	}

	var (
		trueRanges []float64
		prevClose  = math.NaN()
	)
	for _, bar := range bars {
		if !isFinite(bar.High) || !isFinite(bar.Low) || !isFinite(bar.Close) {
			continue
		}
		tr := bar.High - bar.Low
		if !math.IsNaN(prevClose) {
			tr = math.Max(tr, math.Max(math.Abs(bar.High-prevClose), math.Abs(bar.Low-prevClose)))
		}
		if isFinite(tr) && tr > 0 {
			trueRanges = append(trueRanges, tr)
		}
		prevClose = bar.Close
	}
	if len(trueRanges) == 0 {
		return 0
	}

	var sum float64
	for _, tr := range trueRanges {
		sum += tr
	}
	atr := sum / float64(len(trueRanges))
	return normalizeStep(atr / atrRowDivisor)
}

// normalizeStep snaps a raw step onto the smallest 1/2/5*10^k value
// that covers it, so resulting buckets land on familiar increments.
func normalizeStep(step float64) float64 {
	if !isFinite(step) || step <= 0 {
		return 0
	}
	base := math.Pow(10, math.Floor(math.Log10(step)))
	for _, mult := range []float64{1, 2, 5, 10} {
		if candidate := mult * base; candidate >= step {
			return candidate
		}
	}
	return step
}

// RoundToTick rounds an ATR-style range onto a whole multiple of the
// instrument's base tick: max(1, round(value/baseTick)) * baseTick.
func RoundToTick(value, baseTick float64) float64 {
	if !isFinite(value) || !isFinite(baseTick) || baseTick <= 0 {
		return 0
	}
	steps := math.Round(value / baseTick)
	if steps < 1 {
		steps = 1
	}
	return steps * baseTick
}
