// Package probability estimates how likely price is to travel a given
// distance from an anchor within a fixed horizon: empirically from
// historical candles (touch and end events), and parametrically from an
// EWMA volatility model.
package probability

import (
	"math"
	"time"
)

// Candle is one externally supplied OHLC bar. The series must be
// chronologically ascending; this package never fetches data itself.
type Candle struct {
	Time  time.Time `json:"datetime"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
