package probability

import (
	"fmt"
	"math"
)

// TouchParams bounds one empirical touch computation. Anchors run over
// candle indexes [LookbackStart, MaxStartIndex]; each anchor's close is
// scanned forward HorizonBars candles for its high/low water marks.
type TouchParams struct {
	LookbackStart int
	MaxStartIndex int
	HorizonBars   int
	PipSize       float64
}

func (p TouchParams) validate(candleCount int) error {
	if p.HorizonBars < 1 {
		return fmt.Errorf("horizonBars must be at least 1, got %d", p.HorizonBars)
	}
	if p.PipSize <= 0 || !isFinite(p.PipSize) {
		return fmt.Errorf("pipSize must be positive, got %v", p.PipSize)
	}
	if p.LookbackStart < 0 {
		return fmt.Errorf("lookbackStart must not be negative, got %d", p.LookbackStart)
	}
	if p.MaxStartIndex >= candleCount {
		return fmt.Errorf("maxStartIndex %d out of range for %d candles", p.MaxStartIndex, candleCount)
	}
	return nil
}

// TouchResult carries the frequency ratios for one target. A zero
// SampleCount means "not enough data": all ratios are 0 by convention,
// never NaN.
type TouchResult struct {
	UpGeX       float64 `json:"up_ge_x"`
	DownGeX     float64 `json:"down_ge_x"`
	WithinPmX   float64 `json:"within_pm_x"`
	BothTouch   float64 `json:"both_touch"`
	SampleCount int     `json:"sampleCount"`
}

// SurfaceResult carries ratios for several targets computed over one
// shared sample of moves.
type SurfaceResult struct {
	Xs          []float64 `json:"xs"`
	Up          []float64 `json:"up"`
	Down        []float64 `json:"down"`
	Within      []float64 `json:"within"`
	SampleCount int       `json:"sampleCount"`
}

// touchMoves collects the up/down excursions per anchor. An anchor only
// contributes when the full horizon window exists; a partial window at
// the end of the series is discarded, not padded.
func touchMoves(candles []Candle, p TouchParams) (upMoves, downMoves []float64) {
	for i := p.LookbackStart; i <= p.MaxStartIndex; i++ {
		anchor := candles[i].Close
		if !isFinite(anchor) {
			continue
		}
		if i+p.HorizonBars >= len(candles) {
			continue
		}

		maxHigh := math.Inf(-1)
		minLow := math.Inf(1)
		for j := i + 1; j <= i+p.HorizonBars; j++ {
			if candles[j].High > maxHigh {
				maxHigh = candles[j].High
			}
			if candles[j].Low < minLow {
				minLow = candles[j].Low
			}
		}
		if !isFinite(maxHigh) || !isFinite(minLow) {
			continue
		}

		upMoves = append(upMoves, maxHigh-anchor)
		downMoves = append(downMoves, anchor-minLow)
	}
	return upMoves, downMoves
}

// TouchNow estimates, for a single target of targetX pips, how often
// price touched at least that far up, down, both, or neither within the
// horizon.
func TouchNow(candles []Candle, p TouchParams, targetX float64) (TouchResult, error) {
	if err := p.validate(len(candles)); err != nil {
		return TouchResult{}, err
	}

	upMoves, downMoves := touchMoves(candles, p)
	sampleCount := min(len(upMoves), len(downMoves))
	if sampleCount == 0 {
		return TouchResult{}, nil
	}

	threshold := targetX * p.PipSize
	var upCount, downCount, withinCount, bothCount int
	for i := 0; i < sampleCount; i++ {
		upTouch := upMoves[i] >= threshold
		downTouch := downMoves[i] >= threshold
		if upTouch {
			upCount++
		}
		if downTouch {
			downCount++
		}
		if !upTouch && !downTouch {
			withinCount++
		}
		if upTouch && downTouch {
			bothCount++
		}
	}

	n := float64(sampleCount)
	return TouchResult{
		UpGeX:       float64(upCount) / n,
		DownGeX:     float64(downCount) / n,
		WithinPmX:   float64(withinCount) / n,
		BothTouch:   float64(bothCount) / n,
		SampleCount: sampleCount,
	}, nil
}

// TouchSurface computes the same ratios for several targets in one pass
// over the shared up/down move samples, avoiding a candle re-scan per
// threshold.
func TouchSurface(candles []Candle, p TouchParams, targetXs []float64) (SurfaceResult, error) {
	if err := p.validate(len(candles)); err != nil {
		return SurfaceResult{}, err
	}

	result := SurfaceResult{
		Xs:     append([]float64(nil), targetXs...),
		Up:     make([]float64, len(targetXs)),
		Down:   make([]float64, len(targetXs)),
		Within: make([]float64, len(targetXs)),
	}

	upMoves, downMoves := touchMoves(candles, p)
	sampleCount := min(len(upMoves), len(downMoves))
	if sampleCount == 0 || len(targetXs) == 0 {
		return result, nil
	}

	thresholds := make([]float64, len(targetXs))
	for i, x := range targetXs {
		thresholds[i] = x * p.PipSize
	}

	for i := 0; i < sampleCount; i++ {
		for j, threshold := range thresholds {
			upTouch := upMoves[i] >= threshold
			downTouch := downMoves[i] >= threshold
			if upTouch {
				result.Up[j]++
			}
			if downTouch {
				result.Down[j]++
			}
			if !upTouch && !downTouch {
				result.Within[j]++
			}
		}
	}

	n := float64(sampleCount)
	for j := range thresholds {
		result.Up[j] /= n
		result.Down[j] /= n
		result.Within[j] /= n
	}
	result.SampleCount = sampleCount
	return result, nil
}
