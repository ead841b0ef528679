package probability

import (
	"fmt"
	"math"
)

// ModelConfig tunes the parametric end-probability estimate.
type ModelConfig struct {
	// Lambda is the EWMA decay factor for return variance, in [0,1].
	Lambda float64
	// SigmaScale inflates or deflates the horizon volatility.
	SigmaScale float64
}

// DefaultModelConfig matches the RiskMetrics-style daily decay.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{Lambda: 0.94, SigmaScale: 1.0}
}

const sigmaFloor = 1e-12

// EWMAVolatility computes exponentially weighted volatility of a return
// series: variance seeded with the first squared return, then
// var = lambda*var + (1-lambda)*r^2 per observation.
func EWMAVolatility(returns []float64, lambda float64) (float64, error) {
	if lambda < 0 || lambda > 1 {
		return 0, fmt.Errorf("ewma lambda must be between 0 and 1, got %v", lambda)
	}
	if len(returns) == 0 {
		return 0, fmt.Errorf("returns are required")
	}

	variance := returns[0] * returns[0]
	for _, r := range returns[1:] {
		variance = lambda*variance + (1-lambda)*r*r
	}
	return math.Sqrt(variance), nil
}

// EndEstimate is a parametric probability of where price ends after the
// horizon, with the intermediate volatility terms exposed for display.
type EndEstimate struct {
	PUp     float64 `json:"p_up_ge_x"`
	PDown   float64 `json:"p_dn_ge_x"`
	PWithin float64 `json:"p_within_pm_x"`
	Entry   float64 `json:"entry"`
	Sigma1  float64 `json:"sigma_1"`
	SigmaH  float64 `json:"sigma_h"`
}

// EstimateEnd models log returns as Gaussian with EWMA volatility: the
// entry anchor is the second-to-last close, sigma over the horizon is
// sigma_1*sqrt(h)*scale, and the tail probabilities come from the
// normal CDF of the log distance to entry+-targetX (absolute price
// units). A target at or above the entry price makes the downside
// barrier unreachable in log space, so its tail probability is 0.
func EstimateEnd(candles []Candle, lookbackBars, horizonBars int, targetX float64, cfg ModelConfig) (EndEstimate, error) {
	if horizonBars < 1 {
		return EndEstimate{}, fmt.Errorf("horizonBars must be at least 1, got %d", horizonBars)
	}
	if targetX <= 0 || !isFinite(targetX) {
		return EndEstimate{}, fmt.Errorf("targetX must be positive, got %v", targetX)
	}
	if len(candles) < lookbackBars+2 {
		return EndEstimate{}, fmt.Errorf("insufficient data: need %d candles for lookback %d, have %d", lookbackBars+2, lookbackBars, len(candles))
	}

	entryIndex := len(candles) - 2
	entry := candles[entryIndex].Close
	if !isFinite(entry) || entry <= 0 {
		return EndEstimate{}, fmt.Errorf("entry close must be positive, got %v", entry)
	}

	windowStart := entryIndex - lookbackBars
	if windowStart < 0 {
		windowStart = 0
	}
	var returns []float64
	for i := windowStart + 1; i <= entryIndex; i++ {
		prev, curr := candles[i-1].Close, candles[i].Close
		if prev <= 0 || curr <= 0 || !isFinite(prev) || !isFinite(curr) {
			continue
		}
		returns = append(returns, math.Log(curr/prev))
	}

	sigma1, err := EWMAVolatility(returns, cfg.Lambda)
	if err != nil {
		return EndEstimate{}, fmt.Errorf("ewma volatility: %w", err)
	}

	sigmaH := sigma1 * math.Sqrt(float64(horizonBars)) * cfg.SigmaScale
	if sigmaH < sigmaFloor {
		sigmaH = sigmaFloor
	}

	rUp := math.Log((entry + targetX) / entry)
	rDown := math.Inf(-1)
	if entry > targetX {
		rDown = math.Log((entry - targetX) / entry)
	}

	pUp := 1 - normalCDF(rUp/sigmaH)
	pDown := normalCDF(rDown / sigmaH)
	pWithin := math.Max(0, 1-pUp-pDown)

	return EndEstimate{
		PUp:     clamp01(pUp),
		PDown:   clamp01(pDown),
		PWithin: clamp01(pWithin),
		Entry:   entry,
		Sigma1:  sigma1,
		SigmaH:  sigmaH,
	}, nil
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
