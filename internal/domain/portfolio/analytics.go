// Package portfolio computes return and risk statistics over aligned
// value series. Every function is pure: inputs are never mutated, and
// data-quality problems produce "not enough data" results instead of
// NaN or Inf leaking into output.
package portfolio

import (
	"math"
	"time"
)

const (
	tradingDaysPerYear  = 252
	calendarDaysPerYear = 365.25
	epsilon             = 1e-12
)

// SeriesPoint is one dated observation of a value series.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ReturnPoint is one simple return between adjacent series points.
type ReturnPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// sampleStdDev is Bessel-corrected (n-1 denominator).
func sampleStdDev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	avg, _ := mean(values)
	var sum float64
	for _, v := range values {
		diff := v - avg
		sum += diff * diff
	}
	variance := sum / float64(len(values)-1)
	if variance < 0 {
		return 0, false
	}
	return math.Sqrt(variance), true
}

// ComputeReturns emits simple returns between chronologically adjacent
// points. A pair with a non-positive or non-finite previous value is
// skipped entirely, so the output may hold fewer than len(series)-1
// returns.
func ComputeReturns(series []SeriesPoint) []ReturnPoint {
	if len(series) < 2 {
		return nil
	}

	returns := make([]ReturnPoint, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev, curr := series[i-1].Value, series[i].Value
		if !isFinite(prev) || !isFinite(curr) || prev <= 0 {
			continue
		}
		r := curr/prev - 1
		if !isFinite(r) {
			continue
		}
		returns = append(returns, ReturnPoint{Date: series[i].Date, Value: r})
	}
	return returns
}

// Values projects the return series onto its raw numbers.
func Values(returns []ReturnPoint) []float64 {
	values := make([]float64, len(returns))
	for i, r := range returns {
		values[i] = r.Value
	}
	return values
}

// ComputeCAGR annualizes growth over the actual calendar span:
// (last/first)^(1/years)-1 with years = span/365.25 days. ok=false when
// the span is non-positive or an endpoint is unusable.
func ComputeCAGR(series []SeriesPoint) (float64, bool) {
	if len(series) < 2 {
		return 0, false
	}

	first, last := series[0], series[len(series)-1]
	if !isFinite(first.Value) || !isFinite(last.Value) || first.Value <= 0 || last.Value <= 0 {
		return 0, false
	}

	span := last.Date.Sub(first.Date)
	if span <= 0 {
		return 0, false
	}

	years := span.Hours() / 24 / calendarDaysPerYear
	if years <= 0 {
		return 0, false
	}

	cagr := math.Pow(last.Value/first.Value, 1/years) - 1
	if !isFinite(cagr) {
		return 0, false
	}
	return cagr, true
}

// ComputeVolatility annualizes the sample standard deviation of daily
// returns by sqrt(252). ok=false below two valid returns.
func ComputeVolatility(returns []float64) (float64, bool) {
	filtered := filterFinite(returns)
	if len(filtered) < 2 {
		return 0, false
	}

	std, ok := sampleStdDev(filtered)
	if !ok {
		return 0, false
	}

	annualized := std * math.Sqrt(tradingDaysPerYear)
	if !isFinite(annualized) {
		return 0, false
	}
	return annualized, true
}

// ComputeSharpe is the annualized mean excess return over the sample
// standard deviation of raw returns. A near-zero stdev yields ok=false
// rather than a blow-up.
func ComputeSharpe(returns []float64, riskFreeDaily float64) (float64, bool) {
	filtered := filterFinite(returns)
	if len(filtered) < 2 {
		return 0, false
	}

	excess := make([]float64, len(filtered))
	for i, r := range filtered {
		excess[i] = r - riskFreeDaily
	}
	avgExcess, ok := mean(excess)
	if !ok {
		return 0, false
	}

	std, ok := sampleStdDev(filtered)
	if !ok || std <= epsilon {
		return 0, false
	}

	sharpe := avgExcess / std * math.Sqrt(tradingDaysPerYear)
	if !isFinite(sharpe) {
		return 0, false
	}
	return sharpe, true
}

// ComputeBeta is sample covariance over sample benchmark variance,
// computed only across index-aligned pairs where both returns are
// finite. ok=false below two aligned pairs or on a degenerate
// benchmark.
func ComputeBeta(returns, benchmarkReturns []float64) (float64, bool) {
	length := min(len(returns), len(benchmarkReturns))
	if length < 2 {
		return 0, false
	}

	var aligned, alignedBench []float64
	for i := 0; i < length; i++ {
		if !isFinite(returns[i]) || !isFinite(benchmarkReturns[i]) {
			continue
		}
		aligned = append(aligned, returns[i])
		alignedBench = append(alignedBench, benchmarkReturns[i])
	}
	if len(aligned) < 2 {
		return 0, false
	}

	meanP, _ := mean(aligned)
	meanB, _ := mean(alignedBench)

	var covSum, varSum float64
	for i := range aligned {
		dp := aligned[i] - meanP
		db := alignedBench[i] - meanB
		covSum += dp * db
		varSum += db * db
	}

	n := float64(len(aligned) - 1)
	covariance := covSum / n
	benchVariance := varSum / n
	if !isFinite(covariance) || !isFinite(benchVariance) || benchVariance <= epsilon {
		return 0, false
	}

	beta := covariance / benchVariance
	if !isFinite(beta) {
		return 0, false
	}
	return beta, true
}

// ComputeMaxDrawdown tracks the running peak across positive finite
// values and reports the most negative value/peak-1 seen, or 0 when the
// series never declined. Unusable points are skipped, never treated as
// a drop to zero. ok=false when no valid point exists.
func ComputeMaxDrawdown(series []SeriesPoint) (float64, bool) {
	if len(series) < 2 {
		return 0, false
	}

	var (
		peak     = math.NaN()
		maxDD    float64
		anyValid bool
	)
	for _, point := range series {
		if !isFinite(point.Value) || point.Value <= 0 {
			continue
		}
		anyValid = true
		if math.IsNaN(peak) || point.Value > peak {
			peak = point.Value
			continue
		}
		if dd := point.Value/peak - 1; dd < maxDD {
			maxDD = dd
		}
	}
	if !anyValid || !isFinite(maxDD) {
		return 0, false
	}
	return maxDD, true
}

// TotalReturnPct is (last/first-1)*100 over the raw series endpoints.
func TotalReturnPct(series []SeriesPoint) (float64, bool) {
	if len(series) < 2 {
		return 0, false
	}
	first, last := series[0].Value, series[len(series)-1].Value
	if !isFinite(first) || !isFinite(last) || first == 0 {
		return 0, false
	}
	pct := (last/first - 1) * 100
	if !isFinite(pct) {
		return 0, false
	}
	return pct, true
}

func filterFinite(values []float64) []float64 {
	filtered := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}
