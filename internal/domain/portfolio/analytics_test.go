package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func series(values ...float64) []SeriesPoint {
	points := make([]SeriesPoint, len(values))
	for i, v := range values {
		points[i] = SeriesPoint{Date: day(i), Value: v}
	}
	return points
}

func TestComputeReturns(t *testing.T) {
	returns := ComputeReturns(series(100, 110, 99))
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0].Value, 1e-9)
	assert.InDelta(t, -0.10, returns[1].Value, 1e-9)
	assert.Equal(t, day(1), returns[0].Date)
}

func TestComputeReturnsSkipsBadPrevious(t *testing.T) {
	points := series(100, 0, 110, 121)
	returns := ComputeReturns(points)
	// The 0->110 pair drops because its previous value is non-positive.
	require.Len(t, returns, 2)
	assert.InDelta(t, -1.0, returns[0].Value, 1e-9)
	assert.InDelta(t, 0.10, returns[1].Value, 1e-9)
}

func TestComputeReturnsTooShort(t *testing.T) {
	assert.Nil(t, ComputeReturns(nil))
	assert.Nil(t, ComputeReturns(series(100)))
}

func TestComputeCAGR(t *testing.T) {
	// 100 -> 121 over two calendar years is about 10% annualized.
	points := []SeriesPoint{
		{Date: day(0), Value: 100},
		{Date: day(0).AddDate(2, 0, 0), Value: 121},
	}
	cagr, ok := ComputeCAGR(points)
	require.True(t, ok)
	assert.InDelta(t, 0.10, cagr, 1e-3)
}

func TestComputeCAGRUnusable(t *testing.T) {
	_, ok := ComputeCAGR(series(100))
	assert.False(t, ok)

	_, ok = ComputeCAGR([]SeriesPoint{
		{Date: day(1), Value: 100},
		{Date: day(0), Value: 110},
	})
	assert.False(t, ok, "non-positive calendar span")

	_, ok = ComputeCAGR([]SeriesPoint{
		{Date: day(0), Value: -5},
		{Date: day(1), Value: 110},
	})
	assert.False(t, ok)
}

func TestComputeVolatility(t *testing.T) {
	vol, ok := ComputeVolatility([]float64{0.01, -0.02, 0.015, 0.005})
	require.True(t, ok)

	std, stdOK := sampleStdDev([]float64{0.01, -0.02, 0.015, 0.005})
	require.True(t, stdOK)
	assert.InDelta(t, std*math.Sqrt(252), vol, 1e-12)
}

func TestComputeVolatilityNotEnoughData(t *testing.T) {
	_, ok := ComputeVolatility([]float64{0.01})
	assert.False(t, ok)

	_, ok = ComputeVolatility([]float64{0.01, math.NaN()})
	assert.False(t, ok, "non-finite returns are filtered before the count check")
}

func TestComputeSharpe(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.015, 0.005}
	sharpe, ok := ComputeSharpe(returns, 0.001)
	require.True(t, ok)

	avg, _ := mean([]float64{0.009, 0.019, 0.014, 0.004})
	std, _ := sampleStdDev(returns)
	assert.InDelta(t, avg/std*math.Sqrt(252), sharpe, 1e-9)
}

func TestComputeSharpeConstantSeries(t *testing.T) {
	// Zero dispersion must not divide by zero.
	_, ok := ComputeSharpe([]float64{0.01, 0.01, 0.01}, 0)
	assert.False(t, ok)
}

func TestComputeBeta(t *testing.T) {
	// Portfolio moves exactly twice the benchmark.
	bench := []float64{0.01, -0.02, 0.03, -0.01}
	port := make([]float64, len(bench))
	for i, b := range bench {
		port[i] = 2 * b
	}

	beta, ok := ComputeBeta(port, bench)
	require.True(t, ok)
	assert.InDelta(t, 2.0, beta, 1e-9)
}

func TestComputeBetaSkipsNonFinitePairs(t *testing.T) {
	port := []float64{0.02, math.NaN(), 0.06, -0.02}
	bench := []float64{0.01, 0.05, 0.03, -0.01}

	beta, ok := ComputeBeta(port, bench)
	require.True(t, ok)
	assert.InDelta(t, 2.0, beta, 1e-9)
}

func TestComputeBetaDegenerateBenchmark(t *testing.T) {
	_, ok := ComputeBeta([]float64{0.01, 0.02, 0.03}, []float64{0.01, 0.01, 0.01})
	assert.False(t, ok)

	_, ok = ComputeBeta([]float64{0.01}, []float64{0.01})
	assert.False(t, ok)
}

func TestComputeMaxDrawdown(t *testing.T) {
	dd, ok := ComputeMaxDrawdown(series(100, 120, 90, 110))
	require.True(t, ok)
	assert.InDelta(t, -0.25, dd, 1e-9)
	assert.GreaterOrEqual(t, dd, -1.0)
	assert.LessOrEqual(t, dd, 0.0)
}

func TestComputeMaxDrawdownMonotoneSeries(t *testing.T) {
	dd, ok := ComputeMaxDrawdown(series(100, 110, 120))
	require.True(t, ok)
	assert.Zero(t, dd)
}

func TestComputeMaxDrawdownSkipsUnusablePoints(t *testing.T) {
	points := series(100, 120)
	points = append(points, SeriesPoint{Date: day(2), Value: math.NaN()})
	points = append(points, SeriesPoint{Date: day(3), Value: 0})
	points = append(points, SeriesPoint{Date: day(4), Value: 90})

	dd, ok := ComputeMaxDrawdown(points)
	require.True(t, ok)
	assert.InDelta(t, -0.25, dd, 1e-9, "bad points never count as a crash to zero")
}

func TestTotalReturnPct(t *testing.T) {
	pct, ok := TotalReturnPct(series(100, 150))
	require.True(t, ok)
	assert.InDelta(t, 50.0, pct, 1e-9)

	_, ok = TotalReturnPct(series(100))
	assert.False(t, ok)

	_, ok = TotalReturnPct(series(0, 150))
	assert.False(t, ok)
}
