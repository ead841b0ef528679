package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRatiosFullSet(t *testing.T) {
	points := series(100, 102, 101, 105, 104, 108)
	bench := series(50, 51, 50.5, 52, 51.5, 53)

	ratios := ComputeRatios(points, bench, 0)

	require.NotNil(t, ratios.TotalReturnPct)
	assert.InDelta(t, 8.0, *ratios.TotalReturnPct, 1e-9)
	require.NotNil(t, ratios.BenchmarkReturnPct)
	assert.InDelta(t, 6.0, *ratios.BenchmarkReturnPct, 1e-9)
	assert.NotNil(t, ratios.CAGR)
	assert.NotNil(t, ratios.VolAnnual)
	assert.NotNil(t, ratios.SharpeAnnual)
	assert.NotNil(t, ratios.Beta)
	require.NotNil(t, ratios.MaxDrawdownPct)
	assert.Less(t, *ratios.MaxDrawdownPct, 0.0)
	assert.GreaterOrEqual(t, *ratios.MaxDrawdownPct, -100.0)
}

func TestComputeRatiosSparseData(t *testing.T) {
	ratios := ComputeRatios(series(100), nil, 0)
	assert.Nil(t, ratios.TotalReturnPct)
	assert.Nil(t, ratios.BenchmarkReturnPct)
	assert.Nil(t, ratios.CAGR)
	assert.Nil(t, ratios.VolAnnual)
	assert.Nil(t, ratios.SharpeAnnual)
	assert.Nil(t, ratios.Beta)
	assert.Nil(t, ratios.MaxDrawdownPct)
}

func TestComputeRatiosNoBenchmark(t *testing.T) {
	ratios := ComputeRatios(series(100, 102, 104, 103), nil, 0)
	assert.Nil(t, ratios.Beta)
	assert.Nil(t, ratios.BenchmarkReturnPct)
	assert.NotNil(t, ratios.TotalReturnPct)
}

func TestAlignReturnsByDate(t *testing.T) {
	portfolio := []ReturnPoint{
		{Date: day(1), Value: 0.01},
		{Date: day(2), Value: 0.02},
		{Date: day(4), Value: 0.04},
	}
	benchmark := []ReturnPoint{
		{Date: day(1), Value: 0.005},
		{Date: day(3), Value: 0.03},
		{Date: day(4), Value: 0.02},
	}

	p, b := AlignReturnsByDate(portfolio, benchmark)
	require.Len(t, p, 2)
	require.Len(t, b, 2)
	assert.Equal(t, []float64{0.01, 0.04}, p)
	assert.Equal(t, []float64{0.005, 0.02}, b)
}

func TestAlignReturnsByDateIgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	evening := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)

	p, b := AlignReturnsByDate(
		[]ReturnPoint{{Date: morning, Value: 0.01}},
		[]ReturnPoint{{Date: evening, Value: 0.02}},
	)
	require.Len(t, p, 1)
	assert.Equal(t, 0.01, p[0])
	assert.Equal(t, 0.02, b[0])
}
