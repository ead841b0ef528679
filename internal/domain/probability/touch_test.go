package probability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatCloseSeries keeps every close at 100 so excursions are read
// straight off the highs and lows of the forward window.
func flatCloseSeries() []Candle {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := []struct{ high, low float64 }{
		{100, 100},
		{104, 98},
		{101, 97},
		{102, 99},
		{103, 96},
		{100.5, 99.5},
	}
	candles := make([]Candle, len(bars))
	for i, b := range bars {
		candles[i] = Candle{
			Time:  base.Add(time.Duration(i) * time.Hour),
			Open:  100,
			High:  b.high,
			Low:   b.low,
			Close: 100,
		}
	}
	return candles
}

func flatParams() TouchParams {
	return TouchParams{LookbackStart: 0, MaxStartIndex: 3, HorizonBars: 2, PipSize: 1}
}

func TestTouchNow(t *testing.T) {
	// Per-anchor excursions over the 2-bar windows: (4,3), (2,3), (3,4),
	// (3,4) pips up/down.
	result, err := TouchNow(flatCloseSeries(), flatParams(), 3)
	require.NoError(t, err)

	assert.Equal(t, 4, result.SampleCount)
	assert.InDelta(t, 0.75, result.UpGeX, 1e-9)
	assert.InDelta(t, 1.0, result.DownGeX, 1e-9)
	assert.InDelta(t, 0.75, result.BothTouch, 1e-9)
	assert.InDelta(t, 0.0, result.WithinPmX, 1e-9)
}

func TestTouchNowInclusionExclusion(t *testing.T) {
	for _, target := range []float64{1, 2, 3, 4, 5} {
		result, err := TouchNow(flatCloseSeries(), flatParams(), target)
		require.NoError(t, err)
		total := result.UpGeX + result.DownGeX - result.BothTouch + result.WithinPmX
		assert.InDelta(t, 1.0, total, 1e-9, "target %v", target)
	}
}

func TestTouchNowBothSidesTouched(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := []Candle{
		{Time: base, Open: 100, High: 100, Low: 100, Close: 100},
		{Time: base.Add(time.Hour), Open: 100, High: 105, Low: 99, Close: 100},
		{Time: base.Add(2 * time.Hour), Open: 100, High: 103, Low: 97, Close: 100},
	}

	// Forward window over both bars: up 5, down 3, so a 3-pip target is
	// touched on both sides.
	result, err := TouchNow(candles, TouchParams{
		LookbackStart: 0,
		MaxStartIndex: 0,
		HorizonBars:   2,
		PipSize:       1,
	}, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SampleCount)
	assert.Equal(t, 1.0, result.UpGeX)
	assert.Equal(t, 1.0, result.DownGeX)
	assert.Equal(t, 1.0, result.BothTouch)
	assert.Equal(t, 0.0, result.WithinPmX)
}

func TestTouchNowZeroSamples(t *testing.T) {
	candles := flatCloseSeries()[:3]
	result, err := TouchNow(candles, TouchParams{
		LookbackStart: 0,
		MaxStartIndex: 0,
		HorizonBars:   5,
		PipSize:       1,
	}, 3)
	require.NoError(t, err)

	assert.Zero(t, result.SampleCount)
	assert.Zero(t, result.UpGeX)
	assert.Zero(t, result.DownGeX)
	assert.Zero(t, result.WithinPmX)
	assert.Zero(t, result.BothTouch)
}

func TestTouchNowDiscardsPartialWindows(t *testing.T) {
	candles := flatCloseSeries()
	full := flatParams()
	wide := full
	wide.MaxStartIndex = len(candles) - 1

	a, err := TouchNow(candles, full, 3)
	require.NoError(t, err)
	b, err := TouchNow(candles, wide, 3)
	require.NoError(t, err)

	// Anchors without a complete forward window contribute nothing.
	assert.Equal(t, a.SampleCount, b.SampleCount)
	assert.Equal(t, a, b)
}

func TestTouchParamsValidation(t *testing.T) {
	candles := flatCloseSeries()

	_, err := TouchNow(candles, TouchParams{HorizonBars: 0, PipSize: 1}, 3)
	assert.Error(t, err)

	_, err = TouchNow(candles, TouchParams{HorizonBars: 2, PipSize: 0}, 3)
	assert.Error(t, err)

	_, err = TouchNow(candles, TouchParams{LookbackStart: -1, HorizonBars: 2, PipSize: 1}, 3)
	assert.Error(t, err)

	_, err = TouchNow(candles, TouchParams{MaxStartIndex: len(candles), HorizonBars: 2, PipSize: 1}, 3)
	assert.Error(t, err)
}

func TestTouchSurfaceMatchesTouchNow(t *testing.T) {
	candles := flatCloseSeries()
	params := flatParams()
	targets := []float64{2, 3, 5}

	surface, err := TouchSurface(candles, params, targets)
	require.NoError(t, err)
	require.Equal(t, targets, surface.Xs)

	for j, target := range targets {
		single, err := TouchNow(candles, params, target)
		require.NoError(t, err)
		assert.InDelta(t, single.UpGeX, surface.Up[j], 1e-9)
		assert.InDelta(t, single.DownGeX, surface.Down[j], 1e-9)
		assert.InDelta(t, single.WithinPmX, surface.Within[j], 1e-9)
		assert.Equal(t, single.SampleCount, surface.SampleCount)
	}
}

func TestTouchSurfaceMonotoneNonIncreasing(t *testing.T) {
	surface, err := TouchSurface(flatCloseSeries(), flatParams(), []float64{1, 2, 3, 4, 5})
	require.NoError(t, err)

	for j := 1; j < len(surface.Xs); j++ {
		assert.LessOrEqual(t, surface.Up[j], surface.Up[j-1])
		assert.LessOrEqual(t, surface.Down[j], surface.Down[j-1])
	}
}

func TestPipSize(t *testing.T) {
	assert.Equal(t, 0.0001, PipSize("EURUSD"))
	assert.Equal(t, 0.0001, PipSize("eur/usd"))
	assert.Equal(t, 0.01, PipSize("USDJPY"))
	assert.Equal(t, DefaultPipSize, PipSize("BTCUSDT"))
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "EURUSD", NormalizeSymbol(" eur/usd "))
	assert.Equal(t, "XAUUSD", NormalizeSymbol("XAUUSD"))
}
