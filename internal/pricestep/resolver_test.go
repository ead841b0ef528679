package pricestep

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/orderflow/internal/cache"
)

const exchangeInfoBody = `{
	"symbols": [
		{
			"symbol": "BTCUSDT",
			"filters": [
				{"filterType": "LOT_SIZE", "minQty": "0.00001"},
				{"filterType": "PRICE_FILTER", "tickSize": "0.01000000"}
			]
		}
	]
}`

func testResolverConfig(endpoints ...string) ResolverConfig {
	return ResolverConfig{
		Endpoints:      endpoints,
		RequestTimeout: 2 * time.Second,
		TTL:            time.Minute,
		RequestsPerSec: 1000,
	}
}

func TestResolveUsesExchangeMetadata(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, exchangeInfoBody)
	}))
	defer srv.Close()

	r := NewResolver(testResolverConfig(srv.URL), cache.NewMemory(), nil)
	step := r.Resolve(context.Background(), "btcusdt", Sample{})
	assert.Equal(t, 0.01, step)

	// Second resolve is served from the TTL cache.
	assert.Equal(t, 0.01, r.Resolve(context.Background(), "BTCUSDT", Sample{}))
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestResolveFallsThroughEndpoints(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, exchangeInfoBody)
	}))
	defer healthy.Close()

	r := NewResolver(testResolverConfig(broken.URL, healthy.URL), cache.NewMemory(), nil)
	assert.Equal(t, 0.01, r.Resolve(context.Background(), "BTCUSDT", Sample{}))
}

func TestResolveDegradesToHeuristics(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	r := NewResolver(testResolverConfig(down.URL), cache.NewMemory(), nil)
	step := r.Resolve(context.Background(), "BTCUSDT", Sample{
		Trades: tradesAt(100.0, 100.5, 101.0, 102.0),
	})
	assert.InDelta(t, 0.5, step, 1e-9)
}

func TestResolveFallbackWithoutSample(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	r := NewResolver(testResolverConfig(down.URL), cache.NewMemory(), nil)
	assert.Equal(t, 25.0, r.Resolve(context.Background(), "BTCUSDT", Sample{ReferencePrice: 50000}))
	assert.Equal(t, DefaultStep, r.Resolve(context.Background(), "ETHUSDT", Sample{}))
}

func TestHeuristicPrefersBarsOverTrades(t *testing.T) {
	r := NewResolver(testResolverConfig("http://unused.invalid"), cache.NewMemory(), nil)
	step := r.Heuristic(Sample{
		Bars:   []OHLC{{High: 101, Low: 100, Close: 100.5}},
		Trades: tradesAt(100.0, 100.5, 101.0),
	})
	assert.InDelta(t, 0.1, step, 1e-9)
}

func TestParseTickSize(t *testing.T) {
	var info exchangeInfo
	require.NoError(t, json.Unmarshal([]byte(exchangeInfoBody), &info))

	tick, err := parseTickSize(info, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 0.01, tick)

	_, err = parseTickSize(info, "ETHUSDT")
	assert.Error(t, err)
}
