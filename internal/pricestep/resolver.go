package pricestep

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/quantfold/orderflow/internal/cache"
	"github.com/quantfold/orderflow/internal/domain/trade"
	"github.com/quantfold/orderflow/internal/metrics"
)

// DefaultEndpoints are equivalent exchangeInfo mirrors, tried in order.
var DefaultEndpoints = []string{
	"https://api.binance.com/api/v3/exchangeInfo",
	"https://data-api.binance.vision/api/v3/exchangeInfo",
}

// DefaultTTL bounds how long an authoritative tick size is reused.
// Exchange tick sizes rarely change, so a day is comfortable.
const DefaultTTL = 24 * time.Hour

const cacheKeyPrefix = "pricestep:"

// ResolverConfig tunes the metadata lookup path.
type ResolverConfig struct {
	Endpoints      []string
	RequestTimeout time.Duration
	TTL            time.Duration
	RequestsPerSec float64
}

func (c *ResolverConfig) applyDefaults() {
	if len(c.Endpoints) == 0 {
		c.Endpoints = DefaultEndpoints
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.RequestsPerSec <= 0 {
		c.RequestsPerSec = 2
	}
}

// Resolver determines the bucket width for a symbol: authoritative
// exchange metadata first, heuristics when that path is unavailable.
// Metadata lookups are rate limited, breakered, and TTL-cached with
// in-flight coalescing so concurrent demand produces one network call.
type Resolver struct {
	cfg     ResolverConfig
	client  *http.Client
	loader  *cache.Loader
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	reg     *metrics.Registry
}

// NewResolver builds a Resolver on top of the given cache store.
// reg may be nil when instrumentation is not wanted.
func NewResolver(cfg ResolverConfig, store cache.Cache, reg *metrics.Registry) *Resolver {
	cfg.applyDefaults()
	if store == nil {
		store = cache.NewMemory()
	}
	return &Resolver{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		loader:  cache.NewLoader(store),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "exchange_info",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		reg: reg,
	}
}

// Sample carries the optional heuristic inputs for Resolve.
type Sample struct {
	// Trades feeds the median consecutive-delta inference.
	Trades []trade.Normalized
	// Bars feeds the ATR-based estimate when present.
	Bars []OHLC
	// ATRPeriod bounds the ATR window; defaults to 14.
	ATRPeriod int
	// ReferencePrice anchors the percentage fallback.
	ReferencePrice float64
}

// Resolve returns a usable positive step for symbol. The metadata path
// failing is a warning-level condition, never an error: the resolver
// degrades through trade-delta inference, ATR estimation, and the
// percentage floor before settling on DefaultStep.
func (r *Resolver) Resolve(ctx context.Context, symbol string, sample Sample) float64 {
	start := time.Now()
	step, err := r.tickSize(ctx, symbol)
	if err == nil && isFinite(step) && step > 0 {
		r.observe("metadata", start)
		return step
	}
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("exchange metadata unavailable, falling back to heuristic step")
	}

	if step := r.heuristic(sample); step > 0 {
		r.observe("heuristic", start)
		return step
	}

	r.observe("fallback", start)
	return Fallback(sample.ReferencePrice)
}

// Heuristic resolves a step without touching the network, for callers
// that explicitly requested adaptive sizing.
func (r *Resolver) Heuristic(sample Sample) float64 {
	if step := r.heuristic(sample); step > 0 {
		return step
	}
	return Fallback(sample.ReferencePrice)
}

func (r *Resolver) heuristic(sample Sample) float64 {
	if len(sample.Bars) > 0 {
		period := sample.ATRPeriod
		if period <= 0 {
			period = 14
		}
		if step := ATRStep(sample.Bars, period); step > 0 {
			return step
		}
	}
	if step := InferFromTrades(sample.Trades); step > 0 {
		return step
	}
	return 0
}

// tickSize fetches the authoritative tick size through the TTL cache.
func (r *Resolver) tickSize(ctx context.Context, symbol string) (float64, error) {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if upper == "" {
		return 0, fmt.Errorf("empty symbol")
	}

	fetched := false
	raw, err := r.loader.GetOrFetch(ctx, cacheKeyPrefix+upper, r.cfg.TTL, func(ctx context.Context) ([]byte, error) {
		fetched = true
		step, err := r.fetchTickSize(ctx, upper)
		if err != nil {
			return nil, err
		}
		return strconv.AppendFloat(nil, step, 'f', -1, 64), nil
	})
	r.countCache(fetched)
	if err != nil {
		return 0, err
	}

	step, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt cached step %q: %w", raw, err)
	}
	return step, nil
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol  string `json:"symbol"`
		Filters []struct {
			FilterType string `json:"filterType"`
			TickSize   string `json:"tickSize"`
		} `json:"filters"`
	} `json:"symbols"`
}

// fetchTickSize tries each configured endpoint in order; the first
// success wins.
func (r *Resolver) fetchTickSize(ctx context.Context, symbol string) (float64, error) {
	var lastErr error
	for _, endpoint := range r.cfg.Endpoints {
		step, err := r.fetchFrom(ctx, endpoint, symbol)
		if err == nil {
			return step, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return 0, fmt.Errorf("all %d exchange info endpoints failed: %w", len(r.cfg.Endpoints), lastErr)
}

func (r *Resolver) fetchFrom(ctx context.Context, endpoint, symbol string) (float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		reqCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
		defer cancel()

		url := fmt.Sprintf("%s?symbol=%s", endpoint, symbol)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("http %d from %s", resp.StatusCode, endpoint)
		}

		var info exchangeInfo
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return nil, fmt.Errorf("decode exchange info: %w", err)
		}
		return parseTickSize(info, symbol)
	})
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}

func parseTickSize(info exchangeInfo, symbol string) (float64, error) {
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		for _, f := range s.Filters {
			if f.FilterType != "PRICE_FILTER" {
				continue
			}
			tick, err := strconv.ParseFloat(f.TickSize, 64)
			if err != nil || !isFinite(tick) || tick <= 0 {
				return 0, fmt.Errorf("unusable tick size %q for %s", f.TickSize, symbol)
			}
			return tick, nil
		}
	}
	return 0, fmt.Errorf("no PRICE_FILTER for %s", symbol)
}

func (r *Resolver) observe(outcome string, start time.Time) {
	if r.reg == nil {
		return
	}
	r.reg.ResolveDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func (r *Resolver) countCache(missed bool) {
	if r.reg == nil {
		return
	}
	if missed {
		r.reg.CacheMisses.WithLabelValues("pricestep").Inc()
	} else {
		r.reg.CacheHits.WithLabelValues("pricestep").Inc()
	}
}
