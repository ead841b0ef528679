package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantfold/orderflow/internal/domain/footprint"
	"github.com/quantfold/orderflow/internal/domain/orderflow"
	"github.com/quantfold/orderflow/internal/domain/portfolio"
	"github.com/quantfold/orderflow/internal/domain/probability"
)

const (
	defaultMaxBars = 120
	maxMaxBars     = 500

	defaultSessionWindowSeconds = 86_400
	maxSessionWindowSeconds     = 86_400

	maxTradesPerRequest = 50_000

	minHorizonBars  = 1
	maxHorizonBars  = 500
	minLookbackBars = 50
	maxLookbackBars = 5_000
	minTargetX      = 1
	maxTargetX      = 500
	maxTargetCount  = 25
)

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Error: message})
}

// GET /v1/footprint?symbol=&timeframe=&priceStep=&maxBars=
func (s *Server) handleFootprint(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		writeError(w, http.StatusServiceUnavailable, "trade store not configured")
		return
	}

	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	tf := footprint.Timeframe(strings.TrimSpace(r.URL.Query().Get("timeframe")))
	tfMS, err := tf.Millis()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid timeframe")
		return
	}

	maxBars := parsePositiveInt(r.URL.Query().Get("maxBars"), defaultMaxBars, maxMaxBars)
	priceStep := parsePositiveFloat(r.URL.Query().Get("priceStep"))

	since := time.Now().Add(-time.Duration(tfMS) * time.Duration(maxBars) * time.Millisecond)
	limit := maxBars * 1000
	if limit > maxTradesPerRequest {
		limit = maxTradesPerRequest
	}

	trades, err := s.trades.TradesSince(r.Context(), symbol, since, limit)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("footprint trade query failed")
		writeError(w, http.StatusBadGateway, "failed to load trades")
		return
	}

	result, err := footprint.BuildBars(trades, footprint.BuildOptions{
		BucketSeconds: int(tfMS / 1000),
		RowSizeMode:   footprint.RowSizeTick,
		TickSize:      priceStep,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /v1/orderflow/session-stats?symbol=&sessionWindowSeconds=
func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		writeError(w, http.StatusServiceUnavailable, "trade store not configured")
		return
	}

	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	windowSeconds := parsePositiveInt(r.URL.Query().Get("sessionWindowSeconds"), defaultSessionWindowSeconds, maxSessionWindowSeconds)
	since := time.Now().Add(-time.Duration(windowSeconds) * time.Second)

	trades, err := s.trades.TradesSince(r.Context(), symbol, since, 0)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("session stats trade query failed")
		writeError(w, http.StatusBadGateway, "failed to load trades")
		return
	}

	writeJSON(w, http.StatusOK, orderflow.Summarize(trades, since.UnixMilli(), 0))
}

type probabilityRequest struct {
	Symbol       string               `json:"symbol"`
	Candles      []probability.Candle `json:"candles"`
	HorizonBars  int                  `json:"horizonBars"`
	LookbackBars int                  `json:"lookbackBars"`
	TargetX      float64              `json:"targetX"`
	TargetXs     []float64            `json:"targetXs"`
	Event        string               `json:"event"`
	PipSize      float64              `json:"pipSize"`
}

// clampProbabilityRequest normalizes bounds; reports whether anything
// was clamped.
func clampProbabilityRequest(req *probabilityRequest) bool {
	clamped := false
	if req.HorizonBars < minHorizonBars {
		req.HorizonBars = minHorizonBars
		clamped = true
	}
	if req.HorizonBars > maxHorizonBars {
		req.HorizonBars = maxHorizonBars
		clamped = true
	}
	if req.LookbackBars < minLookbackBars {
		req.LookbackBars = minLookbackBars
		clamped = true
	}
	if req.LookbackBars > maxLookbackBars {
		req.LookbackBars = maxLookbackBars
		clamped = true
	}
	return clamped
}

// touchWindow derives the anchor range from the candle count, horizon,
// and requested lookback, mirroring the lookback clamping of the
// surface contract.
func touchWindow(candleCount, horizonBars, lookbackBars int) (lookbackStart, maxStartIndex int, ok bool) {
	entryIndex := candleCount - 2
	if entryIndex <= 0 {
		return 0, 0, false
	}

	maxLookback := entryIndex - horizonBars
	if maxLookback < 1 {
		return 0, 0, false
	}
	effectiveLookback := lookbackBars
	if effectiveLookback > maxLookback {
		effectiveLookback = maxLookback
	}

	maxStartIndex = entryIndex - horizonBars
	lookbackStart = maxStartIndex - effectiveLookback + 1
	if lookbackStart < 0 {
		lookbackStart = 0
	}
	return lookbackStart, maxStartIndex, true
}

// POST /v1/probability/query
func (s *Server) handleProbabilityQuery(w http.ResponseWriter, r *http.Request) {
	var req probabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if len(req.Candles) == 0 {
		writeError(w, http.StatusBadRequest, "candles are required")
		return
	}
	if req.TargetX < minTargetX || req.TargetX > maxTargetX {
		writeError(w, http.StatusBadRequest, "targetX out of range")
		return
	}
	clampProbabilityRequest(&req)

	pip := req.PipSize
	if pip <= 0 {
		pip = probability.PipSize(req.Symbol)
	}

	switch req.Event {
	case "", "touch":
		lookbackStart, maxStartIndex, ok := touchWindow(len(req.Candles), req.HorizonBars, req.LookbackBars)
		if !ok {
			writeError(w, http.StatusBadGateway, "insufficient data to compute probabilities")
			return
		}
		result, err := probability.TouchNow(req.Candles, probability.TouchParams{
			LookbackStart: lookbackStart,
			MaxStartIndex: maxStartIndex,
			HorizonBars:   req.HorizonBars,
			PipSize:       pip,
		}, req.TargetX)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	case "end":
		estimate, err := probability.EstimateEnd(req.Candles, req.LookbackBars, req.HorizonBars, req.TargetX*pip, probability.DefaultModelConfig())
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, estimate)
	default:
		writeError(w, http.StatusBadRequest, "event must be touch or end")
	}
}

// POST /v1/probability/surface
func (s *Server) handleProbabilitySurface(w http.ResponseWriter, r *http.Request) {
	var req probabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if len(req.Candles) == 0 {
		writeError(w, http.StatusBadRequest, "candles are required")
		return
	}
	clampProbabilityRequest(&req)

	targets, err := normalizeTargets(req.TargetXs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pip := req.PipSize
	if pip <= 0 {
		pip = probability.PipSize(req.Symbol)
	}

	lookbackStart, maxStartIndex, ok := touchWindow(len(req.Candles), req.HorizonBars, req.LookbackBars)
	if !ok {
		writeError(w, http.StatusBadGateway, "insufficient data to compute probabilities")
		return
	}
	params := probability.TouchParams{
		LookbackStart: lookbackStart,
		MaxStartIndex: maxStartIndex,
		HorizonBars:   req.HorizonBars,
		PipSize:       pip,
	}

	var result probability.SurfaceResult
	switch req.Event {
	case "", "touch":
		result, err = probability.TouchSurface(req.Candles, params, targets)
	case "end":
		result, err = probability.EndSurface(req.Candles, params, targets)
	default:
		writeError(w, http.StatusBadRequest, "event must be touch or end")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

var defaultTargetXs = []float64{5, 10, 15, 20, 25}

// normalizeTargets clamps, dedups, and sorts the requested thresholds.
func normalizeTargets(raw []float64) ([]float64, error) {
	if len(raw) == 0 {
		return append([]float64(nil), defaultTargetXs...), nil
	}
	if len(raw) > maxTargetCount {
		return nil, errors.New("targetXs must include 1 to 25 values")
	}

	seen := make(map[float64]struct{}, len(raw))
	targets := make([]float64, 0, len(raw))
	for _, x := range raw {
		if x < minTargetX {
			x = minTargetX
		}
		if x > maxTargetX {
			x = maxTargetX
		}
		if _, dup := seen[x]; dup {
			continue
		}
		seen[x] = struct{}{}
		targets = append(targets, x)
	}
	if len(targets) == 0 {
		return nil, errors.New("targetXs must include at least one usable value")
	}
	sort.Float64s(targets)
	return targets, nil
}

type portfolioRequest struct {
	Series        []portfolio.SeriesPoint `json:"series"`
	Benchmark     []portfolio.SeriesPoint `json:"benchmark"`
	RiskFreeDaily float64                 `json:"riskFreeDaily"`
}

type portfolioResponse struct {
	Ratios  portfolio.Ratios        `json:"ratios"`
	Returns []portfolio.ReturnPoint `json:"returns"`
}

// POST /v1/portfolio/analytics
func (s *Server) handlePortfolioAnalytics(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if len(req.Series) == 0 {
		writeError(w, http.StatusBadRequest, "series is required")
		return
	}

	writeJSON(w, http.StatusOK, portfolioResponse{
		Ratios:  portfolio.ComputeRatios(req.Series, req.Benchmark, req.RiskFreeDaily),
		Returns: portfolio.ComputeReturns(req.Series),
	})
}

func parsePositiveInt(raw string, fallback, max int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || parsed <= 0 {
		return fallback
	}
	if parsed > max {
		return max
	}
	return parsed
}

func parsePositiveFloat(raw string) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || parsed <= 0 {
		return 0
	}
	return parsed
}
