// Package server exposes the aggregation and statistics engines over
// HTTP. It owns request parsing, clamping, and status mapping only; all
// numeric work happens in the domain packages.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/orderflow/internal/domain/trade"
	"github.com/quantfold/orderflow/internal/metrics"
)

// TradeSource is the slice of the store the handlers need.
type TradeSource interface {
	TradesSince(ctx context.Context, symbol string, since time.Time, limit int) ([]trade.Normalized, error)
}

// Server wires the HTTP API.
type Server struct {
	trades TradeSource
	reg    *metrics.Registry
	router *mux.Router
}

// New builds the router. trades may be nil, in which case the
// store-backed endpoints report 503.
func New(trades TradeSource, reg *metrics.Registry) *Server {
	s := &Server{trades: trades, reg: reg, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.reg != nil {
		s.router.Handle("/metrics", s.reg.Handler()).Methods(http.MethodGet)
	}

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/footprint", s.handleFootprint).Methods(http.MethodGet)
	v1.HandleFunc("/orderflow/session-stats", s.handleSessionStats).Methods(http.MethodGet)
	v1.HandleFunc("/probability/query", s.handleProbabilityQuery).Methods(http.MethodPost)
	v1.HandleFunc("/probability/surface", s.handleProbabilitySurface).Methods(http.MethodPost)
	v1.HandleFunc("/portfolio/analytics", s.handlePortfolioAnalytics).Methods(http.MethodPost)
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
