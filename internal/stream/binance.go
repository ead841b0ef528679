// Package stream delivers normalized trades from an exchange WebSocket
// feed. Reconnection policy lives here, behind the transport boundary:
// consumers only ever see a channel of trade.Normalized.
package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/orderflow/internal/domain/trade"
	"github.com/quantfold/orderflow/internal/metrics"
)

// DefaultBaseURL is the Binance spot combined-stream endpoint.
const DefaultBaseURL = "wss://stream.binance.com:9443/ws"

// Config tunes one symbol's trade stream.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Symbol is the instrument to subscribe to, e.g. "BTCUSDT".
	Symbol string
	// BackoffMin is the first reconnect delay; defaults to 1s.
	BackoffMin time.Duration
	// BackoffMax caps the exponential reconnect delay; defaults to 30s.
	BackoffMax time.Duration
	// Buffer sizes the outgoing trade channel; defaults to 256.
	Buffer int
}

func (c *Config) applyDefaults() error {
	if strings.TrimSpace(c.Symbol) == "" {
		return fmt.Errorf("stream symbol is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	return nil
}

// Client maintains one aggTrade subscription with capped exponential
// backoff across reconnects.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	reg    *metrics.Registry
	out    chan trade.Normalized
}

// NewClient validates cfg and prepares a client. reg may be nil.
func NewClient(cfg Config, reg *metrics.Registry) (*Client, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		reg:    reg,
		out:    make(chan trade.Normalized, cfg.Buffer),
	}, nil
}

// Trades is the channel of normalized ticks. Closed when Run returns.
func (c *Client) Trades() <-chan trade.Normalized {
	return c.out
}

// URL returns the stream endpoint for the configured symbol.
func (c *Client) URL() string {
	return fmt.Sprintf("%s/%s@aggTrade", c.cfg.BaseURL, strings.ToLower(c.cfg.Symbol))
}

// Run drives the connect/read/reconnect loop until ctx is cancelled.
// Each connection gets its own id so log lines across reconnects stay
// attributable.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.out)

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		connID := uuid.NewString()
		logger := log.With().Str("symbol", c.cfg.Symbol).Str("conn_id", connID).Logger()

		established, err := c.readLoop(ctx, logger)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if established {
			attempt = 0
		}

		delay := c.backoff(attempt)
		attempt++
		c.countReconnect()
		logger.Warn().Err(err).Dur("retry_in", delay).Int("attempt", attempt).Msg("trade stream disconnected")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// readLoop holds one connection open and pumps frames until it fails.
func (c *Client) readLoop(ctx context.Context, logger zerolog.Logger) (bool, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.URL(), nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.URL(), err)
	}
	defer conn.Close()

	logger.Info().Str("url", c.URL()).Msg("trade stream connected")

	// Unblock ReadMessage on cancellation.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read frame: %w", err)
		}

		tick, ok := trade.ParseFrame(frame)
		if !ok {
			c.countDropped()
			continue
		}
		if tick.Symbol == "" {
			tick.Symbol = strings.ToUpper(c.cfg.Symbol)
		}

		select {
		case c.out <- tick:
			c.countIngested()
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}

// backoff returns min(BackoffMin*2^attempt, BackoffMax).
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.BackoffMin
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= c.cfg.BackoffMax {
			return c.cfg.BackoffMax
		}
	}
	if delay > c.cfg.BackoffMax {
		return c.cfg.BackoffMax
	}
	return delay
}

func (c *Client) countReconnect() {
	if c.reg != nil {
		c.reg.Reconnects.WithLabelValues(c.cfg.Symbol).Inc()
	}
}

func (c *Client) countDropped() {
	if c.reg != nil {
		c.reg.FramesDropped.WithLabelValues(c.cfg.Symbol).Inc()
	}
}

func (c *Client) countIngested() {
	if c.reg != nil {
		c.reg.TradesIngested.WithLabelValues(c.cfg.Symbol).Inc()
	}
}
