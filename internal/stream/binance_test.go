package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/orderflow/internal/domain/trade"
)

func TestNewClientRequiresSymbol(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(Config{Symbol: "BTCUSDT"}, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.cfg.BackoffMin)
	assert.Equal(t, 30*time.Second, c.cfg.BackoffMax)
	assert.Equal(t, 256, c.cfg.Buffer)
	assert.Equal(t, DefaultBaseURL+"/btcusdt@aggTrade", c.URL())
}

func TestBackoffSchedule(t *testing.T) {
	c, err := NewClient(Config{
		Symbol:     "BTCUSDT",
		BackoffMin: time.Second,
		BackoffMax: 30 * time.Second,
	}, nil)
	require.NoError(t, err)

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for attempt, expected := range want {
		assert.Equal(t, expected, c.backoff(attempt), "attempt %d", attempt)
	}
}

func TestRunDeliversNormalizedTrades(t *testing.T) {
	upgrader := websocket.Upgrader{}
	frames := []string{
		`{"s":"BTCUSDT","p":"100.5","q":"2","T":1700000000000,"m":false}`,
		`not json`,
		`{"s":"BTCUSDT","p":"100.6","q":"1","T":1700000000100,"m":true}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c, err := NewClient(Config{
		Symbol:     "BTCUSDT",
		BaseURL:    "ws" + strings.TrimPrefix(srv.URL, "http"),
		BackoffMin: 10 * time.Millisecond,
		BackoffMax: 50 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	var got []trade.Normalized
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case tick := <-c.Trades():
			got = append(got, tick)
		case <-timeout:
			t.Fatal("timed out waiting for trades")
		}
	}

	assert.Equal(t, 100.5, got[0].Price)
	assert.Equal(t, trade.SideBuy, got[0].Side)
	assert.Equal(t, 100.6, got[1].Price)
	assert.Equal(t, trade.SideSell, got[1].Side)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}
