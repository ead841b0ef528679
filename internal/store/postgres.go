// Package store persists order-flow trades in Postgres and serves the
// window queries behind the batch footprint and session statistics.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/quantfold/orderflow/internal/domain/trade"
)

const schema = `
CREATE TABLE IF NOT EXISTS orderflow_trades (
    id           BIGSERIAL PRIMARY KEY,
    symbol       TEXT             NOT NULL,
    timestamp_ms BIGINT           NOT NULL,
    price        DOUBLE PRECISION NOT NULL,
    quantity     DOUBLE PRECISION NOT NULL,
    side         TEXT             NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orderflow_trades_symbol_ts
    ON orderflow_trades (symbol, timestamp_ms);
`

// TradeStore is the sqlx-backed persistence layer for normalized
// trades.
type TradeStore struct {
	db *sqlx.DB
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*TradeStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &TradeStore{db: db}, nil
}

// NewTradeStore wraps an existing connection, mainly for tests.
func NewTradeStore(db *sqlx.DB) *TradeStore {
	return &TradeStore{db: db}
}

// EnsureSchema creates the trades table and index when missing.
func (s *TradeStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure orderflow schema: %w", err)
	}
	return nil
}

// InsertBatch writes a batch of trades inside one transaction. Invalid
// ticks are skipped, consistent with the drop-at-the-boundary policy.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []trade.Normalized) error {
	valid := make([]trade.Normalized, 0, len(trades))
	for _, t := range trades {
		if t.Valid() {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO orderflow_trades (symbol, timestamp_ms, price, quantity, side) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range valid {
		if _, err := stmt.ExecContext(ctx, strings.ToLower(t.Symbol), t.Timestamp, t.Price, t.Quantity, string(t.Side)); err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert batch: %w", err)
	}
	return nil
}

// TradesSince returns up to limit trades for symbol at or after since,
// ascending by timestamp.
func (s *TradeStore) TradesSince(ctx context.Context, symbol string, since time.Time, limit int) ([]trade.Normalized, error) {
	if limit <= 0 {
		limit = 10_000
	}

	rows := []trade.Normalized{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT symbol, timestamp_ms, price, quantity, side
		   FROM orderflow_trades
		  WHERE symbol = $1 AND timestamp_ms >= $2
		  ORDER BY timestamp_ms ASC
		  LIMIT $3`,
		strings.ToLower(symbol), since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("select trades for %s: %w", symbol, err)
	}
	return rows, nil
}

// Close releases the underlying pool.
func (s *TradeStore) Close() error {
	return s.db.Close()
}
