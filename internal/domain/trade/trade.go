// Package trade defines the canonical trade tick and its normalization
// from raw exchange messages.
package trade

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Side is the aggressor side of a trade.
type Side string

const (
	// SideBuy means the taker crossed the ask.
	SideBuy Side = "buy"
	// SideSell means the taker hit the bid.
	SideSell Side = "sell"
)

// Normalized is a canonical trade tick. Immutable once constructed;
// created per incoming message and discarded after aggregation.
type Normalized struct {
	Symbol    string  `json:"symbol,omitempty" db:"symbol"`
	Timestamp int64   `json:"timestamp" db:"timestamp_ms"` // ms since epoch
	Price     float64 `json:"price" db:"price"`
	Quantity  float64 `json:"quantity" db:"quantity"`
	Side      Side    `json:"side" db:"side"`
}

// AggTradeMessage mirrors the Binance aggTrade/trade payload fields the
// normalizer consumes. Price and quantity arrive as strings.
type AggTradeMessage struct {
	Symbol       string `json:"s"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	EventTime    int64  `json:"E"`
	IsBuyerMaker bool   `json:"m"`
}

// ClassifySide maps the exchange maker flag to the aggressor side.
// isBuyerMaker=true means the buyer rested, so the aggressor sold.
// The mapping is fixed here and applied uniformly; flipping it inverts
// every downstream delta and footprint column.
func ClassifySide(isBuyerMaker bool) Side {
	if isBuyerMaker {
		return SideSell
	}
	return SideBuy
}

// Normalize converts a raw aggTrade message into a Normalized tick.
// Returns false when price, quantity, or timestamp is not a finite
// number; corrupt frames are dropped, never surfaced as errors.
func Normalize(msg AggTradeMessage) (Normalized, bool) {
	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil || !isFinite(price) || price <= 0 {
		return Normalized{}, false
	}
	quantity, err := strconv.ParseFloat(msg.Quantity, 64)
	if err != nil || !isFinite(quantity) || quantity <= 0 {
		return Normalized{}, false
	}

	ts := msg.TradeTime
	if ts == 0 {
		ts = msg.EventTime
	}
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	if ts < 0 {
		return Normalized{}, false
	}

	return Normalized{
		Symbol:    msg.Symbol,
		Timestamp: ts,
		Price:     price,
		Quantity:  quantity,
		Side:      ClassifySide(msg.IsBuyerMaker),
	}, true
}

// ParseFrame normalizes a raw websocket frame. Unparseable frames are
// dropped the same way malformed numeric fields are.
func ParseFrame(frame []byte) (Normalized, bool) {
	var msg AggTradeMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Normalized{}, false
	}
	return Normalize(msg)
}

// Valid reports whether the tick carries usable numeric fields.
func (n Normalized) Valid() bool {
	return isFinite(n.Price) && isFinite(n.Quantity) && n.Timestamp > 0
}

// Time returns the trade timestamp as a time.Time.
func (n Normalized) Time() time.Time {
	return time.UnixMilli(n.Timestamp)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
