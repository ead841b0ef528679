package footprint

import "github.com/quantfold/orderflow/internal/domain/trade"

// Cell is one price bucket inside a candle. The ask column tracks
// buy-aggressor volume and the bid column sell-aggressor volume,
// matching conventional footprint semantics.
type Cell struct {
	Price       float64 `json:"price"`
	BidVolume   float64 `json:"bidVolume"`
	AskVolume   float64 `json:"askVolume"`
	TradesCount int     `json:"tradesCount"`
}

// Total is the combined volume at this level.
func (c Cell) Total() float64 {
	return c.BidVolume + c.AskVolume
}

// Bar is one completed or in-progress time bucket with its price ladder.
// Cells are sorted ascending by price; descending "book" ordering is a
// presentation concern.
type Bar struct {
	Symbol    string    `json:"symbol,omitempty"`
	Timeframe Timeframe `json:"timeframe,omitempty"`

	StartTime int64 `json:"startTime"` // ms since epoch, inclusive
	EndTime   int64 `json:"endTime"`   // ms since epoch, exclusive

	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`

	Cells []Cell `json:"cells"`

	TotalBidVolume float64 `json:"totalBidVolume"`
	TotalAskVolume float64 `json:"totalAskVolume"`
	Delta          float64 `json:"delta"` // ask minus bid
}

// DominantSide reports which aggressor side carried more volume in a
// buy/sell pair, or "" when balanced.
func DominantSide(buyVolume, sellVolume float64) trade.Side {
	switch {
	case buyVolume > sellVolume:
		return trade.SideBuy
	case sellVolume > buyVolume:
		return trade.SideSell
	default:
		return ""
	}
}

// ImbalancePercent is |buy-sell|/total*100, 0 on zero total volume.
func ImbalancePercent(buyVolume, sellVolume float64) float64 {
	total := buyVolume + sellVolume
	if total <= 0 {
		return 0
	}
	diff := buyVolume - sellVolume
	if diff < 0 {
		diff = -diff
	}
	return diff / total * 100
}
