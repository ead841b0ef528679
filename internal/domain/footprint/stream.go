package footprint

import (
	"sort"
	"time"

	"github.com/quantfold/orderflow/internal/domain/trade"
	"github.com/quantfold/orderflow/internal/pricestep"
)

// Aggregator accumulates a live trade stream into footprint candles for
// one symbol. It is single-writer: trades must be applied sequentially
// from one goroutine. Multiple symbols get their own Aggregator each;
// state is never shared across instances.
type Aggregator struct {
	symbol     string
	timeframe  Timeframe
	intervalMS int64
	priceStep  float64

	bars map[int64]*mutableBar
}

type mutableBar struct {
	startTime int64
	open      float64
	high      float64
	low       float64
	close     float64
	askTotal  float64
	bidTotal  float64
	levels    map[float64]*Cell
}

// NewAggregator creates an empty aggregator. The timeframe key is
// validated eagerly; an unknown key never creates state.
func NewAggregator(symbol string, tf Timeframe, priceStep float64) (*Aggregator, error) {
	intervalMS, err := tf.Millis()
	if err != nil {
		return nil, err
	}
	return &Aggregator{
		symbol:     symbol,
		timeframe:  tf,
		intervalMS: intervalMS,
		priceStep:  priceStep,
		bars:       make(map[int64]*mutableBar),
	}, nil
}

// PriceStep returns the configured bucket width (0 means raw prices).
func (a *Aggregator) PriceStep() float64 {
	return a.priceStep
}

// Ingest applies one normalized trade. Re-ingesting the same trade adds
// again: accumulation is additive, not deduplicating, so a duplicate
// tick after a reconnect is a harmless re-addition into its bucket.
func (a *Aggregator) Ingest(t trade.Normalized) {
	if !t.Valid() {
		return
	}

	start := BucketStart(t.Timestamp, a.intervalMS)
	bar, ok := a.bars[start]
	if !ok {
		bar = &mutableBar{
			startTime: start,
			open:      t.Price,
			high:      t.Price,
			low:       t.Price,
			close:     t.Price,
			levels:    make(map[float64]*Cell),
		}
		a.bars[start] = bar
	} else {
		bar.close = t.Price
		if t.Price > bar.high {
			bar.high = t.Price
		}
		if t.Price < bar.low {
			bar.low = t.Price
		}
	}

	bucketed := pricestep.Floor(t.Price, a.priceStep)
	cell, ok := bar.levels[bucketed]
	if !ok {
		cell = &Cell{Price: bucketed}
		bar.levels[bucketed] = cell
	}

	if t.Side == trade.SideBuy {
		cell.AskVolume += t.Quantity
		bar.askTotal += t.Quantity
	} else {
		cell.BidVolume += t.Quantity
		bar.bidTotal += t.Quantity
	}
	cell.TradesCount++
}

// Prune evicts buckets whose start is older than now-window. It is
// meant for a periodic housekeeping cadence, not per-trade invocation,
// and only removes buckets strictly behind the cutoff so the bucket
// currently being written is never touched. Returns the eviction count.
func (a *Aggregator) Prune(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window).UnixMilli()
	pruned := 0
	for start := range a.bars {
		if start < cutoff {
			delete(a.bars, start)
			pruned++
		}
	}
	return pruned
}

// TrimTo keeps only the most recent max buckets.
func (a *Aggregator) TrimTo(max int) int {
	if max <= 0 || len(a.bars) <= max {
		return 0
	}
	starts := a.sortedStarts()
	trimmed := 0
	for _, start := range starts[:len(starts)-max] {
		delete(a.bars, start)
		trimmed++
	}
	return trimmed
}

// Len reports the number of open buckets.
func (a *Aggregator) Len() int {
	return len(a.bars)
}

// Snapshot materializes the current state as immutable bars, ascending
// by start time with each ladder ascending by price.
func (a *Aggregator) Snapshot() []Bar {
	starts := a.sortedStarts()
	bars := make([]Bar, 0, len(starts))
	for _, start := range starts {
		mb := a.bars[start]
		cells := make([]Cell, 0, len(mb.levels))
		for _, cell := range mb.levels {
			cells = append(cells, *cell)
		}
		sort.Slice(cells, func(i, j int) bool { return cells[i].Price < cells[j].Price })

		bars = append(bars, Bar{
			Symbol:         a.symbol,
			Timeframe:      a.timeframe,
			StartTime:      mb.startTime,
			EndTime:        mb.startTime + a.intervalMS,
			Open:           mb.open,
			High:           mb.high,
			Low:            mb.low,
			Close:          mb.close,
			Cells:          cells,
			TotalAskVolume: mb.askTotal,
			TotalBidVolume: mb.bidTotal,
			Delta:          mb.askTotal - mb.bidTotal,
		})
	}
	return bars
}

func (a *Aggregator) sortedStarts() []int64 {
	starts := make([]int64, 0, len(a.bars))
	for start := range a.bars {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	return starts
}
