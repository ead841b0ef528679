package footprint

import (
	"fmt"
	"sort"

	"github.com/quantfold/orderflow/internal/domain/trade"
	"github.com/quantfold/orderflow/internal/pricestep"
)

// RowSizeMode selects how the batch builder sizes its price rows.
type RowSizeMode string

const (
	// RowSizeTick uses the instrument tick size (explicit or inferred
	// from trade deltas).
	RowSizeTick RowSizeMode = "tick"
	// RowSizeATRAuto derives the row height from recent average true
	// range.
	RowSizeATRAuto RowSizeMode = "atr-auto"
)

const defaultATRPeriod = 14

// BatchCell is one price bucket of a batch bar with its derived stats.
type BatchCell struct {
	Price            float64    `json:"price"`
	BuyVolume        float64    `json:"buyVolume"`
	SellVolume       float64    `json:"sellVolume"`
	TotalVolume      float64    `json:"totalVolume"`
	Delta            float64    `json:"delta"`
	DominantSide     trade.Side `json:"dominantSide,omitempty"`
	ImbalancePercent float64    `json:"imbalancePercent"`
	TradesCount      int        `json:"tradesCount"`
}

// BatchBar is one fixed-size time bucket of the batch window. Buckets
// with no trades carry the previous close forward as a synthetic
// zero-volume bar so the time axis stays contiguous.
type BatchBar struct {
	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`

	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`

	Cells []BatchCell `json:"cells"`

	BuyVolume   float64 `json:"buyVolume"`
	SellVolume  float64 `json:"sellVolume"`
	TotalVolume float64 `json:"totalVolume"`
	Delta       float64 `json:"delta"`
	Synthetic   bool    `json:"synthetic,omitempty"`
}

// BuildOptions configures BuildBars.
type BuildOptions struct {
	// BucketSeconds is the time-bucket width. Required, positive.
	BucketSeconds int
	// WindowSeconds bounds the window ending at ReferenceTimestamp.
	// Zero means "all supplied trades".
	WindowSeconds int
	// ReferenceTimestamp (ms) is the exclusive right edge of the
	// window; ignored when WindowSeconds is zero.
	ReferenceTimestamp int64
	// RowSizeMode defaults to RowSizeTick.
	RowSizeMode RowSizeMode
	// TickSize, when positive, is used directly as the price step.
	TickSize float64
	// ATRPeriod bounds the ATR window for RowSizeATRAuto; defaults
	// to 14.
	ATRPeriod int
}

// BuildResult is the batch output plus the step that was actually used.
type BuildResult struct {
	Bars          []BatchBar `json:"bars"`
	PriceStepUsed float64    `json:"priceStepUsed"`
	DomainStart   int64      `json:"domainStart,omitempty"`
	DomainEnd     int64      `json:"domainEnd,omitempty"`
}

// BuildBars partitions a trade batch into fixed-size time buckets and
// builds a footprint ladder per bucket. Leading empty buckets are
// dropped; interior empty buckets become synthetic zero-volume bars
// carrying the previous close. Empty input yields an empty bar list
// with a best-effort step estimate. Invalid configuration is rejected
// before any work happens.
func BuildBars(trades []trade.Normalized, opts BuildOptions) (BuildResult, error) {
	if opts.BucketSeconds <= 0 {
		return BuildResult{}, fmt.Errorf("bucketSeconds must be positive, got %d", opts.BucketSeconds)
	}
	if opts.WindowSeconds < 0 {
		return BuildResult{}, fmt.Errorf("windowSeconds must not be negative, got %d", opts.WindowSeconds)
	}
	if opts.TickSize < 0 {
		return BuildResult{}, fmt.Errorf("tickSize must not be negative, got %v", opts.TickSize)
	}
	mode := opts.RowSizeMode
	if mode == "" {
		mode = RowSizeTick
	}
	if mode != RowSizeTick && mode != RowSizeATRAuto {
		return BuildResult{}, fmt.Errorf("unknown row size mode: %s", mode)
	}

	valid := filterWindow(trades, opts)
	if len(valid) == 0 {
		return BuildResult{PriceStepUsed: pricestep.Fallback(0)}, nil
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Timestamp < valid[j].Timestamp })

	bucketMS := int64(opts.BucketSeconds) * 1000
	anchor := BucketStart(valid[0].Timestamp, bucketMS)

	buckets := make(map[int64][]trade.Normalized)
	lastStart := anchor
	for _, t := range valid {
		start := anchor + ((t.Timestamp-anchor)/bucketMS)*bucketMS
		buckets[start] = append(buckets[start], t)
		if start > lastStart {
			lastStart = start
		}
	}

	step := resolveStep(valid, buckets, anchor, lastStart, bucketMS, mode, opts)

	bars := make([]BatchBar, 0, (lastStart-anchor)/bucketMS+1)
	var lastClose float64
	for start := anchor; start <= lastStart; start += bucketMS {
		bucket, populated := buckets[start]
		if !populated {
			// No trading activity: previous close carried forward.
			bars = append(bars, BatchBar{
				StartTime: start,
				EndTime:   start + bucketMS,
				Open:      lastClose,
				High:      lastClose,
				Low:       lastClose,
				Close:     lastClose,
				Cells:     []BatchCell{},
				Synthetic: true,
			})
			continue
		}

		bar := buildBar(bucket, start, bucketMS, step)
		lastClose = bar.Close
		bars = append(bars, bar)
	}

	return BuildResult{
		Bars:          bars,
		PriceStepUsed: step,
		DomainStart:   bars[0].StartTime,
		DomainEnd:     bars[len(bars)-1].EndTime,
	}, nil
}

func filterWindow(trades []trade.Normalized, opts BuildOptions) []trade.Normalized {
	var (
		windowed    = opts.WindowSeconds > 0 && opts.ReferenceTimestamp > 0
		windowStart int64
		windowEnd   int64
	)
	if windowed {
		windowEnd = opts.ReferenceTimestamp
		windowStart = windowEnd - int64(opts.WindowSeconds)*1000
	}

	valid := make([]trade.Normalized, 0, len(trades))
	for _, t := range trades {
		if !t.Valid() {
			continue
		}
		if windowed && (t.Timestamp < windowStart || t.Timestamp >= windowEnd) {
			continue
		}
		valid = append(valid, t)
	}
	return valid
}

func resolveStep(valid []trade.Normalized, buckets map[int64][]trade.Normalized, anchor, lastStart, bucketMS int64, mode RowSizeMode, opts BuildOptions) float64 {
	if opts.TickSize > 0 {
		return opts.TickSize
	}

	var step float64
	if mode == RowSizeATRAuto {
		period := opts.ATRPeriod
		if period <= 0 {
			period = defaultATRPeriod
		}
		step = pricestep.ATRStep(ohlcPerBucket(buckets, anchor, lastStart, bucketMS), period)
	}
	if step <= 0 {
		step = pricestep.InferFromTrades(valid)
	}
	if step <= 0 {
		step = pricestep.Fallback(valid[len(valid)-1].Price)
	}
	return step
}

func ohlcPerBucket(buckets map[int64][]trade.Normalized, anchor, lastStart, bucketMS int64) []pricestep.OHLC {
	bars := make([]pricestep.OHLC, 0, len(buckets))
	for start := anchor; start <= lastStart; start += bucketMS {
		bucket, ok := buckets[start]
		if !ok {
			continue
		}
		high, low := bucket[0].Price, bucket[0].Price
		for _, t := range bucket[1:] {
			if t.Price > high {
				high = t.Price
			}
			if t.Price < low {
				low = t.Price
			}
		}
		bars = append(bars, pricestep.OHLC{High: high, Low: low, Close: bucket[len(bucket)-1].Price})
	}
	return bars
}

func buildBar(bucket []trade.Normalized, start, bucketMS int64, step float64) BatchBar {
	open := bucket[0].Price
	closePrice := bucket[len(bucket)-1].Price
	high, low := open, open

	cellsByPrice := make(map[float64]*BatchCell)
	var buyVolume, sellVolume float64

	for _, t := range bucket {
		if t.Price > high {
			high = t.Price
		}
		if t.Price < low {
			low = t.Price
		}

		price := pricestep.Floor(t.Price, step)
		cell, ok := cellsByPrice[price]
		if !ok {
			cell = &BatchCell{Price: price}
			cellsByPrice[price] = cell
		}
		if t.Side == trade.SideBuy {
			cell.BuyVolume += t.Quantity
			buyVolume += t.Quantity
		} else {
			cell.SellVolume += t.Quantity
			sellVolume += t.Quantity
		}
		cell.TradesCount++
	}

	cells := make([]BatchCell, 0, len(cellsByPrice))
	for _, cell := range cellsByPrice {
		cell.TotalVolume = cell.BuyVolume + cell.SellVolume
		cell.Delta = cell.BuyVolume - cell.SellVolume
		cell.DominantSide = DominantSide(cell.BuyVolume, cell.SellVolume)
		cell.ImbalancePercent = ImbalancePercent(cell.BuyVolume, cell.SellVolume)
		cells = append(cells, *cell)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Price < cells[j].Price })

	return BatchBar{
		StartTime:   start,
		EndTime:     start + bucketMS,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closePrice,
		Cells:       cells,
		BuyVolume:   buyVolume,
		SellVolume:  sellVolume,
		TotalVolume: buyVolume + sellVolume,
		Delta:       buyVolume - sellVolume,
	}
}
