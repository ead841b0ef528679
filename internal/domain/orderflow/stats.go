// Package orderflow derives session-level statistics from a trade
// window: delta, VWAP, per-side volume, and the busiest volume cluster.
package orderflow

import (
	"sort"

	"github.com/quantfold/orderflow/internal/domain/trade"
)

// ClusterWindowMS is the fixed sub-window size used to locate the
// largest volume cluster, independent of any footprint bucket size.
const ClusterWindowMS = 60_000

// Cluster is the highest-volume sub-window of a session.
type Cluster struct {
	StartTimestamp int64   `json:"startTimestamp"`
	EndTimestamp   int64   `json:"endTimestamp"`
	Volume         float64 `json:"volume"`
	BuyVolume      float64 `json:"buyVolume"`
	SellVolume     float64 `json:"sellVolume"`
	TradeCount     int     `json:"tradeCount"`
}

// Summary aggregates one trade window. VWAP is nil when the window has
// no volume; LargestCluster is nil when the window has no trades.
type Summary struct {
	BuyVolume      float64  `json:"buyVolume"`
	SellVolume     float64  `json:"sellVolume"`
	Delta          float64  `json:"delta"`
	BuyCount       int      `json:"buyCount"`
	SellCount      int      `json:"sellCount"`
	AvgTradeSize   float64  `json:"avgTradeSize"`
	VWAP           *float64 `json:"vwap"`
	LargestCluster *Cluster `json:"largestCluster"`
}

type clusterAccum struct {
	buyVolume  float64
	sellVolume float64
	tradeCount int
}

// Summarize computes session statistics over trades falling inside
// [windowStart, windowEnd) milliseconds. Pass windowEnd<=0 to take the
// whole input.
func Summarize(trades []trade.Normalized, windowStart, windowEnd int64) Summary {
	var (
		summary  Summary
		notional float64
		total    float64
		clusters = make(map[int64]*clusterAccum)
	)

	for _, t := range trades {
		if !t.Valid() {
			continue
		}
		if windowEnd > 0 && (t.Timestamp < windowStart || t.Timestamp >= windowEnd) {
			continue
		}

		if t.Side == trade.SideBuy {
			summary.BuyVolume += t.Quantity
			summary.BuyCount++
		} else {
			summary.SellVolume += t.Quantity
			summary.SellCount++
		}
		total += t.Quantity
		notional += t.Price * t.Quantity

		bucket := (t.Timestamp / ClusterWindowMS) * ClusterWindowMS
		accum, ok := clusters[bucket]
		if !ok {
			accum = &clusterAccum{}
			clusters[bucket] = accum
		}
		if t.Side == trade.SideBuy {
			accum.buyVolume += t.Quantity
		} else {
			accum.sellVolume += t.Quantity
		}
		accum.tradeCount++
	}

	summary.Delta = summary.BuyVolume - summary.SellVolume
	if count := summary.BuyCount + summary.SellCount; count > 0 {
		summary.AvgTradeSize = (summary.BuyVolume + summary.SellVolume) / float64(count)
	}
	if total > 0 {
		vwap := notional / total
		summary.VWAP = &vwap
	}
	summary.LargestCluster = largestCluster(clusters)
	return summary
}

// largestCluster picks the cluster with the highest combined volume.
// Ties resolve to the earliest cluster: iteration is chronological and
// the comparison strict.
func largestCluster(clusters map[int64]*clusterAccum) *Cluster {
	if len(clusters) == 0 {
		return nil
	}

	starts := make([]int64, 0, len(clusters))
	for start := range clusters {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	var best *Cluster
	for _, start := range starts {
		accum := clusters[start]
		volume := accum.buyVolume + accum.sellVolume
		if best == nil || volume > best.Volume {
			best = &Cluster{
				StartTimestamp: start,
				EndTimestamp:   start + ClusterWindowMS,
				Volume:         volume,
				BuyVolume:      accum.buyVolume,
				SellVolume:     accum.sellVolume,
				TradeCount:     accum.tradeCount,
			}
		}
	}
	return best
}
