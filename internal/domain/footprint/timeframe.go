// Package footprint buckets trade flow into price/time cells: streaming
// candle accumulation for live sessions and batch bar construction over
// a fixed window.
package footprint

import (
	"fmt"
	"time"
)

// Timeframe is the time-bucket width key.
type Timeframe string

const (
	TF5s  Timeframe = "5s"
	TF15s Timeframe = "15s"
	TF30s Timeframe = "30s"
	TF1m  Timeframe = "1m"
	TF3m  Timeframe = "3m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

var timeframeMS = map[Timeframe]int64{
	TF5s:  5_000,
	TF15s: 15_000,
	TF30s: 30_000,
	TF1m:  60_000,
	TF3m:  180_000,
	TF5m:  300_000,
	TF15m: 900_000,
	TF30m: 1_800_000,
	TF1h:  3_600_000,
	TF4h:  14_400_000,
	TF1d:  86_400_000,
}

// Millis returns the bucket width in milliseconds. An unknown key is a
// caller error and is rejected before any aggregator state exists.
func (tf Timeframe) Millis() (int64, error) {
	ms, ok := timeframeMS[tf]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	return ms, nil
}

// Duration returns the bucket width as a time.Duration.
func (tf Timeframe) Duration() (time.Duration, error) {
	ms, err := tf.Millis()
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// BucketStart floors a millisecond timestamp onto its bucket boundary.
func BucketStart(timestampMS, intervalMS int64) int64 {
	return (timestampMS / intervalMS) * intervalMS
}
