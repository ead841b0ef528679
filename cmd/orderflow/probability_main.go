package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantfold/orderflow/internal/domain/probability"
)

func probabilityCmd() *cobra.Command {
	var (
		input        string
		symbol       string
		event        string
		horizonBars  int
		lookbackBars int
		targetX      float64
		targetXs     []float64
		pipSize      float64
	)

	cmd := &cobra.Command{
		Use:   "probability",
		Short: "Estimate touch or end probabilities from a candle series",
		RunE: func(cmd *cobra.Command, _ []string) error {
			candles, err := readCandles(input)
			if err != nil {
				return err
			}

			pip := pipSize
			if pip <= 0 {
				pip = probability.PipSize(symbol)
			}

			if event == "end" && len(targetXs) == 0 {
				estimate, err := probability.EstimateEnd(candles, lookbackBars, horizonBars, targetX*pip, probability.DefaultModelConfig())
				if err != nil {
					return err
				}
				return printJSON(cmd, estimate)
			}

			lookbackStart, maxStartIndex, ok := anchorWindow(len(candles), horizonBars, lookbackBars)
			if !ok {
				return fmt.Errorf("insufficient data: %d candles for horizon %d", len(candles), horizonBars)
			}
			params := probability.TouchParams{
				LookbackStart: lookbackStart,
				MaxStartIndex: maxStartIndex,
				HorizonBars:   horizonBars,
				PipSize:       pip,
			}

			if len(targetXs) > 0 {
				var surface probability.SurfaceResult
				switch event {
				case "touch":
					surface, err = probability.TouchSurface(candles, params, targetXs)
				case "end":
					surface, err = probability.EndSurface(candles, params, targetXs)
				default:
					return fmt.Errorf("event must be touch or end, got %q", event)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd, surface)
			}

			if event != "touch" {
				return fmt.Errorf("event must be touch or end, got %q", event)
			}
			result, err := probability.TouchNow(candles, params, targetX)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&input, "input", "-", "candles JSON file, - for stdin")
	cmd.Flags().StringVar(&symbol, "symbol", "EURUSD", "symbol used to pick the pip size")
	cmd.Flags().StringVar(&event, "event", "touch", "event type: touch or end")
	cmd.Flags().IntVar(&horizonBars, "horizon-bars", 12, "bars scanned forward from each anchor")
	cmd.Flags().IntVar(&lookbackBars, "lookback-bars", 1000, "anchor window length")
	cmd.Flags().Float64Var(&targetX, "target", 10, "target distance in pips")
	cmd.Flags().Float64SliceVar(&targetXs, "targets", nil, "target grid in pips; switches to surface output")
	cmd.Flags().Float64Var(&pipSize, "pip-size", 0, "explicit pip size, 0 to derive from the symbol")

	return cmd
}

func readCandles(path string) ([]probability.Candle, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	var candles []probability.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, fmt.Errorf("parse candles: %w", err)
	}
	return candles, nil
}

// anchorWindow pins the anchor range to the second-to-last candle minus
// the horizon, shrinking the lookback when the series is short.
func anchorWindow(candleCount, horizonBars, lookbackBars int) (lookbackStart, maxStartIndex int, ok bool) {
	entryIndex := candleCount - 2
	if entryIndex <= 0 {
		return 0, 0, false
	}

	maxLookback := entryIndex - horizonBars
	if maxLookback < 1 {
		return 0, 0, false
	}
	if lookbackBars > maxLookback {
		lookbackBars = maxLookback
	}

	maxStartIndex = entryIndex - horizonBars
	lookbackStart = maxStartIndex - lookbackBars + 1
	if lookbackStart < 0 {
		lookbackStart = 0
	}
	return lookbackStart, maxStartIndex, true
}
