package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantfold/orderflow/internal/domain/footprint"
	"github.com/quantfold/orderflow/internal/domain/trade"
)

func footprintCmd() *cobra.Command {
	var (
		input         string
		bucketSeconds int
		windowSeconds int
		referenceMS   int64
		rowSizeMode   string
		tickSize      float64
		atrPeriod     int
	)

	cmd := &cobra.Command{
		Use:   "footprint",
		Short: "Build footprint bars from a JSON trade batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			trades, err := readTrades(input)
			if err != nil {
				return err
			}

			result, err := footprint.BuildBars(trades, footprint.BuildOptions{
				BucketSeconds:      bucketSeconds,
				WindowSeconds:      windowSeconds,
				ReferenceTimestamp: referenceMS,
				RowSizeMode:        footprint.RowSizeMode(rowSizeMode),
				TickSize:           tickSize,
				ATRPeriod:          atrPeriod,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&input, "input", "-", "trades JSON file, - for stdin")
	cmd.Flags().IntVar(&bucketSeconds, "bucket-seconds", 5, "time bucket width in seconds")
	cmd.Flags().IntVar(&windowSeconds, "window-seconds", 0, "window length ending at --reference-ms, 0 for all trades")
	cmd.Flags().Int64Var(&referenceMS, "reference-ms", 0, "right edge of the window in ms")
	cmd.Flags().StringVar(&rowSizeMode, "row-size-mode", string(footprint.RowSizeTick), "row sizing: tick or atr-auto")
	cmd.Flags().Float64Var(&tickSize, "tick-size", 0, "explicit price step, 0 to infer")
	cmd.Flags().IntVar(&atrPeriod, "atr-period", 14, "ATR window for atr-auto row sizing")

	return cmd
}

func readTrades(path string) ([]trade.Normalized, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	var trades []trade.Normalized
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("parse trades: %w", err)
	}
	return trades, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
