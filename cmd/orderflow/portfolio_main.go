package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantfold/orderflow/internal/domain/portfolio"
)

func portfolioCmd() *cobra.Command {
	var (
		input         string
		benchmark     string
		riskFreeDaily float64
	)

	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Compute portfolio ratios from a value series",
		RunE: func(cmd *cobra.Command, _ []string) error {
			series, err := readSeries(input)
			if err != nil {
				return err
			}

			var bench []portfolio.SeriesPoint
			if benchmark != "" {
				bench, err = readSeries(benchmark)
				if err != nil {
					return err
				}
			}

			return printJSON(cmd, struct {
				Ratios  portfolio.Ratios        `json:"ratios"`
				Returns []portfolio.ReturnPoint `json:"returns"`
			}{
				Ratios:  portfolio.ComputeRatios(series, bench, riskFreeDaily),
				Returns: portfolio.ComputeReturns(series),
			})
		},
	}

	cmd.Flags().StringVar(&input, "input", "-", "portfolio value series JSON file, - for stdin")
	cmd.Flags().StringVar(&benchmark, "benchmark", "", "benchmark value series JSON file")
	cmd.Flags().Float64Var(&riskFreeDaily, "risk-free-daily", 0, "daily risk-free rate for the Sharpe ratio")

	return cmd
}

func readSeries(path string) ([]portfolio.SeriesPoint, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	var series []portfolio.SeriesPoint
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, fmt.Errorf("parse series: %w", err)
	}
	return series, nil
}
