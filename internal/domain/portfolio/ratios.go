package portfolio

import "time"

// Ratios is the display-facing bundle of portfolio statistics. Nil
// fields mean "not enough data", which consumers must render as absent
// rather than zero.
type Ratios struct {
	TotalReturnPct     *float64 `json:"totalReturnPct"`
	BenchmarkReturnPct *float64 `json:"benchmarkReturnPct"`
	CAGR               *float64 `json:"cagr"`
	VolAnnual          *float64 `json:"volAnnual"`
	SharpeAnnual       *float64 `json:"sharpeAnnual"`
	Beta               *float64 `json:"beta"`
	MaxDrawdownPct     *float64 `json:"maxDrawdownPct"`
}

// ComputeRatios derives the full ratio set from a portfolio value
// series and an optional benchmark series. Benchmark returns are paired
// with portfolio returns by calendar date, so gaps in either series
// drop the pair instead of shifting the alignment.
func ComputeRatios(series, benchmark []SeriesPoint, riskFreeDaily float64) Ratios {
	var ratios Ratios

	returns := ComputeReturns(series)
	values := Values(returns)

	if v, ok := TotalReturnPct(series); ok {
		ratios.TotalReturnPct = &v
	}
	if v, ok := TotalReturnPct(benchmark); ok {
		ratios.BenchmarkReturnPct = &v
	}
	if v, ok := ComputeCAGR(series); ok {
		ratios.CAGR = &v
	}
	if v, ok := ComputeVolatility(values); ok {
		ratios.VolAnnual = &v
	}
	if v, ok := ComputeSharpe(values, riskFreeDaily); ok {
		ratios.SharpeAnnual = &v
	}
	if v, ok := ComputeMaxDrawdown(series); ok {
		pct := v * 100
		ratios.MaxDrawdownPct = &pct
	}

	portfolioAligned, benchAligned := AlignReturnsByDate(returns, ComputeReturns(benchmark))
	if v, ok := ComputeBeta(portfolioAligned, benchAligned); ok {
		ratios.Beta = &v
	}

	return ratios
}

// AlignReturnsByDate pairs two return series on identical calendar
// days, returning equal-length slices ready for ComputeBeta.
func AlignReturnsByDate(portfolio, benchmark []ReturnPoint) ([]float64, []float64) {
	benchByDate := make(map[string]float64, len(benchmark))
	for _, r := range benchmark {
		benchByDate[dateKey(r.Date)] = r.Value
	}

	var p, b []float64
	for _, r := range portfolio {
		bench, ok := benchByDate[dateKey(r.Date)]
		if !ok {
			continue
		}
		p = append(p, r.Value)
		b = append(b, bench)
	}
	return p, b
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
