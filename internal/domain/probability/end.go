package probability

// EndSurface estimates where price ends up after the horizon, rather
// than what it touches along the way: the move is close[i+h]-close[i]
// scaled to pip units, counted against each target. "Within" here is
// inclusive (|move| <= target), so up/down/within are not disjoint at
// the exact boundary.
func EndSurface(candles []Candle, p TouchParams, targetXs []float64) (SurfaceResult, error) {
	if err := p.validate(len(candles)); err != nil {
		return SurfaceResult{}, err
	}

	result := SurfaceResult{
		Xs:     append([]float64(nil), targetXs...),
		Up:     make([]float64, len(targetXs)),
		Down:   make([]float64, len(targetXs)),
		Within: make([]float64, len(targetXs)),
	}

	var moves []float64
	for i := p.LookbackStart; i <= p.MaxStartIndex; i++ {
		if i+p.HorizonBars >= len(candles) {
			continue
		}
		start := candles[i].Close
		end := candles[i+p.HorizonBars].Close
		if !isFinite(start) || !isFinite(end) {
			continue
		}
		moves = append(moves, (end-start)/p.PipSize)
	}

	if len(moves) == 0 || len(targetXs) == 0 {
		return result, nil
	}

	for _, move := range moves {
		for j, target := range targetXs {
			if move >= target {
				result.Up[j]++
			}
			if move <= -target {
				result.Down[j]++
			}
			if move >= -target && move <= target {
				result.Within[j]++
			}
		}
	}

	n := float64(len(moves))
	for j := range targetXs {
		result.Up[j] /= n
		result.Down[j] /= n
		result.Within[j] /= n
	}
	result.SampleCount = len(moves)
	return result, nil
}
