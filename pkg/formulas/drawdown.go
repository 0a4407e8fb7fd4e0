package formulas

// MaxDrawdown calculates the maximum peak-to-trough decline of a value series.
//
// Drawdown Formula:
//
//	Drawdown = (Peak Value - Current Value) / Peak Value
//	Max Drawdown = Maximum of all drawdowns
//
// The result is a positive fraction (0.25 = 25% loss from peak); 0 for
// series that never decline or are too short to decline.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	maxDrawdown := 0.0
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}

		if peak > 0 {
			drawdown := (peak - v) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}

// PeriodReturn calculates the trailing return over the last n points of a
// cumulative growth series: cum[last] / cum[last-n] - 1.
// Returns nil when the series is shorter than n+1 points or n is not positive.
func PeriodReturn(cum []float64, n int) *float64 {
	if n <= 0 || len(cum) < n+1 {
		return nil
	}

	base := cum[len(cum)-1-n]
	if base == 0 {
		return nil
	}

	r := cum[len(cum)-1]/base - 1
	return &r
}
