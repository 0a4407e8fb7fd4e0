package formulas

import (
	"math"
)

// downsideEpsilon is the floor used for downside deviation when a return
// series has no negative excess returns. Dividing by it yields a large but
// finite Sortino instead of a division by zero.
const downsideEpsilon = 1e-4

// SharpeRatio calculates the annualized Sharpe ratio from daily returns.
//
// Sharpe Ratio Formula:
//
//	Sharpe = mean(excess daily return) / stdev(excess daily returns) × sqrt(252)
//
// where the excess return is the daily return minus the daily risk-free rate
// (annual rate / 252).
//
// Returns 0 when the excess-return standard deviation is 0 or the series is
// too short to measure dispersion.
func SharpeRatio(dailyReturns []float64, riskFreeRate float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}

	dailyRiskFree := riskFreeRate / TradingDaysPerYear

	excess := make([]float64, len(dailyReturns))
	for i, r := range dailyReturns {
		excess[i] = r - dailyRiskFree
	}

	stdDev := StdDev(excess)
	if stdDev == 0 {
		return 0
	}

	return Mean(excess) / stdDev * math.Sqrt(TradingDaysPerYear)
}

// SortinoRatio calculates the annualized Sortino ratio from daily returns.
// Same numerator as Sharpe; the denominator is the standard deviation of only
// the negative excess returns (downside deviation).
//
// When no negative excess returns exist the downside deviation is floored at
// a small epsilon rather than dividing by zero. Returns 0 for series too
// short to measure.
func SortinoRatio(dailyReturns []float64, riskFreeRate float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}

	dailyRiskFree := riskFreeRate / TradingDaysPerYear

	excess := make([]float64, len(dailyReturns))
	var downside []float64
	for i, r := range dailyReturns {
		excess[i] = r - dailyRiskFree
		if excess[i] < 0 {
			downside = append(downside, excess[i])
		}
	}

	// A zero-variance series has no measurable risk premium either way.
	if StdDev(excess) == 0 {
		return 0
	}

	// Population stdev: a single down day has zero dispersion and falls
	// through to the epsilon floor, where the sample stdev would be NaN.
	downsideDev := PopStdDev(downside)
	if downsideDev == 0 {
		downsideDev = downsideEpsilon
	}

	return Mean(excess) / downsideDev * math.Sqrt(TradingDaysPerYear)
}

// JensensAlpha calculates Jensen's alpha from cumulative growth factors.
// Both cumulative factors are annualized via cum^(252/numDays) - 1, then:
//
//	alpha = (annPortfolio - rf) - beta × (annBenchmark - rf)
//
// Returns 0 when numDays is 0 (no measurable window).
func JensensAlpha(portfolioCum, benchmarkCum float64, beta float64, riskFreeRate float64, numDays int) float64 {
	if numDays <= 0 {
		return 0
	}

	annPort := AnnualizeCumulative(portfolioCum, numDays)
	annBench := AnnualizeCumulative(benchmarkCum, numDays)

	return (annPort - riskFreeRate) - beta*(annBench-riskFreeRate)
}
