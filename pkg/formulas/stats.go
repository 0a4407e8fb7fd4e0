package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the conventional number of trading days in a year.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// PopStdDev calculates the population standard deviation of a slice of float64 values
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return math.Sqrt(PopVariance(data))
}

// PopVariance calculates the population variance of a slice of float64 values
func PopVariance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	mean := stat.Mean(data, nil)
	var sum float64
	for _, v := range data {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(data))
}

// PopCovariance calculates the population covariance between two equal-length datasets
func PopCovariance(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	meanX := stat.Mean(x, nil)
	meanY := stat.Mean(y, nil)
	var sum float64
	for i := range x {
		sum += (x[i] - meanX) * (y[i] - meanY)
	}
	return sum / float64(len(x))
}

// Correlation calculates the Pearson correlation coefficient between two datasets
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: Std Dev of Daily Returns × sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}

	stdDev := StdDev(dailyReturns)
	return stdDev * math.Sqrt(TradingDaysPerYear)
}

// CalculateReturns converts prices to percentage returns
// Returns[i] = (Price[i] - Price[i-1]) / Price[i-1]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// Beta calculates the beta of an asset's returns against benchmark returns
// using population covariance and variance over the common window.
// Returns 0 if the benchmark has zero variance.
func Beta(assetReturns, benchmarkReturns []float64) float64 {
	if len(assetReturns) == 0 || len(assetReturns) != len(benchmarkReturns) {
		return 0
	}

	benchVar := PopVariance(benchmarkReturns)
	if benchVar == 0 {
		return 0
	}

	return PopCovariance(assetReturns, benchmarkReturns) / benchVar
}

// CumulativeSeries builds the cumulative growth-of-1 series from daily returns.
// cum[0] = 1, cum[i] = cum[i-1] * (1 + returns[i-1]).
// The result has len(returns)+1 entries.
func CumulativeSeries(returns []float64) []float64 {
	cum := make([]float64, len(returns)+1)
	cum[0] = 1
	for i, r := range returns {
		cum[i+1] = cum[i] * (1 + r)
	}
	return cum
}

// AnnualizeCumulative annualizes a cumulative growth factor over numDays trading days.
// Formula: cum^(252/numDays) - 1. Returns 0 when numDays <= 0 or cum <= 0.
func AnnualizeCumulative(cum float64, numDays int) float64 {
	if numDays <= 0 || cum <= 0 {
		return 0
	}
	return math.Pow(cum, TradingDaysPerYear/float64(numDays)) - 1
}
