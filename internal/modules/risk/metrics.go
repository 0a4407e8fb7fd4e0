// Package risk computes portfolio-level risk-adjusted performance metrics
// from aligned daily return series.
package risk

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/hindsight/pkg/formulas"
)

// ErrInsufficientData marks runs where the aligned return window is too
// short to produce meaningful statistics. Callers render a partial state
// instead of metrics.
var ErrInsufficientData = errors.New("insufficient aligned trading days for risk metrics")

// minTradingDays is the smallest aligned window risk statistics are
// computed over.
const minTradingDays = 20

// PeriodReturns holds trailing returns over conventional windows. Nil means
// the series is shorter than the window.
type PeriodReturns struct {
	OneMonth   *float64 `json:"1m"`
	ThreeMonth *float64 `json:"3m"`
	SixMonth   *float64 `json:"6m"`
	YTD        *float64 `json:"ytd"`
	OneYear    *float64 `json:"1y"`
}

// Stats is one side's (portfolio or benchmark) metric set.
type Stats struct {
	AnnualizedVolatility float64       `json:"annualized_volatility"` // percent
	Sharpe               float64       `json:"sharpe"`
	Sortino              float64       `json:"sortino"`
	MaxDrawdown          float64       `json:"max_drawdown"` // percent, positive
	CumulativeReturn     float64       `json:"cumulative_return"`
	Periods              PeriodReturns `json:"period_returns"`
}

// Metrics is the point-in-time risk aggregate for one analysis window.
type Metrics struct {
	Portfolio Stats   `json:"portfolio"`
	Benchmark Stats   `json:"benchmark"`
	Beta      float64 `json:"beta"`
	Alpha     float64 `json:"alpha"` // Jensen's, annualized
	NumDays   int     `json:"num_days"`
}

// Calculator derives risk metrics from aligned daily returns. Pure: it holds
// only configuration.
type Calculator struct {
	riskFreeRate float64
	log          zerolog.Logger
}

// NewCalculator creates a new risk metrics calculator.
// riskFreeRate is annual (0.05 = 5%).
func NewCalculator(riskFreeRate float64, log zerolog.Logger) *Calculator {
	return &Calculator{
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("service", "risk").Logger(),
	}
}

// Calculate computes the full metric set from two equal-length daily return
// arrays. now anchors the YTD window. Series shorter than the minimum
// aligned window return ErrInsufficientData.
func (c *Calculator) Calculate(portfolioReturns, benchmarkReturns []float64, now time.Time) (*Metrics, error) {
	if len(portfolioReturns) != len(benchmarkReturns) {
		return nil, fmt.Errorf("return series misaligned: portfolio %d days, benchmark %d days",
			len(portfolioReturns), len(benchmarkReturns))
	}

	numDays := len(portfolioReturns)
	if numDays < minTradingDays {
		return nil, ErrInsufficientData
	}

	portCum := formulas.CumulativeSeries(portfolioReturns)
	benchCum := formulas.CumulativeSeries(benchmarkReturns)

	beta := formulas.Beta(portfolioReturns, benchmarkReturns)
	alpha := formulas.JensensAlpha(
		portCum[len(portCum)-1],
		benchCum[len(benchCum)-1],
		beta, c.riskFreeRate, numDays,
	)

	ytdDays := ytdTradingDays(now)

	metrics := &Metrics{
		Portfolio: c.sideStats(portfolioReturns, portCum, ytdDays),
		Benchmark: c.sideStats(benchmarkReturns, benchCum, ytdDays),
		Beta:      beta,
		Alpha:     alpha,
		NumDays:   numDays,
	}

	c.log.Debug().
		Int("days", numDays).
		Float64("beta", beta).
		Float64("alpha", alpha).
		Msg("Calculated risk metrics")

	return metrics, nil
}

// sideStats computes the per-series statistics for one side.
func (c *Calculator) sideStats(returns []float64, cum []float64, ytdDays int) Stats {
	return Stats{
		AnnualizedVolatility: formulas.AnnualizedVolatility(returns) * 100,
		Sharpe:               formulas.SharpeRatio(returns, c.riskFreeRate),
		Sortino:              formulas.SortinoRatio(returns, c.riskFreeRate),
		MaxDrawdown:          formulas.MaxDrawdown(cum) * 100,
		CumulativeReturn:     cum[len(cum)-1] - 1,
		Periods: PeriodReturns{
			OneMonth:   formulas.PeriodReturn(cum, 22),
			ThreeMonth: formulas.PeriodReturn(cum, 63),
			SixMonth:   formulas.PeriodReturn(cum, 126),
			YTD:        formulas.PeriodReturn(cum, ytdDays),
			OneYear:    formulas.PeriodReturn(cum, len(cum)-1),
		},
	}
}

// ytdTradingDays estimates the trading days elapsed this calendar year from
// calendar days since Jan 1, scaled by 252/365. Derived from the calendar,
// not recounted from the series, so short series simply yield a nil YTD.
func ytdTradingDays(now time.Time) int {
	jan1 := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	calendarDays := int(now.Sub(jan1).Hours() / 24)
	return calendarDays * formulas.TradingDaysPerYear / 365
}
