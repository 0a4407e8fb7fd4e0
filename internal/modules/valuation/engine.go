// Package valuation turns reconstructed holdings and price series into daily
// portfolio and benchmark value series.
package valuation

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/hindsight/internal/domain"
)

// nearZeroValue is the absolute threshold below which a day's portfolio
// value cannot anchor a return calculation. Returns off a handful of
// currency units are denominator noise, not performance.
const nearZeroValue = 100.0

// HoldingsLookup resolves the holdings in force on a date.
// Implemented by history.History.
type HoldingsLookup interface {
	HoldingsOn(date time.Time) map[string]float64
}

// PriceLookup resolves prices and series from the per-run price store.
// Implemented by prices.Store.
type PriceLookup interface {
	PriceOn(symbol string, date time.Time) (float64, bool)
	Series(symbol string) []domain.PriceBar
}

// Series holds the aligned daily output of a valuation pass. Portfolio and
// Benchmark always have equal length: one point per benchmark trading day.
type Series struct {
	Portfolio []domain.ValuePoint
	Benchmark []domain.ValuePoint
}

// Engine computes daily valuation series over the benchmark's trading
// calendar. Pure and synchronous: all price data is already fetched.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a new valuation engine
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("service", "valuation").Logger(),
	}
}

// Valuate walks the benchmark's trading days from `from` to `to` ascending
// and values the applicable holdings snapshot on each. Symbols without a
// resolvable price contribute nothing that day (excluded, not zeroed: their
// shares simply don't enter the sum). The benchmark series provides the
// trading calendar; an empty benchmark series is an error because nothing
// can be aligned to it.
func (e *Engine) Valuate(history HoldingsLookup, store PriceLookup, benchmarkSymbol string, from, to time.Time) (*Series, error) {
	calendar := store.Series(benchmarkSymbol)
	if len(calendar) == 0 {
		return nil, fmt.Errorf("benchmark %s has no price data", benchmarkSymbol)
	}

	out := &Series{}
	for _, bar := range calendar {
		if bar.Date.Before(from) || bar.Date.After(to) {
			continue
		}

		holdings := history.HoldingsOn(bar.Date)

		var total float64
		for symbol, shares := range holdings {
			price, ok := store.PriceOn(symbol, bar.Date)
			if !ok {
				continue
			}
			total += shares * price
		}

		out.Portfolio = append(out.Portfolio, domain.ValuePoint{Date: bar.Date, Value: total})
		out.Benchmark = append(out.Benchmark, domain.ValuePoint{Date: bar.Date, Value: bar.Close})
	}

	e.log.Debug().
		Int("days", len(out.Portfolio)).
		Str("benchmark", benchmarkSymbol).
		Msg("Computed valuation series")

	return out, nil
}

// DailyReturns converts a value series into simple daily returns:
// (value[i] - value[i-1]) / value[i-1]. Days whose base value sits at or
// below the near-zero threshold yield a forced 0 return instead of a
// near-zero-denominator blowup.
func DailyReturns(values []domain.ValuePoint) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		base := values[i-1].Value
		if base <= nearZeroValue {
			returns[i-1] = 0
			continue
		}
		returns[i-1] = (values[i].Value - base) / base
	}
	return returns
}
