package valuation

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/hindsight/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fixedHoldings returns the same holdings for every date.
type fixedHoldings map[string]float64

func (f fixedHoldings) HoldingsOn(time.Time) map[string]float64 { return f }

// mapPrices serves prices from per-symbol date maps with nearest-prior
// resolution, mimicking the real store's contract.
type mapPrices map[string][]domain.PriceBar

func (m mapPrices) Series(symbol string) []domain.PriceBar { return m[symbol] }

func (m mapPrices) PriceOn(symbol string, date time.Time) (float64, bool) {
	bars := m[symbol]
	if len(bars) == 0 {
		return 0, false
	}
	price := bars[0].Close
	for _, bar := range bars {
		if bar.Date.After(date) {
			break
		}
		price = bar.Close
	}
	return price, true
}

func bars(closes ...float64) []domain.PriceBar {
	out := make([]domain.PriceBar, len(closes))
	for i, c := range closes {
		out[i] = domain.PriceBar{Date: day(2023, 1, 2+i), Close: c}
	}
	return out
}

func TestValuate_AlignsToBenchmarkCalendar(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	store := mapPrices{
		"SPY": bars(100, 100, 100),
		"AAA": bars(50, 51, 52),
	}

	series, err := engine.Valuate(fixedHoldings{"AAA": 10}, store, "SPY", day(2023, 1, 1), day(2023, 1, 31))
	require.NoError(t, err)

	require.Len(t, series.Portfolio, 3)
	require.Len(t, series.Benchmark, 3)
	assert.Equal(t, 500.0, series.Portfolio[0].Value)
	assert.Equal(t, 520.0, series.Portfolio[2].Value)
	assert.Equal(t, 100.0, series.Benchmark[0].Value)
}

func TestValuate_MisalignedSymbolUsesNearestPrior(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	// AAA has no bar on Jan 3; its Jan 2 close must fill the gap so the
	// engine still emits one value per benchmark trading day.
	store := mapPrices{
		"SPY": bars(100, 100, 100),
		"AAA": {
			{Date: day(2023, 1, 2), Close: 50},
			{Date: day(2023, 1, 4), Close: 54},
		},
	}

	series, err := engine.Valuate(fixedHoldings{"AAA": 2}, store, "SPY", day(2023, 1, 1), day(2023, 1, 31))
	require.NoError(t, err)

	require.Len(t, series.Portfolio, 3)
	assert.Equal(t, 100.0, series.Portfolio[0].Value)
	assert.Equal(t, 100.0, series.Portfolio[1].Value) // Jan 3 gap filled from Jan 2
	assert.Equal(t, 108.0, series.Portfolio[2].Value)
}

func TestValuate_UnpricedSymbolExcluded(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	store := mapPrices{
		"SPY": bars(100, 100),
		"AAA": bars(50, 50),
		// "GHOST" has no data at all
	}

	series, err := engine.Valuate(fixedHoldings{"AAA": 1, "GHOST": 99}, store, "SPY", day(2023, 1, 1), day(2023, 1, 31))
	require.NoError(t, err)

	// GHOST contributes nothing rather than poisoning the day's total
	assert.Equal(t, 50.0, series.Portfolio[0].Value)
}

func TestValuate_EmptyBenchmark(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	_, err := engine.Valuate(fixedHoldings{}, mapPrices{}, "SPY", day(2023, 1, 1), day(2023, 1, 31))
	assert.Error(t, err)
}

func TestValuate_EmptyHoldingsValueZero(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	store := mapPrices{"SPY": bars(100, 101)}

	series, err := engine.Valuate(fixedHoldings{}, store, "SPY", day(2023, 1, 1), day(2023, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, 0.0, series.Portfolio[0].Value)
	assert.Equal(t, 0.0, series.Portfolio[1].Value)
}

func TestDailyReturns(t *testing.T) {
	values := []domain.ValuePoint{
		{Date: day(2023, 1, 2), Value: 1000},
		{Date: day(2023, 1, 3), Value: 1100},
		{Date: day(2023, 1, 4), Value: 990},
	}

	returns := DailyReturns(values)
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)
}

func TestDailyReturns_NearZeroGuard(t *testing.T) {
	// Day one the portfolio held nothing; its "return" into day two must be
	// forced to zero, not computed off a near-zero denominator.
	values := []domain.ValuePoint{
		{Date: day(2023, 1, 2), Value: 0},
		{Date: day(2023, 1, 3), Value: 5000},
		{Date: day(2023, 1, 4), Value: 5100},
	}

	returns := DailyReturns(values)
	require.Len(t, returns, 2)
	assert.Equal(t, 0.0, returns[0])
	assert.InDelta(t, 0.02, returns[1], 1e-9)
}

func TestDailyReturns_TooShort(t *testing.T) {
	assert.Empty(t, DailyReturns(nil))
	assert.Empty(t, DailyReturns([]domain.ValuePoint{{Value: 100}}))
}
