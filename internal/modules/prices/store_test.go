package prices

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/hindsight/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// mockMarketData serves canned bars per symbol and records fetch calls.
type mockMarketData struct {
	mu      sync.Mutex
	bars    map[string][]domain.PriceBar
	errs    map[string]error
	fetches []string
}

func (m *mockMarketData) FetchDailyBars(_ context.Context, symbol string, _, _ time.Time) ([]domain.PriceBar, error) {
	m.mu.Lock()
	m.fetches = append(m.fetches, symbol)
	m.mu.Unlock()

	if err := m.errs[symbol]; err != nil {
		return nil, err
	}
	return m.bars[symbol], nil
}

func (m *mockMarketData) FetchQuote(_ context.Context, symbol string) (float64, error) {
	bars := m.bars[symbol]
	if len(bars) == 0 {
		return 0, errors.New("no data")
	}
	return bars[len(bars)-1].Close, nil
}

func barsFor(closes map[time.Time]float64) []domain.PriceBar {
	var bars []domain.PriceBar
	for date, c := range closes {
		bars = append(bars, domain.PriceBar{Date: date, Close: c})
	}
	return bars
}

func TestPriceOn_NearestPrior(t *testing.T) {
	client := &mockMarketData{bars: map[string][]domain.PriceBar{
		"AAA": barsFor(map[time.Time]float64{
			day(2023, 1, 2): 100,
			day(2023, 1, 3): 101,
			day(2023, 1, 5): 103, // Jan 4 missing
		}),
	}}
	store := NewStore(client, nil, zerolog.Nop())
	store.Load(context.Background(), []string{"AAA"}, day(2023, 1, 1), day(2023, 1, 10))

	price, ok := store.PriceOn("AAA", day(2023, 1, 4))
	assert.True(t, ok)
	assert.Equal(t, 101.0, price)

	price, ok = store.PriceOn("AAA", day(2023, 1, 5))
	assert.True(t, ok)
	assert.Equal(t, 103.0, price)

	// After the last bar: latest close
	price, ok = store.PriceOn("AAA", day(2023, 2, 1))
	assert.True(t, ok)
	assert.Equal(t, 103.0, price)
}

func TestPriceOn_BeforeEarliestBarFallsBack(t *testing.T) {
	client := &mockMarketData{bars: map[string][]domain.PriceBar{
		"AAA": {{Date: day(2023, 6, 1), Close: 42}},
	}}
	store := NewStore(client, nil, zerolog.Nop())
	store.Load(context.Background(), []string{"AAA"}, day(2023, 1, 1), day(2023, 12, 31))

	// Degraded fallback: earliest bar's close, never a miss
	price, ok := store.PriceOn("AAA", day(2020, 1, 1))
	assert.True(t, ok)
	assert.Equal(t, 42.0, price)
}

func TestPriceOn_NoDataSymbol(t *testing.T) {
	client := &mockMarketData{errs: map[string]error{"BAD": errors.New("upstream down")}}
	store := NewStore(client, nil, zerolog.Nop())
	store.Load(context.Background(), []string{"BAD"}, day(2023, 1, 1), day(2023, 12, 31))

	_, ok := store.PriceOn("BAD", day(2023, 6, 1))
	assert.False(t, ok)
}

func TestLoad_FailureIsolation(t *testing.T) {
	client := &mockMarketData{
		bars: map[string][]domain.PriceBar{
			"GOOD": {{Date: day(2023, 1, 2), Close: 10}},
		},
		errs: map[string]error{"BAD": errors.New("boom")},
	}
	store := NewStore(client, nil, zerolog.Nop())
	store.Load(context.Background(), []string{"BAD", "GOOD"}, day(2023, 1, 1), day(2023, 1, 31))

	// BAD's failure must not take GOOD down with it
	price, ok := store.PriceOn("GOOD", day(2023, 1, 2))
	assert.True(t, ok)
	assert.Equal(t, 10.0, price)
}

func TestLoad_DeduplicatesAndCaches(t *testing.T) {
	client := &mockMarketData{bars: map[string][]domain.PriceBar{
		"AAA": {{Date: day(2023, 1, 2), Close: 10}},
	}}
	store := NewStore(client, nil, zerolog.Nop())

	store.Load(context.Background(), []string{"AAA", "AAA", ""}, day(2023, 1, 1), day(2023, 1, 31))
	store.Load(context.Background(), []string{"AAA"}, day(2023, 1, 1), day(2023, 1, 31))

	assert.Equal(t, []string{"AAA"}, client.fetches)
}

func TestSeries_SortedAscending(t *testing.T) {
	client := &mockMarketData{bars: map[string][]domain.PriceBar{
		"AAA": {
			{Date: day(2023, 1, 5), Close: 3},
			{Date: day(2023, 1, 2), Close: 1},
			{Date: day(2023, 1, 3), Close: 2},
		},
	}}
	store := NewStore(client, nil, zerolog.Nop())
	store.Load(context.Background(), []string{"AAA"}, day(2023, 1, 1), day(2023, 1, 31))

	series := store.Series("AAA")
	assert.Len(t, series, 3)
	for i := 1; i < len(series); i++ {
		assert.True(t, series[i-1].Date.Before(series[i].Date))
	}
}

func TestEarliestPrice(t *testing.T) {
	client := &mockMarketData{bars: map[string][]domain.PriceBar{
		"AAA": {
			{Date: day(2023, 1, 2), Close: 11},
			{Date: day(2023, 1, 9), Close: 15},
		},
	}}
	store := NewStore(client, nil, zerolog.Nop())
	store.Load(context.Background(), []string{"AAA"}, day(2023, 1, 1), day(2023, 1, 31))

	price, ok := store.EarliestPrice("AAA")
	assert.True(t, ok)
	assert.Equal(t, 11.0, price)

	_, ok = store.EarliestPrice("MISSING")
	assert.False(t, ok)
}
