package analysis

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/hindsight/internal/config"
	"github.com/aristath/hindsight/internal/database"
	"github.com/aristath/hindsight/internal/domain"
)

// syntheticMarket serves flat daily closes per symbol.
type syntheticMarket struct {
	mu     sync.Mutex
	closes map[string]float64
	calls  int
}

func (m *syntheticMarket) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceBar, error) {
	m.mu.Lock()
	m.calls++
	price, ok := m.closes[symbol]
	m.mu.Unlock()
	if !ok {
		return nil, os.ErrNotExist
	}

	var bars []domain.PriceBar
	for d := domain.Day(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		bars = append(bars, domain.PriceBar{Date: d, Close: price})
	}
	return bars, nil
}

func (m *syntheticMarket) FetchQuote(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes[symbol], nil
}

func writeFixtures(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	activityDir := filepath.Join(dir, "activity")
	require.NoError(t, os.Mkdir(activityDir, 0755))

	activity := "Date,Action,Symbol,Description,Quantity,Price,Amount\n" +
		"1/2/2024,YOU BOUGHT,AAA,ACME CORP,10,50.00,($500.00)\n"
	require.NoError(t, os.WriteFile(filepath.Join(activityDir, "2024-q1.csv"), []byte(activity), 0644))

	positions := "Symbol,Quantity\nAAA,10\n"
	positionsFile := filepath.Join(dir, "positions.csv")
	require.NoError(t, os.WriteFile(positionsFile, []byte(positions), 0644))

	return &config.Config{
		DataDir:         dir,
		ActivityDir:     activityDir,
		PositionsFile:   positionsFile,
		BenchmarkSymbol: "SPY",
		CashSweepSymbol: "SPAXX",
		RiskFreeRate:    0.05,
	}
}

func newTestService(t *testing.T, cache *Cache) (*Service, *syntheticMarket) {
	t.Helper()
	market := &syntheticMarket{closes: map[string]float64{
		"SPY": 100,
		"AAA": 80,
	}}

	svc := NewService(writeFixtures(t), market, nil, cache)
	svc.log = zerolog.Nop()
	svc.now = func() time.Time {
		return time.Date(2024, time.June, 28, 15, 0, 0, 0, time.UTC)
	}
	return svc, market
}

func TestAnalyze_EndToEnd(t *testing.T) {
	svc, _ := newTestService(t, nil)

	result, err := svc.Analyze(context.Background(), Request{Period: "1y"})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "1y", result.Period)
	assert.Equal(t, "SPY", result.Benchmark)

	// The window clamps to the portfolio's first transaction date.
	assert.Equal(t, time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), result.From)

	require.NotNil(t, result.Metrics)
	assert.GreaterOrEqual(t, result.Metrics.NumDays, 20)

	require.Len(t, result.Stocks, 1)
	stock := result.Stocks[0]
	assert.Equal(t, "AAA", stock.Symbol)
	assert.InDelta(t, 800.0, stock.CurrentValue, 1e-9)
	assert.InDelta(t, 0.60, stock.TotalReturn, 1e-9)
	require.NotNil(t, stock.Alpha)
	assert.InDelta(t, 0.60, *stock.Alpha, 1e-9)

	assert.Equal(t, "AAA", result.Summary.BestPerformer)
	assert.InDelta(t, 1.0, result.Summary.WinRate, 1e-9)
	require.NotNil(t, result.Summary.AverageAlpha)
	assert.InDelta(t, 0.60, *result.Summary.AverageAlpha, 1e-9)

	require.NotEmpty(t, result.Sparkline.Raw)
	assert.Len(t, result.Sparkline.Dates, len(result.Sparkline.Raw))
	assert.Len(t, result.Sparkline.Smoothed, len(result.Sparkline.Raw))
}

func TestAnalyze_SecondCallServedFromCache(t *testing.T) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(CacheSchema))

	svc, market := newTestService(t, NewCache(db.Conn(), time.Hour))

	first, err := svc.Analyze(context.Background(), Request{Period: "1y"})
	require.NoError(t, err)

	callsAfterFirst := market.calls
	second, err := svc.Analyze(context.Background(), Request{Period: "1y"})
	require.NoError(t, err)

	// Same run served back, with no further market requests.
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, callsAfterFirst, market.calls)
}

func TestAnalyze_MissingPositionsFileFails(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.cfg.PositionsFile = filepath.Join(t.TempDir(), "nope.csv")

	_, err := svc.Analyze(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positions")
}

func TestStockHistory_ReturnsAttributionTable(t *testing.T) {
	svc, _ := newTestService(t, nil)

	stocks, err := svc.StockHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "AAA", stocks[0].Symbol)
	assert.True(t, stocks[0].Active)
}

func TestNormalizePeriod(t *testing.T) {
	assert.Equal(t, "1y", normalizePeriod(""))
	assert.Equal(t, "1y", normalizePeriod("bogus"))
	assert.Equal(t, "ytd", normalizePeriod(" YTD "))
	assert.Equal(t, "6m", normalizePeriod("6m"))
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2024, time.June, 28, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, time.May, 28, 0, 0, 0, 0, time.UTC), periodStart(now, "1m"))
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), periodStart(now, "ytd"))
	assert.Equal(t, time.Date(2023, time.June, 28, 0, 0, 0, 0, time.UTC), periodStart(now, "1y"))
	assert.True(t, periodStart(now, "all").IsZero())
}
