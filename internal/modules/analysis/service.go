package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aristath/hindsight/internal/config"
	"github.com/aristath/hindsight/internal/domain"
	"github.com/aristath/hindsight/internal/modules/attribution"
	"github.com/aristath/hindsight/internal/modules/history"
	"github.com/aristath/hindsight/internal/modules/prices"
	"github.com/aristath/hindsight/internal/modules/risk"
	"github.com/aristath/hindsight/internal/modules/transactions"
	"github.com/aristath/hindsight/internal/modules/valuation"
)

const (
	defaultPeriod = "1y"

	// Smoothing window for the sparkline SMA overlay.
	sparklineSmaPeriod = 5

	// Extra bars loaded before the window so nearest-prior lookups have
	// something to land on at the window start.
	priceLoadSlack = 7 * 24 * time.Hour
)

// Service runs the end-to-end analysis pipeline.
type Service struct {
	cfg           *config.Config
	client        domain.MarketDataClient
	historyDB     *prices.HistoryDB
	cache         *Cache
	loader        *transactions.Loader
	normalizer    *transactions.Normalizer
	reconstructor *history.Reconstructor
	valuation     *valuation.Engine
	risk          *risk.Calculator
	attribution   *attribution.Engine
	log           zerolog.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewService wires the pipeline from configuration. cache may be nil to
// disable result caching.
func NewService(cfg *config.Config, client domain.MarketDataClient, historyDB *prices.HistoryDB, cache *Cache) *Service {
	logger := log.With().Str("service", "analysis").Logger()
	return &Service{
		cfg:           cfg,
		client:        client,
		historyDB:     historyDB,
		cache:         cache,
		loader:        transactions.NewLoader(logger),
		normalizer:    transactions.NewNormalizer(cfg.CashSweepSymbol, logger),
		reconstructor: history.NewReconstructor(logger),
		valuation:     valuation.NewEngine(logger),
		risk:          risk.NewCalculator(cfg.RiskFreeRate, logger),
		attribution:   attribution.NewEngine(cfg.BenchmarkSymbol),
		log:           logger,
		now:           time.Now,
	}
}

// Analyze runs the full pipeline for the requested period. A portfolio too
// young for risk metrics still produces a result, with Metrics nil and a
// warning attached.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	now := domain.Day(s.now())
	period := normalizePeriod(req.Period)

	positions, err := s.loader.LoadPositions(s.cfg.PositionsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}
	current := positionsToMap(positions)

	key := CacheKey(period, s.cfg.BenchmarkSymbol, current)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.log.Debug().Str("period", period).Msg("analysis served from cache")
			return cached, nil
		}
	}

	txs := s.normalizer.Normalize(s.loader.LoadActivityDir(s.cfg.ActivityDir))
	hist := s.reconstructor.Reconstruct(now, current, txs)

	from := periodStart(now, period)
	if start := hist.Start(); from.Before(start) {
		from = start
	}

	store := prices.NewStore(s.client, s.historyDB, s.log)
	store.Load(ctx, gatherSymbols(current, txs, s.cfg.BenchmarkSymbol), from.Add(-priceLoadSlack), now)

	series, err := s.valuation.Valuate(hist, store, s.cfg.BenchmarkSymbol, from, now)
	if err != nil {
		return nil, fmt.Errorf("valuation failed: %w", err)
	}

	result := &Result{
		RunID:       uuid.New().String(),
		GeneratedAt: s.now().UTC(),
		Period:      period,
		From:        from,
		To:          now,
		Benchmark:   s.cfg.BenchmarkSymbol,
		Sparkline:   buildSparkline(series.Portfolio),
	}

	portReturns := valuation.DailyReturns(series.Portfolio)
	benchReturns := valuation.DailyReturns(series.Benchmark)
	metrics, err := s.risk.Calculate(portReturns, benchReturns, now)
	switch {
	case errors.Is(err, risk.ErrInsufficientData):
		result.Warnings = append(result.Warnings, "insufficient price history for risk metrics")
	case err != nil:
		return nil, fmt.Errorf("risk calculation failed: %w", err)
	default:
		result.Metrics = metrics
	}

	result.Stocks = s.attribution.Analyze(txs, current, store, now)
	result.Summary = s.buildSummary(result.Stocks)

	if s.cache != nil {
		if err := s.cache.Put(key, result); err != nil {
			s.log.Warn().Err(err).Msg("failed to cache analysis result")
		}
	}

	s.log.Info().
		Str("run_id", result.RunID).
		Str("period", period).
		Int("positions", len(result.Stocks)).
		Int("valuation_days", len(series.Portfolio)).
		Msg("analysis complete")

	return result, nil
}

// StockHistory computes the per-symbol attribution table over the whole
// ledger, independent of the requested analysis window.
func (s *Service) StockHistory(ctx context.Context) ([]attribution.SymbolReport, error) {
	now := domain.Day(s.now())

	positions, err := s.loader.LoadPositions(s.cfg.PositionsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}
	current := positionsToMap(positions)
	txs := s.normalizer.Normalize(s.loader.LoadActivityDir(s.cfg.ActivityDir))

	from := now.AddDate(-5, 0, 0)
	if len(txs) > 0 && txs[0].Date.Before(from) {
		from = txs[0].Date
	}

	store := prices.NewStore(s.client, s.historyDB, s.log)
	store.Load(ctx, gatherSymbols(current, txs, s.cfg.BenchmarkSymbol), from.Add(-priceLoadSlack), now)

	return s.attribution.Analyze(txs, current, store, now), nil
}

func (s *Service) buildSummary(stocks []attribution.SymbolReport) Summary {
	summary := Summary{PositionCount: len(stocks)}
	if len(stocks) == 0 {
		return summary
	}

	var wins int
	var alphaSum float64
	var alphaCount int
	best, worst := stocks[0], stocks[0]

	for _, stock := range stocks {
		if stock.TotalReturn > best.TotalReturn {
			best = stock
		}
		if stock.TotalReturn < worst.TotalReturn {
			worst = stock
		}
		if stock.TotalReturn > 0 {
			wins++
		}
		if stock.Alpha != nil && !s.attribution.IsBenchmarkProxy(stock.Symbol) {
			alphaSum += *stock.Alpha
			alphaCount++
		}
	}

	summary.BestPerformer = best.Symbol
	summary.BestReturn = best.TotalReturn
	summary.WorstPerformer = worst.Symbol
	summary.WorstReturn = worst.TotalReturn
	summary.WinRate = float64(wins) / float64(len(stocks))
	if alphaCount > 0 {
		avg := alphaSum / float64(alphaCount)
		summary.AverageAlpha = &avg
	}
	return summary
}

func buildSparkline(values []domain.ValuePoint) Sparkline {
	spark := Sparkline{
		Dates: make([]time.Time, len(values)),
		Raw:   make([]float64, len(values)),
	}
	for i, v := range values {
		spark.Dates[i] = v.Date
		spark.Raw[i] = v.Value
	}

	if len(spark.Raw) >= sparklineSmaPeriod {
		spark.Smoothed = talib.Sma(spark.Raw, sparklineSmaPeriod)
		// talib pads the warmup window with zeros; backfill with raw values
		// so the chart has no artificial dip at the start.
		copy(spark.Smoothed[:sparklineSmaPeriod-1], spark.Raw[:sparklineSmaPeriod-1])
	} else {
		spark.Smoothed = append([]float64(nil), spark.Raw...)
	}
	return spark
}

func gatherSymbols(current map[string]float64, txs []domain.Transaction, benchmark string) []string {
	seen := map[string]bool{benchmark: true}
	symbols := []string{benchmark}
	for symbol := range current {
		if !seen[symbol] {
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}
	for _, tx := range txs {
		if !seen[tx.Symbol] {
			seen[tx.Symbol] = true
			symbols = append(symbols, tx.Symbol)
		}
	}
	return symbols
}

func normalizePeriod(period string) string {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "1m", "3m", "6m", "ytd", "1y", "2y", "5y", "all":
		return strings.ToLower(strings.TrimSpace(period))
	case "":
		return defaultPeriod
	default:
		return defaultPeriod
	}
}

func periodStart(now time.Time, period string) time.Time {
	switch period {
	case "1m":
		return now.AddDate(0, -1, 0)
	case "3m":
		return now.AddDate(0, -3, 0)
	case "6m":
		return now.AddDate(0, -6, 0)
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case "2y":
		return now.AddDate(-2, 0, 0)
	case "5y":
		return now.AddDate(-5, 0, 0)
	case "all":
		return time.Time{}
	default:
		return now.AddDate(-1, 0, 0)
	}
}
