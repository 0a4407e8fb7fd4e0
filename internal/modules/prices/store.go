package prices

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/hindsight/internal/domain"
)

const (
	// fetchBatchSize bounds concurrent upstream fetches per batch.
	fetchBatchSize = 10
	// batchPause is the pause between batches, a courtesy to upstream rate
	// limits rather than a correctness requirement.
	batchPause = 500 * time.Millisecond
)

// Store caches one price series per symbol for an analysis run. It is an
// explicit per-run object: create it, Load the symbols you need, then hand
// it to the valuation and attribution engines. Cached series are append-only
// per symbol and never rewritten once populated for a range.
type Store struct {
	client    domain.MarketDataClient
	historyDB *HistoryDB // optional persistent write-through cache

	mu     sync.RWMutex
	series map[string][]domain.PriceBar // ascending bars; empty slice = failed fetch

	log zerolog.Logger
}

// NewStore creates a new price series store.
// historyDB is optional - if nil, persistent caching is disabled.
func NewStore(client domain.MarketDataClient, historyDB *HistoryDB, log zerolog.Logger) *Store {
	return &Store{
		client:    client,
		historyDB: historyDB,
		series:    make(map[string][]domain.PriceBar),
		log:       log.With().Str("service", "price_store").Logger(),
	}
}

// Load fetches and caches daily bars for all symbols over [from, to].
// Distinct symbols fetch concurrently in bounded batches with a brief pause
// between batches. A failed symbol yields an empty cached series and never
// aborts its siblings.
func (s *Store) Load(ctx context.Context, symbols []string, from, to time.Time) {
	pending := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		s.mu.RLock()
		_, cached := s.series[symbol]
		s.mu.RUnlock()
		if !cached {
			pending = append(pending, symbol)
		}
	}

	for start := 0; start < len(pending); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		var wg sync.WaitGroup
		for _, symbol := range batch {
			wg.Add(1)
			go func(symbol string) {
				defer wg.Done()
				s.loadSymbol(ctx, symbol, from, to)
			}(symbol)
		}
		wg.Wait()

		if end < len(pending) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(batchPause):
			}
		}
	}
}

// loadSymbol resolves one symbol's series: persistent cache first, then the
// market-data client with write-through. Errors degrade to an empty series.
func (s *Store) loadSymbol(ctx context.Context, symbol string, from, to time.Time) {
	if s.historyDB != nil {
		bars, err := s.historyDB.GetBars(symbol, from, to)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("History database read failed")
		} else if covers(bars, from, to) {
			s.put(symbol, bars)
			return
		}
	}

	bars, err := s.client.FetchDailyBars(ctx, symbol, from, to)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Price fetch failed, symbol excluded from valuation")
		s.put(symbol, nil)
		return
	}

	if s.historyDB != nil {
		if err := s.historyDB.SyncBars(symbol, bars); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist fetched bars")
		}
	}

	s.put(symbol, bars)
}

// covers reports whether cached bars plausibly span the requested range:
// the series must start within a week of the range start and end within a
// week of the range end (or today, whichever is earlier).
func covers(bars []domain.PriceBar, from, to time.Time) bool {
	if len(bars) == 0 {
		return false
	}

	const slack = 7 * 24 * time.Hour
	if bars[0].Date.After(from.Add(slack)) {
		return false
	}

	want := to
	if now := domain.Day(time.Now()); now.Before(want) {
		want = now
	}
	return !bars[len(bars)-1].Date.Before(want.Add(-slack))
}

func (s *Store) put(symbol string, bars []domain.PriceBar) {
	sorted := make([]domain.PriceBar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	s.mu.Lock()
	s.series[symbol] = sorted
	s.mu.Unlock()
}

// Series returns a symbol's cached bars, ascending. The slice is shared;
// callers must not mutate it.
func (s *Store) Series(symbol string) []domain.PriceBar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series[symbol]
}

// PriceOn resolves a symbol's price on a date using nearest-prior lookup.
// Dates before the earliest cached bar return that earliest bar's close as a
// degraded fallback, so any symbol with at least one bar always resolves.
// The second return is false only for symbols with no data at all.
func (s *Store) PriceOn(symbol string, date time.Time) (float64, bool) {
	s.mu.RLock()
	bars := s.series[symbol]
	s.mu.RUnlock()

	if len(bars) == 0 {
		return 0, false
	}

	day := domain.Day(date)

	// First bar strictly after the date
	idx := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(day)
	})
	if idx == 0 {
		// Date precedes all data; earliest bar is the best estimate available
		return bars[0].Close, true
	}
	return bars[idx-1].Close, true
}

// EarliestPrice returns a symbol's oldest cached close, used to estimate the
// cost of shares the ledger cannot explain.
func (s *Store) EarliestPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bars := s.series[symbol]
	if len(bars) == 0 {
		return 0, false
	}
	return bars[0].Close, true
}
