package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/hindsight/internal/domain"
	"github.com/aristath/hindsight/internal/modules/prices"
)

const priceSyncTimeout = 5 * time.Minute

// PriceSyncJob refreshes the price history database for every symbol it
// already knows about, so analysis runs hit warm local data instead of the
// upstream API.
type PriceSyncJob struct {
	client    domain.MarketDataClient
	historyDB *prices.HistoryDB
	log       zerolog.Logger
}

// NewPriceSyncJob creates the background price refresh job.
func NewPriceSyncJob(client domain.MarketDataClient, historyDB *prices.HistoryDB, log zerolog.Logger) *PriceSyncJob {
	return &PriceSyncJob{
		client:    client,
		historyDB: historyDB,
		log:       log.With().Str("job", "price_sync").Logger(),
	}
}

// Name implements Job
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Run fetches bars from each symbol's last stored date forward. Per-symbol
// failures are logged and skipped so one bad symbol never blocks the rest.
func (j *PriceSyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), priceSyncTimeout)
	defer cancel()

	symbols, err := j.historyDB.Symbols()
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		j.log.Debug().Msg("No symbols in history database, nothing to sync")
		return nil
	}

	now := domain.Day(time.Now())
	var synced, failed int
	for _, symbol := range symbols {
		from := now.AddDate(0, 0, -30)
		if latest, err := j.historyDB.LatestDate(symbol); err == nil && !latest.IsZero() {
			from = latest.AddDate(0, 0, 1)
		}
		if from.After(now) {
			continue
		}

		bars, err := j.client.FetchDailyBars(ctx, symbol, from, now)
		if err != nil {
			j.log.Warn().Err(err).Str("symbol", symbol).Msg("Price sync fetch failed")
			failed++
			continue
		}
		if len(bars) == 0 {
			continue
		}
		if err := j.historyDB.SyncBars(symbol, bars); err != nil {
			j.log.Warn().Err(err).Str("symbol", symbol).Msg("Price sync write failed")
			failed++
			continue
		}
		synced++
	}

	j.log.Info().
		Int("symbols", len(symbols)).
		Int("synced", synced).
		Int("failed", failed).
		Msg("Price sync complete")
	return nil
}
