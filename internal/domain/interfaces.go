package domain

import (
	"context"
	"time"
)

// MarketDataClient is the capability the engine consumes for price history.
// Implementations live under internal/clients; the analytics core never
// performs HTTP itself.
//
// FetchDailyBars returns ascending daily bars for one symbol. A failed fetch
// for a single symbol returns an error that callers must isolate; it must
// not abort sibling fetches in a batch.
type MarketDataClient interface {
	FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]PriceBar, error)
	FetchQuote(ctx context.Context, symbol string) (float64, error)
}

// Day truncates a timestamp to its calendar day in UTC. Ledger and price
// data carry no intraday resolution, so all date math happens on days.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
