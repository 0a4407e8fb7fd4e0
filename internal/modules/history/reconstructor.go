// Package history reconstructs past portfolio composition from the present
// holdings and the transaction ledger.
package history

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/hindsight/internal/domain"
)

// shareEpsilon is the threshold below which a running share count is treated
// as zero during replay. Fractional-share exports round to 3 decimals, so
// anything smaller is arithmetic noise.
const shareEpsilon = 1e-6

// History is an immutable sequence of holdings snapshots, oldest first,
// binary-searchable by date.
type History struct {
	snapshots []domain.HoldingsSnapshot
}

// Reconstructor derives historical holdings by replaying the ledger backward
// from the authoritative present-day state.
type Reconstructor struct {
	log zerolog.Logger
}

// NewReconstructor creates a new holdings reconstructor
func NewReconstructor(log zerolog.Logger) *Reconstructor {
	return &Reconstructor{
		log: log.With().Str("service", "reconstructor").Logger(),
	}
}

// Reconstruct replays transactions in descending date order starting from
// the current holdings: undoing a BUY/TRANSFER_IN subtracts shares, undoing
// a SELL/TRANSFER_OUT adds them back. A snapshot is recorded after every
// undone transaction, plus one for the present day before replay begins.
//
// The ledger is known-incomplete; running counts that would go negative are
// clamped at zero rather than treated as errors. The caller's current map is
// never mutated.
//
// Snapshots are returned oldest-first. With an empty ledger the result is
// exactly one snapshot: today's holdings.
func (r *Reconstructor) Reconstruct(now time.Time, current map[string]float64, txs []domain.Transaction) *History {
	// Working copy; the input map stays untouched.
	running := make(map[string]float64, len(current))
	for symbol, qty := range current {
		if qty > shareEpsilon {
			running[symbol] = qty
		}
	}

	// Descending by date. Same-day order is immaterial for replay: share
	// arithmetic within a day commutes.
	ordered := make([]domain.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[j].Date.Before(ordered[i].Date)
	})

	// Newest first during construction, reversed at the end.
	snapshots := make([]domain.HoldingsSnapshot, 0, len(ordered)+1)
	snapshots = append(snapshots, domain.HoldingsSnapshot{
		Date:     domain.Day(now),
		Holdings: copyHoldings(running),
	})

	for _, tx := range ordered {
		switch {
		case tx.IsAcquisition():
			running[tx.Symbol] -= tx.Quantity
		case tx.IsDisposal():
			running[tx.Symbol] += tx.Quantity
		}

		if running[tx.Symbol] <= shareEpsilon {
			// Zero or not yet acquired at this point in time
			delete(running, tx.Symbol)
		}

		snapshots = append(snapshots, domain.HoldingsSnapshot{
			Date:     domain.Day(tx.Date),
			Holdings: copyHoldings(running),
		})
	}

	// Reverse to oldest-first. Each snapshot dated D carries the state just
	// before its transaction executed; the oldest snapshot is therefore the
	// state before the whole ledger, which forward replay needs.
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}

	r.log.Debug().
		Int("transactions", len(ordered)).
		Int("snapshots", len(snapshots)).
		Msg("Reconstructed holdings history")

	return &History{snapshots: snapshots}
}

// HoldingsOn returns the holdings map from the most recent snapshot dated at
// or before the query date. Before the first snapshot the portfolio did not
// exist yet; an empty map is returned.
//
// The returned map is shared; callers must not mutate it.
func (h *History) HoldingsOn(date time.Time) map[string]float64 {
	day := domain.Day(date)

	// Binary search: first snapshot strictly after the query date
	idx := sort.Search(len(h.snapshots), func(i int) bool {
		return h.snapshots[i].Date.After(day)
	})
	if idx == 0 {
		return map[string]float64{}
	}
	return h.snapshots[idx-1].Holdings
}

// Snapshots returns the snapshot sequence, oldest first.
func (h *History) Snapshots() []domain.HoldingsSnapshot {
	return h.snapshots
}

// Start returns the date of the oldest snapshot.
func (h *History) Start() time.Time {
	if len(h.snapshots) == 0 {
		return time.Time{}
	}
	return h.snapshots[0].Date
}

func copyHoldings(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
