// Package prices fetches, persists, and serves daily price series with
// nearest-prior date resolution.
package prices

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/hindsight/internal/database"
	"github.com/aristath/hindsight/internal/domain"
)

// Schema is the history database schema, applied via database.DB.Migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS daily_prices (
	symbol TEXT NOT NULL,
	date   INTEGER NOT NULL, -- unix seconds at UTC midnight
	open   REAL NOT NULL DEFAULT 0,
	high   REAL NOT NULL DEFAULT 0,
	low    REAL NOT NULL DEFAULT 0,
	close  REAL NOT NULL,
	volume INTEGER,
	PRIMARY KEY (symbol, date)
);

CREATE INDEX IF NOT EXISTS idx_daily_prices_symbol_date
	ON daily_prices (symbol, date);
`

// HistoryDB provides access to persisted historical price data
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// GetBars fetches persisted daily bars for a symbol over [from, to],
// ascending by date.
func (h *HistoryDB) GetBars(symbol string, from, to time.Time) ([]domain.PriceBar, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := h.db.Query(query, symbol, domain.Day(from).Unix(), domain.Day(to).Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var bars []domain.PriceBar
	for rows.Next() {
		var bar domain.PriceBar
		var dateUnix int64
		var volume sql.NullInt64

		if err := rows.Scan(&dateUnix, &bar.Open, &bar.High, &bar.Low, &bar.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		bar.Date = time.Unix(dateUnix, 0).UTC()
		if volume.Valid {
			bar.Volume = volume.Int64
		}
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return bars, nil
}

// SyncBars inserts or replaces daily bars for a symbol inside one
// transaction. Bars for a fixed date are deterministic upstream, so
// last-writer-wins replacement is safe.
func (h *HistoryDB) SyncBars(symbol string, bars []domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	err := database.WithTransaction(h.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO daily_prices (symbol, date, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, bar := range bars {
			if _, err := stmt.Exec(symbol, domain.Day(bar.Date).Unix(),
				bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
				return fmt.Errorf("failed to insert bar for %s on %s: %w",
					symbol, bar.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Synced daily bars")
	return nil
}

// Symbols returns every symbol with at least one persisted bar.
func (h *HistoryDB) Symbols() ([]string, error) {
	rows, err := h.db.Query(`SELECT DISTINCT symbol FROM daily_prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// LatestDate returns the most recent bar date for a symbol, or zero time
// when the symbol has no persisted bars.
func (h *HistoryDB) LatestDate(symbol string) (time.Time, error) {
	var dateUnix sql.NullInt64
	err := h.db.QueryRow(
		`SELECT MAX(date) FROM daily_prices WHERE symbol = ?`, symbol,
	).Scan(&dateUnix)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest date: %w", err)
	}

	if !dateUnix.Valid {
		return time.Time{}, nil
	}
	return time.Unix(dateUnix.Int64, 0).UTC(), nil
}
