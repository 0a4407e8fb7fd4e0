package analysis

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

// CacheSchema creates the analysis result cache table.
const CacheSchema = `
CREATE TABLE IF NOT EXISTS analysis_cache (
	key        TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Cache stores serialized analysis results keyed by the inputs that produced
// them, so repeated requests for an unchanged portfolio skip the pipeline.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewCache creates a result cache backed by the cache-profile database.
func NewCache(db *sql.DB, ttl time.Duration) *Cache {
	return &Cache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("service", "analysis-cache").Logger(),
	}
}

// CacheKey derives a stable key from the analysis window, benchmark and the
// exact current holdings. Any change to share counts invalidates the entry.
func CacheKey(period, benchmark string, current map[string]float64) string {
	symbols := make([]string, 0, len(current))
	for s := range current {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", period, benchmark)
	for _, s := range symbols {
		fmt.Fprintf(h, "|%s:%.6f", s, current[s])
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Get returns the cached result for key if present and not expired.
func (c *Cache) Get(key string) (*Result, bool) {
	var payload []byte
	var createdAt int64
	err := c.db.QueryRow(
		"SELECT payload, created_at FROM analysis_cache WHERE key = ?", key,
	).Scan(&payload, &createdAt)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("cache read failed")
		return nil, false
	}

	if time.Since(time.Unix(createdAt, 0)) > c.ttl {
		return nil, false
	}

	var result Result
	if err := msgpack.Unmarshal(payload, &result); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache entry corrupt, dropping")
		_, _ = c.db.Exec("DELETE FROM analysis_cache WHERE key = ?", key)
		return nil, false
	}
	return &result, true
}

// Put stores a result under key, replacing any previous entry.
func (c *Cache) Put(key string, result *Result) error {
	payload, err := msgpack.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize analysis result: %w", err)
	}
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO analysis_cache (key, payload, created_at) VALUES (?, ?, ?)",
		key, payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write analysis cache: %w", err)
	}
	return nil
}

// Prune deletes expired entries.
func (c *Cache) Prune() error {
	cutoff := time.Now().Add(-c.ttl).Unix()
	res, err := c.db.Exec("DELETE FROM analysis_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune analysis cache: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		c.log.Debug().Int64("pruned", n).Msg("expired cache entries removed")
	}
	return nil
}
