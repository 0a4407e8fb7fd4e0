package transactions

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/hindsight/internal/domain"
)

// Loader reads brokerage CSV exports from disk into raw rows. File-level
// failures degrade: a missing or unreadable file is skipped, not fatal.
type Loader struct {
	log zerolog.Logger
}

// NewLoader creates a new CSV loader
func NewLoader(log zerolog.Logger) *Loader {
	return &Loader{
		log: log.With().Str("service", "csv_loader").Logger(),
	}
}

// LoadActivityDir reads every *.csv file in dir as an activity export and
// returns one raw-row slice per readable file.
func (l *Loader) LoadActivityDir(dir string) [][]RawRow {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil || len(paths) == 0 {
		l.log.Warn().Str("dir", dir).Msg("No activity files found")
		return nil
	}
	sort.Strings(paths)

	var files [][]RawRow
	for _, path := range paths {
		rows, err := l.loadActivityFile(path)
		if err != nil {
			l.log.Warn().Err(err).Str("file", path).Msg("Skipping unreadable activity file")
			continue
		}
		files = append(files, rows)
	}
	return files
}

// loadActivityFile parses one activity CSV into raw rows. Column positions
// follow the common brokerage export layout:
// date, action, symbol, description, quantity, price, amount.
func (l *Loader) loadActivityFile(path string) ([]RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // exports pad trailing columns inconsistently

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var rows []RawRow
	for i, rec := range records {
		if len(rec) < 5 {
			continue
		}
		// Header row detection: first row whose date column isn't date-shaped
		if i == 0 && strings.Contains(strings.ToLower(rec[0]), "date") {
			continue
		}

		row := RawRow{
			Date:        rec[0],
			Action:      rec[1],
			Symbol:      rec[2],
			Description: rec[3],
			Quantity:    rec[4],
		}
		if len(rec) > 5 {
			row.Price = rec[5]
		}
		if len(rec) > 6 {
			row.Amount = rec[6]
		}
		rows = append(rows, row)
	}

	l.log.Debug().Str("file", path).Int("rows", len(rows)).Msg("Loaded activity file")
	return rows, nil
}

// LoadPositions reads a present-day positions CSV (symbol, quantity) into
// the ground-truth holdings list. Rows with non-positive or unparseable
// quantities are skipped.
func (l *Loader) LoadPositions(path string) ([]domain.Position, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var positions []domain.Position
	for i, rec := range records {
		if len(rec) < 2 {
			continue
		}
		if i == 0 && strings.Contains(strings.ToLower(rec[0]), "symbol") {
			continue
		}

		symbol := strings.ToUpper(strings.TrimSpace(rec[0]))
		qty := parseFloat(rec[1])
		if !tickerPattern.MatchString(symbol) || qty <= 0 {
			continue
		}
		positions = append(positions, domain.Position{Symbol: symbol, Quantity: qty})
	}

	l.log.Info().Str("file", path).Int("positions", len(positions)).Msg("Loaded current positions")
	return positions, nil
}
