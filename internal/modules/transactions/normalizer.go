// Package transactions parses raw brokerage activity records into a typed,
// filtered, date-ordered transaction stream.
package transactions

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/hindsight/internal/domain"
)

// tickerPattern is the equity-ticker shape check: 1-5 uppercase letters.
var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// dateLayouts are tried in order when parsing activity dates.
var dateLayouts = []string{
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01/02/06",
	"2006-01-02",
}

// Normalizer is the sole producer of domain.Transaction values.
type Normalizer struct {
	cashSweepSymbol string
	log             zerolog.Logger
}

// NewNormalizer creates a new transaction normalizer.
// cashSweepSymbol is the money-market sweep instrument whose "transactions"
// are cash movements, not equity share movements.
func NewNormalizer(cashSweepSymbol string, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		cashSweepSymbol: strings.ToUpper(cashSweepSymbol),
		log:             log.With().Str("service", "normalizer").Logger(),
	}
}

// Normalize parses raw activity rows from any number of source files into an
// ordered transaction list. Malformed rows are skipped, never fatal. The
// result is sorted ascending by date with the original relative order
// preserved for same-day rows.
func (n *Normalizer) Normalize(files [][]RawRow) []domain.Transaction {
	var txs []domain.Transaction

	parsed, skipped := 0, 0
	for _, rows := range files {
		for _, row := range rows {
			tx, ok := n.parseRow(row)
			if !ok {
				skipped++
				continue
			}
			txs = append(txs, tx)
			parsed++
		}
	}

	// Stable: same-day rows keep their source order
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})

	n.log.Info().
		Int("parsed", parsed).
		Int("skipped", skipped).
		Msg("Normalized activity records")

	return txs
}

// parseRow converts one raw row into a transaction. Returns false for rows
// that are unparseable or out of scope (non-equity symbols, cash sweeps,
// non-share-moving actions).
func (n *Normalizer) parseRow(row RawRow) (domain.Transaction, bool) {
	date, ok := parseDate(row.Date)
	if !ok {
		n.log.Debug().Str("date", row.Date).Msg("Skipping row with unparseable date")
		return domain.Transaction{}, false
	}

	symbol := strings.ToUpper(strings.TrimSpace(row.Symbol))
	if !tickerPattern.MatchString(symbol) {
		return domain.Transaction{}, false
	}
	if symbol == n.cashSweepSymbol {
		return domain.Transaction{}, false
	}

	var txType domain.TransactionType
	switch Classify(row.Action) {
	case ActionBuy:
		txType = domain.TransactionBuy
	case ActionSell:
		txType = domain.TransactionSell
	case ActionTransferIn:
		txType = domain.TransactionTransferIn
	case ActionTransferOut:
		txType = domain.TransactionTransferOut
	default:
		return domain.Transaction{}, false
	}

	quantity := math.Abs(parseFloat(row.Quantity))
	if quantity == 0 {
		return domain.Transaction{}, false
	}

	return domain.Transaction{
		Date:        date,
		Symbol:      symbol,
		Type:        txType,
		Quantity:    quantity,
		Price:       math.Abs(parseFloat(row.Price)),
		Amount:      math.Abs(parseFloat(row.Amount)),
		Description: strings.TrimSpace(row.Description),
	}, true
}

// parseDate tries the known activity-export date layouts.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t), true
		}
	}
	return time.Time{}, false
}

// parseFloat parses a currency-ish number, tolerating $, commas, parentheses
// for negatives, and blank fields.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if negative {
		v = -v
	}
	return v
}
