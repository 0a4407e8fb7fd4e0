package attribution

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aristath/hindsight/internal/domain"
)

const (
	// Share-count gaps below this are rounding noise, not missing history.
	reconcileTolerance = 0.5

	// Holding periods shorter than this are not annualized.
	minAnnualizeYears = 0.1

	daysPerYear = 365.25
)

// PriceLookup is the price access the engine needs, satisfied by prices.Store.
type PriceLookup interface {
	PriceOn(symbol string, date time.Time) (float64, bool)
	Series(symbol string) []domain.PriceBar
}

// SymbolReport is the per-position attribution result.
type SymbolReport struct {
	Symbol            string     `json:"symbol"`
	Active            bool       `json:"active"`
	CurrentShares     float64    `json:"currentShares"`
	CurrentValue      float64    `json:"currentValue"`
	CostBasis         float64    `json:"costBasis"`
	SellProceeds      float64    `json:"sellProceeds"`
	TotalReturn       float64    `json:"totalReturn"`
	CAGR              float64    `json:"cagr"`
	Alpha             *float64   `json:"alpha"` // vs dollar-weighted benchmark, nil when uncomputable
	HasEstimatedCost  bool       `json:"hasEstimatedCost"`
	UnrecordedShares  float64    `json:"unrecordedShares,omitempty"`
	FirstDate         *time.Time `json:"firstDate,omitempty"`
	LastDate          *time.Time `json:"lastDate,omitempty"`
	HoldingPeriodDays int        `json:"holdingPeriodDays"`
}

// Engine computes per-symbol attribution reports.
type Engine struct {
	benchmarkSymbol string
	log             zerolog.Logger
}

// NewEngine creates an attribution engine comparing against benchmarkSymbol.
func NewEngine(benchmarkSymbol string) *Engine {
	return &Engine{
		benchmarkSymbol: benchmarkSymbol,
		log:             log.With().Str("service", "attribution").Logger(),
	}
}

// Analyze builds per-symbol reports from the transaction history and current
// holdings. Positions with unexplained share counts get estimated cost bases
// and are flagged rather than dropped.
func (e *Engine) Analyze(txs []domain.Transaction, current map[string]float64, store PriceLookup, now time.Time) []SymbolReport {
	ledgers := BuildSymbolLedgers(txs, current)

	reports := make([]SymbolReport, 0, len(ledgers))
	for _, entry := range ledgers {
		report, ok := e.analyzeSymbol(entry, store, now)
		if !ok {
			continue
		}
		reports = append(reports, report)
	}
	return reports
}

func (e *Engine) analyzeSymbol(entry *SymbolLedgerEntry, store PriceLookup, now time.Time) (SymbolReport, bool) {
	e.reconcile(entry, store)

	endDate := now
	if !entry.Active() && !entry.LastDate.IsZero() {
		endDate = entry.LastDate
	}

	firstDate := entry.FirstDate
	if firstDate.IsZero() {
		// Pure reconciliation gap, date the position from the earliest bar.
		if bars := store.Series(entry.Symbol); len(bars) > 0 {
			firstDate = bars[0].Date
		}
	}

	var currentValue float64
	if entry.Active() {
		price, ok := store.PriceOn(entry.Symbol, now)
		if !ok {
			e.log.Warn().Str("symbol", entry.Symbol).Msg("no price data, skipping position")
			return SymbolReport{}, false
		}
		currentValue = entry.CurrentShares * price
	}

	totalReturn, ok := e.totalReturn(entry, currentValue)
	if !ok {
		e.log.Warn().Str("symbol", entry.Symbol).Msg("no cost basis, skipping position")
		return SymbolReport{}, false
	}

	report := SymbolReport{
		Symbol:           entry.Symbol,
		Active:           entry.Active(),
		CurrentShares:    entry.CurrentShares,
		CurrentValue:     currentValue,
		CostBasis:        entry.TotalCostBasis,
		SellProceeds:     entry.TotalSellProceeds,
		TotalReturn:      totalReturn,
		HasEstimatedCost: entry.HasEstimatedCost,
		UnrecordedShares: entry.UnrecordedShares,
	}
	if !firstDate.IsZero() {
		fd := firstDate
		report.FirstDate = &fd
		report.HoldingPeriodDays = int(endDate.Sub(firstDate).Hours() / 24)
	}
	if !entry.LastDate.IsZero() {
		ld := entry.LastDate
		report.LastDate = &ld
	}

	report.CAGR = annualize(totalReturn, firstDate, endDate)
	report.Alpha = e.benchmarkAlpha(entry, store, totalReturn, endDate)

	return report, true
}

// reconcile fills the estimated-cost fields when current shares exceed what
// the ledger explains. Unrecorded shares get costed at the most recent BUY
// price; with no recorded BUYs at all, at the earliest available bar.
func (e *Engine) reconcile(entry *SymbolLedgerEntry, store PriceLookup) {
	if !entry.Active() {
		return
	}

	netFromLedger := entry.TotalBoughtShares - entry.TotalSoldShares
	gap := entry.CurrentShares - netFromLedger
	if gap <= reconcileTolerance {
		return
	}

	entry.HasEstimatedCost = true
	entry.UnrecordedShares = gap

	estimate, ok := entry.lastBuyPrice()
	if !ok {
		if bars := store.Series(entry.Symbol); len(bars) > 0 {
			estimate = bars[0].Close
			ok = true
		}
	}
	if !ok {
		return
	}
	entry.TotalCostBasis += gap * estimate

	e.log.Debug().
		Str("symbol", entry.Symbol).
		Float64("unrecorded_shares", gap).
		Float64("estimated_price", estimate).
		Msg("reconciled position with estimated cost basis")
}

// totalReturn computes the position's return over its whole life. Active
// positions count the live value plus realized proceeds; exited positions
// compare proceeds to cost.
func (e *Engine) totalReturn(entry *SymbolLedgerEntry, currentValue float64) (float64, bool) {
	if entry.TotalCostBasis <= 0 {
		return 0, false
	}
	if entry.Active() {
		return (currentValue + entry.TotalSellProceeds - entry.TotalCostBasis) / entry.TotalCostBasis, true
	}
	return (entry.TotalSellProceeds - entry.TotalCostBasis) / entry.TotalCostBasis, true
}

// annualize converts a total return to a compound annual growth rate. Short
// holding periods return the raw total return, and total losses beyond -100%
// (which estimated cost bases can produce) are not annualized either.
func annualize(totalReturn float64, firstDate, endDate time.Time) float64 {
	if firstDate.IsZero() || !endDate.After(firstDate) {
		return totalReturn
	}
	years := endDate.Sub(firstDate).Hours() / 24 / daysPerYear
	if years < minAnnualizeYears {
		return totalReturn
	}
	if totalReturn <= -1 {
		return totalReturn
	}
	return math.Pow(1+totalReturn, 1/years) - 1
}

// benchmarkAlpha computes the dollar-weighted excess return over the
// benchmark: every recorded BUY's dollars hypothetically buy benchmark shares
// the same day, and the basket is valued at the position's end date. Exited
// positions are still compared at their last-trade date, which ignores what
// the proceeds would have earned afterwards.
func (e *Engine) benchmarkAlpha(entry *SymbolLedgerEntry, store PriceLookup, totalReturn float64, endDate time.Time) *float64 {
	if entry.Symbol == e.benchmarkSymbol {
		zero := 0.0
		return &zero
	}

	var benchShares, invested float64
	for _, tx := range entry.Transactions {
		if tx.Type != domain.TransactionBuy {
			continue
		}
		dollars := tx.Amount
		if dollars == 0 && tx.Price > 0 {
			dollars = tx.Quantity * tx.Price
		}
		if dollars <= 0 {
			continue
		}
		benchPrice, ok := store.PriceOn(e.benchmarkSymbol, tx.Date)
		if !ok || benchPrice <= 0 {
			continue
		}
		benchShares += dollars / benchPrice
		invested += dollars
	}
	if invested <= 0 {
		return nil
	}

	benchEnd, ok := store.PriceOn(e.benchmarkSymbol, endDate)
	if !ok || benchEnd <= 0 {
		return nil
	}

	benchReturn := (benchShares*benchEnd - invested) / invested
	alpha := totalReturn - benchReturn
	return &alpha
}

// benchmarkProxies lists instruments that track the S&P 500 closely enough
// that measuring their alpha against it is circular.
var benchmarkProxies = map[string]bool{
	"SPY":  true,
	"VOO":  true,
	"IVV":  true,
	"SPLG": true,
}

// IsBenchmarkProxy reports whether a symbol should be excluded from
// alpha averages because it effectively is the benchmark.
func (e *Engine) IsBenchmarkProxy(symbol string) bool {
	return symbol == e.benchmarkSymbol || benchmarkProxies[symbol]
}
