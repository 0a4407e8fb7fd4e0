// Package attribution reconciles per-symbol ledger history against present
// holdings and computes per-position performance.
package attribution

import (
	"sort"
	"time"

	"github.com/aristath/hindsight/internal/domain"
)

// SymbolLedgerEntry aggregates one symbol's full transaction history.
type SymbolLedgerEntry struct {
	Symbol            string
	TotalBoughtShares float64 // BUY + TRANSFER_IN quantities
	TotalSoldShares   float64 // SELL + TRANSFER_OUT quantities
	TotalCostBasis    float64 // dollars paid across recorded BUYs
	TotalSellProceeds float64 // dollars received across recorded SELLs
	Transactions      []domain.Transaction
	FirstDate         time.Time
	LastDate          time.Time
	CurrentShares     float64 // 0 for fully exited positions

	// Reconciliation results, filled by the engine
	HasEstimatedCost bool
	UnrecordedShares float64
}

// Active reports whether the position is still held.
func (e *SymbolLedgerEntry) Active() bool {
	return e.CurrentShares > 0
}

// BuildSymbolLedgers aggregates transactions per symbol and joins in current
// holdings. Symbols currently held with no transaction history get an entry
// too; those are the pure reconciliation gaps.
func BuildSymbolLedgers(txs []domain.Transaction, current map[string]float64) []*SymbolLedgerEntry {
	bySymbol := make(map[string]*SymbolLedgerEntry)

	entry := func(symbol string) *SymbolLedgerEntry {
		if e, ok := bySymbol[symbol]; ok {
			return e
		}
		e := &SymbolLedgerEntry{Symbol: symbol}
		bySymbol[symbol] = e
		return e
	}

	for _, tx := range txs {
		e := entry(tx.Symbol)
		e.Transactions = append(e.Transactions, tx)

		if e.FirstDate.IsZero() || tx.Date.Before(e.FirstDate) {
			e.FirstDate = tx.Date
		}
		if tx.Date.After(e.LastDate) {
			e.LastDate = tx.Date
		}

		amount := tx.Amount
		if amount == 0 && tx.Price > 0 {
			amount = tx.Quantity * tx.Price
		}

		switch tx.Type {
		case domain.TransactionBuy:
			e.TotalBoughtShares += tx.Quantity
			e.TotalCostBasis += amount
		case domain.TransactionTransferIn:
			e.TotalBoughtShares += tx.Quantity
			// Transfers carry cost only when the export recorded one
			e.TotalCostBasis += amount
		case domain.TransactionSell:
			e.TotalSoldShares += tx.Quantity
			e.TotalSellProceeds += amount
		case domain.TransactionTransferOut:
			e.TotalSoldShares += tx.Quantity
		}
	}

	for symbol, qty := range current {
		if qty <= 0 {
			continue
		}
		entry(symbol).CurrentShares = qty
	}

	entries := make([]*SymbolLedgerEntry, 0, len(bySymbol))
	for _, e := range bySymbol {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })

	return entries
}

// lastBuyPrice returns the price of the most recent recorded BUY, falling
// back to amount/quantity when the export omitted the unit price. Returns
// false when the symbol has no usable BUY.
func (e *SymbolLedgerEntry) lastBuyPrice() (float64, bool) {
	for i := len(e.Transactions) - 1; i >= 0; i-- {
		tx := e.Transactions[i]
		if tx.Type != domain.TransactionBuy {
			continue
		}
		if tx.Price > 0 {
			return tx.Price, true
		}
		if tx.Amount > 0 && tx.Quantity > 0 {
			return tx.Amount / tx.Quantity, true
		}
	}
	return 0, false
}
