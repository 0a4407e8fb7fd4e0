// Package domain provides core domain models and types.
package domain

import "time"

// TransactionType classifies a ledger transaction's effect on share counts.
type TransactionType string

const (
	// TransactionBuy represents a share purchase (incl. dividend reinvestment)
	TransactionBuy TransactionType = "BUY"
	// TransactionSell represents a share sale
	TransactionSell TransactionType = "SELL"
	// TransactionTransferIn represents shares transferred into the account
	TransactionTransferIn TransactionType = "TRANSFER_IN"
	// TransactionTransferOut represents shares transferred out of the account
	TransactionTransferOut TransactionType = "TRANSFER_OUT"
)

// Transaction is one normalized ledger record. Transactions are immutable
// once produced by the normalizer.
type Transaction struct {
	Date        time.Time       `json:"date"`
	Symbol      string          `json:"symbol"`
	Type        TransactionType `json:"type"`
	Quantity    float64         `json:"quantity"` // always > 0; direction comes from Type
	Price       float64         `json:"price,omitempty"`
	Amount      float64         `json:"amount,omitempty"` // dollar value of the transaction
	Description string          `json:"description,omitempty"`
}

// IsAcquisition reports whether the transaction added shares to the portfolio.
func (t Transaction) IsAcquisition() bool {
	return t.Type == TransactionBuy || t.Type == TransactionTransferIn
}

// IsDisposal reports whether the transaction removed shares from the portfolio.
func (t Transaction) IsDisposal() bool {
	return t.Type == TransactionSell || t.Type == TransactionTransferOut
}

// Position represents one line of the present-day holdings export.
// Current holdings are ground truth: the reconstructor replays the ledger
// backward from them, never the other way around.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

// HoldingsSnapshot is the portfolio's composition as of one instant.
type HoldingsSnapshot struct {
	Date     time.Time          `json:"date"`
	Holdings map[string]float64 `json:"holdings"` // symbol -> share count
}

// PriceBar is one daily OHLCV bar for a symbol.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// ValuePoint is one day of a valuation time series.
type ValuePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
