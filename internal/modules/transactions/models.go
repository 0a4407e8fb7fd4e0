package transactions

// RawRow is one unparsed activity record from a brokerage export.
// The normalizer knows nothing about file paths; ingestion hands it raw rows.
type RawRow struct {
	Date        string // e.g. "03/15/2023" or "3/15/23"
	Action      string // free-text action, e.g. "YOU BOUGHT AAPL ..."
	Symbol      string
	Description string
	Quantity    string
	Price       string
	Amount      string
}

// Action is the normalized classification of a raw activity action string.
type Action string

const (
	ActionBuy         Action = "BUY"
	ActionSell        Action = "SELL"
	ActionTransferIn  Action = "TRANSFER_IN"
	ActionTransferOut Action = "TRANSFER_OUT"
	// ActionIgnore marks rows that are not share-moving equity transactions
	// (fees, interest, cash sweeps, dividends paid in cash).
	ActionIgnore Action = "IGNORE"
)
