package transactions

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/hindsight/internal/domain"
)

func testNormalizer() *Normalizer {
	return NewNormalizer("SPAXX", zerolog.Nop())
}

func TestNormalize_ParsesAndSorts(t *testing.T) {
	n := testNormalizer()

	files := [][]RawRow{
		{
			{Date: "03/15/2023", Action: "YOU SOLD", Symbol: "AAPL", Quantity: "5", Price: "160.00", Amount: "800.00"},
			{Date: "1/10/2023", Action: "YOU BOUGHT", Symbol: "AAPL", Quantity: "10", Price: "150.00", Amount: "1,500.00"},
		},
	}

	txs := n.Normalize(files)

	assert.Len(t, txs, 2)
	assert.Equal(t, domain.TransactionBuy, txs[0].Type)
	assert.Equal(t, time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC), txs[0].Date)
	assert.Equal(t, 1500.0, txs[0].Amount)
	assert.Equal(t, domain.TransactionSell, txs[1].Type)
}

func TestNormalize_StableSortPreservesSameDayOrder(t *testing.T) {
	n := testNormalizer()

	files := [][]RawRow{
		{
			{Date: "02/01/2023", Action: "YOU BOUGHT", Symbol: "AAA", Quantity: "1"},
			{Date: "02/01/2023", Action: "YOU SOLD", Symbol: "AAA", Quantity: "1"},
		},
	}

	txs := n.Normalize(files)

	assert.Len(t, txs, 2)
	assert.Equal(t, domain.TransactionBuy, txs[0].Type)
	assert.Equal(t, domain.TransactionSell, txs[1].Type)
}

func TestNormalize_SkipsMalformedRows(t *testing.T) {
	n := testNormalizer()

	files := [][]RawRow{
		{
			{Date: "not-a-date", Action: "YOU BOUGHT", Symbol: "AAPL", Quantity: "10"},
			{Date: "02/01/2023", Action: "YOU BOUGHT", Symbol: "toolong", Quantity: "10"},
			{Date: "02/01/2023", Action: "YOU BOUGHT", Symbol: "BRKXX7", Quantity: "10"},
			{Date: "02/01/2023", Action: "YOU BOUGHT", Symbol: "AAPL", Quantity: "0"},
			{Date: "02/01/2023", Action: "YOU BOUGHT", Symbol: "AAPL", Quantity: "10"},
		},
	}

	txs := n.Normalize(files)

	assert.Len(t, txs, 1)
	assert.Equal(t, "AAPL", txs[0].Symbol)
}

func TestNormalize_RejectsCashSweep(t *testing.T) {
	n := testNormalizer()

	files := [][]RawRow{
		{
			{Date: "02/01/2023", Action: "REINVESTMENT", Symbol: "SPAXX", Quantity: "100"},
			{Date: "02/01/2023", Action: "REINVESTMENT", Symbol: "VTI", Quantity: "2", Price: "210", Amount: "420"},
		},
	}

	txs := n.Normalize(files)

	assert.Len(t, txs, 1)
	assert.Equal(t, "VTI", txs[0].Symbol)
	assert.Equal(t, domain.TransactionBuy, txs[0].Type)
}

func TestNormalize_IgnoredActionsDropped(t *testing.T) {
	n := testNormalizer()

	files := [][]RawRow{
		{
			{Date: "02/01/2023", Action: "DIVIDEND RECEIVED", Symbol: "VTI", Quantity: "0.5"},
			{Date: "02/01/2023", Action: "INTEREST", Symbol: "VTI", Quantity: "1"},
		},
	}

	assert.Empty(t, n.Normalize(files))
}

func TestNormalize_NegativeQuantitiesBecomeMagnitudes(t *testing.T) {
	n := testNormalizer()

	files := [][]RawRow{
		{
			{Date: "02/01/2023", Action: "YOU SOLD", Symbol: "VTI", Quantity: "-3", Amount: "(630.00)"},
		},
	}

	txs := n.Normalize(files)

	assert.Len(t, txs, 1)
	assert.Equal(t, 3.0, txs[0].Quantity)
	assert.Equal(t, 630.0, txs[0].Amount)
}

func TestNormalize_TwoDigitYears(t *testing.T) {
	n := testNormalizer()

	files := [][]RawRow{
		{
			{Date: "6/5/19", Action: "YOU BOUGHT", Symbol: "KO", Quantity: "4"},
		},
	}

	txs := n.Normalize(files)

	assert.Len(t, txs, 1)
	assert.Equal(t, 2019, txs[0].Date.Year())
}

func TestParseFloat(t *testing.T) {
	assert.Equal(t, 1234.56, parseFloat("$1,234.56"))
	assert.Equal(t, -42.0, parseFloat("(42)"))
	assert.Equal(t, 0.0, parseFloat(""))
	assert.Equal(t, 0.0, parseFloat("n/a"))
}
