package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/bankfeed/internal/models"
)

func TestDocRoundtrip(t *testing.T) {
	tx := models.Transaction{
		Hash:                 "a3f1c9d2e8b74056a1c2d3e4",
		Amount:               decimal.RequireFromString("22.30"),
		Currency:             "EUR",
		Direction:            models.Debit,
		Date:                 time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC),
		CounterpartyName:     "Wolt Estonia EE",
		CounterpartyAccount:  "EE123456789012345678",
		Description:          "(123456) Wolt Estonia EE",
		Status:               "BOOK",
		EntryReference:       "2026020600123",
		MerchantCategoryCode: "5812",
		Source:               "lhv",
	}

	doc, err := toDoc(&tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash, doc.Hash)
	assert.Equal(t, "22.30", doc.Amount.String())

	back, err := fromDoc(&doc)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash, back.Hash)
	assert.True(t, back.Amount.Equal(tx.Amount))
	assert.Equal(t, tx.Currency, back.Currency)
	assert.Equal(t, tx.Direction, back.Direction)
	assert.Equal(t, tx.Date, back.Date)
	assert.Equal(t, tx.CounterpartyName, back.CounterpartyName)
	assert.Equal(t, tx.CounterpartyAccount, back.CounterpartyAccount)
	assert.Equal(t, tx.Description, back.Description)
	assert.Equal(t, tx.Status, back.Status)
	assert.Equal(t, tx.EntryReference, back.EntryReference)
	assert.Equal(t, tx.MerchantCategoryCode, back.MerchantCategoryCode)
	assert.Equal(t, tx.Source, back.Source)
}

func TestDocPreservesScale(t *testing.T) {
	tx := models.Transaction{
		Hash:   "h1",
		Amount: decimal.RequireFromString("1000.00"),
	}

	doc, err := toDoc(&tx)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", doc.Amount.String())

	back, err := fromDoc(&doc)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", back.Amount.StringFixed(2))
}
