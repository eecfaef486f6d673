// Package models provides the data structures used throughout the application.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction values used by the aggregator API and stored verbatim.
const (
	Debit  = "DBIT"
	Credit = "CRDT"
)

// AmountField is the monetary amount of a raw transaction as delivered
// by the aggregator: a decimal string plus an ISO currency code.
type AmountField struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// PartyField carries the display name of a creditor or debtor.
type PartyField struct {
	Name string `json:"name"`
}

// AccountField carries the account identifier of a creditor or debtor.
type AccountField struct {
	IBAN string `json:"iban"`
}

// RawTransactionRecord is one transaction as returned by the aggregator's
// listing endpoint. All pointer fields are nullable in the API.
type RawTransactionRecord struct {
	EntryReference        *string       `json:"entry_reference"`
	TransactionAmount     AmountField   `json:"transaction_amount"`
	CreditDebitIndicator  string        `json:"credit_debit_indicator"`
	Status                string        `json:"status"`
	BookingDate           *string       `json:"booking_date"`
	ValueDate             *string       `json:"value_date"`
	TransactionDate       *string       `json:"transaction_date"`
	Creditor              *PartyField   `json:"creditor"`
	Debtor                *PartyField   `json:"debtor"`
	CreditorAccount       *AccountField `json:"creditor_account"`
	DebtorAccount         *AccountField `json:"debtor_account"`
	RemittanceInformation []string      `json:"remittance_information"`
	MerchantCategoryCode  *string       `json:"merchant_category_code"`
	BankTransactionCode   *string       `json:"bank_transaction_code"`
}

// ResolvedDate returns the value date if present, else the booking date,
// else the empty string. This is the date used both for identity hashing
// and for the persisted transaction date.
func (r *RawTransactionRecord) ResolvedDate() string {
	if r.ValueDate != nil && *r.ValueDate != "" {
		return *r.ValueDate
	}
	if r.BookingDate != nil && *r.BookingDate != "" {
		return *r.BookingDate
	}
	return ""
}

// IsDebit returns true if the record represents outgoing money.
func (r *RawTransactionRecord) IsDebit() bool {
	return r.CreditDebitIndicator == Debit
}

// IsCredit returns true if the record represents incoming money.
func (r *RawTransactionRecord) IsCredit() bool {
	return r.CreditDebitIndicator == Credit
}

// Transaction is the normalized, persisted form of a bank transaction.
// Hash is the natural key: the store's unique index on it is the sole
// deduplication mechanism across re-fetches.
type Transaction struct {
	Hash                 string          `bson:"_id" csv:"Hash"`
	Amount               decimal.Decimal `bson:"amount" csv:"Amount"`
	Currency             string          `bson:"currency" csv:"Currency"`
	Direction            string          `bson:"direction" csv:"Direction"`
	Date                 time.Time       `bson:"date" csv:"Date"`
	CounterpartyName     string          `bson:"counterpartyName" csv:"CounterpartyName"`
	CounterpartyAccount  string          `bson:"counterpartyAccount,omitempty" csv:"CounterpartyAccount"`
	Description          string          `bson:"description" csv:"Description"`
	Status               string          `bson:"status" csv:"Status"`
	EntryReference       string          `bson:"entryReference,omitempty" csv:"EntryReference"`
	MerchantCategoryCode string          `bson:"merchantCategoryCode,omitempty" csv:"MerchantCategoryCode"`
	Source               string          `bson:"source" csv:"Source"`
}

// IsDebit returns true if the transaction is a debit (outgoing money)
func (t *Transaction) IsDebit() bool {
	return t.Direction == Debit
}

// IsCredit returns true if the transaction is a credit (incoming money)
func (t *Transaction) IsCredit() bool {
	return t.Direction == Credit
}
