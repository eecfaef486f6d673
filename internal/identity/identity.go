// Package identity derives the stable identity hash of a bank transaction
// and converts raw aggregator records into their normalized, persisted
// form. Everything here is pure: no I/O, no state.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"fjacquet/bankfeed/internal/currencyutils"
	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/feederror"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/textutils"
)

// HashLength is the number of hex characters kept from the SHA-256 digest.
// 96 bits is a deliberate trade-off between key size and collision risk:
// a collision would silently merge two distinct transactions, which is an
// accepted risk at per-account volumes. No widening/migration path exists.
const HashLength = 24

// Hash computes the deterministic identity hash of a raw transaction.
//
// The key is date|amount|currency|direction plus either the bank-issued
// entry reference (when present) or the normalized description. The entry
// reference takes precedence because it is immutable on the bank side:
// a bank may later edit or enrich the description text without creating
// a duplicate record.
func Hash(rec *models.RawTransactionRecord) string {
	base := fmt.Sprintf("%s|%s|%s|%s",
		rec.ResolvedDate(),
		rec.TransactionAmount.Amount,
		rec.TransactionAmount.Currency,
		rec.CreditDebitIndicator,
	)

	var key string
	if rec.EntryReference != nil && *rec.EntryReference != "" {
		key = base + "|ref:" + *rec.EntryReference
	} else {
		key = base + "|" + textutils.NormalizeDescription(rec.RemittanceInformation)
	}

	digest := sha256.Sum256([]byte(key))
	return hex.EncodeToString(digest[:])[:HashLength]
}

// Normalize converts a raw aggregator record into the persisted form.
// A record whose resolved date is absent or unparseable is invalid and
// returns an error; callers drop such records instead of aborting.
func Normalize(rec *models.RawTransactionRecord, source string) (models.Transaction, error) {
	dateStr := rec.ResolvedDate()
	if dateStr == "" {
		return models.Transaction{}, &feederror.RecordError{
			Field:  "date",
			Reason: "neither value_date nor booking_date present",
		}
	}

	date, err := dateutils.ParseDate(dateStr)
	if err != nil {
		return models.Transaction{}, &feederror.RecordError{
			Field:  "date",
			Value:  dateStr,
			Reason: err.Error(),
		}
	}

	amount, err := currencyutils.ParseAmount(rec.TransactionAmount.Amount)
	if err != nil {
		return models.Transaction{}, &feederror.RecordError{
			Field:  "amount",
			Value:  rec.TransactionAmount.Amount,
			Reason: err.Error(),
		}
	}

	tx := models.Transaction{
		Hash:                Hash(rec),
		Amount:              amount,
		Currency:            rec.TransactionAmount.Currency,
		Direction:           rec.CreditDebitIndicator,
		Date:                date,
		CounterpartyName:    textutils.ExtractCounterparty(rec),
		CounterpartyAccount: counterpartyAccount(rec),
		Description:         textutils.JoinRemittance(rec.RemittanceInformation),
		Status:              rec.Status,
		Source:              source,
	}
	if rec.EntryReference != nil {
		tx.EntryReference = *rec.EntryReference
	}
	if rec.MerchantCategoryCode != nil {
		tx.MerchantCategoryCode = *rec.MerchantCategoryCode
	}
	return tx, nil
}

// counterpartyAccount returns the account identifier of the other party:
// the creditor account for outgoing money, the debtor account for incoming.
func counterpartyAccount(rec *models.RawTransactionRecord) string {
	if rec.IsDebit() && rec.CreditorAccount != nil {
		return rec.CreditorAccount.IBAN
	}
	if rec.IsCredit() && rec.DebtorAccount != nil {
		return rec.DebtorAccount.IBAN
	}
	return ""
}
