// Package textutils provides text extraction and manipulation utilities.
package textutils

import (
	"regexp"
	"strings"

	"fjacquet/bankfeed/internal/models"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// "OST 516737******6375 06.02.26 14:20 22.30 EUR (533626) Wolt Estonia EE"
	cardWithCodeRe = regexp.MustCompile(`\(\d+\)\s+(.+)`)

	// "516737******6375 04.02.26 STROOMI KESKUSE APTEEK 10315 TALLINN"
	cardNoCodeRe = regexp.MustCompile(`\d{6}\*+\d{4}\s+\d{2}\.\d{2}\.\d{2}\s+(.+)`)

	// trailing "postal code + city" segment appended by some card rails
	postalSuffixRe = regexp.MustCompile(`\s+\d{5}\s+\w+$`)
)

// JoinRemittance joins remittance information lines with single spaces.
func JoinRemittance(lines []string) string {
	return strings.Join(lines, " ")
}

// NormalizeDescription joins remittance lines, collapses runs of
// whitespace to single spaces and trims both ends. Identity hashing
// uses this form so that banks reformatting descriptions do not create
// duplicate records.
func NormalizeDescription(lines []string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(JoinRemittance(lines), " "))
}

// ExtractCounterparty derives a best-effort human-readable counterparty
// name from a raw transaction record. The result is never empty.
//
// The card-payment patterns below are heuristic. Their order and trimming
// rules must stay exactly as they are: counterparty grouping in summaries
// depends on their current output.
func ExtractCounterparty(rec *models.RawTransactionRecord) string {
	if rec.IsDebit() && rec.Creditor != nil && rec.Creditor.Name != "" {
		return rec.Creditor.Name
	}
	if rec.IsCredit() && rec.Debtor != nil && rec.Debtor.Name != "" {
		return rec.Debtor.Name
	}

	desc := JoinRemittance(rec.RemittanceInformation)

	if m := cardWithCodeRe.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(m[1])
	}

	if m := cardNoCodeRe.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(postalSuffixRe.ReplaceAllString(m[1], ""))
	}

	if desc != "" {
		return desc
	}
	return "Unknown"
}
