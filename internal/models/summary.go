package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SummaryLine is one transaction as shown in a daily summary.
type SummaryLine struct {
	CounterpartyName string          `bson:"counterpartyName"`
	Amount           decimal.Decimal `bson:"amount"`
	Currency         string          `bson:"currency"`
}

// CounterpartyTotal is an aggregated spend total for one counterparty.
type CounterpartyTotal struct {
	Name  string          `bson:"name"`
	Total decimal.Decimal `bson:"total"`
}

// DailySummary aggregates one calendar day of spending.
type DailySummary struct {
	Date         time.Time
	TotalSpent   decimal.Decimal
	Currency     string
	Transactions []SummaryLine
}

// MonthlySummary aggregates one calendar month of activity.
type MonthlySummary struct {
	Month             string // YYYY-MM
	TotalSpent        decimal.Decimal
	TotalReceived     decimal.Decimal
	Currency          string
	TopCounterparties []CounterpartyTotal
}
