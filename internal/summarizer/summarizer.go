// Package summarizer builds daily and monthly spending summaries from
// the transaction store.
package summarizer

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/models"
	"fjacquet/bankfeed/internal/store"
)

// TopCounterpartyLimit is how many counterparties a monthly summary lists.
const TopCounterpartyLimit = 5

// DefaultCurrency is reported when a range has transactions but no
// currency could be determined.
const DefaultCurrency = "EUR"

// Store is the query surface the summarizer needs from the persistence layer.
type Store interface {
	TotalsBetween(ctx context.Context, from, to time.Time) (store.Totals, bool, error)
	FindDebitsOn(ctx context.Context, day time.Time) ([]models.SummaryLine, error)
	TopCounterparties(ctx context.Context, from, to time.Time, limit int) ([]models.CounterpartyTotal, error)
}

// Daily builds the spending summary for one UTC day. Only debits count:
// a day holding no debits returns nil even when credits arrived, so no
// empty "spent" message goes out.
func Daily(ctx context.Context, st Store, day time.Time) (*models.DailySummary, error) {
	day = dateutils.StartOfDay(day)

	lines, err := st.FindDebitsOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to build daily summary: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	spent := decimal.Zero
	currency := ""
	for _, line := range lines {
		spent = spent.Add(line.Amount)
		if currency == "" {
			currency = line.Currency
		}
	}

	return &models.DailySummary{
		Date:         day,
		TotalSpent:   spent,
		Currency:     currencyOrDefault(currency),
		Transactions: lines,
	}, nil
}

// Monthly builds the summary for one calendar month. It returns nil when
// the month holds no transactions at all.
func Monthly(ctx context.Context, st Store, year int, month time.Month) (*models.MonthlySummary, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := dateutils.NextMonth(start)

	totals, found, err := st.TotalsBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to build monthly summary: %w", err)
	}
	if !found {
		return nil, nil
	}

	top, err := st.TopCounterparties(ctx, start, end, TopCounterpartyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to build monthly summary: %w", err)
	}

	return &models.MonthlySummary{
		Month:             start.Format(dateutils.DateLayoutMonth),
		TotalSpent:        totals.Spent,
		TotalReceived:     totals.Received,
		Currency:          currencyOrDefault(totals.Currency),
		TopCounterparties: top,
	}, nil
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return DefaultCurrency
	}
	return currency
}
