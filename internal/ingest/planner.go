package ingest

import (
	"context"
	"time"
)

// Default fetch window tuning. The overlap absorbs late-arriving or
// backdated transactions the bank reports after the fact.
const (
	DefaultMaxLookbackDays = 365
	DefaultOverlapDays     = 7
)

// planWindow determines the start date of the fetch window for one bank.
// A full lookback requests today minus the maximum lookback; otherwise
// the window is anchored just before the most recent stored transaction,
// with the overlap margin subtracted. A bank with no stored transactions
// falls back to the full lookback. The end of the window is always the
// run's shared "today".
func (ing *Ingester) planWindow(ctx context.Context, bankID string, today time.Time, full bool) (time.Time, error) {
	fullLookback := today.AddDate(0, 0, -ing.maxLookbackDays)
	if full {
		return fullLookback, nil
	}

	latest, found, err := ing.transactions.FindLatestDate(ctx, bankID)
	if err != nil {
		return time.Time{}, err
	}
	if !found {
		return fullLookback, nil
	}
	return latest.AddDate(0, 0, -ing.overlapDays), nil
}
