// Package ingest drives the transaction ingestion run: it plans the
// fetch window per bank, pulls transactions from the aggregator for
// every authorized account and performs idempotent inserts, isolating
// per-bank failures.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/feederror"
	"fjacquet/bankfeed/internal/store"
)

// Use the centralized logger from config package
var log = config.Logger

// SetLogger allows setting a custom logger
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// BankResult summarizes one bank's part of an ingestion run.
type BankResult struct {
	Fetched int
	New     int
	Err     error
}

// Report aggregates the per-bank outcomes of one run.
type Report struct {
	Results map[string]BankResult
}

// Ingester orchestrates ingestion across all configured banks. Banks are
// processed strictly sequentially: run frequency is low and the
// aggregator enforces per-bank rate limits.
type Ingester struct {
	banks           []config.BankConfig
	fetcher         TransactionFetcher
	transactions    TransactionStore
	sessions        SessionStore
	maxLookbackDays int
	overlapDays     int
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLookback overrides the fetch window tuning.
func WithLookback(maxLookbackDays, overlapDays int) Option {
	return func(ing *Ingester) {
		ing.maxLookbackDays = maxLookbackDays
		ing.overlapDays = overlapDays
	}
}

// New creates an Ingester for the given banks and collaborators.
func New(banks []config.BankConfig, fetcher TransactionFetcher, transactions TransactionStore, sessions SessionStore, opts ...Option) *Ingester {
	ing := &Ingester{
		banks:           banks,
		fetcher:         fetcher,
		transactions:    transactions,
		sessions:        sessions,
		maxLookbackDays: DefaultMaxLookbackDays,
		overlapDays:     DefaultOverlapDays,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Run ingests all configured banks. A failure in one bank is logged and
// recorded but does not stop the others; only when every bank failed
// does Run return an error, naming all of them. The run's "today" is
// computed once and shared so all accounts see a consistent window end.
func (ing *Ingester) Run(ctx context.Context, fullLookback bool) (*Report, error) {
	report := &Report{Results: make(map[string]BankResult)}
	today := dateutils.Today()

	for i := range ing.banks {
		bank := &ing.banks[i]
		result := ing.ingestBank(ctx, bank, today, fullLookback)
		if result.Err != nil {
			log.WithError(result.Err).WithField("bank", bank.Name).Error("Bank ingestion failed")
		}
		report.Results[bank.ID] = result
	}

	if failed := report.failedBanks(ing.banks); len(failed) == len(ing.banks) && len(failed) > 0 {
		return report, &feederror.TotalFailureError{Banks: failed}
	}
	return report, nil
}

// failedBanks returns the names of banks whose result carries an error,
// in configuration order.
func (r *Report) failedBanks(banks []config.BankConfig) []string {
	var failed []string
	for _, bank := range banks {
		if result, ok := r.Results[bank.ID]; ok && result.Err != nil {
			failed = append(failed, bank.Name)
		}
	}
	return failed
}

// ingestBank runs one bank end to end: session check, window planning,
// per-account fetch and idempotent inserts.
func (ing *Ingester) ingestBank(ctx context.Context, bank *config.BankConfig, today time.Time, fullLookback bool) BankResult {
	session, err := ing.sessions.GetSession(ctx, bank.ID)
	if err != nil {
		return BankResult{Err: &feederror.IngestError{Bank: bank.Name, Err: err}}
	}
	if session == nil {
		log.WithField("bank", bank.Name).Warnf("No session stored. Run 'auth %s' first", bank.ID)
		return BankResult{}
	}
	if session.IsExpired(time.Now().UTC()) {
		log.WithField("bank", bank.Name).Warnf("Session expired. Run 'auth %s'", bank.ID)
		return BankResult{}
	}
	if len(session.Accounts) == 0 {
		log.WithField("bank", bank.Name).Warn("Session has no authorized accounts, skipping")
		return BankResult{}
	}

	from, err := ing.planWindow(ctx, bank.ID, today, fullLookback)
	if err != nil {
		return BankResult{Err: &feederror.IngestError{Bank: bank.Name, Err: err}}
	}
	dateFrom := dateutils.ToISODate(from)
	dateTo := dateutils.ToISODate(today)

	log.WithFields(logrus.Fields{
		"bank": bank.Name,
		"from": dateFrom,
		"to":   dateTo,
	}).Info("Fetching transactions")

	result := BankResult{}
	for _, account := range session.Accounts {
		txs, err := ing.fetcher.FetchTransactions(ctx, bank, account.UID, dateFrom, dateTo)
		if err != nil {
			result.Err = &feederror.IngestError{Bank: bank.Name, Err: err}
			return result
		}
		result.Fetched += len(txs)

		for i := range txs {
			err := ing.transactions.Insert(ctx, &txs[i])
			if errors.Is(err, store.ErrDuplicate) {
				continue
			}
			if err != nil {
				result.Err = &feederror.IngestError{Bank: bank.Name, Err: err}
				return result
			}
			result.New++
		}
	}

	log.WithFields(logrus.Fields{
		"bank":    bank.Name,
		"fetched": result.Fetched,
		"new":     result.New,
	}).Info("Bank ingestion complete")
	return result
}
