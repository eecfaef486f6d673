package ingest

import (
	"context"
	"time"

	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/models"
)

// TransactionStore is the persistence surface the orchestrator needs.
// Insert must return store.ErrDuplicate on a uniqueness conflict.
type TransactionStore interface {
	FindLatestDate(ctx context.Context, bankID string) (time.Time, bool, error)
	Insert(ctx context.Context, tx *models.Transaction) error
}

// SessionStore reads the stored authorization state for a bank.
// A missing session returns (nil, nil).
type SessionStore interface {
	GetSession(ctx context.Context, bankID string) (*models.Session, error)
}

// TransactionFetcher retrieves normalized transactions for one account
// over a date range, bounded retry and pagination included.
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, bank *config.BankConfig, accountUID, dateFrom, dateTo string) ([]models.Transaction, error)
}
