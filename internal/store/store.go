// Package store provides the MongoDB persistence layer for transactions
// and sessions. A Store is an explicitly passed, lifecycle-scoped handle:
// opened at run start, closed at run end, never a lazily-initialized global.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/models"
)

// Use the centralized logger from config package
var log = config.Logger

// SetLogger allows setting a custom logger
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// ErrDuplicate is returned by Insert when a transaction with the same
// hash is already stored. This is the expected steady-state outcome of
// re-fetching an overlap window, not a failure.
var ErrDuplicate = errors.New("transaction already stored")

const (
	transactionsCollection = "transactions"
	sessionsCollection     = "sessions"
)

// Store wraps a MongoDB database holding the transactions and sessions
// collections.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB and returns a ready Store. The caller owns
// the handle and must Close it when the run ends.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Close releases the underlying connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the secondary indexes used by incremental
// fetching and summaries. The unique identity constraint needs no
// explicit index: the hash is the document _id.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.transactions().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "source", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *Store) transactions() *mongo.Collection {
	return s.db.Collection(transactionsCollection)
}

func (s *Store) sessions() *mongo.Collection {
	return s.db.Collection(sessionsCollection)
}

// transactionDoc is the BSON shape of a stored transaction. Amounts are
// kept as Decimal128 so Mongo aggregations sum them exactly.
type transactionDoc struct {
	Hash                 string               `bson:"_id"`
	Amount               primitive.Decimal128 `bson:"amount"`
	Currency             string               `bson:"currency"`
	Direction            string               `bson:"direction"`
	Date                 time.Time            `bson:"date"`
	CounterpartyName     string               `bson:"counterpartyName"`
	CounterpartyAccount  string               `bson:"counterpartyAccount,omitempty"`
	Description          string               `bson:"description"`
	Status               string               `bson:"status"`
	EntryReference       string               `bson:"entryReference,omitempty"`
	MerchantCategoryCode string               `bson:"merchantCategoryCode,omitempty"`
	Source               string               `bson:"source"`
}

func toDoc(tx *models.Transaction) (transactionDoc, error) {
	amount, err := primitive.ParseDecimal128(tx.Amount.String())
	if err != nil {
		return transactionDoc{}, fmt.Errorf("failed to convert amount %s: %w", tx.Amount, err)
	}
	return transactionDoc{
		Hash:                 tx.Hash,
		Amount:               amount,
		Currency:             tx.Currency,
		Direction:            tx.Direction,
		Date:                 tx.Date,
		CounterpartyName:     tx.CounterpartyName,
		CounterpartyAccount:  tx.CounterpartyAccount,
		Description:          tx.Description,
		Status:               tx.Status,
		EntryReference:       tx.EntryReference,
		MerchantCategoryCode: tx.MerchantCategoryCode,
		Source:               tx.Source,
	}, nil
}

func fromDoc(doc *transactionDoc) (models.Transaction, error) {
	amount, err := decimal.NewFromString(doc.Amount.String())
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to convert stored amount %s: %w", doc.Amount, err)
	}
	return models.Transaction{
		Hash:                 doc.Hash,
		Amount:               amount,
		Currency:             doc.Currency,
		Direction:            doc.Direction,
		Date:                 doc.Date.UTC(),
		CounterpartyName:     doc.CounterpartyName,
		CounterpartyAccount:  doc.CounterpartyAccount,
		Description:          doc.Description,
		Status:               doc.Status,
		EntryReference:       doc.EntryReference,
		MerchantCategoryCode: doc.MerchantCategoryCode,
		Source:               doc.Source,
	}, nil
}

// Insert stores one transaction. A uniqueness conflict on the hash maps
// to ErrDuplicate. No existence-check read precedes the insert: the
// unique key is the sole deduplication mechanism.
func (s *Store) Insert(ctx context.Context, tx *models.Transaction) error {
	doc, err := toDoc(tx)
	if err != nil {
		return err
	}
	if _, err := s.transactions().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert transaction %s: %w", tx.Hash, err)
	}
	return nil
}

// FindLatestDate returns the most recent stored transaction date for a
// bank. The boolean is false when the bank has no stored transactions.
func (s *Store) FindLatestDate(ctx context.Context, bankID string) (time.Time, bool, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	var doc struct {
		Date time.Time `bson:"date"`
	}
	err := s.transactions().FindOne(ctx, bson.M{"source": bankID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest date for %s: %w", bankID, err)
	}
	return doc.Date.UTC(), true, nil
}

// List returns stored transactions sorted by date descending. An empty
// source returns all banks.
func (s *Store) List(ctx context.Context, source string) ([]models.Transaction, error) {
	filter := bson.M{}
	if source != "" {
		filter["source"] = source
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})

	cursor, err := s.transactions().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.WithError(err).Warn("Failed to close cursor")
		}
	}()

	var result []models.Transaction
	for cursor.Next(ctx) {
		var doc transactionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		tx, err := fromDoc(&doc)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, cursor.Err()
}

// GetSession returns the stored session for a bank, or nil when none exists.
func (s *Store) GetSession(ctx context.Context, bankID string) (*models.Session, error) {
	var session models.Session
	err := s.sessions().FindOne(ctx, bson.M{"_id": bankID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session for %s: %w", bankID, err)
	}
	return &session, nil
}

// PutSession stores or replaces the session for a bank.
func (s *Store) PutSession(ctx context.Context, session *models.Session) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.sessions().ReplaceOne(ctx, bson.M{"_id": session.BankID}, session, opts)
	if err != nil {
		return fmt.Errorf("failed to store session for %s: %w", session.BankID, err)
	}
	return nil
}
