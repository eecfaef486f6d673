package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fjacquet/bankfeed/internal/models"
)

// Totals is the aggregate of one date range: spent sums debits,
// received sums credits. Currency is the first one seen in the range.
type Totals struct {
	Spent    decimal.Decimal
	Received decimal.Decimal
	Currency string
}

func decimalFrom(d128 primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(d128.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to convert aggregate %s: %w", d128, err)
	}
	return d, nil
}

// TotalsBetween aggregates spent/received totals over [from, to). The
// boolean is false when the range holds no transactions at all.
func (s *Store) TotalsBetween(ctx context.Context, from, to time.Time) (Totals, bool, error) {
	zero, _ := primitive.ParseDecimal128("0")
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"date": bson.M{"$gte": from, "$lt": to}}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"totalSpent": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$direction", models.Debit}}, "$amount", zero},
			}},
			"totalReceived": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$direction", models.Credit}}, "$amount", zero},
			}},
			"currency": bson.M{"$first": "$currency"},
		}}},
	}

	cursor, err := s.transactions().Aggregate(ctx, pipeline)
	if err != nil {
		return Totals{}, false, fmt.Errorf("failed to aggregate totals: %w", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.WithError(err).Warn("Failed to close cursor")
		}
	}()

	var row struct {
		TotalSpent    primitive.Decimal128 `bson:"totalSpent"`
		TotalReceived primitive.Decimal128 `bson:"totalReceived"`
		Currency      string               `bson:"currency"`
	}
	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return Totals{}, false, err
		}
		return Totals{}, false, nil
	}
	if err := cursor.Decode(&row); err != nil {
		return Totals{}, false, fmt.Errorf("failed to decode totals: %w", err)
	}

	spent, err := decimalFrom(row.TotalSpent)
	if err != nil {
		return Totals{}, false, err
	}
	received, err := decimalFrom(row.TotalReceived)
	if err != nil {
		return Totals{}, false, err
	}
	return Totals{Spent: spent, Received: received, Currency: row.Currency}, true, nil
}

// FindDebitsOn returns the debits of one UTC day, largest amount first.
func (s *Store) FindDebitsOn(ctx context.Context, day time.Time) ([]models.SummaryLine, error) {
	nextDay := day.AddDate(0, 0, 1)
	filter := bson.M{
		"date":      bson.M{"$gte": day, "$lt": nextDay},
		"direction": models.Debit,
	}
	opts := options.Find().SetSort(bson.D{{Key: "amount", Value: -1}})

	cursor, err := s.transactions().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily debits: %w", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.WithError(err).Warn("Failed to close cursor")
		}
	}()

	var lines []models.SummaryLine
	for cursor.Next(ctx) {
		var doc struct {
			CounterpartyName string               `bson:"counterpartyName"`
			Amount           primitive.Decimal128 `bson:"amount"`
			Currency         string               `bson:"currency"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode daily debit: %w", err)
		}
		amount, err := decimalFrom(doc.Amount)
		if err != nil {
			return nil, err
		}
		lines = append(lines, models.SummaryLine{
			CounterpartyName: doc.CounterpartyName,
			Amount:           amount,
			Currency:         doc.Currency,
		})
	}
	return lines, cursor.Err()
}

// TopCounterparties returns the counterparties with the highest debit
// totals over [from, to), at most limit entries.
func (s *Store) TopCounterparties(ctx context.Context, from, to time.Time, limit int) ([]models.CounterpartyTotal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"date":      bson.M{"$gte": from, "$lt": to},
			"direction": models.Debit,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$counterpartyName",
			"total": bson.M{"$sum": "$amount"},
		}}},
		{{Key: "$sort", Value: bson.M{"total": -1}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{"_id": 0, "name": "$_id", "total": 1}}},
	}

	cursor, err := s.transactions().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top counterparties: %w", err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.WithError(err).Warn("Failed to close cursor")
		}
	}()

	var result []models.CounterpartyTotal
	for cursor.Next(ctx) {
		var row struct {
			Name  string               `bson:"name"`
			Total primitive.Decimal128 `bson:"total"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode counterparty total: %w", err)
		}
		total, err := decimalFrom(row.Total)
		if err != nil {
			return nil, err
		}
		result = append(result, models.CounterpartyTotal{Name: row.Name, Total: total})
	}
	return result, cursor.Err()
}
