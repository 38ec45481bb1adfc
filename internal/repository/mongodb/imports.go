package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collections addressable by the bulk import pipeline.
const (
	CollectionAnimals   = collAnimals
	CollectionInventory = collInventory
)

// ImportRepo gives the reconciliation pipeline its two store primitives:
// one existence query per batch and one best-effort batch insert.
type ImportRepo struct {
	db     *mongo.Database
	logger *zap.Logger
}

// ExistingValues returns which of the candidate unique-key values already
// exist in the collection. One query regardless of batch size.
func (r *ImportRepo) ExistingValues(ctx context.Context, collection, field string, values []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(values))
	if len(values) == 0 {
		return existing, nil
	}

	found, err := r.db.Collection(collection).Distinct(ctx, field, bson.D{
		{Key: field, Value: bson.D{{Key: "$in", Value: values}}},
	})
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", collection, field, err)
	}

	for _, v := range found {
		if s, ok := v.(string); ok {
			existing[s] = struct{}{}
		}
	}
	return existing, nil
}

// InsertBatch performs an unordered batch insert and reports partial
// success: the count of rows that landed plus a per-index error map for
// the ones the store rejected. A nil error with a non-empty map means the
// batch partially succeeded; a non-nil error means the whole batch failed
// before any row-level reporting was possible.
func (r *ImportRepo) InsertBatch(ctx context.Context, collection string, docs []any) (int, map[int]string, error) {
	if len(docs) == 0 {
		return 0, nil, nil
	}

	res, err := r.db.Collection(collection).InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))

	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}

	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			rowErrs := make(map[int]string, len(bulkErr.WriteErrors))
			for _, we := range bulkErr.WriteErrors {
				rowErrs[we.Index] = we.Message
			}
			r.logger.Warn("batch insert partially failed",
				zap.String("collection", collection),
				zap.Int("inserted", inserted),
				zap.Int("failed", len(rowErrs)))
			return inserted, rowErrs, nil
		}
		return 0, nil, fmt.Errorf("batch insert into %s: %w", collection, err)
	}

	return inserted, nil, nil
}
