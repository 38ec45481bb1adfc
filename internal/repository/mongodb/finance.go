package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/domain/models"
)

// FinanceRepo persists ledger lines.
type FinanceRepo struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// Insert stores a ledger line from a direct user edit.
func (r *FinanceRepo) Insert(ctx context.Context, record *models.FinanceRecord) error {
	record.CreatedAt = time.Now().UTC()

	res, err := r.coll.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("insert finance record: %w", mapWriteError(err))
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		record.ID = id
	}
	return nil
}

// InsertFromCascade books a cascade-generated line at most once per trigger
// record: the unique index on the source back-reference turns a retry into
// a no-op instead of a duplicate entry.
func (r *FinanceRepo) InsertFromCascade(ctx context.Context, record *models.FinanceRecord) error {
	if record.Source == nil {
		return errors.New("cascade finance record requires a source back-reference")
	}

	record.CreatedAt = time.Now().UTC()

	res, err := r.coll.InsertOne(ctx, record)
	if mongo.IsDuplicateKeyError(err) {
		r.logger.Debug("finance record already booked for trigger",
			zap.String("source_type", record.Source.Type),
			zap.String("source_id", record.Source.ID.Hex()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert cascade finance record: %w", err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		record.ID = id
	}
	return nil
}

// List returns ledger lines, most recent first.
func (r *FinanceRepo) List(ctx context.Context, limit int64) ([]models.FinanceRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list finance records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.FinanceRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode finance records: %w", err)
	}
	return records, nil
}

// Delete removes a ledger line (direct user edit only; cascades never
// delete finance records).
func (r *FinanceRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete finance record %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
