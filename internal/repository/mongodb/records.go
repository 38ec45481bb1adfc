package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/domain/models"
)

// RecordRepo persists the trigger-source records (health, mortality,
// inventory loss, weight) and their cascade markers.
type RecordRepo struct {
	db     *mongo.Database
	logger *zap.Logger
}

func triggerCollection(t models.TriggerType) string {
	switch t {
	case models.TriggerHealth:
		return collHealthRecords
	case models.TriggerMortality:
		return collMortality
	case models.TriggerInventoryLoss:
		return collInventoryLosses
	case models.TriggerWeight:
		return collWeightRecords
	default:
		return ""
	}
}

// InsertHealth stores a health record.
func (r *RecordRepo) InsertHealth(ctx context.Context, rec *models.HealthRecord) error {
	rec.CreatedAt = time.Now().UTC()
	id, err := r.insert(ctx, collHealthRecords, rec)
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

// InsertMortality stores a mortality record.
func (r *RecordRepo) InsertMortality(ctx context.Context, rec *models.MortalityRecord) error {
	rec.CreatedAt = time.Now().UTC()
	id, err := r.insert(ctx, collMortality, rec)
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

// InsertInventoryLoss stores an inventory loss record.
func (r *RecordRepo) InsertInventoryLoss(ctx context.Context, rec *models.InventoryLossRecord) error {
	rec.CreatedAt = time.Now().UTC()
	id, err := r.insert(ctx, collInventoryLosses, rec)
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

// InsertWeight stores a weight record.
func (r *RecordRepo) InsertWeight(ctx context.Context, rec *models.WeightRecord) error {
	rec.CreatedAt = time.Now().UTC()
	id, err := r.insert(ctx, collWeightRecords, rec)
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

func (r *RecordRepo) insert(ctx context.Context, coll string, doc any) (primitive.ObjectID, error) {
	res, err := r.db.Collection(coll).InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert into %s: %w", coll, mapWriteError(err))
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

// MarkCascadeApplied flags a trigger record whose side effects have all
// been applied. The backfill sweep skips flagged records.
func (r *RecordRepo) MarkCascadeApplied(ctx context.Context, trigger models.TriggerType, id primitive.ObjectID) error {
	coll := triggerCollection(trigger)
	if coll == "" {
		return fmt.Errorf("unknown trigger type %q", trigger)
	}

	now := time.Now().UTC()
	res, err := r.db.Collection(coll).UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "cascade_applied", Value: true},
		{Key: "cascade_applied_at", Value: now},
	}}})
	if err != nil {
		return fmt.Errorf("mark cascade applied on %s/%s: %w", coll, id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkTreatmentConsumed flags one treatment entry whose medication
// decrement has been applied. A cascade re-run skips flagged entries, so
// a retry after a mid-cascade failure never decrements the same
// medication twice.
func (r *RecordRepo) MarkTreatmentConsumed(ctx context.Context, id primitive.ObjectID, index int) error {
	field := fmt.Sprintf("treatments.%d.consumed", index)
	res, err := r.db.Collection(collHealthRecords).UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: field, Value: true},
	}}})
	if err != nil {
		return fmt.Errorf("mark treatment %d consumed on %s: %w", index, id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkStockAdjusted flags an inventory loss record whose stock decrement
// has been applied, so a cascade re-run skips the decrement.
func (r *RecordRepo) MarkStockAdjusted(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.db.Collection(collInventoryLosses).UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "stock_adjusted", Value: true},
	}}})
	if err != nil {
		return fmt.Errorf("mark stock adjusted on %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetMortalityValue persists the derived loss amount back onto the
// mortality record.
func (r *RecordRepo) SetMortalityValue(ctx context.Context, id primitive.ObjectID, estimated, lost decimal.Decimal) error {
	_, err := r.db.Collection(collMortality).UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "estimated_value", Value: estimated},
		{Key: "value_lost", Value: lost},
	}}})
	if err != nil {
		return fmt.Errorf("set mortality %s value: %w", id.Hex(), err)
	}
	return nil
}

// SetLossTotals persists the resolved unit cost and computed total back
// onto an inventory loss record.
func (r *RecordRepo) SetLossTotals(ctx context.Context, id primitive.ObjectID, unitCost, totalLoss decimal.Decimal) error {
	_, err := r.db.Collection(collInventoryLosses).UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "unit_cost", Value: unitCost},
		{Key: "total_loss", Value: totalLoss},
	}}})
	if err != nil {
		return fmt.Errorf("set loss %s totals: %w", id.Hex(), err)
	}
	return nil
}

func (r *RecordRepo) findUnapplied(ctx context.Context, coll string, olderThan time.Time, limit int64, out any) error {
	filter := bson.D{
		{Key: "cascade_applied", Value: false},
		{Key: "created_at", Value: bson.D{{Key: "$lt", Value: olderThan.UTC()}}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(limit)

	cursor, err := r.db.Collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("find unapplied in %s: %w", coll, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode unapplied in %s: %w", coll, err)
	}
	return nil
}

// UnappliedHealth returns health records whose cascade has not completed
// and that are old enough to be outside the synchronous window.
func (r *RecordRepo) UnappliedHealth(ctx context.Context, olderThan time.Time, limit int64) ([]models.HealthRecord, error) {
	var recs []models.HealthRecord
	if err := r.findUnapplied(ctx, collHealthRecords, olderThan, limit, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// UnappliedMortality returns mortality records with incomplete cascades.
func (r *RecordRepo) UnappliedMortality(ctx context.Context, olderThan time.Time, limit int64) ([]models.MortalityRecord, error) {
	var recs []models.MortalityRecord
	if err := r.findUnapplied(ctx, collMortality, olderThan, limit, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// UnappliedInventoryLoss returns loss records with incomplete cascades.
func (r *RecordRepo) UnappliedInventoryLoss(ctx context.Context, olderThan time.Time, limit int64) ([]models.InventoryLossRecord, error) {
	var recs []models.InventoryLossRecord
	if err := r.findUnapplied(ctx, collInventoryLosses, olderThan, limit, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// UnappliedWeight returns weight records with incomplete cascades.
func (r *RecordRepo) UnappliedWeight(ctx context.Context, olderThan time.Time, limit int64) ([]models.WeightRecord, error) {
	var recs []models.WeightRecord
	if err := r.findUnapplied(ctx, collWeightRecords, olderThan, limit, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
