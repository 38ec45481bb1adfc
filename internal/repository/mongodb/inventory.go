package mongodb

import (
	"context"
	"errors"
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

// InventoryRepo persists the InventoryItem aggregate.
type InventoryRepo struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// Insert stores a new inventory item and fills in its identifier.
func (r *InventoryRepo) Insert(ctx context.Context, item *models.InventoryItem) error {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, item)
	if err != nil {
		return fmt.Errorf("insert inventory item: %w", mapWriteError(err))
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		item.ID = id
	}
	return nil
}

// GetByID fetches one inventory item.
func (r *InventoryRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find inventory item %s: %w", id.Hex(), err)
	}
	return &item, nil
}

// List returns all inventory items ordered by name.
func (r *InventoryRepo) List(ctx context.Context) ([]models.InventoryItem, error) {
	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.InventoryItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode inventory: %w", err)
	}
	return items, nil
}

// AdjustQuantity applies an atomic quantity delta, optionally bumping the
// consumption counter. With allowNegative the quantity may cross below
// zero (the historical behavior); without it the stock clamps at zero via
// a pipeline update, so concurrent decrements never lose updates either way.
func (r *InventoryRepo) AdjustQuantity(ctx context.Context, id primitive.ObjectID, delta decimal.Decimal, timesUsed int64, allowNegative bool) error {
	now := time.Now().UTC()

	var update any
	if allowNegative {
		update = bson.D{
			{Key: "$inc", Value: bson.D{
				{Key: "quantity", Value: delta},
				{Key: "times_used", Value: timesUsed},
			}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now}}},
		}
	} else {
		update = mongo.Pipeline{
			{{Key: "$set", Value: bson.D{
				{Key: "quantity", Value: bson.D{{Key: "$max", Value: bson.A{
					0,
					bson.D{{Key: "$add", Value: bson.A{"$quantity", delta}}},
				}}}},
				{Key: "times_used", Value: bson.D{{Key: "$add", Value: bson.A{"$times_used", timesUsed}}}},
				{Key: "updated_at", Value: now},
			}}},
		}
	}

	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("adjust inventory %s quantity: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Restock adds stock from a direct edit and refreshes the unit cost when a
// positive one is supplied.
func (r *InventoryRepo) Restock(ctx context.Context, id primitive.ObjectID, quantity, unitCost decimal.Decimal) error {
	set := bson.D{{Key: "updated_at", Value: time.Now().UTC()}}
	if unitCost.IsPositive() {
		set = append(set, bson.E{Key: "unit_cost", Value: unitCost})
	}

	res, err := r.coll.UpdateByID(ctx, id, bson.D{
		{Key: "$inc", Value: bson.D{{Key: "quantity", Value: quantity}}},
		{Key: "$set", Value: set},
	})
	if err != nil {
		return fmt.Errorf("restock inventory %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
