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
	"github.com/mamadbah2/livestock/internal/pagination"
)

// AnimalFields is the sortable-field allow-list for animal listings.
// Anything outside it falls back to creation time.
var AnimalFields = pagination.Fields{
	Default: "created_at",
	ByKey: map[string]pagination.Field{
		"created_at":            {BSON: "created_at", Kind: pagination.KindTime},
		"tag":                   {BSON: "tag", Kind: pagination.KindString},
		"name":                  {BSON: "name", Kind: pagination.KindString},
		"species":               {BSON: "species", Kind: pagination.KindString},
		"status":                {BSON: "status", Kind: pagination.KindString},
		"current_weight":        {BSON: "current_weight", Kind: pagination.KindNumber},
		"purchase_cost":         {BSON: "purchase_cost", Kind: pagination.KindNumber},
		"projected_sales_price": {BSON: "projected_sales_price", Kind: pagination.KindNumber},
	},
}

// AnimalCursorValue extracts the raw cursor representation of the resolved
// sort field from an animal, for building the next-page token.
func AnimalCursorValue(a models.Animal, sortBy string) string {
	switch sortBy {
	case "tag":
		return a.Tag
	case "name":
		return a.Name
	case "species":
		return a.Species
	case "status":
		return string(a.Status)
	case "current_weight":
		return pagination.FormatNumber(a.CurrentWeight)
	case "purchase_cost":
		return pagination.FormatNumber(a.PurchaseCost)
	case "projected_sales_price":
		return pagination.FormatNumber(a.ProjectedSalesPrice)
	default:
		return pagination.FormatTime(a.CreatedAt)
	}
}

// AnimalRepo persists the Animal aggregate.
type AnimalRepo struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// Insert stores a new animal and fills in its identifier and timestamps.
func (r *AnimalRepo) Insert(ctx context.Context, animal *models.Animal) error {
	now := time.Now().UTC()
	animal.CreatedAt = now
	animal.UpdatedAt = now
	if animal.Status == "" {
		animal.Status = models.StatusAlive
	}

	res, err := r.coll.InsertOne(ctx, animal)
	if err != nil {
		return fmt.Errorf("insert animal: %w", mapWriteError(err))
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		animal.ID = id
	}
	return nil
}

// GetByID fetches one animal.
func (r *AnimalRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Animal, error) {
	var animal models.Animal
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&animal)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find animal %s: %w", id.Hex(), err)
	}
	return &animal, nil
}

// List runs a planned keyset query and returns up to Limit documents in
// the planned order.
func (r *AnimalRepo) List(ctx context.Context, q pagination.Query) ([]models.Animal, error) {
	opts := options.Find().SetSort(q.Sort).SetLimit(q.Limit)

	cursor, err := r.coll.Find(ctx, q.Filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list animals: %w", err)
	}
	defer cursor.Close(ctx)

	var animals []models.Animal
	if err := cursor.All(ctx, &animals); err != nil {
		return nil, fmt.Errorf("decode animals: %w", err)
	}
	return animals, nil
}

// Count returns the total number of animals matching the base filter.
// This is the uncapped query behind withCount=true.
func (r *AnimalRepo) Count(ctx context.Context, filter bson.D) (int64, error) {
	if filter == nil {
		filter = bson.D{}
	}
	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count animals: %w", err)
	}
	return count, nil
}

// MarkDead sets the animal's status to dead. Idempotent: marking an
// already-dead animal is a no-op in effect.
func (r *AnimalRepo) MarkDead(ctx context.Context, id primitive.ObjectID) error {
	return r.setStatus(ctx, id, models.StatusDead)
}

// Archive moves the animal to archived status. Animals are never deleted.
func (r *AnimalRepo) Archive(ctx context.Context, id primitive.ObjectID) error {
	return r.setStatus(ctx, id, models.StatusArchived)
}

func (r *AnimalRepo) setStatus(ctx context.Context, id primitive.ObjectID, status models.AnimalStatus) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}})
	if err != nil {
		return fmt.Errorf("set animal %s status %s: %w", id.Hex(), status, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWeight overwrites the animal's current weight and weight date.
// Last write wins; no comparison against earlier measurements.
func (r *AnimalRepo) UpdateWeight(ctx context.Context, id primitive.ObjectID, weight decimal.Decimal, at time.Time) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "current_weight", Value: weight},
		{Key: "weight_date", Value: at.UTC()},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}})
	if err != nil {
		return fmt.Errorf("update animal %s weight: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

