package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names used by the store.
const (
	collAnimals         = "animals"
	collInventory       = "inventory_items"
	collFinance         = "finance_records"
	collHealthRecords   = "health_records"
	collMortality       = "mortality_records"
	collInventoryLosses = "inventory_loss_records"
	collWeightRecords   = "weight_records"
)

// Store bundles the per-aggregate repositories over one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	Animals   *AnimalRepo
	Inventory *InventoryRepo
	Finance   *FinanceRepo
	Records   *RecordRepo
	Imports   *ImportRepo
}

// NewStore connects to MongoDB and wires the repositories. The client is
// configured with the Decimal128 registry so every repository shares the
// same money representation.
func NewStore(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri).SetRegistry(newRegistry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(dbName)

	store := &Store{
		client:    client,
		db:        db,
		Animals:   &AnimalRepo{coll: db.Collection(collAnimals), logger: logger.Named("repo.animals")},
		Inventory: &InventoryRepo{coll: db.Collection(collInventory), logger: logger.Named("repo.inventory")},
		Finance:   &FinanceRepo{coll: db.Collection(collFinance), logger: logger.Named("repo.finance")},
		Records:   &RecordRepo{db: db, logger: logger.Named("repo.records")},
		Imports:   &ImportRepo{db: db, logger: logger.Named("repo.imports")},
	}

	return store, nil
}

// EnsureIndexes creates the indexes the consistency layer relies on:
// unique animal tags and inventory names, the unique finance-source
// back-reference that makes cascade finance writes idempotent, and the
// cascade markers scanned by the backfill sweep.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	type spec struct {
		coll    string
		indexes []mongo.IndexModel
	}

	unique := options.Index().SetUnique(true)
	sourceUnique := options.Index().
		SetUnique(true).
		SetPartialFilterExpression(bson.D{{Key: "source", Value: bson.D{{Key: "$exists", Value: true}}}})

	specs := []spec{
		{collAnimals, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tag", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		}},
		{collInventory, []mongo.IndexModel{
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique},
		}},
		{collFinance, []mongo.IndexModel{
			{Keys: bson.D{{Key: "source.type", Value: 1}, {Key: "source.id", Value: 1}}, Options: sourceUnique},
			{Keys: bson.D{{Key: "date", Value: -1}}},
		}},
	}

	for _, coll := range []string{collHealthRecords, collMortality, collInventoryLosses, collWeightRecords} {
		specs = append(specs, spec{coll, []mongo.IndexModel{
			{Keys: bson.D{{Key: "cascade_applied", Value: 1}, {Key: "created_at", Value: 1}}},
		}})
	}

	for _, sp := range specs {
		if _, err := s.db.Collection(sp.coll).Indexes().CreateMany(ctx, sp.indexes); err != nil {
			return fmt.Errorf("create indexes for %s: %w", sp.coll, err)
		}
	}

	return nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
