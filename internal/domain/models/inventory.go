package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InventoryItem represents a stocked supply (feed, medication, equipment).
// Name is the uniqueness key used during bulk imports.
type InventoryItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Category  string             `bson:"category,omitempty" json:"category,omitempty"`
	Unit      string             `bson:"unit,omitempty" json:"unit,omitempty"`
	Quantity  decimal.Decimal    `bson:"quantity" json:"quantity"`
	UnitCost  decimal.Decimal    `bson:"unit_cost" json:"unit_cost"`
	UnitPrice decimal.Decimal    `bson:"unit_price" json:"unit_price"`
	TimesUsed int64              `bson:"times_used" json:"times_used"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
