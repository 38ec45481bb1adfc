package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trigger-source collections. Creating one of these records fans out side
// effects to the related aggregates (see service/cascade). Each carries a
// cascade marker so a sweep can find and complete partially-applied cascades.

// TriggerType identifies a trigger-source record type, both for cascade
// dispatch and for the finance source back-reference.
type TriggerType string

const (
	TriggerHealth        TriggerType = "health_record"
	TriggerMortality     TriggerType = "mortality_record"
	TriggerInventoryLoss TriggerType = "inventory_loss_record"
	TriggerWeight        TriggerType = "weight_record"
)

// CascadeMarker records whether the post-create side effects of a trigger
// record have been fully applied.
type CascadeMarker struct {
	CascadeApplied   bool       `bson:"cascade_applied" json:"cascade_applied"`
	CascadeAppliedAt *time.Time `bson:"cascade_applied_at,omitempty" json:"cascade_applied_at,omitempty"`
}

// TreatmentEntry is one medication application within a health record.
// Consumed flags that this entry's stock decrement has been applied, so a
// cascade re-run never decrements the same medication twice.
type TreatmentEntry struct {
	MedicationID *primitive.ObjectID `bson:"medication_id,omitempty" json:"medication_id,omitempty"`
	Dosage       string              `bson:"dosage,omitempty" json:"dosage,omitempty"`
	Consumed     bool                `bson:"consumed" json:"consumed"`
}

// HealthRecord captures a treatment event for one animal. Immutable once
// created; consumes up to two medications and may carry a post-treatment
// weight measurement.
type HealthRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AnimalID   primitive.ObjectID `bson:"animal_id" json:"animal_id"`
	Condition  string             `bson:"condition,omitempty" json:"condition,omitempty"`
	Treatments []TreatmentEntry   `bson:"treatments,omitempty" json:"treatments,omitempty"`
	PostWeight decimal.Decimal    `bson:"post_weight" json:"post_weight"`
	Notes      string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Date       time.Time          `bson:"date" json:"date"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	CascadeMarker `bson:",inline"`
}

// MortalityRecord captures the death of an animal. EstimatedValue may be
// zero at creation; the cascade derives and persists it.
type MortalityRecord struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AnimalID       primitive.ObjectID `bson:"animal_id" json:"animal_id"`
	Cause          string             `bson:"cause,omitempty" json:"cause,omitempty"`
	EstimatedValue decimal.Decimal    `bson:"estimated_value" json:"estimated_value"`
	ValueLost      decimal.Decimal    `bson:"value_lost" json:"value_lost"`
	Date           time.Time          `bson:"date" json:"date"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	CascadeMarker  `bson:",inline"`
}

// InventoryLossRecord captures spoiled, damaged or lost stock.
// TotalLoss = Quantity * UnitCost; UnitCost falls back to the item's cost
// when the caller does not supply one. StockAdjusted flags that the stock
// decrement has been applied, so a cascade re-run never decrements twice.
type InventoryLossRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ItemID        primitive.ObjectID `bson:"item_id" json:"item_id"`
	Reason        string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Quantity      decimal.Decimal    `bson:"quantity" json:"quantity"`
	UnitCost      decimal.Decimal    `bson:"unit_cost" json:"unit_cost"`
	TotalLoss     decimal.Decimal    `bson:"total_loss" json:"total_loss"`
	StockAdjusted bool               `bson:"stock_adjusted" json:"stock_adjusted"`
	Date          time.Time          `bson:"date" json:"date"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	CascadeMarker `bson:",inline"`
}

// WeightRecord captures a weight measurement for an animal.
type WeightRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AnimalID      primitive.ObjectID `bson:"animal_id" json:"animal_id"`
	Weight        decimal.Decimal    `bson:"weight" json:"weight"`
	Date          time.Time          `bson:"date" json:"date"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	CascadeMarker `bson:",inline"`
}
