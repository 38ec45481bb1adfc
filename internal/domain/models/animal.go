package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnimalStatus enumerates the lifecycle states of an animal.
type AnimalStatus string

const (
	StatusAlive    AnimalStatus = "alive"
	StatusDead     AnimalStatus = "dead"
	StatusSold     AnimalStatus = "sold"
	StatusArchived AnimalStatus = "archived"
)

// Animal is the primary livestock aggregate. Animals are never deleted;
// they are archived instead.
type Animal struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Tag                 string             `bson:"tag" json:"tag"`
	Name                string             `bson:"name,omitempty" json:"name,omitempty"`
	Species             string             `bson:"species" json:"species"`
	Breed               string             `bson:"breed,omitempty" json:"breed,omitempty"`
	Status              AnimalStatus       `bson:"status" json:"status"`
	LocationID          string             `bson:"location_id,omitempty" json:"location_id,omitempty"`
	CurrentWeight       decimal.Decimal    `bson:"current_weight" json:"current_weight"`
	WeightDate          *time.Time         `bson:"weight_date,omitempty" json:"weight_date,omitempty"`
	PurchaseCost        decimal.Decimal    `bson:"purchase_cost" json:"purchase_cost"`
	ProjectedSalesPrice decimal.Decimal    `bson:"projected_sales_price" json:"projected_sales_price"`
	TotalFeedCost       decimal.Decimal    `bson:"total_feed_cost" json:"total_feed_cost"`
	TotalMedicationCost decimal.Decimal    `bson:"total_medication_cost" json:"total_medication_cost"`
	CreatedAt           time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at" json:"updated_at"`
}

// LossValue derives the financial loss recorded when the animal dies:
// the projected sales price when known, otherwise everything invested so far.
func (a Animal) LossValue() decimal.Decimal {
	if a.ProjectedSalesPrice.IsPositive() {
		return a.ProjectedSalesPrice
	}
	return a.PurchaseCost.Add(a.TotalFeedCost).Add(a.TotalMedicationCost)
}
