package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FinanceType distinguishes income from expense lines.
type FinanceType string

const (
	FinanceIncome  FinanceType = "income"
	FinanceExpense FinanceType = "expense"
)

// Finance categories written by cascades.
const (
	CategoryMortalityLoss = "Mortality Loss"
	CategoryInventoryLoss = "Inventory Loss"
)

// FinanceSource back-references the trigger record that produced a ledger
// line. The pair is unique: a cascade retry never books the same loss twice.
type FinanceSource struct {
	Type string             `bson:"type" json:"type"`
	ID   primitive.ObjectID `bson:"id" json:"id"`
}

// FinanceRecord is a single ledger line. Cascades only ever create these;
// they are mutated or deleted exclusively through direct user edits.
type FinanceRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type        FinanceType        `bson:"type" json:"type"`
	Category    string             `bson:"category" json:"category"`
	Amount      decimal.Decimal    `bson:"amount" json:"amount"`
	Date        time.Time          `bson:"date" json:"date"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	AnimalID    *primitive.ObjectID `bson:"animal_id,omitempty" json:"animal_id,omitempty"`
	ItemID      *primitive.ObjectID `bson:"item_id,omitempty" json:"item_id,omitempty"`
	Source      *FinanceSource     `bson:"source,omitempty" json:"source,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
