package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/livestock/internal/domain/models"
	"github.com/mamadbah2/livestock/internal/repository/mongodb"
)

// Target describes one importable collection: where rows land, which
// column deduplicates them, and how a raw row becomes a document. The
// registry is a closed enumeration; unrecognized names are reported as
// import errors, never dispatched dynamically.
type Target struct {
	Collection string
	UniqueKey  string
	Shape      func(row models.ImportRow, now time.Time) (any, error)
}

var targets = map[string]Target{
	"animals": {
		Collection: mongodb.CollectionAnimals,
		UniqueKey:  "tag",
		Shape:      shapeAnimal,
	},
	"inventory": {
		Collection: mongodb.CollectionInventory,
		UniqueKey:  "name",
		Shape:      shapeInventoryItem,
	},
}

// ResolveTarget looks a category or sheet name up in the registry,
// case-insensitively.
func ResolveTarget(name string) (Target, bool) {
	t, ok := targets[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// TargetNames lists the registered categories, for sheet matching.
func TargetNames() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	return names
}

func shapeAnimal(row models.ImportRow, now time.Time) (any, error) {
	status := models.AnimalStatus(strings.ToLower(row["status"]))
	switch status {
	case "":
		status = models.StatusAlive
	case models.StatusAlive, models.StatusDead, models.StatusSold, models.StatusArchived:
	default:
		return nil, fmt.Errorf("unknown status %q", row["status"])
	}

	purchaseCost, err := parseDecimal(row["purchase_cost"])
	if err != nil {
		return nil, fmt.Errorf("purchase_cost: %w", err)
	}
	salesPrice, err := parseDecimal(row["projected_sales_price"])
	if err != nil {
		return nil, fmt.Errorf("projected_sales_price: %w", err)
	}
	weight, err := parseDecimal(row["current_weight"])
	if err != nil {
		return nil, fmt.Errorf("current_weight: %w", err)
	}

	return models.Animal{
		Tag:                 row["tag"],
		Name:                row["name"],
		Species:             row["species"],
		Breed:               row["breed"],
		Status:              status,
		LocationID:          row["location_id"],
		CurrentWeight:       weight,
		PurchaseCost:        purchaseCost,
		ProjectedSalesPrice: salesPrice,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func shapeInventoryItem(row models.ImportRow, now time.Time) (any, error) {
	quantity, err := parseDecimal(row["quantity"])
	if err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}
	unitCost, err := parseDecimal(row["unit_cost"])
	if err != nil {
		return nil, fmt.Errorf("unit_cost: %w", err)
	}
	unitPrice, err := parseDecimal(row["unit_price"])
	if err != nil {
		return nil, fmt.Errorf("unit_price: %w", err)
	}

	return models.InventoryItem{
		Name:      row["name"],
		Category:  row["category"],
		Unit:      row["unit"],
		Quantity:  quantity,
		UnitCost:  unitCost,
		UnitPrice: unitPrice,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
