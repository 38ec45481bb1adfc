// Package cascade propagates the side effects of trigger-source records
// (health, mortality, inventory loss, weight) into the related aggregates.
//
// Cascades run after the trigger record is durable and are never wrapped in
// a cross-collection transaction. Every step is idempotent and keyed by the
// trigger record's identifier, so a retry or the backfill sweep can complete
// a partially-applied cascade without double-counting. Steps that are not
// naturally idempotent (stock decrements) persist a per-step flag on the
// trigger record right after they land; a re-run resumes at the first
// unflagged step.
package cascade

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/domain/models"
	"github.com/mamadbah2/livestock/internal/metrics"
	"github.com/mamadbah2/livestock/internal/repository/mongodb"
)

// AnimalStore is the slice of the animal repository the engine needs.
type AnimalStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Animal, error)
	MarkDead(ctx context.Context, id primitive.ObjectID) error
	UpdateWeight(ctx context.Context, id primitive.ObjectID, weight decimal.Decimal, at time.Time) error
}

// InventoryStore is the slice of the inventory repository the engine needs.
type InventoryStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.InventoryItem, error)
	AdjustQuantity(ctx context.Context, id primitive.ObjectID, delta decimal.Decimal, timesUsed int64, allowNegative bool) error
}

// FinanceStore books cascade-generated ledger lines at most once per
// trigger record.
type FinanceStore interface {
	InsertFromCascade(ctx context.Context, record *models.FinanceRecord) error
}

// RecordStore writes derived values, per-step flags and cascade markers
// back onto the trigger records.
type RecordStore interface {
	MarkCascadeApplied(ctx context.Context, trigger models.TriggerType, id primitive.ObjectID) error
	MarkTreatmentConsumed(ctx context.Context, id primitive.ObjectID, index int) error
	MarkStockAdjusted(ctx context.Context, id primitive.ObjectID) error
	SetMortalityValue(ctx context.Context, id primitive.ObjectID, estimated, lost decimal.Decimal) error
	SetLossTotals(ctx context.Context, id primitive.ObjectID, unitCost, totalLoss decimal.Decimal) error
}

// Engine applies the per-trigger cascades. A missing related aggregate
// skips the step (the trigger record stays, the marker is still set); any
// other failure leaves the marker unset so the backfill sweep retries.
type Engine struct {
	animals            AnimalStore
	inventory          InventoryStore
	finance            FinanceStore
	records            RecordStore
	allowNegativeStock bool
	logger             *zap.Logger
	now                func() time.Time
}

// NewEngine wires a cascade engine.
func NewEngine(animals AnimalStore, inventory InventoryStore, finance FinanceStore, records RecordStore, allowNegativeStock bool, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		animals:            animals,
		inventory:          inventory,
		finance:            finance,
		records:            records,
		allowNegativeStock: allowNegativeStock,
		logger:             logger,
		now:                time.Now,
	}
}

// ApplyHealth decrements one unit of every referenced medication and, when
// a positive post-treatment weight was captured, overwrites the animal's
// current weight (last write wins). Each decrement is flagged on its
// treatment entry immediately after it lands, so a re-run after a
// mid-cascade failure resumes at the first unflagged step instead of
// decrementing consumed medications again.
func (e *Engine) ApplyHealth(ctx context.Context, rec *models.HealthRecord) error {
	trigger := models.TriggerHealth

	for i := range rec.Treatments {
		treatment := rec.Treatments[i]
		if treatment.MedicationID == nil || treatment.Consumed {
			continue
		}
		err := e.inventory.AdjustQuantity(ctx, *treatment.MedicationID, decimal.NewFromInt(-1), 1, e.allowNegativeStock)
		if errors.Is(err, mongodb.ErrNotFound) {
			e.logger.Warn("medication missing at cascade time, step skipped",
				zap.String("health_record", rec.ID.Hex()),
				zap.String("medication", treatment.MedicationID.Hex()))
			continue
		}
		if err != nil {
			return e.failed(trigger, rec.ID, err)
		}
		if err := e.records.MarkTreatmentConsumed(ctx, rec.ID, i); err != nil && !errors.Is(err, mongodb.ErrNotFound) {
			return e.failed(trigger, rec.ID, err)
		}
		rec.Treatments[i].Consumed = true
	}

	if rec.PostWeight.IsPositive() {
		err := e.animals.UpdateWeight(ctx, rec.AnimalID, rec.PostWeight, e.recordDate(rec.Date))
		if errors.Is(err, mongodb.ErrNotFound) {
			e.logger.Warn("animal missing at cascade time, weight step skipped",
				zap.String("health_record", rec.ID.Hex()),
				zap.String("animal", rec.AnimalID.Hex()))
		} else if err != nil {
			return e.failed(trigger, rec.ID, err)
		}
	}

	return e.applied(ctx, trigger, rec.ID)
}

// ApplyMortality marks the animal dead, derives the loss amount, persists
// it back onto the record and books exactly one expense line when the
// amount is positive.
func (e *Engine) ApplyMortality(ctx context.Context, rec *models.MortalityRecord) error {
	trigger := models.TriggerMortality

	animal, err := e.animals.GetByID(ctx, rec.AnimalID)
	if errors.Is(err, mongodb.ErrNotFound) {
		e.logger.Warn("animal missing at cascade time, mortality cascade skipped",
			zap.String("mortality_record", rec.ID.Hex()),
			zap.String("animal", rec.AnimalID.Hex()))
		return e.skipped(ctx, trigger, rec.ID)
	}
	if err != nil {
		return e.failed(trigger, rec.ID, err)
	}

	// Setting dead on an already-dead animal is a no-op in effect.
	if err := e.animals.MarkDead(ctx, rec.AnimalID); err != nil {
		return e.failed(trigger, rec.ID, err)
	}

	amount := rec.EstimatedValue
	if !amount.IsPositive() {
		amount = animal.LossValue()
	}

	if err := e.records.SetMortalityValue(ctx, rec.ID, amount, amount); err != nil {
		return e.failed(trigger, rec.ID, err)
	}
	rec.EstimatedValue = amount
	rec.ValueLost = amount

	if amount.IsPositive() {
		line := &models.FinanceRecord{
			Type:        models.FinanceExpense,
			Category:    models.CategoryMortalityLoss,
			Amount:      amount,
			Date:        e.recordDate(rec.Date),
			Description: "Loss of animal " + animal.Tag,
			AnimalID:    &rec.AnimalID,
			Source:      &models.FinanceSource{Type: string(trigger), ID: rec.ID},
		}
		if err := e.finance.InsertFromCascade(ctx, line); err != nil {
			return e.failed(trigger, rec.ID, err)
		}
	}

	return e.applied(ctx, trigger, rec.ID)
}

// ApplyInventoryLoss decrements the item's stock by the lost quantity,
// computes the total loss and books one expense line when it is positive.
func (e *Engine) ApplyInventoryLoss(ctx context.Context, rec *models.InventoryLossRecord) error {
	trigger := models.TriggerInventoryLoss

	unitCost := rec.UnitCost
	if !unitCost.IsPositive() {
		item, err := e.inventory.GetByID(ctx, rec.ItemID)
		if errors.Is(err, mongodb.ErrNotFound) {
			e.logger.Warn("inventory item missing at cascade time, loss cascade skipped",
				zap.String("loss_record", rec.ID.Hex()),
				zap.String("item", rec.ItemID.Hex()))
			return e.skipped(ctx, trigger, rec.ID)
		}
		if err != nil {
			return e.failed(trigger, rec.ID, err)
		}
		unitCost = item.UnitCost
	}

	// The decrement is flagged on the record the moment it lands: a re-run
	// after a later step failed resumes past it instead of applying the
	// delta a second time.
	if !rec.StockAdjusted {
		err := e.inventory.AdjustQuantity(ctx, rec.ItemID, rec.Quantity.Neg(), 0, e.allowNegativeStock)
		if errors.Is(err, mongodb.ErrNotFound) {
			e.logger.Warn("inventory item missing at cascade time, loss cascade skipped",
				zap.String("loss_record", rec.ID.Hex()),
				zap.String("item", rec.ItemID.Hex()))
			return e.skipped(ctx, trigger, rec.ID)
		}
		if err != nil {
			return e.failed(trigger, rec.ID, err)
		}
		if err := e.records.MarkStockAdjusted(ctx, rec.ID); err != nil && !errors.Is(err, mongodb.ErrNotFound) {
			return e.failed(trigger, rec.ID, err)
		}
		rec.StockAdjusted = true
	}

	totalLoss := rec.Quantity.Mul(unitCost)
	if err := e.records.SetLossTotals(ctx, rec.ID, unitCost, totalLoss); err != nil {
		return e.failed(trigger, rec.ID, err)
	}
	rec.UnitCost = unitCost
	rec.TotalLoss = totalLoss

	if totalLoss.IsPositive() {
		line := &models.FinanceRecord{
			Type:     models.FinanceExpense,
			Category: models.CategoryInventoryLoss,
			Amount:   totalLoss,
			Date:     e.recordDate(rec.Date),
			ItemID:   &rec.ItemID,
			Source:   &models.FinanceSource{Type: string(trigger), ID: rec.ID},
		}
		if err := e.finance.InsertFromCascade(ctx, line); err != nil {
			return e.failed(trigger, rec.ID, err)
		}
	}

	return e.applied(ctx, trigger, rec.ID)
}

// ApplyWeight overwrites the animal's current weight unconditionally,
// same last-write-wins semantics as the health cascade.
func (e *Engine) ApplyWeight(ctx context.Context, rec *models.WeightRecord) error {
	trigger := models.TriggerWeight

	err := e.animals.UpdateWeight(ctx, rec.AnimalID, rec.Weight, e.recordDate(rec.Date))
	if errors.Is(err, mongodb.ErrNotFound) {
		e.logger.Warn("animal missing at cascade time, weight cascade skipped",
			zap.String("weight_record", rec.ID.Hex()),
			zap.String("animal", rec.AnimalID.Hex()))
		return e.skipped(ctx, trigger, rec.ID)
	}
	if err != nil {
		return e.failed(trigger, rec.ID, err)
	}

	return e.applied(ctx, trigger, rec.ID)
}

func (e *Engine) recordDate(d time.Time) time.Time {
	if d.IsZero() {
		return e.now().UTC()
	}
	return d
}

func (e *Engine) applied(ctx context.Context, trigger models.TriggerType, id primitive.ObjectID) error {
	if err := e.records.MarkCascadeApplied(ctx, trigger, id); err != nil && !errors.Is(err, mongodb.ErrNotFound) {
		return e.failed(trigger, id, err)
	}
	metrics.CascadeOutcomes.WithLabelValues(string(trigger), metrics.OutcomeApplied).Inc()
	return nil
}

// skipped marks the trigger record as applied even though the related
// aggregate was gone: a missing aggregate is permanent, so retrying the
// cascade would never make progress.
func (e *Engine) skipped(ctx context.Context, trigger models.TriggerType, id primitive.ObjectID) error {
	if err := e.records.MarkCascadeApplied(ctx, trigger, id); err != nil && !errors.Is(err, mongodb.ErrNotFound) {
		return e.failed(trigger, id, err)
	}
	metrics.CascadeOutcomes.WithLabelValues(string(trigger), metrics.OutcomeSkipped).Inc()
	return nil
}

func (e *Engine) failed(trigger models.TriggerType, id primitive.ObjectID, err error) error {
	metrics.CascadeOutcomes.WithLabelValues(string(trigger), metrics.OutcomeFailed).Inc()
	e.logger.Error("cascade failed, trigger record kept without side effects",
		zap.String("trigger", string(trigger)),
		zap.String("record", id.Hex()),
		zap.Error(err))
	return err
}
