package cascade

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/livestock/internal/domain/models"
	"github.com/mamadbah2/livestock/internal/repository/mongodb"
)

type fakeAnimals struct {
	animals map[primitive.ObjectID]*models.Animal
}

func (f *fakeAnimals) GetByID(_ context.Context, id primitive.ObjectID) (*models.Animal, error) {
	a, ok := f.animals[id]
	if !ok {
		return nil, mongodb.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAnimals) MarkDead(_ context.Context, id primitive.ObjectID) error {
	a, ok := f.animals[id]
	if !ok {
		return mongodb.ErrNotFound
	}
	a.Status = models.StatusDead
	return nil
}

func (f *fakeAnimals) UpdateWeight(_ context.Context, id primitive.ObjectID, weight decimal.Decimal, at time.Time) error {
	a, ok := f.animals[id]
	if !ok {
		return mongodb.ErrNotFound
	}
	a.CurrentWeight = weight
	a.WeightDate = &at
	return nil
}

type adjustment struct {
	delta         decimal.Decimal
	timesUsed     int64
	allowNegative bool
}

type fakeInventory struct {
	items       map[primitive.ObjectID]*models.InventoryItem
	adjustments map[primitive.ObjectID][]adjustment
	adjustErrs  map[primitive.ObjectID]error // consumed on first use
}

func (f *fakeInventory) GetByID(_ context.Context, id primitive.ObjectID) (*models.InventoryItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, mongodb.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (f *fakeInventory) AdjustQuantity(_ context.Context, id primitive.ObjectID, delta decimal.Decimal, timesUsed int64, allowNegative bool) error {
	if err, ok := f.adjustErrs[id]; ok {
		delete(f.adjustErrs, id)
		return err
	}
	item, ok := f.items[id]
	if !ok {
		return mongodb.ErrNotFound
	}
	next := item.Quantity.Add(delta)
	if !allowNegative && next.IsNegative() {
		next = decimal.Zero
	}
	item.Quantity = next
	item.TimesUsed += timesUsed
	if f.adjustments == nil {
		f.adjustments = make(map[primitive.ObjectID][]adjustment)
	}
	f.adjustments[id] = append(f.adjustments[id], adjustment{delta, timesUsed, allowNegative})
	return nil
}

type fakeFinance struct {
	lines []models.FinanceRecord
}

func (f *fakeFinance) InsertFromCascade(_ context.Context, record *models.FinanceRecord) error {
	key := record.Source.Type + "/" + record.Source.ID.Hex()
	for _, existing := range f.lines {
		if existing.Source.Type+"/"+existing.Source.ID.Hex() == key {
			// Unique source index: retry is a no-op.
			return nil
		}
	}
	record.ID = primitive.NewObjectID()
	f.lines = append(f.lines, *record)
	return nil
}

type fakeRecords struct {
	applied    map[string]bool
	mortValues map[primitive.ObjectID]decimal.Decimal
	lossTotals map[primitive.ObjectID]decimal.Decimal

	lossTotalsFailures int // SetLossTotals fails this many times first
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		applied:    make(map[string]bool),
		mortValues: make(map[primitive.ObjectID]decimal.Decimal),
		lossTotals: make(map[primitive.ObjectID]decimal.Decimal),
	}
}

func (f *fakeRecords) MarkCascadeApplied(_ context.Context, trigger models.TriggerType, id primitive.ObjectID) error {
	f.applied[fmt.Sprintf("%s/%s", trigger, id.Hex())] = true
	return nil
}

func (f *fakeRecords) SetMortalityValue(_ context.Context, id primitive.ObjectID, estimated, _ decimal.Decimal) error {
	f.mortValues[id] = estimated
	return nil
}

func (f *fakeRecords) MarkTreatmentConsumed(_ context.Context, _ primitive.ObjectID, _ int) error {
	return nil
}

func (f *fakeRecords) MarkStockAdjusted(_ context.Context, _ primitive.ObjectID) error {
	return nil
}

func (f *fakeRecords) SetLossTotals(_ context.Context, id primitive.ObjectID, _, totalLoss decimal.Decimal) error {
	if f.lossTotalsFailures > 0 {
		f.lossTotalsFailures--
		return errors.New("write concern timeout")
	}
	f.lossTotals[id] = totalLoss
	return nil
}

func (f *fakeRecords) isApplied(trigger models.TriggerType, id primitive.ObjectID) bool {
	return f.applied[fmt.Sprintf("%s/%s", trigger, id.Hex())]
}

type fixture struct {
	animals   *fakeAnimals
	inventory *fakeInventory
	finance   *fakeFinance
	records   *fakeRecords
	engine    *Engine
}

func newFixture(allowNegative bool) *fixture {
	f := &fixture{
		animals:   &fakeAnimals{animals: make(map[primitive.ObjectID]*models.Animal)},
		inventory: &fakeInventory{items: make(map[primitive.ObjectID]*models.InventoryItem)},
		finance:   &fakeFinance{},
		records:   newFakeRecords(),
	}
	f.engine = NewEngine(f.animals, f.inventory, f.finance, f.records, allowNegative, nil)
	return f
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMortalityCascadeDerivesLossFromCosts(t *testing.T) {
	f := newFixture(true)
	animalID := primitive.NewObjectID()
	f.animals.animals[animalID] = &models.Animal{
		ID:                  animalID,
		Tag:                 "COW-0042",
		Status:              models.StatusAlive,
		ProjectedSalesPrice: decimal.Zero,
		PurchaseCost:        dec("50000"),
		TotalFeedCost:       dec("5000"),
		TotalMedicationCost: dec("2000"),
	}

	rec := &models.MortalityRecord{ID: primitive.NewObjectID(), AnimalID: animalID}
	require.NoError(t, f.engine.ApplyMortality(context.Background(), rec))

	assert.Equal(t, models.StatusDead, f.animals.animals[animalID].Status)
	assert.True(t, rec.EstimatedValue.Equal(dec("57000")))
	assert.True(t, rec.ValueLost.Equal(dec("57000")))

	require.Len(t, f.finance.lines, 1)
	line := f.finance.lines[0]
	assert.Equal(t, models.FinanceExpense, line.Type)
	assert.Equal(t, models.CategoryMortalityLoss, line.Category)
	assert.True(t, line.Amount.Equal(dec("57000")))
	require.NotNil(t, line.AnimalID)
	assert.Equal(t, animalID, *line.AnimalID)

	assert.True(t, f.records.isApplied(models.TriggerMortality, rec.ID))
}

func TestMortalityCascadePrefersProjectedSalesPrice(t *testing.T) {
	f := newFixture(true)
	animalID := primitive.NewObjectID()
	f.animals.animals[animalID] = &models.Animal{
		ID:                  animalID,
		Status:              models.StatusAlive,
		ProjectedSalesPrice: dec("80000"),
		PurchaseCost:        dec("50000"),
	}

	rec := &models.MortalityRecord{ID: primitive.NewObjectID(), AnimalID: animalID}
	require.NoError(t, f.engine.ApplyMortality(context.Background(), rec))

	assert.True(t, rec.ValueLost.Equal(dec("80000")))
}

func TestMortalityCascadeKeepsSuppliedEstimate(t *testing.T) {
	f := newFixture(true)
	animalID := primitive.NewObjectID()
	f.animals.animals[animalID] = &models.Animal{
		ID:                  animalID,
		Status:              models.StatusAlive,
		ProjectedSalesPrice: dec("80000"),
	}

	rec := &models.MortalityRecord{
		ID:             primitive.NewObjectID(),
		AnimalID:       animalID,
		EstimatedValue: dec("12345"),
	}
	require.NoError(t, f.engine.ApplyMortality(context.Background(), rec))

	assert.True(t, rec.ValueLost.Equal(dec("12345")))
	require.Len(t, f.finance.lines, 1)
	assert.True(t, f.finance.lines[0].Amount.Equal(dec("12345")))
}

func TestMortalityCascadeIdempotentOnDeadAnimal(t *testing.T) {
	f := newFixture(true)
	animalID := primitive.NewObjectID()
	f.animals.animals[animalID] = &models.Animal{
		ID:                  animalID,
		Status:              models.StatusDead,
		ProjectedSalesPrice: dec("100"),
	}

	rec := &models.MortalityRecord{ID: primitive.NewObjectID(), AnimalID: animalID}
	require.NoError(t, f.engine.ApplyMortality(context.Background(), rec))

	// Retry of the same trigger record must not duplicate the ledger line.
	require.NoError(t, f.engine.ApplyMortality(context.Background(), rec))

	assert.Equal(t, models.StatusDead, f.animals.animals[animalID].Status)
	assert.Len(t, f.finance.lines, 1)
}

func TestMortalityCascadeSkipsMissingAnimal(t *testing.T) {
	f := newFixture(true)

	rec := &models.MortalityRecord{ID: primitive.NewObjectID(), AnimalID: primitive.NewObjectID()}
	require.NoError(t, f.engine.ApplyMortality(context.Background(), rec))

	assert.Empty(t, f.finance.lines)
	// Missing aggregates are permanent: the marker is still set so the
	// backfill sweep does not retry forever.
	assert.True(t, f.records.isApplied(models.TriggerMortality, rec.ID))
}

func TestInventoryLossCascadeTotals(t *testing.T) {
	f := newFixture(true)
	itemID := primitive.NewObjectID()
	f.inventory.items[itemID] = &models.InventoryItem{
		ID:       itemID,
		Name:     "Feed-A",
		Quantity: dec("40"),
		UnitCost: dec("150"),
	}

	rec := &models.InventoryLossRecord{
		ID:       primitive.NewObjectID(),
		ItemID:   itemID,
		Quantity: dec("5"),
		UnitCost: dec("200"),
	}
	require.NoError(t, f.engine.ApplyInventoryLoss(context.Background(), rec))

	assert.True(t, rec.TotalLoss.Equal(dec("1000")))
	assert.True(t, f.inventory.items[itemID].Quantity.Equal(dec("35")))
	assert.True(t, f.records.lossTotals[rec.ID].Equal(dec("1000")))

	require.Len(t, f.finance.lines, 1)
	assert.Equal(t, models.CategoryInventoryLoss, f.finance.lines[0].Category)
	assert.True(t, f.finance.lines[0].Amount.Equal(dec("1000")))
}

func TestInventoryLossCascadeFallsBackToItemCost(t *testing.T) {
	f := newFixture(true)
	itemID := primitive.NewObjectID()
	f.inventory.items[itemID] = &models.InventoryItem{
		ID:       itemID,
		Quantity: dec("10"),
		UnitCost: dec("150"),
	}

	rec := &models.InventoryLossRecord{
		ID:       primitive.NewObjectID(),
		ItemID:   itemID,
		Quantity: dec("2"),
	}
	require.NoError(t, f.engine.ApplyInventoryLoss(context.Background(), rec))

	assert.True(t, rec.UnitCost.Equal(dec("150")))
	assert.True(t, rec.TotalLoss.Equal(dec("300")))
}

func TestInventoryLossCascadeZeroTotalBooksNothing(t *testing.T) {
	f := newFixture(true)
	itemID := primitive.NewObjectID()
	f.inventory.items[itemID] = &models.InventoryItem{
		ID:       itemID,
		Quantity: dec("10"),
		UnitCost: decimal.Zero,
	}

	rec := &models.InventoryLossRecord{
		ID:       primitive.NewObjectID(),
		ItemID:   itemID,
		Quantity: dec("3"),
	}
	require.NoError(t, f.engine.ApplyInventoryLoss(context.Background(), rec))

	assert.True(t, rec.TotalLoss.IsZero())
	assert.Empty(t, f.finance.lines, "no finance record for a zero loss")
	assert.True(t, f.inventory.items[itemID].Quantity.Equal(dec("7")))
	assert.True(t, f.records.isApplied(models.TriggerInventoryLoss, rec.ID))
}

func TestInventoryLossCascadeAllowsNegativeStock(t *testing.T) {
	f := newFixture(true)
	itemID := primitive.NewObjectID()
	f.inventory.items[itemID] = &models.InventoryItem{
		ID:       itemID,
		Quantity: dec("2"),
		UnitCost: dec("10"),
	}

	rec := &models.InventoryLossRecord{
		ID:       primitive.NewObjectID(),
		ItemID:   itemID,
		Quantity: dec("5"),
	}
	require.NoError(t, f.engine.ApplyInventoryLoss(context.Background(), rec))

	assert.True(t, f.inventory.items[itemID].Quantity.Equal(dec("-3")))
}

func TestInventoryLossCascadeClampPolicy(t *testing.T) {
	f := newFixture(false)
	itemID := primitive.NewObjectID()
	f.inventory.items[itemID] = &models.InventoryItem{
		ID:       itemID,
		Quantity: dec("2"),
		UnitCost: dec("10"),
	}

	rec := &models.InventoryLossRecord{
		ID:       primitive.NewObjectID(),
		ItemID:   itemID,
		Quantity: dec("5"),
	}
	require.NoError(t, f.engine.ApplyInventoryLoss(context.Background(), rec))

	assert.True(t, f.inventory.items[itemID].Quantity.IsZero())
	require.Len(t, f.inventory.adjustments[itemID], 1)
	assert.False(t, f.inventory.adjustments[itemID][0].allowNegative)
}

func TestInventoryLossCascadeRetryDoesNotDoubleDecrement(t *testing.T) {
	f := newFixture(true)
	itemID := primitive.NewObjectID()
	f.inventory.items[itemID] = &models.InventoryItem{
		ID:       itemID,
		Quantity: dec("10"),
		UnitCost: dec("2"),
	}
	f.records.lossTotalsFailures = 1

	rec := &models.InventoryLossRecord{
		ID:       primitive.NewObjectID(),
		ItemID:   itemID,
		Quantity: dec("3"),
		UnitCost: dec("2"),
	}

	// First run: the decrement lands, then persisting the totals fails.
	// The marker stays unset so the sweep re-runs the cascade.
	require.Error(t, f.engine.ApplyInventoryLoss(context.Background(), rec))
	assert.True(t, f.inventory.items[itemID].Quantity.Equal(dec("7")))
	assert.False(t, f.records.isApplied(models.TriggerInventoryLoss, rec.ID))
	assert.True(t, rec.StockAdjusted)

	// The re-run must resume past the decrement: stock stays at 7.
	require.NoError(t, f.engine.ApplyInventoryLoss(context.Background(), rec))
	assert.True(t, f.inventory.items[itemID].Quantity.Equal(dec("7")),
		"stock decremented twice for one loss record")
	assert.True(t, f.records.isApplied(models.TriggerInventoryLoss, rec.ID))
	assert.True(t, rec.TotalLoss.Equal(dec("6")))
	require.Len(t, f.finance.lines, 1)
	require.Len(t, f.inventory.adjustments[itemID], 1)
}

func TestHealthCascadeRetrySkipsConsumedMedications(t *testing.T) {
	f := newFixture(true)
	animalID := primitive.NewObjectID()
	f.animals.animals[animalID] = &models.Animal{ID: animalID, Status: models.StatusAlive}

	medA := primitive.NewObjectID()
	medB := primitive.NewObjectID()
	f.inventory.items[medA] = &models.InventoryItem{ID: medA, Quantity: dec("10")}
	f.inventory.items[medB] = &models.InventoryItem{ID: medB, Quantity: dec("4")}
	f.inventory.adjustErrs = map[primitive.ObjectID]error{medB: errors.New("connection reset")}

	when := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)
	rec := &models.HealthRecord{
		ID:       primitive.NewObjectID(),
		AnimalID: animalID,
		Treatments: []models.TreatmentEntry{
			{MedicationID: &medA},
			{MedicationID: &medB},
		},
		PostWeight: dec("321"),
		Date:       when,
	}

	// First run: the first medication is consumed, the second fails
	// transiently before the weight step.
	require.Error(t, f.engine.ApplyHealth(context.Background(), rec))
	assert.True(t, f.inventory.items[medA].Quantity.Equal(dec("9")))
	assert.True(t, rec.Treatments[0].Consumed)
	assert.False(t, rec.Treatments[1].Consumed)
	assert.Nil(t, f.animals.animals[animalID].WeightDate)
	assert.False(t, f.records.isApplied(models.TriggerHealth, rec.ID))

	// The re-run resumes at the failed step: the first medication is not
	// decremented again.
	require.NoError(t, f.engine.ApplyHealth(context.Background(), rec))
	assert.True(t, f.inventory.items[medA].Quantity.Equal(dec("9")),
		"medication decremented twice for one health record")
	assert.True(t, f.inventory.items[medB].Quantity.Equal(dec("3")))
	require.Len(t, f.inventory.adjustments[medA], 1)

	assert.True(t, f.animals.animals[animalID].CurrentWeight.Equal(dec("321")))
	require.NotNil(t, f.animals.animals[animalID].WeightDate)
	assert.Equal(t, when, *f.animals.animals[animalID].WeightDate)
	assert.True(t, f.records.isApplied(models.TriggerHealth, rec.ID))
}

func TestHealthCascadeConsumesMedications(t *testing.T) {
	f := newFixture(true)
	animalID := primitive.NewObjectID()
	f.animals.animals[animalID] = &models.Animal{ID: animalID, Status: models.StatusAlive}

	medA := primitive.NewObjectID()
	medB := primitive.NewObjectID()
	f.inventory.items[medA] = &models.InventoryItem{ID: medA, Quantity: dec("10")}
	f.inventory.items[medB] = &models.InventoryItem{ID: medB, Quantity: dec("4")}

	rec := &models.HealthRecord{
		ID:       primitive.NewObjectID(),
		AnimalID: animalID,
		Treatments: []models.TreatmentEntry{
			{MedicationID: &medA, Dosage: "5ml"},
			{MedicationID: &medB},
		},
		PostWeight: dec("320.5"),
	}
	require.NoError(t, f.engine.ApplyHealth(context.Background(), rec))

	assert.True(t, f.inventory.items[medA].Quantity.Equal(dec("9")))
	assert.True(t, f.inventory.items[medB].Quantity.Equal(dec("3")))
	assert.Equal(t, int64(1), f.inventory.items[medA].TimesUsed)

	assert.True(t, f.animals.animals[animalID].CurrentWeight.Equal(dec("320.5")))
	require.NotNil(t, f.animals.animals[animalID].WeightDate)
	assert.True(t, f.records.isApplied(models.TriggerHealth, rec.ID))
}

func TestHealthCascadeWithoutPostWeightLeavesAnimal(t *testing.T) {
	f := newFixture(true)
	animalID := primitive.NewObjectID()
	f.animals.animals[animalID] = &models.Animal{
		ID:            animalID,
		Status:        models.StatusAlive,
		CurrentWeight: dec("300"),
	}

	rec := &models.HealthRecord{ID: primitive.NewObjectID(), AnimalID: animalID}
	require.NoError(t, f.engine.ApplyHealth(context.Background(), rec))

	assert.True(t, f.animals.animals[animalID].CurrentWeight.Equal(dec("300")))
	assert.Nil(t, f.animals.animals[animalID].WeightDate)
}

func TestHealthCascadeSkipsMissingMedication(t *testing.T) {
	f := newFixture(true)
	animalID := primitive.NewObjectID()
	f.animals.animals[animalID] = &models.Animal{ID: animalID, Status: models.StatusAlive}

	missing := primitive.NewObjectID()
	rec := &models.HealthRecord{
		ID:         primitive.NewObjectID(),
		AnimalID:   animalID,
		Treatments: []models.TreatmentEntry{{MedicationID: &missing}},
	}

	require.NoError(t, f.engine.ApplyHealth(context.Background(), rec))
	assert.True(t, f.records.isApplied(models.TriggerHealth, rec.ID))
}

func TestWeightCascadeUpdatesAnimal(t *testing.T) {
	f := newFixture(true)
	animalID := primitive.NewObjectID()
	f.animals.animals[animalID] = &models.Animal{ID: animalID, Status: models.StatusAlive}

	when := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	rec := &models.WeightRecord{
		ID:       primitive.NewObjectID(),
		AnimalID: animalID,
		Weight:   dec("412.75"),
		Date:     when,
	}
	require.NoError(t, f.engine.ApplyWeight(context.Background(), rec))

	animal := f.animals.animals[animalID]
	assert.True(t, animal.CurrentWeight.Equal(dec("412.75")))
	require.NotNil(t, animal.WeightDate)
	assert.Equal(t, when, *animal.WeightDate)
	assert.True(t, f.records.isApplied(models.TriggerWeight, rec.ID))
}

func TestWeightCascadeSkipsMissingAnimal(t *testing.T) {
	f := newFixture(true)

	rec := &models.WeightRecord{
		ID:       primitive.NewObjectID(),
		AnimalID: primitive.NewObjectID(),
		Weight:   dec("100"),
	}
	require.NoError(t, f.engine.ApplyWeight(context.Background(), rec))
	assert.True(t, f.records.isApplied(models.TriggerWeight, rec.ID))
}
