package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/domain/models"
	"github.com/mamadbah2/livestock/internal/repository/mongodb"
	"github.com/mamadbah2/livestock/internal/service/cascade"
)

// RecordHandler serves the trigger-creation endpoints. Each one validates,
// persists the trigger record, then runs its cascade synchronously. A
// cascade failure is absorbed: the record is already durable, the backfill
// sweep will complete the side effects.
type RecordHandler struct {
	records *mongodb.RecordRepo
	engine  *cascade.Engine
	logger  *zap.Logger
}

// NewRecordHandler constructs the HTTP handler adapter.
func NewRecordHandler(records *mongodb.RecordRepo, engine *cascade.Engine, logger *zap.Logger) *RecordHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordHandler{records: records, engine: engine, logger: logger}
}

type treatmentRequest struct {
	MedicationID string `json:"medication_id"`
	Dosage       string `json:"dosage"`
}

type createHealthRequest struct {
	AnimalID   string             `json:"animal_id" binding:"required"`
	Condition  string             `json:"condition"`
	Treatments []treatmentRequest `json:"treatments" binding:"max=2"`
	PostWeight decimal.Decimal    `json:"post_weight"`
	Notes      string             `json:"notes"`
	Date       *time.Time         `json:"date"`
}

// CreateHealthRecord persists a treatment event and fans out medication
// consumption and the optional post-treatment weight.
func (h *RecordHandler) CreateHealthRecord(c *gin.Context) {
	var req createHealthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	animalID, err := primitive.ObjectIDFromHex(req.AnimalID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid animal id"})
		return
	}

	treatments := make([]models.TreatmentEntry, 0, len(req.Treatments))
	for _, t := range req.Treatments {
		entry := models.TreatmentEntry{Dosage: t.Dosage}
		if t.MedicationID != "" {
			medID, err := primitive.ObjectIDFromHex(t.MedicationID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid medication id"})
				return
			}
			entry.MedicationID = &medID
		}
		treatments = append(treatments, entry)
	}

	rec := models.HealthRecord{
		AnimalID:   animalID,
		Condition:  req.Condition,
		Treatments: treatments,
		PostWeight: req.PostWeight,
		Notes:      req.Notes,
		Date:       recordDate(req.Date),
	}

	if err := h.records.InsertHealth(c.Request.Context(), &rec); err != nil {
		h.logger.Error("failed creating health record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create health record"})
		return
	}

	// Best effort past this point; the record is durable.
	_ = h.engine.ApplyHealth(c.Request.Context(), &rec)

	c.JSON(http.StatusCreated, rec)
}

type createMortalityRequest struct {
	AnimalID       string          `json:"animal_id" binding:"required"`
	Cause          string          `json:"cause"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
	Date           *time.Time      `json:"date"`
}

// CreateMortalityRecord persists a death event, marks the animal dead and
// books the derived loss.
func (h *RecordHandler) CreateMortalityRecord(c *gin.Context) {
	var req createMortalityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	animalID, err := primitive.ObjectIDFromHex(req.AnimalID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid animal id"})
		return
	}

	rec := models.MortalityRecord{
		AnimalID:       animalID,
		Cause:          req.Cause,
		EstimatedValue: req.EstimatedValue,
		Date:           recordDate(req.Date),
	}

	if err := h.records.InsertMortality(c.Request.Context(), &rec); err != nil {
		h.logger.Error("failed creating mortality record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create mortality record"})
		return
	}

	_ = h.engine.ApplyMortality(c.Request.Context(), &rec)

	c.JSON(http.StatusCreated, rec)
}

type createInventoryLossRequest struct {
	ItemID   string          `json:"item_id" binding:"required"`
	Reason   string          `json:"reason"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Date     *time.Time      `json:"date"`
}

// CreateInventoryLossRecord persists a stock loss and fans out the
// decrement and the expense line.
func (h *RecordHandler) CreateInventoryLossRecord(c *gin.Context) {
	var req createInventoryLossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	itemID, err := primitive.ObjectIDFromHex(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	if !req.Quantity.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}

	rec := models.InventoryLossRecord{
		ItemID:   itemID,
		Reason:   req.Reason,
		Quantity: req.Quantity,
		UnitCost: req.UnitCost,
		Date:     recordDate(req.Date),
	}

	if err := h.records.InsertInventoryLoss(c.Request.Context(), &rec); err != nil {
		h.logger.Error("failed creating inventory loss record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create inventory loss record"})
		return
	}

	_ = h.engine.ApplyInventoryLoss(c.Request.Context(), &rec)

	c.JSON(http.StatusCreated, rec)
}

type createWeightRequest struct {
	AnimalID string          `json:"animal_id" binding:"required"`
	Weight   decimal.Decimal `json:"weight" binding:"required"`
	Date     *time.Time      `json:"date"`
}

// CreateWeightRecord persists a weight measurement and overwrites the
// animal's current weight.
func (h *RecordHandler) CreateWeightRecord(c *gin.Context) {
	var req createWeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	animalID, err := primitive.ObjectIDFromHex(req.AnimalID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid animal id"})
		return
	}

	if !req.Weight.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "weight must be positive"})
		return
	}

	rec := models.WeightRecord{
		AnimalID: animalID,
		Weight:   req.Weight,
		Date:     recordDate(req.Date),
	}

	if err := h.records.InsertWeight(c.Request.Context(), &rec); err != nil {
		h.logger.Error("failed creating weight record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create weight record"})
		return
	}

	_ = h.engine.ApplyWeight(c.Request.Context(), &rec)

	c.JSON(http.StatusCreated, rec)
}

func recordDate(d *time.Time) time.Time {
	if d == nil || d.IsZero() {
		return time.Now().UTC()
	}
	return d.UTC()
}
