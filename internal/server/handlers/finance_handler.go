package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/domain/models"
	"github.com/mamadbah2/livestock/internal/repository/mongodb"
)

// FinanceHandler serves direct ledger edits. Cascade-generated lines go
// through the cascade engine, never through this handler.
type FinanceHandler struct {
	finance *mongodb.FinanceRepo
	logger  *zap.Logger
}

// NewFinanceHandler constructs the HTTP handler adapter.
func NewFinanceHandler(finance *mongodb.FinanceRepo, logger *zap.Logger) *FinanceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceHandler{finance: finance, logger: logger}
}

// List returns recent ledger lines.
func (h *FinanceHandler) List(c *gin.Context) {
	records, err := h.finance.List(c.Request.Context(), 200)
	if err != nil {
		h.logger.Error("failed listing finance records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list finance records"})
		return
	}
	if records == nil {
		records = []models.FinanceRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"items": records})
}

type createFinanceRequest struct {
	Type        string          `json:"type" binding:"required,oneof=income expense"`
	Category    string          `json:"category" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Date        *time.Time      `json:"date"`
	Description string          `json:"description"`
}

// Create books a ledger line from a direct user edit.
func (h *FinanceHandler) Create(c *gin.Context) {
	var req createFinanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	record := models.FinanceRecord{
		Type:        models.FinanceType(req.Type),
		Category:    req.Category,
		Amount:      req.Amount,
		Date:        recordDate(req.Date),
		Description: req.Description,
	}

	if err := h.finance.Insert(c.Request.Context(), &record); err != nil {
		h.logger.Error("failed creating finance record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create finance record"})
		return
	}

	c.JSON(http.StatusCreated, record)
}

// Delete removes a ledger line.
func (h *FinanceHandler) Delete(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	if err := h.finance.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "finance record not found"})
			return
		}
		h.logger.Error("failed deleting finance record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete finance record"})
		return
	}

	c.Status(http.StatusNoContent)
}
