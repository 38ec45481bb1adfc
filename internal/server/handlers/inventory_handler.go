package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/domain/models"
	"github.com/mamadbah2/livestock/internal/repository/mongodb"
)

// InventoryHandler serves the inventory CRUD surface.
type InventoryHandler struct {
	inventory *mongodb.InventoryRepo
	logger    *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter.
func NewInventoryHandler(inventory *mongodb.InventoryRepo, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{inventory: inventory, logger: logger}
}

// List returns all inventory items ordered by name.
func (h *InventoryHandler) List(c *gin.Context) {
	items, err := h.inventory.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed listing inventory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list inventory"})
		return
	}
	if items == nil {
		items = []models.InventoryItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type createInventoryRequest struct {
	Name      string          `json:"name" binding:"required"`
	Category  string          `json:"category"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Create registers a new inventory item. A re-used name is a conflict.
func (h *InventoryHandler) Create(c *gin.Context) {
	var req createInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item := models.InventoryItem{
		Name:      req.Name,
		Category:  req.Category,
		Unit:      req.Unit,
		Quantity:  req.Quantity,
		UnitCost:  req.UnitCost,
		UnitPrice: req.UnitPrice,
	}

	if err := h.inventory.Insert(c.Request.Context(), &item); err != nil {
		if errors.Is(err, mongodb.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "item name already in use"})
			return
		}
		h.logger.Error("failed creating inventory item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create inventory item"})
		return
	}

	c.JSON(http.StatusCreated, item)
}

type restockRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// Restock adds stock through a direct edit.
func (h *InventoryHandler) Restock(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if !req.Quantity.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}

	if err := h.inventory.Restock(c.Request.Context(), id, req.Quantity, req.UnitCost); err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "inventory item not found"})
			return
		}
		h.logger.Error("failed restocking inventory item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to restock inventory item"})
		return
	}

	c.Status(http.StatusNoContent)
}
