package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/domain/models"
	"github.com/mamadbah2/livestock/internal/pagination"
	"github.com/mamadbah2/livestock/internal/repository/mongodb"
	"github.com/mamadbah2/livestock/pkg/cache"
)

const animalCountKey = "animals:count"

// AnimalHandler serves the animal CRUD surface and the keyset listing.
type AnimalHandler struct {
	animals *mongodb.AnimalRepo
	counts  *cache.CountCache
	logger  *zap.Logger
}

// NewAnimalHandler constructs the HTTP handler adapter.
func NewAnimalHandler(animals *mongodb.AnimalRepo, counts *cache.CountCache, logger *zap.Logger) *AnimalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnimalHandler{animals: animals, counts: counts, logger: logger}
}

type listAnimalsQuery struct {
	SortBy    string `form:"sortBy"`
	SortDir   string `form:"sortDir"`
	Cursor    string `form:"cursor"`
	Limit     int64  `form:"limit"`
	WithCount bool   `form:"withCount"`
}

// List returns one keyset page of animals. Unknown sort fields fall back
// to creation time descending; an undecodable cursor restarts from the
// first page.
func (h *AnimalHandler) List(c *gin.Context) {
	var query listAnimalsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	q := pagination.Plan(pagination.Params{
		SortBy:  query.SortBy,
		SortDir: query.SortDir,
		Cursor:  query.Cursor,
		Limit:   query.Limit,
	}, mongodb.AnimalFields, bson.D{})

	items, err := h.animals.List(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("failed listing animals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list animals"})
		return
	}

	hasMore := int64(len(items)) > q.PageSize
	if hasMore {
		items = items[:q.PageSize]
	}

	nextCursor := ""
	if hasMore {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(mongodb.AnimalCursorValue(last, q.SortBy), last.ID.Hex())
	}
	if items == nil {
		items = []models.Animal{}
	}

	resp := gin.H{
		"items":      items,
		"limit":      q.PageSize,
		"sortBy":     q.SortBy,
		"sortDir":    q.SortDir,
		"nextCursor": nextCursor,
		"hasMore":    hasMore,
	}

	if query.WithCount {
		total, err := h.counts.Get(c.Request.Context(), animalCountKey, func(ctx context.Context) (int64, error) {
			return h.animals.Count(ctx, bson.D{})
		})
		if err != nil {
			h.logger.Error("failed counting animals", zap.Error(err))
		} else {
			resp["total"] = total
		}
	}

	c.JSON(http.StatusOK, resp)
}

type createAnimalRequest struct {
	Tag                 string          `json:"tag" binding:"required"`
	Name                string          `json:"name"`
	Species             string          `json:"species" binding:"required"`
	Breed               string          `json:"breed"`
	LocationID          string          `json:"location_id"`
	CurrentWeight       decimal.Decimal `json:"current_weight"`
	PurchaseCost        decimal.Decimal `json:"purchase_cost"`
	ProjectedSalesPrice decimal.Decimal `json:"projected_sales_price"`
}

// Create registers a new animal. A re-used tag is a conflict.
func (h *AnimalHandler) Create(c *gin.Context) {
	var req createAnimalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	animal := models.Animal{
		Tag:                 req.Tag,
		Name:                req.Name,
		Species:             req.Species,
		Breed:               req.Breed,
		LocationID:          req.LocationID,
		Status:              models.StatusAlive,
		CurrentWeight:       req.CurrentWeight,
		PurchaseCost:        req.PurchaseCost,
		ProjectedSalesPrice: req.ProjectedSalesPrice,
	}

	if err := h.animals.Insert(c.Request.Context(), &animal); err != nil {
		if errors.Is(err, mongodb.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "tag already in use"})
			return
		}
		h.logger.Error("failed creating animal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create animal"})
		return
	}

	h.counts.Invalidate(animalCountKey)
	c.JSON(http.StatusCreated, animal)
}

// Get returns one animal by id.
func (h *AnimalHandler) Get(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid animal id"})
		return
	}

	animal, err := h.animals.GetByID(c.Request.Context(), id)
	if errors.Is(err, mongodb.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "animal not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed fetching animal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch animal"})
		return
	}

	c.JSON(http.StatusOK, animal)
}

// Archive retires an animal. Animals are never deleted.
func (h *AnimalHandler) Archive(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid animal id"})
		return
	}

	if err := h.animals.Archive(c.Request.Context(), id); err != nil {
		if errors.Is(err, mongodb.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "animal not found"})
			return
		}
		h.logger.Error("failed archiving animal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to archive animal"})
		return
	}

	c.Status(http.StatusNoContent)
}
