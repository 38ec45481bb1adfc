package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/service/importer"
)

// ImportHandler serves the bulk import endpoints.
type ImportHandler struct {
	importerSvc *importer.Service
	maxBytes    int64
	logger      *zap.Logger
}

// NewImportHandler constructs the HTTP handler adapter.
func NewImportHandler(importerSvc *importer.Service, maxBytes int64, logger *zap.Logger) *ImportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportHandler{importerSvc: importerSvc, maxBytes: maxBytes, logger: logger}
}

// ImportCSV ingests a delimited-text block into the target category named
// by the category query parameter.
func (h *ImportHandler) ImportCSV(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category query parameter is required"})
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	rows, err := importer.ParseCSV(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload exceeds import size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid csv payload"})
		return
	}

	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no data rows in payload"})
		return
	}

	result, err := h.importerSvc.Reconcile(c.Request.Context(), category, rows)
	if err != nil {
		h.logger.Error("import reconciliation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ImportSpreadsheet pulls every registered sheet from the configured
// Google spreadsheet and reconciles each one.
func (h *ImportHandler) ImportSpreadsheet(c *gin.Context) {
	result, err := h.importerSvc.ReconcileSpreadsheet(c.Request.Context())
	if errors.Is(err, importer.ErrSheetsDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "spreadsheet import is not configured"})
		return
	}
	if err != nil {
		h.logger.Error("spreadsheet import failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "spreadsheet import failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
