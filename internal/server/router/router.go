package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/server/handlers"
)

// Handlers groups the HTTP adapters wired into the engine.
type Handlers struct {
	Animals   *handlers.AnimalHandler
	Records   *handlers.RecordHandler
	Inventory *handlers.InventoryHandler
	Finance   *handlers.FinanceHandler
	Imports   *handlers.ImportHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/animals", h.Animals.List)
		v1.POST("/animals", h.Animals.Create)
		v1.GET("/animals/:id", h.Animals.Get)
		v1.POST("/animals/:id/archive", h.Animals.Archive)

		v1.POST("/health-records", h.Records.CreateHealthRecord)
		v1.POST("/mortality-records", h.Records.CreateMortalityRecord)
		v1.POST("/inventory-loss-records", h.Records.CreateInventoryLossRecord)
		v1.POST("/weight-records", h.Records.CreateWeightRecord)

		v1.GET("/inventory", h.Inventory.List)
		v1.POST("/inventory", h.Inventory.Create)
		v1.POST("/inventory/:id/restock", h.Inventory.Restock)

		v1.GET("/finance", h.Finance.List)
		v1.POST("/finance", h.Finance.Create)
		v1.DELETE("/finance/:id", h.Finance.Delete)

		v1.POST("/imports", h.Imports.ImportCSV)
		v1.POST("/imports/spreadsheet", h.Imports.ImportSpreadsheet)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
