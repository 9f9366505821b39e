package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cimara/stockledger/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(
	withdrawals *handlers.WithdrawalHandler,
	inventory *handlers.InventoryHandler,
	reports *handlers.ReportHandler,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api")
	{
		api.GET("/stores/:store/equipment", inventory.List)
		api.POST("/stores/:store/equipment", inventory.Add)
		api.PUT("/stores/:store/equipment/:id", inventory.Update)

		api.GET("/stores/:store/withdrawals", withdrawals.List)
		api.POST("/stores/:store/withdrawals", withdrawals.Create)
		api.POST("/warehouse/transfers", withdrawals.Transfer)

		api.GET("/reports", reports.Query)
		api.GET("/alerts/low-stock", reports.LowStock)
	}

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
