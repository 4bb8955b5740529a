package http

import (
	"github.com/gin-gonic/gin"
	"github.com/smartration/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(NewIPRateLimiter(cfg.RateLimit.PerIP)))
	{
		receipts := v1.Group("/receipts")
		{
			receipts.POST("/scan", handler.ScanReceipt)
			receipts.POST("/parse", handler.ParseReceipt)
			receipts.POST("/export", handler.ExportReceipt)
		}

		v1.POST("/meal-plans", handler.GenerateMealPlan)
		v1.POST("/shopping-lists", handler.GenerateShoppingList)
	}

	return router
}
