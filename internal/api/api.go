package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/inventory-queue/internal/api/handlers"
	"github.com/andresuchdata/inventory-queue/internal/api/middleware"
	"github.com/andresuchdata/inventory-queue/internal/metrics"
)

type Services struct {
	InventoryService handlers.InventoryService
	Metrics          *metrics.Metrics
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:8501"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services == nil {
		return router
	}

	if services.Metrics != nil {
		router.Use(middleware.Metrics(services.Metrics))
		router.GET("/metrics", gin.WrapH(services.Metrics.Handler()))
	}

	apiGroup := router.Group("/api/v1")

	if services.InventoryService != nil {
		inventoryHandler := handlers.NewInventoryHandler(services.InventoryService)
		inventoryGroup := apiGroup.Group("/inventory")
		{
			inventoryGroup.GET("", inventoryHandler.GetInventory)
			inventoryGroup.POST("/replay", inventoryHandler.ReplayWithOrders)
			inventoryGroup.POST("/orders/check", inventoryHandler.CheckOrder)
		}

		apiGroup.GET("/restock", inventoryHandler.GetRestock)
		apiGroup.GET("/stations", inventoryHandler.GetStations)
		apiGroup.GET("/dashboard", inventoryHandler.GetDashboard)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
