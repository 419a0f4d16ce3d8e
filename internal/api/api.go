// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stockpilot/backend-go/internal/analysis"
	"github.com/stockpilot/backend-go/internal/api/handlers"
	"github.com/stockpilot/backend-go/internal/api/middleware"
	"github.com/stockpilot/backend-go/internal/service"
)

type Services struct {
	ReorderService  *service.ReorderService
	ForecastService *service.ForecastService
	Orchestrator    *analysis.Orchestrator
	Exporter        *analysis.Exporter
}

// HealthCheck reports readiness of a backing dependency.
type HealthCheck func() error

func NewRouter(services *Services, allowedOrigins []string, health HealthCheck) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
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
		if health != nil {
			if err := health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.ReorderService != nil && services.Orchestrator != nil {
			reorderHandler := handlers.NewReorderHandler(services.ReorderService, services.Orchestrator, services.Exporter)
			reorderGroup := apiGroup.Group("/reorder")
			{
				reorderGroup.POST("/analysis", reorderHandler.StartAnalysis)
				reorderGroup.GET("/jobs/:id", reorderHandler.GetJob)

				reorderGroup.GET("/suggestions", reorderHandler.GetSuggestions)
				reorderGroup.GET("/suggestions/:id", reorderHandler.GetSuggestion)
				reorderGroup.POST("/suggestions/:id/process", reorderHandler.ProcessSuggestion)
				reorderGroup.GET("/history/:product_id", reorderHandler.GetHistory)
				reorderGroup.GET("/exports", reorderHandler.ListExports)

				reorderGroup.GET("/policies", reorderHandler.ListPolicies)
				reorderGroup.POST("/policies", reorderHandler.CreatePolicy)
				reorderGroup.PUT("/policies/:id", reorderHandler.UpdatePolicy)

				reorderGroup.GET("/settings", reorderHandler.GetSettings)
				reorderGroup.PUT("/settings", reorderHandler.UpdateSettings)
			}
		}

		if services.ForecastService != nil {
			forecastHandler := handlers.NewForecastHandler(services.ForecastService)
			productGroup := apiGroup.Group("/products")
			{
				productGroup.GET("/:id/forecast", forecastHandler.GetForecast)
				productGroup.POST("/:id/pattern/recompute", forecastHandler.RecomputePattern)
			}
		}
	}

	return router
}

// normalizeAllowedOrigins trims configured origins and detects the wildcard.
func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	normalized := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			return nil, true
		}
		normalized = append(normalized, strings.TrimSuffix(origin, "/"))
	}
	return normalized, false
}
