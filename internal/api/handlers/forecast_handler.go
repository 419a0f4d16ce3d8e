// backend-go/internal/api/handlers/forecast_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stockpilot/backend-go/internal/cache"
	"github.com/stockpilot/backend-go/internal/service"
)

type ForecastHandler struct {
	forecasts *service.ForecastService
}

func NewForecastHandler(forecasts *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{forecasts: forecasts}
}

// GetForecast generates (or serves the memoized) demand forecast for one
// product.
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
		return
	}

	opts := cache.ForecastOptions{
		HorizonDays:                days,
		IncludeConfidenceIntervals: c.DefaultQuery("include_confidence", "true") != "false",
		IncludeSeasonality:         c.DefaultQuery("include_seasonality", "true") != "false",
		IncludeExternalFactors:     c.Query("include_factors") == "true",
	}

	forecast, err := h.forecasts.Generate(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, forecast)
}

// RecomputePattern rebuilds the persisted demand pattern for one product.
func (h *ForecastHandler) RecomputePattern(c *gin.Context) {
	pattern, err := h.forecasts.RecomputePattern(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pattern)
}
