package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/horizonml/horizon-go/internal/config"
	"github.com/horizonml/horizon-go/internal/database"
	"github.com/horizonml/horizon-go/internal/models"
	"github.com/horizonml/horizon-go/internal/services"
)

// PredictionHandler serves forecast requests, with a short-lived Redis cache
// in front of the engine. Identical inputs produce identical forecasts, so
// caching whole responses is safe.
type PredictionHandler struct {
	engine   *services.PredictionEngine
	redis    *database.RedisClient
	cacheTTL time.Duration
	forecast config.ForecastConfig
	logger   *logrus.Logger
}

// NewPredictionHandler creates the prediction handler. redis may be nil; the
// handler then skips caching entirely.
func NewPredictionHandler(engine *services.PredictionEngine, redis *database.RedisClient, cfg config.ForecastConfig, logger *logrus.Logger) *PredictionHandler {
	return &PredictionHandler{
		engine:   engine,
		redis:    redis,
		cacheTTL: cfg.CacheTTLDuration(),
		forecast: cfg,
		logger:   logger,
	}
}

// CreatePrediction handles POST /api/v1/predict.
func (h *PredictionHandler) CreatePrediction(c *gin.Context) {
	var req models.ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := req.Validate(h.forecast.DefaultHorizon, h.forecast.MaxHorizon); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cacheKey := fmt.Sprintf("forecast:%s:%s:%d", req.Domain, req.EntityID, req.TimeHorizon)
	if cached, ok := h.getCached(c.Request.Context(), cacheKey); ok {
		c.Data(http.StatusOK, "application/json", cached)
		return
	}

	response, err := h.engine.GeneratePrediction(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnknownDomain):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, models.ErrDataSourceUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	h.setCached(c.Request.Context(), cacheKey, response)
	c.JSON(http.StatusOK, response)
}

// GetPredictionTypes handles GET /api/v1/predict/types.
func (h *PredictionHandler) GetPredictionTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"prediction_types": []models.DomainInfo{
			{
				Type:        string(models.DomainInventory),
				Name:        "Inventory Forecasting",
				Description: "Predict product demand and inventory needs",
				Entities:    []string{"SKU001", "SKU002", "SKU003", "SKU004", "SKU005"},
			},
			{
				Type:        string(models.DomainBudget),
				Name:        "Budget Analysis",
				Description: "Forecast department spending and budget variance",
				Entities:    []string{"Marketing", "Engineering", "Operations", "HR"},
			},
			{
				Type:        string(models.DomainResource),
				Name:        "Resource Planning",
				Description: "Predict team utilization and capacity needs",
				Entities:    []string{"Engineering", "Sales", "Marketing", "Operations"},
			},
			{
				Type:        string(models.DomainSales),
				Name:        "Sales Forecasting",
				Description: "Forecast revenue and sales trends",
				Entities:    []string{"overall"},
			},
		},
	})
}

func (h *PredictionHandler) getCached(ctx context.Context, key string) ([]byte, bool) {
	if h.redis == nil {
		return nil, false
	}
	cached, err := h.redis.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.WithError(err).Warn("Forecast cache read failed")
		}
		return nil, false
	}
	return []byte(cached), true
}

func (h *PredictionHandler) setCached(ctx context.Context, key string, response *models.ForecastResponse) {
	if h.redis == nil {
		return
	}
	data, err := json.Marshal(response)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to marshal forecast for caching")
		return
	}
	if err := h.redis.Set(ctx, key, data, h.cacheTTL); err != nil {
		h.logger.WithError(err).Warn("Forecast cache write failed")
	}
}
