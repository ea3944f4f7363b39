package api

import (
	"github.com/gin-gonic/gin"

	"github.com/horizonml/horizon-go/internal/api/handlers"
)

// SetupRoutes registers the HTTP surface on the router.
func SetupRoutes(router *gin.Engine, prediction *handlers.PredictionHandler, health *handlers.HealthHandler) {
	router.GET("/health", health.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/predict", prediction.CreatePrediction)
		v1.GET("/predict/types", prediction.GetPredictionTypes)
	}
}
