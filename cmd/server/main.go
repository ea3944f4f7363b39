package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/horizonml/horizon-go/internal/api"
	"github.com/horizonml/horizon-go/internal/api/handlers"
	"github.com/horizonml/horizon-go/internal/config"
	"github.com/horizonml/horizon-go/internal/database"
	"github.com/horizonml/horizon-go/internal/erp"
	"github.com/horizonml/horizon-go/internal/logging"
	"github.com/horizonml/horizon-go/internal/services"
	"github.com/horizonml/horizon-go/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	if err := telemetry.Init(cfg.Telemetry); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("Failed to shutdown telemetry")
		}
	}()

	// Redis is optional: without it the service just skips response caching.
	var redisClient *database.RedisClient
	if rc, err := database.NewRedisConnection(cfg.Redis); err != nil {
		logger.WithError(err).Warn("Redis unavailable, forecast caching disabled")
	} else {
		redisClient = rc
		defer redisClient.Close()
	}

	erpClient := erp.NewClient(cfg.ERP, logger)

	// The record source is the ERP HTTP API by default; with a database
	// configured the engine reads the ERP schema directly instead.
	var source services.RecordSource = erpClient
	var db *database.PostgresDB
	if cfg.Database.Host != "" && cfg.Database.DBName != "" {
		if pg, err := database.NewPostgresConnection(cfg.Database); err != nil {
			logger.WithError(err).Warn("Postgres unavailable, using ERP HTTP record source")
		} else {
			db = pg
			defer db.Close()
			source = database.NewHistoryRepository(db.Pool)
		}
	}

	var enricher services.InsightEnricher
	if cfg.Enrichment.Enabled {
		enricher = services.NewEnrichmentClient(cfg.Enrichment, logger)
	}

	engine := services.NewPredictionEngine(cfg, source, enricher, logger)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))

	predictionHandler := handlers.NewPredictionHandler(engine, redisClient, cfg.Forecast, logger)
	healthHandler := handlers.NewHealthHandler(db, redisClient, erpClient)
	api.SetupRoutes(router, predictionHandler, healthHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
