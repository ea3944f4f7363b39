package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/horizonml/horizon-go/internal/config"
	"github.com/horizonml/horizon-go/internal/logging"
	"github.com/horizonml/horizon-go/internal/models"
)

// RecordSource supplies raw historical records for one domain and entity.
// Implemented by the ERP HTTP client and the Postgres history repository.
type RecordSource interface {
	FetchRecords(ctx context.Context, domain models.Domain, entityID string, days int) (*models.RawRecords, error)
}

// PredictionEngine runs the full pipeline: fetch, normalize, build features,
// forecast, score, and derive insights. Each request is processed
// independently with a fresh model fit, so concurrent calls share no mutable
// state.
type PredictionEngine struct {
	source     RecordSource
	normalizer *Normalizer
	features   *FeatureBuilder
	forecaster *Forecaster
	insights   *InsightGenerator
	enricher   InsightEnricher

	historyDays       int
	enrichmentTimeout time.Duration
	logger            *logrus.Logger
}

// NewPredictionEngine wires the pipeline stages. enricher may be nil when AI
// enrichment is not configured.
func NewPredictionEngine(cfg *config.Config, source RecordSource, enricher InsightEnricher, logger *logrus.Logger) *PredictionEngine {
	historyDays := cfg.ERP.HistoryDays
	if historyDays <= 0 {
		historyDays = 180
	}

	return &PredictionEngine{
		source:            source,
		normalizer:        NewNormalizer(),
		features:          NewFeatureBuilder(),
		forecaster:        NewForecaster(cfg.Forecast, logger),
		insights:          NewInsightGenerator(),
		enricher:          enricher,
		historyDays:       historyDays,
		enrichmentTimeout: cfg.Enrichment.TimeoutDuration(),
		logger:            logger,
	}
}

// GeneratePrediction produces the complete forecast response for one request.
// Only ErrUnknownDomain and ErrDataSourceUnavailable escape; model and
// enrichment failures degrade to their documented fallbacks.
func (e *PredictionEngine) GeneratePrediction(ctx context.Context, req models.ForecastRequest) (*models.ForecastResponse, error) {
	domain, err := models.ParseDomain(req.Domain)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	log := logging.WithRequest(e.logger, requestID, req.Domain, req.EntityID)
	log.WithField("time_horizon", req.TimeHorizon).Info("Starting prediction")

	records, err := e.source.FetchRecords(ctx, domain, req.EntityID, e.historyDays)
	if err != nil {
		log.WithError(err).Error("Record fetch failed")
		return nil, err
	}

	series, err := e.normalizer.Normalize(domain, records)
	if err != nil {
		return nil, err
	}

	table := e.features.BuildFeatures(domain, series)
	result := e.forecaster.Forecast(domain, series, table, req.TimeHorizon)
	insights := e.insights.GenerateInsights(result, domain)
	insights = e.maybeEnrich(ctx, log, result, domain, req.EntityID, insights)

	log.WithFields(logrus.Fields{
		"model_used":  result.ModelUsed,
		"data_points": result.DataPoints,
	}).Info("Prediction complete")

	return &models.ForecastResponse{
		Domain:      string(domain),
		EntityID:    req.EntityID,
		TimeHorizon: req.TimeHorizon,
		Predictions: result.Predictions,
		Insights:    insights,
		Metadata: models.ForecastMetadata{
			ModelUsed:     result.ModelUsed,
			DataPoints:    result.DataPoints,
			ConfidenceAvg: round2(result.AverageConfidence()),
			GeneratedAt:   result.GeneratedAt,
		},
	}, nil
}

// maybeEnrich swaps in AI-generated insights when the enricher answers in
// time. The bounded wait guarantees a slow or hung enrichment service never
// blocks the rule-based path.
func (e *PredictionEngine) maybeEnrich(ctx context.Context, log *logrus.Entry, result models.ForecastResult, domain models.Domain, entityID string, ruleBased []string) []string {
	if e.enricher == nil {
		return ruleBased
	}

	enrichCtx, cancel := context.WithTimeout(ctx, e.enrichmentTimeout)
	defer cancel()

	enriched, err := e.enricher.Enrich(enrichCtx, result, domain, entityID)
	if err != nil || len(enriched) == 0 {
		if err != nil {
			log.WithError(err).Warn("AI enrichment unavailable, keeping rule-based insights")
		}
		return ruleBased
	}
	return enriched
}
