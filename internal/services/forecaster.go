package services

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/horizonml/horizon-go/internal/config"
	"github.com/horizonml/horizon-go/internal/models"
)

// Confidence bounds shared by both forecasting modes.
const (
	minConfidence      = 0.5
	maxConfidence      = 0.95
	fallbackConfidence = 0.6
)

// fallbackSeedValue anchors a forecast when there is no history at all.
const fallbackSeedValue = 100.0

// Forecaster projects a canonical series time_horizon days forward. It picks
// one of two mutually exclusive modes per call: a linear regression over the
// feature table when enough rows exist, or an endpoint-to-endpoint trend line
// otherwise. A failed fit silently reroutes to the trend line, so callers
// never see a training failure.
type Forecaster struct {
	minTrainingRows int
	baseConfidence  float64
	confidenceDecay float64
	logger          *logrus.Logger
	// now is the anchor clock for empty-history forecasts; overridable in tests.
	now func() time.Time
}

// NewForecaster creates a forecaster with the configured engine knobs.
func NewForecaster(cfg config.ForecastConfig, logger *logrus.Logger) *Forecaster {
	minRows := cfg.MinTrainingRows
	if minRows < 2 {
		minRows = 10
	}
	base := cfg.BaseConfidence
	if base <= 0 {
		base = 0.8
	}
	decay := cfg.ConfidenceDecay
	if decay <= 0 {
		decay = 0.01
	}

	return &Forecaster{
		minTrainingRows: minRows,
		baseConfidence:  base,
		confidenceDecay: decay,
		logger:          logger,
		now:             time.Now,
	}
}

// Forecast produces exactly horizon predictions on consecutive calendar days
// starting the day after the last historical date.
func (f *Forecaster) Forecast(domain models.Domain, series models.Series, table models.FeatureTable, horizon int) models.ForecastResult {
	if table.Len() >= f.minTrainingRows {
		result, err := f.forecastTrained(domain, series, table, horizon)
		if err == nil {
			return result
		}
		f.logger.WithError(err).WithField("domain", domain).
			Warn("Model training failed, falling back to trend projection")
	}
	return f.forecastTrend(series, horizon)
}

// forecastTrained fits a fresh linear model and projects it one day at a
// time. Lag and rolling features for each future day are recomputed from the
// series extended with the predictions already generated in this loop, so
// day 8 reads day 1's prediction through its lag-7 column.
func (f *Forecaster) forecastTrained(domain models.Domain, series models.Series, table models.FeatureTable, horizon int) (models.ForecastResult, error) {
	profile, err := profileFor(domain)
	if err != nil {
		return models.ForecastResult{}, err
	}
	names := profile.featureNames()

	features := make([][]float64, table.Len())
	for i, row := range table.Rows {
		features[i] = rowVector(row, names)
	}

	model := NewLinearRegression()
	score, err := model.Fit(features, table.Targets)
	if err != nil {
		return models.ForecastResult{}, err
	}
	f.logger.WithFields(logrus.Fields{
		"domain": domain,
		"rows":   table.Len(),
		"score":  score,
	}).Info("Linear model trained")

	extended := series.Values()
	lastDate := series.Last().Date

	predictions := make([]models.PredictionPoint, 0, horizon)
	for offset := 1; offset <= horizon; offset++ {
		date := lastDate.AddDate(0, 0, offset)
		row := futureFeatureRow(profile, date, extended)

		value, err := model.Predict(rowVector(row, names))
		if err != nil {
			return models.ForecastResult{}, err
		}
		if value < 0 {
			value = 0
		}

		predictions = append(predictions, models.PredictionPoint{
			Date:           date,
			PredictedValue: round2(value),
			Confidence:     f.trainedConfidence(offset),
		})
		extended = append(extended, value)
	}

	return models.ForecastResult{
		Predictions: predictions,
		ModelUsed:   models.ModelLinearRegression,
		DataPoints:  table.Len(),
		GeneratedAt: f.now(),
	}, nil
}

// forecastTrend projects the average per-step trend between the series
// endpoints. With no history at all it anchors at "now" with a default
// last value; that is a documented degenerate-input guarantee, not a real
// forecast.
func (f *Forecaster) forecastTrend(series models.Series, horizon int) models.ForecastResult {
	lastValue := fallbackSeedValue
	lastDate := dateOnly(f.now())
	trendStep := 0.0

	if len(series) > 0 {
		lastValue = series.Last().Value
		lastDate = series.Last().Date
	}
	if len(series) > 1 {
		trendStep = (series.Last().Value - series[0].Value) / float64(len(series)-1)
	}

	predictions := make([]models.PredictionPoint, 0, horizon)
	for offset := 1; offset <= horizon; offset++ {
		value := lastValue + trendStep*float64(offset)
		if value < 0 {
			value = 0
		}
		predictions = append(predictions, models.PredictionPoint{
			Date:           lastDate.AddDate(0, 0, offset),
			PredictedValue: round2(value),
			Confidence:     fallbackConfidence,
		})
	}

	return models.ForecastResult{
		Predictions: predictions,
		ModelUsed:   models.ModelTrendFallback,
		DataPoints:  len(series),
		GeneratedAt: f.now(),
	}
}

// futureFeatureRow builds the feature row for a future date from the tail of
// the extended value history. Rolling windows end at the most recent known or
// predicted value; anything still unavailable is zero-filled.
func futureFeatureRow(profile domainProfile, date time.Time, extended []float64) models.FeatureRow {
	row := calendarFeatures(profile, date)
	n := len(extended)

	var lag1, lag7 float64
	if n >= 1 {
		lag1 = extended[n-1]
	}
	if n >= 7 {
		lag7 = extended[n-7]
	}
	row[profile.valueName+"_lag_1"] = lag1
	row[profile.valueName+"_lag_7"] = lag7

	if n > 0 {
		row[profile.valueName+"_ma_7"] = trailingMean(extended, n-1, 7)
		row[profile.valueName+"_ma_30"] = trailingMean(extended, n-1, 30)
	} else {
		row[profile.valueName+"_ma_7"] = 0
		row[profile.valueName+"_ma_30"] = 0
	}
	if profile.withRollingStd {
		if n > 1 {
			row[profile.valueName+"_std_7"] = trailingStd(extended, n-1, 7)
		} else {
			row[profile.valueName+"_std_7"] = 0
		}
	}

	return row
}

// rowVector flattens a feature row into the fixed column order.
func rowVector(row models.FeatureRow, names []string) []float64 {
	vector := make([]float64, len(names))
	for j, name := range names {
		vector[j] = row[name]
	}
	return vector
}

// trainedConfidence decays linearly with forecast distance and clamps to the
// allowed band, so confidence is non-increasing across one result.
func (f *Forecaster) trainedConfidence(offset int) float64 {
	confidence := f.baseConfidence - f.confidenceDecay*float64(offset)
	if confidence < minConfidence {
		confidence = minConfidence
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	return round2(confidence)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
