package services

import (
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"gonum.org/v1/gonum/stat"

	"github.com/horizonml/horizon-go/internal/models"
)

// warmupRows is how many leading series rows the lag-7 feature consumes.
const warmupRows = 7

// FeatureBuilder expands a canonical series into a model-ready feature table:
// calendar features, short/long lags, and trailing rolling statistics.
type FeatureBuilder struct{}

// NewFeatureBuilder creates a new feature builder.
func NewFeatureBuilder() *FeatureBuilder {
	return &FeatureBuilder{}
}

// BuildFeatures produces one feature row per series date that survives the
// lag warm-up. A series shorter than the warm-up yields an empty table; the
// forecaster reads that as the signal to use its fallback path.
func (b *FeatureBuilder) BuildFeatures(domain models.Domain, series models.Series) models.FeatureTable {
	profile, err := profileFor(domain)
	if err != nil {
		return models.FeatureTable{}
	}
	if len(series) <= warmupRows {
		return models.FeatureTable{}
	}

	values := series.Values()
	sma7 := rollingMean7(values)

	usable := len(series) - warmupRows
	table := models.FeatureTable{
		Dates:   make([]time.Time, 0, usable),
		Rows:    make([]models.FeatureRow, 0, usable),
		Targets: make([]float64, 0, usable),
	}

	for i := warmupRows; i < len(series); i++ {
		row := calendarFeatures(profile, series[i].Date)
		row[profile.valueName+"_lag_1"] = values[i-1]
		row[profile.valueName+"_lag_7"] = values[i-7]
		row[profile.valueName+"_ma_7"] = sma7[i-6]
		row[profile.valueName+"_ma_30"] = trailingMean(values, i, 30)
		if profile.withRollingStd {
			row[profile.valueName+"_std_7"] = trailingStd(values, i, 7)
		}

		table.Dates = append(table.Dates, series[i].Date)
		table.Rows = append(table.Rows, row)
		table.Targets = append(table.Targets, values[i])
	}

	return table
}

// calendarFeatures derives the date-based columns. These never need warm-up.
func calendarFeatures(profile domainProfile, date time.Time) models.FeatureRow {
	_, isoWeek := date.ISOWeek()
	row := models.FeatureRow{
		"day_of_year":  float64(date.YearDay()),
		"month":        float64(date.Month()),
		"week_of_year": float64(isoWeek),
		"quarter":      float64((int(date.Month())-1)/3 + 1),
		"day_of_week":  float64(date.Weekday()),
	}
	if profile.withDayOfMonth {
		row["day_of_month"] = float64(date.Day())
	}
	return row
}

// rollingMean7 computes full-window 7-day trailing means. Since the feature
// table only keeps rows past the 7-row warm-up, every kept row has a complete
// window: index i maps to sma[i-6].
func rollingMean7(values []float64) []float64 {
	sma := trend.NewSmaWithPeriod[float64](7)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
}

// trailingMean averages the window of up to `window` values ending at index
// end, inclusive. Shorter windows are permitted at the start of the series.
func trailingMean(values []float64, end, window int) float64 {
	start := end - window + 1
	if start < 0 {
		start = 0
	}
	return stat.Mean(values[start:end+1], nil)
}

// trailingStd is the sample standard deviation of the window ending at index
// end, inclusive. Windows with fewer than two values report 0.
func trailingStd(values []float64, end, window int) float64 {
	start := end - window + 1
	if start < 0 {
		start = 0
	}
	if end-start < 1 {
		return 0
	}
	return stat.StdDev(values[start:end+1], nil)
}
