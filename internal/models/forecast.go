package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Domain identifies which business metric is being forecast.
type Domain string

const (
	DomainInventory Domain = "inventory"
	DomainBudget    Domain = "budget"
	DomainResource  Domain = "resource"
	DomainSales     Domain = "sales"
)

// ParseDomain validates a raw domain tag.
func ParseDomain(s string) (Domain, error) {
	switch Domain(s) {
	case DomainInventory, DomainBudget, DomainResource, DomainSales:
		return Domain(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDomain, s)
	}
}

// InventoryTransaction represents a single stock movement from the ERP service.
// Quantity is positive for purchases/restocks and negative for sales when the
// source reports signed quantities; otherwise TransactionType carries the sign.
type InventoryTransaction struct {
	Date            Date    `json:"date"`
	Quantity        float64 `json:"quantity"`
	TransactionType string  `json:"transaction_type,omitempty"`
}

// ExpenseEntry represents one expense line item.
type ExpenseEntry struct {
	Date     Date            `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category,omitempty"`
}

// UtilizationEntry represents one day of team capacity usage.
type UtilizationEntry struct {
	Date           Date    `json:"date"`
	UtilizedHours  float64 `json:"utilized_hours"`
	AvailableHours float64 `json:"available_hours"`
	Department     string  `json:"department,omitempty"`
}

// SalesOrder represents one completed order.
type SalesOrder struct {
	Date        Date            `json:"date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status,omitempty"`
}

// RawRecords carries the domain-shaped history returned by a record source.
// Exactly one slice is populated, matching the requested domain.
type RawRecords struct {
	Inventory   []InventoryTransaction `json:"inventory,omitempty"`
	Expenses    []ExpenseEntry         `json:"expenses,omitempty"`
	Utilization []UtilizationEntry     `json:"utilization,omitempty"`
	Orders      []SalesOrder           `json:"orders,omitempty"`
}

// SeriesPoint is one day of the canonical, domain-normalized value series.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a canonical time series: strictly increasing dates, no duplicates.
// An empty series is valid and routes the forecaster to its fallback path.
type Series []SeriesPoint

// Last returns the final point of the series.
func (s Series) Last() SeriesPoint {
	return s[len(s)-1]
}

// Values extracts the value column.
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// FeatureRow maps feature names to values for one date. Every row built for a
// domain carries the same fixed name set; missing numeric inputs are zero.
type FeatureRow map[string]float64

// FeatureTable is the model-ready view of a series after warm-up rows are
// dropped. Dates, Rows and Targets are aligned one-to-one.
type FeatureTable struct {
	Dates   []time.Time
	Rows    []FeatureRow
	Targets []float64
}

// Len returns the number of usable feature rows.
func (t FeatureTable) Len() int {
	return len(t.Rows)
}

// Model identifiers reported in forecast metadata.
const (
	ModelLinearRegression = "linear_regression"
	ModelTrendFallback    = "trend_fallback"
)

// PredictionPoint is one forecast day. Immutable once produced.
type PredictionPoint struct {
	Date           time.Time `json:"date"`
	PredictedValue float64   `json:"predicted_value"`
	Confidence     float64   `json:"confidence"`
}

// ForecastResult is the complete output of one forecast call.
type ForecastResult struct {
	Predictions []PredictionPoint `json:"predictions"`
	ModelUsed   string            `json:"model_used"`
	DataPoints  int               `json:"data_points"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// AverageConfidence returns the mean confidence across all predictions,
// or 0 for an empty result.
func (r ForecastResult) AverageConfidence() float64 {
	if len(r.Predictions) == 0 {
		return 0
	}
	var sum float64
	for _, p := range r.Predictions {
		sum += p.Confidence
	}
	return sum / float64(len(r.Predictions))
}
