package models

import (
	"fmt"
	"strings"
	"time"
)

// ForecastRequest is the body of POST /api/v1/predict.
type ForecastRequest struct {
	Domain      string `json:"domain" binding:"required"`
	EntityID    string `json:"entity_id" binding:"required"`
	TimeHorizon int    `json:"time_horizon"`
}

// Validate normalizes and checks request fields. A zero horizon takes the
// server default before validation.
func (r *ForecastRequest) Validate(defaultHorizon, maxHorizon int) error {
	r.EntityID = strings.TrimSpace(r.EntityID)
	if r.EntityID == "" {
		return fmt.Errorf("entity_id cannot be empty")
	}
	if r.TimeHorizon == 0 {
		r.TimeHorizon = defaultHorizon
	}
	if r.TimeHorizon < 1 || r.TimeHorizon > maxHorizon {
		return fmt.Errorf("time_horizon must be between 1 and %d, got %d", maxHorizon, r.TimeHorizon)
	}
	if _, err := ParseDomain(r.Domain); err != nil {
		return err
	}
	return nil
}

// ForecastMetadata describes how a forecast was produced.
type ForecastMetadata struct {
	ModelUsed     string    `json:"model_used"`
	DataPoints    int       `json:"data_points"`
	ConfidenceAvg float64   `json:"confidence_avg"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// ForecastResponse is the full response of POST /api/v1/predict.
type ForecastResponse struct {
	Domain      string            `json:"domain"`
	EntityID    string            `json:"entity_id"`
	TimeHorizon int               `json:"time_horizon"`
	Predictions []PredictionPoint `json:"predictions"`
	Insights    []string          `json:"insights"`
	Metadata    ForecastMetadata  `json:"metadata"`
}

// DomainInfo describes one forecastable domain for the catalog endpoint.
type DomainInfo struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Entities    []string `json:"entities"`
}
