package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizonml/horizon-go/internal/config"
	"github.com/horizonml/horizon-go/internal/models"
)

type enrichmentBackend struct {
	authCalls       atomic.Int32
	completionCalls atomic.Int32

	authStatus       int
	completionStatus int
	completionText   string
	delay            time.Duration
}

func (b *enrichmentBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/user_token/", func(w http.ResponseWriter, r *http.Request) {
		b.authCalls.Add(1)
		if b.authStatus != 0 && b.authStatus != http.StatusOK {
			w.WriteHeader(b.authStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "test-token"})
	})
	mux.HandleFunc("/completion", func(w http.ResponseWriter, r *http.Request) {
		b.completionCalls.Add(1)
		if b.delay > 0 {
			time.Sleep(b.delay)
		}
		if b.completionStatus != 0 && b.completionStatus != http.StatusOK {
			w.WriteHeader(b.completionStatus)
			return
		}
		resp := map[string]any{
			"completion": map[string]any{
				"choices": []map[string]any{
					{"message": map[string]string{"content": b.completionText}},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func enrichmentConfig(url string) config.EnrichmentConfig {
	return config.EnrichmentConfig{
		Enabled:    true,
		AuthURL:    url,
		BaseURL:    url,
		APIKey:     "test-key",
		CustomerID: "customer",
		UserID:     "user",
		Timeout:    "5s",
	}
}

func sampleForecast() models.ForecastResult {
	return models.ForecastResult{
		Predictions: []models.PredictionPoint{
			{Date: day(1), PredictedValue: 100, Confidence: 0.8},
			{Date: day(2), PredictedValue: 110, Confidence: 0.79},
		},
		ModelUsed:  models.ModelLinearRegression,
		DataPoints: 50,
	}
}

func TestEnrichmentClient_Success(t *testing.T) {
	backend := &enrichmentBackend{
		completionText: "1. Increase safety stock for this item ahead of the demand rise.\n" +
			"2. Negotiate volume pricing with the primary supplier now.\n" +
			"Key recommendations:\n" +
			"- Review reorder points weekly during the growth period.",
	}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	client := NewEnrichmentClient(enrichmentConfig(server.URL), quietLogger())
	insights, err := client.Enrich(context.Background(), sampleForecast(), models.DomainInventory, "SKU001")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"Increase safety stock for this item ahead of the demand rise.",
		"Negotiate volume pricing with the primary supplier now.",
		"Review reorder points weekly during the growth period.",
	}, insights)
}

func TestEnrichmentClient_TokenCachedAcrossCalls(t *testing.T) {
	backend := &enrichmentBackend{
		completionText: "Keep monitoring the weekly demand signal for this item.",
	}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	client := NewEnrichmentClient(enrichmentConfig(server.URL), quietLogger())
	_, err := client.Enrich(context.Background(), sampleForecast(), models.DomainInventory, "SKU001")
	require.NoError(t, err)
	_, err = client.Enrich(context.Background(), sampleForecast(), models.DomainInventory, "SKU001")
	require.NoError(t, err)

	assert.Equal(t, int32(1), backend.authCalls.Load())
	assert.Equal(t, int32(2), backend.completionCalls.Load())
}

func TestEnrichmentClient_UnauthorizedClearsToken(t *testing.T) {
	backend := &enrichmentBackend{completionStatus: http.StatusUnauthorized}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	client := NewEnrichmentClient(enrichmentConfig(server.URL), quietLogger())
	_, err := client.Enrich(context.Background(), sampleForecast(), models.DomainInventory, "SKU001")
	require.Error(t, err)

	// The next call has to re-authenticate.
	_, err = client.Enrich(context.Background(), sampleForecast(), models.DomainInventory, "SKU001")
	require.Error(t, err)
	assert.Equal(t, int32(2), backend.authCalls.Load())
}

func TestEnrichmentClient_AuthFailure(t *testing.T) {
	backend := &enrichmentBackend{authStatus: http.StatusForbidden}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	client := NewEnrichmentClient(enrichmentConfig(server.URL), quietLogger())
	_, err := client.Enrich(context.Background(), sampleForecast(), models.DomainInventory, "SKU001")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrichment auth")
	assert.Equal(t, int32(0), backend.completionCalls.Load())
}

func TestEnrichmentClient_ContextTimeout(t *testing.T) {
	backend := &enrichmentBackend{
		delay:          200 * time.Millisecond,
		completionText: "Keep monitoring the weekly demand signal for this item.",
	}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	client := NewEnrichmentClient(enrichmentConfig(server.URL), quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Enrich(ctx, sampleForecast(), models.DomainInventory, "SKU001")
	require.Error(t, err)
}

func TestEnrichmentClient_Disabled(t *testing.T) {
	cfg := enrichmentConfig("http://localhost:0")
	cfg.Enabled = false

	client := NewEnrichmentClient(cfg, quietLogger())
	_, err := client.Enrich(context.Background(), sampleForecast(), models.DomainInventory, "SKU001")
	require.Error(t, err)
}

func TestEnrichmentClient_EmptyCompletionIsError(t *testing.T) {
	backend := &enrichmentBackend{completionText: "Short.\nAlso short:\n"}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	client := NewEnrichmentClient(enrichmentConfig(server.URL), quietLogger())
	_, err := client.Enrich(context.Background(), sampleForecast(), models.DomainInventory, "SKU001")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable insights")
}

func TestParseInsightLines(t *testing.T) {
	content := "Here are the insights:\n" +
		"1. First actionable recommendation about inventory levels.\n" +
		"- Second recommendation regarding supplier lead times here.\n" +
		"• Third recommendation about seasonal demand planning.\n" +
		"* Fourth recommendation on replenishment cadence changes.\n" +
		"5. Fifth recommendation covering warehouse capacity checks.\n" +
		"- Sixth recommendation that should be dropped by the cap rule.\n"

	insights := parseInsightLines(content)
	require.Len(t, insights, 5)
	assert.Equal(t, "First actionable recommendation about inventory levels.", insights[0])
	assert.Equal(t, "Fifth recommendation covering warehouse capacity checks.", insights[4])

	assert.Empty(t, parseInsightLines(""))
	assert.Empty(t, parseInsightLines("Too short\nHeader line ending with colon:"))
}
