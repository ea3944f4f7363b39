package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizonml/horizon-go/internal/config"
	"github.com/horizonml/horizon-go/internal/models"
)

type fakeSource struct {
	records *models.RawRecords
	err     error

	calls      int
	lastDomain models.Domain
	lastEntity string
	lastDays   int
}

func (s *fakeSource) FetchRecords(ctx context.Context, domain models.Domain, entityID string, days int) (*models.RawRecords, error) {
	s.calls++
	s.lastDomain = domain
	s.lastEntity = entityID
	s.lastDays = days
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

type fakeEnricher struct {
	insights []string
	err      error
	calls    int
}

func (e *fakeEnricher) Enrich(ctx context.Context, result models.ForecastResult, domain models.Domain, entityID string) ([]string, error) {
	e.calls++
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a bounded context")
	}
	return e.insights, e.err
}

func engineConfig() *config.Config {
	return &config.Config{
		ERP:        config.ERPConfig{HistoryDays: 120},
		Enrichment: config.EnrichmentConfig{Timeout: "1s"},
		Forecast:   testForecastConfig(),
	}
}

func newEngine(source RecordSource, enricher InsightEnricher) *PredictionEngine {
	return NewPredictionEngine(engineConfig(), source, enricher, quietLogger())
}

func inventoryHistory(n int, base, step float64) *models.RawRecords {
	records := &models.RawRecords{}
	for i := 0; i < n; i++ {
		records.Inventory = append(records.Inventory, models.InventoryTransaction{
			Date:            models.NewDate(day(i)),
			Quantity:        base + step*float64(i),
			TransactionType: "purchase",
		})
	}
	return records
}

func expenseHistory(n int, base, step float64) *models.RawRecords {
	records := &models.RawRecords{}
	for i := 0; i < n; i++ {
		records.Expenses = append(records.Expenses, models.ExpenseEntry{
			Date:     models.NewDate(day(i)),
			Amount:   decimal.NewFromFloat(base + step*float64(i)),
			Category: "Marketing",
		})
	}
	return records
}

func orderHistory(n int, base, step float64) *models.RawRecords {
	records := &models.RawRecords{}
	for i := 0; i < n; i++ {
		records.Orders = append(records.Orders, models.SalesOrder{
			Date:        models.NewDate(day(i)),
			TotalAmount: decimal.NewFromFloat(base + step*float64(i)),
			Status:      "completed",
		})
	}
	return records
}

func TestEngine_StableInventory(t *testing.T) {
	source := &fakeSource{records: inventoryHistory(90, 500, 0)}
	engine := newEngine(source, nil)

	resp, err := engine.GeneratePrediction(context.Background(), models.ForecastRequest{
		Domain: "inventory", EntityID: "SKU001", TimeHorizon: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, "inventory", resp.Domain)
	assert.Equal(t, "SKU001", resp.EntityID)
	assert.Equal(t, 30, resp.TimeHorizon)
	require.Len(t, resp.Predictions, 30)
	assert.Contains(t, resp.Insights, "Demand expected to remain stable")

	assert.Equal(t, 1, source.calls)
	assert.Equal(t, models.DomainInventory, source.lastDomain)
	assert.Equal(t, "SKU001", source.lastEntity)
	assert.Equal(t, 120, source.lastDays)

	// Flat history keeps the forecast flat, whichever model produced it.
	for _, p := range resp.Predictions {
		assert.InDelta(t, 500, p.PredictedValue, 5)
	}
}

func TestEngine_DecliningInventory(t *testing.T) {
	source := &fakeSource{records: inventoryHistory(90, 300, -2)}
	engine := newEngine(source, nil)

	resp, err := engine.GeneratePrediction(context.Background(), models.ForecastRequest{
		Domain: "inventory", EntityID: "SKU003", TimeHorizon: 30,
	})

	require.NoError(t, err)
	require.NotEmpty(t, resp.Insights)
	assert.Contains(t, resp.Insights[0], "decrease in demand")
	assert.Contains(t, resp.Insights, "Consider reducing inventory to avoid overstocking")
	for _, p := range resp.Predictions {
		assert.GreaterOrEqual(t, p.PredictedValue, 0.0)
	}
}

func TestEngine_BudgetOverrunTrend(t *testing.T) {
	source := &fakeSource{records: expenseHistory(90, 100, 2)}
	engine := newEngine(source, nil)

	resp, err := engine.GeneratePrediction(context.Background(), models.ForecastRequest{
		Domain: "budget", EntityID: "Marketing", TimeHorizon: 30,
	})

	require.NoError(t, err)
	require.NotEmpty(t, resp.Insights)
	assert.Contains(t, resp.Insights[0], "Budget spending trending")
	assert.Contains(t, resp.Insights[0], "higher")
	assert.Contains(t, resp.Insights, "Review spending controls and budget allocation")
}

func TestEngine_RisingSalesRevenue(t *testing.T) {
	source := &fakeSource{records: orderHistory(90, 1000, 25)}
	engine := newEngine(source, nil)

	resp, err := engine.GeneratePrediction(context.Background(), models.ForecastRequest{
		Domain: "sales", EntityID: "all", TimeHorizon: 30,
	})

	require.NoError(t, err)
	require.Len(t, resp.Predictions, 30)

	// The lag and rolling-mean features pull the projection toward recent
	// window averages, so a steady linear climb carries forward flattened but
	// still rising.
	first := resp.Predictions[0].PredictedValue
	last := resp.Predictions[29].PredictedValue
	assert.Greater(t, last, first)

	require.NotEmpty(t, resp.Insights)
	assert.Contains(t, resp.Insights[0], "Sales revenue")
	assert.True(t, containsPrefix(resp.Insights, "Projected revenue for period: $"),
		"expected a projected revenue total, got %v", resp.Insights)
}

func TestEngine_ShortHistoryFallsBack(t *testing.T) {
	source := &fakeSource{records: inventoryHistory(12, 100, 5)}
	engine := newEngine(source, nil)

	resp, err := engine.GeneratePrediction(context.Background(), models.ForecastRequest{
		Domain: "inventory", EntityID: "SKU002", TimeHorizon: 14,
	})

	require.NoError(t, err)
	assert.Equal(t, models.ModelTrendFallback, resp.Metadata.ModelUsed)
	assert.Equal(t, 12, resp.Metadata.DataPoints)
	assert.Equal(t, 0.6, resp.Metadata.ConfidenceAvg)
	require.Len(t, resp.Predictions, 14)
	for _, p := range resp.Predictions {
		assert.Equal(t, 0.6, p.Confidence)
	}
}

func TestEngine_NoHistoryAtAll(t *testing.T) {
	source := &fakeSource{records: &models.RawRecords{}}
	engine := newEngine(source, nil)

	resp, err := engine.GeneratePrediction(context.Background(), models.ForecastRequest{
		Domain: "sales", EntityID: "all", TimeHorizon: 7,
	})

	require.NoError(t, err)
	assert.Equal(t, models.ModelTrendFallback, resp.Metadata.ModelUsed)
	assert.Equal(t, 0, resp.Metadata.DataPoints)
	require.Len(t, resp.Predictions, 7)
	for _, p := range resp.Predictions {
		assert.Equal(t, 100.0, p.PredictedValue)
		assert.Equal(t, 0.6, p.Confidence)
	}
	assert.NotEmpty(t, resp.Insights)
}

func TestEngine_UnknownDomain(t *testing.T) {
	source := &fakeSource{records: &models.RawRecords{}}
	engine := newEngine(source, nil)

	_, err := engine.GeneratePrediction(context.Background(), models.ForecastRequest{
		Domain: "weather", EntityID: "zone-1", TimeHorizon: 7,
	})

	require.ErrorIs(t, err, models.ErrUnknownDomain)
	assert.Equal(t, 0, source.calls, "unknown domain must not reach the record source")
}

func TestEngine_DataSourceErrorPassesThrough(t *testing.T) {
	source := &fakeSource{err: models.ErrDataSourceUnavailable}
	engine := newEngine(source, nil)

	_, err := engine.GeneratePrediction(context.Background(), models.ForecastRequest{
		Domain: "inventory", EntityID: "SKU001", TimeHorizon: 7,
	})

	require.ErrorIs(t, err, models.ErrDataSourceUnavailable)
}

func TestEngine_EnrichmentReplacesInsights(t *testing.T) {
	source := &fakeSource{records: inventoryHistory(90, 500, 0)}
	enricher := &fakeEnricher{insights: []string{"AI insight one", "AI insight two"}}
	engine := newEngine(source, enricher)

	resp, err := engine.GeneratePrediction(context.Background(), models.ForecastRequest{
		Domain: "inventory", EntityID: "SKU001", TimeHorizon: 14,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, enricher.calls)
	assert.Equal(t, []string{"AI insight one", "AI insight two"}, resp.Insights)
}

func TestEngine_EnrichmentFailureKeepsRuleBased(t *testing.T) {
	source := &fakeSource{records: inventoryHistory(90, 500, 0)}
	enricher := &fakeEnricher{err: errors.New("service down")}
	engine := newEngine(source, enricher)

	resp, err := engine.GeneratePrediction(context.Background(), models.ForecastRequest{
		Domain: "inventory", EntityID: "SKU001", TimeHorizon: 14,
	})

	require.NoError(t, err)
	assert.Contains(t, resp.Insights, "Demand expected to remain stable")
}

func TestEngine_EmptyEnrichmentKeepsRuleBased(t *testing.T) {
	source := &fakeSource{records: inventoryHistory(90, 500, 0)}
	enricher := &fakeEnricher{insights: nil}
	engine := newEngine(source, enricher)

	resp, err := engine.GeneratePrediction(context.Background(), models.ForecastRequest{
		Domain: "inventory", EntityID: "SKU001", TimeHorizon: 14,
	})

	require.NoError(t, err)
	assert.Contains(t, resp.Insights, "Demand expected to remain stable")
}

func TestEngine_Idempotent(t *testing.T) {
	source := &fakeSource{records: orderHistory(90, 1000, 25)}
	engine := newEngine(source, nil)
	req := models.ForecastRequest{Domain: "sales", EntityID: "all", TimeHorizon: 30}

	first, err := engine.GeneratePrediction(context.Background(), req)
	require.NoError(t, err)
	second, err := engine.GeneratePrediction(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Predictions, second.Predictions)
	assert.Equal(t, first.Insights, second.Insights)
	assert.Equal(t, first.Metadata.ModelUsed, second.Metadata.ModelUsed)
}

func containsPrefix(insights []string, prefix string) bool {
	for _, insight := range insights {
		if len(insight) >= len(prefix) && insight[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
