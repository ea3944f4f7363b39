package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizonml/horizon-go/internal/models"
)

func day(offset int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestNormalizer_UnknownDomain(t *testing.T) {
	n := NewNormalizer()
	_, err := n.Normalize(models.Domain("weather"), &models.RawRecords{})
	assert.ErrorIs(t, err, models.ErrUnknownDomain)
}

func TestNormalizer_EmptyRecords(t *testing.T) {
	n := NewNormalizer()

	series, err := n.Normalize(models.DomainInventory, nil)
	require.NoError(t, err)
	assert.Empty(t, series)

	series, err = n.Normalize(models.DomainSales, &models.RawRecords{})
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestNormalizer_InventorySignsAndAggregation(t *testing.T) {
	n := NewNormalizer()
	records := &models.RawRecords{
		Inventory: []models.InventoryTransaction{
			// Unordered input with a same-day duplicate.
			{Date: models.NewDate(day(1)), Quantity: 10, TransactionType: "purchase"},
			{Date: models.NewDate(day(0)), Quantity: 3, TransactionType: "sale"},
			{Date: models.NewDate(day(1)), Quantity: 4, TransactionType: "sale"},
			// Already-signed quantity sums directly.
			{Date: models.NewDate(day(2)), Quantity: -6},
		},
	}

	series, err := n.Normalize(models.DomainInventory, records)
	require.NoError(t, err)
	require.Len(t, series, 3)

	assert.Equal(t, day(0), series[0].Date)
	assert.Equal(t, -3.0, series[0].Value)
	assert.Equal(t, 6.0, series[1].Value) // 10 purchased - 4 sold
	assert.Equal(t, -6.0, series[2].Value)
}

func TestNormalizer_BudgetSumsSameDayExpenses(t *testing.T) {
	n := NewNormalizer()
	records := &models.RawRecords{
		Expenses: []models.ExpenseEntry{
			{Date: models.NewDate(day(0)), Amount: decimal.NewFromFloat(100.50)},
			{Date: models.NewDate(day(0)), Amount: decimal.NewFromFloat(49.50)},
			{Date: models.NewDate(day(3)), Amount: decimal.NewFromInt(20)},
		},
	}

	series, err := n.Normalize(models.DomainBudget, records)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.InDelta(t, 150.0, series[0].Value, 1e-9)
	assert.Equal(t, 20.0, series[1].Value)
}

func TestNormalizer_ResourceEfficiency(t *testing.T) {
	n := NewNormalizer()
	records := &models.RawRecords{
		Utilization: []models.UtilizationEntry{
			{Date: models.NewDate(day(0)), UtilizedHours: 30, AvailableHours: 40},
			{Date: models.NewDate(day(0)), UtilizedHours: 10, AvailableHours: 40},
			// Zero available hours reports 0 rather than dividing by zero.
			{Date: models.NewDate(day(1)), UtilizedHours: 5, AvailableHours: 0},
			// Over-allocation clips to 1.
			{Date: models.NewDate(day(2)), UtilizedHours: 50, AvailableHours: 40},
		},
	}

	series, err := n.Normalize(models.DomainResource, records)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.InDelta(t, 0.5, series[0].Value, 1e-9)
	assert.Equal(t, 0.0, series[1].Value)
	assert.Equal(t, 1.0, series[2].Value)
}

func TestNormalizer_SalesSortedAscending(t *testing.T) {
	n := NewNormalizer()
	records := &models.RawRecords{
		Orders: []models.SalesOrder{
			{Date: models.NewDate(day(5)), TotalAmount: decimal.NewFromInt(500)},
			{Date: models.NewDate(day(1)), TotalAmount: decimal.NewFromInt(100)},
			{Date: models.NewDate(day(5)), TotalAmount: decimal.NewFromInt(250)},
		},
	}

	series, err := n.Normalize(models.DomainSales, records)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.True(t, series[0].Date.Before(series[1].Date))
	assert.Equal(t, 100.0, series[0].Value)
	assert.Equal(t, 750.0, series[1].Value)
}

func TestNormalizer_TimestampsCollapseToCalendarDate(t *testing.T) {
	n := NewNormalizer()
	morning := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 2, 1, 21, 30, 0, 0, time.UTC)
	records := &models.RawRecords{
		Orders: []models.SalesOrder{
			{Date: models.NewDate(morning), TotalAmount: decimal.NewFromInt(10)},
			{Date: models.NewDate(evening), TotalAmount: decimal.NewFromInt(15)},
		},
	}

	series, err := n.Normalize(models.DomainSales, records)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 25.0, series[0].Value)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), series[0].Date)
}
