package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/horizonml/horizon-go/internal/models"
)

// Normalizer converts domain-shaped raw records into one canonical daily
// value series: sorted ascending, one point per date, same-day entries
// aggregated by the domain rule.
type Normalizer struct{}

// NewNormalizer creates a new record normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize aggregates raw records into a canonical series. Input records may
// be empty, unordered, or carry duplicate dates; same-day entries always sum
// (utilization sums hours before taking the daily ratio). An empty input
// yields an empty series, not an error.
func (n *Normalizer) Normalize(domain models.Domain, records *models.RawRecords) (models.Series, error) {
	if records == nil {
		records = &models.RawRecords{}
	}

	switch domain {
	case models.DomainInventory:
		return n.normalizeInventory(records.Inventory), nil
	case models.DomainBudget:
		return n.normalizeExpenses(records.Expenses), nil
	case models.DomainResource:
		return n.normalizeUtilization(records.Utilization), nil
	case models.DomainSales:
		return n.normalizeOrders(records.Orders), nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownDomain, domain)
	}
}

// normalizeInventory sums signed quantities per day so the series represents
// net daily stock movement. Sources that report unsigned quantities carry the
// sign in the transaction type.
func (n *Normalizer) normalizeInventory(records []models.InventoryTransaction) models.Series {
	daily := make(map[time.Time]float64)
	for _, tx := range records {
		daily[dateOnly(tx.Date.Time)] += signedQuantity(tx)
	}
	return toSeries(daily)
}

func signedQuantity(tx models.InventoryTransaction) float64 {
	quantity := tx.Quantity
	switch strings.ToLower(tx.TransactionType) {
	case "sale", "consumption", "shipment":
		if quantity > 0 {
			quantity = -quantity
		}
	}
	return quantity
}

func (n *Normalizer) normalizeExpenses(records []models.ExpenseEntry) models.Series {
	daily := make(map[time.Time]float64)
	for _, entry := range records {
		daily[dateOnly(entry.Date.Time)] += entry.Amount.InexactFloat64()
	}
	return toSeries(daily)
}

// normalizeUtilization sums hours per day first, then computes the daily
// efficiency ratio. A day with zero available hours reports 0, and the ratio
// is clipped to [0, 1].
func (n *Normalizer) normalizeUtilization(records []models.UtilizationEntry) models.Series {
	type hours struct {
		utilized  float64
		available float64
	}
	daily := make(map[time.Time]hours)
	for _, entry := range records {
		day := dateOnly(entry.Date.Time)
		h := daily[day]
		h.utilized += entry.UtilizedHours
		h.available += entry.AvailableHours
		daily[day] = h
	}

	rates := make(map[time.Time]float64, len(daily))
	for day, h := range daily {
		var rate float64
		if h.available > 0 {
			rate = h.utilized / h.available
		}
		if rate < 0 {
			rate = 0
		}
		if rate > 1 {
			rate = 1
		}
		rates[day] = rate
	}
	return toSeries(rates)
}

func (n *Normalizer) normalizeOrders(records []models.SalesOrder) models.Series {
	daily := make(map[time.Time]float64)
	for _, order := range records {
		daily[dateOnly(order.Date.Time)] += order.TotalAmount.InexactFloat64()
	}
	return toSeries(daily)
}

// dateOnly truncates a timestamp to its UTC calendar date so same-day entries
// land in one bucket.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toSeries(daily map[time.Time]float64) models.Series {
	series := make(models.Series, 0, len(daily))
	for day, value := range daily {
		series = append(series, models.SeriesPoint{Date: day, Value: value})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}
