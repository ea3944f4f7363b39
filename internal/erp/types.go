package erp

import "github.com/horizonml/horizon-go/internal/models"

// Wire shapes returned by the ERP service endpoints. Each response wraps the
// record list together with summary fields the engine does not consume.

type inventoryHistoryResponse struct {
	SKU     string                        `json:"sku"`
	History []models.InventoryTransaction `json:"history"`
	Summary *historySummary               `json:"summary,omitempty"`
}

type historySummary struct {
	TotalDemand    float64 `json:"total_demand"`
	AvgDailyDemand float64 `json:"avg_daily_demand"`
	DataPoints     int     `json:"data_points"`
}

type expensesResponse struct {
	Category string                `json:"category"`
	Expenses []models.ExpenseEntry `json:"expenses"`
}

type utilizationResponse struct {
	Department      string                    `json:"department"`
	UtilizationData []models.UtilizationEntry `json:"utilization_data"`
}

type ordersResponse struct {
	Orders []models.SalesOrder `json:"orders"`
}
