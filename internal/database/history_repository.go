package database

import (
	"context"
	"fmt"
	"time"

	"github.com/horizonml/horizon-go/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// HistoryRepository reads historical business records straight from the ERP
// database. It is the in-cluster alternative to the HTTP record source and
// satisfies the same RecordSource contract.
type HistoryRepository struct {
	pool DatabasePool
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(pool DatabasePool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// FetchRecords loads up to days of history for one entity in one domain.
// Any query failure is reported as ErrDataSourceUnavailable; there is no
// partial-data mode.
func (r *HistoryRepository) FetchRecords(ctx context.Context, domain models.Domain, entityID string, days int) (*models.RawRecords, error) {
	since := time.Now().AddDate(0, 0, -days)

	switch domain {
	case models.DomainInventory:
		return r.fetchInventory(ctx, entityID, since)
	case models.DomainBudget:
		return r.fetchExpenses(ctx, entityID, since)
	case models.DomainResource:
		return r.fetchUtilization(ctx, entityID, since)
	case models.DomainSales:
		return r.fetchOrders(ctx, since)
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownDomain, domain)
	}
}

func (r *HistoryRepository) fetchInventory(ctx context.Context, sku string, since time.Time) (*models.RawRecords, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT transaction_date, transaction_type, quantity
		FROM inventory_transactions
		WHERE sku = $1 AND transaction_date >= $2
		ORDER BY transaction_date`,
		sku, since)
	if err != nil {
		return nil, fmt.Errorf("%w: inventory query: %v", models.ErrDataSourceUnavailable, err)
	}
	defer rows.Close()

	var records []models.InventoryTransaction
	for rows.Next() {
		var tx models.InventoryTransaction
		var day time.Time
		if err := rows.Scan(&day, &tx.TransactionType, &tx.Quantity); err != nil {
			return nil, fmt.Errorf("%w: inventory scan: %v", models.ErrDataSourceUnavailable, err)
		}
		tx.Date = models.NewDate(day)
		records = append(records, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: inventory rows: %v", models.ErrDataSourceUnavailable, err)
	}

	return &models.RawRecords{Inventory: records}, nil
}

func (r *HistoryRepository) fetchExpenses(ctx context.Context, category string, since time.Time) (*models.RawRecords, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.expense_date, e.amount, c.category_name
		FROM expense_records e
		JOIN budget_categories c ON c.id = e.category_id
		WHERE c.category_name = $1 AND e.expense_date >= $2
		ORDER BY e.expense_date`,
		category, since)
	if err != nil {
		return nil, fmt.Errorf("%w: expense query: %v", models.ErrDataSourceUnavailable, err)
	}
	defer rows.Close()

	var records []models.ExpenseEntry
	for rows.Next() {
		var entry models.ExpenseEntry
		var day time.Time
		var amount decimal.Decimal
		if err := rows.Scan(&day, &amount, &entry.Category); err != nil {
			return nil, fmt.Errorf("%w: expense scan: %v", models.ErrDataSourceUnavailable, err)
		}
		entry.Date = models.NewDate(day)
		entry.Amount = amount
		records = append(records, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: expense rows: %v", models.ErrDataSourceUnavailable, err)
	}

	return &models.RawRecords{Expenses: records}, nil
}

func (r *HistoryRepository) fetchUtilization(ctx context.Context, department string, since time.Time) (*models.RawRecords, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT utilization_date, utilized_hours, available_hours, department
		FROM resource_utilization
		WHERE department = $1 AND utilization_date >= $2
		ORDER BY utilization_date`,
		department, since)
	if err != nil {
		return nil, fmt.Errorf("%w: utilization query: %v", models.ErrDataSourceUnavailable, err)
	}
	defer rows.Close()

	var records []models.UtilizationEntry
	for rows.Next() {
		var entry models.UtilizationEntry
		var day time.Time
		if err := rows.Scan(&day, &entry.UtilizedHours, &entry.AvailableHours, &entry.Department); err != nil {
			return nil, fmt.Errorf("%w: utilization scan: %v", models.ErrDataSourceUnavailable, err)
		}
		entry.Date = models.NewDate(day)
		records = append(records, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: utilization rows: %v", models.ErrDataSourceUnavailable, err)
	}

	return &models.RawRecords{Utilization: records}, nil
}

func (r *HistoryRepository) fetchOrders(ctx context.Context, since time.Time) (*models.RawRecords, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT order_date, total_amount, status
		FROM sales_orders
		WHERE order_date >= $1 AND status != 'cancelled'
		ORDER BY order_date`,
		since)
	if err != nil {
		return nil, fmt.Errorf("%w: orders query: %v", models.ErrDataSourceUnavailable, err)
	}
	defer rows.Close()

	var records []models.SalesOrder
	for rows.Next() {
		var order models.SalesOrder
		var day time.Time
		var amount decimal.Decimal
		if err := rows.Scan(&day, &amount, &order.Status); err != nil {
			return nil, fmt.Errorf("%w: orders scan: %v", models.ErrDataSourceUnavailable, err)
		}
		order.Date = models.NewDate(day)
		order.TotalAmount = amount
		records = append(records, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: orders rows: %v", models.ErrDataSourceUnavailable, err)
	}

	return &models.RawRecords{Orders: records}, nil
}
