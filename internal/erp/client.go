package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/horizonml/horizon-go/internal/config"
	"github.com/horizonml/horizon-go/internal/models"
	"github.com/sirupsen/logrus"
)

// Client fetches historical business records from the ERP service over HTTP.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

// NewClient creates a new ERP client instance.
func NewClient(cfg config.ERPConfig, logger *logrus.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:     logger,
	}
}

// BaseURL returns the configured ERP base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchRecords retrieves up to days of raw history for the given domain and
// entity. Every transport or status failure is wrapped as
// ErrDataSourceUnavailable so the engine treats it as a hard request failure.
func (c *Client) FetchRecords(ctx context.Context, domain models.Domain, entityID string, days int) (*models.RawRecords, error) {
	path, err := c.recordPath(domain, entityID, days)
	if err != nil {
		return nil, err
	}

	records := &models.RawRecords{}
	switch domain {
	case models.DomainInventory:
		var resp inventoryHistoryResponse
		if err := c.makeRequest(ctx, path, &resp); err != nil {
			return nil, err
		}
		records.Inventory = resp.History
	case models.DomainBudget:
		var resp expensesResponse
		if err := c.makeRequest(ctx, path, &resp); err != nil {
			return nil, err
		}
		records.Expenses = resp.Expenses
	case models.DomainResource:
		var resp utilizationResponse
		if err := c.makeRequest(ctx, path, &resp); err != nil {
			return nil, err
		}
		records.Utilization = resp.UtilizationData
	case models.DomainSales:
		var resp ordersResponse
		if err := c.makeRequest(ctx, path, &resp); err != nil {
			return nil, err
		}
		records.Orders = resp.Orders
	}

	return records, nil
}

// HealthCheck checks if the ERP service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	healthURL := strings.TrimSuffix(c.baseURL, "/api/v1") + "/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("ERP health check failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing ERP health response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ERP service unhealthy (%d)", resp.StatusCode)
	}
	return nil
}

func (c *Client) recordPath(domain models.Domain, entityID string, days int) (string, error) {
	escaped := url.PathEscape(entityID)
	query := url.QueryEscape(entityID)

	switch domain {
	case models.DomainInventory:
		return fmt.Sprintf("/inventory/%s/history?days=%d", escaped, days), nil
	case models.DomainBudget:
		return fmt.Sprintf("/finance/expenses?category=%s&days=%d", query, days), nil
	case models.DomainResource:
		return fmt.Sprintf("/hr/utilization?department=%s&days=%d", query, days), nil
	case models.DomainSales:
		return fmt.Sprintf("/sales/orders?days=%d", days), nil
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnknownDomain, domain)
	}
}

func (c *Client) makeRequest(ctx context.Context, path string, result interface{}) error {
	requestURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", models.ErrDataSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Horizon-Go/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrDataSourceUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing ERP response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", models.ErrDataSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"path":   path,
		}).Error("ERP service returned non-OK status")
		return fmt.Errorf("%w: ERP service error (%d)", models.ErrDataSourceUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: failed to unmarshal response: %v", models.ErrDataSourceUnavailable, err)
	}

	return nil
}
