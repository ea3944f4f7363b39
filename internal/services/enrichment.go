package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/horizonml/horizon-go/internal/config"
	"github.com/horizonml/horizon-go/internal/models"
)

// InsightEnricher augments rule-based insights with AI-generated ones. The
// substitution is all-or-nothing: the engine keeps its own list on any error,
// timeout, or empty output.
type InsightEnricher interface {
	Enrich(ctx context.Context, result models.ForecastResult, domain models.Domain, entityID string) ([]string, error)
}

// maxEnrichedInsights caps AI output for UI clarity.
const maxEnrichedInsights = 5

// EnrichmentClient calls the external insight-completion service. Every call
// is bounded by the configured timeout; the token from the auth endpoint is
// cached across calls and refetched on demand.
type EnrichmentClient struct {
	cfg        config.EnrichmentConfig
	httpClient *http.Client
	logger     *logrus.Logger

	mu    sync.Mutex
	token string
}

// NewEnrichmentClient creates a client for the AI insight service.
func NewEnrichmentClient(cfg config.EnrichmentConfig, logger *logrus.Logger) *EnrichmentClient {
	return &EnrichmentClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.TimeoutDuration()},
		logger:     logger,
	}
}

type completionRequest struct {
	CompletionPayload completionPayload `json:"gpt_completion_payload"`
	SessionUUID       string            `json:"session_uuid"`
	CompletionIndex   int               `json:"completion_index"`
}

type completionPayload struct {
	Messages []completionMessage `json:"messages"`
}

type completionMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type completionResponse struct {
	Completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"completion"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Enrich builds a business prompt from the forecast, calls the completion
// endpoint, and parses the reply into insight strings.
func (c *EnrichmentClient) Enrich(ctx context.Context, result models.ForecastResult, domain models.Domain, entityID string) ([]string, error) {
	if !c.cfg.Enabled {
		return nil, fmt.Errorf("enrichment disabled")
	}
	if len(result.Predictions) == 0 {
		return nil, fmt.Errorf("no predictions to enrich")
	}

	token, err := c.getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("enrichment auth: %w", err)
	}

	payload := completionRequest{
		CompletionPayload: completionPayload{
			Messages: []completionMessage{
				{Content: buildPrompt(result, domain, entityID), Role: "user"},
			},
		},
		SessionUUID: fmt.Sprintf("horizon-forecast-%s", time.Now().Format("20060102150405")),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal completion payload: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/completion"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing enrichment response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// A stale token gets one refresh on the next call.
		if resp.StatusCode == http.StatusUnauthorized {
			c.clearToken()
		}
		return nil, fmt.Errorf("completion failed (%d)", resp.StatusCode)
	}

	var completion completionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, fmt.Errorf("unmarshal completion response: %w", err)
	}
	if len(completion.Completion.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	insights := parseInsightLines(completion.Completion.Choices[0].Message.Content)
	if len(insights) == 0 {
		return nil, fmt.Errorf("completion returned no usable insights")
	}

	c.logger.WithField("count", len(insights)).Info("Generated AI-powered insights")
	return insights, nil
}

func (c *EnrichmentClient) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	url := fmt.Sprintf("%s/user_token/%s/%s",
		strings.TrimSuffix(c.cfg.AuthURL, "/"), c.cfg.CustomerID, c.cfg.UserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing enrichment auth response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth failed (%d)", resp.StatusCode)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if auth.Token == "" {
		return "", fmt.Errorf("auth response contained no token")
	}

	c.token = auth.Token
	return c.token, nil
}

func (c *EnrichmentClient) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// buildPrompt summarizes the forecast for the completion service.
func buildPrompt(result models.ForecastResult, domain models.Domain, entityID string) string {
	values := make([]float64, len(result.Predictions))
	for i, p := range result.Predictions {
		values[i] = p.PredictedValue
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a business analyst. A %s forecast was generated for entity %q over %d days.\n",
		domain, entityID, len(values))
	fmt.Fprintf(&b, "First predicted value: %.2f, last: %.2f, average: %.2f, trend: %.1f%%.\n",
		values[0], values[len(values)-1], floats.Sum(values)/float64(len(values)), trendPercent(result))
	fmt.Fprintf(&b, "Model: %s over %d historical data points, average confidence %.2f.\n\n",
		result.ModelUsed, result.DataPoints, result.AverageConfidence())
	b.WriteString("Provide 3-4 concise, actionable business insights based on this forecast. ")
	b.WriteString("Format each insight as one clear recommendation on its own line.")
	return b.String()
}

// parseInsightLines extracts insight strings from a free-form completion:
// strips bullets and numbering, skips headers and short fragments.
func parseInsightLines(content string) []string {
	var insights []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, prefix := range []string{"1. ", "2. ", "3. ", "4. ", "5. ", "- ", "• ", "* "} {
			if strings.HasPrefix(line, prefix) {
				line = strings.TrimSpace(strings.TrimPrefix(line, prefix))
				break
			}
		}
		if len(line) > 20 && !strings.HasSuffix(line, ":") {
			insights = append(insights, line)
		}
		if len(insights) == maxEnrichedInsights {
			break
		}
	}
	return insights
}
