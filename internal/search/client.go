package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/models"
)

// Backend issues one query against a web-search API and returns candidate
// documents. Implementations must tolerate zero-result responses.
type Backend interface {
	Query(ctx context.Context, query string, numResults int) ([]models.CandidateDocument, error)
}

// Client talks to an Exa-style search API: JSON POST with the query and
// result count, api-key header, JSON result list back.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a search API client.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
	Text       bool   `json:"text"`
}

type searchResponse struct {
	Results []struct {
		URL     string  `json:"url"`
		Title   string  `json:"title"`
		Text    string  `json:"text"`
		Summary string  `json:"summary"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Query executes one search call.
func (c *Client) Query(ctx context.Context, query string, numResults int) ([]models.CandidateDocument, error) {
	body, err := json.Marshal(searchRequest{Query: query, NumResults: numResults, Text: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Search request failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Search API returned non-OK status",
			zap.String("query", query), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("search api status: %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	docs := make([]models.CandidateDocument, 0, len(result.Results))
	for _, r := range result.Results {
		docs = append(docs, models.CandidateDocument{
			URL:     r.URL,
			Title:   r.Title,
			Text:    r.Text,
			Summary: r.Summary,
			Score:   r.Score,
		})
	}

	c.logger.Debug("Search complete", zap.String("query", query), zap.Int("results", len(docs)))
	return docs, nil
}
