// Package clients wraps the external research and media services as plain
// HTTP clients. The wire formats are the providers' own; these types only
// carry what the tool handlers consume.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"greenroom/pkg/models"
)

// SearchClient calls the external video research service.
type SearchClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewSearchClient(baseURL, apiKey string) *SearchClient {
	return &SearchClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// OutlierSearchParams selects videos performing far above their channel's
// baseline for the given keywords.
type OutlierSearchParams struct {
	Keywords            []string `json:"keywords"`
	MaxResults          int      `json:"max_results,omitempty"`
	PublishedWithinDays int      `json:"published_within_days,omitempty"`
}

func (c *SearchClient) OutlierSearch(ctx context.Context, params OutlierSearchParams) ([]models.VideoItem, error) {
	return c.post(ctx, "/v1/outlier-search", params)
}

// ChannelAnalyzeParams requests a performance breakdown of one channel.
type ChannelAnalyzeParams struct {
	ChannelID     string `json:"channel_id"`
	IncludeShorts bool   `json:"include_shorts,omitempty"`
}

func (c *SearchClient) ChannelAnalyze(ctx context.Context, params ChannelAnalyzeParams) ([]models.VideoItem, error) {
	return c.post(ctx, "/v1/channel-analyze", params)
}

func (c *SearchClient) post(ctx context.Context, path string, params interface{}) ([]models.VideoItem, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("search service returned %d: %s", resp.StatusCode, payload)
	}

	var decoded struct {
		Results []models.VideoItem `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return decoded.Results, nil
}
