package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"greenroom/internal/clients"
	"greenroom/internal/tools"
)

const outlierSearchSchema = `{
	"type": "object",
	"properties": {
		"keywords": {
			"type": "array",
			"items": {"type": "string", "minLength": 1},
			"minItems": 1,
			"maxItems": 10
		},
		"max_results": {"type": "integer", "minimum": 1, "maximum": 100},
		"published_within_days": {"type": "integer", "minimum": 1, "maximum": 365}
	},
	"required": ["keywords"],
	"additionalProperties": false
}`

type outlierSearchInput struct {
	Keywords            []string `json:"keywords"`
	MaxResults          int      `json:"max_results,omitempty"`
	PublishedWithinDays int      `json:"published_within_days,omitempty"`
}

// searchOutput is the shared job output of both research tools. The payload
// itself lives in the search_results cache; the job only carries the pointer.
type searchOutput struct {
	SearchResultID string `json:"search_result_id"`
	ResultsCount   int    `json:"results_count"`
}

// OutlierSearch finds videos performing far above their channel's baseline
// for a keyword set. Runs on the search pool and caches its payload as a
// write-once SearchResult.
func OutlierSearch() *tools.Tool {
	return &tools.Tool{
		Name:        "outlier_search",
		Version:     "1.2.0",
		Description: "Find videos that dramatically outperform their channel's typical views for the given keywords",
		InputSchema: json.RawMessage(outlierSearchSchema),
		Async:       true,
		Pool:        tools.PoolSearch,
		Pollable:    true,
		Handler: tools.Typed(func(ctx context.Context, rc *tools.RunContext, input outlierSearchInput) (searchOutput, error) {
			items, err := rc.Search.OutlierSearch(ctx, clients.OutlierSearchParams{
				Keywords:            input.Keywords,
				MaxResults:          input.MaxResults,
				PublishedWithinDays: input.PublishedWithinDays,
			})
			if err != nil {
				return searchOutput{}, fmt.Errorf("outlier search failed: %w", err)
			}

			params, _ := json.Marshal(input)
			sr, err := rc.Repos.SearchResults.Create(rc.UserID, "outlier_search", params, items)
			if err != nil {
				return searchOutput{}, fmt.Errorf("failed to cache search results: %w", err)
			}

			return searchOutput{SearchResultID: sr.ID, ResultsCount: len(items)}, nil
		}),
	}
}

const channelAnalyzeSchema = `{
	"type": "object",
	"properties": {
		"channel_id": {"type": "string", "minLength": 1},
		"include_shorts": {"type": "boolean"}
	},
	"required": ["channel_id"],
	"additionalProperties": false
}`

type channelAnalyzeInput struct {
	ChannelID     string `json:"channel_id"`
	IncludeShorts bool   `json:"include_shorts,omitempty"`
}

// ChannelAnalyze breaks down one channel's recent performance. Same caching
// contract as OutlierSearch, under its own search_type.
func ChannelAnalyze() *tools.Tool {
	return &tools.Tool{
		Name:        "channel_analyze",
		Version:     "1.0.0",
		Description: "Analyze a channel's recent upload performance, optionally including shorts",
		InputSchema: json.RawMessage(channelAnalyzeSchema),
		Async:       true,
		Pool:        tools.PoolSearch,
		Pollable:    true,
		Handler: tools.Typed(func(ctx context.Context, rc *tools.RunContext, input channelAnalyzeInput) (searchOutput, error) {
			items, err := rc.Search.ChannelAnalyze(ctx, clients.ChannelAnalyzeParams{
				ChannelID:     input.ChannelID,
				IncludeShorts: input.IncludeShorts,
			})
			if err != nil {
				return searchOutput{}, fmt.Errorf("channel analysis failed: %w", err)
			}

			params, _ := json.Marshal(input)
			sr, err := rc.Repos.SearchResults.Create(rc.UserID, "channel_analysis", params, items)
			if err != nil {
				return searchOutput{}, fmt.Errorf("failed to cache analysis results: %w", err)
			}

			return searchOutput{SearchResultID: sr.ID, ResultsCount: len(items)}, nil
		}),
	}
}
