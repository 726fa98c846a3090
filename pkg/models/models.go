package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	IsAdmin   bool      `json:"is_admin" db:"is_admin"`
	APIKey    *string   `json:"api_key,omitempty" db:"api_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Job statuses. The search pool owns the search_* namespace so the two
// worker pools can poll the same table with disjoint status filters.
const (
	JobStatusQueued        = "queued"
	JobStatusRunning       = "running"
	JobStatusSearchQueued  = "search_queued"
	JobStatusSearchRunning = "search_running"
	JobStatusSucceeded     = "succeeded"
	JobStatusFailed        = "failed"
)

// IsTerminalJobStatus reports whether a job status accepts no further writes.
func IsTerminalJobStatus(status string) bool {
	return status == JobStatusSucceeded || status == JobStatusFailed
}

// ActiveJobStatuses lists every non-terminal status across both pools.
func ActiveJobStatuses() []string {
	return []string{JobStatusQueued, JobStatusRunning, JobStatusSearchQueued, JobStatusSearchRunning}
}

type Job struct {
	ID        string           `json:"id" db:"id"`
	UserID    int64            `json:"user_id" db:"user_id"`
	ProjectID *int64           `json:"project_id,omitempty" db:"project_id"`
	Type      string           `json:"type" db:"type"`
	Status    string           `json:"status" db:"status"`
	Input     json.RawMessage  `json:"input" db:"input"`
	Output    *json.RawMessage `json:"output,omitempty" db:"output"`
	Error     *string          `json:"error,omitempty" db:"error"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// JobWithResult is a Job joined with the SearchResult its output points at,
// resolved inline for terminal-succeeded search jobs.
type JobWithResult struct {
	Job
	SearchResult *SearchResult `json:"search_result,omitempty"`
}

// ToolRun statuses.
const (
	ToolRunStatusStarted   = "started"
	ToolRunStatusSucceeded = "succeeded"
	ToolRunStatusFailed    = "failed"
)

// ToolRun is the audit record of one synchronous tool execution.
type ToolRun struct {
	ID          int64            `json:"id" db:"id"`
	ToolName    string           `json:"tool_name" db:"tool_name"`
	ToolVersion string           `json:"tool_version" db:"tool_version"`
	UserID      int64            `json:"user_id" db:"user_id"`
	Status      string           `json:"status" db:"status"`
	Input       json.RawMessage  `json:"input" db:"input"`
	Output      *json.RawMessage `json:"output,omitempty" db:"output"`
	Error       *string          `json:"error,omitempty" db:"error"`
	Logs        *JSONArray       `json:"logs,omitempty" db:"logs"`
	DurationMs  *int64           `json:"duration_ms,omitempty" db:"duration_ms"`
	StartedAt   time.Time        `json:"started_at" db:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
}

// SearchResult is a write-once cache of one search/analysis payload.
type SearchResult struct {
	ID           string          `json:"id" db:"id"`
	UserID       int64           `json:"user_id" db:"user_id"`
	SearchType   string          `json:"search_type" db:"search_type"`
	SearchParams json.RawMessage `json:"search_params" db:"search_params"`
	Results      []VideoItem     `json:"results" db:"results"`
	ResultsCount int64           `json:"results_count" db:"results_count"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// VideoItem is one denormalized video record inside a SearchResult payload.
// ExternalID is the natural key used when the item is promoted to a videos row.
type VideoItem struct {
	ExternalID   string     `json:"external_id"`
	Title        string     `json:"title"`
	ChannelTitle string     `json:"channel_title,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	ViewCount    int64      `json:"view_count,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

type Video struct {
	ID           int64      `json:"id" db:"id"`
	UserID       int64      `json:"user_id" db:"user_id"`
	ExternalID   string     `json:"external_id" db:"external_id"`
	Title        string     `json:"title" db:"title"`
	ChannelTitle string     `json:"channel_title" db:"channel_title"`
	ThumbnailURL string     `json:"thumbnail_url" db:"thumbnail_url"`
	ViewCount    int64      `json:"view_count" db:"view_count"`
	PublishedAt  *time.Time `json:"published_at,omitempty" db:"published_at"`
	Transcript   *string    `json:"transcript,omitempty" db:"transcript"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

type Idea struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	VideoID   int64     `json:"video_id" db:"video_id"`
	Title     string    `json:"title" db:"title"`
	Notes     string    `json:"notes" db:"notes"`
	Brief     *string   `json:"brief,omitempty" db:"brief"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// JSONArray is a custom type for handling JSON arrays in SQLite
type JSONArray []interface{}

func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}
