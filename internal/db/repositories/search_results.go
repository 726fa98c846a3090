package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"greenroom/pkg/models"
)

type SearchResultRepo struct {
	db *sql.DB
}

func NewSearchResultRepo(db *sql.DB) *SearchResultRepo {
	return &SearchResultRepo{db: db}
}

// Create persists a write-once search payload and returns it.
func (r *SearchResultRepo) Create(userID int64, searchType string, searchParams json.RawMessage, results []models.VideoItem) (*models.SearchResult, error) {
	id := uuid.New().String()

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search results: %w", err)
	}

	_, err = r.db.Exec(
		"INSERT INTO search_results (id, user_id, search_type, search_params, results, results_count) VALUES (?, ?, ?, ?, ?, ?)",
		id, userID, searchType, string(searchParams), string(resultsJSON), len(results),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search result: %w", err)
	}

	return r.GetByIDForUser(id, userID)
}

// GetByIDForUser loads a cached payload scoped to its owner.
func (r *SearchResultRepo) GetByIDForUser(id string, userID int64) (*models.SearchResult, error) {
	row := r.db.QueryRow(
		"SELECT id, user_id, search_type, search_params, results, results_count, created_at FROM search_results WHERE id = ? AND user_id = ?",
		id, userID,
	)

	var sr models.SearchResult
	var params, results string
	var createdAt sql.NullTime

	err := row.Scan(&sr.ID, &sr.UserID, &sr.SearchType, &params, &results, &sr.ResultsCount, &createdAt)
	if err != nil {
		return nil, err
	}

	sr.SearchParams = json.RawMessage(params)
	if err := json.Unmarshal([]byte(results), &sr.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached results for %s: %w", id, err)
	}
	if createdAt.Valid {
		sr.CreatedAt = createdAt.Time
	}

	return &sr, nil
}

// ListForUser returns the user's cached searches, newest first.
func (r *SearchResultRepo) ListForUser(userID int64, limit int) ([]*models.SearchResult, error) {
	rows, err := r.db.Query(
		"SELECT id, user_id, search_type, search_params, results, results_count, created_at FROM search_results WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query search results: %w", err)
	}
	defer rows.Close()

	var out []*models.SearchResult
	for rows.Next() {
		var sr models.SearchResult
		var params, results string
		var createdAt sql.NullTime

		if err := rows.Scan(&sr.ID, &sr.UserID, &sr.SearchType, &params, &results, &sr.ResultsCount, &createdAt); err != nil {
			return nil, err
		}
		sr.SearchParams = json.RawMessage(params)
		if err := json.Unmarshal([]byte(results), &sr.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cached results for %s: %w", sr.ID, err)
		}
		if createdAt.Valid {
			sr.CreatedAt = createdAt.Time
		}
		out = append(out, &sr)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes cached payloads past the retention window. Used
// by the janitor sweep; ideas hold no references into this table.
func (r *SearchResultRepo) DeleteOlderThan(days int) (int64, error) {
	result, err := r.db.Exec(
		"DELETE FROM search_results WHERE created_at < datetime('now', ?)",
		fmt.Sprintf("-%d days", days),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired search results: %w", err)
	}
	return result.RowsAffected()
}
