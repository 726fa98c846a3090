package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"greenroom/pkg/models"
)

type ToolRunRepo struct {
	db *sql.DB
}

func NewToolRunRepo(db *sql.DB) *ToolRunRepo {
	return &ToolRunRepo{db: db}
}

const toolRunColumns = "id, tool_name, tool_version, user_id, status, input, output, error, logs, duration_ms, started_at, completed_at"

func scanToolRun(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.ToolRun, error) {
	var run models.ToolRun
	var input string
	var output, errMsg, logs sql.NullString
	var durationMs sql.NullInt64
	var startedAt, completedAt sql.NullTime

	err := scanner.Scan(&run.ID, &run.ToolName, &run.ToolVersion, &run.UserID, &run.Status,
		&input, &output, &errMsg, &logs, &durationMs, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	run.Input = json.RawMessage(input)
	if output.Valid {
		raw := json.RawMessage(output.String)
		run.Output = &raw
	}
	if errMsg.Valid {
		run.Error = &errMsg.String
	}
	if logs.Valid {
		var arr models.JSONArray
		if err := arr.Scan(logs.String); err == nil {
			run.Logs = &arr
		}
	}
	if durationMs.Valid {
		run.DurationMs = &durationMs.Int64
	}
	if startedAt.Valid {
		run.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}

// Create records the start of a synchronous tool execution.
func (r *ToolRunRepo) Create(toolName, toolVersion string, userID int64, input json.RawMessage) (*models.ToolRun, error) {
	result, err := r.db.Exec(
		"INSERT INTO tool_runs (tool_name, tool_version, user_id, status, input) VALUES (?, ?, ?, ?, ?)",
		toolName, toolVersion, userID, models.ToolRunStatusStarted, string(input),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return r.GetByID(id)
}

func (r *ToolRunRepo) GetByID(id int64) (*models.ToolRun, error) {
	row := r.db.QueryRow("SELECT "+toolRunColumns+" FROM tool_runs WHERE id = ?", id)
	return scanToolRun(row)
}

func (r *ToolRunRepo) GetByIDForUser(id, userID int64) (*models.ToolRun, error) {
	row := r.db.QueryRow("SELECT "+toolRunColumns+" FROM tool_runs WHERE id = ? AND user_id = ?", id, userID)
	return scanToolRun(row)
}

// MarkSucceeded writes the single terminal update for a successful run.
func (r *ToolRunRepo) MarkSucceeded(id int64, output json.RawMessage, logs *models.JSONArray, duration time.Duration) error {
	var logsValue interface{}
	if logs != nil {
		v, err := logs.Value()
		if err != nil {
			return err
		}
		logsValue = v
	}

	_, err := r.db.Exec(
		"UPDATE tool_runs SET status = ?, output = ?, logs = ?, duration_ms = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?",
		models.ToolRunStatusSucceeded, string(output), logsValue, duration.Milliseconds(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update tool run %d: %w", id, err)
	}
	return nil
}

// MarkFailed writes the single terminal update for a failed run.
func (r *ToolRunRepo) MarkFailed(id int64, errMsg string, logs *models.JSONArray, duration time.Duration) error {
	var logsValue interface{}
	if logs != nil {
		v, err := logs.Value()
		if err != nil {
			return err
		}
		logsValue = v
	}

	_, err := r.db.Exec(
		"UPDATE tool_runs SET status = ?, error = ?, logs = ?, duration_ms = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?",
		models.ToolRunStatusFailed, errMsg, logsValue, duration.Milliseconds(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update tool run %d: %w", id, err)
	}
	return nil
}

// ListForUser returns the user's runs, newest first.
func (r *ToolRunRepo) ListForUser(userID int64, limit int) ([]*models.ToolRun, error) {
	rows, err := r.db.Query(
		"SELECT "+toolRunColumns+" FROM tool_runs WHERE user_id = ? ORDER BY started_at DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool runs: %w", err)
	}
	defer rows.Close()

	var result []*models.ToolRun
	for rows.Next() {
		run, err := scanToolRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, run)
	}
	return result, rows.Err()
}
