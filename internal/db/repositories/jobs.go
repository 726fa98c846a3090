package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"greenroom/pkg/models"
)

type JobRepo struct {
	db *sql.DB
}

func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{db: db}
}

const jobColumns = "id, user_id, project_id, type, status, input, output, error, created_at, updated_at"

func scanJob(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Job, error) {
	var job models.Job
	var projectID sql.NullInt64
	var input string
	var output, errMsg sql.NullString
	var createdAt, updatedAt sql.NullTime

	err := scanner.Scan(&job.ID, &job.UserID, &projectID, &job.Type, &job.Status,
		&input, &output, &errMsg, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	job.Input = json.RawMessage(input)
	if projectID.Valid {
		job.ProjectID = &projectID.Int64
	}
	if output.Valid {
		raw := json.RawMessage(output.String)
		job.Output = &raw
	}
	if errMsg.Valid {
		job.Error = &errMsg.String
	}
	if createdAt.Valid {
		job.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		job.UpdatedAt = updatedAt.Time
	}

	return &job, nil
}

// Create inserts a new job in the given initial status and returns it.
func (r *JobRepo) Create(userID int64, projectID *int64, jobType, status string, input json.RawMessage) (*models.Job, error) {
	id := uuid.New().String()

	var project sql.NullInt64
	if projectID != nil {
		project = sql.NullInt64{Int64: *projectID, Valid: true}
	}

	_, err := r.db.Exec(
		"INSERT INTO jobs (id, user_id, project_id, type, status, input) VALUES (?, ?, ?, ?, ?, ?)",
		id, userID, project, jobType, status, string(input),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return r.GetByID(id)
}

func (r *JobRepo) GetByID(id string) (*models.Job, error) {
	row := r.db.QueryRow("SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	return scanJob(row)
}

// GetByIDForUser returns the job only if it is owned by userID. A foreign
// job scans as sql.ErrNoRows, indistinguishable from an absent one.
func (r *JobRepo) GetByIDForUser(id string, userID int64) (*models.Job, error) {
	row := r.db.QueryRow("SELECT "+jobColumns+" FROM jobs WHERE id = ? AND user_id = ?", id, userID)
	return scanJob(row)
}

// ListActive returns the user's jobs in any non-terminal status, newest
// first, optionally restricted to the given job types.
func (r *JobRepo) ListActive(userID int64, types []string) ([]*models.Job, error) {
	statuses := models.ActiveJobStatuses()

	query := "SELECT " + jobColumns + " FROM jobs WHERE user_id = ? AND status IN (" + placeholders(len(statuses)) + ")"
	args := []interface{}{userID}
	for _, s := range statuses {
		args = append(args, s)
	}

	if len(types) > 0 {
		query += " AND type IN (" + placeholders(len(types)) + ")"
		for _, t := range types {
			args = append(args, t)
		}
	}
	query += " ORDER BY created_at DESC"

	return r.queryJobs(query, args...)
}

// ListRecent returns the user's most recent jobs regardless of status.
func (r *JobRepo) ListRecent(userID int64, limit int) ([]*models.Job, error) {
	return r.queryJobs(
		"SELECT "+jobColumns+" FROM jobs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit,
	)
}

// ListClaimable returns up to limit jobs sitting in the given queued status,
// oldest first. Candidates only; a worker still has to win the claim. The
// rowid tiebreaker keeps the order deterministic when two jobs share a
// created_at timestamp.
func (r *JobRepo) ListClaimable(queuedStatus string, limit int) ([]*models.Job, error) {
	return r.queryJobs(
		"SELECT "+jobColumns+" FROM jobs WHERE status = ? ORDER BY created_at ASC, rowid ASC LIMIT ?",
		queuedStatus, limit,
	)
}

// Claim attempts the atomic queued → running transition. It returns false
// when another worker already claimed the job; the conditional update is the
// sole concurrency-control point in the queue.
func (r *JobRepo) Claim(id, fromStatus, toStatus string) (bool, error) {
	result, err := r.db.Exec(
		"UPDATE jobs SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?",
		toStatus, id, fromStatus,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim job %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Complete writes the terminal succeeded status with output. The write is
// conditional on a running status so a terminal job can never re-enter the
// state machine.
func (r *JobRepo) Complete(id string, output json.RawMessage) (bool, error) {
	result, err := r.db.Exec(
		"UPDATE jobs SET status = ?, output = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status IN (?, ?)",
		models.JobStatusSucceeded, string(output), id, models.JobStatusRunning, models.JobStatusSearchRunning,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete job %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Fail writes the terminal failed status with an error message, under the
// same running-status condition as Complete.
func (r *JobRepo) Fail(id string, errMsg string) (bool, error) {
	result, err := r.db.Exec(
		"UPDATE jobs SET status = ?, error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status IN (?, ?)",
		models.JobStatusFailed, errMsg, id, models.JobStatusRunning, models.JobStatusSearchRunning,
	)
	if err != nil {
		return false, fmt.Errorf("failed to fail job %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CountByStatus returns a status → count map across all jobs.
func (r *JobRepo) CountByStatus() (map[string]int64, error) {
	rows, err := r.db.Query("SELECT status, COUNT(*) FROM jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// ListStaleRunning returns jobs stuck in a running status longer than the
// given number of minutes. Reported by the janitor, never mutated here.
func (r *JobRepo) ListStaleRunning(olderThanMinutes int) ([]*models.Job, error) {
	return r.queryJobs(
		"SELECT "+jobColumns+" FROM jobs WHERE status IN (?, ?) AND updated_at < datetime('now', ?)",
		models.JobStatusRunning, models.JobStatusSearchRunning,
		fmt.Sprintf("-%d minutes", olderThanMinutes),
	)
}

func (r *JobRepo) queryJobs(query string, args ...interface{}) ([]*models.Job, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var result []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
