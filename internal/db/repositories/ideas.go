package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"greenroom/pkg/models"
)

// ErrVideoNotFound is returned when an idea insert references a video that
// has no durable row yet. The reconciliation resolver treats it as the
// signal to backfill from a cached search payload.
var ErrVideoNotFound = errors.New("referenced video does not exist")

type IdeaRepo struct {
	db *sql.DB
}

func NewIdeaRepo(db *sql.DB) *IdeaRepo {
	return &IdeaRepo{db: db}
}

const ideaColumns = "id, user_id, video_id, title, notes, brief, created_at, updated_at"

func scanIdea(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Idea, error) {
	var idea models.Idea
	var brief sql.NullString
	var createdAt, updatedAt sql.NullTime

	err := scanner.Scan(&idea.ID, &idea.UserID, &idea.VideoID, &idea.Title, &idea.Notes, &brief, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if brief.Valid {
		idea.Brief = &brief.String
	}
	if createdAt.Valid {
		idea.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		idea.UpdatedAt = updatedAt.Time
	}

	return &idea, nil
}

// CreateForExternalVideo inserts an idea resolving the owner's video row by
// external id in the same statement. Zero rows inserted means the video has
// not been persisted yet; that surfaces as ErrVideoNotFound so the caller
// can reconcile from a cached search payload and retry.
func (r *IdeaRepo) CreateForExternalVideo(userID int64, externalVideoID, title, notes string) (*models.Idea, error) {
	result, err := r.db.Exec(`
		INSERT INTO ideas (user_id, video_id, title, notes)
		SELECT ?, v.id, ?, ? FROM videos v WHERE v.user_id = ? AND v.external_id = ?`,
		userID, title, notes, userID, externalVideoID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create idea: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrVideoNotFound
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return r.GetByID(id)
}

func (r *IdeaRepo) GetByID(id int64) (*models.Idea, error) {
	row := r.db.QueryRow("SELECT "+ideaColumns+" FROM ideas WHERE id = ?", id)
	return scanIdea(row)
}

func (r *IdeaRepo) GetByIDForUser(id, userID int64) (*models.Idea, error) {
	row := r.db.QueryRow("SELECT "+ideaColumns+" FROM ideas WHERE id = ? AND user_id = ?", id, userID)
	return scanIdea(row)
}

// SetBrief stores a generated brief on the owner's idea.
func (r *IdeaRepo) SetBrief(id, userID int64, brief string) error {
	result, err := r.db.Exec(
		"UPDATE ideas SET brief = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?",
		brief, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to store brief for idea %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListForUser returns the user's ideas, newest first.
func (r *IdeaRepo) ListForUser(userID int64, limit int) ([]*models.Idea, error) {
	rows, err := r.db.Query(
		"SELECT "+ideaColumns+" FROM ideas WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ideas: %w", err)
	}
	defer rows.Close()

	var result []*models.Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, idea)
	}
	return result, rows.Err()
}

// CountForVideo reports how many ideas reference a video.
func (r *IdeaRepo) CountForVideo(videoID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM ideas WHERE video_id = ?", videoID).Scan(&count)
	return count, err
}
