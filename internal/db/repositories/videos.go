package repositories

import (
	"database/sql"
	"fmt"

	"greenroom/pkg/models"
)

type VideoRepo struct {
	db *sql.DB
}

func NewVideoRepo(db *sql.DB) *VideoRepo {
	return &VideoRepo{db: db}
}

const videoColumns = "id, user_id, external_id, title, channel_title, thumbnail_url, view_count, published_at, transcript, created_at, updated_at"

func scanVideo(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Video, error) {
	var video models.Video
	var publishedAt, createdAt, updatedAt sql.NullTime
	var transcript sql.NullString

	err := scanner.Scan(&video.ID, &video.UserID, &video.ExternalID, &video.Title, &video.ChannelTitle,
		&video.ThumbnailURL, &video.ViewCount, &publishedAt, &transcript, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if publishedAt.Valid {
		video.PublishedAt = &publishedAt.Time
	}
	if transcript.Valid {
		video.Transcript = &transcript.String
	}
	if createdAt.Valid {
		video.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		video.UpdatedAt = updatedAt.Time
	}

	return &video, nil
}

func (r *VideoRepo) GetByID(id int64) (*models.Video, error) {
	row := r.db.QueryRow("SELECT "+videoColumns+" FROM videos WHERE id = ?", id)
	return scanVideo(row)
}

func (r *VideoRepo) GetByIDForUser(id, userID int64) (*models.Video, error) {
	row := r.db.QueryRow("SELECT "+videoColumns+" FROM videos WHERE id = ? AND user_id = ?", id, userID)
	return scanVideo(row)
}

// GetByExternalID looks up a video by its natural key (owner + external id).
func (r *VideoRepo) GetByExternalID(userID int64, externalID string) (*models.Video, error) {
	row := r.db.QueryRow("SELECT "+videoColumns+" FROM videos WHERE user_id = ? AND external_id = ?", userID, externalID)
	return scanVideo(row)
}

// UpsertFromItem promotes a cached search item into a durable videos row.
// The UNIQUE(user_id, external_id) key makes repeated promotion idempotent:
// a conflicting insert refreshes the denormalized fields instead of
// creating a duplicate.
func (r *VideoRepo) UpsertFromItem(userID int64, item models.VideoItem) (*models.Video, error) {
	var publishedAt sql.NullTime
	if item.PublishedAt != nil {
		publishedAt = sql.NullTime{Time: *item.PublishedAt, Valid: true}
	}

	_, err := r.db.Exec(`
		INSERT INTO videos (user_id, external_id, title, channel_title, thumbnail_url, view_count, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, external_id) DO UPDATE SET
			title = excluded.title,
			channel_title = excluded.channel_title,
			thumbnail_url = excluded.thumbnail_url,
			view_count = excluded.view_count,
			published_at = excluded.published_at,
			updated_at = CURRENT_TIMESTAMP`,
		userID, item.ExternalID, item.Title, item.ChannelTitle, item.ThumbnailURL, item.ViewCount, publishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert video %s: %w", item.ExternalID, err)
	}

	return r.GetByExternalID(userID, item.ExternalID)
}

// SetTranscript stores a fetched transcript on the owner's video row.
func (r *VideoRepo) SetTranscript(id, userID int64, transcript string) error {
	result, err := r.db.Exec(
		"UPDATE videos SET transcript = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?",
		transcript, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to store transcript for video %d: %w", id, err)
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

// ListForUser returns the user's videos, newest first.
func (r *VideoRepo) ListForUser(userID int64, limit int) ([]*models.Video, error) {
	rows, err := r.db.Query(
		"SELECT "+videoColumns+" FROM videos WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	var result []*models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, video)
	}
	return result, rows.Err()
}
