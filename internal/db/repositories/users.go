package repositories

import (
	"database/sql"
	"fmt"

	"greenroom/pkg/models"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var apiKey sql.NullString
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(&user.ID, &user.Username, &apiKey, &user.IsAdmin, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if apiKey.Valid {
		user.APIKey = &apiKey.String
	}
	if createdAt.Valid {
		user.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		user.UpdatedAt = updatedAt.Time
	}

	return &user, nil
}

func (r *UserRepo) Create(username string, isAdmin bool, apiKey *string) (*models.User, error) {
	var key sql.NullString
	if apiKey != nil {
		key = sql.NullString{String: *apiKey, Valid: true}
	}

	result, err := r.db.Exec(
		"INSERT INTO users (username, api_key, is_admin) VALUES (?, ?, ?)",
		username, key, isAdmin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return r.GetByID(id)
}

func (r *UserRepo) GetByID(id int64) (*models.User, error) {
	row := r.db.QueryRow(
		"SELECT id, username, api_key, is_admin, created_at, updated_at FROM users WHERE id = ?", id,
	)
	return scanUser(row)
}

func (r *UserRepo) GetByUsername(username string) (*models.User, error) {
	row := r.db.QueryRow(
		"SELECT id, username, api_key, is_admin, created_at, updated_at FROM users WHERE username = ?", username,
	)
	return scanUser(row)
}

func (r *UserRepo) GetByAPIKey(apiKey string) (*models.User, error) {
	row := r.db.QueryRow(
		"SELECT id, username, api_key, is_admin, created_at, updated_at FROM users WHERE api_key = ?", apiKey,
	)
	return scanUser(row)
}

func (r *UserRepo) List() ([]*models.User, error) {
	rows, err := r.db.Query("SELECT id, username, api_key, is_admin, created_at, updated_at FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		var user models.User
		var apiKey sql.NullString
		var createdAt, updatedAt sql.NullTime

		if err := rows.Scan(&user.ID, &user.Username, &apiKey, &user.IsAdmin, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if apiKey.Valid {
			user.APIKey = &apiKey.String
		}
		if createdAt.Valid {
			user.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			user.UpdatedAt = updatedAt.Time
		}
		result = append(result, &user)
	}

	return result, rows.Err()
}

func (r *UserRepo) UpdateAPIKey(id int64, apiKey *string) error {
	var key sql.NullString
	if apiKey != nil {
		key = sql.NullString{String: *apiKey, Valid: true}
	}

	_, err := r.db.Exec(
		"UPDATE users SET api_key = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", key, id,
	)
	return err
}
