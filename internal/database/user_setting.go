package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/callforge/callforge/internal/database/models"
)

// userSettingRepo implements UserSettingRepository.
type userSettingRepo struct {
	db *DB
}

// NewUserSettingRepository creates a new UserSettingRepository.
func NewUserSettingRepository(db *DB) UserSettingRepository {
	return &userSettingRepo{db: db}
}

// Create inserts a new user setting.
func (r *userSettingRepo) Create(ctx context.Context, s *models.UserSetting) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_settings (id, user_id, setting_key, setting_value, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.SettingKey, s.SettingValue, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user setting: %w", err)
	}
	return nil
}

// FindUserByAPIKey returns the user ID owning the given API key, or the
// empty string when no setting row matches.
func (r *userSettingRepo) FindUserByAPIKey(ctx context.Context, apiKey string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM user_settings WHERE setting_key = 'api_key' AND setting_value = ?`,
		apiKey,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying api key: %w", err)
	}
	return userID, nil
}

// ListByUser returns all settings for a user.
func (r *userSettingRepo) ListByUser(ctx context.Context, userID string) ([]models.UserSetting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, setting_key, setting_value, created_at
		 FROM user_settings WHERE user_id = ? ORDER BY setting_key`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user settings: %w", err)
	}
	defer rows.Close()

	var settings []models.UserSetting
	for rows.Next() {
		var s models.UserSetting
		if err := rows.Scan(&s.ID, &s.UserID, &s.SettingKey, &s.SettingValue, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user setting row: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}
