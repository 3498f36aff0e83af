package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/callforge/callforge/internal/database/models"
)

// customVoiceRepo implements CustomVoiceRepository.
type customVoiceRepo struct {
	db *DB
}

// NewCustomVoiceRepository creates a new CustomVoiceRepository.
func NewCustomVoiceRepository(db *DB) CustomVoiceRepository {
	return &customVoiceRepo{db: db}
}

// Create inserts a new custom voice, generating its ID and timestamp.
func (r *customVoiceRepo) Create(ctx context.Context, v *models.CustomVoice) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO custom_voices (id, user_id, voice_name, voice_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.VoiceName, v.VoiceID, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting custom voice: %w", err)
	}
	return nil
}

// ListByUser returns a user's custom voices, newest first.
func (r *customVoiceRepo) ListByUser(ctx context.Context, userID string) ([]models.CustomVoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, voice_name, voice_id, created_at
		 FROM custom_voices WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying custom voices: %w", err)
	}
	defer rows.Close()

	var voices []models.CustomVoice
	for rows.Next() {
		var v models.CustomVoice
		if err := rows.Scan(&v.ID, &v.UserID, &v.VoiceName, &v.VoiceID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning custom voice row: %w", err)
		}
		voices = append(voices, v)
	}
	return voices, rows.Err()
}
