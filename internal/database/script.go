package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/callforge/callforge/internal/database/models"
)

// scriptRepo implements ScriptRepository.
type scriptRepo struct {
	db *DB
}

// NewScriptRepository creates a new ScriptRepository.
func NewScriptRepository(db *DB) ScriptRepository {
	return &scriptRepo{db: db}
}

const scriptColumns = `id, user_id, name, description, company, first_message,
	sections, created_at, updated_at`

// Create inserts a new script, generating its ID and timestamps.
func (r *scriptRepo) Create(ctx context.Context, s *models.Script) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Sections == "" {
		s.Sections = "[]"
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scripts (id, user_id, name, description, company, first_message,
		 sections, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Name, s.Description, s.Company, s.FirstMessage,
		s.Sections, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting script: %w", err)
	}
	return nil
}

// GetByID returns a script by ID, or nil when not found.
func (r *scriptRepo) GetByID(ctx context.Context, id string) (*models.Script, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+scriptColumns+` FROM scripts WHERE id = ?`, id)

	var s models.Script
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Description, &s.Company,
		&s.FirstMessage, &s.Sections, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning script row: %w", err)
	}
	return &s, nil
}

// ListByUser returns a user's scripts, newest first.
func (r *scriptRepo) ListByUser(ctx context.Context, userID string) ([]models.Script, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scriptColumns+` FROM scripts WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying scripts: %w", err)
	}
	defer rows.Close()

	var scripts []models.Script
	for rows.Next() {
		var s models.Script
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Description, &s.Company,
			&s.FirstMessage, &s.Sections, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning script row: %w", err)
		}
		scripts = append(scripts, s)
	}
	return scripts, rows.Err()
}
