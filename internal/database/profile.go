package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/callforge/callforge/internal/database/models"
)

// profileRepo implements ProfileRepository.
type profileRepo struct {
	db *DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *DB) ProfileRepository {
	return &profileRepo{db: db}
}

// Create inserts a new profile, generating its ID and timestamps.
func (r *profileRepo) Create(ctx context.Context, p *models.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, email, name, company, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, p.Name, p.Company, p.PasswordHash, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}
	return nil
}

// GetByID returns a profile by ID, or nil when not found.
func (r *profileRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, email, name, company, password_hash, created_at, updated_at
		 FROM profiles WHERE id = ?`, id,
	))
}

// GetByEmail returns a profile by email, or nil when not found.
func (r *profileRepo) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, email, name, company, password_hash, created_at, updated_at
		 FROM profiles WHERE email = ?`, email,
	))
}

func (r *profileRepo) scanOne(row *sql.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Company, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning profile row: %w", err)
	}
	return &p, nil
}
