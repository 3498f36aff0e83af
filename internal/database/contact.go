package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/callforge/callforge/internal/database/models"
	"github.com/callforge/callforge/internal/phone"
)

// contactRepo implements ContactRepository.
type contactRepo struct {
	db *DB
}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository(db *DB) ContactRepository {
	return &contactRepo{db: db}
}

const contactColumns = `id, user_id, name, email, phone, address, city, state,
	zip_code, status, last_called, created_at, updated_at`

// Create inserts a new contact, generating its ID and timestamps.
func (r *contactRepo) Create(ctx context.Context, c *models.Contact) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (id, user_id, name, email, phone, address, city, state,
		 zip_code, status, last_called, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Address, c.City, c.State,
		c.ZipCode, c.Status, c.LastCalled, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting contact: %w", err)
	}
	return nil
}

// GetByID returns a contact by ID, or nil when not found.
func (r *contactRepo) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id,
	))
}

// ListByUser returns a user's contacts, newest first.
func (r *contactRepo) ListByUser(ctx context.Context, userID string) ([]models.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// FindByPhone normalizes the input, scans all contacts in insertion order,
// and returns the first whose normalized stored phone matches exactly.
// Formatting differences in stored numbers make an indexed equality query
// unreliable, so the comparison happens here; the linear scan stays behind
// this method so an indexed lookup can replace it without touching callers.
func (r *contactRepo) FindByPhone(ctx context.Context, phoneNumber string) (*models.Contact, error) {
	normalized := phone.Normalize(phoneNumber)
	if normalized == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE phone IS NOT NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}
	defer rows.Close()

	contacts, err := r.scanAll(rows)
	if err != nil {
		return nil, err
	}

	for i := range contacts {
		if contacts[i].Phone != nil && phone.Normalize(*contacts[i].Phone) == normalized {
			return &contacts[i], nil
		}
	}
	return nil, nil
}

// UpdateLastCalled stamps last_called and updated_at on a contact.
func (r *contactRepo) UpdateLastCalled(ctx context.Context, id string, lastCalled, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET last_called = ?, updated_at = ? WHERE id = ?`,
		lastCalled, updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("updating contact last_called: %w", err)
	}
	return nil
}

// Count returns the total number of contacts.
func (r *contactRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting contacts: %w", err)
	}
	return n, nil
}

func (r *contactRepo) scanOne(row *sql.Row) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address,
		&c.City, &c.State, &c.ZipCode, &c.Status, &c.LastCalled, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning contact row: %w", err)
	}
	return &c, nil
}

func (r *contactRepo) scanAll(rows *sql.Rows) ([]models.Contact, error) {
	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address,
			&c.City, &c.State, &c.ZipCode, &c.Status, &c.LastCalled, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
