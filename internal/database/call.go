package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/callforge/callforge/internal/database/models"
)

// callRepo implements CallRepository.
type callRepo struct {
	db *DB
}

// NewCallRepository creates a new CallRepository.
func NewCallRepository(db *DB) CallRepository {
	return &callRepo{db: db}
}

const callColumns = `id, contact_id, campaign_id, phone, duration, status,
	direction, recording_url, transcript, external_call_id, started_at,
	ended_at, notes, outcome, sentiment, user_id, extracted_data,
	call_status, rescheduled_for, objective_met, created_at, updated_at`

// Create inserts a new call record. Call rows are append-only; there is no
// update path.
func (r *callRepo) Create(ctx context.Context, c *models.Call) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO calls (id, contact_id, campaign_id, phone, duration, status,
		 direction, recording_url, transcript, external_call_id, started_at,
		 ended_at, notes, outcome, sentiment, user_id, extracted_data,
		 call_status, rescheduled_for, objective_met, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ContactID, c.CampaignID, c.Phone, c.Duration, c.Status,
		c.Direction, c.RecordingURL, c.Transcript, c.ExternalCallID, c.StartedAt,
		c.EndedAt, c.Notes, c.Outcome, c.Sentiment, c.UserID, c.ExtractedData,
		c.CallStatus, c.RescheduledFor, c.ObjectiveMet, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting call: %w", err)
	}
	return nil
}

// GetByID returns a call by ID, or nil when not found.
func (r *callRepo) GetByID(ctx context.Context, id string) (*models.Call, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE id = ?`, id)

	var c models.Call
	err := scanCall(row.Scan, &c)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning call row: %w", err)
	}
	return &c, nil
}

// ListExtractedByCampaign returns a campaign's calls carrying extracted
// data, joined to the contact's name, oldest first.
func (r *callRepo) ListExtractedByCampaign(ctx context.Context, campaignID string) ([]models.CallWithContact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.contact_id, c.campaign_id, c.phone, c.duration, c.status,
		 c.direction, c.recording_url, c.transcript, c.external_call_id, c.started_at,
		 c.ended_at, c.notes, c.outcome, c.sentiment, c.user_id, c.extracted_data,
		 c.call_status, c.rescheduled_for, c.objective_met, c.created_at, c.updated_at,
		 ct.name
		 FROM calls c
		 JOIN contacts ct ON ct.id = c.contact_id
		 WHERE c.campaign_id = ? AND c.extracted_data IS NOT NULL
		 ORDER BY c.started_at`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("querying extracted calls: %w", err)
	}
	defer rows.Close()

	var calls []models.CallWithContact
	for rows.Next() {
		var c models.CallWithContact
		scan := func(dest ...any) error {
			return rows.Scan(append(dest, &c.ContactName)...)
		}
		if err := scanCall(scan, &c.Call); err != nil {
			return nil, fmt.Errorf("scanning call row: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// CountByDirection returns call counts grouped by direction.
func (r *callRepo) CountByDirection(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT direction, COUNT(*) FROM calls GROUP BY direction`)
	if err != nil {
		return nil, fmt.Errorf("counting calls: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var direction string
		var n int64
		if err := rows.Scan(&direction, &n); err != nil {
			return nil, fmt.Errorf("scanning call count row: %w", err)
		}
		counts[direction] = n
	}
	return counts, rows.Err()
}

// scanCall reads one call row through the given scan function.
func scanCall(scan func(dest ...any) error, c *models.Call) error {
	return scan(&c.ID, &c.ContactID, &c.CampaignID, &c.Phone, &c.Duration, &c.Status,
		&c.Direction, &c.RecordingURL, &c.Transcript, &c.ExternalCallID, &c.StartedAt,
		&c.EndedAt, &c.Notes, &c.Outcome, &c.Sentiment, &c.UserID, &c.ExtractedData,
		&c.CallStatus, &c.RescheduledFor, &c.ObjectiveMet, &c.CreatedAt, &c.UpdatedAt)
}
