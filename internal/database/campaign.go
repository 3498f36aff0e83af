package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/callforge/callforge/internal/database/models"
)

// campaignRepo implements CampaignRepository.
type campaignRepo struct {
	db *DB
}

// NewCampaignRepository creates a new CampaignRepository.
func NewCampaignRepository(db *DB) CampaignRepository {
	return &campaignRepo{db: db}
}

const campaignColumns = `id, user_id, name, description, agent_id, script_id,
	knowledge_base_id, status, contact_ids, settings, extracted_data_config,
	created_at, updated_at`

// Create inserts a new campaign, generating its ID and timestamps. JSON
// columns default to empty values when unset.
func (r *campaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ContactIDs == "" {
		c.ContactIDs = "[]"
	}
	if c.Settings == "" {
		c.Settings = "{}"
	}
	if c.ExtractedDataConfig == "" {
		c.ExtractedDataConfig = "[]"
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO campaigns (id, user_id, name, description, agent_id, script_id,
		 knowledge_base_id, status, contact_ids, settings, extracted_data_config,
		 created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Description, c.AgentID, c.ScriptID,
		c.KnowledgeBaseID, c.Status, c.ContactIDs, c.Settings, c.ExtractedDataConfig,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting campaign: %w", err)
	}
	return nil
}

// GetByID returns a campaign by ID, or nil when not found.
func (r *campaignRepo) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id,
	))
}

// ListByUser returns a user's campaigns, newest first.
func (r *campaignRepo) ListByUser(ctx context.Context, userID string) ([]models.Campaign, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying campaigns: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListActiveByUser returns a user's active campaigns, oldest first, so
// first-match selection is stable.
func (r *campaignRepo) ListActiveByUser(ctx context.Context, userID string) ([]models.Campaign, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE user_id = ? AND status = 'active' ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying active campaigns: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// Count returns the total number of campaigns.
func (r *campaignRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting campaigns: %w", err)
	}
	return n, nil
}

func (r *campaignRepo) scanOne(row *sql.Row) (*models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.AgentID, &c.ScriptID,
		&c.KnowledgeBaseID, &c.Status, &c.ContactIDs, &c.Settings, &c.ExtractedDataConfig,
		&c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning campaign row: %w", err)
	}
	return &c, nil
}

func (r *campaignRepo) scanAll(rows *sql.Rows) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.AgentID, &c.ScriptID,
			&c.KnowledgeBaseID, &c.Status, &c.ContactIDs, &c.Settings, &c.ExtractedDataConfig,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning campaign row: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// campaignContactRepo implements CampaignContactRepository.
type campaignContactRepo struct {
	db *DB
}

// NewCampaignContactRepository creates a new CampaignContactRepository.
func NewCampaignContactRepository(db *DB) CampaignContactRepository {
	return &campaignContactRepo{db: db}
}

// AddContacts inserts one membership row per contact ID.
func (r *campaignContactRepo) AddContacts(ctx context.Context, campaignID string, contactIDs []string) error {
	if len(contactIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	now := time.Now().UTC()
	for _, contactID := range contactIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO campaign_contacts (id, campaign_id, contact_id, created_at)
			 VALUES (?, ?, ?, ?)`,
			uuid.NewString(), campaignID, contactID, now,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting campaign contact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing campaign contacts: %w", err)
	}
	return nil
}

// Exists reports whether a membership row ties the contact to the campaign.
func (r *campaignContactRepo) Exists(ctx context.Context, campaignID, contactID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campaign_contacts WHERE campaign_id = ? AND contact_id = ?`,
		campaignID, contactID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying campaign contact: %w", err)
	}
	return n > 0, nil
}
