package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/callforge/callforge/internal/database/models"
)

// agentRepo implements AgentRepository.
type agentRepo struct {
	db *DB
}

// NewAgentRepository creates a new AgentRepository.
func NewAgentRepository(db *DB) AgentRepository {
	return &agentRepo{db: db}
}

const agentColumns = `id, user_id, name, voice, status, description, system_prompt,
	first_message, knowledge_base_id, company, agent_type, conversations,
	last_active, created_at, updated_at`

// Create inserts a new agent, generating its ID and timestamps.
func (r *agentRepo) Create(ctx context.Context, a *models.Agent) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO agents (id, user_id, name, voice, status, description, system_prompt,
		 first_message, knowledge_base_id, company, agent_type, conversations,
		 last_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Voice, a.Status, a.Description, a.SystemPrompt,
		a.FirstMessage, a.KnowledgeBaseID, a.Company, a.AgentType, a.Conversations,
		a.LastActive, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting agent: %w", err)
	}
	return nil
}

// GetByID returns an agent by ID, or nil when not found.
func (r *agentRepo) GetByID(ctx context.Context, id string) (*models.Agent, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = ?`, id,
	))
}

// ListByUser returns a user's agents, newest first.
func (r *agentRepo) ListByUser(ctx context.Context, userID string) ([]models.Agent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying agents: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// FindByNumber returns the first agent whose name contains the number or
// whose ID equals it.
func (r *agentRepo) FindByNumber(ctx context.Context, number string) (*models.Agent, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents
		 WHERE name LIKE '%' || ? || '%' OR id = ?
		 LIMIT 1`, number, number,
	))
}

// Count returns the total number of agents.
func (r *agentRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting agents: %w", err)
	}
	return n, nil
}

func (r *agentRepo) scanOne(row *sql.Row) (*models.Agent, error) {
	var a models.Agent
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Voice, &a.Status, &a.Description,
		&a.SystemPrompt, &a.FirstMessage, &a.KnowledgeBaseID, &a.Company,
		&a.AgentType, &a.Conversations, &a.LastActive, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning agent row: %w", err)
	}
	return &a, nil
}

func (r *agentRepo) scanAll(rows *sql.Rows) ([]models.Agent, error) {
	var agents []models.Agent
	for rows.Next() {
		var a models.Agent
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Voice, &a.Status, &a.Description,
			&a.SystemPrompt, &a.FirstMessage, &a.KnowledgeBaseID, &a.Company,
			&a.AgentType, &a.Conversations, &a.LastActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning agent row: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}
