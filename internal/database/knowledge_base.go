package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/callforge/callforge/internal/database/models"
)

// knowledgeBaseRepo implements KnowledgeBaseRepository.
type knowledgeBaseRepo struct {
	db *DB
}

// NewKnowledgeBaseRepository creates a new KnowledgeBaseRepository.
func NewKnowledgeBaseRepository(db *DB) KnowledgeBaseRepository {
	return &knowledgeBaseRepo{db: db}
}

const knowledgeBaseColumns = `id, user_id, title, type, description, content,
	tags, status, date_added, last_modified, created_at, updated_at`

// Create inserts a new knowledge-base entry, generating its ID and stamping
// date_added/last_modified along with the row timestamps.
func (r *knowledgeBaseRepo) Create(ctx context.Context, kb *models.KnowledgeBase) error {
	if kb.ID == "" {
		kb.ID = uuid.NewString()
	}
	if kb.Tags == "" {
		kb.Tags = "[]"
	}
	now := time.Now().UTC()
	kb.DateAdded = now
	kb.LastModified = now
	kb.CreatedAt = now
	kb.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO knowledge_base (id, user_id, title, type, description, content,
		 tags, status, date_added, last_modified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		kb.ID, kb.UserID, kb.Title, kb.Type, kb.Description, kb.Content,
		kb.Tags, kb.Status, kb.DateAdded, kb.LastModified, kb.CreatedAt, kb.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting knowledge base entry: %w", err)
	}
	return nil
}

// GetByID returns an entry by ID, or nil when not found.
func (r *knowledgeBaseRepo) GetByID(ctx context.Context, id string) (*models.KnowledgeBase, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+knowledgeBaseColumns+` FROM knowledge_base WHERE id = ?`, id,
	))
}

// GetPublishedByID returns the entry only when its status is "published".
func (r *knowledgeBaseRepo) GetPublishedByID(ctx context.Context, id string) (*models.KnowledgeBase, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT `+knowledgeBaseColumns+` FROM knowledge_base WHERE id = ? AND status = 'published'`, id,
	))
}

// ListByUser returns a user's entries, newest first.
func (r *knowledgeBaseRepo) ListByUser(ctx context.Context, userID string) ([]models.KnowledgeBase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+knowledgeBaseColumns+` FROM knowledge_base WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge base: %w", err)
	}
	defer rows.Close()

	var entries []models.KnowledgeBase
	for rows.Next() {
		var kb models.KnowledgeBase
		if err := rows.Scan(&kb.ID, &kb.UserID, &kb.Title, &kb.Type, &kb.Description,
			&kb.Content, &kb.Tags, &kb.Status, &kb.DateAdded, &kb.LastModified,
			&kb.CreatedAt, &kb.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning knowledge base row: %w", err)
		}
		entries = append(entries, kb)
	}
	return entries, rows.Err()
}

func (r *knowledgeBaseRepo) scanOne(row *sql.Row) (*models.KnowledgeBase, error) {
	var kb models.KnowledgeBase
	err := row.Scan(&kb.ID, &kb.UserID, &kb.Title, &kb.Type, &kb.Description,
		&kb.Content, &kb.Tags, &kb.Status, &kb.DateAdded, &kb.LastModified,
		&kb.CreatedAt, &kb.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning knowledge base row: %w", err)
	}
	return &kb, nil
}
