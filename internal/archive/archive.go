// Package archive mirrors completed call records to a PostgreSQL warehouse.
// The mirror is best effort: ingestion never depends on it, and a down
// warehouse only produces warnings.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/callforge/callforge/internal/database/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store writes call records to PostgreSQL.
type Store struct {
	db *sql.DB
}

// New opens a PostgreSQL connection and runs pending migrations.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgresql: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgresql: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	slog.Info("call archive opened")
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending SQL migration files in order.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version := strings.TrimSuffix(entry.Name(), ".sql")

		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = $1", version).Scan(&count)
		if err != nil {
			return fmt.Errorf("checking migration %s: %w", version, err)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", version, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %s: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", version, err)
		}

		slog.Info("applied archive migration", "version", version)
	}

	return nil
}

// ArchiveCall upserts one call record. Re-ingesting the same call id
// overwrites the previous copy.
func (s *Store) ArchiveCall(ctx context.Context, call *models.Call, contactName string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO archived_calls (
			id, contact_id, contact_name, campaign_id, phone, duration,
			status, direction, call_status, recording_url, transcript,
			external_call_id, started_at, ended_at, notes, outcome,
			sentiment, user_id, extracted_data, objective_met, archived_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, NOW())
		ON CONFLICT (id) DO UPDATE SET
			status         = EXCLUDED.status,
			call_status    = EXCLUDED.call_status,
			duration       = EXCLUDED.duration,
			recording_url  = EXCLUDED.recording_url,
			transcript     = EXCLUDED.transcript,
			ended_at       = EXCLUDED.ended_at,
			notes          = EXCLUDED.notes,
			outcome        = EXCLUDED.outcome,
			sentiment      = EXCLUDED.sentiment,
			extracted_data = EXCLUDED.extracted_data,
			objective_met  = EXCLUDED.objective_met,
			archived_at    = NOW()`,
		call.ID, call.ContactID, contactName, call.CampaignID, call.Phone,
		call.Duration, call.Status, call.Direction, call.CallStatus,
		call.RecordingURL, call.Transcript, call.ExternalCallID,
		call.StartedAt, call.EndedAt, call.Notes, call.Outcome,
		call.Sentiment, call.UserID, call.ExtractedData, call.ObjectiveMet,
	)
	if err != nil {
		return fmt.Errorf("archiving call: %w", err)
	}
	return nil
}
