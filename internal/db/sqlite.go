package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RichardoC/padi-bot/internal/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// The ledger only records what each exchange cost. Conversation content
// is never written, so sessions still end with the process.
const schema = `
CREATE TABLE IF NOT EXISTS usage (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    model TEXT NOT NULL,
    reply_type TEXT NOT NULL,
    prompt_tokens INTEGER NOT NULL DEFAULT 0,
    completion_tokens INTEGER NOT NULL DEFAULT 0,
    total_tokens INTEGER NOT NULL DEFAULT 0,
    attempts INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS usage_session_idx ON usage(session_id, created_at);`

type Database struct {
	db *sql.DB
}

// New opens (or creates) the ledger at dbPath. ":memory:" gives a
// throwaway ledger.
func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

// RecordUsage stores rec, filling in ID and CreatedAt when unset.
func (db *Database) RecordUsage(ctx context.Context, rec *models.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := db.db.ExecContext(ctx, `
        INSERT INTO usage (id, session_id, model, reply_type, prompt_tokens,
            completion_tokens, total_tokens, attempts, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Model, rec.ReplyType, rec.PromptTokens,
		rec.CompletionTokens, rec.TotalTokens, rec.Attempts, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// RecentUsage returns the latest records of a session, newest first.
func (db *Database) RecentUsage(ctx context.Context, sessionID string, limit int) ([]models.UsageRecord, error) {
	rows, err := db.db.QueryContext(ctx, `
        SELECT id, session_id, model, reply_type, prompt_tokens,
            completion_tokens, total_tokens, attempts, created_at
        FROM usage
        WHERE session_id = ?
        ORDER BY created_at DESC
        LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	records := make([]models.UsageRecord, 0)
	for rows.Next() {
		var rec models.UsageRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Model, &rec.ReplyType, &rec.PromptTokens,
			&rec.CompletionTokens, &rec.TotalTokens, &rec.Attempts, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summary aggregates every record of a session.
func (db *Database) Summary(ctx context.Context, sessionID string) (*models.UsageSummary, error) {
	sum := &models.UsageSummary{SessionID: sessionID}
	err := db.db.QueryRowContext(ctx, `
        SELECT COUNT(*),
            COALESCE(SUM(completion_tokens), 0),
            COALESCE(SUM(total_tokens), 0),
            COALESCE(SUM(CASE WHEN reply_type = 'error' THEN 1 ELSE 0 END), 0)
        FROM usage
        WHERE session_id = ?`, sessionID).
		Scan(&sum.Exchanges, &sum.CompletionTokens, &sum.TotalTokens, &sum.Errors)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}
	return sum, nil
}

// DeleteSession removes a session's records.
func (db *Database) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := db.db.ExecContext(ctx, "DELETE FROM usage WHERE session_id = ?", sessionID)
	return err
}
