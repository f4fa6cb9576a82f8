package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
)

const createTranscriptsTable = `CREATE TABLE IF NOT EXISTS chat_transcripts (
	session_key TEXT PRIMARY KEY,
	messages    JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresBackend stores each transcript as a JSONB row keyed by session.
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend opens the pgx driver, pings and ensures the table exists.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTranscriptsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure transcripts table: %w", err)
	}

	return &PostgresBackend{db: db}, nil
}

func (p *PostgresBackend) Load(ctx context.Context, key string) ([]models.ChatMessage, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT messages FROM chat_transcripts WHERE session_key = $1`, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}

	var messages []models.ChatMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return messages, nil
}

func (p *PostgresBackend) Save(ctx context.Context, key string, messages []models.ChatMessage) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO chat_transcripts (session_key, messages, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (session_key) DO UPDATE
		 SET messages = EXCLUDED.messages,
		     updated_at = NOW()`,
		key, string(payload),
	)
	if err != nil {
		return fmt.Errorf("upsert transcript: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (p *PostgresBackend) Close() error {
	return p.db.Close()
}
