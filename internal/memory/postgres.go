package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the chat transcript in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_turns (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			turn_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			pii_redacted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_turns_session_created ON chat_turns (session_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveTurn(ctx context.Context, record TurnRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_turns (id, user_id, session_id, turn_id, role, content, model, pii_redacted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID,
		record.UserID,
		record.SessionID,
		record.TurnID,
		record.Role,
		record.Content,
		record.Model,
		record.PIIRedacted,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentContext(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	limit = limitOrDefault(limit)

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, session_id, turn_id, role, content, model, pii_redacted, created_at
		 FROM chat_turns WHERE session_id=$1 ORDER BY created_at DESC LIMIT $2`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent context: %w", err)
	}
	defer rows.Close()

	items := make([]TurnRecord, 0, limit)
	for rows.Next() {
		var r TurnRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.SessionID, &r.TurnID, &r.Role, &r.Content, &r.Model, &r.PIIRedacted, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan context row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate context rows: %w", err)
	}

	reverse(items)
	return items, nil
}

func (s *PostgresStore) Mode() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// reverse puts newest-first query results back into chronological order.
func reverse(items []TurnRecord) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
