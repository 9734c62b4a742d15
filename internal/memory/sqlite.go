package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists the chat transcript in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// database/sql pools connections; SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := initSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initSQLiteSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS chat_turns (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			turn_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			pii_redacted INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_turns_session_created ON chat_turns (session_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveTurn(ctx context.Context, record TurnRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_turns (id, user_id, session_id, turn_id, role, content, model, pii_redacted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.SessionID,
		record.TurnID,
		record.Role,
		record.Content,
		record.Model,
		record.PIIRedacted,
		record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentContext(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	limit = limitOrDefault(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, session_id, turn_id, role, content, model, pii_redacted, created_at
		 FROM chat_turns WHERE session_id=? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent context: %w", err)
	}
	defer rows.Close()

	items := make([]TurnRecord, 0, limit)
	for rows.Next() {
		var (
			r       TurnRecord
			created int64
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.SessionID, &r.TurnID, &r.Role, &r.Content, &r.Model, &r.PIIRedacted, &created); err != nil {
			return nil, fmt.Errorf("scan context row: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate context rows: %w", err)
	}

	reverse(items)
	return items, nil
}

func (s *SQLiteStore) Mode() string { return "sqlite" }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
