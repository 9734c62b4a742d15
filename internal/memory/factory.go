package memory

import (
	"context"
	"fmt"
	"strings"
)

// NewStore picks a backend from the URL scheme: postgres:// or postgresql://
// for PostgreSQL, sqlite:// or file: for SQLite, and in-memory when empty.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	u := strings.TrimSpace(databaseURL)
	lower := strings.ToLower(u)
	switch {
	case u == "":
		return NewInMemoryStore(), nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return NewPostgresStore(ctx, u)
	case strings.HasPrefix(lower, "sqlite://"):
		return NewSQLiteStore(ctx, u[len("sqlite://"):])
	case strings.HasPrefix(lower, "file:"):
		return NewSQLiteStore(ctx, u)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme in %q", redactURL(u))
	}
}

func redactURL(u string) string {
	at := strings.LastIndex(u, "@")
	scheme := strings.Index(u, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return u
	}
	return u[:scheme+3] + "***" + u[at:]
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 10
	}
	return limit
}
