package memory

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TurnRecord stores one side of a conversational turn.
type TurnRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	TurnID      string    `json:"turn_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Model       string    `json:"model,omitempty"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists the chat transcript. Prompt history is read from the
// session; the store serves the transcript endpoint, including for sessions
// the janitor has already pruned.
type Store interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
	RecentContext(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error)
	Mode() string
	Close() error
}
