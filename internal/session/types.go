package session

import (
	"time"

	"github.com/ent0n29/groqchat/internal/conversation"
)

// CreateRequest defines payload for creating a new chat session.
type CreateRequest struct {
	UserID            string `json:"user_id"`
	Model             string `json:"model"`
	MemoryLength      int    `json:"memory_length"`
	AdditionalContext string `json:"additional_context"`
}

// SettingsUpdate carries the sidebar fields a client may change mid-session.
type SettingsUpdate struct {
	Model             *string `json:"model,omitempty"`
	MemoryLength      *int    `json:"memory_length,omitempty"`
	AdditionalContext *string `json:"additional_context,omitempty"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID         string    `json:"session_id"`
	UserID            string    `json:"user_id"`
	Status            Status    `json:"status"`
	Model             string    `json:"model"`
	MemoryLength      int       `json:"memory_length"`
	AdditionalContext string    `json:"additional_context"`
	StartedAt         time.Time `json:"started_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
	InactivityTTLMS   int64     `json:"inactivity_ttl_ms"`
}

// View is the read model returned by the session lookup endpoint.
type View struct {
	SessionID         string              `json:"session_id"`
	Status            Status              `json:"status"`
	Model             string              `json:"model"`
	MemoryLength      int                 `json:"memory_length"`
	AdditionalContext string              `json:"additional_context"`
	Busy              bool                `json:"busy"`
	Turns             []conversation.Turn `json:"turns"`
	LastActivityAt    time.Time           `json:"last_activity_at"`
}

func NewView(s *Session) View {
	return View{
		SessionID:         s.ID,
		Status:            s.Status,
		Model:             s.Model,
		MemoryLength:      s.MemoryLength,
		AdditionalContext: s.AdditionalContext,
		Busy:              s.ActiveTurnID != "",
		Turns:             s.History.Turns(),
		LastActivityAt:    s.LastActivityAt,
	}
}
