// Package chat runs one question/answer turn: it windows the session history
// into a prompt, asks the completion client, and commits the turn only when
// a reply arrives.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ent0n29/groqchat/internal/groq"
	"github.com/ent0n29/groqchat/internal/memory"
	"github.com/ent0n29/groqchat/internal/observability"
	"github.com/ent0n29/groqchat/internal/policy"
	"github.com/ent0n29/groqchat/internal/prompt"
	"github.com/ent0n29/groqchat/internal/session"
)

var (
	ErrEmptyQuestion       = errors.New("question is empty")
	ErrUnknownModel        = errors.New("unknown model")
	ErrInvalidMemoryLength = errors.New("memory length out of range")
)

// Limits bounds the user-facing settings.
type Limits struct {
	Models        groq.Models
	MemoryDefault int
	MemoryMax     int
}

// Reply is the result of a successful turn.
type Reply struct {
	SessionID string        `json:"session_id"`
	TurnID    string        `json:"turn_id"`
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	Model     string        `json:"model"`
	Latency   time.Duration `json:"-"`
	LatencyMS int64         `json:"latency_ms"`
}

type Service struct {
	sessions *session.Manager
	client   groq.Client
	store    memory.Store
	metrics  *observability.Metrics
	limits   Limits
}

func NewService(sessions *session.Manager, client groq.Client, store memory.Store, metrics *observability.Metrics, limits Limits) *Service {
	if limits.MemoryMax <= 0 {
		limits.MemoryMax = 10
	}
	if limits.MemoryDefault <= 0 || limits.MemoryDefault > limits.MemoryMax {
		limits.MemoryDefault = min(5, limits.MemoryMax)
	}
	return &Service{
		sessions: sessions,
		client:   client,
		store:    store,
		metrics:  metrics,
		limits:   limits,
	}
}

func (s *Service) Limits() Limits { return s.limits }

// NormalizeCreate fills defaults and validates a new session request.
func (s *Service) NormalizeCreate(req session.CreateRequest) (session.CreateRequest, error) {
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}
	req.Model = strings.TrimSpace(req.Model)
	if req.Model == "" {
		req.Model = s.limits.Models.Default()
	}
	if err := s.validateModel(req.Model); err != nil {
		return req, err
	}
	if req.MemoryLength == 0 {
		req.MemoryLength = s.limits.MemoryDefault
	}
	if err := s.validateMemory(req.MemoryLength); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Service) UpdateSettings(sessionID string, u session.SettingsUpdate) (*session.Session, error) {
	if u.Model != nil {
		m := strings.TrimSpace(*u.Model)
		if err := s.validateModel(m); err != nil {
			return nil, err
		}
		u.Model = &m
	}
	if u.MemoryLength != nil {
		if err := s.validateMemory(*u.MemoryLength); err != nil {
			return nil, err
		}
	}
	return s.sessions.UpdateSettings(sessionID, u)
}

// Ask runs one turn. On failure the session history is left exactly as it was.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (Reply, error) {
	if strings.TrimSpace(question) == "" {
		return Reply{}, ErrEmptyQuestion
	}

	turnID, snap, err := s.sessions.BeginTurn(sessionID)
	if err != nil {
		return Reply{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = s.sessions.AbortTurn(sessionID, turnID)
		}
	}()

	history := snap.History.Clone()
	if err := history.AppendQuestion(question); err != nil {
		return Reply{}, err
	}
	text, err := prompt.RenderPrompt(history.Questions, history.Answers, snap.MemoryLength)
	if err != nil {
		return Reply{}, fmt.Errorf("render prompt: %w", err)
	}
	if s.metrics != nil {
		s.metrics.PromptChars.Observe(float64(len(text)))
	}

	start := time.Now()
	answer, err := s.client.Complete(ctx, text, snap.Model)
	latency := time.Since(start)
	if err != nil {
		if s.metrics != nil {
			kind := string(groq.KindOf(err))
			if kind == "" {
				kind = "other"
			}
			s.metrics.CompletionErrors.WithLabelValues(kind).Inc()
		}
		return Reply{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveCompletion(snap.Model, latency)
	}

	if err := s.sessions.CommitTurn(sessionID, turnID, question, answer); err != nil {
		return Reply{}, err
	}
	committed = true

	s.persist(ctx, snap, turnID, question, answer)

	return Reply{
		SessionID: sessionID,
		TurnID:    turnID,
		Question:  question,
		Answer:    answer,
		Model:     snap.Model,
		Latency:   latency,
		LatencyMS: latency.Milliseconds(),
	}, nil
}

// persist writes the transcript. Store failures are logged, not surfaced:
// the turn already succeeded and lives in the session history.
func (s *Service) persist(ctx context.Context, snap *session.Session, turnID, question, answer string) {
	if s.store == nil {
		return
	}
	now := time.Now().UTC()
	for _, rec := range []struct{ role, content string }{
		{memory.RoleUser, question},
		{memory.RoleAssistant, answer},
	} {
		content, redacted := policy.RedactPII(rec.content)
		err := s.store.SaveTurn(ctx, memory.TurnRecord{
			UserID:      snap.UserID,
			SessionID:   snap.ID,
			TurnID:      turnID,
			Role:        rec.role,
			Content:     content,
			Model:       snap.Model,
			PIIRedacted: redacted,
			CreatedAt:   now,
		})
		if err != nil {
			log.Printf("transcript save failed session=%s turn=%s: %v", snap.ID, turnID, err)
			return
		}
		now = now.Add(time.Microsecond)
	}
}

// Transcript returns up to limit persisted records for a session, oldest
// first. It reads the store, so it still answers after the session itself has
// been pruned; an id unknown to both yields session.ErrNotFound.
func (s *Service) Transcript(ctx context.Context, sessionID string, limit int) ([]memory.TurnRecord, error) {
	var records []memory.TurnRecord
	if s.store != nil {
		var err error
		records, err = s.store.RecentContext(ctx, sessionID, limit)
		if err != nil {
			return nil, fmt.Errorf("load transcript: %w", err)
		}
	}
	if len(records) == 0 {
		if _, err := s.sessions.Get(sessionID); err != nil {
			return nil, err
		}
		records = []memory.TurnRecord{}
	}
	return records, nil
}

func (s *Service) validateModel(model string) error {
	if len(s.limits.Models) > 0 && !s.limits.Models.Valid(model) {
		return fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return nil
}

func (s *Service) validateMemory(n int) error {
	if n < 1 || n > s.limits.MemoryMax {
		return fmt.Errorf("%w: %d (want 1-%d)", ErrInvalidMemoryLength, n, s.limits.MemoryMax)
	}
	return nil
}
