package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/groqchat/internal/conversation"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrEnded          = errors.New("session has ended")
	ErrTurnInProgress = errors.New("a turn is already in progress for this session")
	ErrTurnMismatch   = errors.New("turn is not the active turn for this session")
)

type Session struct {
	ID                string               `json:"session_id"`
	UserID            string               `json:"user_id"`
	Status            Status               `json:"status"`
	Model             string               `json:"model"`
	MemoryLength      int                  `json:"memory_length"`
	AdditionalContext string               `json:"additional_context"`
	ActiveTurnID      string               `json:"active_turn_id"`
	History           conversation.History `json:"history"`
	StartedAt         time.Time            `json:"started_at"`
	LastActivityAt    time.Time            `json:"last_activity_at"`
}

type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	inactivityTimeout time.Duration
	endedRetention    time.Duration
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		inactivityTimeout: inactivityTimeout,
		endedRetention:    10 * time.Minute,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// SetEndedRetention controls how long ended sessions stay readable.
func (m *Manager) SetEndedRetention(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.endedRetention = d
	}
}

func (m *Manager) Create(req CreateRequest) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:                uuid.NewString(),
		UserID:            req.UserID,
		Status:            StatusActive,
		Model:             req.Model,
		MemoryLength:      req.MemoryLength,
		AdditionalContext: req.AdditionalContext,
		StartedAt:         now,
		LastActivityAt:    now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// UpdateSettings applies the non-nil fields of u. Values are validated by the caller.
func (m *Manager) UpdateSettings(sessionID string, u SettingsUpdate) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.activeLocked(sessionID)
	if err != nil {
		return nil, err
	}
	if u.Model != nil {
		s.Model = *u.Model
	}
	if u.MemoryLength != nil {
		s.MemoryLength = *u.MemoryLength
	}
	if u.AdditionalContext != nil {
		s.AdditionalContext = *u.AdditionalContext
	}
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

// BeginTurn claims the session's single in-flight slot and returns the new
// turn ID with a snapshot of the session taken under the same lock.
func (m *Manager) BeginTurn(sessionID string) (string, *Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.activeLocked(sessionID)
	if err != nil {
		return "", nil, err
	}
	if s.ActiveTurnID != "" {
		return "", nil, ErrTurnInProgress
	}
	s.ActiveTurnID = uuid.NewString()
	s.LastActivityAt = time.Now().UTC()
	return s.ActiveTurnID, clone(s), nil
}

// CommitTurn appends the answered turn and releases the in-flight slot.
func (m *Manager) CommitTurn(sessionID, turnID, question, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if s.Status != StatusActive {
		return ErrEnded
	}
	if s.ActiveTurnID != turnID {
		return ErrTurnMismatch
	}
	if err := s.History.AppendQuestion(question); err != nil {
		return err
	}
	if err := s.History.AppendAnswer(answer); err != nil {
		return err
	}
	s.ActiveTurnID = ""
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// AbortTurn releases the in-flight slot without touching history.
func (m *Manager) AbortTurn(sessionID, turnID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if s.Status != StatusActive {
		return ErrEnded
	}
	if s.ActiveTurnID != turnID {
		return ErrTurnMismatch
	}
	s.ActiveTurnID = ""
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// End closes the session. A turn still in flight is dropped: its CommitTurn
// reports ErrEnded.
func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusEnded
	s.ActiveTurnID = ""
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) activeLocked(sessionID string) (*Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status != StatusActive {
		return nil, ErrEnded
	}
	return s, nil
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.Status != StatusActive {
			if now.Sub(s.LastActivityAt) >= m.endedRetention {
				delete(m.sessions, id)
			}
			continue
		}
		// Never expire a session while its completion is still running.
		if s.ActiveTurnID != "" {
			continue
		}
		if now.Sub(s.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		expired = append(expired, clone(s))
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	c.History = s.History.Clone()
	return &c
}
