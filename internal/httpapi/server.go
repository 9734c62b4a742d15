package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/groqchat/internal/chat"
	"github.com/ent0n29/groqchat/internal/config"
	"github.com/ent0n29/groqchat/internal/observability"
	"github.com/ent0n29/groqchat/internal/samples"
	"github.com/ent0n29/groqchat/internal/session"
)

type Server struct {
	cfg       config.Config
	sessions  *session.Manager
	chat      *chat.Service
	samples   samples.Source
	storeMode string
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
	static    http.Handler
}

func New(cfg config.Config, sessions *session.Manager, chatService *chat.Service, sampleSource samples.Source, storeMode string, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		sessions:  sessions,
		chat:      chatService,
		samples:   sampleSource,
		storeMode: storeMode,
		metrics:   metrics,
		static:    newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser pages may drive a session.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/chat/config", s.handleUISettings)
	r.Get("/v1/chat/sample-prompt", s.handleSamplePrompt)
	r.Get("/v1/chat/status", s.handleOnboardingStatus)
	r.Post("/v1/chat/session", s.handleCreateSession)
	r.Get("/v1/chat/session/ws", s.handleSessionWS)
	r.Get("/v1/chat/session/{id}", s.handleGetSession)
	r.Get("/v1/chat/session/{id}/transcript", s.handleTranscript)
	r.Patch("/v1/chat/session/{id}/settings", s.handleUpdateSettings)
	r.Post("/v1/chat/session/{id}/ask", s.handleAsk)
	r.Post("/v1/chat/session/{id}/end", s.handleEndSession)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"store_mode": s.storeMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.chat == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "chat service not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"store_mode":      s.storeMode,
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "chat service not configured")
		return
	}
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req, err := s.chat.NormalizeCreate(req)
	if err != nil {
		respondChatError(w, err)
		return
	}

	sess := s.sessions.Create(req)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:         sess.ID,
		UserID:            sess.UserID,
		Status:            sess.Status,
		Model:             sess.Model,
		MemoryLength:      sess.MemoryLength,
		AdditionalContext: sess.AdditionalContext,
		StartedAt:         sess.StartedAt,
		LastActivityAt:    sess.LastActivityAt,
		InactivityTTLMS:   s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondChatError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session.NewView(sess))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, session.NewView(sess))
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		// A bare io.EOF means no body at all; a truncated document is
		// io.ErrUnexpectedEOF and must be rejected.
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
