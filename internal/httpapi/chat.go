package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/groqchat/internal/chat"
	"github.com/ent0n29/groqchat/internal/conversation"
	"github.com/ent0n29/groqchat/internal/groq"
	"github.com/ent0n29/groqchat/internal/samples"
	"github.com/ent0n29/groqchat/internal/session"
)

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "chat service not configured")
		return
	}
	var req askRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	reply, err := s.chat.Ask(r.Context(), chi.URLParam(r, "id"), req.Question)
	if err != nil {
		respondChatError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "chat service not configured")
		return
	}
	var req session.SettingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "settings body is required")
		return
	}
	sess, err := s.chat.UpdateSettings(chi.URLParam(r, "id"), req)
	if err != nil {
		respondChatError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session.NewView(sess))
}

const (
	defaultTranscriptLimit = 50
	maxTranscriptLimit     = 200
)

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "chat service not configured")
		return
	}
	limit := defaultTranscriptLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxTranscriptLimit)
	}

	id := chi.URLParam(r, "id")
	records, err := s.chat.Transcript(r.Context(), id, limit)
	if err != nil {
		respondChatError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"store_mode": s.storeMode,
		"records":    records,
	})
}

func (s *Server) handleSamplePrompt(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"prompt": s.samplePrompt(),
	})
}

// samplePrompt falls back to an empty input when no prompt is available.
func (s *Server) samplePrompt() string {
	if s.samples == nil {
		return ""
	}
	p, err := s.samples.Pick()
	if err != nil {
		reason := "unavailable"
		if errors.Is(err, samples.ErrNoPromptsAvailable) {
			reason = "empty"
		}
		s.metrics.SamplePromptFails.WithLabelValues(reason).Inc()
		return ""
	}
	return p
}

type chatError struct {
	status    int
	code      string
	retryable bool
}

// classifyChatError maps domain errors onto HTTP responses.
func classifyChatError(err error) chatError {
	switch {
	case errors.Is(err, chat.ErrEmptyQuestion):
		return chatError{status: http.StatusBadRequest, code: "empty_question"}
	case errors.Is(err, chat.ErrUnknownModel):
		return chatError{status: http.StatusBadRequest, code: "unknown_model"}
	case errors.Is(err, chat.ErrInvalidMemoryLength):
		return chatError{status: http.StatusBadRequest, code: "invalid_memory_length"}
	case errors.Is(err, session.ErrNotFound):
		return chatError{status: http.StatusNotFound, code: "session_not_found"}
	case errors.Is(err, session.ErrEnded):
		return chatError{status: http.StatusGone, code: "session_ended"}
	case errors.Is(err, session.ErrTurnInProgress), errors.Is(err, session.ErrTurnMismatch), errors.Is(err, conversation.ErrQuestionPending):
		return chatError{status: http.StatusConflict, code: "turn_in_progress", retryable: true}
	case errors.Is(err, groq.ErrAuthentication):
		return chatError{status: http.StatusBadGateway, code: "upstream_auth"}
	case errors.Is(err, groq.ErrRateLimit):
		return chatError{status: http.StatusTooManyRequests, code: "upstream_rate_limited", retryable: true}
	case errors.Is(err, groq.ErrTransport):
		return chatError{status: http.StatusBadGateway, code: "upstream_transport", retryable: groq.Retryable(err)}
	default:
		return chatError{status: http.StatusInternalServerError, code: "internal"}
	}
}

func respondChatError(w http.ResponseWriter, err error) {
	ce := classifyChatError(err)
	respondJSON(w, ce.status, errorResponse{Error: err.Error(), Code: ce.code, Retryable: ce.retryable})
}
