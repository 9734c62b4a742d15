package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ent0n29/groqchat/internal/samples"
)

type onboardingCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type onboardingStatusResponse struct {
	ClientMode string            `json:"client_mode"`
	StoreMode  string            `json:"store_mode"`
	Checks     []onboardingCheck `json:"checks"`
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, _ *http.Request) {
	mode := strings.ToLower(strings.TrimSpace(s.cfg.GroqClientMode))
	if mode == "" {
		mode = "auto"
	}

	checks := make([]onboardingCheck, 0, 4)
	if mode == "mock" {
		checks = append(checks, onboardingCheck{
			ID:     "groq_client",
			Status: "warn",
			Label:  "Completion backend is mock",
			Detail: "Replies echo the question instead of calling Groq.",
			Fix:    "Set GROQ_API_KEY and GROQ_CLIENT_MODE=auto.",
		})
	} else {
		checks = append(checks, onboardingCheck{
			ID:     "groq_client",
			Status: "ok",
			Label:  "Groq API key",
			Detail: "present",
		})
	}

	checks = append(checks, s.samplePromptCheck())

	switch s.storeMode {
	case "postgres", "sqlite":
		checks = append(checks, onboardingCheck{
			ID:     "transcript_store",
			Status: "ok",
			Label:  "Transcript persistence",
			Detail: s.storeMode,
		})
	default:
		checks = append(checks, onboardingCheck{
			ID:     "transcript_store",
			Status: "warn",
			Label:  "Transcript persistence",
			Detail: "in-memory only",
			Fix:    "Set DATABASE_URL (postgres:// or sqlite://) to keep transcripts across restarts.",
		})
	}

	respondJSON(w, http.StatusOK, onboardingStatusResponse{
		ClientMode: mode,
		StoreMode:  s.storeMode,
		Checks:     checks,
	})
}

func (s *Server) samplePromptCheck() onboardingCheck {
	check := onboardingCheck{ID: "sample_prompts", Label: "Starter prompts"}
	if s.samples == nil {
		check.Status = "warn"
		check.Detail = "not configured"
		return check
	}
	_, err := s.samples.Pick()
	switch {
	case err == nil:
		check.Status = "ok"
		check.Detail = "loaded"
	case errors.Is(err, samples.ErrNoPromptsAvailable):
		check.Status = "warn"
		check.Detail = "file has no prompts"
		check.Fix = "Add one prompt per line to CHAT_SAMPLE_PROMPTS_PATH."
	default:
		check.Status = "warn"
		check.Detail = err.Error()
		check.Fix = fmt.Sprintf("Create %s or point CHAT_SAMPLE_PROMPTS_PATH at a prompt file.", s.cfg.SamplePromptsPath)
	}
	return check
}
