package groq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Client turns one fully assembled prompt into one completion.
type Client interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// Config controls client construction.
type Config struct {
	Mode    string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

const DefaultBaseURL = "https://api.groq.com/openai/v1"

var ErrMissingAPIKey = errors.New("groq api key is required")

func NewClient(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto", "http":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, ErrMissingAPIKey
		}
		return NewHTTPClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported groq client mode %q", cfg.Mode)
	}
}
