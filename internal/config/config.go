package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ent0n29/groqchat/internal/groq"
)

// Config contains all runtime settings for the chat service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	SessionRetention         time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	GroqClientMode     string
	GroqAPIKey         string
	GroqBaseURL        string
	GroqModels         groq.Models
	GroqDefaultModel   string
	GroqRequestTimeout time.Duration

	MemoryDefault int
	MemoryMax     int

	SamplePromptsPath string

	DatabaseURL string
}

// LoadDotEnv reads .env files into the process environment. Missing files
// are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "groqchat"),
		AllowAnyOrigin:           false,
		GroqClientMode:           strings.ToLower(envOrDefault("GROQ_CLIENT_MODE", "auto")),
		GroqAPIKey:               stringsTrimSpace("GROQ_API_KEY"),
		GroqBaseURL:              envOrDefault("GROQ_BASE_URL", groq.DefaultBaseURL),
		GroqModels:               groq.ParseModels(envOrDefault("GROQ_MODELS", strings.Join(groq.DefaultModels, ","))),
		GroqDefaultModel:         stringsTrimSpace("GROQ_DEFAULT_MODEL"),
		SamplePromptsPath:        envOrDefault("CHAT_SAMPLE_PROMPTS_PATH", "starter_prompts.txt"),
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		MemoryDefault:            5,
		MemoryMax:                10,
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
		SessionRetention:         10 * time.Minute,
		GroqRequestTimeout:       60 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionRetention, err = durationFromEnv("APP_SESSION_RETENTION", cfg.SessionRetention)
	if err != nil {
		return Config{}, err
	}
	cfg.GroqRequestTimeout, err = durationFromEnv("GROQ_REQUEST_TIMEOUT", cfg.GroqRequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryDefault, err = intFromEnv("CHAT_MEMORY_DEFAULT", cfg.MemoryDefault)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryMax, err = intFromEnv("CHAT_MEMORY_MAX", cfg.MemoryMax)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.GroqRequestTimeout <= 0 {
		return Config{}, fmt.Errorf("GROQ_REQUEST_TIMEOUT must be positive")
	}
	if cfg.MemoryMax < 1 {
		return Config{}, fmt.Errorf("CHAT_MEMORY_MAX must be positive")
	}
	if cfg.MemoryDefault < 1 || cfg.MemoryDefault > cfg.MemoryMax {
		return Config{}, fmt.Errorf("CHAT_MEMORY_DEFAULT must be between 1 and CHAT_MEMORY_MAX (%d)", cfg.MemoryMax)
	}
	if len(cfg.GroqModels) == 0 {
		return Config{}, fmt.Errorf("GROQ_MODELS must list at least one model")
	}
	if cfg.GroqDefaultModel == "" {
		cfg.GroqDefaultModel = cfg.GroqModels.Default()
	}
	if !cfg.GroqModels.Valid(cfg.GroqDefaultModel) {
		return Config{}, fmt.Errorf("GROQ_DEFAULT_MODEL %q is not in GROQ_MODELS", cfg.GroqDefaultModel)
	}
	switch cfg.GroqClientMode {
	case "auto", "http":
		if cfg.GroqAPIKey == "" {
			return Config{}, fmt.Errorf("GROQ_API_KEY is required (or set GROQ_CLIENT_MODE=mock)")
		}
	case "mock":
	default:
		return Config{}, fmt.Errorf("invalid GROQ_CLIENT_MODE: %q (expected auto|http|mock)", cfg.GroqClientMode)
	}

	return cfg, nil
}

// ModelChoices lists the selectable models with the default first.
func (c Config) ModelChoices() groq.Models {
	out := groq.Models{c.GroqDefaultModel}
	for _, m := range c.GroqModels {
		if m != c.GroqDefaultModel {
			out = append(out, m)
		}
	}
	return out
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
