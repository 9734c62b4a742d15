package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/groqchat/internal/chat"
	"github.com/ent0n29/groqchat/internal/config"
	"github.com/ent0n29/groqchat/internal/groq"
	"github.com/ent0n29/groqchat/internal/httpapi"
	"github.com/ent0n29/groqchat/internal/memory"
	"github.com/ent0n29/groqchat/internal/observability"
	"github.com/ent0n29/groqchat/internal/samples"
	"github.com/ent0n29/groqchat/internal/session"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Manager
	Chat     *chat.Service
	Metrics  *observability.Metrics
	Store    memory.Store

	// Cleanup should be called on shutdown to release the transcript store.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("memory store init failed: %w", err)
	}

	client, err := groq.NewClient(groq.Config{
		Mode:    cfg.GroqClientMode,
		APIKey:  cfg.GroqAPIKey,
		BaseURL: cfg.GroqBaseURL,
		Timeout: cfg.GroqRequestTimeout,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("groq client init failed: %w", err)
	}

	sampleSource := samples.NewFileSource(cfg.SamplePromptsPath)

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetEndedRetention(cfg.SessionRetention)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	chatService := chat.NewService(sessions, client, store, metrics, chat.Limits{
		Models:        cfg.ModelChoices(),
		MemoryDefault: cfg.MemoryDefault,
		MemoryMax:     cfg.MemoryMax,
	})

	api := httpapi.New(cfg, sessions, chatService, sampleSource, store.Mode(), metrics)

	cleanup := func() error {
		var errs []string
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Chat:     chatService,
		Metrics:  metrics,
		Store:    store,
		Cleanup:  cleanup,
	}, nil
}
