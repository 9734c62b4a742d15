package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ent0n29/groqchat/internal/app"
	"github.com/ent0n29/groqchat/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("dotenv error: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	built, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			log.Printf("cleanup failed: %v", err)
		}
	}()
	log.Printf("groq client mode=%s store=%s models=%v", cfg.GroqClientMode, built.Store.Mode(), built.Chat.Limits().Models)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           built.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	built.Sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
