package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yojihun/tutor-demo/internal/config"
	"github.com/yojihun/tutor-demo/internal/credential"
	"github.com/yojihun/tutor-demo/internal/export"
	"github.com/yojihun/tutor-demo/internal/httpserver"
	"github.com/yojihun/tutor-demo/internal/provider"
	"github.com/yojihun/tutor-demo/internal/session"
	"github.com/yojihun/tutor-demo/internal/speech"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	creds := credential.NewStore(cfg.GeminiAPIKey, credential.FileStore{Path: cfg.CredentialFile})
	gemini := provider.NewGemini(creds, cfg.GeminiModelID)
	gate := speech.NewGate(nil) // synthesis capability is supplied by the renderer
	hub := httpserver.NewHub()

	ctrl := session.NewController(creds, provider.NewMock()).
		WithRemote(gemini, gemini).
		WithSpeaker(gate).
		WithNotifier(hub)

	e := httpserver.New(httpserver.Handlers{
		Controller: ctrl,
		Creds:      creds,
		Speaker:    gate,
		Exporter:   export.NewClient(),
		ExportURL:  cfg.SheetsURL,
		Hub:        hub,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s (mode=%s)", cfg.HTTPAddress, ctrl.Mode())
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}
