// Package main implements the kropbot relay entry point. The relay sits
// between the steering crowd and the rover: it buffers operator intents,
// answers rover polls, and fans telemetry out to observers.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfitzp/kropbot/internal/api"
	"github.com/mfitzp/kropbot/internal/audit"
	"github.com/mfitzp/kropbot/internal/auth"
	"github.com/mfitzp/kropbot/internal/config"
	"github.com/mfitzp/kropbot/internal/history"
	"github.com/mfitzp/kropbot/internal/intent"
	"github.com/mfitzp/kropbot/internal/relay"
	"github.com/mfitzp/kropbot/internal/telemetry"
)

const Version = "1.0.0"

func main() {
	log.Printf("Starting kropbot relay v%s", Version)

	// Step 1: Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully")

	// Step 2: Initialize telemetry hub
	telemetryHub := telemetry.NewHub(&cfg.Relay)
	log.Println("Telemetry hub initialized")

	// Step 3: Initialize audit logger
	auditLogger, err := audit.NewLogger(cfg.Relay.AuditDir)
	if err != nil {
		log.Fatalf("Failed to initialize audit logger: %v", err)
	}
	log.Println("Audit logger initialized")

	// Step 4: Open history store
	store, err := history.Open(cfg.Relay.HistoryPath)
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}
	log.Println("History store opened")

	// Step 5: Create intent buffer and coordinator
	buffer := intent.NewBuffer(cfg.Control.InstructionDuration())
	coordinator := relay.NewCoordinator(buffer, telemetryHub, store, auditLogger)

	janitorDone := make(chan struct{})
	go buffer.Janitor(janitorDone, cfg.Relay.EvictionInterval())

	// Step 6: Set up authentication
	var middleware *auth.Middleware
	if cfg.Auth.Secret != "" {
		verifier, err := auth.NewVerifier(cfg.Auth.Secret)
		if err != nil {
			log.Fatalf("Failed to create token verifier: %v", err)
		}
		middleware = auth.NewMiddleware(verifier)
		log.Println("Authentication enabled")
	} else {
		middleware = auth.NewMiddleware(nil)
		log.Println("WARNING: no auth secret configured, running open (development mode)")
	}

	// Step 7: Create and start API server
	server := api.NewServer(coordinator, telemetryHub, middleware,
		cfg.Relay.ReadTimeout(), cfg.Relay.WriteTimeout(), cfg.Relay.IdleTimeout())

	log.Printf("Starting HTTP server on %s", cfg.Relay.Addr)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Relay.Addr); err != nil {
			serverErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	log.Printf("kropbot relay started successfully")
	log.Printf("Health endpoint: http://localhost%s/api/v1/health", cfg.Relay.Addr)

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		log.Printf("Server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	close(janitorDone)

	telemetryHub.Stop()
	log.Println("Telemetry hub stopped")

	if err := store.Close(); err != nil {
		log.Printf("Error closing history store: %v", err)
	}

	if err := auditLogger.Close(); err != nil {
		log.Printf("Error closing audit logger: %v", err)
	}

	if err := server.Stop(ctx); err != nil {
		log.Printf("Error stopping HTTP server: %v", err)
	} else {
		log.Println("HTTP server stopped gracefully")
	}

	log.Println("kropbot relay shutdown complete")
}
