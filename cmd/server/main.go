// RepCoach - Claims Voice Trainer Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/repcoach/repcoach/internal/api"
	"github.com/repcoach/repcoach/internal/config"
	"github.com/repcoach/repcoach/internal/identity"
	"github.com/repcoach/repcoach/internal/middleware"
	"github.com/repcoach/repcoach/internal/persona"
	"github.com/repcoach/repcoach/internal/progress"
	"github.com/repcoach/repcoach/internal/store"
	"github.com/repcoach/repcoach/internal/transcript"
	"github.com/repcoach/repcoach/internal/transport"
	"github.com/repcoach/repcoach/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	registry, err := persona.NewRegistry(persona.Catalog())
	if err != nil {
		slog.Error("Failed to build persona registry", "error", err)
		os.Exit(1)
	}
	personaIDs := make([]string, 0)
	for _, p := range registry.List() {
		personaIDs = append(personaIDs, p.ID)
	}
	slog.Info("Persona registry ready", "personas", len(personaIDs))

	tracker := progress.NewTracker(repo, personaIDs)

	transcriptLogger, err := transcript.NewLogger(transcript.LoggerConfig{
		Enabled:   cfg.TranscriptLog.Enabled,
		Dir:       cfg.TranscriptLog.Dir,
		QueueSize: cfg.TranscriptLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcriptLogger.Close(); closeErr != nil {
			slog.Error("Failed to close transcript logger", "error", closeErr)
		}
	}()

	// Initialize services.
	sessions := api.NewSessionManager(api.SessionManagerConfig{
		Registry:    registry,
		Tracker:     tracker,
		Repo:        repo,
		Credentials: transport.NewHTTPCredentialProvider(cfg.CredentialURL),
		NewTransport: func(handler transport.Handler) transport.Transport {
			return transport.NewClient(cfg.RuntimeURL, handler, logger)
		},
		Transcripts: transcriptLogger,
		CompanyName: cfg.CompanyName,
		Logger:      logger,
	})

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, registry, tracker, sessions)
	sessionHandler := api.NewSessionHandler(baseHandler, cfg.ConnectTimeout)
	healthHandler := api.NewHealthHandler(repo)
	eventsHandler := api.NewEventsHandler(sessions, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	sessionHandler.RegisterRoutes(r)

	// WebSocket endpoint for the UI event feed.
	r.Get("/ws/events", eventsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Create server. The event feed holds connections open, so no write
	// timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	sessions.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
