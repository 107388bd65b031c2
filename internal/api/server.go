// Package api serves the control surface for the command scheduler.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/overviewd/internal/command"
	"github.com/mattjoyce/overviewd/internal/dispatch"
	"github.com/mattjoyce/overviewd/internal/events"
)

// SchedulerService defines the scheduler operations the API exposes.
type SchedulerService interface {
	Submit(t command.Type) *command.Command
	CancelAll()
	HeadIs(t command.Type) bool
	Snapshot() dispatch.Snapshot
}

// Config holds API server configuration.
type Config struct {
	Listen string
	// APIKey is the bearer token protecting mutating and queue-reading
	// endpoints. Empty disables auth (local single-user setups).
	APIKey string
	// ConfigFingerprint is reported by /healthz.
	ConfigFingerprint string
}

// Server is the HTTP control API.
type Server struct {
	config    Config
	sched     SchedulerService
	events    *events.Hub
	metrics   http.Handler
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server. hub and metricsHandler may be nil.
func New(config Config, sched SchedulerService, hub *events.Hub, metricsHandler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		sched:     sched,
		events:    hub,
		metrics:   metricsHandler,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:        s.config.Listen,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// SSE clients hold the response open; no write timeout.
		IdleTimeout: 60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoints.
	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	// Protected API.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/command/{type}", s.handleSubmit)
		r.Get("/queue", s.handleQueue)
		r.Get("/queue/head/{type}", s.handleHead)
		r.Delete("/queue", s.handleCancelAll)
		r.Get("/events", s.handleEvents)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
