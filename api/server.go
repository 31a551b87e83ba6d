// Package api provides the HTTP server for fintel.
//
// It serves the dashboard, a JSON API for the orchestrator and the direct
// lookups, and a WebSocket stream of run progress events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/seenimoa/fintel/internal/agent"
	"github.com/seenimoa/fintel/internal/config"
	"github.com/seenimoa/fintel/internal/datasource"
	"github.com/seenimoa/fintel/internal/logging"
	"github.com/seenimoa/fintel/web"
)

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	cfg       *config.Config
	runner    agent.Runner
	providers *datasource.Providers
	wsHub     *WSHub
	pages     *template.Template
	validate  *validator.Validate
	log       *slog.Logger
	version   string
	runTime   time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithVersion sets the version reported by the health endpoints.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, runner agent.Runner, providers *datasource.Providers, opts ...Option) (*Server, error) {
	if runner == nil || providers == nil {
		return nil, errors.New("api: runner and providers are required")
	}

	pages, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse dashboard templates: %w", err)
	}

	srv := &Server{
		cfg:       cfg,
		runner:    runner,
		providers: providers,
		wsHub:     NewWSHub(),
		pages:     pages,
		validate:  validator.New(),
		log:       logging.Discard(),
		version:   "dev",
		runTime:   cfg.LLM.Timeout() + 5*time.Second,
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// PublishEvent forwards an orchestrator event to WebSocket clients.
// It has the agent.Observer signature.
func (s *Server) PublishEvent(ev agent.Event) {
	s.wsHub.Broadcast(WSMessage{Type: string(ev.Type), Data: ev})
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when ctx
// is cancelled or the process receives SIGINT/SIGTERM.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.runTime + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go s.wsHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// The WebSocket stream is long-lived and stays outside the request timeout.
	r.Get("/api/v1/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.runTime))

		// Dashboard
		r.Get("/", s.handleDashboard)
		r.Post("/intel", s.handleDashboardIntel)
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.StaticFS())))

		// Health check
		r.Get("/health", s.handleHealth)

		r.Route("/api/v1", func(r chi.Router) {
			// Health (also available at /health)
			r.Get("/health", s.handleHealth)

			// Orchestrator
			r.Post("/intel", s.handleIntel)

			// Direct lookups, no LLM
			r.Get("/tools/{tool}", s.handleTool)
			r.Get("/brief/{country}", s.handleBrief)

			// Configuration
			r.Get("/config", s.handleGetConfig)
			r.Get("/config/keys", s.handleGetConfigKeys)
		})
	})

	return r
}

// ============================================================
// Envelope
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// statusForRunError maps orchestrator errors to HTTP status codes.
func statusForRunError(err error) int {
	var runErr *agent.RunError
	switch {
	case errors.Is(err, agent.ErrEmptyCountry):
		return http.StatusBadRequest
	case errors.Is(err, agent.ErrMissingAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &runErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
