// Package httpserver provides the HTTP and WebSocket control surface for the
// literature pipeline service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/litreview/litreview-service/internal/broadcast"
	"github.com/litreview/litreview-service/internal/pipeline"
)

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP control surface: pipeline start/status/result endpoints,
// the event journal, and the per-session WebSocket stream.
type Server struct {
	router       chi.Router
	httpServer   *http.Server
	registry     *pipeline.Registry
	orchestrator *pipeline.Orchestrator
	broadcaster  *broadcast.Broadcaster
	validate     *validator.Validate
	logger       zerolog.Logger
}

// NewServer creates an HTTP server wired to the pipeline components.
func NewServer(
	cfg Config,
	registry *pipeline.Registry,
	orchestrator *pipeline.Orchestrator,
	broadcaster *broadcast.Broadcaster,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		registry:     registry,
		orchestrator: orchestrator,
		broadcaster:  broadcaster,
		validate:     validator.New(),
		logger:       logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)

		r.Route("/pipeline", func(r chi.Router) {
			r.Post("/start", s.startPipeline)
			r.Get("/status/{sessionID}", s.getPipelineStatus)
			r.Get("/result/{sessionID}", s.getPipelineResult)
		})
		r.Route("/monitoring", func(r chi.Router) {
			r.Get("/events", s.getEvents)
		})
	})

	r.Get("/ws/{sessionID}", s.serveWebSocket)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
