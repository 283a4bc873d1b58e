// Package server provides the HTTP server of the serve command.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/robotarm/armsuite/internal/config"
	"github.com/robotarm/armsuite/internal/handlers"
	"github.com/robotarm/armsuite/internal/metrics"
	"github.com/robotarm/armsuite/internal/middleware"
	"github.com/robotarm/armsuite/internal/services"
	"github.com/robotarm/armsuite/pkg/logger"
)

// Server represents the HTTP server.
type Server struct {
	cfg           *config.Config
	log           *logger.Logger
	metrics       *metrics.Metrics
	httpServer    *http.Server
	healthHandler *handlers.HealthHandler
	runHandler    *handlers.RunHandler
	listener      net.Listener
	running       bool
	mu            sync.RWMutex
}

// New creates a new Server instance.
func New(cfg *config.Config, log *logger.Logger, m *metrics.Metrics, svc services.RunService) *Server {
	s := &Server{
		cfg:           cfg,
		log:           log,
		metrics:       m,
		healthHandler: handlers.NewHealthHandler(),
		runHandler:    handlers.NewRunHandler(svc),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      s.buildMiddlewareChain(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) buildMiddlewareChain(handler http.Handler) http.Handler {
	return middleware.New(
		middleware.Metrics(s.metrics),
		middleware.RequestID(),
		middleware.Logging(s.log),
	).Then(handler)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.healthHandler.Health)
	mux.HandleFunc("GET /ready", s.healthHandler.Ready)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/v1/cases", s.runHandler.ListCases)
	mux.HandleFunc("POST /api/v1/runs", s.runHandler.Trigger)
	mux.HandleFunc("GET /api/v1/runs", s.runHandler.List)
	mux.HandleFunc("GET /api/v1/runs/latest", s.runHandler.Latest)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	s.runHandler.Get(w, r, r.PathValue("id"))
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	// Listen first so Addr reports the real port when Port is 0.
	listener, err := net.Listen("tcp", s.cfg.Server.Address())
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	s.log.Info("server starting", "address", listener.Addr().String())

	err = s.httpServer.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server shutting down")

	s.healthHandler.SetReady(false)

	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil {
		s.log.Error("shutdown error", "error", err)
		return err
	}

	s.log.Info("server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// HealthHandler returns the health handler.
func (s *Server) HealthHandler() *handlers.HealthHandler {
	return s.healthHandler
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
