// Package server provides the HTTP API and the built-in search page.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/engine"
)

// Server is the HTTP server for the Kensaku API.
type Server struct {
	engine *engine.Engine
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server

	rebuildGuard chan struct{}
}

// NewServer creates a server with the given dependencies.
func NewServer(eng *engine.Engine, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		engine:       eng,
		config:       cfg,
		logger:       logger,
		rebuildGuard: make(chan struct{}, 1),
	}
}

// Router builds the route table. Exposed separately so tests can drive the
// handlers without binding a socket.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleSearchPage)
	r.Get("/raw/{id}", s.handleRawDocument)

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/rebuild", s.handleRebuild)
	r.Post("/api/v1/optimize", s.handleOptimize)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.engine.Metrics().Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
