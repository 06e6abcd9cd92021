// Package server provides the HTTP API for Shiori.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tomeworks/shiori/internal/backfill"
	"github.com/tomeworks/shiori/internal/config"
	"github.com/tomeworks/shiori/internal/discovery"
	"github.com/tomeworks/shiori/internal/embedding"
	"github.com/tomeworks/shiori/internal/search"
	"github.com/tomeworks/shiori/internal/storage"
)

// Server is the HTTP server for the Shiori API.
type Server struct {
	embedder   *embedding.Client
	aggregator *search.Aggregator
	backfiller *backfill.Service
	discoverer *discovery.Discoverer
	storage    storage.Store
	config     *config.Config
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	embedder *embedding.Client,
	aggregator *search.Aggregator,
	backfiller *backfill.Service,
	discoverer *discovery.Discoverer,
	storage storage.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		embedder:   embedder,
		aggregator: aggregator,
		backfiller: backfiller,
		discoverer: discoverer,
		storage:    storage,
		config:     cfg,
		logger:     logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Post("/api/embeddings", s.handleGenerateEmbedding)
	r.Post("/api/embeddings/batch", s.handleGenerateEmbeddings)
	r.Post("/api/search", s.handleSearch)
	r.Post("/api/backfill", s.handleBackfill)
	r.Get("/api/backfill/status", s.handleBackfillStatus)
	r.Get("/api/sources/{id}/connections", s.handleConnections)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
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
