package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tomeworks/shiori/internal/embedding"
	"github.com/tomeworks/shiori/internal/models"
	"github.com/tomeworks/shiori/internal/storage"
)

func (s *Server) handleGenerateEmbedding(w http.ResponseWriter, r *http.Request) {
	var req models.EmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("embedding request", zap.String("type", req.Type), zap.Int("chars", len(req.Text)))
	result, err := s.embedder.GenerateEmbedding(r.Context(), req)
	if err != nil {
		s.respondEmbeddingError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGenerateEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req models.BatchEmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		s.respondError(w, http.StatusBadRequest, "texts is required")
		return
	}
	s.logger.Debug("batch embedding request", zap.Int("texts", len(req.Texts)))
	result, err := s.embedder.GenerateEmbeddings(r.Context(), req)
	if err != nil {
		s.respondEmbeddingError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.String("mode", req.Mode))
	queryResult, err := s.embedder.GenerateEmbedding(r.Context(), models.EmbeddingRequest{
		Text: req.Query,
		Type: models.InputTypeQuery,
	})
	if err != nil {
		s.respondEmbeddingError(w, err)
		return
	}
	response, err := s.aggregator.Search(r.Context(), req, queryResult.Vector)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	var cfg models.BackfillConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Info("backfill request",
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("dry_run", cfg.DryRun),
		zap.String("user_id", cfg.UserID),
	)
	result, err := s.backfiller.Run(r.Context(), cfg)
	if err != nil {
		s.logger.Error("backfill failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleBackfillStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	pending, err := s.backfiller.GetPendingCount(r.Context(), userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	completed, err := s.backfiller.GetCompletedCount(r.Context(), userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{
		"pending":   pending,
		"completed": completed,
	})
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	origin, err := s.storage.GetSource(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "source not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	threshold := parseFloatQuery(r, "threshold", s.config.Discovery.Threshold)
	limit := parseIntQuery(r, "limit", s.config.Discovery.Limit)

	pool, err := s.storage.ListSourcesEmbedded(r.Context(), origin.UserID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	candidates := s.discoverer.DiscoverSimilarSources(id, pool, threshold, limit)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"source_id":   id,
		"connections": candidates,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pending, err := s.backfiller.GetPendingCount(ctx, "")
	if err != nil {
		s.logger.Error("status: pending count failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	completed, err := s.backfiller.GetCompletedCount(ctx, "")
	if err != nil {
		s.logger.Error("status: completed count failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"pending_embeddings":   pending,
		"completed_embeddings": completed,
		"config": map[string]interface{}{
			"model":         s.embedder.Model(),
			"dimensions":    s.embedder.Dimensions(),
			"database_path": s.config.Storage.DatabasePath,
		},
	})
}

// respondEmbeddingError maps embedding failures onto HTTP statuses: caller
// input problems are 400, provider-side failures (including exhausted
// retries) are 502.
func (s *Server) respondEmbeddingError(w http.ResponseWriter, err error) {
	var pErr *embedding.ProviderError
	switch {
	case errors.Is(err, embedding.ErrEmptyInput), errors.Is(err, embedding.ErrInputTooLong):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &pErr):
		s.logger.Error("embedding provider failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("embedding failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseFloatQuery(r *http.Request, key string, fallback float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
