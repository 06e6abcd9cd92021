// Package backfill repairs embedding coverage gaps: it scans the store for
// sources without an embedding, generates one per record, and writes it back.
package backfill

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tomeworks/shiori/internal/models"
	"github.com/tomeworks/shiori/internal/storage"
)

// Batch size defaults for one scan cycle.
const (
	DefaultBatchSize = 10
	MaxBatchSize     = 100
)

// Embedder generates one embedding per request. Retry and backoff behavior
// is owned by the implementation (see embedding.Client).
type Embedder interface {
	GenerateEmbedding(ctx context.Context, req models.EmbeddingRequest) (*models.EmbeddingResult, error)
}

// Service runs backfill passes over the store. Records are processed one at
// a time; the provider's rate limit is respected through sequential calls
// and the embedder's own backoff.
type Service struct {
	store    storage.Store
	embedder Embedder
	logger   *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for per-record progress and failures.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a backfill service.
func NewService(store storage.Store, embedder Embedder, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one backfill: scan for sources missing an embedding in
// batches, embed each record's derived text, and persist the vector. A dry
// run reports the count that would be processed without calling the provider
// or writing anything. One record's failure never aborts the run; it is
// recorded in the result and the scan continues. Cancellation returns the
// partial result; already-persisted embeddings are kept.
func (s *Service) Run(ctx context.Context, cfg models.BackfillConfig) (*models.BackfillResult, error) {
	start := time.Now()
	result := &models.BackfillResult{}
	batchSize := clampBatchSize(cfg.BatchSize)

	if cfg.DryRun {
		pending, err := s.store.CountSourcesMissingEmbedding(ctx, cfg.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to count pending sources: %w", err)
		}
		// With skip_existing off the run would also re-embed every record
		// that already has a vector, so the dry-run count includes them.
		if !cfg.SkipExistingOrDefault() {
			embedded, err := s.store.CountSourcesEmbedded(ctx, cfg.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to count embedded sources: %w", err)
			}
			pending += embedded
		}
		result.Processed = pending
		result.DurationMs = time.Since(start).Milliseconds()
		return result, nil
	}

	// Records that fail keep a null embedding and would be rescanned
	// forever, so each ID is attempted at most once per run. The scan limit
	// grows by the attempted count so failed records at the head of the scan
	// order cannot shadow pending ones behind them.
	attempted := make(map[string]bool)
	for {
		if err := ctx.Err(); err != nil {
			result.DurationMs = time.Since(start).Milliseconds()
			return result, err
		}
		batch, err := s.store.ListSourcesMissingEmbedding(ctx, cfg.UserID, batchSize+len(attempted))
		if err != nil {
			return nil, fmt.Errorf("failed to scan for pending sources: %w", err)
		}
		var fresh []*models.Source
		for _, src := range batch {
			if attempted[src.ID] {
				continue
			}
			fresh = append(fresh, src)
			if len(fresh) == batchSize {
				break
			}
		}
		if len(fresh) == 0 {
			break
		}
		s.processRecords(ctx, fresh, attempted, result)
	}

	if !cfg.SkipExistingOrDefault() {
		embedded, err := s.store.ListSourcesEmbedded(ctx, cfg.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to list embedded sources: %w", err)
		}
		fresh := embedded[:0]
		for _, src := range embedded {
			if !attempted[src.ID] {
				fresh = append(fresh, src)
			}
		}
		s.processRecords(ctx, fresh, attempted, result)
		if err := ctx.Err(); err != nil {
			result.DurationMs = time.Since(start).Milliseconds()
			return result, err
		}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	s.logger.Info("backfill complete",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int64("duration_ms", result.DurationMs),
	)
	return result, nil
}

// ProcessBatch runs exactly one scan-and-process cycle of up to size records
// and returns the number successfully processed.
func (s *Service) ProcessBatch(ctx context.Context, size int, userID string) (int, error) {
	batch, err := s.store.ListSourcesMissingEmbedding(ctx, userID, clampBatchSize(size))
	if err != nil {
		return 0, fmt.Errorf("failed to scan for pending sources: %w", err)
	}
	result := &models.BackfillResult{}
	s.processRecords(ctx, batch, make(map[string]bool), result)
	return result.Processed, nil
}

// GetPendingCount returns the number of sources without an embedding.
func (s *Service) GetPendingCount(ctx context.Context, userID string) (int, error) {
	return s.store.CountSourcesMissingEmbedding(ctx, userID)
}

// GetCompletedCount returns the number of sources with an embedding.
func (s *Service) GetCompletedCount(ctx context.Context, userID string) (int, error) {
	return s.store.CountSourcesEmbedded(ctx, userID)
}

func (s *Service) processRecords(ctx context.Context, batch []*models.Source, attempted map[string]bool, result *models.BackfillResult) {
	for _, src := range batch {
		if ctx.Err() != nil {
			return
		}
		attempted[src.ID] = true
		res, err := s.embedder.GenerateEmbedding(ctx, models.EmbeddingRequest{
			Text: src.EmbeddingText(),
			Type: models.InputTypeSummary,
		})
		if err != nil {
			s.recordFailure(result, src.ID, err)
			continue
		}
		if err := s.store.UpdateSourceEmbedding(ctx, src.ID, res.Vector); err != nil {
			s.recordFailure(result, src.ID, err)
			continue
		}
		result.Processed++
		s.logger.Debug("source embedded", zap.String("source_id", src.ID), zap.Int("tokens", res.Tokens))
	}
}

func (s *Service) recordFailure(result *models.BackfillResult, sourceID string, err error) {
	result.Failed++
	result.Failures = append(result.Failures, models.BackfillFailure{RecordID: sourceID, Error: err.Error()})
	s.logger.Warn("backfill record failed", zap.String("source_id", sourceID), zap.Error(err))
}

func clampBatchSize(n int) int {
	if n <= 0 {
		return DefaultBatchSize
	}
	if n > MaxBatchSize {
		return MaxBatchSize
	}
	return n
}
