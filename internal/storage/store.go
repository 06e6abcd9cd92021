// Package storage defines the persistence boundary for sources, chunks, and
// their embeddings, including approximate nearest-neighbour queries.
package storage

import (
	"context"
	"errors"

	"github.com/tomeworks/shiori/internal/models"
)

// ErrNotFound is returned when a source or chunk does not exist.
var ErrNotFound = errors.New("record not found")

// SearchOptions filter a nearest-neighbour query.
type SearchOptions struct {
	// Threshold is the minimum similarity for a match.
	Threshold float64
	// Limit caps the number of matches returned.
	Limit int
	// UserID restricts matches to one owner when non-empty.
	UserID string
}

// ChunkMatch is a chunk-level nearest-neighbour hit with its parent source.
type ChunkMatch struct {
	Chunk      *models.ContentChunk
	Source     *models.Source
	Similarity float64
}

// SummaryMatch is a source-level nearest-neighbour hit.
type SummaryMatch struct {
	Source     *models.Source
	Similarity float64
}

// Store defines persistence for sources, chunks, and embeddings.
type Store interface {
	// Source operations
	CreateSource(ctx context.Context, src *models.Source) error
	GetSource(ctx context.Context, id string) (*models.Source, error)
	DeleteSource(ctx context.Context, id string) error

	// Embedding coverage
	ListSourcesMissingEmbedding(ctx context.Context, userID string, limit int) ([]*models.Source, error)
	ListSourcesEmbedded(ctx context.Context, userID string) ([]*models.Source, error)
	UpdateSourceEmbedding(ctx context.Context, id string, embedding []float64) error
	CountSourcesMissingEmbedding(ctx context.Context, userID string) (int, error)
	CountSourcesEmbedded(ctx context.Context, userID string) (int, error)

	// Chunk operations
	CreateChunk(ctx context.Context, chunk *models.ContentChunk) error
	GetChunk(ctx context.Context, id string) (*models.ContentChunk, error)
	GetChunksBySourceID(ctx context.Context, sourceID string) ([]*models.ContentChunk, error)
	UpdateChunkEmbedding(ctx context.Context, id string, embedding []float64) error

	// Nearest-neighbour search
	SearchChunks(ctx context.Context, query []float64, opts SearchOptions) ([]*ChunkMatch, error)
	SearchSummaries(ctx context.Context, query []float64, opts SearchOptions) ([]*SummaryMatch, error)

	Close() error
}
