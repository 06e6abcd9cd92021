package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomeworks/shiori/internal/models"
	"github.com/tomeworks/shiori/internal/vector"
)

// MemoryStore is an in-memory Store for tests and small deployments.
// Behavior mirrors SQLiteStore, including scan ordering by creation.
type MemoryStore struct {
	mu          sync.RWMutex
	sources     map[string]*models.Source
	chunks      map[string]*models.ContentChunk
	sourceOrder []string
	chunkOrder  []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sources: make(map[string]*models.Source),
		chunks:  make(map[string]*models.ContentChunk),
	}
}

// CreateSource inserts a source, assigning an ID when none is set.
func (m *MemoryStore) CreateSource(ctx context.Context, src *models.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if src.ID == "" {
		src.ID = uuid.New().String()
	}
	if _, exists := m.sources[src.ID]; exists {
		return fmt.Errorf("source already exists: %s", src.ID)
	}
	now := time.Now()
	src.CreatedAt = now
	src.UpdatedAt = now
	cp := *src
	m.sources[src.ID] = &cp
	m.sourceOrder = append(m.sourceOrder, src.ID)
	return nil
}

// GetSource returns a source by ID.
func (m *MemoryStore) GetSource(ctx context.Context, id string) (*models.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: source %s", ErrNotFound, id)
	}
	cp := *src
	return &cp, nil
}

// DeleteSource removes a source and its chunks (cascade).
func (m *MemoryStore) DeleteSource(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; !ok {
		return fmt.Errorf("%w: source %s", ErrNotFound, id)
	}
	delete(m.sources, id)
	m.sourceOrder = removeID(m.sourceOrder, id)
	for chunkID, chunk := range m.chunks {
		if chunk.SourceID == id {
			delete(m.chunks, chunkID)
			m.chunkOrder = removeID(m.chunkOrder, chunkID)
		}
	}
	return nil
}

// ListSourcesMissingEmbedding returns up to limit sources without an embedding.
func (m *MemoryStore) ListSourcesMissingEmbedding(ctx context.Context, userID string, limit int) ([]*models.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Source
	for _, id := range m.sourceOrder {
		src := m.sources[id]
		if src.HasEmbedding() {
			continue
		}
		if userID != "" && src.UserID != userID {
			continue
		}
		cp := *src
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ListSourcesEmbedded returns all sources with an embedding.
func (m *MemoryStore) ListSourcesEmbedded(ctx context.Context, userID string) ([]*models.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Source
	for _, id := range m.sourceOrder {
		src := m.sources[id]
		if !src.HasEmbedding() {
			continue
		}
		if userID != "" && src.UserID != userID {
			continue
		}
		cp := *src
		out = append(out, &cp)
	}
	return out, nil
}

// UpdateSourceEmbedding writes an embedding onto a source.
func (m *MemoryStore) UpdateSourceEmbedding(ctx context.Context, id string, embedding []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[id]
	if !ok {
		return fmt.Errorf("%w: source %s", ErrNotFound, id)
	}
	src.Embedding = append([]float64(nil), embedding...)
	src.UpdatedAt = time.Now()
	return nil
}

// CountSourcesMissingEmbedding counts sources without an embedding.
func (m *MemoryStore) CountSourcesMissingEmbedding(ctx context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, src := range m.sources {
		if !src.HasEmbedding() && (userID == "" || src.UserID == userID) {
			count++
		}
	}
	return count, nil
}

// CountSourcesEmbedded counts sources with an embedding.
func (m *MemoryStore) CountSourcesEmbedded(ctx context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, src := range m.sources {
		if src.HasEmbedding() && (userID == "" || src.UserID == userID) {
			count++
		}
	}
	return count, nil
}

// CreateChunk inserts a chunk, assigning an ID when none is set.
func (m *MemoryStore) CreateChunk(ctx context.Context, chunk *models.ContentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if chunk.ID == "" {
		chunk.ID = uuid.New().String()
	}
	if _, exists := m.chunks[chunk.ID]; exists {
		return fmt.Errorf("chunk already exists: %s", chunk.ID)
	}
	chunk.CreatedAt = time.Now()
	cp := *chunk
	m.chunks[chunk.ID] = &cp
	m.chunkOrder = append(m.chunkOrder, chunk.ID)
	return nil
}

// GetChunk returns a chunk by ID.
func (m *MemoryStore) GetChunk(ctx context.Context, id string) (*models.ContentChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunk, ok := m.chunks[id]
	if !ok {
		return nil, fmt.Errorf("%w: chunk %s", ErrNotFound, id)
	}
	cp := *chunk
	return &cp, nil
}

// GetChunksBySourceID returns a source's chunks in chunk order.
func (m *MemoryStore) GetChunksBySourceID(ctx context.Context, sourceID string) ([]*models.ContentChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ContentChunk
	for _, id := range m.chunkOrder {
		if m.chunks[id].SourceID == sourceID {
			cp := *m.chunks[id]
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

// UpdateChunkEmbedding writes an embedding onto a chunk.
func (m *MemoryStore) UpdateChunkEmbedding(ctx context.Context, id string, embedding []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunk, ok := m.chunks[id]
	if !ok {
		return fmt.Errorf("%w: chunk %s", ErrNotFound, id)
	}
	chunk.Embedding = append([]float64(nil), embedding...)
	return nil
}

// SearchChunks ranks embedded chunks by cosine similarity.
func (m *MemoryStore) SearchChunks(ctx context.Context, query []float64, opts SearchOptions) ([]*ChunkMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []*ChunkMatch
	for _, id := range m.chunkOrder {
		chunk := m.chunks[id]
		if len(chunk.Embedding) == 0 {
			continue
		}
		src, ok := m.sources[chunk.SourceID]
		if !ok {
			continue
		}
		if opts.UserID != "" && src.UserID != opts.UserID {
			continue
		}
		similarity, err := vector.CosineSimilarity(query, chunk.Embedding)
		if err != nil {
			continue
		}
		if similarity < opts.Threshold {
			continue
		}
		chunkCp := *chunk
		srcCp := *src
		matches = append(matches, &ChunkMatch{Chunk: &chunkCp, Source: &srcCp, Similarity: similarity})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}

// SearchSummaries ranks embedded sources by cosine similarity.
func (m *MemoryStore) SearchSummaries(ctx context.Context, query []float64, opts SearchOptions) ([]*SummaryMatch, error) {
	sources, err := m.ListSourcesEmbedded(ctx, opts.UserID)
	if err != nil {
		return nil, err
	}
	var matches []*SummaryMatch
	for _, src := range sources {
		similarity, err := vector.CosineSimilarity(query, src.Embedding)
		if err != nil {
			continue
		}
		if similarity < opts.Threshold {
			continue
		}
		matches = append(matches, &SummaryMatch{Source: src, Similarity: similarity})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
