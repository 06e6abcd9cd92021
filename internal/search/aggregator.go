// Package search aggregates nearest-neighbour matches into ranked, grouped,
// highlighted results, optionally fused with the keyword lane.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tomeworks/shiori/internal/keyword"
	"github.com/tomeworks/shiori/internal/models"
	"github.com/tomeworks/shiori/internal/scoring"
	"github.com/tomeworks/shiori/internal/storage"
)

// Aggregator runs chunk and summary search against the store and, in hybrid
// mode, fuses the semantic lane with keyword evidence.
type Aggregator struct {
	store           storage.Store
	keywordIndex    keyword.KeywordIndex
	weights         scoring.Weights
	highlightWindow int
	logger          *zap.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets a logger for search diagnostics.
func WithLogger(l *zap.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = l }
}

// WithWeights overrides the default hybrid weights.
func WithWeights(w scoring.Weights) AggregatorOption {
	return func(a *Aggregator) { a.weights = w }
}

// WithHighlightWindow overrides the highlight truncation window.
func WithHighlightWindow(n int) AggregatorOption {
	return func(a *Aggregator) { a.highlightWindow = n }
}

// NewAggregator creates an aggregator. keywordIndex may be nil; hybrid mode
// then fails at query time.
func NewAggregator(store storage.Store, keywordIndex keyword.KeywordIndex, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		store:           store,
		keywordIndex:    keywordIndex,
		weights:         scoring.DefaultWeights(),
		highlightWindow: DefaultHighlightWindow,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Search executes one search request against a pre-computed query embedding
// and returns ranked, grouped, highlighted results.
func (a *Aggregator) Search(ctx context.Context, req models.SearchRequest, queryEmbedding []float64) (*models.EnhancedSearchResponse, error) {
	startTime := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		matches []models.ChunkSearchResult
		err     error
	)
	switch req.Mode {
	case models.SearchModeSummaries:
		matches, err = a.searchSummaries(ctx, req, queryEmbedding)
	case models.SearchModeChunks:
		matches, err = a.searchChunks(ctx, req, queryEmbedding)
	case models.SearchModeHybrid:
		matches, err = a.searchHybrid(ctx, req, queryEmbedding)
	}
	if err != nil {
		return nil, err
	}

	for i := range matches {
		content := matches[i].HighlightedContent
		matches[i].HighlightedContent = Highlight(content, req.Query, a.highlightWindow)
	}

	groups := groupBySource(matches)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].BestScore > groups[j].BestScore })

	// Hybrid keeps fewer groups: two lanes were over-fetched into the pool.
	keepGroups := req.Limit
	if req.Mode == models.SearchModeHybrid {
		keepGroups = req.Limit / 2
		if keepGroups < 1 {
			keepGroups = 1
		}
	}
	if len(groups) > keepGroups {
		groups = groups[:keepGroups]
	}

	results := flattenGroups(groups, req.Limit)
	a.logger.Debug("search complete",
		zap.String("mode", req.Mode),
		zap.Int("groups", len(groups)),
		zap.Int("results", len(results)),
	)
	return &models.EnhancedSearchResponse{
		Results:         results,
		Total:           len(results),
		SearchMode:      req.Mode,
		GroupedBySource: true,
		QueryTime:       time.Since(startTime).Milliseconds(),
	}, nil
}

// searchChunks runs the semantic lane with a 2x over-fetch; grouping will
// collapse several chunks per source, so extra candidates are needed to fill
// the requested limit.
func (a *Aggregator) searchChunks(ctx context.Context, req models.SearchRequest, queryEmbedding []float64) ([]models.ChunkSearchResult, error) {
	raw, err := a.store.SearchChunks(ctx, queryEmbedding, storage.SearchOptions{
		Threshold: req.Threshold,
		Limit:     2 * req.Limit,
		UserID:    req.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("chunk search failed: %w", err)
	}
	out := make([]models.ChunkSearchResult, len(raw))
	for i, m := range raw {
		out[i] = models.ChunkSearchResult{
			Chunk:              m.Chunk,
			Source:             m.Source,
			RelevanceScore:     m.Similarity,
			HighlightedContent: m.Chunk.Content,
		}
	}
	return out, nil
}

func (a *Aggregator) searchSummaries(ctx context.Context, req models.SearchRequest, queryEmbedding []float64) ([]models.ChunkSearchResult, error) {
	raw, err := a.store.SearchSummaries(ctx, queryEmbedding, storage.SearchOptions{
		Threshold: req.Threshold,
		Limit:     req.Limit,
		UserID:    req.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("summary search failed: %w", err)
	}
	out := make([]models.ChunkSearchResult, len(raw))
	for i, m := range raw {
		out[i] = models.ChunkSearchResult{
			Source:             m.Source,
			RelevanceScore:     m.Similarity,
			HighlightedContent: m.Source.Summary,
		}
	}
	return out, nil
}

// searchHybrid fuses the semantic lane with keyword evidence. A match found
// by only one lane keeps that lane's score verbatim (see scoring).
func (a *Aggregator) searchHybrid(ctx context.Context, req models.SearchRequest, queryEmbedding []float64) ([]models.ChunkSearchResult, error) {
	if a.keywordIndex == nil {
		return nil, fmt.Errorf("hybrid mode requires a keyword index")
	}

	semantic, err := a.store.SearchChunks(ctx, queryEmbedding, storage.SearchOptions{
		Threshold: req.Threshold,
		Limit:     2 * req.Limit,
		UserID:    req.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("chunk search failed: %w", err)
	}
	keywordHits, err := a.keywordIndex.Search(ctx, req.Query, 2*req.Limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	keywordScores := keyword.NormalizeScores(keywordHits)

	var out []models.ChunkSearchResult
	seen := make(map[string]bool, len(semantic))
	for _, m := range semantic {
		sem := m.Similarity
		var kw *float64
		if score, ok := keywordScores[m.Chunk.ID]; ok {
			kw = &score
		}
		scored, err := scoring.CalculateHybridScore(&sem, kw, &a.weights)
		if err != nil {
			return nil, err
		}
		seen[m.Chunk.ID] = true
		out = append(out, models.ChunkSearchResult{
			Chunk:              m.Chunk,
			Source:             m.Source,
			RelevanceScore:     scored.FinalScore,
			HighlightedContent: m.Chunk.Content,
		})
	}

	// Keyword-only hits, in the keyword lane's ranked order.
	for _, hit := range keywordHits {
		if seen[hit.ID] {
			continue
		}
		score := keywordScores[hit.ID]
		if score < req.Threshold {
			continue
		}
		chunk, err := a.store.GetChunk(ctx, hit.ID)
		if err != nil {
			a.logger.Warn("keyword hit has no stored chunk", zap.String("chunk_id", hit.ID), zap.Error(err))
			continue
		}
		src, err := a.store.GetSource(ctx, chunk.SourceID)
		if err != nil {
			continue
		}
		if req.UserID != "" && src.UserID != req.UserID {
			continue
		}
		scored, err := scoring.CalculateHybridScore(nil, &score, &a.weights)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ChunkSearchResult{
			Chunk:              chunk,
			Source:             src,
			RelevanceScore:     scored.FinalScore,
			HighlightedContent: chunk.Content,
		})
	}
	return out, nil
}

// groupBySource buckets matches by parent source, preserving first-seen
// order. BestScore is the max relevance in the bucket.
func groupBySource(matches []models.ChunkSearchResult) []models.GroupedSearchResults {
	index := make(map[string]int)
	var groups []models.GroupedSearchResults
	for _, m := range matches {
		sourceID := m.Source.ID
		i, ok := index[sourceID]
		if !ok {
			i = len(groups)
			index[sourceID] = i
			groups = append(groups, models.GroupedSearchResults{
				Source:  m.Source,
				Summary: m.Source.Summary,
			})
		}
		g := &groups[i]
		g.Chunks = append(g.Chunks, m)
		if m.RelevanceScore > g.BestScore {
			g.BestScore = m.RelevanceScore
		}
		g.TotalMatches = len(g.Chunks)
	}
	return groups
}

// flattenGroups merges the kept groups' matches back into one ranked list,
// truncated to limit. Within a group, matches are ordered by score with the
// store's original order preserved on ties.
func flattenGroups(groups []models.GroupedSearchResults, limit int) []models.ChunkSearchResult {
	results := make([]models.ChunkSearchResult, 0, limit)
	for _, g := range groups {
		chunks := append([]models.ChunkSearchResult(nil), g.Chunks...)
		sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].RelevanceScore > chunks[j].RelevanceScore })
		results = append(results, chunks...)
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
