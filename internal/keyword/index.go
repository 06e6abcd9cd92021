// Package keyword provides the lexical retrieval lane for hybrid search.
package keyword

import "context"

// KeywordIndex defines keyword search over chunk content.
type KeywordIndex interface {
	IndexChunk(ctx context.Context, id string, content string) error
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// KeywordResult is a single keyword search hit. ID is the chunk ID.
type KeywordResult struct {
	ID    string
	Score float64
}

// NormalizeScores maps raw keyword scores to [0,1] by dividing by the max.
// BM25-style scores are unbounded, so this makes them comparable with cosine
// similarities before fusion.
func NormalizeScores(results []*KeywordResult) map[string]float64 {
	normalized := make(map[string]float64)
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}
