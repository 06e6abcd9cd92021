// Package discovery finds related sources by embedding similarity.
package discovery

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/tomeworks/shiori/internal/models"
	"github.com/tomeworks/shiori/internal/vector"
)

// Defaults for DiscoverSimilarSources.
const (
	DefaultThreshold = 0.7
	DefaultLimit     = 10
)

// Discoverer computes connection candidates between sources.
type Discoverer struct {
	logger *zap.Logger
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithLogger sets a logger for discovery diagnostics.
func WithLogger(l *zap.Logger) DiscovererOption {
	return func(d *Discoverer) { d.logger = l }
}

// NewDiscoverer creates a discoverer.
func NewDiscoverer(opts ...DiscovererOption) *Discoverer {
	d := &Discoverer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscoverSimilarSources finds candidates in pool whose embedding is at
// least threshold-similar to the source identified by sourceID. A source
// that is absent from the pool or has no embedding yet has no discoverable
// connections, so the result is empty rather than an error. Candidates
// without an embedding are skipped. Results are sorted by strength
// descending and truncated to limit. A non-positive threshold or limit uses
// the defaults.
func (d *Discoverer) DiscoverSimilarSources(sourceID string, pool []*models.Source, threshold float64, limit int) []models.ConnectionCandidate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var origin *models.Source
	for _, src := range pool {
		if src.ID == sourceID {
			origin = src
			break
		}
	}
	if origin == nil || !origin.HasEmbedding() {
		return []models.ConnectionCandidate{}
	}

	candidates := make([]models.ConnectionCandidate, 0)
	for _, src := range pool {
		if src.ID == sourceID || !src.HasEmbedding() {
			continue
		}
		similarity, err := vector.CosineSimilarity(origin.Embedding, src.Embedding)
		if err != nil {
			d.logger.Warn("candidate skipped", zap.String("source_id", src.ID), zap.Error(err))
			continue
		}
		if similarity < threshold {
			continue
		}
		candidates = append(candidates, models.ConnectionCandidate{
			SourceID: src.ID,
			Strength: similarity,
			Evidence: evidenceString(similarity),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Strength > candidates[j].Strength })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func evidenceString(similarity float64) string {
	return fmt.Sprintf("%d%% semantic similarity in content", int(math.Round(similarity*100)))
}
