package search

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/tomeworks/shiori/internal/keyword"
	"github.com/tomeworks/shiori/internal/models"
	"github.com/tomeworks/shiori/internal/storage"
)

// fakeKeywordIndex returns a fixed result set for any query.
type fakeKeywordIndex struct {
	results []*keyword.KeywordResult
}

func (f *fakeKeywordIndex) IndexChunk(ctx context.Context, id, content string) error { return nil }
func (f *fakeKeywordIndex) Delete(ctx context.Context, id string) error              { return nil }
func (f *fakeKeywordIndex) Close() error                                             { return nil }
func (f *fakeKeywordIndex) Search(ctx context.Context, query string, limit int) ([]*keyword.KeywordResult, error) {
	return f.results, nil
}

func seedSource(t *testing.T, store storage.Store, id, userID, summary string, embedding []float64) *models.Source {
	t.Helper()
	src := &models.Source{
		ID:        id,
		UserID:    userID,
		Title:     "title " + id,
		Summary:   summary,
		Embedding: embedding,
	}
	if err := store.CreateSource(context.Background(), src); err != nil {
		t.Fatalf("CreateSource(%s) failed: %v", id, err)
	}
	return src
}

func seedChunk(t *testing.T, store storage.Store, id, sourceID, content string, embedding []float64) {
	t.Helper()
	err := store.CreateChunk(context.Background(), &models.ContentChunk{
		ID:        id,
		SourceID:  sourceID,
		Content:   content,
		Embedding: embedding,
	})
	if err != nil {
		t.Fatalf("CreateChunk(%s) failed: %v", id, err)
	}
}

func TestSearchChunksModeGroupsBySource(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSource(t, store, "src-a", "u1", "source a", nil)
	seedSource(t, store, "src-b", "u1", "source b", nil)
	// Unit vectors: cosine similarity against [1,0,0] is the first coordinate.
	seedChunk(t, store, "chunk-a1", "src-a", "exact match content", []float64{1, 0, 0})
	seedChunk(t, store, "chunk-a2", "src-a", "weaker match content", []float64{0.6, 0.8, 0})
	seedChunk(t, store, "chunk-b1", "src-b", "middle match content", []float64{0.8, 0.6, 0})

	agg := NewAggregator(store, nil)
	resp, err := agg.Search(context.Background(), models.SearchRequest{Query: "match", Mode: models.SearchModeChunks}, []float64{1, 0, 0})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}

	if resp.Total != 3 || len(resp.Results) != 3 {
		t.Fatalf("got %d results (total %d), want 3", len(resp.Results), resp.Total)
	}
	if !resp.GroupedBySource || resp.SearchMode != models.SearchModeChunks {
		t.Errorf("response metadata wrong: %+v", resp)
	}
	// Group src-a (best 1.0) comes first with both its chunks adjacent,
	// even though chunk-b1 outscores chunk-a2.
	wantOrder := []string{"chunk-a1", "chunk-a2", "chunk-b1"}
	for i, want := range wantOrder {
		if got := resp.Results[i].Chunk.ID; got != want {
			t.Errorf("result[%d] = %s, want %s", i, got, want)
		}
	}
	if resp.Results[0].Source == nil || resp.Results[0].Source.ID != "src-a" {
		t.Errorf("result[0] missing parent source")
	}
}

func TestSearchChunksModeThreshold(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSource(t, store, "src-a", "u1", "source a", nil)
	seedChunk(t, store, "chunk-a1", "src-a", "strong", []float64{1, 0, 0})
	seedChunk(t, store, "chunk-a2", "src-a", "weak", []float64{0.6, 0.8, 0})

	agg := NewAggregator(store, nil)
	resp, err := agg.Search(context.Background(), models.SearchRequest{Query: "q", Threshold: 0.7}, []float64{1, 0, 0})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Chunk.ID != "chunk-a1" {
		t.Errorf("threshold not applied: %+v", resp.Results)
	}
}

func TestSearchSummariesMode(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSource(t, store, "src-a", "u1", "notes on bayesian methods", []float64{1, 0, 0})
	seedSource(t, store, "src-b", "u1", "unrelated gardening notes", []float64{0, 1, 0})

	agg := NewAggregator(store, nil)
	resp, err := agg.Search(context.Background(), models.SearchRequest{Query: "bayesian", Mode: models.SearchModeSummaries, Threshold: 0.5}, []float64{1, 0, 0})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(resp.Results))
	}
	got := resp.Results[0]
	if got.Chunk != nil {
		t.Errorf("summary match should have no chunk, got %+v", got.Chunk)
	}
	if got.Source.ID != "src-a" || got.RelevanceScore != 1.0 {
		t.Errorf("unexpected match: %+v", got)
	}
	if !strings.Contains(got.HighlightedContent, "<mark>bayesian</mark>") {
		t.Errorf("summary not highlighted: %q", got.HighlightedContent)
	}
}

func TestSearchHybridFusesLanes(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSource(t, store, "src-a", "u1", "source a", nil)
	seedSource(t, store, "src-b", "u1", "source b", nil)
	seedChunk(t, store, "chunk-a1", "src-a", "bayesian networks", []float64{0.9, math.Sqrt(1 - 0.81), 0})
	seedChunk(t, store, "chunk-b1", "src-b", "bayesian inference methods", nil)

	kw := &fakeKeywordIndex{results: []*keyword.KeywordResult{
		{ID: "chunk-a1", Score: 2.0},
		{ID: "chunk-b1", Score: 1.0},
	}}
	agg := NewAggregator(store, kw)
	resp, err := agg.Search(context.Background(), models.SearchRequest{Query: "bayesian", Mode: models.SearchModeHybrid}, []float64{1, 0, 0})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(resp.Results), resp.Results)
	}

	byID := make(map[string]models.ChunkSearchResult)
	for _, r := range resp.Results {
		byID[r.Chunk.ID] = r
	}
	// chunk-a1: both lanes, 0.7*0.9 + 0.3*1.0 (top keyword score normalizes to 1).
	if got := byID["chunk-a1"].RelevanceScore; math.Abs(got-0.93) > 1e-9 {
		t.Errorf("fused score = %g, want 0.93", got)
	}
	// chunk-b1: keyword lane only, normalized score used verbatim.
	if got := byID["chunk-b1"].RelevanceScore; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("keyword-only score = %g, want 0.5", got)
	}
}

func TestSearchHybridKeywordOnlyRespectsUserFilter(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSource(t, store, "src-other", "someone-else", "source", nil)
	seedChunk(t, store, "chunk-x", "src-other", "bayesian", nil)

	kw := &fakeKeywordIndex{results: []*keyword.KeywordResult{{ID: "chunk-x", Score: 1.0}}}
	agg := NewAggregator(store, kw)
	resp, err := agg.Search(context.Background(), models.SearchRequest{Query: "bayesian", Mode: models.SearchModeHybrid, UserID: "u1"}, []float64{1, 0, 0})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected no results for filtered user, got %+v", resp.Results)
	}
}

func TestSearchHybridTrimsGroups(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSource(t, store, "src-a", "u1", "source a", nil)
	seedSource(t, store, "src-b", "u1", "source b", nil)
	seedChunk(t, store, "chunk-a1", "src-a", "alpha", []float64{1, 0, 0})
	seedChunk(t, store, "chunk-b1", "src-b", "beta", []float64{0.8, 0.6, 0})

	agg := NewAggregator(store, &fakeKeywordIndex{})
	resp, err := agg.Search(context.Background(), models.SearchRequest{Query: "q", Mode: models.SearchModeHybrid, Limit: 2}, []float64{1, 0, 0})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	// Hybrid keeps limit/2 groups, so only the best source survives.
	for _, r := range resp.Results {
		if r.Source.ID != "src-a" {
			t.Errorf("expected only src-a results, got %s", r.Source.ID)
		}
	}
	if len(resp.Results) != 1 {
		t.Errorf("got %d results, want 1", len(resp.Results))
	}
}

func TestSearchHybridRequiresKeywordIndex(t *testing.T) {
	agg := NewAggregator(storage.NewMemoryStore(), nil)
	_, err := agg.Search(context.Background(), models.SearchRequest{Query: "q", Mode: models.SearchModeHybrid}, []float64{1, 0, 0})
	if err == nil {
		t.Fatal("expected error for hybrid search without keyword index")
	}
}

func TestSearchRejectsInvalidRequest(t *testing.T) {
	agg := NewAggregator(storage.NewMemoryStore(), nil)
	if _, err := agg.Search(context.Background(), models.SearchRequest{}, []float64{1, 0, 0}); err == nil {
		t.Fatal("expected error for empty query")
	}
	if _, err := agg.Search(context.Background(), models.SearchRequest{Query: "q", Mode: "nope"}, nil); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
