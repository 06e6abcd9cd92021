package models

import "fmt"

// Search modes supported by the chunk search aggregator.
const (
	SearchModeChunks    = "chunks"
	SearchModeSummaries = "summaries"
	SearchModeHybrid    = "hybrid"
)

// SearchRequest is a chunk search request.
type SearchRequest struct {
	Query        string  `json:"query"`
	Mode         string  `json:"mode,omitempty"`
	Limit        int     `json:"limit,omitempty"`
	Threshold    float64 `json:"threshold,omitempty"`
	CollectionID string  `json:"collection_id,omitempty"`
	UserID       string  `json:"user_id,omitempty"`
}

// Validate checks the request and applies defaults in place.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	switch r.Mode {
	case "":
		r.Mode = SearchModeChunks
	case SearchModeChunks, SearchModeSummaries, SearchModeHybrid:
	default:
		return fmt.Errorf("unknown search mode: %q", r.Mode)
	}
	if r.Limit <= 0 {
		r.Limit = 10
	}
	if r.Limit > 100 {
		r.Limit = 100
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0,1], got %g", r.Threshold)
	}
	return nil
}

// ChunkSearchResult is a single match, constructed per query.
type ChunkSearchResult struct {
	Chunk              *ContentChunk `json:"chunk"`
	Source             *Source       `json:"source"`
	RelevanceScore     float64       `json:"relevance_score"`
	HighlightedContent string        `json:"highlighted_content"`
}

// GroupedSearchResults collects all matches belonging to one source.
// BestScore is the maximum RelevanceScore among Chunks; TotalMatches is len(Chunks).
type GroupedSearchResults struct {
	Source       *Source             `json:"source"`
	Summary      string              `json:"summary"`
	Chunks       []ChunkSearchResult `json:"chunks"`
	BestScore    float64             `json:"best_score"`
	TotalMatches int                 `json:"total_matches"`
}

// EnhancedSearchResponse is the caller-facing search response.
type EnhancedSearchResponse struct {
	Results         []ChunkSearchResult `json:"results"`
	Total           int                 `json:"total"`
	SearchMode      string              `json:"search_mode"`
	GroupedBySource bool                `json:"grouped_by_source"`
	QueryTime       int64               `json:"query_time_ms"`
}
