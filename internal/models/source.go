// Package models defines core data structures for sources, chunks, embeddings, and search results.
package models

import (
	"strings"
	"time"
)

// Source represents a stored research document with its summary-level embedding.
type Source struct {
	ID        string                 `json:"id" db:"id"`
	UserID    string                 `json:"user_id" db:"user_id"`
	Title     string                 `json:"title" db:"title"`
	Summary   string                 `json:"summary" db:"summary"`
	Topics    []string               `json:"topics,omitempty" db:"topics"`
	Embedding []float64              `json:"-" db:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// EmbeddingText returns the text embedded for this source: the summary
// followed by the topic list.
func (s *Source) EmbeddingText() string {
	if len(s.Topics) == 0 {
		return s.Summary
	}
	return strings.TrimSpace(s.Summary + " " + strings.Join(s.Topics, " "))
}

// HasEmbedding reports whether the source has a stored embedding.
func (s *Source) HasEmbedding() bool {
	return len(s.Embedding) > 0
}

// ContentChunk is a contiguous sub-span of a source's text, embedded and
// searched independently of the whole document. Chunks are ordered and
// non-overlapping; ChunkIndex is zero-based and stable per source.
type ContentChunk struct {
	ID         string                 `json:"id" db:"id"`
	SourceID   string                 `json:"source_id" db:"source_id"`
	ChunkIndex int                    `json:"chunk_index" db:"chunk_index"`
	Content    string                 `json:"content" db:"content"`
	Embedding  []float64              `json:"-" db:"-"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}
