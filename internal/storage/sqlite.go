package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tomeworks/shiori/internal/models"
	"github.com/tomeworks/shiori/internal/vector"
)

// SQLiteStore implements Store using SQLite. Nearest-neighbour queries scan
// embedded rows and rank by cosine similarity in process; SQLite has no
// native vector index and corpora here are personal-scale.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		title TEXT,
		summary TEXT NOT NULL,
		topics TEXT,
		embedding BLOB,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sources_user_id ON sources(user_id);
	CREATE INDEX IF NOT EXISTS idx_sources_created_at ON sources(created_at);

	CREATE TABLE IF NOT EXISTS content_chunks (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (source_id) REFERENCES sources(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source_id ON content_chunks(source_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_source_chunk ON content_chunks(source_id, chunk_index);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateSource inserts a source, assigning an ID when none is set.
func (s *SQLiteStore) CreateSource(ctx context.Context, src *models.Source) error {
	if src.ID == "" {
		src.ID = uuid.New().String()
	}
	topicsJSON, err := json.Marshal(src.Topics)
	if err != nil {
		return fmt.Errorf("failed to marshal topics: %w", err)
	}
	metadataJSON, err := json.Marshal(src.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now()
	src.CreatedAt = now
	src.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sources (id, user_id, title, summary, topics, embedding, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.UserID, src.Title, src.Summary, string(topicsJSON),
		encodeEmbedding(src.Embedding), string(metadataJSON), src.CreatedAt, src.UpdatedAt,
	)
	return err
}

// GetSource returns a source by ID.
func (s *SQLiteStore) GetSource(ctx context.Context, id string) (*models.Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, summary, topics, embedding, metadata, created_at, updated_at
		 FROM sources WHERE id = ?`, id)
	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: source %s", ErrNotFound, id)
	}
	return src, err
}

// DeleteSource removes a source; chunks cascade.
func (s *SQLiteStore) DeleteSource(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: source %s", ErrNotFound, id)
	}
	return nil
}

// ListSourcesMissingEmbedding returns up to limit sources whose embedding is
// null, oldest first, optionally filtered by owner.
func (s *SQLiteStore) ListSourcesMissingEmbedding(ctx context.Context, userID string, limit int) ([]*models.Source, error) {
	query := `SELECT id, user_id, title, summary, topics, embedding, metadata, created_at, updated_at
		 FROM sources WHERE embedding IS NULL`
	args := []interface{}{}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at LIMIT ?`
	args = append(args, limit)
	return s.querySources(ctx, query, args...)
}

// ListSourcesEmbedded returns all sources with a non-null embedding,
// optionally filtered by owner.
func (s *SQLiteStore) ListSourcesEmbedded(ctx context.Context, userID string) ([]*models.Source, error) {
	query := `SELECT id, user_id, title, summary, topics, embedding, metadata, created_at, updated_at
		 FROM sources WHERE embedding IS NOT NULL`
	args := []interface{}{}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at`
	return s.querySources(ctx, query, args...)
}

// UpdateSourceEmbedding writes an embedding onto a source.
func (s *SQLiteStore) UpdateSourceEmbedding(ctx context.Context, id string, embedding []float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET embedding = ?, updated_at = ? WHERE id = ?`,
		encodeEmbedding(embedding), time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: source %s", ErrNotFound, id)
	}
	return nil
}

// CountSourcesMissingEmbedding returns the number of sources with a null embedding.
func (s *SQLiteStore) CountSourcesMissingEmbedding(ctx context.Context, userID string) (int, error) {
	return s.countSources(ctx, "embedding IS NULL", userID)
}

// CountSourcesEmbedded returns the number of sources with a non-null embedding.
func (s *SQLiteStore) CountSourcesEmbedded(ctx context.Context, userID string) (int, error) {
	return s.countSources(ctx, "embedding IS NOT NULL", userID)
}

func (s *SQLiteStore) countSources(ctx context.Context, condition, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM sources WHERE ` + condition
	args := []interface{}{}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	var count int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// CreateChunk inserts a chunk, assigning an ID when none is set.
func (s *SQLiteStore) CreateChunk(ctx context.Context, chunk *models.ContentChunk) error {
	if chunk.ID == "" {
		chunk.ID = uuid.New().String()
	}
	metadataJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	chunk.CreatedAt = time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO content_chunks (id, source_id, chunk_index, content, embedding, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.SourceID, chunk.ChunkIndex, chunk.Content,
		encodeEmbedding(chunk.Embedding), string(metadataJSON), chunk.CreatedAt,
	)
	return err
}

// GetChunk returns a chunk by ID.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*models.ContentChunk, error) {
	chunk := &models.ContentChunk{}
	var emb []byte
	var metadata sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source_id, chunk_index, content, embedding, metadata, created_at
		 FROM content_chunks WHERE id = ?`, id,
	).Scan(&chunk.ID, &chunk.SourceID, &chunk.ChunkIndex, &chunk.Content, &emb, &metadata, &chunk.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: chunk %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	chunk.Embedding = decodeEmbedding(emb)
	if err := unmarshalInto(metadata, &chunk.Metadata); err != nil {
		return nil, err
	}
	return chunk, nil
}

// GetChunksBySourceID returns a source's chunks in chunk order.
func (s *SQLiteStore) GetChunksBySourceID(ctx context.Context, sourceID string) ([]*models.ContentChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, chunk_index, content, embedding, metadata, created_at
		 FROM content_chunks WHERE source_id = ? ORDER BY chunk_index`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// UpdateChunkEmbedding writes an embedding onto a chunk.
func (s *SQLiteStore) UpdateChunkEmbedding(ctx context.Context, id string, embedding []float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE content_chunks SET embedding = ? WHERE id = ?`,
		encodeEmbedding(embedding), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: chunk %s", ErrNotFound, id)
	}
	return nil
}

// SearchChunks ranks embedded chunks by cosine similarity against query.
// Rows whose stored dimension differs from the query are skipped.
func (s *SQLiteStore) SearchChunks(ctx context.Context, query []float64, opts SearchOptions) ([]*ChunkMatch, error) {
	sqlQuery := `SELECT c.id, c.source_id, c.chunk_index, c.content, c.embedding, c.metadata, c.created_at,
		 s.id, s.user_id, s.title, s.summary, s.topics, s.embedding, s.metadata, s.created_at, s.updated_at
		 FROM content_chunks c JOIN sources s ON s.id = c.source_id
		 WHERE c.embedding IS NOT NULL`
	args := []interface{}{}
	if opts.UserID != "" {
		sqlQuery += ` AND s.user_id = ?`
		args = append(args, opts.UserID)
	}
	sqlQuery += ` ORDER BY c.created_at, c.chunk_index`

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*ChunkMatch
	for rows.Next() {
		chunk := &models.ContentChunk{}
		src := &models.Source{}
		var chunkEmb, srcEmb []byte
		var chunkMeta, topics, srcMeta sql.NullString
		if err := rows.Scan(
			&chunk.ID, &chunk.SourceID, &chunk.ChunkIndex, &chunk.Content, &chunkEmb, &chunkMeta, &chunk.CreatedAt,
			&src.ID, &src.UserID, &src.Title, &src.Summary, &topics, &srcEmb, &srcMeta, &src.CreatedAt, &src.UpdatedAt,
		); err != nil {
			return nil, err
		}
		chunk.Embedding = decodeEmbedding(chunkEmb)
		src.Embedding = decodeEmbedding(srcEmb)
		if err := unmarshalInto(chunkMeta, &chunk.Metadata); err != nil {
			return nil, err
		}
		if err := unmarshalInto(topics, &src.Topics); err != nil {
			return nil, err
		}
		if err := unmarshalInto(srcMeta, &src.Metadata); err != nil {
			return nil, err
		}

		similarity, err := vector.CosineSimilarity(query, chunk.Embedding)
		if err != nil {
			continue
		}
		if similarity < opts.Threshold {
			continue
		}
		matches = append(matches, &ChunkMatch{Chunk: chunk, Source: src, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}

// SearchSummaries ranks embedded sources by cosine similarity against query.
func (s *SQLiteStore) SearchSummaries(ctx context.Context, query []float64, opts SearchOptions) ([]*SummaryMatch, error) {
	sources, err := s.ListSourcesEmbedded(ctx, opts.UserID)
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

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) querySources(ctx context.Context, query string, args ...interface{}) ([]*models.Source, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// rowScanner abstracts sql.Row and sql.Rows for scanSource.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSource(row rowScanner) (*models.Source, error) {
	src := &models.Source{}
	var emb []byte
	var topics, metadata sql.NullString
	err := row.Scan(&src.ID, &src.UserID, &src.Title, &src.Summary, &topics, &emb,
		&metadata, &src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return nil, err
	}
	src.Embedding = decodeEmbedding(emb)
	if err := unmarshalInto(topics, &src.Topics); err != nil {
		return nil, err
	}
	if err := unmarshalInto(metadata, &src.Metadata); err != nil {
		return nil, err
	}
	return src, nil
}

func scanChunks(rows *sql.Rows) ([]*models.ContentChunk, error) {
	var chunks []*models.ContentChunk
	for rows.Next() {
		chunk := &models.ContentChunk{}
		var emb []byte
		var metadata sql.NullString
		if err := rows.Scan(&chunk.ID, &chunk.SourceID, &chunk.ChunkIndex, &chunk.Content,
			&emb, &metadata, &chunk.CreatedAt); err != nil {
			return nil, err
		}
		chunk.Embedding = decodeEmbedding(emb)
		if err := unmarshalInto(metadata, &chunk.Metadata); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func unmarshalInto(s sql.NullString, dest interface{}) error {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(s.String), dest); err != nil {
		return fmt.Errorf("failed to unmarshal column: %w", err)
	}
	return nil
}
