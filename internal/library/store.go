// Package library is the librarian's vector knowledge store.
//
// Knowledge lives in one pgvector-backed documents table, partitioned by
// source type: book_info holds summarized encyclopedia knowledge,
// book_reviews holds summarized video-review transcripts. Text is
// relevance-gated, chunked, embedded, and indexed on the way in;
// searches run cosine-distance queries with a similarity cutoff on the
// way out.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Source types partition the documents table into collections.
const (
	SourceBookInfo    = "book_info"
	SourceBookReviews = "book_reviews"
)

const (
	// EmbedTimeout bounds a single embedding call.
	EmbedTimeout = 10 * time.Second

	// Default tuning, used when Config leaves a field zero.
	DefaultAddSimilarityThreshold    = 0.3
	DefaultSearchSimilarityThreshold = 1.2
	DefaultTopK                      = 3
	DefaultChunkSize                 = 500
	DefaultChunkOverlap              = 50
)

var (
	// ErrInvalidSourceType indicates an unknown library collection name.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrEmptyDocument indicates there is no text to store.
	ErrEmptyDocument = errors.New("empty document")
)

// AllSourceTypes lists the valid library collections.
func AllSourceTypes() []string {
	return []string{SourceBookInfo, SourceBookReviews}
}

// ValidSourceType reports whether s names a library collection.
func ValidSourceType(s string) bool {
	return s == SourceBookInfo || s == SourceBookReviews
}

// Document is one stored chunk row.
type Document struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	SourceType string         `json:"source_type"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SearchResult is one vector search hit. Distance is the cosine
// distance to the query; smaller is closer.
type SearchResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Distance float64        `json:"distance"`
}

// Indexer is the subset of the Genkit document store the library needs.
// Satisfied by *postgresql.DocStore.
type Indexer interface {
	Index(ctx context.Context, docs []*ai.Document) error
}

// Config tunes store behavior. Zero fields fall back to the defaults
// above.
type Config struct {
	// AddSimilarityThreshold is the minimum cosine similarity between a
	// document and the query that produced it for the document to be
	// persisted.
	AddSimilarityThreshold float64

	// SearchSimilarityThreshold is the maximum cosine distance of a
	// search hit; rows at or beyond it are dropped.
	SearchSimilarityThreshold float64

	// TopK is the search result count when the caller passes none.
	TopK int

	ChunkSize    int
	ChunkOverlap int
}

func (c Config) withDefaults() Config {
	if c.AddSimilarityThreshold <= 0 {
		c.AddSimilarityThreshold = DefaultAddSimilarityThreshold
	}
	if c.SearchSimilarityThreshold <= 0 {
		c.SearchSimilarityThreshold = DefaultSearchSimilarityThreshold
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = DefaultChunkOverlap
	}
	// Overlap must stay below the chunk size.
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = 0
	}
	return c
}

// Store manages the documents table. Indexing goes through the Genkit
// document store (which embeds and inserts); threshold search and
// maintenance run raw SQL over the pool.
//
// Store is safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	docStore Indexer
	cfg      Config
	logger   *slog.Logger
}

// NewStore creates a library Store.
func NewStore(pool *pgxpool.Pool, embedder ai.Embedder, docStore Indexer, cfg Config, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if docStore == nil {
		return nil, errors.New("doc store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:     pool,
		embedder: embedder,
		docStore: docStore,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}, nil
}

// Add persists text into the given collection. When metadata carries a
// "query" key, the text is first gated on relevance to that query;
// below-threshold text is skipped silently (returns false, nil).
// Persisted text is chunked, and every chunk shares one document_id in
// its metadata alongside the caller's metadata and an added_on
// timestamp.
func (s *Store) Add(ctx context.Context, text, sourceType string, metadata map[string]any) (bool, error) {
	if !ValidSourceType(sourceType) {
		return false, fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}
	if strings.TrimSpace(text) == "" {
		return false, ErrEmptyDocument
	}

	if query, ok := metadata["query"].(string); ok && query != "" {
		sim, err := s.similarity(ctx, text, query)
		if err != nil {
			return false, fmt.Errorf("grading relevance: %w", err)
		}
		if sim < s.cfg.AddSimilarityThreshold {
			s.logger.Debug("document below relevance threshold, skipping",
				"similarity", sim,
				"threshold", s.cfg.AddSimilarityThreshold,
				"query", query)
			return false, nil
		}
	}

	documentID := uuid.NewString()
	addedOn := time.Now().UTC().Format(time.RFC3339)
	chunks := SplitText(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)

	docs := make([]*ai.Document, 0, len(chunks))
	for i, chunk := range chunks {
		md := make(map[string]any, len(metadata)+4)
		maps.Copy(md, metadata)
		md["id"] = fmt.Sprintf("%s_%d", documentID, i)
		md["document_id"] = documentID
		md["added_on"] = addedOn
		md["source_type"] = sourceType
		docs = append(docs, ai.DocumentFromText(chunk, md))
	}

	if err := s.docStore.Index(ctx, docs); err != nil {
		return false, fmt.Errorf("indexing %d chunks: %w", len(docs), err)
	}

	s.logger.Debug("document added",
		"document_id", documentID,
		"source_type", sourceType,
		"chunks", len(docs))
	return true, nil
}

// Search embeds the query and returns up to topK chunks of the given
// collection within the cosine-distance cutoff, closest first. topK <= 0
// uses the configured default.
func (s *Store) Search(ctx context.Context, query, sourceType string, topK int) ([]SearchResult, error) {
	if !ValidSourceType(sourceType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}
	if strings.TrimSpace(query) == "" {
		return []SearchResult{}, nil
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT content, metadata, embedding <=> $1 AS distance
		 FROM documents
		 WHERE source_type = $2 AND (embedding <=> $1) < $3
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		vec, sourceType, s.cfg.SearchSimilarityThreshold, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", sourceType, err)
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		var raw []byte
		if err := rows.Scan(&r.Content, &raw, &r.Distance); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		r.Metadata = s.decodeMetadata(raw)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}

// CachedVideoSummary returns the stored transcript summary for a video,
// if one was persisted before. The summary rides in the metadata of
// every chunk of the video's review document.
func (s *Store) CachedVideoSummary(ctx context.Context, videoID string) (string, bool, error) {
	if videoID == "" {
		return "", false, nil
	}

	var summary string
	err := s.pool.QueryRow(ctx,
		`SELECT metadata->>'summary'
		 FROM documents
		 WHERE source_type = $1
		   AND metadata->>'video_id' = $2
		   AND metadata ? 'summary'
		 ORDER BY created_at
		 LIMIT 1`,
		SourceBookReviews, videoID,
	).Scan(&summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up cached summary for %s: %w", videoID, err)
	}
	return summary, summary != "", nil
}

// List returns every chunk of a collection in insertion order.
func (s *Store) List(ctx context.Context, sourceType string) ([]Document, error) {
	if !ValidSourceType(sourceType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, content, metadata, source_type, created_at
		 FROM documents
		 WHERE source_type = $1
		 ORDER BY created_at, id`,
		sourceType,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", sourceType, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var raw []byte
		if err := rows.Scan(&d.ID, &d.Content, &raw, &d.SourceType, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.Metadata = s.decodeMetadata(raw)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Count returns the number of stored chunks, for one collection or for
// the whole table when sourceType is empty.
func (s *Store) Count(ctx context.Context, sourceType string) (int64, error) {
	var (
		count int64
		err   error
	)
	switch {
	case sourceType == "":
		err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	case ValidSourceType(sourceType):
		err = s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM documents WHERE source_type = $1`, sourceType,
		).Scan(&count)
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// RemoveDuplicates deletes documents whose metadata query or title
// repeats an earlier document's. The earliest document of each group
// survives; deletion always removes whole documents, every chunk
// included. Returns the number of documents removed.
func (s *Store) RemoveDuplicates(ctx context.Context, sourceType string) (int, error) {
	if !ValidSourceType(sourceType) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT metadata->>'document_id',
		        COALESCE(metadata->>'query', ''),
		        COALESCE(metadata->>'title', ''),
		        MIN(created_at) AS first_added
		 FROM documents
		 WHERE source_type = $1 AND metadata ? 'document_id'
		 GROUP BY 1, 2, 3
		 ORDER BY first_added, 1`,
		sourceType,
	)
	if err != nil {
		return 0, fmt.Errorf("grouping documents: %w", err)
	}
	defer rows.Close()

	type group struct {
		id    string
		query string
		title string
	}
	var groups []group
	for rows.Next() {
		var g group
		var firstAdded time.Time
		if err := rows.Scan(&g.id, &g.query, &g.title, &firstAdded); err != nil {
			return 0, fmt.Errorf("scanning document group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating document groups: %w", err)
	}

	seenQuery := make(map[string]bool)
	seenTitle := make(map[string]bool)
	var doomed []string
	for _, g := range groups {
		if (g.query != "" && seenQuery[g.query]) || (g.title != "" && seenTitle[g.title]) {
			doomed = append(doomed, g.id)
			continue
		}
		if g.query != "" {
			seenQuery[g.query] = true
		}
		if g.title != "" {
			seenTitle[g.title] = true
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM documents
		 WHERE source_type = $1 AND metadata->>'document_id' = ANY($2)`,
		sourceType, doomed,
	); err != nil {
		return 0, fmt.Errorf("deleting duplicate documents: %w", err)
	}

	s.logger.Info("duplicates removed",
		"source_type", sourceType,
		"documents", len(doomed))
	return len(doomed), nil
}

// Reset deletes every chunk of a collection and returns how many rows
// went. The CLI owns the confirmation step; this method is
// unconditional.
func (s *Store) Reset(ctx context.Context, sourceType string) (int64, error) {
	if !ValidSourceType(sourceType) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE source_type = $1`, sourceType)
	if err != nil {
		return 0, fmt.Errorf("resetting %s: %w", sourceType, err)
	}

	s.logger.Info("collection reset", "source_type", sourceType, "rows", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

// embed generates the vector for one text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	resp, err := s.embedder.Embed(embedCtx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("empty embedding response")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// similarity embeds both texts in one request and returns their cosine
// similarity.
func (s *Store) similarity(ctx context.Context, a, b string) (float64, error) {
	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	resp, err := s.embedder.Embed(embedCtx, &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText(a, nil),
			ai.DocumentFromText(b, nil),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("embedding pair: %w", err)
	}
	if len(resp.Embeddings) < 2 {
		return 0, fmt.Errorf("expected 2 embeddings, got %d", len(resp.Embeddings))
	}
	return CosineSimilarity(resp.Embeddings[0].Embedding, resp.Embeddings[1].Embedding), nil
}

// decodeMetadata unmarshals a JSONB column; malformed metadata degrades
// to an empty map rather than failing the whole read.
func (s *Store) decodeMetadata(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var md map[string]any
	if err := json.Unmarshal(raw, &md); err != nil {
		s.logger.Warn("malformed document metadata", "error", err)
		return map[string]any{}
	}
	return md
}
