// Package store persists sources and chunks in PostgreSQL and serves both
// similarity and full-text search over them.
//
// One chunk row carries the text, its pgvector embedding and its generated
// tsvector entry, so the three indexes the pipeline depends on (relational,
// vector, full-text) are consistent by construction: a chunk visible in one
// is visible in all. Batch writes run in a single transaction; there is no
// partially-indexed state to observe.
//
// Store is the only component allowed to touch the underlying tables. It is
// safe for concurrent use.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a source or chunk does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrModelMismatch is returned at startup when the configured embedding
	// model or dimension differs from the one the existing index was built
	// with. Old vectors are incomparable to new queries; the operator must
	// re-ingest rather than silently mix vector spaces.
	ErrModelMismatch = errors.New("store: embedding model mismatch")
)

// Store manages sources and chunks over a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store. A nil logger uses slog.Default().
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureEmbeddingModel pins the (model, dimension) pair the index is built
// with. On first call the pair is recorded; later calls verify the
// configuration still matches and fail with ErrModelMismatch when it does
// not. Called once at startup before serving.
func (s *Store) EnsureEmbeddingModel(ctx context.Context, model string, dimension int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin meta transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var storedModel, storedDim string
	err = tx.QueryRow(ctx,
		`SELECT
		   COALESCE(MAX(value) FILTER (WHERE key = 'embedding_model'), ''),
		   COALESCE(MAX(value) FILTER (WHERE key = 'embedding_dimension'), '')
		 FROM pipeline_meta`).Scan(&storedModel, &storedDim)
	if err != nil {
		return fmt.Errorf("read pipeline meta: %w", err)
	}

	if storedModel == "" {
		_, err = tx.Exec(ctx,
			`INSERT INTO pipeline_meta (key, value) VALUES
			   ('embedding_model', $1), ('embedding_dimension', $2)
			 ON CONFLICT (key) DO NOTHING`,
			model, strconv.Itoa(dimension))
		if err != nil {
			return fmt.Errorf("pin embedding model: %w", err)
		}
		s.logger.Info("pinned embedding model", "model", model, "dimension", dimension)
		return tx.Commit(ctx)
	}

	if storedModel != model || storedDim != strconv.Itoa(dimension) {
		return fmt.Errorf("%w: index built with %s/%s, configured %s/%d — re-ingest required",
			ErrModelMismatch, storedModel, storedDim, model, dimension)
	}
	return tx.Commit(ctx)
}

// scanSource reads one source row in the canonical column order.
func scanSource(row pgx.Row) (Source, error) {
	var src Source
	var lastErr *string
	var fetchedAt *time.Time
	var metadata map[string]string

	err := row.Scan(
		&src.ID, &src.URL, &src.Title, &src.ContentType, &src.Language,
		&src.RawContent, &metadata, &src.Status, &lastErr, &src.ChunkCount,
		&src.EmbeddingModel, &fetchedAt, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		return Source{}, err
	}
	if lastErr != nil {
		src.LastError = *lastErr
	}
	if fetchedAt != nil {
		src.FetchedAt = *fetchedAt
	}
	src.Metadata = metadata
	return src, nil
}

// sourceColumns is the canonical select list matching scanSource.
const sourceColumns = `id, url, title, content_type, language, raw_content,
	metadata, status, last_error, chunk_count, embedding_model,
	fetched_at, created_at, updated_at`
