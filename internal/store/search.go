package store

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// VectorSearch returns up to k nearest chunks by cosine distance, ordered by
// increasing distance. Filters narrow the candidate set before the
// nearest-neighbor scan: an empty contentType and nil sourceIDs match
// everything.
func (s *Store) VectorSearch(ctx context.Context, queryVector []float32, k int, contentType string, sourceIDs []string) ([]VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	where, args := searchFilters(contentType, sourceIDs, 2)
	args = append([]any{pgvector.NewVector(queryVector)}, args...)
	args = append(args, k)

	query := fmt.Sprintf(`
		SELECT c.id, c.embedding <=> $1 AS distance
		FROM chunks c
		JOIN sources s ON s.id = c.source_id
		WHERE %s
		ORDER BY c.embedding <=> $1
		LIMIT $%d`, where, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var h VectorHit
		if err := rows.Scan(&h.ChunkID, &h.Distance); err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// TextSearch returns up to k chunks matching the query's full-text tokens,
// ordered by decreasing rank. The query text runs through the same
// segmentation as indexed chunks (see Segment), so Chinese queries match
// bigram-indexed Chinese text. A query with no indexable tokens matches
// nothing.
func (s *Store) TextSearch(ctx context.Context, queryText string, k int, contentType string, sourceIDs []string) ([]TextHit, error) {
	if k <= 0 {
		return nil, nil
	}

	tsq := ftsQuery(queryText)
	if tsq == "" {
		return nil, nil
	}

	where, args := searchFilters(contentType, sourceIDs, 2)
	args = append([]any{tsq}, args...)
	args = append(args, k)

	query := fmt.Sprintf(`
		SELECT c.id, ts_rank_cd(c.fts, q) AS rank
		FROM chunks c
		JOIN sources s ON s.id = c.source_id,
		     to_tsquery('simple', $1) q
		WHERE c.fts @@ q AND %s
		ORDER BY rank DESC
		LIMIT $%d`, where, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	defer rows.Close()

	var hits []TextHit
	for rows.Next() {
		var h TextHit
		if err := rows.Scan(&h.ChunkID, &h.Rank); err != nil {
			return nil, fmt.Errorf("scan text hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// searchFilters builds the shared WHERE tail for both search paths.
// Placeholder numbering starts at next.
func searchFilters(contentType string, sourceIDs []string, next int) (string, []any) {
	where := "TRUE"
	var args []any
	if contentType != "" {
		where += fmt.Sprintf(" AND s.content_type = $%d", next)
		args = append(args, contentType)
		next++
	}
	if len(sourceIDs) > 0 {
		where += fmt.Sprintf(" AND c.source_id = ANY($%d)", next)
		args = append(args, sourceIDs)
	}
	return where, args
}
