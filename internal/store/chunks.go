package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// ReplaceChunks atomically swaps the chunk set of a source: prior chunks
// (with their vector and full-text entries) are deleted and the new batch is
// inserted in one transaction. Concurrent queries see the old chunk set
// until commit, never an empty or partially-indexed source. Ordinals are
// persisted verbatim from the caller's order.
//
// Returns the new chunk IDs and the number of chunks the swap removed.
func (s *Store) ReplaceChunks(ctx context.Context, sourceID string, chunks []ChunkInsert) ([]string, int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("begin chunk transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM chunks WHERE source_id = $1`, sourceID)
	if err != nil {
		return nil, 0, fmt.Errorf("delete prior chunks of %q: %w", sourceID, err)
	}
	deleted := int(tag.RowsAffected())

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = uuid.NewString()
		_, err := tx.Exec(ctx, `
			INSERT INTO chunks (
				id, source_id, ordinal, content, char_count,
				heading_path, embedding, fts_text
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			ids[i], sourceID, c.Ordinal, c.Text, c.CharCount,
			c.HeadingPath, pgvector.NewVector(c.Embedding), ftsDocument(c.Text),
		)
		if err != nil {
			return nil, 0, fmt.Errorf("insert chunk %d of %q: %w", c.Ordinal, sourceID, err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE sources SET chunk_count = $2, updated_at = now() WHERE id = $1`,
		sourceID, len(chunks))
	if err != nil {
		return nil, 0, fmt.Errorf("update chunk count of %q: %w", sourceID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit chunk batch: %w", err)
	}

	s.logger.Debug("replaced chunks", "source_id", sourceID,
		"inserted", len(chunks), "deleted", deleted)
	return ids, deleted, nil
}

// GetChunksByIDs fetches chunks with their citation metadata joined from the
// owning source. Results follow the order of ids; missing IDs are skipped.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.source_id, c.ordinal, c.content, c.char_count,
		       c.heading_path, c.created_at,
		       s.url, s.title, s.content_type
		FROM chunks c
		JOIN sources s ON s.id = c.source_id
		WHERE c.id = ANY($1)`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]Chunk, len(ids))
	for rows.Next() {
		var c Chunk
		err := rows.Scan(
			&c.ID, &c.SourceID, &c.Ordinal, &c.Text, &c.CharCount,
			&c.HeadingPath, &c.CreatedAt,
			&c.SourceURL, &c.SourceTitle, &c.ContentType,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Chunk, 0, len(byID))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// CountChunksBySource reports how many chunks reference a source. Used by
// tests and delete confirmations.
func (s *Store) CountChunksBySource(ctx context.Context, sourceID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE source_id = $1`, sourceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks of %q: %w", sourceID, err)
	}
	return n, nil
}
