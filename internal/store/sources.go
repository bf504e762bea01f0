package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// SourceID derives the stable identifier for a URL. The same URL always maps
// to the same source row, which is what makes the cache lookup on repeat
// submissions an index hit instead of a re-fetch.
func SourceID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "src_" + hex.EncodeToString(hash[:16])
}

// PutSource inserts or updates a source row and returns its ID. On conflict
// (same URL submitted again, or a refresh) the mutable fields are replaced;
// created_at is preserved.
func (s *Store) PutSource(ctx context.Context, src Source) (string, error) {
	if src.ID == "" {
		src.ID = SourceID(src.URL)
	}

	var lastErr *string
	if src.LastError != "" {
		lastErr = &src.LastError
	}
	var fetchedAt *time.Time
	if !src.FetchedAt.IsZero() {
		fetchedAt = &src.FetchedAt
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sources (
			id, url, title, content_type, language, raw_content, metadata,
			status, last_error, embedding_model, fetched_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			title           = EXCLUDED.title,
			content_type    = EXCLUDED.content_type,
			language        = EXCLUDED.language,
			raw_content     = EXCLUDED.raw_content,
			metadata        = EXCLUDED.metadata,
			status          = EXCLUDED.status,
			last_error      = EXCLUDED.last_error,
			embedding_model = EXCLUDED.embedding_model,
			fetched_at      = EXCLUDED.fetched_at,
			updated_at      = now()`,
		src.ID, src.URL, src.Title, src.ContentType, string(src.Language),
		src.RawContent, src.Metadata, string(src.Status), lastErr,
		src.EmbeddingModel, fetchedAt,
	)
	if err != nil {
		return "", fmt.Errorf("put source %q: %w", src.URL, err)
	}

	s.logger.Debug("stored source", "id", src.ID, "url", src.URL, "status", src.Status)
	return src.ID, nil
}

// GetSource fetches one source by ID. Returns ErrNotFound when absent.
func (s *Store) GetSource(ctx context.Context, id string) (Source, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id)

	src, err := scanSource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Source{}, fmt.Errorf("source %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Source{}, fmt.Errorf("get source %q: %w", id, err)
	}
	return src, nil
}

// GetSourceByURL fetches one source by its URL (unique index lookup).
// Returns ErrNotFound when the URL has never been ingested.
func (s *Store) GetSourceByURL(ctx context.Context, url string) (Source, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE url = $1`, url)

	src, err := scanSource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Source{}, fmt.Errorf("source url %q: %w", url, ErrNotFound)
	}
	if err != nil {
		return Source{}, fmt.Errorf("get source by url %q: %w", url, err)
	}
	return src, nil
}

// orderableColumns whitelists ListSources sort keys; anything else falls
// back to fetched_at to keep user input out of the SQL text.
var orderableColumns = map[string]struct{}{
	"fetched_at": {}, "created_at": {}, "updated_at": {},
	"url": {}, "title": {}, "status": {},
}

// ListSources returns a page of sources plus the total count matching the
// filter (for hasMore computation upstream).
func (s *Store) ListSources(ctx context.Context, f ListFilter) ([]Source, int, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	orderBy := f.OrderBy
	if _, ok := orderableColumns[orderBy]; !ok {
		orderBy = "fetched_at"
	}
	order := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		order = "ASC"
	}

	where := "TRUE"
	args := []any{}
	if f.ContentType != "" {
		args = append(args, f.ContentType)
		where += fmt.Sprintf(" AND content_type = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sources WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sources: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(
		`SELECT %s FROM sources WHERE %s ORDER BY %s %s NULLS LAST LIMIT $%d OFFSET $%d`,
		sourceColumns, where, orderBy, order, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, total, rows.Err()
}

// UpdateSourceStatus advances the source state machine, recording or
// clearing the diagnostic message.
func (s *Store) UpdateSourceStatus(ctx context.Context, id string, status Status, lastError string) error {
	var errVal *string
	if lastError != "" {
		errVal = &lastError
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sources SET status = $2, last_error = $3, updated_at = now() WHERE id = $1`,
		id, string(status), errVal)
	if err != nil {
		return fmt.Errorf("update source %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("source %q: %w", id, ErrNotFound)
	}

	s.logger.Debug("source status updated", "id", id, "status", status, "error", lastError)
	return nil
}

// DeleteSource removes a source and, by foreign-key cascade, all of its
// chunks with their vector and full-text entries. Returns the number of
// chunks removed so callers can confirm the blast radius.
func (s *Store) DeleteSource(ctx context.Context, id string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin delete transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var chunkCount int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE source_id = $1`, id).Scan(&chunkCount); err != nil {
		return 0, fmt.Errorf("count chunks for %q: %w", id, err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete source %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("source %q: %w", id, ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}

	s.logger.Info("deleted source", "id", id, "chunks_removed", chunkCount)
	return chunkCount, nil
}
