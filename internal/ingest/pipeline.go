// Package ingest runs the processing pipeline that turns a submitted URL
// into indexed chunks: fetch, language detection, structure-aware chunking,
// embedding, and an atomic index swap in the store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sitedex/sitedex/internal/chunk"
	"github.com/sitedex/sitedex/internal/embed"
	"github.com/sitedex/sitedex/internal/fetch"
	"github.com/sitedex/sitedex/internal/language"
	"github.com/sitedex/sitedex/internal/log"
	"github.com/sitedex/sitedex/internal/store"
)

var (
	// ErrInvalidRequest indicates a malformed process request.
	ErrInvalidRequest = errors.New("invalid process request")

	// ErrAlreadyProcessing indicates the URL is being processed right now.
	ErrAlreadyProcessing = errors.New("source is already being processed")
)

// contentTypes lists the accepted values for ProcessRequest.ContentType.
var contentTypes = []string{
	chunk.ContentTypeJobPosting,
	chunk.ContentTypeBlogArticle,
	chunk.ContentTypeCompanyPage,
}

// Fetcher retrieves and extracts one page. Satisfied by *fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// Store is the persistence surface the pipeline needs.
type Store interface {
	GetSourceByURL(ctx context.Context, url string) (store.Source, error)
	PutSource(ctx context.Context, src store.Source) (string, error)
	UpdateSourceStatus(ctx context.Context, id string, status store.Status, lastError string) error
	ReplaceChunks(ctx context.Context, sourceID string, chunks []store.ChunkInsert) ([]string, int, error)
}

// ProcessRequest submits one URL for indexing.
type ProcessRequest struct {
	URL          string
	ContentType  string
	Metadata     map[string]string
	ForceRefresh bool
}

// Validate checks the request shape before any I/O happens.
func (r ProcessRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	if !slices.Contains(contentTypes, r.ContentType) {
		return fmt.Errorf("%w: content_type must be one of %v, got %q",
			ErrInvalidRequest, contentTypes, r.ContentType)
	}
	return nil
}

// Result reports the outcome of processing one URL. A failed pipeline run is
// a Result with StatusFailed, not an error: errors are reserved for invalid
// requests and infrastructure faults.
type Result struct {
	SourceID      string
	URL           string
	Status        store.Status
	Language      language.Language
	ChunksCreated int
	ChunksDeleted int

	// Cached is set when a completed source was returned without
	// reprocessing.
	Cached bool

	// FailureReason is human-readable and only set with StatusFailed.
	FailureReason string

	// Transient marks failures worth retrying (timeouts, rate limits).
	Transient bool
}

// Pipeline executes the ingestion stages for one URL at a time.
type Pipeline struct {
	store       Store
	fetcher     Fetcher
	embedder    embed.Embedder
	chunker     *chunk.Chunker
	parallelism int
	logger      log.Logger
}

// New creates a pipeline. A nil chunker gets the default policy table; a
// non-positive parallelism gets the embedding default.
func New(st Store, fetcher Fetcher, embedder embed.Embedder, chunker *chunk.Chunker, parallelism int, logger log.Logger) (*Pipeline, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if chunker == nil {
		chunker = chunk.New(nil)
	}
	if parallelism <= 0 {
		parallelism = embed.DefaultParallelism
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return &Pipeline{
		store:       st,
		fetcher:     fetcher,
		embedder:    embedder,
		chunker:     chunker,
		parallelism: parallelism,
		logger:      logger,
	}, nil
}

// Process runs the full pipeline for one URL.
//
// Repeat submissions of an already-completed URL are answered from the index
// without re-fetching unless ForceRefresh is set. A refresh keeps serving
// the old chunks until the replacement batch commits.
func (p *Pipeline) Process(ctx context.Context, req ProcessRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := p.store.GetSourceByURL(ctx, req.URL)
	switch {
	case err == nil:
		if existing.Status == store.StatusProcessing {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessing, req.URL)
		}
		if existing.Status == store.StatusCompleted && !req.ForceRefresh {
			p.logger.Debug("cache hit, skipping reprocess", "url", req.URL, "source_id", existing.ID)
			return &Result{
				SourceID:      existing.ID,
				URL:           existing.URL,
				Status:        store.StatusCompleted,
				Language:      existing.Language,
				ChunksCreated: 0,
				Cached:        true,
			}, nil
		}
	case errors.Is(err, store.ErrNotFound):
		// First submission of this URL.
	default:
		return nil, fmt.Errorf("lookup source for %q: %w", req.URL, err)
	}

	src := store.Source{
		ID:          store.SourceID(req.URL),
		URL:         req.URL,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
		Status:      store.StatusProcessing,
	}
	if _, err := p.store.PutSource(ctx, src); err != nil {
		return nil, fmt.Errorf("register source: %w", err)
	}

	result, err := p.run(ctx, src)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// run executes the stages after the source row exists in processing state.
// Stage failures are recorded on the source and returned as a failed Result.
func (p *Pipeline) run(ctx context.Context, src store.Source) (*Result, error) {
	started := time.Now()

	page, err := p.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return p.fail(ctx, src, fmt.Sprintf("fetch: %v", err), fetch.IsTransient(err))
	}

	text := chunk.ExtractText(page.Content)
	lang := language.Detect(text)

	chunks := p.chunker.Split(page.Content, src.ContentType, lang)
	if len(chunks) == 0 {
		return p.fail(ctx, src, "no indexable content extracted", false)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embed.Batch(ctx, p.embedder, texts, p.parallelism)
	if err != nil {
		return p.fail(ctx, src, fmt.Sprintf("embed: %v", err), embed.IsTransient(err))
	}

	src.Title = page.Title
	src.Language = lang
	src.RawContent = text
	src.EmbeddingModel = p.embedder.Model()
	src.FetchedAt = page.FetchedAt
	src.Status = store.StatusProcessing
	if _, err := p.store.PutSource(ctx, src); err != nil {
		return p.fail(ctx, src, fmt.Sprintf("update source: %v", err), true)
	}

	inserts := make([]store.ChunkInsert, len(chunks))
	for i, c := range chunks {
		inserts[i] = store.ChunkInsert{
			Ordinal:     i,
			Text:        c.Text,
			CharCount:   c.CharCount,
			HeadingPath: c.HeadingPath,
			Embedding:   vectors[i],
		}
	}

	ids, deleted, err := p.store.ReplaceChunks(ctx, src.ID, inserts)
	if err != nil {
		return p.fail(ctx, src, fmt.Sprintf("index: %v", err), true)
	}

	if err := p.store.UpdateSourceStatus(ctx, src.ID, store.StatusCompleted, ""); err != nil {
		return p.fail(ctx, src, fmt.Sprintf("complete source: %v", err), true)
	}

	p.logger.Info("processed website",
		"url", src.URL,
		"source_id", src.ID,
		"language", lang,
		"chunks", len(ids),
		"replaced", deleted,
		"duration", time.Since(started))

	return &Result{
		SourceID:      src.ID,
		URL:           src.URL,
		Status:        store.StatusCompleted,
		Language:      lang,
		ChunksCreated: len(ids),
		ChunksDeleted: deleted,
	}, nil
}

// fail records a stage failure on the source and reports it as a Result.
// The status write uses a detached context so a cancelled pipeline still
// leaves the source in a terminal state instead of stuck in processing.
func (p *Pipeline) fail(ctx context.Context, src store.Source, reason string, transient bool) (*Result, error) {
	if ctx.Err() != nil {
		reason = "processing cancelled"
		transient = true
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := p.store.UpdateSourceStatus(writeCtx, src.ID, store.StatusFailed, reason); err != nil {
		return nil, fmt.Errorf("record failure for %q: %w", src.ID, err)
	}

	p.logger.Warn("processing failed",
		"url", src.URL, "source_id", src.ID, "reason", reason, "transient", transient)

	return &Result{
		SourceID:      src.ID,
		URL:           src.URL,
		Status:        store.StatusFailed,
		FailureReason: reason,
		Transient:     transient,
	}, nil
}
