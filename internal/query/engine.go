// Package query answers natural-language questions against the indexed
// chunks by fusing vector similarity with full-text relevance.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sitedex/sitedex/internal/embed"
	"github.com/sitedex/sitedex/internal/log"
	"github.com/sitedex/sitedex/internal/store"
)

// ErrInvalidQuery indicates a malformed query request.
var ErrInvalidQuery = errors.New("invalid query request")

const (
	// DefaultMaxResults is used when the request leaves MaxResults unset.
	DefaultMaxResults = 5

	// MaxResultsCeiling caps how many matches one query may request.
	MaxResultsCeiling = 20

	// synthesisPassages bounds how many top matches ground a synthesized
	// answer; prompts grow with passage count, answer quality does not.
	synthesisPassages = 5

	// overFetchFactor widens both candidate sets before fusion so a chunk
	// ranked just outside the top K by one signal can still win overall.
	overFetchFactor = 2
)

// Searcher is the retrieval surface the engine needs. Satisfied by
// *store.Store.
type Searcher interface {
	VectorSearch(ctx context.Context, queryVector []float32, k int, contentType string, sourceIDs []string) ([]store.VectorHit, error)
	TextSearch(ctx context.Context, queryText string, k int, contentType string, sourceIDs []string) ([]store.TextHit, error)
	GetChunksByIDs(ctx context.Context, ids []string) ([]store.Chunk, error)
}

// Summarizer produces a synthesized answer from retrieved passages.
// Optional; retrieval works without it.
type Summarizer interface {
	Summarize(ctx context.Context, query string, passages []Passage) (string, error)
}

// Request is one retrieval question.
type Request struct {
	Query       string
	MaxResults  int      // default DefaultMaxResults, rejected above MaxResultsCeiling
	ContentType string   // optional filter
	SourceIDs   []string // optional filter to specific websites
	Synthesize  bool     // request a generated answer alongside the matches
}

// Passage is the citation-bearing unit handed to the summarizer and
// returned to callers.
type Passage struct {
	ChunkID     string
	Text        string
	HeadingPath string
	Score       float64

	// Citation fields. Always populated: a match without provenance is a
	// bug, not an option.
	SourceID    string
	SourceURL   string
	SourceTitle string
	ContentType string
}

// Response is a ranked result set with provenance.
type Response struct {
	Matches    []Passage
	Confidence Confidence

	// Answer is only set when synthesis was requested and succeeded.
	// Synthesis failures degrade to retrieval-only, they never fail the
	// query.
	Answer string
}

// Engine runs hybrid retrieval. Safe for concurrent use.
type Engine struct {
	searcher   Searcher
	embedder   embed.Embedder
	summarizer Summarizer // nil disables synthesis
	logger     log.Logger
}

// New creates a query engine. summarizer may be nil.
func New(searcher Searcher, embedder embed.Embedder, summarizer Summarizer, logger log.Logger) (*Engine, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{
		searcher:   searcher,
		embedder:   embedder,
		summarizer: summarizer,
		logger:     logger,
	}, nil
}

// Query retrieves the best-matching chunks for a question.
//
// Both retrieval paths run over the same filtered candidate set and are
// fused into one deterministic ranking. An empty index (or a query matching
// nothing) returns an empty, low-confidence response rather than an error.
func (e *Engine) Query(ctx context.Context, req Request) (*Response, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query text is required", ErrInvalidQuery)
	}
	if req.MaxResults < 0 {
		return nil, fmt.Errorf("%w: maxResults must be non-negative", ErrInvalidQuery)
	}
	if req.MaxResults > MaxResultsCeiling {
		return nil, fmt.Errorf("%w: maxResults must not exceed %d", ErrInvalidQuery, MaxResultsCeiling)
	}
	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = DefaultMaxResults
	}

	started := time.Now()

	queryVec, err := e.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	overFetch := maxResults * overFetchFactor

	vecHits, err := e.searcher.VectorSearch(ctx, queryVec, overFetch, req.ContentType, req.SourceIDs)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	txtHits, err := e.searcher.TextSearch(ctx, req.Query, overFetch, req.ContentType, req.SourceIDs)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}

	fused := fuse(vecHits, txtHits, maxResults)
	resp := &Response{Confidence: confidenceOf(fused)}
	if len(fused) == 0 {
		e.logger.Debug("query matched nothing", "query_len", len(req.Query))
		return resp, nil
	}

	ids := make([]string, len(fused))
	scores := make(map[string]float64, len(fused))
	for i, h := range fused {
		ids[i] = h.ChunkID
		scores[h.ChunkID] = h.Score
	}

	chunks, err := e.searcher.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load matched chunks: %w", err)
	}

	resp.Matches = make([]Passage, 0, len(chunks))
	for _, c := range chunks {
		resp.Matches = append(resp.Matches, Passage{
			ChunkID:     c.ID,
			Text:        c.Text,
			HeadingPath: c.HeadingPath,
			Score:       scores[c.ID],
			SourceID:    c.SourceID,
			SourceURL:   c.SourceURL,
			SourceTitle: c.SourceTitle,
			ContentType: c.ContentType,
		})
	}

	if req.Synthesize && e.summarizer != nil {
		// Ground the answer on the strongest passages only, even when the
		// caller asked for a larger match set.
		grounding := resp.Matches
		if len(grounding) > synthesisPassages {
			grounding = grounding[:synthesisPassages]
		}
		answer, err := e.summarizer.Summarize(ctx, req.Query, grounding)
		if err != nil {
			e.logger.Warn("answer synthesis failed, returning matches only", "error", err)
		} else {
			resp.Answer = answer
		}
	}

	e.logger.Debug("query answered",
		"matches", len(resp.Matches),
		"confidence", resp.Confidence,
		"vector_hits", len(vecHits),
		"text_hits", len(txtHits),
		"duration", time.Since(started))

	return resp, nil
}
