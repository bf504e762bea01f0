package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sitedex/sitedex/internal/store"
)

// mockSearcher serves canned hits and chunk rows.
type mockSearcher struct {
	vecHits []store.VectorHit
	txtHits []store.TextHit
	chunks  map[string]store.Chunk

	vecErr error
	txtErr error

	lastVectorK     int
	lastContentType string
	lastSourceIDs   []string
}

func (m *mockSearcher) VectorSearch(_ context.Context, _ []float32, k int, contentType string, sourceIDs []string) ([]store.VectorHit, error) {
	m.lastVectorK = k
	m.lastContentType = contentType
	m.lastSourceIDs = sourceIDs
	if m.vecErr != nil {
		return nil, m.vecErr
	}
	if k < len(m.vecHits) {
		return m.vecHits[:k], nil
	}
	return m.vecHits, nil
}

func (m *mockSearcher) TextSearch(_ context.Context, _ string, k int, _ string, _ []string) ([]store.TextHit, error) {
	if m.txtErr != nil {
		return nil, m.txtErr
	}
	if k < len(m.txtHits) {
		return m.txtHits[:k], nil
	}
	return m.txtHits, nil
}

func (m *mockSearcher) GetChunksByIDs(_ context.Context, ids []string) ([]store.Chunk, error) {
	out := make([]store.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// mockQueryEmbedder returns one fixed vector.
type mockQueryEmbedder struct {
	err error
}

func (m *mockQueryEmbedder) Embed(context.Context, string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}
func (m *mockQueryEmbedder) Dimension() int { return 3 }
func (m *mockQueryEmbedder) Model() string  { return "mock" }

// mockSummarizer records its input and returns a canned answer.
type mockSummarizer struct {
	answer       string
	err          error
	calls        int
	lastPassages int
}

func (m *mockSummarizer) Summarize(_ context.Context, _ string, passages []Passage) (string, error) {
	m.calls++
	m.lastPassages = len(passages)
	if m.err != nil {
		return "", m.err
	}
	return fmt.Sprintf("%s (from %d passages)", m.answer, len(passages)), nil
}

func chunkFixture(id, url string) store.Chunk {
	return store.Chunk{
		ID:          id,
		SourceID:    "src_" + id,
		Text:        "chunk text " + id,
		HeadingPath: "Heading " + id,
		SourceURL:   url,
		SourceTitle: "Title " + id,
		ContentType: "job_posting",
	}
}

func testSearcher() *mockSearcher {
	return &mockSearcher{
		vecHits: []store.VectorHit{
			{ChunkID: "c1", Distance: 0.1},
			{ChunkID: "c2", Distance: 0.3},
		},
		txtHits: []store.TextHit{
			{ChunkID: "c1", Rank: 0.8},
			{ChunkID: "c3", Rank: 0.4},
		},
		chunks: map[string]store.Chunk{
			"c1": chunkFixture("c1", "https://example.com/jobs/1"),
			"c2": chunkFixture("c2", "https://example.com/jobs/2"),
			"c3": chunkFixture("c3", "https://example.com/blog/3"),
		},
	}
}

func TestQueryReturnsCitedMatches(t *testing.T) {
	s := testSearcher()
	e, err := New(s, &mockQueryEmbedder{}, nil, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	resp, err := e.Query(context.Background(), Request{Query: "what are the requirements"})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}

	if len(resp.Matches) != 3 {
		t.Fatalf("matches = %d, want 3", len(resp.Matches))
	}
	if resp.Matches[0].ChunkID != "c1" {
		t.Errorf("top match = %s, want c1 (best on both signals)", resp.Matches[0].ChunkID)
	}

	// Every match carries full provenance.
	for _, m := range resp.Matches {
		if m.SourceURL == "" || m.SourceTitle == "" || m.SourceID == "" || m.ContentType == "" {
			t.Errorf("match %s missing citation fields: %+v", m.ChunkID, m)
		}
		if m.Text == "" {
			t.Errorf("match %s has no text", m.ChunkID)
		}
	}

	if resp.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %s, want high (top score 0)", resp.Confidence)
	}
	if resp.Answer != "" {
		t.Errorf("Answer = %q, want empty without synthesis", resp.Answer)
	}
}

func TestQueryEmptyIndex(t *testing.T) {
	s := &mockSearcher{chunks: map[string]store.Chunk{}}
	e, _ := New(s, &mockQueryEmbedder{}, nil, nil)

	resp, err := e.Query(context.Background(), Request{Query: "anything"})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(resp.Matches) != 0 {
		t.Errorf("matches = %d, want 0", len(resp.Matches))
	}
	if resp.Confidence != ConfidenceLow {
		t.Errorf("confidence = %s, want low", resp.Confidence)
	}
}

func TestQueryMaxResultsAndOverFetch(t *testing.T) {
	s := testSearcher()
	e, _ := New(s, &mockQueryEmbedder{}, nil, nil)

	resp, err := e.Query(context.Background(), Request{Query: "q", MaxResults: 1})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(resp.Matches) != 1 {
		t.Errorf("matches = %d, want 1", len(resp.Matches))
	}
	if s.lastVectorK != 2 {
		t.Errorf("vector search k = %d, want maxResults*2", s.lastVectorK)
	}
}

func TestQueryAppliesFilters(t *testing.T) {
	s := testSearcher()
	e, _ := New(s, &mockQueryEmbedder{}, nil, nil)

	_, err := e.Query(context.Background(), Request{
		Query:       "q",
		ContentType: "job_posting",
		SourceIDs:   []string{"src_c1"},
	})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if s.lastContentType != "job_posting" {
		t.Errorf("contentType filter = %q, not forwarded", s.lastContentType)
	}
	if len(s.lastSourceIDs) != 1 || s.lastSourceIDs[0] != "src_c1" {
		t.Errorf("sourceIDs filter = %v, not forwarded", s.lastSourceIDs)
	}
}

func TestQueryValidation(t *testing.T) {
	e, _ := New(testSearcher(), &mockQueryEmbedder{}, nil, nil)

	if _, err := e.Query(context.Background(), Request{}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("empty query = %v, want ErrInvalidQuery", err)
	}
	if _, err := e.Query(context.Background(), Request{Query: "q", MaxResults: -1}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("negative maxResults = %v, want ErrInvalidQuery", err)
	}
	if _, err := e.Query(context.Background(), Request{Query: "q", MaxResults: MaxResultsCeiling + 1}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("maxResults above ceiling = %v, want ErrInvalidQuery", err)
	}
	// The ceiling itself is a valid request.
	if _, err := e.Query(context.Background(), Request{Query: "q", MaxResults: MaxResultsCeiling}); err != nil {
		t.Errorf("maxResults at ceiling = %v, want success", err)
	}
}

func TestQueryEmbedFailure(t *testing.T) {
	wantErr := errors.New("backend down")
	e, _ := New(testSearcher(), &mockQueryEmbedder{err: wantErr}, nil, nil)

	_, err := e.Query(context.Background(), Request{Query: "q"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Query() = %v, want wrapped embed error", err)
	}
}

func TestQueryWithSynthesis(t *testing.T) {
	sum := &mockSummarizer{answer: "the role requires Go"}
	e, _ := New(testSearcher(), &mockQueryEmbedder{}, sum, nil)

	resp, err := e.Query(context.Background(), Request{Query: "q", Synthesize: true})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if resp.Answer == "" {
		t.Error("Answer empty, want synthesized text")
	}
	if sum.calls != 1 {
		t.Errorf("summarizer calls = %d, want 1", sum.calls)
	}
}

func TestQuerySynthesisFailureDegrades(t *testing.T) {
	sum := &mockSummarizer{err: errors.New("model unavailable")}
	e, _ := New(testSearcher(), &mockQueryEmbedder{}, sum, nil)

	resp, err := e.Query(context.Background(), Request{Query: "q", Synthesize: true})
	if err != nil {
		t.Fatalf("Query() error: %v, synthesis failure must not fail the query", err)
	}
	if resp.Answer != "" {
		t.Errorf("Answer = %q, want empty after synthesis failure", resp.Answer)
	}
	if len(resp.Matches) == 0 {
		t.Error("matches lost when synthesis failed")
	}
}

func TestQuerySynthesisGroundsOnTopPassagesOnly(t *testing.T) {
	// Eight matches returned to the caller, but the summarizer must only
	// ever see the strongest five.
	s := &mockSearcher{chunks: map[string]store.Chunk{}}
	for i := range 8 {
		id := fmt.Sprintf("c%d", i)
		s.vecHits = append(s.vecHits, store.VectorHit{ChunkID: id, Distance: 0.1 + float64(i)*0.05})
		s.chunks[id] = chunkFixture(id, "https://example.com/"+id)
	}
	sum := &mockSummarizer{answer: "grounded"}
	e, _ := New(s, &mockQueryEmbedder{}, sum, nil)

	resp, err := e.Query(context.Background(), Request{Query: "q", MaxResults: 10, Synthesize: true})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(resp.Matches) != 8 {
		t.Fatalf("matches = %d, want all 8 returned to the caller", len(resp.Matches))
	}
	if sum.lastPassages != 5 {
		t.Errorf("summarizer received %d passages, want 5", sum.lastPassages)
	}
	if resp.Answer == "" {
		t.Error("Answer missing after successful synthesis")
	}
}

func TestQuerySynthesisNotRequested(t *testing.T) {
	sum := &mockSummarizer{answer: "x"}
	e, _ := New(testSearcher(), &mockQueryEmbedder{}, sum, nil)

	resp, err := e.Query(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if sum.calls != 0 {
		t.Errorf("summarizer called %d times without Synthesize flag", sum.calls)
	}
	if resp.Answer != "" {
		t.Error("Answer set without synthesis request")
	}
}
