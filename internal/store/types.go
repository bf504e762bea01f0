package store

import (
	"time"

	"github.com/sitedex/sitedex/internal/language"
)

// Status is the processing state of a Source.
type Status string

// Source state machine: pending -> processing -> completed | failed.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Source is one processed origin URL with its metadata and lifecycle state.
type Source struct {
	ID             string            // stable, derived from the URL
	URL            string
	Title          string
	ContentType    string
	Language       language.Language
	RawContent     string // retained for re-chunking without re-fetching
	Metadata       map[string]string
	Status         Status
	LastError      string // empty when no error recorded
	ChunkCount     int
	EmbeddingModel string
	FetchedAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsStale reports whether the source was fetched longer ago than threshold.
func (s Source) IsStale(now time.Time, threshold time.Duration) bool {
	return !s.FetchedAt.IsZero() && now.Sub(s.FetchedAt) > threshold
}

// Chunk is one retrievable unit of text belonging to exactly one Source.
// Chunks are immutable after creation; they are only ever removed by a
// cascading source delete or replaced wholesale on refresh.
type Chunk struct {
	ID          string
	SourceID    string
	Ordinal     int
	Text        string
	CharCount   int
	HeadingPath string
	CreatedAt   time.Time

	// Citation fields joined from the owning source.
	SourceURL   string
	SourceTitle string
	ContentType string
}

// ChunkInsert is the write-side shape for one chunk of a batch. The store
// derives the full-text entry from Text; the embedding must already have the
// pinned dimension.
type ChunkInsert struct {
	Ordinal     int
	Text        string
	CharCount   int
	HeadingPath string
	Embedding   []float32
}

// VectorHit is one nearest-neighbor candidate, ordered by increasing cosine
// distance (lower is better).
type VectorHit struct {
	ChunkID  string
	Distance float64
}

// TextHit is one full-text candidate, ordered by decreasing rank (higher is
// better).
type TextHit struct {
	ChunkID string
	Rank    float64
}

// ListFilter narrows and pages a source listing.
type ListFilter struct {
	ContentType string // optional
	Status      Status // optional
	Limit       int
	Offset      int
	OrderBy     string // one of: fetched_at, created_at, updated_at, url, title, status
	Order       string // asc | desc
}
