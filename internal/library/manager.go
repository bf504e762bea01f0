// Package library manages the collection of indexed websites: listing with
// staleness flags, forced refreshes, and deletion with full index cleanup.
package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sitedex/sitedex/internal/ingest"
	"github.com/sitedex/sitedex/internal/log"
	"github.com/sitedex/sitedex/internal/store"
)

// StaleThreshold is how old a fetch may be before the website is flagged as
// a refresh candidate. Flagging only; nothing refreshes automatically.
const StaleThreshold = 30 * 24 * time.Hour

// ErrNotFound mirrors the store sentinel for callers that don't import it.
var ErrNotFound = store.ErrNotFound

// Store is the persistence surface the manager needs.
type Store interface {
	GetSource(ctx context.Context, id string) (store.Source, error)
	ListSources(ctx context.Context, f store.ListFilter) ([]store.Source, int, error)
	DeleteSource(ctx context.Context, id string) (int, error)
}

// Processor re-runs the ingestion pipeline for refreshes. Satisfied by
// *ingest.Pipeline.
type Processor interface {
	Process(ctx context.Context, req ingest.ProcessRequest) (*ingest.Result, error)
}

// Website is one library entry: a source plus derived presentation fields.
type Website struct {
	store.Source

	// Stale flags entries fetched more than StaleThreshold ago.
	Stale bool
}

// ListRequest narrows and pages the library listing.
type ListRequest struct {
	ContentType string
	Status      store.Status
	Limit       int
	Offset      int
	OrderBy     string
	Order       string
}

// ListResult is one page of the library.
type ListResult struct {
	Websites []Website
	Total    int
	HasMore  bool
}

// RefreshResult reports what a refresh replaced.
type RefreshResult struct {
	SourceID         string
	URL              string
	Status           store.Status
	OldChunksDeleted int
	NewChunksCreated int
	FailureReason    string
}

// DeleteResult confirms a deletion and its blast radius.
type DeleteResult struct {
	SourceID      string
	URL           string
	ChunksDeleted int
}

// Manager exposes the library operations.
type Manager struct {
	store     Store
	processor Processor
	logger    log.Logger
	now       func() time.Time
}

// New creates a library manager.
func New(st Store, processor Processor, logger log.Logger) (*Manager, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{
		store:     st,
		processor: processor,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// List returns a page of indexed websites with staleness flags.
func (m *Manager) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	sources, total, err := m.store.ListSources(ctx, store.ListFilter{
		ContentType: req.ContentType,
		Status:      req.Status,
		Limit:       req.Limit,
		Offset:      req.Offset,
		OrderBy:     req.OrderBy,
		Order:       req.Order,
	})
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}

	now := m.now()
	websites := make([]Website, len(sources))
	for i, src := range sources {
		websites[i] = Website{
			Source: src,
			Stale:  src.IsStale(now, StaleThreshold),
		}
	}

	return &ListResult{
		Websites: websites,
		Total:    total,
		HasMore:  req.Offset+len(websites) < total,
	}, nil
}

// Get returns one website by ID.
func (m *Manager) Get(ctx context.Context, sourceID string) (*Website, error) {
	src, err := m.store.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return &Website{Source: src, Stale: src.IsStale(m.now(), StaleThreshold)}, nil
}

// Refresh re-fetches and re-indexes a website. The existing chunks keep
// serving queries until the replacement batch commits; a failed refresh
// leaves the old index intact and records the failure on the source.
func (m *Manager) Refresh(ctx context.Context, sourceID string) (*RefreshResult, error) {
	src, err := m.store.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	result, err := m.processor.Process(ctx, ingest.ProcessRequest{
		URL:          src.URL,
		ContentType:  src.ContentType,
		Metadata:     src.Metadata,
		ForceRefresh: true,
	})
	if err != nil {
		return nil, fmt.Errorf("refresh %q: %w", sourceID, err)
	}

	m.logger.Info("refreshed website",
		"source_id", sourceID,
		"status", result.Status,
		"chunks_deleted", result.ChunksDeleted,
		"chunks_created", result.ChunksCreated)

	return &RefreshResult{
		SourceID:         result.SourceID,
		URL:              result.URL,
		Status:           result.Status,
		OldChunksDeleted: result.ChunksDeleted,
		NewChunksCreated: result.ChunksCreated,
		FailureReason:    result.FailureReason,
	}, nil
}

// Delete removes a website and everything derived from it. Deleting an
// unknown ID returns ErrNotFound.
func (m *Manager) Delete(ctx context.Context, sourceID string) (*DeleteResult, error) {
	src, err := m.store.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	chunksDeleted, err := m.store.DeleteSource(ctx, sourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete %q: %w", sourceID, err)
	}

	m.logger.Info("deleted website", "source_id", sourceID, "url", src.URL, "chunks", chunksDeleted)

	return &DeleteResult{
		SourceID:      sourceID,
		URL:           src.URL,
		ChunksDeleted: chunksDeleted,
	}, nil
}
