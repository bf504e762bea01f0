package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/sitedex/sitedex/internal/log"
	"github.com/sitedex/sitedex/internal/store"
)

// Registry runs pipeline jobs in the background and tracks them so callers
// can cancel a running job or wait for all of them on shutdown. At most one
// job runs per source at a time.
type Registry struct {
	pipeline *Pipeline
	logger   log.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewRegistry creates an empty job registry.
func NewRegistry(pipeline *Pipeline, logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Registry{
		pipeline: pipeline,
		logger:   logger,
		running:  make(map[string]context.CancelFunc),
	}
}

// ProcessAsync starts processing in the background and returns the source ID
// immediately. The caller polls the source status for the outcome.
// Returns ErrAlreadyProcessing when a job for the same URL is in flight.
func (r *Registry) ProcessAsync(req ProcessRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	sourceID := store.SourceID(req.URL)

	r.mu.Lock()
	if _, busy := r.running[sourceID]; busy {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrAlreadyProcessing, req.URL)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.running[sourceID] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.running, sourceID)
			r.mu.Unlock()
			cancel()
			r.wg.Done()
		}()

		result, err := r.pipeline.Process(ctx, req)
		if err != nil {
			r.logger.Error("background processing error", "url", req.URL, "error", err)
			return
		}
		r.logger.Debug("background processing finished",
			"url", req.URL, "status", result.Status)
	}()

	return sourceID, nil
}

// Cancel aborts a running job. Returns false when no job is running for the
// source. The job records "processing cancelled" on the source before it
// exits, so cancellation never leaves a source stuck in processing.
func (r *Registry) Cancel(sourceID string) bool {
	r.mu.Lock()
	cancel, ok := r.running[sourceID]
	r.mu.Unlock()

	if !ok {
		return false
	}
	cancel()
	r.logger.Info("cancelled processing", "source_id", sourceID)
	return true
}

// Running returns the source IDs of in-flight jobs.
func (r *Registry) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.running))
	for id := range r.running {
		ids = append(ids, id)
	}
	return ids
}

// Wait blocks until every background job has finished. Used on shutdown,
// typically after cancelling the jobs.
func (r *Registry) Wait() {
	r.wg.Wait()
}
