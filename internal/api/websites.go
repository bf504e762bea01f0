package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sitedex/sitedex/internal/ingest"
	"github.com/sitedex/sitedex/internal/library"
	"github.com/sitedex/sitedex/internal/log"
	"github.com/sitedex/sitedex/internal/store"
)

// Listing bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	MaxListOffset    = 100000
)

// Processor runs the ingestion pipeline synchronously. Satisfied by
// *ingest.Pipeline.
type Processor interface {
	Process(ctx context.Context, req ingest.ProcessRequest) (*ingest.Result, error)
}

// JobRegistry runs and cancels background processing jobs. Satisfied by
// *ingest.Registry.
type JobRegistry interface {
	ProcessAsync(req ingest.ProcessRequest) (string, error)
	Cancel(sourceID string) bool
}

// Library is the website collection surface. Satisfied by *library.Manager.
type Library interface {
	List(ctx context.Context, req library.ListRequest) (*library.ListResult, error)
	Get(ctx context.Context, sourceID string) (*library.Website, error)
	Refresh(ctx context.Context, sourceID string) (*library.RefreshResult, error)
	Delete(ctx context.Context, sourceID string) (*library.DeleteResult, error)
}

// WebsiteHandler handles website processing and library endpoints.
type WebsiteHandler struct {
	processor Processor
	jobs      JobRegistry
	library   Library
	logger    log.Logger
}

// NewWebsiteHandler creates a website handler.
func NewWebsiteHandler(processor Processor, jobs JobRegistry, lib Library, logger log.Logger) *WebsiteHandler {
	return &WebsiteHandler{processor: processor, jobs: jobs, library: lib, logger: logger}
}

// RegisterRoutes registers website routes on the given mux.
func (h *WebsiteHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/websites", h.process)
	mux.HandleFunc("GET /api/websites", h.list)
	mux.HandleFunc("GET /api/websites/{id}", h.get)
	mux.HandleFunc("POST /api/websites/{id}/refresh", h.refresh)
	mux.HandleFunc("POST /api/websites/{id}/cancel", h.cancel)
	mux.HandleFunc("DELETE /api/websites/{id}", h.delete)
}

// ProcessWebsiteRequest is the request body for submitting a URL.
type ProcessWebsiteRequest struct {
	URL          string            `json:"url"`
	ContentType  string            `json:"content_type"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	ForceRefresh bool              `json:"force_refresh,omitempty"`

	// Async returns 202 immediately; the caller polls the website status.
	Async bool `json:"async,omitempty"`
}

// ProcessWebsiteResponse reports the processing outcome (or acceptance, for
// async submissions).
type ProcessWebsiteResponse struct {
	SourceID      string `json:"source_id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	Language      string `json:"language,omitempty"`
	ChunksCreated int    `json:"chunks_created"`
	ChunksDeleted int    `json:"chunks_deleted,omitempty"`
	Cached        bool   `json:"cached,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	Transient     bool   `json:"transient,omitempty"`
}

// process submits one URL for indexing.
func (h *WebsiteHandler) process(w http.ResponseWriter, r *http.Request) {
	var req ProcessWebsiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	preq := ingest.ProcessRequest{
		URL:          req.URL,
		ContentType:  req.ContentType,
		Metadata:     req.Metadata,
		ForceRefresh: req.ForceRefresh,
	}

	if req.Async {
		sourceID, err := h.jobs.ProcessAsync(preq)
		if err != nil {
			h.writeProcessError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, ProcessWebsiteResponse{
			SourceID: sourceID,
			URL:      req.URL,
			Status:   string(store.StatusProcessing),
		})
		return
	}

	result, err := h.processor.Process(r.Context(), preq)
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProcessWebsiteResponse{
		SourceID:      result.SourceID,
		URL:           result.URL,
		Status:        string(result.Status),
		Language:      string(result.Language),
		ChunksCreated: result.ChunksCreated,
		ChunksDeleted: result.ChunksDeleted,
		Cached:        result.Cached,
		FailureReason: result.FailureReason,
		Transient:     result.Transient,
	})
}

func (h *WebsiteHandler) writeProcessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ingest.ErrAlreadyProcessing):
		writeError(w, http.StatusConflict, "already_processing", err.Error())
	default:
		h.logger.Error("processing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "processing failed")
	}
}

// WebsiteResponse is one library entry.
type WebsiteResponse struct {
	SourceID       string            `json:"source_id"`
	URL            string            `json:"url"`
	Title          string            `json:"title"`
	ContentType    string            `json:"content_type"`
	Language       string            `json:"language"`
	Status         string            `json:"status"`
	LastError      string            `json:"last_error,omitempty"`
	ChunkCount     int               `json:"chunk_count"`
	EmbeddingModel string            `json:"embedding_model"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	FetchedAt      *time.Time        `json:"fetched_at,omitempty"`
	Stale          bool              `json:"stale"`
}

func websiteResponse(site library.Website) WebsiteResponse {
	resp := WebsiteResponse{
		SourceID:       site.ID,
		URL:            site.URL,
		Title:          site.Title,
		ContentType:    site.ContentType,
		Language:       string(site.Language),
		Status:         string(site.Status),
		LastError:      site.LastError,
		ChunkCount:     site.ChunkCount,
		EmbeddingModel: site.EmbeddingModel,
		Metadata:       site.Metadata,
		Stale:          site.Stale,
	}
	if !site.FetchedAt.IsZero() {
		t := site.FetchedAt
		resp.FetchedAt = &t
	}
	return resp
}

// list returns a page of indexed websites.
// Query parameters: limit, offset, content_type, status, order_by, order.
func (h *WebsiteHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.library.List(r.Context(), library.ListRequest{
		ContentType: q.Get("content_type"),
		Status:      store.Status(q.Get("status")),
		Limit:       parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit),
		Offset:      parseIntParam(r, "offset", 0, 0, MaxListOffset),
		OrderBy:     q.Get("order_by"),
		Order:       q.Get("order"),
	})
	if err != nil {
		h.logger.Error("failed to list websites", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list websites")
		return
	}

	websites := make([]WebsiteResponse, len(result.Websites))
	for i, site := range result.Websites {
		websites[i] = websiteResponse(site)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"websites": websites,
		"total":    result.Total,
		"has_more": result.HasMore,
	})
}

// get returns one website by source ID.
func (h *WebsiteHandler) get(w http.ResponseWriter, r *http.Request) {
	site, err := h.library.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeLibraryError(w, err, "failed to get website")
		return
	}
	writeJSON(w, http.StatusOK, websiteResponse(*site))
}

// refresh re-fetches and re-indexes a website in place.
func (h *WebsiteHandler) refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.library.Refresh(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ingest.ErrAlreadyProcessing) {
			writeError(w, http.StatusConflict, "already_processing", err.Error())
			return
		}
		h.writeLibraryError(w, err, "failed to refresh website")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"source_id":          result.SourceID,
		"url":                result.URL,
		"status":             string(result.Status),
		"old_chunks_deleted": result.OldChunksDeleted,
		"new_chunks_created": result.NewChunksCreated,
		"failure_reason":     result.FailureReason,
	})
}

// cancel aborts a running background job.
func (h *WebsiteHandler) cancel(w http.ResponseWriter, r *http.Request) {
	sourceID := r.PathValue("id")
	if !h.jobs.Cancel(sourceID) {
		writeError(w, http.StatusNotFound, "not_found", "no running job for source")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"source_id": sourceID, "cancelled": true})
}

// delete removes a website and all of its chunks.
func (h *WebsiteHandler) delete(w http.ResponseWriter, r *http.Request) {
	result, err := h.library.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeLibraryError(w, err, "failed to delete website")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"source_id":      result.SourceID,
		"url":            result.URL,
		"chunks_deleted": result.ChunksDeleted,
	})
}

func (h *WebsiteHandler) writeLibraryError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	h.logger.Error(message, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", message)
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
