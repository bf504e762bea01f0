package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sitedex/sitedex/internal/log"
	"github.com/sitedex/sitedex/internal/query"
)

// Querier answers retrieval questions. Satisfied by *query.Engine.
type Querier interface {
	Query(ctx context.Context, req query.Request) (*query.Response, error)
}

// QueryHandler handles the retrieval endpoint.
type QueryHandler struct {
	engine Querier
	logger log.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(engine Querier, logger log.Logger) *QueryHandler {
	return &QueryHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers query routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.query)
}

// QueryRequest is the request body for a retrieval question.
type QueryRequest struct {
	Query       string   `json:"query"`
	MaxResults  int      `json:"max_results,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	SourceIDs   []string `json:"source_ids,omitempty"`
	Synthesize  bool     `json:"synthesize,omitempty"`
}

// MatchResponse is one retrieved chunk with its provenance.
type MatchResponse struct {
	ChunkID     string  `json:"chunk_id"`
	Text        string  `json:"text"`
	HeadingPath string  `json:"heading_path,omitempty"`
	Score       float64 `json:"score"`

	SourceID    string `json:"source_id"`
	SourceURL   string `json:"source_url"`
	SourceTitle string `json:"source_title"`
	ContentType string `json:"content_type"`
}

// QueryResponse is a ranked, cited result set.
type QueryResponse struct {
	Matches      []MatchResponse `json:"matches"`
	TotalResults int             `json:"total_results"`
	Confidence   string          `json:"confidence"`
	Answer       string          `json:"answer,omitempty"`
}

// query answers one retrieval question.
func (h *QueryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	resp, err := h.engine.Query(r.Context(), query.Request{
		Query:       req.Query,
		MaxResults:  req.MaxResults,
		ContentType: req.ContentType,
		SourceIDs:   req.SourceIDs,
		Synthesize:  req.Synthesize,
	})
	if err != nil {
		if errors.Is(err, query.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		h.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "query failed")
		return
	}

	matches := make([]MatchResponse, len(resp.Matches))
	for i, m := range resp.Matches {
		matches[i] = MatchResponse{
			ChunkID:     m.ChunkID,
			Text:        m.Text,
			HeadingPath: m.HeadingPath,
			Score:       m.Score,
			SourceID:    m.SourceID,
			SourceURL:   m.SourceURL,
			SourceTitle: m.SourceTitle,
			ContentType: m.ContentType,
		}
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Matches:      matches,
		TotalResults: len(matches),
		Confidence:   string(resp.Confidence),
		Answer:       resp.Answer,
	})
}
