// Package api provides the HTTP REST API.
//
// Endpoints:
//
//	POST   /api/websites               submit a URL for indexing
//	GET    /api/websites               list indexed websites
//	GET    /api/websites/{id}          get one website
//	POST   /api/websites/{id}/refresh  re-fetch and re-index
//	POST   /api/websites/{id}/cancel   cancel a running job
//	DELETE /api/websites/{id}          delete a website and its chunks
//	POST   /api/query                  hybrid retrieval
//	GET    /health                     liveness probe
//	GET    /ready                      readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: health check endpoints
//   - websites.go: processing and library endpoints
//   - query.go: retrieval endpoint
//   - response.go: JSON response helpers
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sitedex/sitedex/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8350"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Synchronous processing of a large page can take a while.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the REST API.
type Server struct {
	mux *http.ServeMux

	health   *HealthHandler
	websites *WebsiteHandler
	queries  *QueryHandler
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(db Pinger, processor Processor, jobs JobRegistry, lib Library, querier Querier, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:      mux,
		health:   NewHealthHandler(db, logger),
		websites: NewWebsiteHandler(processor, jobs, lib, logger),
		queries:  NewQueryHandler(querier, logger),
	}

	s.health.RegisterRoutes(mux)
	s.websites.RegisterRoutes(mux)
	s.queries.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware, loggingMiddleware)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
