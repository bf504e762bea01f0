package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitedex/sitedex/db"
	"github.com/sitedex/sitedex/internal/chunk"
	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/internal/embed"
	"github.com/sitedex/sitedex/internal/fetch"
	"github.com/sitedex/sitedex/internal/ingest"
	"github.com/sitedex/sitedex/internal/library"
	"github.com/sitedex/sitedex/internal/log"
	"github.com/sitedex/sitedex/internal/query"
	"github.com/sitedex/sitedex/internal/store"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup, call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.New(log.Config{})
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	st := store.New(pool, logger)
	if err := st.EnsureEmbeddingModel(ctx, cfg.EmbedderModel, cfg.EmbedderDimension); err != nil {
		return nil, err
	}
	a.Store = st

	embedder, err := embed.NewClient(ctx, embed.ClientConfig{
		APIKey:    os.Getenv("GEMINI_API_KEY"),
		Model:     cfg.EmbedderModel,
		Dimension: cfg.EmbedderDimension,
		RPS:       float64(cfg.EmbedderRPS),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	fetcher := fetch.NewClient(fetch.Config{
		Timeout:     time.Duration(cfg.FetchTimeoutMS) * time.Millisecond,
		MaxBodySize: cfg.FetchMaxBodySize,
	}, logger)

	chunker := chunk.New(chunk.DefaultPolicies())

	pipeline, err := ingest.New(st, fetcher, embedder, chunker, cfg.EmbedderParallelism, logger)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}
	a.Pipeline = pipeline
	a.Registry = ingest.NewRegistry(pipeline, logger)

	var summarizer query.Summarizer
	if cfg.SynthesisEnabled {
		s, err := query.NewGenAISummarizer(ctx, os.Getenv("GEMINI_API_KEY"), cfg.SynthesisModel)
		if err != nil {
			return nil, fmt.Errorf("creating summarizer: %w", err)
		}
		summarizer = s
	}

	engine, err := query.New(st, embedder, summarizer, logger)
	if err != nil {
		return nil, fmt.Errorf("creating query engine: %w", err)
	}
	a.Engine = engine

	lib, err := library.New(st, pipeline, logger)
	if err != nil {
		return nil, fmt.Errorf("creating library manager: %w", err)
	}
	a.Library = lib

	return a, nil
}

// provideDBPool runs pending migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}
