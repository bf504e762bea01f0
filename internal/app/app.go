// Package app wires the application together. App is the container that owns
// the database pool and the long-lived components built on top of it; Setup
// constructs everything in dependency order and Close releases it.
package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/internal/ingest"
	"github.com/sitedex/sitedex/internal/library"
	"github.com/sitedex/sitedex/internal/log"
	"github.com/sitedex/sitedex/internal/query"
	"github.com/sitedex/sitedex/internal/store"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services
	DBPool   *pgxpool.Pool
	Store    *store.Store
	Pipeline *ingest.Pipeline
	Registry *ingest.Registry
	Engine   *query.Engine
	Library  *library.Manager
}

// Close releases all resources. Background jobs are drained first so no
// status write races the pool teardown.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.Registry != nil {
		a.Registry.Wait()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}
