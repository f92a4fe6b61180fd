// Package repositories selects and opens the configured ledger store.
package repositories

import (
	"context"
	"fmt"
	"log/slog"

	portsrepo "github.com/SscSPs/ledger_core/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_core/internal/platform/config"
	"github.com/SscSPs/ledger_core/internal/repositories/database/pgsql"
	"github.com/SscSPs/ledger_core/internal/repositories/database/sqlite"
	"github.com/SscSPs/ledger_core/internal/repositories/memory"
	"github.com/SscSPs/ledger_core/pkg/database"
)

// NewStore opens the store named by cfg.StoreDriver. The caller owns the
// returned store and must Close it.
func NewStore(ctx context.Context, cfg *config.Config) (portsrepo.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if cfg.RunMigrations {
			applied, err := database.RunMigrations(ctx, cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			slog.InfoContext(ctx, "Database migrations checked", slog.Bool("applied", applied))
		}
		pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database connection pool: %w", err)
		}
		return pgsql.NewStore(pool, pgsql.WithLockWaitTimeout(cfg.LockWaitTimeout)), nil
	case config.DriverSQLite:
		store, err := sqlite.New(ctx, cfg.SQLitePath, sqlite.WithBusyTimeout(cfg.LockWaitTimeout))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		slog.InfoContext(ctx, "Using SQLite store", slog.String("path", cfg.SQLitePath))
		return store, nil
	case config.DriverMemory:
		slog.WarnContext(ctx, "Using in-memory store, data will not survive a restart")
		return memory.New(memory.WithLockWaitTimeout(cfg.LockWaitTimeout)), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
