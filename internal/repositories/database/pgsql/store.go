package pgsql

import (
	"context"
	"fmt"
	"time"

	portsrepo "github.com/SscSPs/ledger_core/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// reader holds the read queries, run against either the pool or a transaction.
type reader struct {
	q querier
}

// writer adds the write queries. It only ever wraps a pgx.Tx.
type writer struct {
	reader
}

// Store is the Postgres implementation of portsrepo.Store.
type Store struct {
	BaseRepository
	reader
	lockWait time.Duration
}

var (
	_ portsrepo.Store    = (*Store)(nil)
	_ portsrepo.LedgerTx = writer{}
)

// Option configures the Postgres store.
type Option func(*Store)

// WithLockWaitTimeout bounds how long a unit of work waits for row locks.
// A lock wait that runs out is reported as a concurrency conflict.
func WithLockWaitTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockWait = d
	}
}

// NewStore creates a store over an open pool. The schema must already be migrated.
func NewStore(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		BaseRepository: BaseRepository{Pool: pool},
		reader:         reader{q: pool},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithinTx runs fn inside one database transaction. The transaction commits
// only when fn succeeds and ctx is still live.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer s.Rollback(context.WithoutCancel(ctx), tx) // Ignored if the transaction is committed

	if s.lockWait > 0 {
		timeout := fmt.Sprintf("%dms", s.lockWait.Milliseconds())
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true);`, timeout); err != nil {
			return mapError(err, "failed to set lock timeout")
		}
	}

	if err := fn(ctx, writer{reader{q: tx}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Commit(ctx, tx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.Pool.Close()
	return nil
}
