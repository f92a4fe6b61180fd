// Package sqlite provides a single-file SQLite implementation of the ledger store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	portsrepo "github.com/SscSPs/ledger_core/internal/core/ports/repositories"
	sqlitedriver "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
	sqlite3 "modernc.org/sqlite/lib"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type reader struct {
	q querier
}

type writer struct {
	reader
}

// Store implements portsrepo.Store using SQLite.
// Writers are serialized by the database: every transaction begins IMMEDIATE
// on a single connection.
type Store struct {
	reader
	db *sql.DB
}

var (
	_ portsrepo.Store    = (*Store)(nil)
	_ portsrepo.LedgerTx = writer{}
)

type options struct {
	busyTimeout time.Duration
}

// Option configures the SQLite store.
type Option func(*options)

// WithBusyTimeout bounds how long a writer waits for the database lock
// before the attempt is reported as a concurrency conflict.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		o.busyTimeout = d
	}
}

// New opens (creating if needed) the database at dbPath and applies the schema.
func New(ctx context.Context, dbPath string, opts ...Option) (*Store, error) {
	o := options{busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_txlock=immediate",
		dbPath, o.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{reader: reader{q: db}, db: db}, nil
}

// WithinTx runs fn in one IMMEDIATE transaction and commits when fn succeeds
// and ctx is still live.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err, "failed to begin transaction")
	}
	defer tx.Rollback() // Ignored if the transaction is committed

	if err := fn(ctx, writer{reader{q: tx}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(err, "failed to commit transaction")
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// mapError classifies SQLite errors into ledger error kinds.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		switch {
		case code&0xff == sqlite3.SQLITE_BUSY, code&0xff == sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %s: %w", apperrors.ErrConcurrencyConflict, msg, err)
		case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
			code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "FOREIGN KEY"):
			return fmt.Errorf("%w: %s: %w", apperrors.ErrReferentialConflict, msg, err)
		case code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, code == sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%w: %s: %w", apperrors.ErrDuplicate, msg, err)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

func fromMicros(n int64) time.Time {
	return time.UnixMicro(n).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
