package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
)

// keyedLocks hands out one exclusive lock per key. A lock is a buffered
// channel of capacity one so that waiting can be abandoned on ctx or timeout.
// Entries are reference counted by holders and waiters and dropped when idle.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[string]*lockEntry)}
}

// ref returns the entry for key and counts the caller as a user of it.
func (l *keyedLocks) ref(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *keyedLocks) unref(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *keyedLocks) acquire(ctx context.Context, key string, wait time.Duration) error {
	e := l.ref(key)

	select {
	case e.ch <- struct{}{}:
		return nil
	default:
	}

	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(key, e)
		return ctx.Err()
	case <-timeout:
		l.unref(key, e)
		return fmt.Errorf("%w: timed out waiting for lock on %s", apperrors.ErrConcurrencyConflict, key)
	}
}

// release must only be called by the current holder of key.
func (l *keyedLocks) release(key string) {
	l.mu.Lock()
	e := l.entries[key]
	l.mu.Unlock()
	<-e.ch
	l.unref(key, e)
}
