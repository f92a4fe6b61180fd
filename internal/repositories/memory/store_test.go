package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	portsrepo "github.com/SscSPs/ledger_core/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_core/internal/repositories/memory"
	"github.com/SscSPs/ledger_core/internal/repositories/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) portsrepo.Store {
		return memory.New()
	})
}

func TestLockWaitTimeoutIsConflict(t *testing.T) {
	store := memory.New(memory.WithLockWaitTimeout(20 * time.Millisecond))
	ctx := context.Background()

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			if _, err := tx.LockAccounts(ctx, []string{"acc-1"}); err != nil {
				return err
			}
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	err := store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		_, err := tx.LockAccounts(ctx, []string{"acc-2", "acc-1"})
		return err
	})
	close(done)

	assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)
}

func TestLockHonoursContext(t *testing.T) {
	store := memory.New(memory.WithLockWaitTimeout(time.Minute))
	ctx := context.Background()

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			// The lock stays held for the unit of work even though the bill does not exist.
			_, _ = tx.LockSplitBill(ctx, "bill-1")
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := store.WithinTx(cctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		_, err := tx.LockSplitBill(ctx, "bill-1")
		return err
	})
	close(done)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
