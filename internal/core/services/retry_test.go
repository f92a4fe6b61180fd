package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

var fastRetry = RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestRetryOnConflict_RetriesThenSucceeds(t *testing.T) {
	calls, retries := 0, 0
	err := retryOnConflict(context.Background(), fastRetry, func(error) { retries++ }, func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: account a", apperrors.ErrConcurrencyConflict)
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestRetryOnConflict_SurfacesConflictWhenExhausted(t *testing.T) {
	calls := 0
	err := retryOnConflict(context.Background(), fastRetry, nil, func() error {
		calls++
		return apperrors.ErrConcurrencyConflict
	})
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)
	assert.Equal(t, 3, calls)
}

func TestRetryOnConflict_DoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	cause := errors.New("disk full")
	err := retryOnConflict(context.Background(), fastRetry, nil, func() error {
		calls++
		return cause
	})
	assert.Equal(t, cause, err)
	assert.Equal(t, 1, calls)
}

func TestRetryOnConflict_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 10, InitialInterval: 50 * time.Millisecond, MaxInterval: 50 * time.Millisecond}
	calls := 0
	err := retryOnConflict(ctx, cfg, nil, func() error {
		calls++
		cancel()
		return apperrors.ErrConcurrencyConflict
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
