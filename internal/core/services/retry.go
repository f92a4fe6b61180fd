package services

import (
	"context"
	"errors"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/cenkalti/backoff/v4"
)

// RetryConfig bounds how often a unit of work is retried after a concurrency conflict.
type RetryConfig struct {
	MaxAttempts     int // total attempts including the first
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig is used when no WithRetry option is given.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	InitialInterval: 20 * time.Millisecond,
	MaxInterval:     500 * time.Millisecond,
}

// retryOnConflict runs fn until it succeeds, fails with something other than
// ErrConcurrencyConflict, runs out of attempts, or ctx ends. The last conflict
// is returned unchanged when attempts run out.
func retryOnConflict(ctx context.Context, cfg RetryConfig, onRetry func(err error), fn func() error) error {
	if cfg.MaxAttempts <= 1 {
		return fn()
	}

	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.MaxAttempts-1)), ctx)

	return backoff.RetryNotify(func() error {
		err := fn()
		if err == nil || errors.Is(err, apperrors.ErrConcurrencyConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, func(err error, _ time.Duration) {
		if onRetry != nil {
			onRetry(err)
		}
	})
}
