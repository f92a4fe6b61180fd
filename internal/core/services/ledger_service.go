package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	portsrepo "github.com/SscSPs/ledger_core/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_core/internal/core/ports/services"
	"github.com/google/uuid"
)

// OperationObserver receives one observation per facade operation.
type OperationObserver interface {
	ObserveOperation(op string, err error, elapsed time.Duration)
	ObserveRetry(op string)
}

type noopObserver struct{}

func (noopObserver) ObserveOperation(string, error, time.Duration) {}
func (noopObserver) ObserveRetry(string)                           {}

// ledgerCore holds what every ledger component shares.
type ledgerCore struct {
	BaseService
	now   func() time.Time
	newID func() string
}

// ledgerService is the facade over the account store, transaction log,
// transfer engine and settlement tracker. Every mutating operation runs as
// one unit of work against the store.
type ledgerService struct {
	*ledgerCore
	store     portsrepo.Store
	accounts  accountStore
	log       transactionLog
	transfers transferEngine
	bills     settlementTracker

	retry     RetryConfig
	observer  OperationObserver
	opTimeout time.Duration
}

// ServiceOption is a functional option for configuring the ledger service
type ServiceOption func(*ledgerService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *ledgerService) {
		s.now = now
	}
}

// WithIDGenerator overrides how entity ids are generated.
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *ledgerService) {
		s.newID = newID
	}
}

// WithRetry sets the concurrency conflict retry policy.
func WithRetry(cfg RetryConfig) ServiceOption {
	return func(s *ledgerService) {
		s.retry = cfg
	}
}

// WithObserver reports operation outcomes, e.g. to Prometheus.
func WithObserver(observer OperationObserver) ServiceOption {
	return func(s *ledgerService) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithOperationTimeout bounds each facade operation. Zero means no bound
// beyond the caller's context.
func WithOperationTimeout(d time.Duration) ServiceOption {
	return func(s *ledgerService) {
		s.opTimeout = d
	}
}

// NewLedgerService creates the ledger facade over store.
func NewLedgerService(store portsrepo.Store, options ...ServiceOption) portssvc.LedgerSvcFacade {
	core := &ledgerCore{
		now:   time.Now,
		newID: uuid.NewString,
	}
	svc := &ledgerService{
		ledgerCore: core,
		store:      store,
		retry:      DefaultRetryConfig,
		observer:   noopObserver{},
	}
	for _, option := range options {
		option(svc)
	}

	svc.accounts = accountStore{ledgerCore: core}
	svc.log = transactionLog{ledgerCore: core, accounts: svc.accounts}
	svc.transfers = transferEngine{ledgerCore: core, accounts: svc.accounts, log: svc.log}
	svc.bills = settlementTracker{ledgerCore: core, accounts: svc.accounts, log: svc.log}
	return svc
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// run executes one facade operation: it applies the operation timeout,
// normalizes the error to an *apperrors.AppError and reports the outcome.
func (s *ledgerService) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	if s.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opTimeout)
		defer cancel()
	}

	err := apperrors.Wrap(op, fn(ctx))
	s.observer.ObserveOperation(op, err, time.Since(start))

	if err != nil {
		switch apperrors.KindOf(err) {
		case apperrors.ErrInternal, apperrors.ErrTransferFailed, apperrors.ErrConcurrencyConflict:
			s.LogError(ctx, err, "Ledger operation failed", slog.String("operation", op))
		default:
			s.LogDebug(ctx, "Ledger operation rejected", slog.String("operation", op), slog.String("error", err.Error()))
		}
	}
	return err
}

// inTx runs fn as one unit of work, retrying it on concurrency conflicts.
func (s *ledgerService) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	return retryOnConflict(ctx, s.retry, func(err error) {
		s.observer.ObserveRetry(op)
		s.LogDebug(ctx, "Retrying after concurrency conflict", slog.String("operation", op), slog.String("error", err.Error()))
	}, func() error {
		return s.store.WithinTx(ctx, fn)
	})
}

// notFound builds the error returned for absent entities and for entities
// owned by another user.
func notFound(entity, id string) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrNotFound, "", entity+" not found", nil).WithEntity(id)
}

// translateNotFound replaces a store-level not found error with an entity-scoped one.
func translateNotFound(err error, entity, id string) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return notFound(entity, id)
	}
	return err
}

func validationError(field, message string) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrValidation, "", message, nil).WithField(field)
}

func invalidAmount(field, message string) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrInvalidAmount, "", message, nil).WithField(field)
}
