package apperrors

import (
	"errors"
	"strings"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInvalidAmount indicates a non-positive amount or one that cannot be represented in the currency.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrInvalidTransfer indicates a transfer between the same account or between incompatible accounts.
var ErrInvalidTransfer = errors.New("invalid transfer")

// ErrAmountMismatch indicates that split bill shares do not sum to the bill total.
var ErrAmountMismatch = errors.New("amount mismatch")

// ErrReferentialConflict indicates that an operation is blocked by existing references.
var ErrReferentialConflict = errors.New("referential conflict")

// ErrConcurrencyConflict indicates that a concurrent writer won and retries were exhausted.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ErrTransferFailed indicates that a transfer could not be applied and was rolled back.
var ErrTransferFailed = errors.New("transfer failed")

// ErrInternal is the fallback kind for unexpected failures.
var ErrInternal = errors.New("internal error")

var kinds = []error{
	ErrNotFound,
	ErrValidation,
	ErrDuplicate,
	ErrInvalidAmount,
	ErrInvalidTransfer,
	ErrAmountMismatch,
	ErrReferentialConflict,
	ErrConcurrencyConflict,
	ErrTransferFailed,
}

// AppError is the uniform error shape returned by the ledger services.
// Kind is one of the sentinel errors above; errors.Is matches both Kind and Err.
type AppError struct {
	Kind     error
	Op       string
	Field    string
	EntityID string
	Message  string
	Err      error
}

// NewAppError creates an AppError of the given kind for operation op.
func NewAppError(kind error, op string, message string, cause error) *AppError {
	if kind == nil {
		kind = ErrInternal
	}
	return &AppError{Kind: kind, Op: op, Message: message, Err: cause}
}

// WithField records the offending input field.
func (e *AppError) WithField(field string) *AppError {
	e.Field = field
	return e
}

// WithEntity records the offending entity id.
func (e *AppError) WithEntity(id string) *AppError {
	e.EntityID = id
	return e
}

func (e *AppError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Kind.Error())
	}
	if e.Field != "" {
		b.WriteString(" (field ")
		b.WriteString(e.Field)
		b.WriteString(")")
	}
	if e.EntityID != "" {
		b.WriteString(" (id ")
		b.WriteString(e.EntityID)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the sentinel kind carried by err, or ErrInternal.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// KindName returns a stable snake_case label for the kind of err, used in metrics and responses.
func KindName(err error) string {
	switch KindOf(err) {
	case nil:
		return "ok"
	case ErrNotFound:
		return "not_found"
	case ErrValidation:
		return "validation"
	case ErrDuplicate:
		return "duplicate"
	case ErrInvalidAmount:
		return "invalid_amount"
	case ErrInvalidTransfer:
		return "invalid_transfer"
	case ErrAmountMismatch:
		return "amount_mismatch"
	case ErrReferentialConflict:
		return "referential_conflict"
	case ErrConcurrencyConflict:
		return "concurrency_conflict"
	case ErrTransferFailed:
		return "transfer_failed"
	default:
		return "internal"
	}
}

// Wrap attaches op to err unless it already is an AppError.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Op == "" {
			appErr.Op = op
		}
		return err
	}
	return &AppError{Kind: KindOf(err), Op: op, Err: err}
}
