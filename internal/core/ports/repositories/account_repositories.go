package repositories

import (
	"context"

	"github.com/SscSPs/ledger_core/internal/core/domain"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccountsByUser retrieves every account owned by userID ordered by creation time.
	ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error)

	// ListBalanceAdjustments retrieves the override history of an account, oldest first.
	ListBalanceAdjustments(ctx context.Context, accountID string) ([]domain.BalanceAdjustment, error)
}

// AccountWriter defines write operations for account data within a unit of work.
type AccountWriter interface {
	// LockAccounts selects accounts and locks them for update. Locks are taken in
	// ascending id order whatever the order of accountIDs. Unknown ids are absent
	// from the returned map.
	LockAccounts(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// UpdateAccount writes account if its stored version still equals account.Version,
	// then increments account.Version. A stale version is ErrConcurrencyConflict.
	UpdateAccount(ctx context.Context, account *domain.Account) error

	// DeleteAccount removes an account.
	DeleteAccount(ctx context.Context, accountID string) error

	// CountAccountReferences counts transactions and split bills that reference the account.
	CountAccountReferences(ctx context.Context, accountID string) (int, error)

	// SaveBalanceAdjustment persists an administrative balance override record.
	SaveBalanceAdjustment(ctx context.Context, adjustment domain.BalanceAdjustment) error
}
