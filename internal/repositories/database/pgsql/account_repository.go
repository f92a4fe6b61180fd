package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `account_id, user_id, name, account_type, currency_code, color, icon,
	opening_balance, balance, version, created_at, created_by, last_updated_at, last_updated_by`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var acc domain.Account
	err := row.Scan(
		&acc.AccountID,
		&acc.UserID,
		&acc.Name,
		&acc.AccountType,
		&acc.CurrencyCode,
		&acc.Color,
		&acc.Icon,
		&acc.OpeningBalance,
		&acc.Balance,
		&acc.Version,
		&acc.CreatedAt,
		&acc.CreatedBy,
		&acc.LastUpdatedAt,
		&acc.LastUpdatedBy,
	)
	acc.CreatedAt = domain.NormalizeTime(acc.CreatedAt)
	acc.LastUpdatedAt = domain.NormalizeTime(acc.LastUpdatedAt)
	return acc, err
}

// FindAccountByID retrieves an account by its ID.
func (r reader) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	acc, err := scanAccount(r.q.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
		}
		return nil, mapError(err, "failed to find account by ID "+accountID)
	}
	return &acc, nil
}

// ListAccountsByUser retrieves every account of a user, oldest first.
func (r reader) ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at, account_id;`
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, mapError(err, "failed to list accounts")
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, mapError(err, "failed to scan account row")
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating account rows")
	}
	return accounts, nil
}

// ListBalanceAdjustments retrieves the override history of an account, oldest first.
func (r reader) ListBalanceAdjustments(ctx context.Context, accountID string) ([]domain.BalanceAdjustment, error) {
	query := `
		SELECT adjustment_id, account_id, previous_balance, new_balance, delta, reason,
			created_at, created_by, last_updated_at, last_updated_by
		FROM balance_adjustments
		WHERE account_id = $1
		ORDER BY created_at, adjustment_id;
	`
	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, mapError(err, "failed to list balance adjustments")
	}
	defer rows.Close()

	adjustments := make([]domain.BalanceAdjustment, 0)
	for rows.Next() {
		var adj domain.BalanceAdjustment
		if err := rows.Scan(
			&adj.AdjustmentID,
			&adj.AccountID,
			&adj.PreviousBalance,
			&adj.NewBalance,
			&adj.Delta,
			&adj.Reason,
			&adj.CreatedAt,
			&adj.CreatedBy,
			&adj.LastUpdatedAt,
			&adj.LastUpdatedBy,
		); err != nil {
			return nil, mapError(err, "failed to scan balance adjustment row")
		}
		adj.CreatedAt = domain.NormalizeTime(adj.CreatedAt)
		adj.LastUpdatedAt = domain.NormalizeTime(adj.LastUpdatedAt)
		adjustments = append(adjustments, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating balance adjustment rows")
	}
	return adjustments, nil
}

// LockAccounts selects the accounts FOR UPDATE. ORDER BY makes every caller
// acquire the row locks in the same order.
func (w writer) LockAccounts(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	locked := make(map[string]domain.Account, len(accountIDs))
	if len(accountIDs) == 0 {
		return locked, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1) ORDER BY account_id FOR UPDATE;`
	rows, err := w.q.Query(ctx, query, accountIDs)
	if err != nil {
		return nil, mapError(err, "failed to lock accounts")
	}
	defer rows.Close()

	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, mapError(err, "failed to scan locked account row")
		}
		locked[acc.AccountID] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to lock accounts")
	}
	return locked, nil
}

// SaveAccount inserts a new account.
func (w writer) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := w.q.Exec(ctx, query,
		account.AccountID,
		account.UserID,
		account.Name,
		account.AccountType,
		account.CurrencyCode,
		account.Color,
		account.Icon,
		account.OpeningBalance,
		account.Balance,
		account.Version,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, "failed to save account "+account.AccountID)
	}
	return nil
}

// UpdateAccount writes the account when its stored version still matches.
func (w writer) UpdateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET name = $3, account_type = $4, color = $5, icon = $6,
			opening_balance = $7, balance = $8, version = version + 1,
			last_updated_at = $9, last_updated_by = $10
		WHERE account_id = $1 AND version = $2;
	`
	tag, err := w.q.Exec(ctx, query,
		account.AccountID,
		account.Version,
		account.Name,
		account.AccountType,
		account.Color,
		account.Icon,
		account.OpeningBalance,
		account.Balance,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, "failed to update account "+account.AccountID)
	}
	if tag.RowsAffected() == 0 {
		if _, err := w.FindAccountByID(ctx, account.AccountID); err != nil {
			return err
		}
		return fmt.Errorf("%w: account %s is no longer at version %d", apperrors.ErrConcurrencyConflict, account.AccountID, account.Version)
	}
	account.Version++
	return nil
}

// DeleteAccount removes an account and its adjustment history.
func (w writer) DeleteAccount(ctx context.Context, accountID string) error {
	tag, err := w.q.Exec(ctx, `DELETE FROM accounts WHERE account_id = $1;`, accountID)
	if err != nil {
		return mapError(err, "failed to delete account "+accountID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return nil
}

// CountAccountReferences counts transactions and split bills pointing at the account.
func (w writer) CountAccountReferences(ctx context.Context, accountID string) (int, error) {
	query := `
		SELECT (SELECT COUNT(*) FROM transactions WHERE account_id = $1)
			+ (SELECT COUNT(*) FROM split_bills WHERE payer_account_id = $1);
	`
	var count int
	if err := w.q.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		return 0, mapError(err, "failed to count account references")
	}
	return count, nil
}

// SaveBalanceAdjustment inserts a balance override record.
func (w writer) SaveBalanceAdjustment(ctx context.Context, adj domain.BalanceAdjustment) error {
	query := `
		INSERT INTO balance_adjustments (adjustment_id, account_id, previous_balance, new_balance, delta, reason,
			created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := w.q.Exec(ctx, query,
		adj.AdjustmentID,
		adj.AccountID,
		adj.PreviousBalance,
		adj.NewBalance,
		adj.Delta,
		adj.Reason,
		adj.CreatedAt,
		adj.CreatedBy,
		adj.LastUpdatedAt,
		adj.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, "failed to save balance adjustment")
	}
	return nil
}
