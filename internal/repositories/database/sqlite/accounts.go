package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
)

const accountColumns = `account_id, user_id, name, account_type, currency_code, color, icon,
	opening_balance, balance, version, created_at, created_by, last_updated_at, last_updated_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		acc                  domain.Account
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&acc.AccountID, &acc.UserID, &acc.Name, &acc.AccountType, &acc.CurrencyCode, &acc.Color, &acc.Icon,
		&acc.OpeningBalance, &acc.Balance, &acc.Version,
		&createdAt, &acc.CreatedBy, &updatedAt, &acc.LastUpdatedBy,
	)
	acc.CreatedAt = fromMicros(createdAt)
	acc.LastUpdatedAt = fromMicros(updatedAt)
	return acc, err
}

// FindAccountByID retrieves an account by ID.
func (r reader) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	acc, err := scanAccount(r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account_id = ?`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	if err != nil {
		return nil, mapError(err, "failed to get account")
	}
	return &acc, nil
}

func (r reader) queryAccounts(ctx context.Context, query string, args ...any) ([]domain.Account, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "failed to query accounts")
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, mapError(err, "failed to scan account")
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to iterate accounts")
	}
	return accounts, nil
}

// ListAccountsByUser retrieves every account of a user, oldest first.
func (r reader) ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	return r.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at, account_id`, userID)
}

// ListBalanceAdjustments retrieves the override history of an account, oldest first.
func (r reader) ListBalanceAdjustments(ctx context.Context, accountID string) ([]domain.BalanceAdjustment, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT adjustment_id, account_id, previous_balance, new_balance, delta, reason,
			created_at, created_by, last_updated_at, last_updated_by
		 FROM balance_adjustments WHERE account_id = ? ORDER BY created_at, adjustment_id`,
		accountID,
	)
	if err != nil {
		return nil, mapError(err, "failed to list balance adjustments")
	}
	defer rows.Close()

	adjustments := make([]domain.BalanceAdjustment, 0)
	for rows.Next() {
		var (
			adj                  domain.BalanceAdjustment
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&adj.AdjustmentID, &adj.AccountID, &adj.PreviousBalance, &adj.NewBalance, &adj.Delta, &adj.Reason,
			&createdAt, &adj.CreatedBy, &updatedAt, &adj.LastUpdatedBy); err != nil {
			return nil, mapError(err, "failed to scan balance adjustment")
		}
		adj.CreatedAt = fromMicros(createdAt)
		adj.LastUpdatedAt = fromMicros(updatedAt)
		adjustments = append(adjustments, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to iterate balance adjustments")
	}
	return adjustments, nil
}

// LockAccounts reads the accounts inside the write transaction. The
// IMMEDIATE transaction already holds the database write lock.
func (w writer) LockAccounts(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	locked := make(map[string]domain.Account, len(accountIDs))
	if len(accountIDs) == 0 {
		return locked, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(accountIDs)), ",")
	args := make([]any, len(accountIDs))
	for i, id := range accountIDs {
		args[i] = id
	}
	accounts, err := w.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account_id IN (`+placeholders+`) ORDER BY account_id`, args...)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		locked[acc.AccountID] = acc
	}
	return locked, nil
}

// SaveAccount inserts a new account.
func (w writer) SaveAccount(ctx context.Context, acc domain.Account) error {
	_, err := w.q.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		acc.AccountID, acc.UserID, acc.Name, string(acc.AccountType), acc.CurrencyCode, acc.Color, acc.Icon,
		acc.OpeningBalance.String(), acc.Balance.String(), acc.Version,
		toMicros(acc.CreatedAt), acc.CreatedBy, toMicros(acc.LastUpdatedAt), acc.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, "failed to insert account")
	}
	return nil
}

// UpdateAccount writes the account when its stored version still matches.
func (w writer) UpdateAccount(ctx context.Context, acc *domain.Account) error {
	res, err := w.q.ExecContext(ctx,
		`UPDATE accounts
		 SET name = ?, account_type = ?, color = ?, icon = ?, opening_balance = ?, balance = ?,
			version = version + 1, last_updated_at = ?, last_updated_by = ?
		 WHERE account_id = ? AND version = ?`,
		acc.Name, string(acc.AccountType), acc.Color, acc.Icon, acc.OpeningBalance.String(), acc.Balance.String(),
		toMicros(acc.LastUpdatedAt), acc.LastUpdatedBy,
		acc.AccountID, acc.Version,
	)
	if err != nil {
		return mapError(err, "failed to update account")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "failed to update account")
	}
	if affected == 0 {
		if _, err := w.FindAccountByID(ctx, acc.AccountID); err != nil {
			return err
		}
		return fmt.Errorf("%w: account %s is no longer at version %d", apperrors.ErrConcurrencyConflict, acc.AccountID, acc.Version)
	}
	acc.Version++
	return nil
}

// DeleteAccount removes an account and its adjustment history.
func (w writer) DeleteAccount(ctx context.Context, accountID string) error {
	res, err := w.q.ExecContext(ctx, `DELETE FROM accounts WHERE account_id = ?`, accountID)
	if err != nil {
		return mapError(err, "failed to delete account")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return nil
}

// CountAccountReferences counts transactions and split bills pointing at the account.
func (w writer) CountAccountReferences(ctx context.Context, accountID string) (int, error) {
	var count int
	err := w.q.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM transactions WHERE account_id = ?)
			+ (SELECT COUNT(*) FROM split_bills WHERE payer_account_id = ?)`,
		accountID, accountID,
	).Scan(&count)
	if err != nil {
		return 0, mapError(err, "failed to count account references")
	}
	return count, nil
}

// SaveBalanceAdjustment inserts a balance override record.
func (w writer) SaveBalanceAdjustment(ctx context.Context, adj domain.BalanceAdjustment) error {
	_, err := w.q.ExecContext(ctx,
		`INSERT INTO balance_adjustments (adjustment_id, account_id, previous_balance, new_balance, delta, reason,
			created_at, created_by, last_updated_at, last_updated_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		adj.AdjustmentID, adj.AccountID, adj.PreviousBalance.String(), adj.NewBalance.String(), adj.Delta.String(), adj.Reason,
		toMicros(adj.CreatedAt), adj.CreatedBy, toMicros(adj.LastUpdatedAt), adj.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, "failed to insert balance adjustment")
	}
	return nil
}
