package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `transaction_id, seq, user_id, account_id, direction, amount, category, note,
	occurred_at, transfer_id, split_bill_id, created_at, created_by, last_updated_at, last_updated_by`

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		txn         domain.Transaction
		transferID  *string
		splitBillID *string
	)
	err := row.Scan(
		&txn.TransactionID,
		&txn.Seq,
		&txn.UserID,
		&txn.AccountID,
		&txn.Direction,
		&txn.Amount,
		&txn.Category,
		&txn.Note,
		&txn.Timestamp,
		&transferID,
		&splitBillID,
		&txn.CreatedAt,
		&txn.CreatedBy,
		&txn.LastUpdatedAt,
		&txn.LastUpdatedBy,
	)
	txn.TransferID = deref(transferID)
	txn.SplitBillID = deref(splitBillID)
	txn.Timestamp = domain.NormalizeTime(txn.Timestamp)
	txn.CreatedAt = domain.NormalizeTime(txn.CreatedAt)
	txn.LastUpdatedAt = domain.NormalizeTime(txn.LastUpdatedAt)
	return txn, err
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, mapError(err, "failed to scan transaction row")
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating transaction rows")
	}
	return transactions, nil
}

// FindTransactionByID retrieves a transaction by its ID.
func (r reader) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1;`
	txn, err := scanTransaction(r.q.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, transactionID)
		}
		return nil, mapError(err, "failed to find transaction by ID "+transactionID)
	}
	return &txn, nil
}

// FindTransactionsByTransferID retrieves the legs of a transfer in insertion order.
func (r reader) FindTransactionsByTransferID(ctx context.Context, transferID string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transfer_id = $1 ORDER BY seq;`
	rows, err := r.q.Query(ctx, query, transferID)
	if err != nil {
		return nil, mapError(err, "failed to find transfer legs")
	}
	return collectTransactions(rows)
}

// SumTransactions returns the signed total of an account's transactions.
func (r reader) SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN direction = 'income' THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE account_id = $1;
	`
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, mapError(err, "failed to sum transactions")
	}
	return sum, nil
}

// ListTransactions uses keyset pagination on (occurred_at, seq), both descending.
func (r reader) ListTransactions(ctx context.Context, filter domain.TransactionFilter, limit int, after *domain.TransactionCursor) ([]domain.Transaction, error) {
	var (
		conditions []string
		args       []any
	)
	where := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.UserID != "" {
		where("user_id = $%d", filter.UserID)
	}
	if filter.AccountID != "" {
		where("account_id = $%d", filter.AccountID)
	}
	if filter.From != nil {
		where("occurred_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		where("occurred_at < $%d", *filter.To)
	}
	if filter.Category != "" {
		where("category = $%d", filter.Category)
	}
	if filter.Direction != "" {
		where("direction = $%d", filter.Direction)
	}
	if after != nil {
		args = append(args, after.Timestamp, after.Seq)
		conditions = append(conditions, fmt.Sprintf("(occurred_at, seq) < ($%d, $%d)", len(args)-1, len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + transactionColumns + ` FROM transactions`)
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	b.WriteString(" ORDER BY occurred_at DESC, seq DESC")
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := r.q.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, mapError(err, "failed to list transactions")
	}
	return collectTransactions(rows)
}

// SaveTransaction inserts a transaction and assigns its sequence number.
func (w writer) SaveTransaction(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (transaction_id, user_id, account_id, direction, amount, category, note,
			occurred_at, transfer_id, split_bill_id, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq;
	`
	err := w.q.QueryRow(ctx, query,
		txn.TransactionID,
		txn.UserID,
		txn.AccountID,
		txn.Direction,
		txn.Amount,
		txn.Category,
		txn.Note,
		txn.Timestamp,
		nullIfEmpty(txn.TransferID),
		nullIfEmpty(txn.SplitBillID),
		txn.CreatedAt,
		txn.CreatedBy,
		txn.LastUpdatedAt,
		txn.LastUpdatedBy,
	).Scan(&txn.Seq)
	if err != nil {
		return mapError(err, "failed to save transaction "+txn.TransactionID)
	}
	return nil
}

// DeleteTransaction removes a transaction.
func (w writer) DeleteTransaction(ctx context.Context, transactionID string) error {
	tag, err := w.q.Exec(ctx, `DELETE FROM transactions WHERE transaction_id = $1;`, transactionID)
	if err != nil {
		return mapError(err, "failed to delete transaction "+transactionID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, transactionID)
	}
	return nil
}
