package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/SscSPs/ledger_core/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

const transactionColumns = `seq, transaction_id, user_id, account_id, direction, amount, category, note,
	occurred_at, transfer_id, split_bill_id, created_at, created_by, last_updated_at, last_updated_by`

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		txn                              domain.Transaction
		occurredAt, createdAt, updatedAt int64
		transferID, splitBillID          sql.NullString
	)
	err := row.Scan(
		&txn.Seq, &txn.TransactionID, &txn.UserID, &txn.AccountID, &txn.Direction, &txn.Amount, &txn.Category, &txn.Note,
		&occurredAt, &transferID, &splitBillID,
		&createdAt, &txn.CreatedBy, &updatedAt, &txn.LastUpdatedBy,
	)
	txn.Timestamp = fromMicros(occurredAt)
	txn.TransferID = transferID.String
	txn.SplitBillID = splitBillID.String
	txn.CreatedAt = fromMicros(createdAt)
	txn.LastUpdatedAt = fromMicros(updatedAt)
	return txn, err
}

func (r reader) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "failed to query transactions")
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, mapError(err, "failed to scan transaction")
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "failed to iterate transactions")
	}
	return transactions, nil
}

// FindTransactionByID retrieves a transaction by ID.
func (r reader) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := scanTransaction(r.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = ?`, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, transactionID)
	}
	if err != nil {
		return nil, mapError(err, "failed to get transaction")
	}
	return &txn, nil
}

// FindTransactionsByTransferID retrieves the legs of a transfer in insertion order.
func (r reader) FindTransactionsByTransferID(ctx context.Context, transferID string) ([]domain.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE transfer_id = ? ORDER BY seq`, transferID)
}

// SumTransactions returns the signed total of an account's transactions.
// Amounts are summed in Go since SQLite arithmetic on TEXT is floating point.
func (r reader) SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT direction, amount FROM transactions WHERE account_id = ?`, accountID)
	if err != nil {
		return decimal.Zero, mapError(err, "failed to sum transactions")
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		if err := rows.Scan(&txn.Direction, &txn.Amount); err != nil {
			return decimal.Zero, mapError(err, "failed to scan transaction amount")
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, mapError(err, "failed to sum transactions")
	}
	return accounting.SumSignedAmounts(txns), nil
}

// ListTransactions uses keyset pagination on (occurred_at, seq), both descending.
func (r reader) ListTransactions(ctx context.Context, filter domain.TransactionFilter, limit int, after *domain.TransactionCursor) ([]domain.Transaction, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.UserID != "" {
		conditions, args = append(conditions, "user_id = ?"), append(args, filter.UserID)
	}
	if filter.AccountID != "" {
		conditions, args = append(conditions, "account_id = ?"), append(args, filter.AccountID)
	}
	if filter.From != nil {
		conditions, args = append(conditions, "occurred_at >= ?"), append(args, toMicros(*filter.From))
	}
	if filter.To != nil {
		conditions, args = append(conditions, "occurred_at < ?"), append(args, toMicros(*filter.To))
	}
	if filter.Category != "" {
		conditions, args = append(conditions, "category = ?"), append(args, filter.Category)
	}
	if filter.Direction != "" {
		conditions, args = append(conditions, "direction = ?"), append(args, string(filter.Direction))
	}
	if after != nil {
		conditions = append(conditions, "(occurred_at, seq) < (?, ?)")
		args = append(args, toMicros(after.Timestamp), after.Seq)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurred_at DESC, seq DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.queryTransactions(ctx, query, args...)
}

// SaveTransaction inserts a transaction; its rowid becomes the sequence number.
func (w writer) SaveTransaction(ctx context.Context, txn *domain.Transaction) error {
	res, err := w.q.ExecContext(ctx,
		`INSERT INTO transactions (transaction_id, user_id, account_id, direction, amount, category, note,
			occurred_at, transfer_id, split_bill_id, created_at, created_by, last_updated_at, last_updated_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.TransactionID, txn.UserID, txn.AccountID, string(txn.Direction), txn.Amount.String(), txn.Category, txn.Note,
		toMicros(txn.Timestamp), nullString(txn.TransferID), nullString(txn.SplitBillID),
		toMicros(txn.CreatedAt), txn.CreatedBy, toMicros(txn.LastUpdatedAt), txn.LastUpdatedBy,
	)
	if err != nil {
		return mapError(err, "failed to insert transaction")
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return mapError(err, "failed to read transaction sequence")
	}
	txn.Seq = seq
	return nil
}

// DeleteTransaction removes a transaction.
func (w writer) DeleteTransaction(ctx context.Context, transactionID string) error {
	res, err := w.q.ExecContext(ctx, `DELETE FROM transactions WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return mapError(err, "failed to delete transaction")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, transactionID)
	}
	return nil
}
