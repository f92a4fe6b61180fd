package repositories

import (
	"context"

	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransactionLookup defines point reads that are valid both inside and outside a unit of work.
type TransactionLookup interface {
	// FindTransactionByID retrieves a transaction by its unique identifier.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// FindTransactionsByTransferID retrieves the legs of a transfer.
	FindTransactionsByTransferID(ctx context.Context, transferID string) ([]domain.Transaction, error)

	// SumTransactions returns the signed sum of every transaction of an account.
	SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// TransactionReader defines read operations for transaction data
type TransactionReader interface {
	TransactionLookup

	// ListTransactions returns up to limit transactions matching filter, ordered by
	// timestamp then insertion sequence, both descending, strictly after the cursor when given.
	ListTransactions(ctx context.Context, filter domain.TransactionFilter, limit int, after *domain.TransactionCursor) ([]domain.Transaction, error)
}

// TransactionWriter defines write operations for transaction data within a unit of work.
type TransactionWriter interface {
	TransactionLookup

	// SaveTransaction persists a new transaction and assigns its insertion sequence.
	SaveTransaction(ctx context.Context, txn *domain.Transaction) error

	// DeleteTransaction removes a transaction.
	DeleteTransaction(ctx context.Context, transactionID string) error
}
