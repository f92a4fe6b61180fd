package repositories

import (
	"context"
)

// TxManager runs a function inside one atomic unit of work against the store.
// If fn returns an error, or ctx ends before commit, nothing fn wrote is kept.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerTx is the set of operations available inside a unit of work.
// Reads through a LedgerTx observe the writes staged earlier in the same unit.
type LedgerTx interface {
	AccountWriter
	TransactionWriter
	SplitBillWriter
}

// LedgerReader is the set of read operations outside of a unit of work.
// Every read observes only committed state.
type LedgerReader interface {
	AccountReader
	TransactionReader
	SplitBillReader
}

// Store is a complete backing store for the ledger.
type Store interface {
	LedgerReader
	TxManager
	Close() error
}
