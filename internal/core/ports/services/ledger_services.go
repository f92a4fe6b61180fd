package services

import (
	"context"
	"iter"

	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/SscSPs/ledger_core/internal/dto"
	"github.com/shopspring/decimal"
)

// AccountSvc defines the Account Store operations.
type AccountSvc interface {
	// CreateAccount creates an account whose balance starts at the opening balance.
	CreateAccount(ctx context.Context, userID string, req dto.CreateAccountRequest) (*domain.Account, error)

	// GetAccount retrieves an account owned by userID.
	GetAccount(ctx context.Context, userID string, accountID string) (*domain.Account, error)

	// ListAccounts retrieves every account owned by userID.
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)

	// UpdateAccount edits display fields. It never touches the balance.
	UpdateAccount(ctx context.Context, userID string, accountID string, req dto.UpdateAccountRequest) (*domain.Account, error)

	// EditAccount applies display edits and an optional balance override as
	// one unit of work. Nothing is written if either part is rejected.
	EditAccount(ctx context.Context, userID string, accountID string, req dto.EditAccountRequest) (*domain.Account, error)

	// AdjustBalance overrides the current balance and records the override.
	AdjustBalance(ctx context.Context, userID string, accountID string, req dto.AdjustBalanceRequest) (*domain.Account, error)

	// ListBalanceAdjustments retrieves the override history of an account.
	ListBalanceAdjustments(ctx context.Context, userID string, accountID string) ([]domain.BalanceAdjustment, error)

	// DeleteAccount removes an account that nothing references.
	DeleteAccount(ctx context.Context, userID string, accountID string) error

	// GetBalance returns the committed balance of an account.
	GetBalance(ctx context.Context, userID string, accountID string) (decimal.Decimal, error)

	// Reconcile compares the stored balance with opening balance plus history.
	Reconcile(ctx context.Context, userID string, accountID string) (*domain.Reconciliation, error)

	// TotalBalances sums the balances of userID's accounts per currency,
	// ordered by currency code. Currencies are never converted.
	TotalBalances(ctx context.Context, userID string) ([]domain.CurrencyTotal, error)
}

// TransactionSvc defines the Transaction Log operations.
type TransactionSvc interface {
	// RecordTransaction appends an income or expense and applies it to the account balance.
	RecordTransaction(ctx context.Context, userID string, req dto.RecordTransactionRequest) (*domain.Transaction, error)

	// GetTransaction retrieves a transaction owned by userID.
	GetTransaction(ctx context.Context, userID string, transactionID string) (*domain.Transaction, error)

	// DeleteTransaction removes a transaction and reverses its balance effect.
	// Deleting a transfer leg removes the whole transfer.
	DeleteTransaction(ctx context.Context, userID string, transactionID string) error

	// ListTransactions returns one keyset page of transactions.
	ListTransactions(ctx context.Context, userID string, params dto.ListTransactionsParams) (*domain.TransactionPage, error)

	// IterTransactions lazily yields every matching transaction in listing order.
	IterTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) iter.Seq2[domain.Transaction, error]
}

// TransferSvc defines the Transfer Engine operations.
type TransferSvc interface {
	// Transfer moves an amount between two accounts of the same owner atomically.
	Transfer(ctx context.Context, userID string, req dto.TransferRequest) (*domain.Transfer, error)

	// GetTransfer retrieves a transfer with both legs.
	GetTransfer(ctx context.Context, userID string, transferID string) (*domain.Transfer, error)

	// DeleteTransfer removes both legs and reverses both balance effects.
	DeleteTransfer(ctx context.Context, userID string, transferID string) error
}

// SplitBillSvc defines the Split-Bill Settlement Tracker operations.
type SplitBillSvc interface {
	// CreateSplitBill creates a bill whose shares sum to its total exactly.
	CreateSplitBill(ctx context.Context, userID string, req dto.CreateSplitBillRequest) (*domain.SplitBill, error)

	// GetSplitBill retrieves a bill owned by userID.
	GetSplitBill(ctx context.Context, userID string, splitBillID string) (*domain.SplitBill, error)

	// ListSplitBills retrieves every bill owned by userID.
	ListSplitBills(ctx context.Context, userID string) ([]domain.SplitBill, error)

	// MarkParticipantPaid settles one share. Repeated calls are no-ops.
	MarkParticipantPaid(ctx context.Context, userID string, splitBillID string, participantID string) (*domain.SplitBill, error)

	// BillStatus derives the settlement summary of a bill.
	BillStatus(ctx context.Context, userID string, splitBillID string) (*domain.BillStatus, error)
}

// LedgerSvcFacade combines all ledger service interfaces.
// This is the single entry point for handlers and the CLI.
type LedgerSvcFacade interface {
	AccountSvc
	TransactionSvc
	TransferSvc
	SplitBillSvc
}
