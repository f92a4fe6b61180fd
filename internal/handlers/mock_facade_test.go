package handlers_test

import (
	"context"
	"iter"

	"github.com/SscSPs/ledger_core/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_core/internal/core/ports/services"
	"github.com/SscSPs/ledger_core/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockLedger is a testify mock of the ledger facade.
type MockLedger struct {
	mock.Mock
}

var _ portssvc.LedgerSvcFacade = (*MockLedger)(nil)

func (m *MockLedger) CreateAccount(ctx context.Context, userID string, req dto.CreateAccountRequest) (*domain.Account, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockLedger) GetAccount(ctx context.Context, userID string, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockLedger) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockLedger) UpdateAccount(ctx context.Context, userID string, accountID string, req dto.UpdateAccountRequest) (*domain.Account, error) {
	args := m.Called(ctx, userID, accountID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockLedger) AdjustBalance(ctx context.Context, userID string, accountID string, req dto.AdjustBalanceRequest) (*domain.Account, error) {
	args := m.Called(ctx, userID, accountID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockLedger) ListBalanceAdjustments(ctx context.Context, userID string, accountID string) ([]domain.BalanceAdjustment, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BalanceAdjustment), args.Error(1)
}

func (m *MockLedger) EditAccount(ctx context.Context, userID string, accountID string, req dto.EditAccountRequest) (*domain.Account, error) {
	args := m.Called(ctx, userID, accountID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockLedger) TotalBalances(ctx context.Context, userID string) ([]domain.CurrencyTotal, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CurrencyTotal), args.Error(1)
}

func (m *MockLedger) DeleteAccount(ctx context.Context, userID string, accountID string) error {
	return m.Called(ctx, userID, accountID).Error(0)
}

func (m *MockLedger) GetBalance(ctx context.Context, userID string, accountID string) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedger) Reconcile(ctx context.Context, userID string, accountID string) (*domain.Reconciliation, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reconciliation), args.Error(1)
}

func (m *MockLedger) RecordTransaction(ctx context.Context, userID string, req dto.RecordTransactionRequest) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedger) GetTransaction(ctx context.Context, userID string, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedger) DeleteTransaction(ctx context.Context, userID string, transactionID string) error {
	return m.Called(ctx, userID, transactionID).Error(0)
}

func (m *MockLedger) ListTransactions(ctx context.Context, userID string, params dto.ListTransactionsParams) (*domain.TransactionPage, error) {
	args := m.Called(ctx, userID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionPage), args.Error(1)
}

func (m *MockLedger) IterTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) iter.Seq2[domain.Transaction, error] {
	return m.Called(ctx, userID, filter).Get(0).(iter.Seq2[domain.Transaction, error])
}

func (m *MockLedger) Transfer(ctx context.Context, userID string, req dto.TransferRequest) (*domain.Transfer, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transfer), args.Error(1)
}

func (m *MockLedger) GetTransfer(ctx context.Context, userID string, transferID string) (*domain.Transfer, error) {
	args := m.Called(ctx, userID, transferID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transfer), args.Error(1)
}

func (m *MockLedger) DeleteTransfer(ctx context.Context, userID string, transferID string) error {
	return m.Called(ctx, userID, transferID).Error(0)
}

func (m *MockLedger) CreateSplitBill(ctx context.Context, userID string, req dto.CreateSplitBillRequest) (*domain.SplitBill, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SplitBill), args.Error(1)
}

func (m *MockLedger) GetSplitBill(ctx context.Context, userID string, splitBillID string) (*domain.SplitBill, error) {
	args := m.Called(ctx, userID, splitBillID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SplitBill), args.Error(1)
}

func (m *MockLedger) ListSplitBills(ctx context.Context, userID string) ([]domain.SplitBill, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SplitBill), args.Error(1)
}

func (m *MockLedger) MarkParticipantPaid(ctx context.Context, userID string, splitBillID string, participantID string) (*domain.SplitBill, error) {
	args := m.Called(ctx, userID, splitBillID, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SplitBill), args.Error(1)
}

func (m *MockLedger) BillStatus(ctx context.Context, userID string, splitBillID string) (*domain.BillStatus, error) {
	args := m.Called(ctx, userID, splitBillID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillStatus), args.Error(1)
}
