package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_core/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_core/internal/core/ports/services"
	"github.com/SscSPs/ledger_core/internal/core/services"
	"github.com/SscSPs/ledger_core/internal/dto"
	"github.com/SscSPs/ledger_core/internal/repositories/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// faultyStore wraps the memory store and lets a test interfere with the
// operations performed inside each unit of work.
type faultyStore struct {
	*memory.Store
	wrap func(tx portsrepo.LedgerTx) portsrepo.LedgerTx
}

func (f *faultyStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	return f.Store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return fn(ctx, f.wrap(tx))
	})
}

// failingSaveTx fails the nth SaveTransaction of a unit of work.
type failingSaveTx struct {
	portsrepo.LedgerTx
	failOn int
	saves  int
}

var errConnectionReset = errors.New("connection reset by peer")

func (t *failingSaveTx) SaveTransaction(ctx context.Context, txn *domain.Transaction) error {
	t.saves++
	if t.saves == t.failOn {
		return errConnectionReset
	}
	return t.LedgerTx.SaveTransaction(ctx, txn)
}

// conflictingTx reports a lost optimistic lock while the shared budget lasts.
type conflictingTx struct {
	portsrepo.LedgerTx
	remaining *atomic.Int32
}

func (t *conflictingTx) UpdateAccount(ctx context.Context, acc *domain.Account) error {
	if t.remaining.Add(-1) >= 0 {
		return apperrors.ErrConcurrencyConflict
	}
	return t.LedgerTx.UpdateAccount(ctx, acc)
}

// stallingTx blocks on locks until the context ends.
type stallingTx struct {
	portsrepo.LedgerTx
}

func (t *stallingTx) LockAccounts(ctx context.Context, ids []string) (map[string]domain.Account, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordingObserver struct {
	mu      sync.Mutex
	ops     map[string][]string
	retries map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{ops: map[string][]string{}, retries: map[string]int{}}
}

func (o *recordingObserver) ObserveOperation(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops[op] = append(o.ops[op], apperrors.KindName(err))
}

func (o *recordingObserver) ObserveRetry(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries[op]++
}

type fixture struct {
	ctx    context.Context
	store  *memory.Store
	userID string
}

func newFixture() fixture {
	return fixture{
		ctx:    context.Background(),
		store:  memory.New(memory.WithLockWaitTimeout(5 * time.Second)),
		userID: uuid.NewString(),
	}
}

func (f fixture) account(t *testing.T, svc portssvc.LedgerSvcFacade, name, balance string) *domain.Account {
	t.Helper()
	acc, err := svc.CreateAccount(f.ctx, f.userID, dto.CreateAccountRequest{
		Name: name, AccountType: domain.Bank, Balance: dec(balance), CurrencyCode: "IDR",
	})
	require.NoError(t, err)
	return acc
}

func balanceOf(t *testing.T, store *memory.Store, accountID string) decimal.Decimal {
	t.Helper()
	acc, err := store.FindAccountByID(context.Background(), accountID)
	require.NoError(t, err)
	return acc.Balance
}

func countTransactions(t *testing.T, store *memory.Store, userID string) int {
	t.Helper()
	rows, err := store.ListTransactions(context.Background(), domain.TransactionFilter{UserID: userID}, 1000, nil)
	require.NoError(t, err)
	return len(rows)
}

func TestTransfer_FailureAfterFirstLegRollsBackEverything(t *testing.T) {
	f := newFixture()
	store := &faultyStore{Store: f.store, wrap: func(tx portsrepo.LedgerTx) portsrepo.LedgerTx {
		return &failingSaveTx{LedgerTx: tx, failOn: 2}
	}}
	svc := services.NewLedgerService(store, services.WithRetry(testRetry))

	bca := f.account(t, svc, "BCA", "500000")
	gopay := f.account(t, svc, "GoPay", "0")

	_, err := svc.Transfer(f.ctx, f.userID, dto.TransferRequest{
		SourceAccountID: bca.AccountID, DestAccountID: gopay.AccountID, Amount: dec("150000"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTransferFailed)
	assert.ErrorIs(t, err, errConnectionReset, "the cause is preserved")
	assert.True(t, balanceOf(t, f.store, bca.AccountID).Equal(dec("500000")))
	assert.True(t, balanceOf(t, f.store, gopay.AccountID).IsZero())
	assert.Zero(t, countTransactions(t, f.store, f.userID))
}

func TestRecordTransaction_RetriesTransientConflicts(t *testing.T) {
	f := newFixture()
	var budget atomic.Int32
	store := &faultyStore{Store: f.store, wrap: func(tx portsrepo.LedgerTx) portsrepo.LedgerTx {
		return &conflictingTx{LedgerTx: tx, remaining: &budget}
	}}
	observer := newRecordingObserver()
	svc := services.NewLedgerService(store, services.WithRetry(testRetry), services.WithObserver(observer))
	acc := f.account(t, svc, "Cash", "0")

	budget.Store(2)
	txn, err := svc.RecordTransaction(f.ctx, f.userID, dto.RecordTransactionRequest{
		AccountID: acc.AccountID, Direction: domain.Income, Amount: dec("1000"),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, txn.TransactionID)
	assert.Equal(t, 2, observer.retries["RecordTransaction"])
	assert.Equal(t, []string{"ok"}, observer.ops["RecordTransaction"])
	assert.True(t, balanceOf(t, f.store, acc.AccountID).Equal(dec("1000")))
	assert.Equal(t, 1, countTransactions(t, f.store, f.userID), "failed attempts leave nothing behind")
}

func TestTransfer_ConflictRetriesExhausted(t *testing.T) {
	f := newFixture()
	var budget atomic.Int32
	store := &faultyStore{Store: f.store, wrap: func(tx portsrepo.LedgerTx) portsrepo.LedgerTx {
		return &conflictingTx{LedgerTx: tx, remaining: &budget}
	}}
	observer := newRecordingObserver()
	svc := services.NewLedgerService(store, services.WithRetry(testRetry), services.WithObserver(observer))
	a := f.account(t, svc, "A", "100")
	b := f.account(t, svc, "B", "0")

	budget.Store(1000)
	_, err := svc.Transfer(f.ctx, f.userID, dto.TransferRequest{SourceAccountID: a.AccountID, DestAccountID: b.AccountID, Amount: dec("10")})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)
	assert.NotErrorIs(t, err, apperrors.ErrTransferFailed)
	assert.Equal(t, testRetry.MaxAttempts-1, observer.retries["Transfer"])
	assert.Equal(t, []string{"concurrency_conflict"}, observer.ops["Transfer"])
	assert.True(t, balanceOf(t, f.store, a.AccountID).Equal(dec("100")))
	assert.Zero(t, countTransactions(t, f.store, f.userID))
}

func TestOperationTimeout_RollsBack(t *testing.T) {
	f := newFixture()
	stall := false
	store := &faultyStore{Store: f.store, wrap: func(tx portsrepo.LedgerTx) portsrepo.LedgerTx {
		if stall {
			return &stallingTx{LedgerTx: tx}
		}
		return tx
	}}
	svc := services.NewLedgerService(store, services.WithRetry(testRetry), services.WithOperationTimeout(50*time.Millisecond))
	a := f.account(t, svc, "A", "100")
	b := f.account(t, svc, "B", "0")

	stall = true
	start := time.Now()
	_, err := svc.Transfer(f.ctx, f.userID, dto.TransferRequest{SourceAccountID: a.AccountID, DestAccountID: b.AccountID, Amount: dec("10")})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, balanceOf(t, f.store, a.AccountID).Equal(dec("100")))
	assert.Zero(t, countTransactions(t, f.store, f.userID))
}

func TestConcurrentRecords_NoLostUpdates(t *testing.T) {
	f := newFixture()
	svc := services.NewLedgerService(f.store, services.WithRetry(testRetry))
	acc := f.account(t, svc, "Cash", "0")

	const writers = 50
	g, ctx := errgroup.WithContext(f.ctx)
	for i := 0; i < writers; i++ {
		direction := domain.Income
		if i%5 == 0 {
			direction = domain.Expense
		}
		g.Go(func() error {
			_, err := svc.RecordTransaction(ctx, f.userID, dto.RecordTransactionRequest{
				AccountID: acc.AccountID, Direction: direction, Amount: dec("100"),
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	// 40 incomes and 10 expenses of 100 each.
	assert.True(t, balanceOf(t, f.store, acc.AccountID).Equal(dec("3000")))
	rec, err := svc.Reconcile(f.ctx, f.userID, acc.AccountID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent())
}

func TestConcurrentCrossingTransfers_ConserveTotal(t *testing.T) {
	f := newFixture()
	svc := services.NewLedgerService(f.store, services.WithRetry(testRetry))
	a := f.account(t, svc, "A", "1000000")
	b := f.account(t, svc, "B", "1000000")

	const transfers = 40
	g, ctx := errgroup.WithContext(f.ctx)
	for i := 0; i < transfers; i++ {
		req := dto.TransferRequest{SourceAccountID: a.AccountID, DestAccountID: b.AccountID, Amount: dec("1000")}
		if i%2 == 1 {
			req.SourceAccountID, req.DestAccountID = b.AccountID, a.AccountID
			req.Amount = dec("3000")
		}
		g.Go(func() error {
			_, err := svc.Transfer(ctx, f.userID, req)
			return err
		})
	}
	require.NoError(t, g.Wait(), "opposite transfers must not deadlock")

	balA, balB := balanceOf(t, f.store, a.AccountID), balanceOf(t, f.store, b.AccountID)
	assert.True(t, balA.Add(balB).Equal(dec("2000000")), "total changed to %s", balA.Add(balB))
	assert.True(t, balA.Equal(dec("1040000")), "A = %s", balA)
	assert.Equal(t, 2*transfers, countTransactions(t, f.store, f.userID))

	for _, id := range []string{a.AccountID, b.AccountID} {
		rec, err := svc.Reconcile(f.ctx, f.userID, id)
		require.NoError(t, err)
		assert.True(t, rec.Consistent())
	}
}

func TestConcurrentMarkPaid_CreditsOnce(t *testing.T) {
	f := newFixture()
	svc := services.NewLedgerService(f.store, services.WithRetry(testRetry))
	payer := f.account(t, svc, "BCA", "0")
	bill, err := svc.CreateSplitBill(f.ctx, f.userID, dto.CreateSplitBillRequest{
		Title: "Dinner", TotalAmount: dec("300000"), CurrencyCode: "IDR", PayerAccountID: payer.AccountID, SplitEvenly: true,
		Participants: []dto.SplitBillParticipantRequest{{Name: "Andi"}, {Name: "Budi"}, {Name: "Citra"}},
	})
	require.NoError(t, err)

	participantID := bill.Participants[0].ParticipantID
	g, ctx := errgroup.WithContext(f.ctx)
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := svc.MarkParticipantPaid(ctx, f.userID, bill.SplitBillID, participantID)
			return err
		})
	}
	require.NoError(t, g.Wait())

	status, err := svc.BillStatus(f.ctx, f.userID, bill.SplitBillID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.PaidCount)
	assert.True(t, balanceOf(t, f.store, payer.AccountID).Equal(dec("100000")))
	assert.Equal(t, 1, countTransactions(t, f.store, f.userID))
}

// --- Mock store ---

type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	acc, _ := args.Get(0).(*domain.Account)
	return acc, args.Error(1)
}

func (m *MockStore) ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	args := m.Called(ctx, userID)
	accounts, _ := args.Get(0).([]domain.Account)
	return accounts, args.Error(1)
}

func (m *MockStore) ListBalanceAdjustments(ctx context.Context, accountID string) ([]domain.BalanceAdjustment, error) {
	args := m.Called(ctx, accountID)
	adjustments, _ := args.Get(0).([]domain.BalanceAdjustment)
	return adjustments, args.Error(1)
}

func (m *MockStore) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	txn, _ := args.Get(0).(*domain.Transaction)
	return txn, args.Error(1)
}

func (m *MockStore) FindTransactionsByTransferID(ctx context.Context, transferID string) ([]domain.Transaction, error) {
	args := m.Called(ctx, transferID)
	legs, _ := args.Get(0).([]domain.Transaction)
	return legs, args.Error(1)
}

func (m *MockStore) SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockStore) ListTransactions(ctx context.Context, filter domain.TransactionFilter, limit int, after *domain.TransactionCursor) ([]domain.Transaction, error) {
	args := m.Called(ctx, filter, limit, after)
	rows, _ := args.Get(0).([]domain.Transaction)
	return rows, args.Error(1)
}

func (m *MockStore) FindSplitBillByID(ctx context.Context, splitBillID string) (*domain.SplitBill, error) {
	args := m.Called(ctx, splitBillID)
	bill, _ := args.Get(0).(*domain.SplitBill)
	return bill, args.Error(1)
}

func (m *MockStore) ListSplitBillsByUser(ctx context.Context, userID string) ([]domain.SplitBill, error) {
	args := m.Called(ctx, userID)
	bills, _ := args.Get(0).([]domain.SplitBill)
	return bills, args.Error(1)
}

func (m *MockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

var _ portsrepo.Store = (*MockStore)(nil)

func TestGetBalance_StoreFailureIsInternal(t *testing.T) {
	store := new(MockStore)
	observer := newRecordingObserver()
	svc := services.NewLedgerService(store, services.WithObserver(observer))

	store.On("FindAccountByID", mock.Anything, "acc-1").Return(nil, assert.AnError).Once()

	_, err := svc.GetBalance(context.Background(), "user-1", "acc-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInternal)
	assert.ErrorIs(t, err, assert.AnError)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "GetBalance", appErr.Op)
	assert.Equal(t, []string{"internal"}, observer.ops["GetBalance"])
	store.AssertExpectations(t)
}

func TestListTransactions_ClampsLimitAndScopesToUser(t *testing.T) {
	store := new(MockStore)
	svc := services.NewLedgerService(store)

	store.On("ListTransactions", mock.Anything, mock.MatchedBy(func(f domain.TransactionFilter) bool {
		return f.UserID == "user-1" && f.Direction == domain.Expense
	}), 201, (*domain.TransactionCursor)(nil)).Return([]domain.Transaction{}, nil).Once()

	page, err := svc.ListTransactions(context.Background(), "user-1", dto.ListTransactionsParams{Direction: domain.Expense, Limit: 10000})

	require.NoError(t, err)
	assert.Empty(t, page.Transactions)
	assert.Nil(t, page.NextToken)
	store.AssertExpectations(t)
}

func TestDeleteAccount_WithinTxFailureSurfaces(t *testing.T) {
	store := new(MockStore)
	svc := services.NewLedgerService(store, services.WithRetry(testRetry))

	store.On("WithinTx", mock.Anything, mock.Anything).Return(apperrors.ErrConcurrencyConflict).Times(testRetry.MaxAttempts)

	err := svc.DeleteAccount(context.Background(), "user-1", "acc-1")

	assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)
	store.AssertNumberOfCalls(t, "WithinTx", testRetry.MaxAttempts)
}
