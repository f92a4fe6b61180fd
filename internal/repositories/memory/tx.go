package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_core/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_core/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

type accountChange struct {
	account     domain.Account
	baseVersion int64
	isNew       bool
	deleted     bool
}

// memTx stages writes until commit. Reads through it see committed state
// overlaid with what it has staged.
type memTx struct {
	store *Store
	held  []string

	accounts    map[string]*accountChange
	adjustments []domain.BalanceAdjustment
	newTxns     map[string]domain.Transaction
	newTxnOrder []string
	deletedTxns map[string]bool
	bills       map[string]domain.SplitBill
	newBills    map[string]bool
}

var _ portsrepo.LedgerTx = (*memTx)(nil)

func newMemTx(s *Store) *memTx {
	return &memTx{
		store:       s,
		accounts:    make(map[string]*accountChange),
		newTxns:     make(map[string]domain.Transaction),
		deletedTxns: make(map[string]bool),
		bills:       make(map[string]domain.SplitBill),
		newBills:    make(map[string]bool),
	}
}

func (t *memTx) lock(ctx context.Context, key string) error {
	for _, k := range t.held {
		if k == key {
			return nil
		}
	}
	if err := t.store.locks.acquire(ctx, key, t.store.lockWait); err != nil {
		return err
	}
	t.held = append(t.held, key)
	return nil
}

func (t *memTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.store.locks.release(t.held[i])
	}
	t.held = nil
}

// account returns the account as this unit of work sees it.
func (t *memTx) account(id string) (domain.Account, bool) {
	if change, ok := t.accounts[id]; ok {
		return change.account, !change.deleted
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	acc, ok := t.store.accounts[id]
	return acc, ok
}

// LockAccounts implements portsrepo.AccountWriter.
func (t *memTx) LockAccounts(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	ids := uniqueSorted(accountIDs)
	for _, id := range ids {
		if err := t.lock(ctx, "account:"+id); err != nil {
			return nil, err
		}
	}
	out := make(map[string]domain.Account, len(ids))
	for _, id := range ids {
		if acc, ok := t.account(id); ok {
			out[id] = acc
		}
	}
	return out, nil
}

// SaveAccount implements portsrepo.AccountWriter.
func (t *memTx) SaveAccount(ctx context.Context, account domain.Account) error {
	if _, ok := t.account(account.AccountID); ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, account.AccountID)
	}
	if err := t.lock(ctx, "account:"+account.AccountID); err != nil {
		return err
	}
	t.accounts[account.AccountID] = &accountChange{account: account, isNew: true}
	return nil
}

// UpdateAccount implements portsrepo.AccountWriter.
func (t *memTx) UpdateAccount(ctx context.Context, account *domain.Account) error {
	current, ok := t.account(account.AccountID)
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, account.AccountID)
	}
	if current.Version != account.Version {
		return fmt.Errorf("%w: account %s is at version %d, not %d", apperrors.ErrConcurrencyConflict, account.AccountID, current.Version, account.Version)
	}
	account.Version++

	change, staged := t.accounts[account.AccountID]
	if !staged {
		change = &accountChange{baseVersion: current.Version}
		t.accounts[account.AccountID] = change
	}
	change.account = *account
	return nil
}

// DeleteAccount implements portsrepo.AccountWriter.
func (t *memTx) DeleteAccount(ctx context.Context, accountID string) error {
	current, ok := t.account(accountID)
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	change, staged := t.accounts[accountID]
	if !staged {
		change = &accountChange{account: current, baseVersion: current.Version}
		t.accounts[accountID] = change
	}
	if change.isNew {
		delete(t.accounts, accountID)
		return nil
	}
	change.deleted = true
	return nil
}

// CountAccountReferences implements portsrepo.AccountWriter.
func (t *memTx) CountAccountReferences(ctx context.Context, accountID string) (int, error) {
	count := 0
	for _, txn := range t.transactionView() {
		if txn.AccountID == accountID {
			count++
		}
	}
	for _, bill := range t.billView() {
		if bill.PayerAccountID == accountID {
			count++
		}
	}
	return count, nil
}

// SaveBalanceAdjustment implements portsrepo.AccountWriter.
func (t *memTx) SaveBalanceAdjustment(ctx context.Context, adjustment domain.BalanceAdjustment) error {
	t.adjustments = append(t.adjustments, adjustment)
	return nil
}

// transactionView merges committed transactions with staged changes.
func (t *memTx) transactionView() []domain.Transaction {
	t.store.mu.RLock()
	out := make([]domain.Transaction, 0, len(t.store.transactions)+len(t.newTxns))
	for id, txn := range t.store.transactions {
		if !t.deletedTxns[id] {
			out = append(out, txn)
		}
	}
	t.store.mu.RUnlock()
	for _, id := range t.newTxnOrder {
		if txn, ok := t.newTxns[id]; ok {
			out = append(out, txn)
		}
	}
	return out
}

func (t *memTx) billView() []domain.SplitBill {
	t.store.mu.RLock()
	out := make([]domain.SplitBill, 0, len(t.store.bills)+len(t.bills))
	for id, bill := range t.store.bills {
		if _, staged := t.bills[id]; !staged {
			out = append(out, bill)
		}
	}
	t.store.mu.RUnlock()
	for _, bill := range t.bills {
		out = append(out, bill)
	}
	return out
}

// FindTransactionByID implements portsrepo.TransactionLookup.
func (t *memTx) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	if txn, ok := t.newTxns[transactionID]; ok {
		return &txn, nil
	}
	if t.deletedTxns[transactionID] {
		return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, transactionID)
	}
	return t.store.FindTransactionByID(ctx, transactionID)
}

// FindTransactionsByTransferID implements portsrepo.TransactionLookup.
func (t *memTx) FindTransactionsByTransferID(ctx context.Context, transferID string) ([]domain.Transaction, error) {
	legs := make([]domain.Transaction, 0, 2)
	for _, txn := range t.transactionView() {
		if transferID != "" && txn.TransferID == transferID {
			legs = append(legs, txn)
		}
	}
	sort.Slice(legs, func(i, j int) bool { return legs[i].Seq < legs[j].Seq })
	return legs, nil
}

// SumTransactions implements portsrepo.TransactionLookup.
func (t *memTx) SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var owned []domain.Transaction
	for _, txn := range t.transactionView() {
		if txn.AccountID == accountID {
			owned = append(owned, txn)
		}
	}
	return accounting.SumSignedAmounts(owned), nil
}

// SaveTransaction implements portsrepo.TransactionWriter.
func (t *memTx) SaveTransaction(ctx context.Context, txn *domain.Transaction) error {
	if _, err := t.FindTransactionByID(ctx, txn.TransactionID); err == nil {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, txn.TransactionID)
	}
	if _, ok := t.account(txn.AccountID); !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, txn.AccountID)
	}
	txn.Seq = t.store.nextSeq()
	t.newTxns[txn.TransactionID] = *txn
	t.newTxnOrder = append(t.newTxnOrder, txn.TransactionID)
	return nil
}

// DeleteTransaction implements portsrepo.TransactionWriter.
func (t *memTx) DeleteTransaction(ctx context.Context, transactionID string) error {
	if _, ok := t.newTxns[transactionID]; ok {
		delete(t.newTxns, transactionID)
		return nil
	}
	if _, err := t.FindTransactionByID(ctx, transactionID); err != nil {
		return err
	}
	t.deletedTxns[transactionID] = true
	return nil
}

// SaveSplitBill implements portsrepo.SplitBillWriter.
func (t *memTx) SaveSplitBill(ctx context.Context, bill domain.SplitBill) error {
	if _, staged := t.bills[bill.SplitBillID]; staged {
		return fmt.Errorf("%w: split bill %s", apperrors.ErrDuplicate, bill.SplitBillID)
	}
	if _, err := t.store.FindSplitBillByID(ctx, bill.SplitBillID); err == nil {
		return fmt.Errorf("%w: split bill %s", apperrors.ErrDuplicate, bill.SplitBillID)
	}
	t.bills[bill.SplitBillID] = cloneBill(bill)
	t.newBills[bill.SplitBillID] = true
	return nil
}

// LockSplitBill implements portsrepo.SplitBillWriter.
func (t *memTx) LockSplitBill(ctx context.Context, splitBillID string) (*domain.SplitBill, error) {
	if err := t.lock(ctx, "bill:"+splitBillID); err != nil {
		return nil, err
	}
	if bill, ok := t.bills[splitBillID]; ok {
		out := cloneBill(bill)
		return &out, nil
	}
	bill, err := t.store.FindSplitBillByID(ctx, splitBillID)
	if err != nil {
		return nil, err
	}
	t.bills[splitBillID] = cloneBill(*bill)
	return bill, nil
}

// UpdateParticipant implements portsrepo.SplitBillWriter.
func (t *memTx) UpdateParticipant(ctx context.Context, participant domain.SplitBillParticipant) error {
	bill, ok := t.bills[participant.SplitBillID]
	if !ok {
		return fmt.Errorf("split bill %s must be locked before updating participants", participant.SplitBillID)
	}
	for i := range bill.Participants {
		if bill.Participants[i].ParticipantID == participant.ParticipantID {
			bill.Participants[i] = participant
			t.bills[participant.SplitBillID] = bill
			return nil
		}
	}
	return fmt.Errorf("%w: participant %s", apperrors.ErrNotFound, participant.ParticipantID)
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
