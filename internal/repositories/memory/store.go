// Package memory is an in-process ledger store. Writes are staged per unit of
// work and applied under one write lock at commit, so readers never observe a
// partially applied operation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_core/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_core/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

// Store keeps the committed ledger state in maps.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]domain.Account
	adjustments  map[string][]domain.BalanceAdjustment
	transactions map[string]domain.Transaction
	bills        map[string]domain.SplitBill
	seq          int64

	locks    *keyedLocks
	lockWait time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockWaitTimeout bounds how long a unit of work waits for a row lock
// before failing with ErrConcurrencyConflict. Zero waits until ctx ends.
func WithLockWaitTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockWait = d
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		accounts:     make(map[string]domain.Account),
		adjustments:  make(map[string][]domain.BalanceAdjustment),
		transactions: make(map[string]domain.Transaction),
		bills:        make(map[string]domain.SplitBill),
		locks:        newKeyedLocks(),
		lockWait:     2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portsrepo.Store = (*Store)(nil)

// Close releases nothing; it exists to satisfy the store interface.
func (s *Store) Close() error {
	return nil
}

// WithinTx runs fn in a unit of work and commits its staged writes atomically.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx := newMemTx(s)
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, change := range tx.accounts {
		current, exists := s.accounts[id]
		switch {
		case change.isNew:
			if exists {
				return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, id)
			}
		case !exists:
			return fmt.Errorf("%w: account %s disappeared before commit", apperrors.ErrConcurrencyConflict, id)
		case current.Version != change.baseVersion:
			return fmt.Errorf("%w: account %s changed before commit", apperrors.ErrConcurrencyConflict, id)
		}
	}
	for id := range tx.deletedTxns {
		if _, ok := s.transactions[id]; !ok {
			return fmt.Errorf("%w: transaction %s disappeared before commit", apperrors.ErrConcurrencyConflict, id)
		}
	}
	for id := range tx.newBills {
		if _, ok := s.bills[id]; ok {
			return fmt.Errorf("%w: split bill %s", apperrors.ErrDuplicate, id)
		}
	}

	for id, change := range tx.accounts {
		if change.deleted {
			delete(s.accounts, id)
			delete(s.adjustments, id)
			continue
		}
		s.accounts[id] = change.account
	}
	for _, adj := range tx.adjustments {
		s.adjustments[adj.AccountID] = append(s.adjustments[adj.AccountID], adj)
	}
	for id := range tx.deletedTxns {
		delete(s.transactions, id)
	}
	for _, id := range tx.newTxnOrder {
		if txn, ok := tx.newTxns[id]; ok {
			s.transactions[id] = txn
		}
	}
	for id, bill := range tx.bills {
		s.bills[id] = cloneBill(bill)
	}
	return nil
}

func (s *Store) nextSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// FindAccountByID implements portsrepo.AccountReader.
func (s *Store) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return &acc, nil
}

// ListAccountsByUser implements portsrepo.AccountReader.
func (s *Store) ListAccountsByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0)
	for _, acc := range s.accounts {
		if acc.UserID == userID {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].AccountID < out[j].AccountID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListBalanceAdjustments implements portsrepo.AccountReader.
func (s *Store) ListBalanceAdjustments(ctx context.Context, accountID string) ([]domain.BalanceAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.BalanceAdjustment{}, s.adjustments[accountID]...), nil
}

// FindTransactionByID implements portsrepo.TransactionReader.
func (s *Store) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.transactions[transactionID]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, transactionID)
	}
	return &txn, nil
}

// FindTransactionsByTransferID implements portsrepo.TransactionReader.
func (s *Store) FindTransactionsByTransferID(ctx context.Context, transferID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transferLegs(transferID), nil
}

func (s *Store) transferLegs(transferID string) []domain.Transaction {
	legs := make([]domain.Transaction, 0, 2)
	for _, txn := range s.transactions {
		if transferID != "" && txn.TransferID == transferID {
			legs = append(legs, txn)
		}
	}
	sort.Slice(legs, func(i, j int) bool { return legs[i].Seq < legs[j].Seq })
	return legs
}

// SumTransactions implements portsrepo.TransactionReader.
func (s *Store) SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var owned []domain.Transaction
	for _, txn := range s.transactions {
		if txn.AccountID == accountID {
			owned = append(owned, txn)
		}
	}
	return accounting.SumSignedAmounts(owned), nil
}

// ListTransactions implements portsrepo.TransactionReader.
func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter, limit int, after *domain.TransactionCursor) ([]domain.Transaction, error) {
	s.mu.RLock()
	matches := make([]domain.Transaction, 0)
	for _, txn := range s.transactions {
		if !filter.Matches(txn) {
			continue
		}
		if after != nil && !after.Before(txn) {
			continue
		}
		matches = append(matches, txn)
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return domain.LessInListing(matches[i], matches[j]) })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// FindSplitBillByID implements portsrepo.SplitBillReader.
func (s *Store) FindSplitBillByID(ctx context.Context, splitBillID string) (*domain.SplitBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bill, ok := s.bills[splitBillID]
	if !ok {
		return nil, fmt.Errorf("%w: split bill %s", apperrors.ErrNotFound, splitBillID)
	}
	out := cloneBill(bill)
	return &out, nil
}

// ListSplitBillsByUser implements portsrepo.SplitBillReader.
func (s *Store) ListSplitBillsByUser(ctx context.Context, userID string) ([]domain.SplitBill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SplitBill, 0)
	for _, bill := range s.bills {
		if bill.UserID == userID {
			out = append(out, cloneBill(bill))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SplitBillID > out[j].SplitBillID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func cloneBill(b domain.SplitBill) domain.SplitBill {
	out := b
	out.Participants = make([]domain.SplitBillParticipant, len(b.Participants))
	copy(out.Participants, b.Participants)
	for i := range out.Participants {
		if p := out.Participants[i].PaidAt; p != nil {
			paidAt := *p
			out.Participants[i].PaidAt = &paidAt
		}
	}
	return out
}
