// Package storetest holds the behaviour every ledger store implementation must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_core/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opener returns an empty store. The store is closed when the test ends.
type Opener func(t *testing.T) portsrepo.Store

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newAccount(userID, name string, balance string) domain.Account {
	return domain.Account{
		AccountID:      uuid.NewString(),
		UserID:         userID,
		Name:           name,
		AccountType:    domain.Bank,
		CurrencyCode:   "IDR",
		OpeningBalance: decimal.RequireFromString(balance),
		Balance:        decimal.RequireFromString(balance),
		Version:        1,
		AuditFields:    domain.NewAuditFields(userID, base),
	}
}

func newTransaction(acc domain.Account, direction domain.Direction, amount string, ts time.Time) domain.Transaction {
	return domain.Transaction{
		TransactionID: uuid.NewString(),
		UserID:        acc.UserID,
		AccountID:     acc.AccountID,
		Direction:     direction,
		Amount:        decimal.RequireFromString(amount),
		Category:      "food",
		Timestamp:     domain.NormalizeTime(ts),
		AuditFields:   domain.NewAuditFields(acc.UserID, ts),
	}
}

func saveAccounts(t *testing.T, store portsrepo.Store, accounts ...domain.Account) {
	t.Helper()
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		for _, acc := range accounts {
			if err := tx.SaveAccount(ctx, acc); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func saveTransactions(t *testing.T, store portsrepo.Store, txns ...*domain.Transaction) {
	t.Helper()
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx portsrepo.LedgerTx) error {
		for _, txn := range txns {
			if err := tx.SaveTransaction(ctx, txn); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// Run exercises a store implementation.
func Run(t *testing.T, open Opener) {
	t.Helper()
	ctx := context.Background()

	openStore := func(t *testing.T) portsrepo.Store {
		store := open(t)
		t.Cleanup(func() { _ = store.Close() })
		return store
	}

	t.Run("account round trip", func(t *testing.T) {
		store := openStore(t)
		acc := newAccount("user-1", "BCA", "500000.5")
		acc.Color, acc.Icon = "#00f", "bank"
		saveAccounts(t, store, acc)

		got, err := store.FindAccountByID(ctx, acc.AccountID)
		require.NoError(t, err)
		assert.Equal(t, acc.Name, got.Name)
		assert.Equal(t, acc.AccountType, got.AccountType)
		assert.Equal(t, "#00f", got.Color)
		assert.True(t, got.Balance.Equal(acc.Balance))
		assert.True(t, got.OpeningBalance.Equal(acc.OpeningBalance))
		assert.Equal(t, int64(1), got.Version)
		assert.True(t, got.CreatedAt.Equal(acc.CreatedAt))

		listed, err := store.ListAccountsByUser(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, listed, 1)

		_, err = store.FindAccountByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("duplicate account is rejected", func(t *testing.T) {
		store := openStore(t)
		acc := newAccount("user-1", "BCA", "0")
		saveAccounts(t, store, acc)

		err := store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			return tx.SaveAccount(ctx, acc)
		})
		assert.ErrorIs(t, err, apperrors.ErrDuplicate)
	})

	t.Run("failed unit of work leaves nothing behind", func(t *testing.T) {
		store := openStore(t)
		acc := newAccount("user-1", "BCA", "100")
		saveAccounts(t, store, acc)
		boom := errors.New("boom")

		err := store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			locked, err := tx.LockAccounts(ctx, []string{acc.AccountID})
			if err != nil {
				return err
			}
			a := locked[acc.AccountID]
			txn := newTransaction(a, domain.Expense, "40", base)
			if err := tx.SaveTransaction(ctx, &txn); err != nil {
				return err
			}
			a.Apply(txn.SignedAmount())
			if err := tx.UpdateAccount(ctx, &a); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := store.FindAccountByID(ctx, acc.AccountID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, int64(1), got.Version)
		rows, err := store.ListTransactions(ctx, domain.TransactionFilter{UserID: "user-1"}, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("cancelled context does not commit", func(t *testing.T) {
		store := openStore(t)
		acc := newAccount("user-1", "BCA", "100")
		saveAccounts(t, store, acc)

		cctx, cancel := context.WithCancel(ctx)
		err := store.WithinTx(cctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			txn := newTransaction(acc, domain.Income, "1", base)
			if err := tx.SaveTransaction(ctx, &txn); err != nil {
				return err
			}
			cancel()
			return nil
		})
		require.Error(t, err)
		rows, err := store.ListTransactions(ctx, domain.TransactionFilter{}, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("stale version is a concurrency conflict", func(t *testing.T) {
		store := openStore(t)
		acc := newAccount("user-1", "BCA", "100")
		saveAccounts(t, store, acc)

		err := store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			stale := acc
			stale.Version = 7
			return tx.UpdateAccount(ctx, &stale)
		})
		assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)

		err = store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			current := acc
			current.Balance = decimal.NewFromInt(90)
			if err := tx.UpdateAccount(ctx, &current); err != nil {
				return err
			}
			assert.Equal(t, int64(2), current.Version)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("lock returns only existing accounts", func(t *testing.T) {
		store := openStore(t)
		a, b := newAccount("user-1", "A", "1"), newAccount("user-1", "B", "2")
		saveAccounts(t, store, a, b)
		missing := uuid.NewString()

		err := store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			locked, err := tx.LockAccounts(ctx, []string{b.AccountID, missing, a.AccountID})
			if err != nil {
				return err
			}
			assert.Len(t, locked, 2)
			assert.Contains(t, locked, a.AccountID)
			assert.Contains(t, locked, b.AccountID)
			assert.NotContains(t, locked, missing)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("transactions list in keyset order", func(t *testing.T) {
		store := openStore(t)
		acc := newAccount("user-1", "Cash", "0")
		saveAccounts(t, store, acc)

		t1 := newTransaction(acc, domain.Income, "10", base)
		t2 := newTransaction(acc, domain.Expense, "3.5", base)
		t3 := newTransaction(acc, domain.Income, "1", base.Add(-time.Minute))
		t4 := newTransaction(acc, domain.Income, "2", base.Add(time.Minute))
		saveTransactions(t, store, &t1, &t2, &t3, &t4)
		assert.Less(t, t1.Seq, t2.Seq)

		all, err := store.ListTransactions(ctx, domain.TransactionFilter{AccountID: acc.AccountID}, 0, nil)
		require.NoError(t, err)
		ids := make([]string, len(all))
		for i, txn := range all {
			ids[i] = txn.TransactionID
		}
		assert.Equal(t, []string{t4.TransactionID, t2.TransactionID, t1.TransactionID, t3.TransactionID}, ids)
		assert.True(t, all[1].Timestamp.Equal(t2.Timestamp))

		cursor := domain.CursorOf(all[1])
		rest, err := store.ListTransactions(ctx, domain.TransactionFilter{AccountID: acc.AccountID}, 1, &cursor)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, t1.TransactionID, rest[0].TransactionID)

		from, to := base, base.Add(time.Minute)
		window, err := store.ListTransactions(ctx, domain.TransactionFilter{From: &from, To: &to, Direction: domain.Income}, 0, nil)
		require.NoError(t, err)
		require.Len(t, window, 1)
		assert.Equal(t, t1.TransactionID, window[0].TransactionID)

		sum, err := store.SumTransactions(ctx, acc.AccountID)
		require.NoError(t, err)
		assert.True(t, sum.Equal(decimal.RequireFromString("9.5")), "sum %s", sum)
	})

	t.Run("far future timestamps keep their order", func(t *testing.T) {
		store := openStore(t)
		acc := newAccount("user-1", "Cash", "0")
		saveAccounts(t, store, acc)

		future := time.Date(2300, 1, 1, 0, 0, 0, 123456000, time.UTC)
		near := newTransaction(acc, domain.Income, "1", base)
		far := newTransaction(acc, domain.Income, "2", future)
		saveTransactions(t, store, &near, &far)

		got, err := store.FindTransactionByID(ctx, far.TransactionID)
		require.NoError(t, err)
		assert.True(t, got.Timestamp.Equal(future), "timestamp %s", got.Timestamp)

		listed, err := store.ListTransactions(ctx, domain.TransactionFilter{AccountID: acc.AccountID}, 0, nil)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, far.TransactionID, listed[0].TransactionID)
		assert.Equal(t, near.TransactionID, listed[1].TransactionID)

		from := future.Add(-time.Hour)
		window, err := store.ListTransactions(ctx, domain.TransactionFilter{From: &from}, 0, nil)
		require.NoError(t, err)
		require.Len(t, window, 1)
		assert.Equal(t, far.TransactionID, window[0].TransactionID)
	})

	t.Run("transfer legs and references", func(t *testing.T) {
		store := openStore(t)
		a, b := newAccount("user-1", "A", "100"), newAccount("user-1", "B", "0")
		saveAccounts(t, store, a, b)

		out := newTransaction(a, domain.Expense, "25", base)
		in := newTransaction(b, domain.Income, "25", base)
		out.TransferID, in.TransferID = "tr-1", "tr-1"
		saveTransactions(t, store, &out, &in)

		legs, err := store.FindTransactionsByTransferID(ctx, "tr-1")
		require.NoError(t, err)
		require.Len(t, legs, 2)
		assert.Equal(t, out.TransactionID, legs[0].TransactionID)
		transfer, err := domain.TransferFromLegs(legs)
		require.NoError(t, err)
		assert.Equal(t, a.AccountID, transfer.SourceAccountID)

		err = store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			refs, err := tx.CountAccountReferences(ctx, a.AccountID)
			if err != nil {
				return err
			}
			assert.Equal(t, 1, refs)
			if err := tx.DeleteTransaction(ctx, out.TransactionID); err != nil {
				return err
			}
			if err := tx.DeleteTransaction(ctx, in.TransactionID); err != nil {
				return err
			}
			refs, err = tx.CountAccountReferences(ctx, a.AccountID)
			if err != nil {
				return err
			}
			assert.Zero(t, refs)
			return tx.DeleteAccount(ctx, a.AccountID)
		})
		require.NoError(t, err)

		_, err = store.FindAccountByID(ctx, a.AccountID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		_, err = store.FindTransactionByID(ctx, out.TransactionID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("balance adjustments", func(t *testing.T) {
		store := openStore(t)
		acc := newAccount("user-1", "A", "100")
		saveAccounts(t, store, acc)

		adj := domain.BalanceAdjustment{
			AdjustmentID:    uuid.NewString(),
			AccountID:       acc.AccountID,
			PreviousBalance: decimal.NewFromInt(100),
			NewBalance:      decimal.NewFromInt(80),
			Delta:           decimal.NewFromInt(-20),
			Reason:          "statement",
			AuditFields:     domain.NewAuditFields("user-1", base),
		}
		err := store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			return tx.SaveBalanceAdjustment(ctx, adj)
		})
		require.NoError(t, err)

		got, err := store.ListBalanceAdjustments(ctx, acc.AccountID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].Delta.Equal(adj.Delta))
		assert.Equal(t, "statement", got[0].Reason)
	})

	t.Run("split bill round trip", func(t *testing.T) {
		store := openStore(t)
		payer := newAccount("user-1", "BCA", "0")
		saveAccounts(t, store, payer)

		bill := domain.SplitBill{
			SplitBillID:    uuid.NewString(),
			UserID:         "user-1",
			Title:          "Dinner",
			TotalAmount:    decimal.NewFromInt(300000),
			CurrencyCode:   "IDR",
			PayerAccountID: payer.AccountID,
			AuditFields:    domain.NewAuditFields("user-1", base),
		}
		for i, name := range []string{"Andi", "Budi", "Citra"} {
			bill.Participants = append(bill.Participants, domain.SplitBillParticipant{
				ParticipantID: uuid.NewString(),
				SplitBillID:   bill.SplitBillID,
				Name:          name,
				Amount:        decimal.NewFromInt(100000),
				Position:      i,
			})
		}
		err := store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			return tx.SaveSplitBill(ctx, bill)
		})
		require.NoError(t, err)

		err = store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			locked, err := tx.LockSplitBill(ctx, bill.SplitBillID)
			if err != nil {
				return err
			}
			p, ok := locked.Participant(bill.Participants[1].ParticipantID)
			require.True(t, ok)
			p.MarkPaid(base.Add(time.Hour))
			credit := newTransaction(payer, domain.Income, "100000", *p.PaidAt)
			credit.SplitBillID = bill.SplitBillID
			if err := tx.SaveTransaction(ctx, &credit); err != nil {
				return err
			}
			p.PaymentTransactionID = credit.TransactionID
			return tx.UpdateParticipant(ctx, *p)
		})
		require.NoError(t, err)

		got, err := store.FindSplitBillByID(ctx, bill.SplitBillID)
		require.NoError(t, err)
		require.Len(t, got.Participants, 3)
		assert.Equal(t, "Andi", got.Participants[0].Name)
		assert.False(t, got.Participants[0].IsPaid)
		assert.True(t, got.Participants[1].IsPaid)
		require.NotNil(t, got.Participants[1].PaidAt)
		assert.True(t, got.Participants[1].PaidAt.Equal(base.Add(time.Hour)))
		assert.NotEmpty(t, got.Participants[1].PaymentTransactionID)
		assert.Equal(t, payer.AccountID, got.PayerAccountID)

		status := got.Status()
		assert.Equal(t, 1, status.PaidCount)
		assert.True(t, status.Outstanding.Equal(decimal.NewFromInt(200000)))

		bills, err := store.ListSplitBillsByUser(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, bills, 1)
		assert.Len(t, bills[0].Participants, 3)

		err = store.WithinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			refs, err := tx.CountAccountReferences(ctx, payer.AccountID)
			if err != nil {
				return err
			}
			assert.Equal(t, 2, refs, "one settlement credit and one bill")
			return nil
		})
		require.NoError(t, err)

		_, err = store.FindSplitBillByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
