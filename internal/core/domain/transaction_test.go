package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransaction_SignedAmount(t *testing.T) {
	tests := []struct {
		name string
		tx   domain.Transaction
		want string
	}{
		{
			name: "income adds",
			tx:   domain.Transaction{Direction: domain.Income, Amount: decimal.NewFromInt(150000)},
			want: "150000",
		},
		{
			name: "expense subtracts",
			tx:   domain.Transaction{Direction: domain.Expense, Amount: decimal.RequireFromString("12.34")},
			want: "-12.34",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tx.SignedAmount().String())
		})
	}
}

func TestTransaction_Validate(t *testing.T) {
	now := time.Now()
	valid := domain.Transaction{
		TransactionID: "txn_123",
		AccountID:     "acc_123",
		Direction:     domain.Expense,
		Amount:        decimal.NewFromInt(100),
		Timestamp:     now,
	}

	tests := []struct {
		name    string
		mutate  func(tx *domain.Transaction)
		wantErr error
		field   string
	}{
		{name: "valid transaction", mutate: func(tx *domain.Transaction) {}},
		{name: "zero amount", mutate: func(tx *domain.Transaction) { tx.Amount = decimal.Zero }, wantErr: apperrors.ErrInvalidAmount, field: "amount"},
		{name: "negative amount", mutate: func(tx *domain.Transaction) { tx.Amount = decimal.NewFromInt(-5) }, wantErr: apperrors.ErrInvalidAmount, field: "amount"},
		{name: "unknown direction", mutate: func(tx *domain.Transaction) { tx.Direction = "refund" }, wantErr: apperrors.ErrValidation, field: "direction"},
		{name: "missing account", mutate: func(tx *domain.Transaction) { tx.AccountID = "" }, wantErr: apperrors.ErrValidation, field: "accountId"},
		{name: "far future timestamp", mutate: func(tx *domain.Transaction) { tx.Timestamp = time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC) }},
		{name: "timestamp past year 9999", mutate: func(tx *domain.Transaction) { tx.Timestamp = time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC) }, wantErr: apperrors.ErrValidation, field: "timestamp"},
		{name: "missing timestamp", mutate: func(tx *domain.Transaction) { tx.Timestamp = time.Time{} }, wantErr: apperrors.ErrValidation, field: "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			var appErr *apperrors.AppError
			if assert.ErrorAs(t, err, &appErr) {
				assert.Equal(t, tt.field, appErr.Field)
			}
		})
	}
}

func TestTransactionFilter_Matches(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	from := base.Add(-time.Hour)
	to := base
	tx := domain.Transaction{UserID: "u1", AccountID: "a1", Category: "food", Direction: domain.Expense, Timestamp: base.Add(-time.Minute)}

	assert.True(t, domain.TransactionFilter{}.Matches(tx))
	assert.True(t, domain.TransactionFilter{UserID: "u1", AccountID: "a1", From: &from, To: &to, Category: "food", Direction: domain.Expense}.Matches(tx))
	assert.False(t, domain.TransactionFilter{UserID: "u2"}.Matches(tx))
	assert.False(t, domain.TransactionFilter{Direction: domain.Income}.Matches(tx))

	atUpperBound := tx
	atUpperBound.Timestamp = to
	assert.False(t, domain.TransactionFilter{To: &to}.Matches(atUpperBound), "upper bound is exclusive")
	atLowerBound := tx
	atLowerBound.Timestamp = from
	assert.True(t, domain.TransactionFilter{From: &from}.Matches(atLowerBound), "lower bound is inclusive")
}

func TestTransactionCursor_OrdersByTimestampThenSeq(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cursor := domain.TransactionCursor{Timestamp: ts, Seq: 10}

	assert.True(t, cursor.Before(domain.Transaction{Timestamp: ts, Seq: 9}))
	assert.False(t, cursor.Before(domain.Transaction{Timestamp: ts, Seq: 10}))
	assert.False(t, cursor.Before(domain.Transaction{Timestamp: ts, Seq: 11}))
	assert.True(t, cursor.Before(domain.Transaction{Timestamp: ts.Add(-time.Second), Seq: 99}))
	assert.False(t, cursor.Before(domain.Transaction{Timestamp: ts.Add(time.Second), Seq: 1}))

	assert.True(t, domain.LessInListing(domain.Transaction{Timestamp: ts, Seq: 2}, domain.Transaction{Timestamp: ts, Seq: 1}))
	assert.True(t, domain.LessInListing(domain.Transaction{Timestamp: ts.Add(time.Second), Seq: 1}, domain.Transaction{Timestamp: ts, Seq: 2}))
}

func TestTransferFromLegs(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	out := domain.Transaction{TransactionID: "t1", AccountID: "bca", Direction: domain.Expense, Amount: decimal.NewFromInt(150000), Timestamp: ts, TransferID: "tr1"}
	in := domain.Transaction{TransactionID: "t2", AccountID: "gopay", Direction: domain.Income, Amount: decimal.NewFromInt(150000), Timestamp: ts, TransferID: "tr1"}

	transfer, err := domain.TransferFromLegs([]domain.Transaction{in, out})
	assert.NoError(t, err)
	assert.Equal(t, "bca", transfer.SourceAccountID)
	assert.Equal(t, "gopay", transfer.DestAccountID)
	assert.True(t, transfer.Amount.Equal(decimal.NewFromInt(150000)))

	_, err = domain.TransferFromLegs([]domain.Transaction{out})
	assert.Error(t, err)

	mismatched := in
	mismatched.Amount = decimal.NewFromInt(1)
	_, err = domain.TransferFromLegs([]domain.Transaction{out, mismatched})
	assert.Error(t, err)
}
