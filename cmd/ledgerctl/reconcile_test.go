package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/SscSPs/ledger_core/internal/core/services"
	"github.com/SscSPs/ledger_core/internal/dto"
	"github.com/SscSPs/ledger_core/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	ledger := services.NewLedgerService(memory.New())

	var ids []string
	for _, name := range []string{"BCA", "GoPay"} {
		acc, err := ledger.CreateAccount(ctx, "alice", dto.CreateAccountRequest{
			Name: name, AccountType: domain.Bank, CurrencyCode: "IDR", Balance: decimal.NewFromInt(1000),
		})
		require.NoError(t, err)
		ids = append(ids, acc.AccountID)
	}
	_, err := ledger.RecordTransaction(ctx, "alice", dto.RecordTransactionRequest{
		AccountID: ids[0], Direction: domain.Expense, Amount: decimal.NewFromInt(200),
	})
	require.NoError(t, err)

	var out bytes.Buffer
	drifted, err := reconcile(ctx, &out, ledger, "alice", "")
	require.NoError(t, err)
	assert.Zero(t, drifted)
	assert.Contains(t, out.String(), ids[0])
	assert.Contains(t, out.String(), ids[1])
	assert.NotContains(t, out.String(), "DRIFT")

	out.Reset()
	drifted, err = reconcile(ctx, &out, ledger, "alice", ids[1])
	require.NoError(t, err)
	assert.Zero(t, drifted)
	assert.NotContains(t, out.String(), ids[0])

	_, err = reconcile(ctx, &out, ledger, "bob", ids[0])
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
