package dto

import (
	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ReconciliationResponse reports drift between the stored balance and history.
type ReconciliationResponse struct {
	AccountID       string          `json:"accountID"`
	StoredBalance   decimal.Decimal `json:"storedBalance"`
	OpeningBalance  decimal.Decimal `json:"openingBalance"`
	TransactionSum  decimal.Decimal `json:"transactionSum"`
	ExpectedBalance decimal.Decimal `json:"expectedBalance"`
	Drift           decimal.Decimal `json:"drift"`
	Consistent      bool            `json:"consistent"`
}

// ToReconciliationResponse converts a domain.Reconciliation to its DTO.
func ToReconciliationResponse(r domain.Reconciliation) ReconciliationResponse {
	return ReconciliationResponse{
		AccountID:       r.AccountID,
		StoredBalance:   r.StoredBalance,
		OpeningBalance:  r.OpeningBalance,
		TransactionSum:  r.TransactionSum,
		ExpectedBalance: r.ExpectedBalance,
		Drift:           r.Drift,
		Consistent:      r.Consistent(),
	}
}
