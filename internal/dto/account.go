package dto

import (
	"time"

	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/SscSPs/ledger_core/internal/utils/money"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to create a new account.
type CreateAccountRequest struct {
	Name         string             `json:"name" binding:"required"`
	AccountType  domain.AccountType `json:"type" binding:"required,account_type"`
	Balance      decimal.Decimal    `json:"balance"`                              // Opening balance, may be zero or negative
	CurrencyCode string             `json:"currency" binding:"required,currency"` // ISO 4217
	Color        string             `json:"color"`
	Icon         string             `json:"icon"`
}

// UpdateAccountRequest lists the display fields that can be edited.
// Use pointers to distinguish between zero-value updates and fields not provided.
type UpdateAccountRequest struct {
	Name        *string             `json:"name"`
	AccountType *domain.AccountType `json:"type" binding:"omitempty,account_type"`
	Color       *string             `json:"color"`
	Icon        *string             `json:"icon"`
}

// IsEmpty reports whether no field was provided.
func (r UpdateAccountRequest) IsEmpty() bool {
	return r.Name == nil && r.AccountType == nil && r.Color == nil && r.Icon == nil
}

// EditAccountRequest is the body of PUT /accounts/:id. A balance field is an
// administrative override applied together with the display edits.
type EditAccountRequest struct {
	UpdateAccountRequest
	Balance *decimal.Decimal `json:"balance"`
	Reason  string           `json:"reason"`
}

// AdjustBalanceRequest overrides the current balance of an account.
type AdjustBalanceRequest struct {
	TargetBalance decimal.Decimal `json:"targetBalance"`
	Reason        string          `json:"reason"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID      string             `json:"accountID"`
	Name           string             `json:"name"`
	AccountType    domain.AccountType `json:"type"`
	CurrencyCode   string             `json:"currency"`
	Color          string             `json:"color"`
	Icon           string             `json:"icon"`
	OpeningBalance decimal.Decimal    `json:"openingBalance"`
	Balance        decimal.Decimal    `json:"balance"`
	Version        int64              `json:"version"`
	CreatedAt      time.Time          `json:"createdAt"`
	LastUpdatedAt  time.Time          `json:"lastUpdatedAt"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:      acc.AccountID,
		Name:           acc.Name,
		AccountType:    acc.AccountType,
		CurrencyCode:   acc.CurrencyCode,
		Color:          acc.Color,
		Icon:           acc.Icon,
		OpeningBalance: acc.OpeningBalance,
		Balance:        acc.Balance,
		Version:        acc.Version,
		CreatedAt:      acc.CreatedAt,
		LastUpdatedAt:  acc.LastUpdatedAt,
	}
}

// ListAccountsResponse wraps the list of accounts and their per-currency totals.
type ListAccountsResponse struct {
	Accounts []AccountResponse      `json:"accounts"`
	Totals   []CurrencyTotalResponse `json:"totals"`
}

// CurrencyTotalResponse is the combined balance of the accounts in one currency.
type CurrencyTotalResponse struct {
	CurrencyCode string          `json:"currency"`
	Total        decimal.Decimal `json:"total"`
	Formatted    string          `json:"formatted"`
	AccountCount int             `json:"accountCount"`
}

// ToListAccountsResponse converts accounts and their totals to the list response.
func ToListAccountsResponse(accounts []domain.Account, totals []domain.CurrencyTotal) ListAccountsResponse {
	res := ListAccountsResponse{
		Accounts: make([]AccountResponse, len(accounts)),
		Totals:   make([]CurrencyTotalResponse, len(totals)),
	}
	for i := range accounts {
		res.Accounts[i] = ToAccountResponse(&accounts[i])
	}
	for i, total := range totals {
		res.Totals[i] = CurrencyTotalResponse{
			CurrencyCode: total.CurrencyCode,
			Total:        total.Total,
			Formatted:    money.Format(total.Total, total.CurrencyCode),
			AccountCount: total.AccountCount,
		}
	}
	return res
}

// AccountBalanceResponse defines the data returned for an account balance query.
type AccountBalanceResponse struct {
	AccountID    string          `json:"accountID"`
	Balance      decimal.Decimal `json:"balance"`
	CurrencyCode string          `json:"currency"`
	Formatted    string          `json:"formatted"`
}

// BalanceAdjustmentResponse is one administrative balance override.
type BalanceAdjustmentResponse struct {
	AdjustmentID    string          `json:"adjustmentID"`
	AccountID       string          `json:"accountID"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	Delta           decimal.Decimal `json:"delta"`
	Reason          string          `json:"reason"`
	CreatedAt       time.Time       `json:"createdAt"`
	CreatedBy       string          `json:"createdBy"`
}

// ToBalanceAdjustmentResponses converts adjustments to their DTOs.
func ToBalanceAdjustmentResponses(adjs []domain.BalanceAdjustment) []BalanceAdjustmentResponse {
	res := make([]BalanceAdjustmentResponse, len(adjs))
	for i, a := range adjs {
		res[i] = BalanceAdjustmentResponse{
			AdjustmentID:    a.AdjustmentID,
			AccountID:       a.AccountID,
			PreviousBalance: a.PreviousBalance,
			NewBalance:      a.NewBalance,
			Delta:           a.Delta,
			Reason:          a.Reason,
			CreatedAt:       a.CreatedAt,
			CreatedBy:       a.CreatedBy,
		}
	}
	return res
}
