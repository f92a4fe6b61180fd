package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType classifies where the money of an account lives.
type AccountType string

const (
	Cash       AccountType = "cash"
	Bank       AccountType = "bank"
	EWallet    AccountType = "e-wallet"
	CreditCard AccountType = "credit-card"
)

// AccountTypes lists every accepted account type.
var AccountTypes = []AccountType{Cash, Bank, EWallet, CreditCard}

// IsValid reports whether t is one of the known account types.
func (t AccountType) IsValid() bool {
	switch t {
	case Cash, Bank, EWallet, CreditCard:
		return true
	}
	return false
}

// Account represents a user's money container and its denormalized balance.
// Balance always equals OpeningBalance plus the signed sum of the account's transactions.
type Account struct {
	AccountID      string          `json:"accountID"`      // Primary Key (UUID)
	UserID         string          `json:"userID"`         // Owner
	Name           string          `json:"name"`           // User-defined name
	AccountType    AccountType     `json:"accountType"`    // cash, bank, e-wallet, credit-card
	CurrencyCode   string          `json:"currencyCode"`   // ISO 4217 code
	Color          string          `json:"color"`          // Display only
	Icon           string          `json:"icon"`           // Display only
	OpeningBalance decimal.Decimal `json:"openingBalance"` // Balance at creation, shifted by adjustments
	Balance        decimal.Decimal `json:"balance"`        // Persisted current balance
	Version        int64           `json:"version"`        // Optimistic lock, bumped on every write
	AuditFields
}

// Apply adds a signed delta to the current balance.
func (a *Account) Apply(delta decimal.Decimal) {
	a.Balance = a.Balance.Add(delta)
}

// BalanceAdjustment records an administrative override of an account balance.
// The override moves OpeningBalance, never the transaction history.
type BalanceAdjustment struct {
	AdjustmentID    string          `json:"adjustmentID"`
	AccountID       string          `json:"accountID"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	Delta           decimal.Decimal `json:"delta"`
	Reason          string          `json:"reason"`
	AuditFields
}

// Reconciliation compares the stored balance of an account with the value
// derived from its opening balance and transaction history.
type Reconciliation struct {
	AccountID       string          `json:"accountID"`
	StoredBalance   decimal.Decimal `json:"storedBalance"`
	OpeningBalance  decimal.Decimal `json:"openingBalance"`
	TransactionSum  decimal.Decimal `json:"transactionSum"`
	ExpectedBalance decimal.Decimal `json:"expectedBalance"`
	Drift           decimal.Decimal `json:"drift"`
}

// Consistent reports whether the stored balance matches the derived one.
func (r Reconciliation) Consistent() bool {
	return r.Drift.IsZero()
}

// NewReconciliation derives the expected balance and drift for acc.
func NewReconciliation(acc Account, transactionSum decimal.Decimal) Reconciliation {
	expected := acc.OpeningBalance.Add(transactionSum)
	return Reconciliation{
		AccountID:       acc.AccountID,
		StoredBalance:   acc.Balance,
		OpeningBalance:  acc.OpeningBalance,
		TransactionSum:  transactionSum,
		ExpectedBalance: expected,
		Drift:           acc.Balance.Sub(expected),
	}
}

// CurrencyTotal is the combined balance of a user's accounts in one currency.
type CurrencyTotal struct {
	CurrencyCode string          `json:"currencyCode"`
	Total        decimal.Decimal `json:"total"`
	AccountCount int             `json:"accountCount"`
}
