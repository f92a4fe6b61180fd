package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Direction indicates whether a transaction adds money to or takes money from its account.
type Direction string

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

// IsValid reports whether d is income or expense.
func (d Direction) IsValid() bool {
	return d == Income || d == Expense
}

// Transaction is a single money movement affecting one account.
type Transaction struct {
	TransactionID string          `json:"transactionID"` // Primary Key (UUID)
	UserID        string          `json:"userID"`        // Owner, same as the account owner
	AccountID     string          `json:"accountID"`     // FK -> Account.accountID
	Direction     Direction       `json:"direction"`     // income or expense
	Amount        decimal.Decimal `json:"amount"`        // Strictly positive
	Category      string          `json:"category"`
	Note          string          `json:"note"`
	Timestamp     time.Time       `json:"timestamp"`
	TransferID    string          `json:"transferID,omitempty"`  // Set on both legs of a transfer
	SplitBillID   string          `json:"splitBillID,omitempty"` // Set on split bill settlement credits
	Seq           int64           `json:"seq"`                   // Store-assigned insertion order
	AuditFields
}

// SignedAmount is the delta this transaction applies to its account balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Direction == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsTransferLeg reports whether the transaction belongs to a transfer.
func (t Transaction) IsTransferLeg() bool {
	return t.TransferID != ""
}

// IsSettlement reports whether the transaction was produced by a split bill payment.
func (t Transaction) IsSettlement() bool {
	return t.SplitBillID != ""
}

// Timestamps outside these years cannot be rendered as RFC 3339.
const (
	minTimestampYear = 1
	maxTimestampYear = 9999
)

// Validate checks the transaction's own invariants.
func (t Transaction) Validate() error {
	if t.AccountID == "" {
		return apperrors.NewAppError(apperrors.ErrValidation, "", "account id is required", nil).WithField("accountId")
	}
	if !t.Direction.IsValid() {
		return apperrors.NewAppError(apperrors.ErrValidation, "", "direction must be income or expense", nil).WithField("direction")
	}
	if !t.Amount.IsPositive() {
		return apperrors.NewAppError(apperrors.ErrInvalidAmount, "", "amount must be greater than zero", nil).WithField("amount")
	}
	if t.Timestamp.IsZero() {
		return apperrors.NewAppError(apperrors.ErrValidation, "", "timestamp is required", nil).WithField("timestamp")
	}
	if y := t.Timestamp.UTC().Year(); y < minTimestampYear || y > maxTimestampYear {
		return apperrors.NewAppError(apperrors.ErrValidation, "",
			fmt.Sprintf("timestamp year must be between %d and %d", minTimestampYear, maxTimestampYear), nil).WithField("timestamp")
	}
	return nil
}

// TransactionFilter narrows a transaction listing. Zero values match everything.
type TransactionFilter struct {
	UserID    string
	AccountID string
	From      *time.Time // inclusive
	To        *time.Time // exclusive
	Category  string
	Direction Direction
}

// Matches reports whether t passes the filter.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if f.From != nil && t.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && !t.Timestamp.Before(*f.To) {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Direction != "" && t.Direction != f.Direction {
		return false
	}
	return true
}

// TransactionCursor is the keyset position of a transaction in the listing order.
type TransactionCursor struct {
	Timestamp time.Time
	Seq       int64
}

// CursorOf returns the keyset position of t.
func CursorOf(t Transaction) TransactionCursor {
	return TransactionCursor{Timestamp: t.Timestamp, Seq: t.Seq}
}

// Before reports whether t sorts after the cursor, i.e. belongs to the next page.
// Listing order is timestamp descending, then seq descending.
func (c TransactionCursor) Before(t Transaction) bool {
	if t.Timestamp.Equal(c.Timestamp) {
		return t.Seq < c.Seq
	}
	return t.Timestamp.Before(c.Timestamp)
}

// LessInListing reports whether a sorts before b in listing order.
func LessInListing(a, b Transaction) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.Seq > b.Seq
	}
	return a.Timestamp.After(b.Timestamp)
}

// TransactionPage is one page of a transaction listing.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	NextToken    *string       `json:"nextToken,omitempty"`
}
