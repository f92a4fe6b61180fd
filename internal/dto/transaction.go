package dto

import (
	"time"

	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RecordTransactionRequest records an income or expense on one account.
type RecordTransactionRequest struct {
	AccountID string           `json:"accountId" binding:"required"`
	Direction domain.Direction `json:"direction" binding:"required,direction"`
	Amount    decimal.Decimal  `json:"amount"`
	Category  string           `json:"category"`
	Note      string           `json:"note"`
	Timestamp *time.Time       `json:"timestamp"` // Defaults to now
}

// ListTransactionsParams defines query parameters for listing transactions.
type ListTransactionsParams struct {
	AccountID string           `form:"accountId"`
	From      *time.Time       `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time       `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Category  string           `form:"category"`
	Direction domain.Direction `form:"direction" binding:"omitempty,direction"`
	Limit     int              `form:"limit,default=20" binding:"min=0,max=200"`
	NextToken *string          `form:"nextToken"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	TransactionID string           `json:"transactionID"`
	AccountID     string           `json:"accountID"`
	Direction     domain.Direction `json:"direction"`
	Amount        decimal.Decimal  `json:"amount"`
	Category      string           `json:"category"`
	Note          string           `json:"note"`
	Timestamp     time.Time        `json:"timestamp"`
	TransferID    string           `json:"transferID,omitempty"`
	SplitBillID   string           `json:"splitBillID,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: txn.TransactionID,
		AccountID:     txn.AccountID,
		Direction:     txn.Direction,
		Amount:        txn.Amount,
		Category:      txn.Category,
		Note:          txn.Note,
		Timestamp:     txn.Timestamp,
		TransferID:    txn.TransferID,
		SplitBillID:   txn.SplitBillID,
		CreatedAt:     txn.CreatedAt,
	}
}

// ToTransactionResponses converts a slice of domain.Transaction to []TransactionResponse.
func ToTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i := range txns {
		responses[i] = ToTransactionResponse(&txns[i])
	}
	return responses
}

// ListTransactionsResponse is one page of transactions.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// ToListTransactionsResponse converts a page to its DTO.
func ToListTransactionsResponse(page *domain.TransactionPage) ListTransactionsResponse {
	return ListTransactionsResponse{
		Transactions: ToTransactionResponses(page.Transactions),
		NextToken:    page.NextToken,
	}
}
