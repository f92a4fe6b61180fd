package dto

import (
	"time"

	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransferRequest moves an amount from one account to another.
type TransferRequest struct {
	SourceAccountID string          `json:"sourceAccountId" binding:"required"`
	DestAccountID   string          `json:"destAccountId" binding:"required"`
	Amount          decimal.Decimal `json:"amount"`
	Timestamp       *time.Time      `json:"timestamp"`
	Note            string          `json:"note"`
}

// TransferResponse is a transfer with both of its legs.
type TransferResponse struct {
	TransferID      string                `json:"transferID"`
	SourceAccountID string                `json:"sourceAccountID"`
	DestAccountID   string                `json:"destAccountID"`
	Amount          decimal.Decimal       `json:"amount"`
	Timestamp       time.Time             `json:"timestamp"`
	Note            string                `json:"note"`
	Legs            []TransactionResponse `json:"legs"`
}

// ToTransferResponse converts a domain.Transfer to TransferResponse DTO.
func ToTransferResponse(t *domain.Transfer) TransferResponse {
	return TransferResponse{
		TransferID:      t.TransferID,
		SourceAccountID: t.SourceAccountID,
		DestAccountID:   t.DestAccountID,
		Amount:          t.Amount,
		Timestamp:       t.Timestamp,
		Note:            t.Note,
		Legs:            ToTransactionResponses(t.Legs[:]),
	}
}
