package dto

import (
	"time"

	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SplitBillParticipantRequest is one share of a new split bill.
type SplitBillParticipantRequest struct {
	Name   string          `json:"name" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// CreateSplitBillRequest defines the data needed to create a split bill.
// When SplitEvenly is set, participant amounts are ignored and computed from the total.
type CreateSplitBillRequest struct {
	Title          string                        `json:"title" binding:"required"`
	TotalAmount    decimal.Decimal               `json:"totalAmount"`
	CurrencyCode   string                        `json:"currency" binding:"required,currency"`
	PayerAccountID string                        `json:"payerAccountId"`
	SplitEvenly    bool                          `json:"splitEvenly"`
	Participants   []SplitBillParticipantRequest `json:"participants" binding:"required,min=1,dive"`
}

// MarkPaidRequest marks one participant's share as paid.
type MarkPaidRequest struct {
	ParticipantID string `json:"participantId" binding:"required"`
}

// SplitBillParticipantResponse is one share of a split bill.
type SplitBillParticipantResponse struct {
	ParticipantID        string          `json:"participantID"`
	Name                 string          `json:"name"`
	Amount               decimal.Decimal `json:"amount"`
	IsPaid               bool            `json:"isPaid"`
	PaidAt               *time.Time      `json:"paidAt,omitempty"`
	PaymentTransactionID string          `json:"paymentTransactionID,omitempty"`
}

// SplitBillResponse defines the data returned for a split bill.
type SplitBillResponse struct {
	SplitBillID    string                         `json:"splitBillID"`
	Title          string                         `json:"title"`
	TotalAmount    decimal.Decimal                `json:"totalAmount"`
	CurrencyCode   string                         `json:"currency"`
	PayerAccountID string                         `json:"payerAccountID,omitempty"`
	Participants   []SplitBillParticipantResponse `json:"participants"`
	Status         BillStatusResponse             `json:"status"`
	CreatedAt      time.Time                      `json:"createdAt"`
}

// BillStatusResponse is the derived settlement state of a bill.
type BillStatusResponse struct {
	SplitBillID string          `json:"splitBillID"`
	PaidCount   int             `json:"paid"`
	TotalCount  int             `json:"total"`
	PaidAmount  decimal.Decimal `json:"paidAmount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Settled     bool            `json:"settled"`
}

// ToBillStatusResponse converts a domain.BillStatus to its DTO.
func ToBillStatusResponse(s domain.BillStatus) BillStatusResponse {
	return BillStatusResponse{
		SplitBillID: s.SplitBillID,
		PaidCount:   s.PaidCount,
		TotalCount:  s.TotalCount,
		PaidAmount:  s.PaidAmount,
		Outstanding: s.Outstanding,
		Settled:     s.Settled,
	}
}

// ToSplitBillResponse converts a domain.SplitBill to SplitBillResponse DTO.
func ToSplitBillResponse(b *domain.SplitBill) SplitBillResponse {
	participants := make([]SplitBillParticipantResponse, len(b.Participants))
	for i, p := range b.Participants {
		participants[i] = SplitBillParticipantResponse{
			ParticipantID:        p.ParticipantID,
			Name:                 p.Name,
			Amount:               p.Amount,
			IsPaid:               p.IsPaid,
			PaidAt:               p.PaidAt,
			PaymentTransactionID: p.PaymentTransactionID,
		}
	}
	return SplitBillResponse{
		SplitBillID:    b.SplitBillID,
		Title:          b.Title,
		TotalAmount:    b.TotalAmount,
		CurrencyCode:   b.CurrencyCode,
		PayerAccountID: b.PayerAccountID,
		Participants:   participants,
		Status:         ToBillStatusResponse(b.Status()),
		CreatedAt:      b.CreatedAt,
	}
}

// ListSplitBillsResponse wraps the list of split bills.
type ListSplitBillsResponse struct {
	SplitBills []SplitBillResponse `json:"splitBills"`
}

// ToListSplitBillsResponse converts bills to the list response.
func ToListSplitBillsResponse(bills []domain.SplitBill) ListSplitBillsResponse {
	res := make([]SplitBillResponse, len(bills))
	for i := range bills {
		res[i] = ToSplitBillResponse(&bills[i])
	}
	return ListSplitBillsResponse{SplitBills: res}
}
