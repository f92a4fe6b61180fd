package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitBillCategory is the category of the income transaction that credits
// the payer account when a participant settles.
const SplitBillCategory = "split-bill"

// SplitBill is a shared expense divided among participants.
// The participant shares always sum to TotalAmount exactly.
type SplitBill struct {
	SplitBillID    string                 `json:"splitBillID"`
	UserID         string                 `json:"userID"`
	Title          string                 `json:"title"`
	TotalAmount    decimal.Decimal        `json:"totalAmount"`
	CurrencyCode   string                 `json:"currencyCode"`
	PayerAccountID string                 `json:"payerAccountID,omitempty"` // Account credited when participants pay
	Participants   []SplitBillParticipant `json:"participants"`
	AuditFields
}

// Participant returns the participant with the given id.
func (b *SplitBill) Participant(participantID string) (*SplitBillParticipant, bool) {
	for i := range b.Participants {
		if b.Participants[i].ParticipantID == participantID {
			return &b.Participants[i], true
		}
	}
	return nil, false
}

// Status derives the settlement summary from the participant flags.
func (b SplitBill) Status() BillStatus {
	status := BillStatus{
		SplitBillID: b.SplitBillID,
		TotalCount:  len(b.Participants),
		PaidAmount:  decimal.Zero,
		Outstanding: decimal.Zero,
	}
	for _, p := range b.Participants {
		if p.IsPaid {
			status.PaidCount++
			status.PaidAmount = status.PaidAmount.Add(p.Amount)
		} else {
			status.Outstanding = status.Outstanding.Add(p.Amount)
		}
	}
	status.Settled = status.PaidCount == status.TotalCount
	return status
}

// SplitBillParticipant is one share of a split bill.
// IsPaid only ever moves from false to true.
type SplitBillParticipant struct {
	ParticipantID        string          `json:"participantID"`
	SplitBillID          string          `json:"splitBillID"`
	Name                 string          `json:"name"`
	Amount               decimal.Decimal `json:"amount"`
	IsPaid               bool            `json:"isPaid"`
	PaidAt               *time.Time      `json:"paidAt,omitempty"`
	PaymentTransactionID string          `json:"paymentTransactionID,omitempty"`
	Position             int             `json:"position"`
}

// MarkPaid moves the participant to Paid. It returns false when the
// participant was already paid and nothing changed.
func (p *SplitBillParticipant) MarkPaid(now time.Time) bool {
	if p.IsPaid {
		return false
	}
	paidAt := NormalizeTime(now)
	p.IsPaid = true
	p.PaidAt = &paidAt
	return true
}

// BillStatus is the derived settlement state of a split bill.
type BillStatus struct {
	SplitBillID string          `json:"splitBillID"`
	PaidCount   int             `json:"paidCount"`
	TotalCount  int             `json:"totalCount"`
	PaidAmount  decimal.Decimal `json:"paidAmount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Settled     bool            `json:"settled"`
}
