package repositories

import (
	"context"

	"github.com/SscSPs/ledger_core/internal/core/domain"
)

// SplitBillReader defines read operations for split bills
type SplitBillReader interface {
	// FindSplitBillByID retrieves a bill with its participants in creation order.
	FindSplitBillByID(ctx context.Context, splitBillID string) (*domain.SplitBill, error)

	// ListSplitBillsByUser retrieves every bill owned by userID, newest first.
	ListSplitBillsByUser(ctx context.Context, userID string) ([]domain.SplitBill, error)
}

// SplitBillWriter defines write operations for split bills within a unit of work.
type SplitBillWriter interface {
	// SaveSplitBill persists a new bill and its participants.
	SaveSplitBill(ctx context.Context, bill domain.SplitBill) error

	// LockSplitBill selects a bill with its participants and locks it for update.
	LockSplitBill(ctx context.Context, splitBillID string) (*domain.SplitBill, error)

	// UpdateParticipant writes the settlement fields of a participant.
	UpdateParticipant(ctx context.Context, participant domain.SplitBillParticipant) error
}
