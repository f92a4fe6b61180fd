package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transfer links the two transactions that move money between accounts.
// It does not own the legs; it is derived from them.
type Transfer struct {
	TransferID      string          `json:"transferID"`
	UserID          string          `json:"userID"`
	SourceAccountID string          `json:"sourceAccountID"`
	DestAccountID   string          `json:"destAccountID"`
	Amount          decimal.Decimal `json:"amount"`
	Timestamp       time.Time       `json:"timestamp"`
	Note            string          `json:"note"`
	Legs            [2]Transaction  `json:"legs"` // [expense on source, income on destination]
}

// TransferFromLegs rebuilds a Transfer from its persisted legs and checks that they pair up.
func TransferFromLegs(legs []Transaction) (Transfer, error) {
	if len(legs) != 2 {
		return Transfer{}, fmt.Errorf("transfer must have exactly 2 legs, found %d", len(legs))
	}
	out, in := legs[0], legs[1]
	if out.Direction == Income {
		out, in = in, out
	}
	switch {
	case out.TransferID == "" || out.TransferID != in.TransferID:
		return Transfer{}, fmt.Errorf("legs do not share a transfer id")
	case out.Direction != Expense || in.Direction != Income:
		return Transfer{}, fmt.Errorf("transfer %s legs must be one expense and one income", out.TransferID)
	case !out.Amount.Equal(in.Amount):
		return Transfer{}, fmt.Errorf("transfer %s legs have different amounts", out.TransferID)
	case !out.Timestamp.Equal(in.Timestamp):
		return Transfer{}, fmt.Errorf("transfer %s legs have different timestamps", out.TransferID)
	}
	return Transfer{
		TransferID:      out.TransferID,
		UserID:          out.UserID,
		SourceAccountID: out.AccountID,
		DestAccountID:   in.AccountID,
		Amount:          out.Amount,
		Timestamp:       out.Timestamp,
		Note:            out.Note,
		Legs:            [2]Transaction{out, in},
	}, nil
}
