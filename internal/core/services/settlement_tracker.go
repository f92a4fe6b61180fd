package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_core/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_core/internal/dto"
	"github.com/SscSPs/ledger_core/internal/utils/accounting"
	"github.com/SscSPs/ledger_core/internal/utils/money"
	"github.com/shopspring/decimal"
)

// settlementTracker owns split bills and the paid state of each participant.
type settlementTracker struct {
	*ledgerCore
	accounts accountStore
	log      transactionLog
}

func (t settlementTracker) newBill(userID string, req dto.CreateSplitBillRequest) (domain.SplitBill, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.SplitBill{}, validationError("title", "title is required")
	}
	code, err := money.NormalizeCode(req.CurrencyCode)
	if err != nil {
		return domain.SplitBill{}, validationError("currency", err.Error())
	}
	fraction, _ := money.Fraction(code)
	if !req.TotalAmount.IsPositive() {
		return domain.SplitBill{}, invalidAmount("totalAmount", "total amount must be greater than zero")
	}
	if err := money.CheckPrecision(req.TotalAmount, code); err != nil {
		return domain.SplitBill{}, invalidAmount("totalAmount", err.Error())
	}
	if len(req.Participants) == 0 {
		return domain.SplitBill{}, validationError("participants", "at least one participant is required")
	}

	shares := make([]decimal.Decimal, len(req.Participants))
	if req.SplitEvenly {
		shares, err = accounting.SplitEvenly(req.TotalAmount, len(req.Participants), fraction)
		if err != nil {
			return domain.SplitBill{}, apperrors.NewAppError(apperrors.ErrAmountMismatch, "", err.Error(), nil).WithField("totalAmount")
		}
	} else {
		for i, p := range req.Participants {
			field := fmt.Sprintf("participants[%d].amount", i)
			if !p.Amount.IsPositive() {
				return domain.SplitBill{}, invalidAmount(field, "share must be greater than zero")
			}
			if err := money.CheckPrecision(p.Amount, code); err != nil {
				return domain.SplitBill{}, invalidAmount(field, err.Error())
			}
			shares[i] = p.Amount
		}
	}
	if err := accounting.ValidateShares(req.TotalAmount, shares, fraction); err != nil {
		return domain.SplitBill{}, apperrors.NewAppError(apperrors.ErrAmountMismatch, "", err.Error(), nil).WithField("participants")
	}

	bill := domain.SplitBill{
		SplitBillID:    t.newID(),
		UserID:         userID,
		Title:          title,
		TotalAmount:    req.TotalAmount,
		CurrencyCode:   code,
		PayerAccountID: strings.TrimSpace(req.PayerAccountID),
		Participants:   make([]domain.SplitBillParticipant, len(req.Participants)),
		AuditFields:    domain.NewAuditFields(userID, t.now()),
	}
	for i, p := range req.Participants {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return domain.SplitBill{}, validationError(fmt.Sprintf("participants[%d].name", i), "participant name is required")
		}
		bill.Participants[i] = domain.SplitBillParticipant{
			ParticipantID: t.newID(),
			SplitBillID:   bill.SplitBillID,
			Name:          name,
			Amount:        shares[i],
			Position:      i,
		}
	}
	return bill, nil
}

func (t settlementTracker) create(ctx context.Context, tx portsrepo.LedgerTx, userID string, bill domain.SplitBill) error {
	if bill.PayerAccountID != "" {
		locked, err := t.accounts.lockOwned(ctx, tx, userID, bill.PayerAccountID)
		if err != nil {
			return err
		}
		if payer := locked[bill.PayerAccountID]; payer.CurrencyCode != bill.CurrencyCode {
			return validationError("payerAccountId",
				fmt.Sprintf("payer account currency %s does not match bill currency %s", payer.CurrencyCode, bill.CurrencyCode)).
				WithEntity(bill.PayerAccountID)
		}
	}
	return tx.SaveSplitBill(ctx, bill)
}

// markPaid moves a participant to Paid. Only the first transition has side
// effects: PaidAt is set and, when the bill has a payer account, one income
// transaction credits it.
func (t settlementTracker) markPaid(ctx context.Context, tx portsrepo.LedgerTx, userID, billID, participantID string) (*domain.SplitBill, error) {
	bill, err := tx.LockSplitBill(ctx, billID)
	if err != nil {
		return nil, translateNotFound(err, "split bill", billID)
	}
	if bill.UserID != userID {
		return nil, notFound("split bill", billID)
	}
	participant, ok := bill.Participant(participantID)
	if !ok {
		return nil, notFound("participant", participantID)
	}
	if !participant.MarkPaid(t.now()) {
		return bill, nil
	}

	if bill.PayerAccountID != "" {
		locked, err := t.accounts.lockOwned(ctx, tx, userID, bill.PayerAccountID)
		if err != nil {
			return nil, err
		}
		payer := locked[bill.PayerAccountID]
		credit, err := t.log.newEntry(userID, payer, entryFields{
			direction:   domain.Income,
			amount:      participant.Amount,
			category:    domain.SplitBillCategory,
			note:        fmt.Sprintf("%s paid their share of %s", participant.Name, bill.Title),
			timestamp:   *participant.PaidAt,
			splitBillID: bill.SplitBillID,
		})
		if err != nil {
			return nil, err
		}
		if err := t.log.append(ctx, tx, &payer, &credit); err != nil {
			return nil, err
		}
		participant.PaymentTransactionID = credit.TransactionID
	}

	if err := tx.UpdateParticipant(ctx, *participant); err != nil {
		return nil, err
	}
	return bill, nil
}

func (t settlementTracker) findOwned(ctx context.Context, reader portsrepo.SplitBillReader, userID, billID string) (*domain.SplitBill, error) {
	bill, err := reader.FindSplitBillByID(ctx, billID)
	if err != nil {
		return nil, translateNotFound(err, "split bill", billID)
	}
	if bill.UserID != userID {
		return nil, notFound("split bill", billID)
	}
	return bill, nil
}

// CreateSplitBill implements portssvc.SplitBillSvc.
func (s *ledgerService) CreateSplitBill(ctx context.Context, userID string, req dto.CreateSplitBillRequest) (*domain.SplitBill, error) {
	var bill domain.SplitBill
	err := s.run(ctx, "CreateSplitBill", func(ctx context.Context) error {
		var err error
		if bill, err = s.bills.newBill(userID, req); err != nil {
			return err
		}
		return s.inTx(ctx, "CreateSplitBill", func(ctx context.Context, tx portsrepo.LedgerTx) error {
			return s.bills.create(ctx, tx, userID, bill)
		})
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Split bill created", slog.String("split_bill_id", bill.SplitBillID), slog.Int("participants", len(bill.Participants)))
	return &bill, nil
}

// GetSplitBill implements portssvc.SplitBillSvc.
func (s *ledgerService) GetSplitBill(ctx context.Context, userID string, splitBillID string) (*domain.SplitBill, error) {
	var bill *domain.SplitBill
	err := s.run(ctx, "GetSplitBill", func(ctx context.Context) (err error) {
		bill, err = s.bills.findOwned(ctx, s.store, userID, splitBillID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// ListSplitBills implements portssvc.SplitBillSvc.
func (s *ledgerService) ListSplitBills(ctx context.Context, userID string) ([]domain.SplitBill, error) {
	var bills []domain.SplitBill
	err := s.run(ctx, "ListSplitBills", func(ctx context.Context) (err error) {
		bills, err = s.store.ListSplitBillsByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bills, nil
}

// MarkParticipantPaid implements portssvc.SplitBillSvc.
func (s *ledgerService) MarkParticipantPaid(ctx context.Context, userID string, splitBillID string, participantID string) (*domain.SplitBill, error) {
	var bill *domain.SplitBill
	err := s.run(ctx, "MarkParticipantPaid", func(ctx context.Context) error {
		return s.inTx(ctx, "MarkParticipantPaid", func(ctx context.Context, tx portsrepo.LedgerTx) (err error) {
			bill, err = s.bills.markPaid(ctx, tx, userID, splitBillID, participantID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// BillStatus implements portssvc.SplitBillSvc.
func (s *ledgerService) BillStatus(ctx context.Context, userID string, splitBillID string) (*domain.BillStatus, error) {
	bill, err := s.GetSplitBill(ctx, userID, splitBillID)
	if err != nil {
		return nil, err
	}
	status := bill.Status()
	return &status, nil
}
