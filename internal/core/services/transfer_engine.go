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
)

const transferCategory = "transfer"

// transferEngine moves money between two accounts as a pair of linked
// transactions written in one unit of work.
type transferEngine struct {
	*ledgerCore
	accounts accountStore
	log      transactionLog
}

func (e transferEngine) validate(req dto.TransferRequest) error {
	if strings.TrimSpace(req.SourceAccountID) == "" {
		return validationError("sourceAccountId", "source account id is required")
	}
	if strings.TrimSpace(req.DestAccountID) == "" {
		return validationError("destAccountId", "destination account id is required")
	}
	if req.SourceAccountID == req.DestAccountID {
		return apperrors.NewAppError(apperrors.ErrInvalidTransfer, "", "source and destination must be different accounts", nil).
			WithField("destAccountId").WithEntity(req.DestAccountID)
	}
	if !req.Amount.IsPositive() {
		return invalidAmount("amount", "amount must be greater than zero")
	}
	return nil
}

func (e transferEngine) transfer(ctx context.Context, tx portsrepo.LedgerTx, userID string, req dto.TransferRequest) (*domain.Transfer, error) {
	locked, err := e.accounts.lockOwned(ctx, tx, userID, req.SourceAccountID, req.DestAccountID)
	if err != nil {
		return nil, err
	}
	source, dest := locked[req.SourceAccountID], locked[req.DestAccountID]
	if source.CurrencyCode != dest.CurrencyCode {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidTransfer, "",
			fmt.Sprintf("cannot transfer between %s and %s accounts", source.CurrencyCode, dest.CurrencyCode), nil).
			WithField("destAccountId").WithEntity(dest.AccountID)
	}

	ts := e.now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	transferID := e.newID()
	fields := entryFields{
		amount:     req.Amount,
		category:   transferCategory,
		note:       req.Note,
		timestamp:  ts,
		transferID: transferID,
	}

	fields.direction = domain.Expense
	out, err := e.log.newEntry(userID, source, fields)
	if err != nil {
		return nil, err
	}
	fields.direction = domain.Income
	in, err := e.log.newEntry(userID, dest, fields)
	if err != nil {
		return nil, err
	}

	if err := e.log.append(ctx, tx, &source, &out); err != nil {
		return nil, err
	}
	if err := e.log.append(ctx, tx, &dest, &in); err != nil {
		return nil, err
	}

	transfer, err := domain.TransferFromLegs([]domain.Transaction{out, in})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (e transferEngine) find(ctx context.Context, lookup portsrepo.TransactionLookup, userID, transferID string) (*domain.Transfer, error) {
	legs, err := lookup.FindTransactionsByTransferID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if len(legs) == 0 || legs[0].UserID != userID {
		return nil, notFound("transfer", transferID)
	}
	transfer, err := domain.TransferFromLegs(legs)
	if err != nil {
		return nil, fmt.Errorf("transfer %s is corrupt: %w", transferID, err)
	}
	return &transfer, nil
}

// remove deletes both legs of a transfer and reverses both balance effects.
func (e transferEngine) remove(ctx context.Context, tx portsrepo.LedgerTx, userID, transferID string) error {
	transfer, err := e.find(ctx, tx, userID, transferID)
	if err != nil {
		return err
	}
	locked, err := e.accounts.lockOwned(ctx, tx, userID, transfer.SourceAccountID, transfer.DestAccountID)
	if err != nil {
		return err
	}
	// Re-read under the account locks; a concurrent delete may have won.
	if transfer, err = e.find(ctx, tx, userID, transferID); err != nil {
		return err
	}

	source, dest := locked[transfer.SourceAccountID], locked[transfer.DestAccountID]
	if err := e.log.remove(ctx, tx, &source, transfer.Legs[0], userID); err != nil {
		return err
	}
	return e.log.remove(ctx, tx, &dest, transfer.Legs[1], userID)
}

// asTransferFailure keeps domain errors as they are and reports anything
// unexpected as a failed transfer. Conflicts pass through so they can be retried.
func asTransferFailure(err error) error {
	if err == nil || apperrors.KindOf(err) != apperrors.ErrInternal {
		return err
	}
	return apperrors.NewAppError(apperrors.ErrTransferFailed, "", "transfer was rolled back", err)
}

// Transfer implements portssvc.TransferSvc.
func (s *ledgerService) Transfer(ctx context.Context, userID string, req dto.TransferRequest) (*domain.Transfer, error) {
	var transfer *domain.Transfer
	err := s.run(ctx, "Transfer", func(ctx context.Context) error {
		if err := s.transfers.validate(req); err != nil {
			return err
		}
		err := s.inTx(ctx, "Transfer", func(ctx context.Context, tx portsrepo.LedgerTx) (err error) {
			transfer, err = s.transfers.transfer(ctx, tx, userID, req)
			return err
		})
		return asTransferFailure(err)
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Transfer committed",
		slog.String("transfer_id", transfer.TransferID),
		slog.String("source_account_id", transfer.SourceAccountID),
		slog.String("dest_account_id", transfer.DestAccountID),
		slog.String("amount", transfer.Amount.String()))
	return transfer, nil
}

// GetTransfer implements portssvc.TransferSvc.
func (s *ledgerService) GetTransfer(ctx context.Context, userID string, transferID string) (*domain.Transfer, error) {
	var transfer *domain.Transfer
	err := s.run(ctx, "GetTransfer", func(ctx context.Context) (err error) {
		transfer, err = s.transfers.find(ctx, s.store, userID, transferID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// DeleteTransfer implements portssvc.TransferSvc.
func (s *ledgerService) DeleteTransfer(ctx context.Context, userID string, transferID string) error {
	return s.run(ctx, "DeleteTransfer", func(ctx context.Context) error {
		err := s.inTx(ctx, "DeleteTransfer", func(ctx context.Context, tx portsrepo.LedgerTx) error {
			return s.transfers.remove(ctx, tx, userID, transferID)
		})
		return asTransferFailure(err)
	})
}
