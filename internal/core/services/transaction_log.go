package services

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/ledger_core/internal/apperrors"
	"github.com/SscSPs/ledger_core/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_core/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_core/internal/dto"
	"github.com/SscSPs/ledger_core/internal/utils/money"
	"github.com/SscSPs/ledger_core/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
	iterPageSize    = 100
)

// transactionLog records money movements on single accounts. append and
// remove are the only paths that write transactions, and each moves the
// account balance in the same unit of work.
type transactionLog struct {
	*ledgerCore
	accounts accountStore
}

type entryFields struct {
	direction   domain.Direction
	amount      decimal.Decimal
	category    string
	note        string
	timestamp   time.Time
	transferID  string
	splitBillID string
}

// newEntry builds a transaction on a locked account and checks it against the
// account's currency.
func (l transactionLog) newEntry(userID string, acc domain.Account, fields entryFields) (domain.Transaction, error) {
	if err := money.CheckPrecision(fields.amount, acc.CurrencyCode); err != nil {
		return domain.Transaction{}, invalidAmount("amount", err.Error()).WithEntity(acc.AccountID)
	}
	txn := domain.Transaction{
		TransactionID: l.newID(),
		UserID:        userID,
		AccountID:     acc.AccountID,
		Direction:     fields.direction,
		Amount:        fields.amount,
		Category:      strings.TrimSpace(fields.category),
		Note:          fields.note,
		Timestamp:     domain.NormalizeTime(fields.timestamp),
		TransferID:    fields.transferID,
		SplitBillID:   fields.splitBillID,
		AuditFields:   domain.NewAuditFields(userID, l.now()),
	}
	if err := txn.Validate(); err != nil {
		return domain.Transaction{}, err
	}
	return txn, nil
}

// append persists txn and applies its signed amount to acc.
func (l transactionLog) append(ctx context.Context, tx portsrepo.LedgerTx, acc *domain.Account, txn *domain.Transaction) error {
	if err := tx.SaveTransaction(ctx, txn); err != nil {
		return err
	}
	return l.accounts.applyDelta(ctx, tx, acc, txn.SignedAmount(), txn.UserID)
}

// remove deletes txn and reverses its signed amount on acc.
func (l transactionLog) remove(ctx context.Context, tx portsrepo.LedgerTx, acc *domain.Account, txn domain.Transaction, userID string) error {
	if err := tx.DeleteTransaction(ctx, txn.TransactionID); err != nil {
		return err
	}
	return l.accounts.applyDelta(ctx, tx, acc, txn.SignedAmount().Neg(), userID)
}

func (l transactionLog) validateRequest(req dto.RecordTransactionRequest) error {
	if strings.TrimSpace(req.AccountID) == "" {
		return validationError("accountId", "account id is required")
	}
	if !req.Direction.IsValid() {
		return validationError("direction", "direction must be income or expense")
	}
	if !req.Amount.IsPositive() {
		return invalidAmount("amount", "amount must be greater than zero")
	}
	return nil
}

func (l transactionLog) record(ctx context.Context, tx portsrepo.LedgerTx, userID string, req dto.RecordTransactionRequest) (*domain.Transaction, error) {
	locked, err := l.accounts.lockOwned(ctx, tx, userID, req.AccountID)
	if err != nil {
		return nil, err
	}
	acc := locked[req.AccountID]

	ts := l.now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	txn, err := l.newEntry(userID, acc, entryFields{
		direction: req.Direction,
		amount:    req.Amount,
		category:  req.Category,
		note:      req.Note,
		timestamp: ts,
	})
	if err != nil {
		return nil, err
	}
	if err := l.append(ctx, tx, &acc, &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

// findOwned loads a transaction and hides it when userID does not own it.
func (l transactionLog) findOwned(ctx context.Context, lookup portsrepo.TransactionLookup, userID, transactionID string) (*domain.Transaction, error) {
	txn, err := lookup.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, translateNotFound(err, "transaction", transactionID)
	}
	if txn.UserID != userID {
		return nil, notFound("transaction", transactionID)
	}
	return txn, nil
}

func (l transactionLog) delete(ctx context.Context, tx portsrepo.LedgerTx, userID, transactionID string) error {
	txn, err := l.findOwned(ctx, tx, userID, transactionID)
	if err != nil {
		return err
	}
	if txn.IsSettlement() {
		return apperrors.NewAppError(apperrors.ErrReferentialConflict, "",
			"transaction settles a split bill participant and cannot be deleted", nil).WithEntity(transactionID)
	}

	locked, err := l.accounts.lockOwned(ctx, tx, userID, txn.AccountID)
	if err != nil {
		return err
	}
	acc := locked[txn.AccountID]
	return l.remove(ctx, tx, &acc, *txn, userID)
}

func toFilter(userID string, params dto.ListTransactionsParams) domain.TransactionFilter {
	filter := domain.TransactionFilter{
		UserID:    userID,
		AccountID: params.AccountID,
		Category:  params.Category,
		Direction: params.Direction,
	}
	if params.From != nil {
		from := domain.NormalizeTime(*params.From)
		filter.From = &from
	}
	if params.To != nil {
		to := domain.NormalizeTime(*params.To)
		filter.To = &to
	}
	return filter
}

func (l transactionLog) page(ctx context.Context, reader portsrepo.TransactionReader, filter domain.TransactionFilter, limit int, after *domain.TransactionCursor) (*domain.TransactionPage, error) {
	rows, err := reader.ListTransactions(ctx, filter, limit+1, after)
	if err != nil {
		return nil, err
	}
	page := &domain.TransactionPage{Transactions: rows}
	if len(rows) > limit {
		page.Transactions = rows[:limit]
		last := page.Transactions[limit-1]
		token := pagination.EncodeToken(last.Timestamp, last.Seq)
		page.NextToken = &token
	}
	return page, nil
}

// RecordTransaction implements portssvc.TransactionSvc.
func (s *ledgerService) RecordTransaction(ctx context.Context, userID string, req dto.RecordTransactionRequest) (*domain.Transaction, error) {
	var recorded *domain.Transaction
	err := s.run(ctx, "RecordTransaction", func(ctx context.Context) error {
		if err := s.log.validateRequest(req); err != nil {
			return err
		}
		return s.inTx(ctx, "RecordTransaction", func(ctx context.Context, tx portsrepo.LedgerTx) (err error) {
			recorded, err = s.log.record(ctx, tx, userID, req)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.LogDebug(ctx, "Transaction recorded", slog.String("transaction_id", recorded.TransactionID), slog.String("account_id", recorded.AccountID))
	return recorded, nil
}

// GetTransaction implements portssvc.TransactionSvc.
func (s *ledgerService) GetTransaction(ctx context.Context, userID string, transactionID string) (*domain.Transaction, error) {
	var txn *domain.Transaction
	err := s.run(ctx, "GetTransaction", func(ctx context.Context) (err error) {
		txn, err = s.log.findOwned(ctx, s.store, userID, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// DeleteTransaction implements portssvc.TransactionSvc.
func (s *ledgerService) DeleteTransaction(ctx context.Context, userID string, transactionID string) error {
	return s.run(ctx, "DeleteTransaction", func(ctx context.Context) error {
		return s.inTx(ctx, "DeleteTransaction", func(ctx context.Context, tx portsrepo.LedgerTx) error {
			txn, err := s.log.findOwned(ctx, tx, userID, transactionID)
			if err != nil {
				return err
			}
			if txn.IsTransferLeg() {
				return s.transfers.remove(ctx, tx, userID, txn.TransferID)
			}
			return s.log.delete(ctx, tx, userID, transactionID)
		})
	})
}

// ListTransactions implements portssvc.TransactionSvc.
func (s *ledgerService) ListTransactions(ctx context.Context, userID string, params dto.ListTransactionsParams) (*domain.TransactionPage, error) {
	var page *domain.TransactionPage
	err := s.run(ctx, "ListTransactions", func(ctx context.Context) error {
		limit := params.Limit
		if limit <= 0 {
			limit = defaultPageSize
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
		if params.Direction != "" && !params.Direction.IsValid() {
			return validationError("direction", "direction must be income or expense")
		}

		var after *domain.TransactionCursor
		if params.NextToken != nil && *params.NextToken != "" {
			ts, seq, err := pagination.DecodeToken(*params.NextToken)
			if err != nil {
				return validationError("nextToken", err.Error())
			}
			after = &domain.TransactionCursor{Timestamp: ts, Seq: seq}
		}

		var err error
		page, err = s.log.page(ctx, s.store, toFilter(userID, params), limit, after)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// IterTransactions implements portssvc.TransactionSvc. Each range over the
// returned sequence starts a fresh listing from the newest transaction.
func (s *ledgerService) IterTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) iter.Seq2[domain.Transaction, error] {
	filter.UserID = userID
	return func(yield func(domain.Transaction, error) bool) {
		var after *domain.TransactionCursor
		for {
			var page *domain.TransactionPage
			err := s.run(ctx, "IterTransactions", func(ctx context.Context) (err error) {
				page, err = s.log.page(ctx, s.store, filter, iterPageSize, after)
				return err
			})
			if err != nil {
				yield(domain.Transaction{}, err)
				return
			}
			for _, txn := range page.Transactions {
				if !yield(txn, nil) {
					return
				}
			}
			if page.NextToken == nil {
				return
			}
			cursor := domain.CursorOf(page.Transactions[len(page.Transactions)-1])
			after = &cursor
		}
	}
}
