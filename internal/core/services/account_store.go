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

const defaultAdjustmentReason = "manual balance override"

// validateUpdate checks the display fields that are present.
func validateUpdate(req dto.UpdateAccountRequest) error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return validationError("name", "name cannot be empty")
	}
	if req.AccountType != nil && !req.AccountType.IsValid() {
		return validationError("type", fmt.Sprintf("type must be one of %v", domain.AccountTypes))
	}
	return nil
}

// accountStore owns account records and is the single place balances change.
type accountStore struct {
	*ledgerCore
}

func (a accountStore) newAccount(userID string, req dto.CreateAccountRequest) (domain.Account, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Account{}, validationError("name", "name is required")
	}
	if !req.AccountType.IsValid() {
		return domain.Account{}, validationError("type", fmt.Sprintf("type must be one of %v", domain.AccountTypes))
	}
	code, err := money.NormalizeCode(req.CurrencyCode)
	if err != nil {
		return domain.Account{}, validationError("currency", err.Error())
	}
	if err := money.CheckPrecision(req.Balance, code); err != nil {
		return domain.Account{}, invalidAmount("balance", err.Error())
	}

	return domain.Account{
		AccountID:      a.newID(),
		UserID:         userID,
		Name:           name,
		AccountType:    req.AccountType,
		CurrencyCode:   code,
		Color:          req.Color,
		Icon:           req.Icon,
		OpeningBalance: req.Balance,
		Balance:        req.Balance,
		Version:        1,
		AuditFields:    domain.NewAuditFields(userID, a.now()),
	}, nil
}

// lockOwned locks every account in ids with a single call, so the store takes
// the locks in its fixed order, and checks that userID owns all of them.
func (a accountStore) lockOwned(ctx context.Context, tx portsrepo.LedgerTx, userID string, ids ...string) (map[string]domain.Account, error) {
	locked, err := tx.LockAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		acc, ok := locked[id]
		if !ok || acc.UserID != userID {
			return nil, notFound("account", id)
		}
	}
	return locked, nil
}

// applyDelta moves the balance of a locked account and persists it.
func (a accountStore) applyDelta(ctx context.Context, tx portsrepo.LedgerTx, acc *domain.Account, delta decimal.Decimal, userID string) error {
	acc.Apply(delta)
	acc.Touch(userID, a.now())
	return tx.UpdateAccount(ctx, acc)
}

func (a accountStore) update(ctx context.Context, tx portsrepo.LedgerTx, userID, accountID string, req dto.UpdateAccountRequest) (*domain.Account, error) {
	locked, err := a.lockOwned(ctx, tx, userID, accountID)
	if err != nil {
		return nil, err
	}
	acc := locked[accountID]
	if req.Name != nil {
		acc.Name = strings.TrimSpace(*req.Name)
	}
	if req.AccountType != nil {
		acc.AccountType = *req.AccountType
	}
	if req.Color != nil {
		acc.Color = *req.Color
	}
	if req.Icon != nil {
		acc.Icon = *req.Icon
	}
	acc.Touch(userID, a.now())
	if err := tx.UpdateAccount(ctx, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// adjust overrides the balance by shifting the opening balance, so the
// transaction history stays untouched and still reconciles.
func (a accountStore) adjust(ctx context.Context, tx portsrepo.LedgerTx, userID, accountID string, req dto.AdjustBalanceRequest) (*domain.Account, error) {
	locked, err := a.lockOwned(ctx, tx, userID, accountID)
	if err != nil {
		return nil, err
	}
	acc := locked[accountID]
	if err := money.CheckPrecision(req.TargetBalance, acc.CurrencyCode); err != nil {
		return nil, invalidAmount("targetBalance", err.Error()).WithEntity(accountID)
	}

	delta := req.TargetBalance.Sub(acc.Balance)
	if delta.IsZero() {
		return &acc, nil
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultAdjustmentReason
	}
	adjustment := domain.BalanceAdjustment{
		AdjustmentID:    a.newID(),
		AccountID:       accountID,
		PreviousBalance: acc.Balance,
		NewBalance:      req.TargetBalance,
		Delta:           delta,
		Reason:          reason,
		AuditFields:     domain.NewAuditFields(userID, a.now()),
	}

	acc.OpeningBalance = acc.OpeningBalance.Add(delta)
	if err := a.applyDelta(ctx, tx, &acc, delta, userID); err != nil {
		return nil, err
	}
	if err := tx.SaveBalanceAdjustment(ctx, adjustment); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (a accountStore) delete(ctx context.Context, tx portsrepo.LedgerTx, userID, accountID string) error {
	if _, err := a.lockOwned(ctx, tx, userID, accountID); err != nil {
		return err
	}
	refs, err := tx.CountAccountReferences(ctx, accountID)
	if err != nil {
		return err
	}
	if refs > 0 {
		return apperrors.NewAppError(apperrors.ErrReferentialConflict, "",
			fmt.Sprintf("account is referenced by %d transactions or split bills", refs), nil).WithEntity(accountID)
	}
	return tx.DeleteAccount(ctx, accountID)
}

func (a accountStore) reconcile(ctx context.Context, tx portsrepo.LedgerTx, userID, accountID string) (*domain.Reconciliation, error) {
	locked, err := a.lockOwned(ctx, tx, userID, accountID)
	if err != nil {
		return nil, err
	}
	sum, err := tx.SumTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	rec := domain.NewReconciliation(locked[accountID], sum)
	return &rec, nil
}

func (a accountStore) findOwned(ctx context.Context, reader portsrepo.AccountReader, userID, accountID string) (*domain.Account, error) {
	acc, err := reader.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, translateNotFound(err, "account", accountID)
	}
	if acc.UserID != userID {
		return nil, notFound("account", accountID)
	}
	return acc, nil
}

// CreateAccount implements portssvc.AccountSvc.
func (s *ledgerService) CreateAccount(ctx context.Context, userID string, req dto.CreateAccountRequest) (*domain.Account, error) {
	var created domain.Account
	err := s.run(ctx, "CreateAccount", func(ctx context.Context) error {
		acc, err := s.accounts.newAccount(userID, req)
		if err != nil {
			return err
		}
		if err := s.inTx(ctx, "CreateAccount", func(ctx context.Context, tx portsrepo.LedgerTx) error {
			return tx.SaveAccount(ctx, acc)
		}); err != nil {
			return err
		}
		created = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Account created", slog.String("account_id", created.AccountID))
	return &created, nil
}

// GetAccount implements portssvc.AccountSvc.
func (s *ledgerService) GetAccount(ctx context.Context, userID string, accountID string) (*domain.Account, error) {
	var acc *domain.Account
	err := s.run(ctx, "GetAccount", func(ctx context.Context) (err error) {
		acc, err = s.accounts.findOwned(ctx, s.store, userID, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// ListAccounts implements portssvc.AccountSvc.
func (s *ledgerService) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.run(ctx, "ListAccounts", func(ctx context.Context) (err error) {
		accounts, err = s.store.ListAccountsByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// TotalBalances implements portssvc.AccountSvc.
func (s *ledgerService) TotalBalances(ctx context.Context, userID string) ([]domain.CurrencyTotal, error) {
	var totals []domain.CurrencyTotal
	err := s.run(ctx, "TotalBalances", func(ctx context.Context) error {
		accounts, err := s.store.ListAccountsByUser(ctx, userID)
		if err != nil {
			return err
		}
		totals = accounting.TotalsByCurrency(accounts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

// UpdateAccount implements portssvc.AccountSvc.
func (s *ledgerService) UpdateAccount(ctx context.Context, userID string, accountID string, req dto.UpdateAccountRequest) (*domain.Account, error) {
	var updated *domain.Account
	err := s.run(ctx, "UpdateAccount", func(ctx context.Context) error {
		if req.IsEmpty() {
			return validationError("", "no fields to update")
		}
		if err := validateUpdate(req); err != nil {
			return err
		}
		return s.inTx(ctx, "UpdateAccount", func(ctx context.Context, tx portsrepo.LedgerTx) (err error) {
			updated, err = s.accounts.update(ctx, tx, userID, accountID, req)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// EditAccount implements portssvc.AccountSvc.
func (s *ledgerService) EditAccount(ctx context.Context, userID string, accountID string, req dto.EditAccountRequest) (*domain.Account, error) {
	var edited *domain.Account
	err := s.run(ctx, "EditAccount", func(ctx context.Context) error {
		if req.IsEmpty() && req.Balance == nil {
			return validationError("", "no fields to update")
		}
		if err := validateUpdate(req.UpdateAccountRequest); err != nil {
			return err
		}
		return s.inTx(ctx, "EditAccount", func(ctx context.Context, tx portsrepo.LedgerTx) (err error) {
			if !req.IsEmpty() {
				if edited, err = s.accounts.update(ctx, tx, userID, accountID, req.UpdateAccountRequest); err != nil {
					return err
				}
			}
			if req.Balance != nil {
				adjust := dto.AdjustBalanceRequest{TargetBalance: *req.Balance, Reason: req.Reason}
				if edited, err = s.accounts.adjust(ctx, tx, userID, accountID, adjust); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if req.Balance != nil {
		s.LogInfo(ctx, "Account balance overridden", slog.String("account_id", accountID), slog.String("balance", edited.Balance.String()))
	}
	return edited, nil
}

// AdjustBalance implements portssvc.AccountSvc.
func (s *ledgerService) AdjustBalance(ctx context.Context, userID string, accountID string, req dto.AdjustBalanceRequest) (*domain.Account, error) {
	var adjusted *domain.Account
	err := s.run(ctx, "AdjustBalance", func(ctx context.Context) error {
		return s.inTx(ctx, "AdjustBalance", func(ctx context.Context, tx portsrepo.LedgerTx) (err error) {
			adjusted, err = s.accounts.adjust(ctx, tx, userID, accountID, req)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Account balance overridden", slog.String("account_id", accountID), slog.String("balance", adjusted.Balance.String()))
	return adjusted, nil
}

// ListBalanceAdjustments implements portssvc.AccountSvc.
func (s *ledgerService) ListBalanceAdjustments(ctx context.Context, userID string, accountID string) ([]domain.BalanceAdjustment, error) {
	var adjustments []domain.BalanceAdjustment
	err := s.run(ctx, "ListBalanceAdjustments", func(ctx context.Context) error {
		if _, err := s.accounts.findOwned(ctx, s.store, userID, accountID); err != nil {
			return err
		}
		var err error
		adjustments, err = s.store.ListBalanceAdjustments(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return adjustments, nil
}

// DeleteAccount implements portssvc.AccountSvc.
func (s *ledgerService) DeleteAccount(ctx context.Context, userID string, accountID string) error {
	return s.run(ctx, "DeleteAccount", func(ctx context.Context) error {
		return s.inTx(ctx, "DeleteAccount", func(ctx context.Context, tx portsrepo.LedgerTx) error {
			return s.accounts.delete(ctx, tx, userID, accountID)
		})
	})
}

// GetBalance implements portssvc.AccountSvc.
func (s *ledgerService) GetBalance(ctx context.Context, userID string, accountID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.run(ctx, "GetBalance", func(ctx context.Context) error {
		acc, err := s.accounts.findOwned(ctx, s.store, userID, accountID)
		if err != nil {
			return err
		}
		balance = acc.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Reconcile implements portssvc.AccountSvc.
func (s *ledgerService) Reconcile(ctx context.Context, userID string, accountID string) (*domain.Reconciliation, error) {
	var rec *domain.Reconciliation
	err := s.run(ctx, "Reconcile", func(ctx context.Context) error {
		return s.inTx(ctx, "Reconcile", func(ctx context.Context, tx portsrepo.LedgerTx) (err error) {
			rec, err = s.accounts.reconcile(ctx, tx, userID, accountID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if !rec.Consistent() {
		s.GetLogger(ctx).Warn("Account balance drift detected",
			slog.String("account_id", accountID),
			slog.String("drift", rec.Drift.String()))
	}
	return rec, nil
}
