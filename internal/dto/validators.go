package dto

import (
	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/SscSPs/ledger_core/internal/utils/money"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the ledger's custom binding rules on v.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("account_type", func(fl validator.FieldLevel) bool {
		return domain.AccountType(fl.Field().String()).IsValid()
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("direction", func(fl validator.FieldLevel) bool {
		return domain.Direction(fl.Field().String()).IsValid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		_, err := money.Currency(fl.Field().String())
		return err == nil
	})
}
