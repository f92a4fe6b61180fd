// Package money resolves currency metadata and checks that decimal amounts
// fit a currency's smallest unit.
package money

import (
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency looks up an ISO 4217 currency by code (case-insensitive).
func Currency(code string) (*gomoney.Currency, error) {
	cur := gomoney.GetCurrency(strings.ToUpper(strings.TrimSpace(code)))
	if cur == nil {
		return nil, fmt.Errorf("unknown currency code %q", code)
	}
	return cur, nil
}

// NormalizeCode returns the canonical upper-case code, or an error if unknown.
func NormalizeCode(code string) (string, error) {
	cur, err := Currency(code)
	if err != nil {
		return "", err
	}
	return cur.Code, nil
}

// Fraction is the number of decimal places of the currency's minor unit.
func Fraction(code string) (int32, error) {
	cur, err := Currency(code)
	if err != nil {
		return 0, err
	}
	return int32(cur.Fraction), nil
}

// CheckPrecision fails when amount has more decimal places than the currency allows.
func CheckPrecision(amount decimal.Decimal, code string) error {
	fraction, err := Fraction(code)
	if err != nil {
		return err
	}
	if !amount.Equal(amount.Truncate(fraction)) {
		return fmt.Errorf("amount %s has more than %d decimal places allowed by %s", amount, fraction, code)
	}
	return nil
}

// ToMinorUnits converts amount to an integer count of the currency's minor unit.
func ToMinorUnits(amount decimal.Decimal, code string) (int64, error) {
	if err := CheckPrecision(amount, code); err != nil {
		return 0, err
	}
	fraction, _ := Fraction(code)
	return amount.Shift(fraction).IntPart(), nil
}

// Format renders amount with the currency's symbol and separators, e.g. "$1,234.50".
// Unknown currencies fall back to the plain decimal string.
func Format(amount decimal.Decimal, code string) string {
	units, err := ToMinorUnits(amount.RoundBank(mustFraction(code)), code)
	if err != nil {
		return amount.String()
	}
	cur, _ := Currency(code)
	return gomoney.New(units, cur.Code).Display()
}

func mustFraction(code string) int32 {
	f, err := Fraction(code)
	if err != nil {
		return 0
	}
	return f
}
