package accounting

import (
	"fmt"
	"sort"

	"github.com/SscSPs/ledger_core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SumSignedAmounts totals the balance effect of the given transactions.
func SumSignedAmounts(transactions []domain.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, txn := range transactions {
		sum = sum.Add(txn.SignedAmount())
	}
	return sum
}

// TotalsByCurrency sums account balances per currency, ordered by currency code.
func TotalsByCurrency(accounts []domain.Account) []domain.CurrencyTotal {
	byCode := make(map[string]*domain.CurrencyTotal)
	for _, acc := range accounts {
		total, ok := byCode[acc.CurrencyCode]
		if !ok {
			total = &domain.CurrencyTotal{CurrencyCode: acc.CurrencyCode, Total: decimal.Zero}
			byCode[acc.CurrencyCode] = total
		}
		total.Total = total.Total.Add(acc.Balance)
		total.AccountCount++
	}
	totals := make([]domain.CurrencyTotal, 0, len(byCode))
	for _, total := range byCode {
		totals = append(totals, *total)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].CurrencyCode < totals[j].CurrencyCode })
	return totals
}

// ValidateShares checks that every share is positive and that the shares add up
// to total exactly. fraction is the number of decimal places of the currency.
func ValidateShares(total decimal.Decimal, shares []decimal.Decimal, fraction int32) error {
	if len(shares) == 0 {
		return fmt.Errorf("at least one share is required")
	}
	sum := decimal.Zero
	for i, share := range shares {
		if !share.IsPositive() {
			return fmt.Errorf("share %d must be positive", i)
		}
		if !share.Equal(share.Truncate(fraction)) {
			return fmt.Errorf("share %d has more than %d decimal places", i, fraction)
		}
		sum = sum.Add(share)
	}
	if !sum.Equal(total) {
		return fmt.Errorf("shares sum to %s, expected %s", sum.String(), total.String())
	}
	return nil
}

// SplitEvenly divides total into n shares in the currency's minor unit.
// The rounding remainder is added to the first share so the shares always
// sum to total exactly.
func SplitEvenly(total decimal.Decimal, n int, fraction int32) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, fmt.Errorf("cannot split between %d participants", n)
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("total must be positive")
	}
	if !total.Equal(total.Truncate(fraction)) {
		return nil, fmt.Errorf("total has more than %d decimal places", fraction)
	}
	units := total.Shift(fraction).IntPart()
	per := units / int64(n)
	if per == 0 {
		return nil, fmt.Errorf("total %s is too small to split between %d participants", total, n)
	}
	remainder := units - per*int64(n)

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		u := per
		if i == 0 {
			u += remainder
		}
		shares[i] = decimal.New(u, -fraction)
	}
	return shares, nil
}
