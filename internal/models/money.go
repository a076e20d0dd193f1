package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a signed decimal amount. Thousand separators (spaces,
// apostrophes) and a leading currency symbol are tolerated, a comma is read
// as the decimal separator.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	amount := strings.TrimSpace(amountStr)
	amount = strings.TrimLeft(amount, "$€£")
	amount = strings.ReplaceAll(amount, " ", "")
	amount = strings.ReplaceAll(amount, "'", "")
	amount = strings.ReplaceAll(amount, ",", ".")
	if amount == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount string '%s': %w", amountStr, err)
	}
	return dec, nil
}

// RoundUpCents rounds a positive amount up to the next cent.
func RoundUpCents(d decimal.Decimal) decimal.Decimal {
	return d.RoundCeil(2)
}

// Cents rounds an amount half away from zero to two decimal places.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SumSpend totals the spend of every expense in txns.
func SumSpend(txns []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txns {
		total = total.Add(tx.Spend())
	}
	return total
}

// SumAmounts totals the signed amounts of txns.
func SumAmounts(txns []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txns {
		total = total.Add(tx.Amount)
	}
	return total
}

// FormatMoney renders an amount with two decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
