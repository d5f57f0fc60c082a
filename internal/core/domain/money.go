package domain

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits money values carry.
const MoneyScale = 2

// ValidateMoney checks that amount is non-negative and carries no more than MoneyScale fractional digits.
func ValidateMoney(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return &FieldError{Field: field, Reason: "must not be negative"}
	}
	if !amount.Equal(amount.Round(MoneyScale)) {
		return &FieldError{Field: field, Reason: "must have at most 2 decimal places"}
	}
	return nil
}
