// Package moneypkg provides common money amount related functionality for apps.
package moneypkg

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places money amounts are kept with.
const Scale = 2

var (
	// ErrInvalidAmount indicates an amount that is not a decimal number with at most two decimals.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNonPositiveAmount indicates zero or negative amount.
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// ParseAmount parses a positive money amount with at most two decimals.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}

	return Validate(d)
}

// Validate checks that d is a positive amount with at most two decimals.
func Validate(d decimal.Decimal) (decimal.Decimal, error) {
	if !d.Equal(d.Truncate(Scale)) {
		return decimal.Zero, ErrInvalidAmount
	}

	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrNonPositiveAmount
	}

	return d, nil
}

// Canonical returns the fixed two decimals representation of d.
//
// Amounts that compare equal always produce the same string, so it is safe to hash.
func Canonical(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
