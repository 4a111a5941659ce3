package validators

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

var (
	ErrAmountInvalid  = errors.New("amount must be a number")
	ErrAmountNegative = errors.New("amount must be bigger than 0")
	ErrAmountTooLarge = errors.New("amount is too large")
	ErrDateInvalid    = errors.New("date must be in YYYY-MM-DD format")
)

// maxAmount is the largest value a numeric(12,2) column can hold.
var maxAmount = decimal.RequireFromString("9999999999.99")

// AmountValidator parses a money amount and rounds it to cents.
func AmountValidator(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrAmountInvalid
	}

	d = d.Round(2)

	if !d.IsPositive() {
		return decimal.Zero, ErrAmountNegative
	}

	if d.GreaterThan(maxAmount) {
		return decimal.Zero, ErrAmountTooLarge
	}

	return d, nil
}

// DateValidator parses a calendar date as UTC midnight.
func DateValidator(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrDateInvalid
	}

	return t, nil
}
