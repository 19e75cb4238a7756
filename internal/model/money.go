package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a major-unit money value as sent to the gateway (e.g. "10.00").
// Decimal arithmetic avoids float rounding on values the buyer approves.
type Amount struct {
	Value    decimal.Decimal
	Currency string
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ParseAmount parses a positive decimal amount with at most two fraction digits.
// Examples: "10" → 10.00, "99.9" → 99.90, "0.01" → 0.01. Rejects "", "0", "-1", "1.005".
func ParseAmount(value, currency string) (Amount, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Amount{}, NewValidationError("amount", "amount is required")
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, NewValidationError("amount", fmt.Sprintf("%q is not a decimal number", value))
	}
	if !d.IsPositive() {
		return Amount{}, NewValidationError("amount", "must be greater than zero")
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return Amount{}, NewValidationError("amount", "at most two decimal places allowed")
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !currencyPattern.MatchString(currency) {
		return Amount{}, NewValidationError("currency_code", "must be an ISO 4217 code")
	}

	return Amount{Value: d.Round(2), Currency: currency}, nil
}

// String formats the amount with two fraction digits, as the gateway expects.
func (a Amount) String() string {
	return a.Value.StringFixed(2)
}

// MinorUnits converts the amount to cents for logging and comparisons.
// Examples: 99.00 → 9900, 1234.56 → 123456
func (a Amount) MinorUnits() int64 {
	return a.Value.Shift(2).Round(0).IntPart()
}
