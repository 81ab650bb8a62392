// Package domain defines the banking simulation entities and the pure
// computations (rates, amortization, game clock, totals) built on them.
package domain

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

// NormalizeRate converts a backend-reported rate into a fraction.
// Values above 1 are treated as percentages. Non-finite input yields 0.
// The result never exceeds 1, which keeps the conversion idempotent.
// The backend does not clamp: it divides once, so 150 becomes 1.5 there and 1 here.
func NormalizeRate(raw float64) float64 {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	if raw > 1 {
		raw = raw / 100
	}
	if raw > 1 {
		return 1
	}
	return raw
}

// NormalizeRatePtr normalizes a nullable rate; nil is 0.
func NormalizeRatePtr(raw *float64) float64 {
	if raw == nil {
		return 0
	}
	return NormalizeRate(*raw)
}

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// FormatMoney renders an amount with exactly two fraction digits and no
// currency symbol. This is the canonical textual form of money.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(moneyPlaces)
}

// ParseMoney parses a money string, tolerating a leading "$" and thousands
// separators. The result is rounded to cents.
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid amount %q", s)
	}
	return Round2(d), nil
}

// MaxZero returns d, or zero when d is negative.
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
