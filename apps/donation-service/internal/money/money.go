package money

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the only currency PIX settles in
const Currency = "BRL"

var (
	hundred = decimal.NewFromInt(100)

	ErrInvalidAmount = errors.New("invalid amount")

	// "1.500" and "12.345.678" use dots as thousands separators
	dotThousands = regexp.MustCompile(`^[1-9]\d{0,2}(\.\d{3})+$`)
)

// ToMinor converts a major-unit amount to cents, rounding half up
func ToMinor(major decimal.Decimal) int64 {
	return major.Mul(hundred).Round(0).IntPart()
}

// FromFloat converts a float major amount (as sent by browsers) to cents.
// The float is read through its shortest decimal representation so 55.1 is 5510.
func FromFloat(major float64) int64 {
	return ToMinor(decimal.NewFromFloat(major))
}

// Parse reads "55", "55.00", "55,00" or "1.500" (R$ thousands) into cents.
// More than two fractional digits is an error, never a rounding.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dotThousands.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, s)
	}
	if d.Exponent() < -2 && !d.Equal(d.Truncate(2)) {
		return 0, fmt.Errorf("%w: more than two decimal places in %q", ErrInvalidAmount, s)
	}
	return ToMinor(d), nil
}

// ToMajor converts cents back to a major-unit decimal
func ToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Format renders cents as "R$ 1.234,56"
func Format(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	whole := minor / 100
	cents := minor % 100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), cents)
}
