package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in euro cents. Floats only appear at the display and
// export edges and in threshold percentages.
type Money struct {
	Cents int64
}

// Cents builds a Money value.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// MoneyPtr is a helper for optional amounts.
func MoneyPtr(c int64) *Money {
	return &Money{Cents: c}
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o. The result may be negative.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// NonNegative clamps m to zero.
func (m Money) NonNegative() Money {
	if m.Cents < 0 {
		return Money{}
	}
	return m
}

// IsZero reports whether m is exactly zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Euros returns the euro value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// Validate checks that the amount is not negative. Zero is a valid price
// (free items, gifts with no recorded cost).
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValueOr returns *m, or fallback when m is nil.
func ValueOr(m *Money, fallback Money) Money {
	if m == nil {
		return fallback
	}
	return *m
}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Negative values, empty input and
// zero are rejected.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseOptionalAmount parses an amount where zero is acceptable. An empty
// string yields nil, meaning "not recorded".
func ParseOptionalAmount(s string) (*Money, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	cents, err := parseCents(s)
	if err != nil {
		return nil, err
	}
	return &Money{Cents: cents}, nil
}

func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	// Users paste "12,50 €" or "€12.50".
	s = strings.TrimSpace(strings.Trim(s, "€"))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64-1 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}
