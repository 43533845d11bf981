// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from form input
// and from loosely-typed storage values, always converting to centavos.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseDecimalToCents converts a decimal string to centavos with half-up rounding.
//
// It accepts dot (12.34) and comma (12,34) decimal separators. When both are
// present the last one is the decimal separator and the other one groups
// thousands, so "1.234,56" and "1,234.56" are both 123456. Zero is allowed;
// negative values and malformed input return ErrInvalidAmount.
//
// Examples:
//
//	ParseDecimalToCents("12.34")    -> 1234, nil
//	ParseDecimalToCents("1.234,56") -> 123456, nil
//	ParseDecimalToCents("12.345")   -> 1235, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	default:
		s = strings.ReplaceAll(s, ",", ".")
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
	if iv >= maxSafeInt64 {
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

// CoerceCents converts a monetary value as returned by storage (float, integer,
// numeric string or raw bytes) into centavos. ok is false when the value is
// missing, cannot be read as a number, is negative or does not fit in int64
// centavos; callers decide whether that is an error or simply zero.
func CoerceCents(v any) (cents int64, ok bool) {
	var d decimal.Decimal
	switch val := v.(type) {
	case nil:
		return 0, false
	case int64:
		d = decimal.NewFromInt(val)
	case int:
		d = decimal.NewFromInt(int64(val))
	case float64:
		if math.IsInf(val, 0) || math.IsNaN(val) {
			return 0, false
		}
		d = decimal.NewFromFloat(val)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		d = parsed
	case []byte:
		return CoerceCents(string(val))
	case json.Number:
		return CoerceCents(val.String())
	case Money:
		if val.Cents < 0 {
			return 0, false
		}
		return val.Cents, true
	default:
		return 0, false
	}
	shifted := d.Shift(2).Round(0)
	if shifted.IsNegative() || shifted.GreaterThan(maxCents) {
		return 0, false
	}
	return shifted.IntPart(), true
}

var maxCents = decimal.NewFromInt(math.MaxInt64)

// Reais returns the value in reais for display and PDF layout.
// Use cents for calculations.
func (m Money) Reais() float64 {
	return float64(m.Cents) / 100.0
}

// Decimal returns the value as a two-decimal numeric string, the format
// written to storage.
func (m Money) Decimal() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}

// Split divides m into n parts that add up exactly to m; the remainder
// centavos go to the first parts.
func (m Money) Split(n int) []Money {
	if n <= 0 {
		return nil
	}
	out := make([]Money, n)
	base := m.Cents / int64(n)
	rem := m.Cents % int64(n)
	for i := range out {
		out[i].Cents = base
		if int64(i) < rem {
			out[i].Cents++
		}
	}
	return out
}
