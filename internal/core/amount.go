// Package core holds the domain types and the budget aggregation engine.
//
// This file contains parsing and formatting helpers for monetary amounts.
// Amounts are kept as float64 throughout; two-decimal rounding happens only
// when a value is formatted for display or export.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a decimal string to a positive float64 amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for empty input, signed input, malformed
// numbers, or non-positive values.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if v <= 0 || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// Round2 rounds to two decimals, half away from zero. Display only;
// aggregation keeps full precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatAmount renders an amount with two decimals for UI and export.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(Round2(v), 'f', 2, 64)
}
