// Package codec converts between decimal string amounts and the fixed-point
// integers the on-chain program expects, and derives the deterministic
// program accounts for a token/campaign pair.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SolDecimals is the fixed-point exponent used for all monetary and token
// amounts submitted on chain.
const SolDecimals = 9

// ErrInvalidAmount is returned when a decimal string cannot be converted to
// a fixed-point integer.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a decimal string to a fixed-point integer scaled by
// 10^decimals. The fractional part is right-padded with zeros and truncated
// to the decimal count; any non-digit character after normalization fails
// with ErrInvalidAmount.
func ParseAmount(amount string, decimals int) (uint64, error) {
	whole, fraction, _ := strings.Cut(amount, ".")
	if whole+fraction == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	normalized := fraction + strings.Repeat("0", decimals)
	normalized = normalized[:decimals]

	raw := whole + normalized
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
		}
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return v, nil
}

// FormatAmount converts a fixed-point integer scaled by 10^decimals back to
// a decimal string, trimming trailing zeros from the fractional part.
func FormatAmount(raw uint64, decimals int) string {
	s := strconv.FormatUint(raw, 10)
	if decimals == 0 {
		return s
	}

	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	cut := len(s) - decimals
	whole, fraction := s[:cut], s[cut:]
	fraction = strings.TrimRight(fraction, "0")
	if fraction == "" {
		return whole
	}
	return whole + "." + fraction
}
