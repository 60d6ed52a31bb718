package utils

import (
	"errors"
	"math/big"
	"regexp"
	"strings"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+$`)

// ToBaseUnits converts a decimal token amount ("2.50") to base units
// (2500000 at 6 decimals) using pure integer arithmetic, so repeated
// conversions never drift. Negative, non-numeric, and over-precise
// amounts (more fractional digits than the token supports) are rejected.
func ToBaseUnits(amount string, decimals int) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, errors.New("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, errors.New("negative amount")
	}

	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return nil, errors.New("malformed amount")
		}
	}
	if intPart == "" && fracPart == "" {
		return nil, errors.New("malformed amount")
	}
	if intPart == "" {
		intPart = "0"
	}
	if !decimalPattern.MatchString(intPart) {
		return nil, errors.New("malformed amount")
	}
	if fracPart != "" && !decimalPattern.MatchString(fracPart) {
		return nil, errors.New("malformed amount")
	}
	if len(fracPart) > decimals {
		return nil, errors.New("amount precision exceeds token decimals")
	}

	// value = int * 10^decimals + frac * 10^(decimals - len(frac))
	scaled := intPart + fracPart + strings.Repeat("0", decimals-len(fracPart))
	units, ok := new(big.Int).SetString(scaled, 10)
	if !ok {
		return nil, errors.New("malformed amount")
	}
	return units, nil
}

// FormatUnits renders base units as a decimal token amount.
func FormatUnits(units *big.Int, decimals int) string {
	s := units.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	cut := len(s) - decimals
	out := s[:cut] + "." + s[cut:]
	out = strings.TrimRight(out, "0")
	out = strings.TrimSuffix(out, ".")
	if neg {
		out = "-" + out
	}
	return out
}

// UnitsPerToken returns 10^decimals, the base-unit value of one whole
// token.
func UnitsPerToken(decimals int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
