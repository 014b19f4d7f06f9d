package chains

import (
	"fmt"
	"math/big"
	"strings"
)

// ToBaseUnits converts a human-decimal amount string (e.g. "1.5") into the
// integer base-unit representation for a token with the given precision.
// Conversion happens exactly once per operation, at the boundary; fractional
// digits beyond the precision are rejected rather than silently rounded.
func ToBaseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("negative amount: %s", amount)
	}

	whole := amount
	frac := ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	// Pad the fraction out to the full precision and parse the digits as one
	// integer: "1.5" at 6 decimals -> "1" + "500000".
	frac = frac + strings.Repeat("0", int(decimals)-len(frac))
	units, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", amount)
	}
	return units, nil
}

// FromBaseUnits formats an integer base-unit amount back into a human-decimal
// string at the given precision, trimming trailing zeros.
func FromBaseUnits(units *big.Int, decimals uint8) string {
	if units == nil {
		return "0"
	}
	s := units.String()
	if decimals == 0 {
		return s
	}
	if len(s) <= int(decimals) {
		s = strings.Repeat("0", int(decimals)-len(s)+1) + s
	}
	cut := len(s) - int(decimals)
	whole, frac := s[:cut], s[cut:]
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
