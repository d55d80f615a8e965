package common

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/seashail/seashail/internal/policy"
)

// Decimal places of the smallest unit of each asset the wallet reads
// balances of.
const (
	SOLDecimals  = 9
	USDCDecimals = 6
	BTCDecimals  = 8
)

var errAmountOverflow = errors.New("amount overflows 64 bits")

// FormatUnits renders an integer amount of smallest units as a decimal
// string with exactly decimals fractional digits.  FormatUnits(24981836, 9)
// is "0.024981836".
func FormatUnits(value uint64, decimals int) string {
	digits := fmt.Sprintf("%0*d", decimals+1, value)
	if decimals == 0 {
		return digits
	}
	cut := len(digits) - decimals
	return digits[:cut] + "." + digits[cut:]
}

// ParseUnits parses a non-negative decimal string into smallest units.
// Fractional digits beyond decimals are truncated, never rounded.
func ParseUnits(s string, decimals int) (uint64, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasPoint := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if hasPoint && frac == "" {
		return 0, fmt.Errorf("invalid amount %q: no digits after the point", s)
	}
	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	var n uint64
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		hi, lo := bits.Mul64(n, 10)
		if hi != 0 {
			return 0, errAmountOverflow
		}
		sum, carry := bits.Add64(lo, uint64(r-'0'), 0)
		if carry != 0 {
			return 0, errAmountOverflow
		}
		n = sum
	}
	return n, nil
}

// UnitsToFloat converts smallest units to a float for display and
// valuation only.  Amounts that are signed or compared must stay integers.
func UnitsToFloat(value uint64, decimals int) float64 {
	return float64(value) / math.Pow10(decimals)
}

// Pricer returns the USD price of one native unit on a chain.
type Pricer interface {
	NativeUSDPrice(ctx context.Context, chain policy.Chain) (float64, error)
}

// NativeToUSD values a native amount.  known is false when no price could
// be obtained; callers must not read a zero value as "worth nothing".
func NativeToUSD(ctx context.Context, p Pricer, chain policy.Chain, amount float64) (usd float64, known bool) {
	if p == nil || amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, false
	}
	price, err := p.NativeUSDPrice(ctx, chain)
	if err != nil {
		return 0, false
	}
	return amount * price, true
}
