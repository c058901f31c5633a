package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xentac/unrealized/parser"
)

// ParseAmountValue converts an amount's exact source spelling to a
// decimal. Amounts never pass through floats.
func ParseAmountValue(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return d, nil
}

// ParseAmount converts a parsed amount to its decimal value.
func ParseAmount(amount *parser.Amount) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Decimal{}, fmt.Errorf("missing amount")
	}
	return ParseAmountValue(amount.Value)
}

// MustParseAmountValue is ParseAmountValue for literals known to be valid.
func MustParseAmountValue(value string) decimal.Decimal {
	d, err := ParseAmountValue(value)
	if err != nil {
		panic(err)
	}
	return d
}

// valueScale returns the number of fractional digits in an amount's
// source spelling.
func valueScale(value string) int {
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		return len(value) - idx - 1
	}
	return 0
}

// InferTolerance derives the comparison tolerance for a currency from the
// most precise amount written for it: half the last written digit, scaled
// by the configured multiplier. An explicit per-currency (or wildcard)
// default takes precedence.
func InferTolerance(opts *Options, currency string, values ...string) decimal.Decimal {
	if tol, ok := opts.InferredToleranceDefault[currency]; ok {
		return tol
	}
	if tol, ok := opts.InferredToleranceDefault["*"]; ok {
		return tol
	}

	maxScale := 0
	for _, value := range values {
		if s := valueScale(value); s > maxScale {
			maxScale = s
		}
	}

	// One unit of the last written digit, halved by the default 0.5
	// multiplier.
	unit := decimal.New(1, int32(-maxScale))
	return unit.Mul(opts.InferredToleranceMultiplier)
}

// WithinTolerance reports whether the difference between two decimals is
// at most tol.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().Cmp(tol) <= 0
}
