package ledger

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

func TestParseAmountValue(t *testing.T) {
	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{value: "100", want: "100"},
		{value: "100.00", want: "100"},
		{value: "-42.50", want: "-42.5"},
		{value: "+7", want: "7"},
		{value: "0.0001", want: "0.0001"},
		{value: "abc", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			d, err := ParseAmountValue(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestInferTolerance(t *testing.T) {
	t.Run("scale of the most precise amount", func(t *testing.T) {
		opts := DefaultOptions()

		// Two decimal places, default 0.5 multiplier: tolerance 0.005.
		tol := InferTolerance(opts, "USD", "100.00")
		assert.True(t, tol.Equal(decimal.RequireFromString("0.005")), "got %s", tol)

		// The widest scale among the values wins.
		tol = InferTolerance(opts, "USD", "100", "0.123")
		assert.True(t, tol.Equal(decimal.RequireFromString("0.0005")), "got %s", tol)

		// Integer amounts tolerate half a unit.
		tol = InferTolerance(opts, "USD", "100")
		assert.True(t, tol.Equal(decimal.RequireFromString("0.5")), "got %s", tol)
	})

	t.Run("multiplier scales the inferred tolerance", func(t *testing.T) {
		opts := DefaultOptions()
		opts.InferredToleranceMultiplier = decimal.NewFromInt(1)

		tol := InferTolerance(opts, "USD", "100.00")
		assert.True(t, tol.Equal(decimal.RequireFromString("0.01")), "got %s", tol)
	})

	t.Run("per-currency default overrides inference", func(t *testing.T) {
		opts := DefaultOptions()
		opts.InferredToleranceDefault["USD"] = decimal.RequireFromString("0.02")

		tol := InferTolerance(opts, "USD", "100.0000")
		assert.True(t, tol.Equal(decimal.RequireFromString("0.02")), "got %s", tol)

		// Other currencies still infer.
		tol = InferTolerance(opts, "EUR", "100.00")
		assert.True(t, tol.Equal(decimal.RequireFromString("0.005")), "got %s", tol)
	})

	t.Run("wildcard default applies to any currency", func(t *testing.T) {
		opts := DefaultOptions()
		opts.InferredToleranceDefault["*"] = decimal.RequireFromString("0.5")

		tol := InferTolerance(opts, "JPY", "100.0000")
		assert.True(t, tol.Equal(decimal.RequireFromString("0.5")), "got %s", tol)
	})
}

func TestWithinTolerance(t *testing.T) {
	a := decimal.RequireFromString("100.004")
	b := decimal.RequireFromString("100.000")
	tol := decimal.RequireFromString("0.005")

	assert.True(t, WithinTolerance(a, b, tol))
	assert.True(t, WithinTolerance(b, a, tol))

	// The boundary itself is within tolerance.
	assert.True(t, WithinTolerance(decimal.RequireFromString("100.005"), b, tol))
	assert.False(t, WithinTolerance(decimal.RequireFromString("100.006"), b, tol))
}
