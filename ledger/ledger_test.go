package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/xentac/unrealized/parser"
)

func processSource(t *testing.T, source string) (*parser.AST, error) {
	t.Helper()
	ast, err := parser.ParseString(source)
	assert.NoError(t, err)
	return ast, New().Process(context.Background(), ast)
}

func TestProcessValidLedger(t *testing.T) {
	_, err := processSource(t, `
2020-01-01 open Assets:Checking
2020-01-01 open Income:Salary
2020-01-01 open Expenses:Food

2020-01-15 * "Employer" "Salary"
  Assets:Checking  2500.00 USD
  Income:Salary   -2500.00 USD

2020-01-20 * "Groceries"
  Expenses:Food     56.20 USD
  Assets:Checking  -56.20 USD

2020-02-01 balance Assets:Checking 2443.80 USD
`)
	assert.NoError(t, err)
}

func TestProcessInfersMissingAmount(t *testing.T) {
	ast, err := processSource(t, `
2020-01-01 open Assets:Checking
2020-01-01 open Expenses:Food

2020-01-20 * "Groceries"
  Expenses:Food  56.20 USD
  Assets:Checking
`)
	assert.NoError(t, err)

	txn, ok := ast.Directives[2].(*parser.Transaction)
	assert.True(t, ok)
	inferred := txn.Postings[1]
	assert.True(t, inferred.Inferred)
	assert.NotZero(t, inferred.Amount)
	assert.Equal(t, "USD", inferred.Amount.Currency)
	assert.True(t, MustParseAmountValue(inferred.Amount.Value).Equal(MustParseAmountValue("-56.20")),
		"got %s", inferred.Amount.Value)
}

func TestProcessNotBalanced(t *testing.T) {
	_, err := processSource(t, `
2020-01-01 open Assets:Checking
2020-01-01 open Expenses:Food

2020-01-20 * "Groceries"
  Expenses:Food     56.20 USD
  Assets:Checking  -50.00 USD
`)
	var notBalanced *NotBalancedError
	assert.True(t, errors.As(err, &notBalanced), "got %v", err)
}

func TestProcessImbalanceWithinTolerance(t *testing.T) {
	// Residual 0.004 USD, inferred tolerance 0.005 from the two-decimal
	// amounts.
	_, err := processSource(t, `
2020-01-01 open Assets:Checking
2020-01-01 open Expenses:Food

2020-01-20 * "Groceries"
  Expenses:Food     56.20 USD
  Assets:Checking  -56.196 USD
`)
	assert.NoError(t, err)
}

func TestProcessAccountLifecycle(t *testing.T) {
	t.Run("posting to an account that was never opened", func(t *testing.T) {
		_, err := processSource(t, `
2020-01-01 open Assets:Checking

2020-01-20 * "Groceries"
  Expenses:Food     56.20 USD
  Assets:Checking  -56.20 USD
`)
		var notOpen *AccountNotOpenError
		assert.True(t, errors.As(err, &notOpen), "got %v", err)
	})

	t.Run("posting before the open date", func(t *testing.T) {
		_, err := processSource(t, `
2020-02-01 open Assets:Checking
2020-01-01 open Expenses:Food

2020-01-20 * "Groceries"
  Expenses:Food     56.20 USD
  Assets:Checking  -56.20 USD
`)
		var notOpen *AccountNotOpenError
		assert.True(t, errors.As(err, &notOpen), "got %v", err)
	})

	t.Run("posting after the close date", func(t *testing.T) {
		_, err := processSource(t, `
2020-01-01 open Assets:Checking
2020-01-01 open Expenses:Food
2020-01-10 close Assets:Checking

2020-01-20 * "Groceries"
  Expenses:Food     56.20 USD
  Assets:Checking  -56.20 USD
`)
		var closed *AccountClosedError
		assert.True(t, errors.As(err, &closed), "got %v", err)
	})

	t.Run("opening the same account twice", func(t *testing.T) {
		_, err := processSource(t, `
2020-01-01 open Assets:Checking
2020-02-01 open Assets:Checking
`)
		var alreadyOpen *AccountAlreadyOpenError
		assert.True(t, errors.As(err, &alreadyOpen), "got %v", err)
	})

	t.Run("closing an account that was never opened", func(t *testing.T) {
		_, err := processSource(t, `
2020-01-10 close Assets:Checking
`)
		var notOpen *AccountNotOpenError
		assert.True(t, errors.As(err, &notOpen), "got %v", err)
	})
}

func TestProcessMultipleMissingAmounts(t *testing.T) {
	_, err := processSource(t, `
2020-01-01 open Assets:Checking
2020-01-01 open Expenses:Food
2020-01-01 open Expenses:Rent

2020-01-20 * "Split"
  Assets:Checking  -100.00 USD
  Expenses:Food
  Expenses:Rent
`)
	var missing *MultipleMissingAmountsError
	assert.True(t, errors.As(err, &missing), "got %v", err)
}

func TestProcessBalanceAssertion(t *testing.T) {
	_, err := processSource(t, `
2020-01-01 open Assets:Checking
2020-01-01 open Income:Salary

2020-01-15 * "Salary"
  Assets:Checking  2500.00 USD
  Income:Salary   -2500.00 USD

2020-02-01 balance Assets:Checking 3000.00 USD
`)
	var assertion *BalanceAssertionError
	assert.True(t, errors.As(err, &assertion), "got %v", err)
}

func TestProcessBooking(t *testing.T) {
	t.Run("strict rejects selling more than held", func(t *testing.T) {
		_, err := processSource(t, `
2020-01-01 open Assets:Brokerage
2020-01-01 open Assets:Checking
2020-01-01 open Income:Gains

2020-01-10 * "Buy"
  Assets:Brokerage  10 HOOL {100.00 USD}
  Assets:Checking  -1000.00 USD

2020-02-10 * "Sell"
  Assets:Brokerage  -20 HOOL {100.00 USD}
  Assets:Checking   2000.00 USD
`)
		var booking *BookingError
		assert.True(t, errors.As(err, &booking), "got %v", err)
	})

	t.Run("strict rejects an ambiguous empty spec", func(t *testing.T) {
		_, err := processSource(t, `
2020-01-01 open Assets:Brokerage
2020-01-01 open Assets:Checking

2020-01-10 * "Buy twice"
  Assets:Brokerage  10 HOOL {100.00 USD}
  Assets:Brokerage  10 HOOL {110.00 USD}
  Assets:Checking  -2100.00 USD

2020-02-10 * "Sell"
  Assets:Brokerage  -5 HOOL {}
  Assets:Checking    525.00 USD
`)
		// The empty spec weighs at the average cost but books against
		// two candidate lots.
		var booking *BookingError
		assert.True(t, errors.As(err, &booking), "got %v", err)
	})

	t.Run("none accepts a reduction against an unknown basis", func(t *testing.T) {
		_, err := processSource(t, `
2020-01-01 open Assets:Brokerage "NONE"
2020-01-01 open Assets:Checking

2020-02-10 * "Sell short"
  Assets:Brokerage  -10 HOOL {100.00 USD}
  Assets:Checking   1000.00 USD
`)
		assert.NoError(t, err)
	})

	t.Run("empty spec weighs at the account average", func(t *testing.T) {
		_, err := processSource(t, `
2020-01-01 open Assets:Brokerage "AVERAGE"
2020-01-01 open Assets:Checking
2020-01-01 open Income:Gains

2020-01-10 * "Buy"
  Assets:Brokerage  10 HOOL {100.00 USD}
  Assets:Checking  -1000.00 USD

2020-02-10 * "Sell at cost"
  Assets:Brokerage  -4 HOOL {}
  Assets:Checking    400.00 USD
`)
		assert.NoError(t, err)
	})
}

func TestProcessCollectsAllErrors(t *testing.T) {
	_, err := processSource(t, `
2020-01-01 open Assets:Checking
2020-02-01 open Assets:Checking

2020-01-20 * "Groceries"
  Expenses:Food     56.20 USD
  Assets:Checking  -50.00 USD
`)
	var validation *ValidationErrors
	assert.True(t, errors.As(err, &validation), "got %v", err)
	assert.True(t, len(validation.Errors) >= 2, "got %d errors", len(validation.Errors))
}
