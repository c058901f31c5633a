// Package ledger processes a parsed directive stream: it resolves file
// options, tracks account lifetimes and inventories, records prices, and
// validates that transactions balance and book cleanly against held lots.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xentac/unrealized/parser"
	"github.com/xentac/unrealized/telemetry"
)

// Ledger validates a directive stream.
type Ledger struct{}

// New creates a Ledger.
func New() *Ledger {
	return &Ledger{}
}

// accountState is the runtime state of one account during processing.
type accountState struct {
	open      *parser.Open
	close     *parser.Close
	booking   BookingMethod
	inventory *Inventory
}

// Process validates the AST's directives in order. The directives must
// already be date-sorted (the parser guarantees this). All findings are
// returned together as a *ValidationErrors.
//
// Processing mutates at most one thing in the AST: a posting written
// without an amount has its amount filled in from the transaction
// residual, with Inferred set.
func (l *Ledger) Process(ctx context.Context, ast *parser.AST) error {
	defer telemetry.FromContext(ctx).Start("process ledger").End()

	opts, errs := OptionsFromAST(ast)

	accounts := make(map[parser.Account]*accountState)
	prices := NewPriceGraph()

	for _, directive := range ast.Directives {
		switch d := directive.(type) {
		case *parser.Open:
			if _, ok := accounts[d.Account]; ok {
				errs = append(errs, NewAccountAlreadyOpenError(d))
				continue
			}
			method, err := ParseBookingMethod(d.BookingMethod)
			if err != nil {
				method, _ = ParseBookingMethod(opts.BookingMethod)
				errs = append(errs, fmt.Errorf("%s: %s: %w", d.Pos, d.Account, err))
			}
			if d.BookingMethod == "" {
				method, _ = ParseBookingMethod(opts.BookingMethod)
			}
			accounts[d.Account] = &accountState{
				open:      d,
				booking:   method,
				inventory: NewInventory(),
			}

		case *parser.Close:
			state, ok := accounts[d.Account]
			if !ok {
				errs = append(errs, NewAccountNotOpenError(d, d.Account, d.Date))
				continue
			}
			state.close = d

		case *parser.Price:
			if err := prices.AddPriceDirective(d); err != nil {
				errs = append(errs, NewInvalidAmountError(d, err.Error()))
			}

		case *parser.Balance:
			if err := l.checkAccountUsable(accounts, d, d.Account, d.Date); err != nil {
				errs = append(errs, err)
				continue
			}
			expected, err := ParseAmount(d.Amount)
			if err != nil {
				errs = append(errs, NewInvalidAmountError(d, err.Error()))
				continue
			}
			actual := accounts[d.Account].inventory.Get(d.Amount.Currency)
			tol := InferTolerance(opts, d.Amount.Currency, d.Amount.Value)
			if !WithinTolerance(actual, expected, tol) {
				errs = append(errs, NewBalanceAssertionError(d, expected, actual))
			}

		case *parser.Note:
			if err := l.checkAccountUsable(accounts, d, d.Account, d.Date); err != nil {
				errs = append(errs, err)
			}

		case *parser.Transaction:
			errs = append(errs, l.processTransaction(opts, accounts, d)...)
		}
	}

	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

// checkAccountUsable verifies the account is open on the given date.
func (l *Ledger) checkAccountUsable(accounts map[parser.Account]*accountState, d parser.Directive, account parser.Account, date *parser.Date) error {
	state, ok := accounts[account]
	if !ok || state.open.Date.After(date.Time) {
		return NewAccountNotOpenError(d, account, date)
	}
	if state.close != nil && state.close.Date.Before(date.Time) {
		return NewAccountClosedError(d, account, date)
	}
	return nil
}

// processTransaction validates one transaction and books its postings.
func (l *Ledger) processTransaction(opts *Options, accounts map[parser.Account]*accountState, txn *parser.Transaction) []error {
	var errs []error

	for _, posting := range txn.Postings {
		if err := l.checkAccountUsable(accounts, txn, posting.Account, txn.Date); err != nil {
			errs = append(errs, err)
		}
	}

	var inferred *parser.Posting
	for _, posting := range txn.Postings {
		if posting.Amount != nil {
			continue
		}
		if inferred != nil {
			return append(errs, NewMultipleMissingAmountsError(txn))
		}
		inferred = posting
	}

	residuals := make(map[string]decimal.Decimal)
	precisions := make(map[string][]string)
	var currencyOrder []string

	for _, posting := range txn.Postings {
		if posting.Amount == nil {
			continue
		}
		weight, err := l.postingWeight(accounts, posting)
		if err != nil {
			errs = append(errs, NewInvalidAmountError(txn, err.Error()))
			continue
		}
		if _, ok := residuals[weight.Currency]; !ok {
			currencyOrder = append(currencyOrder, weight.Currency)
		}
		residuals[weight.Currency] = residuals[weight.Currency].Add(weight.Value)
		precisions[weight.Currency] = append(precisions[weight.Currency], posting.Amount.Value)
	}

	if inferred != nil {
		var nonZero []string
		for _, currency := range currencyOrder {
			if !residuals[currency].IsZero() {
				nonZero = append(nonZero, currency)
			}
		}
		if len(nonZero) != 1 {
			errs = append(errs, fmt.Errorf("%s: cannot infer amount for %s", txn.Pos, inferred.Account))
			return errs
		}
		currency := nonZero[0]
		value := residuals[currency].Neg()
		inferred.Amount = parser.NewAmount(value.String(), currency)
		inferred.Inferred = true
		residuals[currency] = decimal.Decimal{}
	}

	for _, currency := range currencyOrder {
		tol := InferTolerance(opts, currency, precisions[currency]...)
		if !WithinTolerance(residuals[currency], decimal.Decimal{}, tol) {
			errs = append(errs, NewNotBalancedError(txn, residuals[currency], currency))
		}
	}

	for _, posting := range txn.Postings {
		if err := l.bookPosting(accounts, txn, posting); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// postingWeight is PostingWeight plus handling for reductions with an
// empty cost spec, which are weighted at the position's average cost.
func (l *Ledger) postingWeight(accounts map[parser.Account]*accountState, posting *parser.Posting) (Weight, error) {
	if posting.Cost == nil || posting.Cost.Amount != nil {
		return PostingWeight(posting)
	}

	units, err := ParseAmount(posting.Amount)
	if err != nil {
		return Weight{}, err
	}

	state, ok := accounts[posting.Account]
	if !ok {
		return Weight{}, fmt.Errorf("cannot price empty cost spec for unopened account %s", posting.Account)
	}

	total := decimal.Decimal{}
	book := decimal.Decimal{}
	currency := ""
	for _, lot := range state.inventory.Lots() {
		if lot.Currency != posting.Amount.Currency || !lot.AtCost() {
			continue
		}
		total = total.Add(lot.Units)
		book = book.Add(lot.BookValue())
		currency = lot.CostCurrency
	}
	if total.IsZero() {
		return Weight{}, fmt.Errorf("no lots of %s held in %s to price empty cost spec", posting.Amount.Currency, posting.Account)
	}
	return Weight{Value: units.Mul(book.Div(total)), Currency: currency}, nil
}

// bookPosting applies a posting to its account inventory.
func (l *Ledger) bookPosting(accounts map[parser.Account]*accountState, txn *parser.Transaction, posting *parser.Posting) error {
	state, ok := accounts[posting.Account]
	if !ok || posting.Amount == nil {
		// Already reported.
		return nil
	}

	units, err := ParseAmount(posting.Amount)
	if err != nil {
		return nil
	}

	if posting.Cost == nil {
		state.inventory.Add(&Lot{Units: units, Currency: posting.Amount.Currency})
		return nil
	}

	costDate := posting.Cost.Date
	if costDate == nil {
		costDate = txn.Date
	}

	var perUnit *decimal.Decimal
	costCurrency := ""
	if posting.Cost.Amount != nil {
		cost, err := ParseAmount(posting.Cost.Amount)
		if err != nil {
			return NewInvalidAmountError(txn, err.Error())
		}
		if posting.Cost.IsTotal && !units.IsZero() {
			cost = cost.Div(units.Abs())
		}
		perUnit = &cost
		costCurrency = posting.Cost.Amount.Currency
	}

	if units.IsPositive() || units.IsZero() {
		if perUnit == nil {
			return NewBookingError(txn, posting.Account, "cost spec on an augmentation must carry an amount")
		}
		state.inventory.Add(&Lot{
			Units:        units,
			Currency:     posting.Amount.Currency,
			Cost:         perUnit,
			CostCurrency: costCurrency,
			CostDate:     costDate,
			Label:        posting.Cost.Label,
		})
		return nil
	}

	spec := ReduceSpec{
		Currency:     posting.Amount.Currency,
		Cost:         perUnit,
		CostCurrency: costCurrency,
		CostDate:     posting.Cost.Date,
		Label:        posting.Cost.Label,
		AnyLot:       posting.Cost.IsEmpty() || posting.Cost.IsMerge,
	}
	if err := state.inventory.Reduce(state.booking, units.Neg(), spec); err != nil {
		return NewBookingError(txn, posting.Account, err.Error())
	}
	return nil
}
