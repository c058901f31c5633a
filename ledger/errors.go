package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xentac/unrealized/parser"
)

// ValidationErrors bundles every error found while processing a ledger.
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors:\n%s", len(e.Errors), strings.Join(msgs, "\n"))
}

// Unwrap exposes the individual errors to errors.Is/As.
func (e *ValidationErrors) Unwrap() []error {
	return e.Errors
}

// directiveError carries the shared context of a validation error.
type directiveError struct {
	pos       parser.Position
	directive parser.Directive
}

// GetPosition returns where in the source the error was raised.
func (e *directiveError) GetPosition() parser.Position {
	return e.pos
}

// GetDirective returns the directive the error was raised for.
func (e *directiveError) GetDirective() parser.Directive {
	return e.directive
}

func (e *directiveError) prefix() string {
	if e.pos.Filename == "" && e.pos.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d: ", e.pos.Filename, e.pos.Line)
}

// AccountAlreadyOpenError reports a second open for the same account.
type AccountAlreadyOpenError struct {
	directiveError
	Account parser.Account
}

// NewAccountAlreadyOpenError creates an AccountAlreadyOpenError.
func NewAccountAlreadyOpenError(open *parser.Open) *AccountAlreadyOpenError {
	return &AccountAlreadyOpenError{
		directiveError: directiveError{pos: open.Pos, directive: open},
		Account:        open.Account,
	}
}

func (e *AccountAlreadyOpenError) Error() string {
	return fmt.Sprintf("%saccount %s is already open", e.prefix(), e.Account)
}

// GetAccount returns the account involved.
func (e *AccountAlreadyOpenError) GetAccount() parser.Account { return e.Account }

// AccountNotOpenError reports a directive using an account that was never
// opened, or not open yet at the directive's date.
type AccountNotOpenError struct {
	directiveError
	Account parser.Account
	Date    *parser.Date
}

// NewAccountNotOpenError creates an AccountNotOpenError.
func NewAccountNotOpenError(d parser.Directive, account parser.Account, date *parser.Date) *AccountNotOpenError {
	return &AccountNotOpenError{
		directiveError: directiveError{pos: d.Position(), directive: d},
		Account:        account,
		Date:           date,
	}
}

func (e *AccountNotOpenError) Error() string {
	return fmt.Sprintf("%saccount %s is not open on %s", e.prefix(), e.Account, e.Date.Format("2006-01-02"))
}

// GetAccount returns the account involved.
func (e *AccountNotOpenError) GetAccount() parser.Account { return e.Account }

// GetDate returns the date the account was used on.
func (e *AccountNotOpenError) GetDate() *parser.Date { return e.Date }

// AccountClosedError reports use of an account after its close date.
type AccountClosedError struct {
	directiveError
	Account parser.Account
	Date    *parser.Date
}

// NewAccountClosedError creates an AccountClosedError.
func NewAccountClosedError(d parser.Directive, account parser.Account, date *parser.Date) *AccountClosedError {
	return &AccountClosedError{
		directiveError: directiveError{pos: d.Position(), directive: d},
		Account:        account,
		Date:           date,
	}
}

func (e *AccountClosedError) Error() string {
	return fmt.Sprintf("%saccount %s is closed on %s", e.prefix(), e.Account, e.Date.Format("2006-01-02"))
}

// GetAccount returns the account involved.
func (e *AccountClosedError) GetAccount() parser.Account { return e.Account }

// NotBalancedError reports a transaction whose weights do not sum to zero
// within tolerance.
type NotBalancedError struct {
	directiveError
	Residual decimal.Decimal
	Currency string
}

// NewNotBalancedError creates a NotBalancedError.
func NewNotBalancedError(txn *parser.Transaction, residual decimal.Decimal, currency string) *NotBalancedError {
	return &NotBalancedError{
		directiveError: directiveError{pos: txn.Pos, directive: txn},
		Residual:       residual,
		Currency:       currency,
	}
}

func (e *NotBalancedError) Error() string {
	return fmt.Sprintf("%stransaction does not balance: %s %s", e.prefix(), e.Residual, e.Currency)
}

// MultipleMissingAmountsError reports a transaction with more than one
// amountless posting.
type MultipleMissingAmountsError struct {
	directiveError
}

// NewMultipleMissingAmountsError creates a MultipleMissingAmountsError.
func NewMultipleMissingAmountsError(txn *parser.Transaction) *MultipleMissingAmountsError {
	return &MultipleMissingAmountsError{
		directiveError: directiveError{pos: txn.Pos, directive: txn},
	}
}

func (e *MultipleMissingAmountsError) Error() string {
	return fmt.Sprintf("%sonly one posting per transaction may omit its amount", e.prefix())
}

// BookingError reports a reduction that could not be matched to lots.
type BookingError struct {
	directiveError
	Account parser.Account
	Reason  string
}

// NewBookingError creates a BookingError.
func NewBookingError(txn *parser.Transaction, account parser.Account, reason string) *BookingError {
	return &BookingError{
		directiveError: directiveError{pos: txn.Pos, directive: txn},
		Account:        account,
		Reason:         reason,
	}
}

func (e *BookingError) Error() string {
	return fmt.Sprintf("%sbooking failed for %s: %s", e.prefix(), e.Account, e.Reason)
}

// GetAccount returns the account involved.
func (e *BookingError) GetAccount() parser.Account { return e.Account }

// BalanceAssertionError reports a failed balance directive.
type BalanceAssertionError struct {
	directiveError
	Account  parser.Account
	Expected decimal.Decimal
	Actual   decimal.Decimal
	Currency string
}

// NewBalanceAssertionError creates a BalanceAssertionError.
func NewBalanceAssertionError(bal *parser.Balance, expected, actual decimal.Decimal) *BalanceAssertionError {
	return &BalanceAssertionError{
		directiveError: directiveError{pos: bal.Pos, directive: bal},
		Account:        bal.Account,
		Expected:       expected,
		Actual:         actual,
		Currency:       bal.Amount.Currency,
	}
}

func (e *BalanceAssertionError) Error() string {
	return fmt.Sprintf("%sbalance of %s is %s %s, expected %s %s (difference %s)",
		e.prefix(), e.Account, e.Actual, e.Currency, e.Expected, e.Currency, e.Actual.Sub(e.Expected))
}

// GetAccount returns the account involved.
func (e *BalanceAssertionError) GetAccount() parser.Account { return e.Account }

// InvalidAmountError reports an amount that could not be parsed as a
// decimal.
type InvalidAmountError struct {
	directiveError
	Reason string
}

// NewInvalidAmountError creates an InvalidAmountError.
func NewInvalidAmountError(d parser.Directive, reason string) *InvalidAmountError {
	return &InvalidAmountError{
		directiveError: directiveError{pos: d.Position(), directive: d},
		Reason:         reason,
	}
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("%s%s", e.prefix(), e.Reason)
}

// UnknownOptionError reports an option directive with an unrecognized
// name.
type UnknownOptionError struct {
	pos  parser.Position
	Name string
}

// NewUnknownOptionError creates an UnknownOptionError.
func NewUnknownOptionError(opt *parser.Option) *UnknownOptionError {
	return &UnknownOptionError{pos: opt.Pos, Name: opt.Name}
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown option %q", e.Name)
}

// GetPosition returns where the option appears.
func (e *UnknownOptionError) GetPosition() parser.Position { return e.pos }

// InvalidOptionError reports an option with a malformed value.
type InvalidOptionError struct {
	pos    parser.Position
	Name   string
	Reason string
}

// NewInvalidOptionError creates an InvalidOptionError.
func NewInvalidOptionError(opt *parser.Option, reason string) *InvalidOptionError {
	return &InvalidOptionError{pos: opt.Pos, Name: opt.Name, Reason: reason}
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option %q: %s", e.Name, e.Reason)
}

// GetPosition returns where the option appears.
func (e *InvalidOptionError) GetPosition() parser.Position { return e.pos }
