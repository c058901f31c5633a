package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xentac/unrealized/parser"
)

// Options holds the file-level configuration a ledger is processed with.
// Values come from `option` directives layered over beancount defaults.
type Options struct {
	Title string

	// OperatingCurrencies lists the main working currencies, in the order
	// their options appeared.
	OperatingCurrencies []string

	// Root names of the five account categories. Account classification
	// and income mirroring both key off these.
	NameAssets      string
	NameLiabilities string
	NameEquity      string
	NameIncome      string
	NameExpenses    string

	// BookingMethod is the default for accounts opened without one.
	BookingMethod string

	// InferredToleranceMultiplier scales the tolerance inferred from the
	// precision of amounts written in the file.
	InferredToleranceMultiplier decimal.Decimal

	// InferredToleranceDefault overrides inferred tolerances per currency;
	// "*" applies to any currency.
	InferredToleranceDefault map[string]decimal.Decimal
}

// DefaultOptions returns options matching an empty beancount file.
func DefaultOptions() *Options {
	return &Options{
		NameAssets:                  "Assets",
		NameLiabilities:             "Liabilities",
		NameEquity:                  "Equity",
		NameIncome:                  "Income",
		NameExpenses:                "Expenses",
		BookingMethod:               "STRICT",
		InferredToleranceMultiplier: decimal.NewFromFloat(0.5),
		InferredToleranceDefault:    map[string]decimal.Decimal{},
	}
}

// OptionsFromAST overlays the file's option directives on the defaults.
// Unrecognized option names and malformed values are reported as errors;
// processing continues past them.
func OptionsFromAST(ast *parser.AST) (*Options, []error) {
	opts := DefaultOptions()
	var errs []error

	for _, opt := range ast.Options {
		switch opt.Name {
		case "title":
			opts.Title = opt.Value
		case "operating_currency":
			opts.OperatingCurrencies = append(opts.OperatingCurrencies, opt.Value)
		case "name_assets":
			opts.NameAssets = opt.Value
		case "name_liabilities":
			opts.NameLiabilities = opt.Value
		case "name_equity":
			opts.NameEquity = opt.Value
		case "name_income":
			opts.NameIncome = opt.Value
		case "name_expenses":
			opts.NameExpenses = opt.Value
		case "booking_method":
			if _, err := ParseBookingMethod(opt.Value); err != nil {
				errs = append(errs, NewInvalidOptionError(opt, err.Error()))
				continue
			}
			opts.BookingMethod = opt.Value
		case "inferred_tolerance_multiplier":
			mult, err := ParseAmountValue(opt.Value)
			if err != nil {
				errs = append(errs, NewInvalidOptionError(opt, "value must be a number"))
				continue
			}
			opts.InferredToleranceMultiplier = mult
		case "inferred_tolerance_default":
			currency, value, found := strings.Cut(opt.Value, ":")
			if !found {
				errs = append(errs, NewInvalidOptionError(opt, `value must look like "CURRENCY:0.01"`))
				continue
			}
			tol, err := ParseAmountValue(value)
			if err != nil {
				errs = append(errs, NewInvalidOptionError(opt, "tolerance must be a number"))
				continue
			}
			opts.InferredToleranceDefault[currency] = tol
		default:
			errs = append(errs, NewUnknownOptionError(opt))
		}
	}

	return opts, errs
}
