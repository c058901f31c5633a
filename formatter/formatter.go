// Package formatter renders directives back to beancount text. Amounts
// are aligned so every currency starts in the same column, matching how
// hand-maintained files are usually kept.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/xentac/unrealized/parser"
)

const dateLayout = "2006-01-02"

// Formatter writes beancount text.
type Formatter struct {
	// CurrencyColumn is the 1-based column currencies are aligned to.
	// Zero means derive it from the widest posting being formatted.
	CurrencyColumn int
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithCurrencyColumn fixes the alignment column instead of deriving it.
func WithCurrencyColumn(column int) Option {
	return func(f *Formatter) { f.CurrencyColumn = column }
}

// New creates a Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format writes a whole file: options, plugins, includes, directives.
func (f *Formatter) Format(ast *parser.AST, w io.Writer) error {
	for _, opt := range ast.Options {
		if _, err := fmt.Fprintf(w, "option %q %q\n", opt.Name, opt.Value); err != nil {
			return err
		}
	}
	for _, plugin := range ast.Plugins {
		line := fmt.Sprintf("plugin %q", plugin.Name)
		if plugin.Config != "" {
			line += fmt.Sprintf(" %q", plugin.Config)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	for _, include := range ast.Includes {
		if _, err := fmt.Fprintf(w, "include %q\n", include.Filename); err != nil {
			return err
		}
	}
	if len(ast.Options)+len(ast.Plugins)+len(ast.Includes) > 0 && len(ast.Directives) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return f.FormatDirectives(ast.Directives, w)
}

// FormatDirectives writes directives separated by blank lines.
func (f *Formatter) FormatDirectives(directives parser.Directives, w io.Writer) error {
	column := f.CurrencyColumn
	if column == 0 {
		column = deriveCurrencyColumn(directives)
	}

	for i, directive := range directives {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := f.formatDirective(directive, column, w); err != nil {
			return err
		}
	}
	return nil
}

// FormatDirective writes a single directive.
func (f *Formatter) FormatDirective(directive parser.Directive, w io.Writer) error {
	column := f.CurrencyColumn
	if column == 0 {
		column = deriveCurrencyColumn(parser.Directives{directive})
	}
	return f.formatDirective(directive, column, w)
}

func (f *Formatter) formatDirective(directive parser.Directive, column int, w io.Writer) error {
	switch d := directive.(type) {
	case *parser.Open:
		line := fmt.Sprintf("%s open %s", d.Date.Format(dateLayout), d.Account)
		if len(d.ConstraintCurrencies) > 0 {
			line += " " + strings.Join(d.ConstraintCurrencies, ",")
		}
		if d.BookingMethod != "" {
			line += fmt.Sprintf(" %q", d.BookingMethod)
		}
		return writeLines(w, line)

	case *parser.Close:
		return writeLines(w, fmt.Sprintf("%s close %s", d.Date.Format(dateLayout), d.Account))

	case *parser.Commodity:
		return writeLines(w, fmt.Sprintf("%s commodity %s", d.Date.Format(dateLayout), d.Currency))

	case *parser.Price:
		return writeLines(w, fmt.Sprintf("%s price %s %s", d.Date.Format(dateLayout), d.Commodity, d.Amount))

	case *parser.Balance:
		return writeLines(w, fmt.Sprintf("%s balance %s %s", d.Date.Format(dateLayout), d.Account, d.Amount))

	case *parser.Note:
		return writeLines(w, fmt.Sprintf("%s note %s %q", d.Date.Format(dateLayout), d.Account, d.Description))

	case *parser.Transaction:
		return f.formatTransaction(d, column, w)
	}

	return fmt.Errorf("cannot format directive %q", directive.Directive())
}

// FormatTransaction writes a transaction with its postings.
func (f *Formatter) FormatTransaction(txn *parser.Transaction, w io.Writer) error {
	column := f.CurrencyColumn
	if column == 0 {
		column = deriveCurrencyColumn(parser.Directives{txn})
	}
	return f.formatTransaction(txn, column, w)
}

func (f *Formatter) formatTransaction(txn *parser.Transaction, column int, w io.Writer) error {
	flag := txn.Flag
	if flag == "" {
		flag = "txn"
	}

	header := fmt.Sprintf("%s %s", txn.Date.Format(dateLayout), flag)
	if txn.Payee != "" {
		header += fmt.Sprintf(" %q", txn.Payee)
	}
	if txn.Narration != "" || txn.Payee != "" {
		header += fmt.Sprintf(" %q", txn.Narration)
	}
	for _, tag := range txn.Tags {
		header += " #" + string(tag)
	}
	for _, link := range txn.Links {
		header += " ^" + string(link)
	}
	if err := writeLines(w, header); err != nil {
		return err
	}

	for _, m := range txn.Metadata {
		if err := writeLines(w, fmt.Sprintf("  %s: %s", m.Key, m.Value)); err != nil {
			return err
		}
	}

	for _, posting := range txn.Postings {
		if err := writeLines(w, formatPosting(posting, column)); err != nil {
			return err
		}
		for _, m := range posting.Metadata {
			if err := writeLines(w, fmt.Sprintf("    %s: %s", m.Key, m.Value)); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeLines(w io.Writer, lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatPosting(posting *parser.Posting, column int) string {
	line := "  "
	if posting.Flag != "" {
		line += posting.Flag + " "
	}
	line += string(posting.Account)

	if posting.Amount == nil {
		return line
	}

	// Pad so the currency lands on the alignment column.
	used := runewidth.StringWidth(line) + runewidth.StringWidth(posting.Amount.Value) + 1
	padding := column - 1 - used
	if padding < 2 {
		padding = 2
	}
	line += strings.Repeat(" ", padding) + posting.Amount.Value + " " + posting.Amount.Currency

	if posting.Cost != nil {
		line += " " + formatCost(posting.Cost)
	}
	if posting.Price != nil {
		marker := "@"
		if posting.PriceTotal {
			marker = "@@"
		}
		line += fmt.Sprintf(" %s %s", marker, posting.Price)
	}
	return line
}

func formatCost(cost *parser.Cost) string {
	open, close := "{", "}"
	if cost.IsTotal {
		open, close = "{{", "}}"
	}

	var parts []string
	if cost.IsMerge {
		parts = append(parts, "*")
	}
	if cost.Amount != nil {
		parts = append(parts, cost.Amount.String())
	}
	if cost.Date != nil {
		parts = append(parts, cost.Date.Format(dateLayout))
	}
	if cost.Label != "" {
		parts = append(parts, fmt.Sprintf("%q", cost.Label))
	}
	return open + strings.Join(parts, ", ") + close
}

// deriveCurrencyColumn finds the column that fits every posting with the
// standard two-space gap.
func deriveCurrencyColumn(directives parser.Directives) int {
	widest := 0
	for _, directive := range directives {
		txn, ok := directive.(*parser.Transaction)
		if !ok {
			continue
		}
		for _, posting := range txn.Postings {
			if posting.Amount == nil {
				continue
			}
			width := 2 + runewidth.StringWidth(string(posting.Account))
			if posting.Flag != "" {
				width += 2
			}
			width += 2 + runewidth.StringWidth(posting.Amount.Value) + 1
			if width > widest {
				widest = width
			}
		}
	}
	return widest + 1
}
