// Package unrealized inserts periodic unrealized gain/loss transactions
// into a beancount directive stream.
//
// Positions held at cost are valued at the end of every calendar month
// against the latest known price of the commodity in its cost currency.
// Whenever the unrealized adjustment of a position changes, a balanced
// transaction is synthesized that books the new adjustment against a
// mirrored account under the income root and reverses the previous one.
// Synthesized transactions carry the #unrealized tag.
package unrealized

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/xentac/unrealized/ledger"
	"github.com/xentac/unrealized/parser"
	"github.com/xentac/unrealized/telemetry"
)

// Tag marks every synthesized transaction.
const Tag parser.Tag = "unrealized"

// AddUnrealizedGains returns a copy of directives augmented with
// unrealized gain/loss transactions and open directives for any accounts
// those transactions introduce. The input slice is not modified.
//
// When subaccount is non-empty, adjustments are booked on
// account:subaccount and its income mirror instead of the accounts
// themselves. An invalid subaccount yields a single *Error and the input
// unchanged.
func AddUnrealizedGains(ctx context.Context, directives parser.Directives, opts *ledger.Options, subaccount string) (parser.Directives, []error) {
	defer telemetry.FromContext(ctx).Start("unrealized gains").End()

	if subaccount != "" && !parser.IsValidAccountSegment(subaccount) {
		return directives, []error{NewSubaccountError(subaccount)}
	}
	if opts == nil {
		opts = ledger.DefaultOptions()
	}
	if len(directives) == 0 {
		return directives, nil
	}

	sorted := make(parser.Directives, len(directives))
	copy(sorted, directives)
	parser.SortDirectives(sorted)

	run := &gainsRun{
		opts:        opts,
		subaccount:  subaccount,
		tracker:     newPositionTracker(),
		prices:      ledger.NewPriceGraph(),
		adjustments: make(map[positionKey]decimal.Decimal),
	}

	currentMonth := monthOf(parser.DirectiveDate(sorted[0]))
	for _, directive := range sorted {
		if m := monthOf(parser.DirectiveDate(directive)); m != currentMonth {
			run.evaluate(endOfMonth(currentMonth))
			currentMonth = m
		}

		switch d := directive.(type) {
		case *parser.Transaction:
			run.tracker.apply(d)
		case *parser.Price:
			// Malformed price values are the validator's concern.
			_ = run.prices.AddPriceDirective(d)
		}
	}
	run.evaluate(endOfMonth(currentMonth))

	if len(run.synthesized) == 0 {
		return directives, nil
	}

	out := make(parser.Directives, 0, len(sorted)+len(run.synthesized)+4)
	out = append(out, sorted...)
	out = append(out, synthesizeOpens(sorted, run.synthesized)...)
	for _, txn := range run.synthesized {
		out = append(out, txn)
	}
	parser.SortDirectives(out)

	return out, nil
}

// GetUnrealizedEntries returns the transactions synthesized by
// AddUnrealizedGains, in order.
func GetUnrealizedEntries(directives parser.Directives) parser.Directives {
	var entries parser.Directives
	for _, directive := range directives {
		if txn, ok := directive.(*parser.Transaction); ok && txn.HasTag(Tag) {
			entries = append(entries, txn)
		}
	}
	return entries
}

// gainsRun is the state of one AddUnrealizedGains invocation.
type gainsRun struct {
	opts       *ledger.Options
	subaccount string

	tracker     *positionTracker
	prices      *ledger.PriceGraph
	adjustments map[positionKey]decimal.Decimal

	synthesized []*parser.Transaction
}

// emission is one pending adjustment transaction.
type emission struct {
	key  positionKey
	date time.Time
	txn  *parser.Transaction
}

// evaluate values every tracked position as of asOf (a month end) and
// synthesizes transactions for the adjustments that changed.
func (r *gainsRun) evaluate(asOf time.Time) {
	var emissions []emission

	for _, key := range r.tracker.sortedKeys() {
		pos := r.tracker.positions[key]
		old := r.adjustments[key]

		var newAdj decimal.Decimal
		var price decimal.Decimal
		havePrice := false

		if pos.units.IsZero() {
			if old.IsZero() {
				// Nothing booked and nothing held. A leftover cost basis
				// from unmatched reductions is dropped without comment.
				r.tracker.drop(key)
				continue
			}
		} else {
			price, havePrice = r.prices.LookupPrice(key.commodity, key.currency, asOf)
			if !havePrice {
				// Held but never priced; keep waiting.
				continue
			}
			newAdj = pos.units.Mul(price).Sub(pos.book)
		}

		delta := newAdj.Sub(old)
		if delta.IsZero() {
			continue
		}

		date := r.entryDate(key, pos, asOf)
		txn := r.buildTransaction(key, pos, date, old, newAdj, price, havePrice)
		emissions = append(emissions, emission{key: key, date: date, txn: txn})

		if pos.units.IsZero() {
			r.tracker.drop(key)
			delete(r.adjustments, key)
		} else {
			r.adjustments[key] = newAdj
		}
	}

	slices.SortStableFunc(emissions, func(a, b emission) int {
		if a.date.Before(b.date) {
			return -1
		}
		if a.date.After(b.date) {
			return 1
		}
		return compareKeys(a.key, b.key)
	})
	for _, e := range emissions {
		r.synthesized = append(r.synthesized, e.txn)
	}
}

// entryDate picks the date of a synthesized transaction: the latest event
// that could have moved the adjustment, a price or a position change.
func (r *gainsRun) entryDate(key positionKey, pos *position, asOf time.Time) time.Time {
	date := pos.lastTxn
	if priceDate, ok := r.prices.LatestPriceDate(key.commodity, key.currency, asOf); ok && priceDate.After(date) {
		date = priceDate
	}
	return date
}

// buildTransaction assembles the adjustment transaction for one position.
//
// The first adjustment books the new amount against the income mirror.
// Later adjustments book the new amount in full and reverse the previous
// one, with the income leg as the balancing remainder. A liquidated
// position gets a pure reversal.
func (r *gainsRun) buildTransaction(key positionKey, pos *position, date time.Time, old, newAdj, price decimal.Decimal, havePrice bool) *parser.Transaction {
	target := key.account
	if r.subaccount != "" {
		target = ledger.JoinAccount(string(key.account), r.subaccount)
	}
	income := ledger.JoinAccount(r.opts.NameIncome, ledger.AccountLeaf(key.account), r.subaccount)

	var postings []*parser.Posting
	switch {
	case old.IsZero():
		postings = []*parser.Posting{
			plainPosting(target, newAdj, key.currency),
			plainPosting(income, newAdj.Neg(), key.currency),
		}
	case pos.units.IsZero():
		postings = []*parser.Posting{
			plainPosting(target, old.Neg(), key.currency),
			plainPosting(income, old, key.currency),
		}
	default:
		postings = []*parser.Posting{
			plainPosting(target, newAdj, key.currency),
			plainPosting(income, old.Sub(newAdj), key.currency),
			plainPosting(target, old.Neg(), key.currency),
		}
	}

	return parser.NewTransaction(parser.NewDateFromTime(date),
		parser.WithFlag("*"),
		parser.WithNarration(r.narration(key, pos, old, newAdj, price, havePrice, date)),
		parser.WithTags(Tag),
		parser.WithPostings(postings...),
	)
}

func (r *gainsRun) narration(key positionKey, pos *position, old, newAdj, price decimal.Decimal, havePrice bool, date time.Time) string {
	word := "gain"
	if newAdj.Sub(old).IsNegative() {
		word = "loss"
	}

	if pos.units.IsZero() || !havePrice {
		return fmt.Sprintf("Unrealized %s for %s units of %s", word, pos.units, key.commodity)
	}

	average := pos.book.Div(pos.units)
	return fmt.Sprintf("Unrealized %s for %s units of %s (price: %s %s as of %s, average cost: %s %s)",
		word, pos.units, key.commodity,
		price.StringFixed(4), key.currency, date.Format("2006-01-02"),
		average.StringFixed(4), key.currency)
}

func plainPosting(account parser.Account, value decimal.Decimal, currency string) *parser.Posting {
	return parser.NewPosting(account,
		parser.WithAmount(parser.NewAmount(value.String(), currency)),
	)
}

// synthesizeOpens creates open directives for accounts the synthesized
// transactions post to that the input never opens. They are dated at the
// first directive's date so the augmented stream validates.
func synthesizeOpens(sorted parser.Directives, synthesized []*parser.Transaction) parser.Directives {
	opened := make(map[parser.Account]bool)
	for _, directive := range sorted {
		if open, ok := directive.(*parser.Open); ok {
			opened[open.Account] = true
		}
	}

	firstDate := parser.DirectiveDate(sorted[0])

	var opens parser.Directives
	for _, txn := range synthesized {
		for _, posting := range txn.Postings {
			if opened[posting.Account] {
				continue
			}
			opened[posting.Account] = true
			opens = append(opens, parser.NewOpen(firstDate, posting.Account))
		}
	}
	return opens
}

// monthOf maps a date to a comparable month index.
func monthOf(date *parser.Date) int {
	return date.Year()*12 + int(date.Month()) - 1
}

// endOfMonth returns the last day of the month containing t.
func endOfMonth(month int) time.Time {
	year, m := month/12, time.Month(month%12+1)
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
}
