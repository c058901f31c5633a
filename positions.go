package unrealized

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"golang.org/x/exp/slices"

	"github.com/xentac/unrealized/ledger"
	"github.com/xentac/unrealized/parser"
)

// positionKey identifies a holding at cost: one commodity in one account,
// with its book value kept in one cost currency.
type positionKey struct {
	account   parser.Account
	commodity string
	currency  string
}

// position accumulates the units and book value of a holding, plus the
// date of the last transaction that touched it.
type position struct {
	units   decimal.Decimal
	book    decimal.Decimal
	lastTxn time.Time
}

// positionTracker folds cost postings into per-key positions. Postings
// without an amount or without a cost basis never contribute.
type positionTracker struct {
	positions map[positionKey]*position
}

func newPositionTracker() *positionTracker {
	return &positionTracker{positions: make(map[positionKey]*position)}
}

// apply folds one transaction into the tracked positions.
func (t *positionTracker) apply(txn *parser.Transaction) {
	for _, posting := range txn.Postings {
		if posting.Amount == nil || posting.Cost == nil {
			continue
		}

		units, err := ledger.ParseAmount(posting.Amount)
		if err != nil {
			continue
		}

		perUnit, currency, ok := t.costBasis(posting, units)
		if !ok {
			continue
		}

		key := positionKey{
			account:   posting.Account,
			commodity: posting.Amount.Currency,
			currency:  currency,
		}
		pos := t.positions[key]
		if pos == nil {
			pos = &position{}
			t.positions[key] = pos
		}
		pos.units = pos.units.Add(units)
		pos.book = pos.book.Add(units.Mul(perUnit))
		pos.lastTxn = txn.Date.Time
	}
}

// costBasis resolves the per-unit cost a posting books at. An explicit
// per-unit cost is used directly; a total cost is spread over the units;
// a reduction with an empty or merge cost spec books out at the
// position's current average cost.
func (t *positionTracker) costBasis(posting *parser.Posting, units decimal.Decimal) (decimal.Decimal, string, bool) {
	cost := posting.Cost

	if cost.Amount != nil {
		perUnit, err := ledger.ParseAmount(cost.Amount)
		if err != nil {
			return decimal.Decimal{}, "", false
		}
		if cost.IsTotal && !units.IsZero() {
			perUnit = perUnit.Div(units.Abs())
		}
		return perUnit, cost.Amount.Currency, true
	}

	// Empty {} or merge {*}: take the average cost of whatever position
	// the account currently holds in this commodity.
	for key, pos := range t.positions {
		if key.account != posting.Account || key.commodity != posting.Amount.Currency {
			continue
		}
		if pos.units.IsZero() {
			continue
		}
		return pos.book.Div(pos.units), key.currency, true
	}
	return decimal.Decimal{}, "", false
}

// sortedKeys returns the tracked keys in a stable order.
func (t *positionTracker) sortedKeys() []positionKey {
	keys := make([]positionKey, 0, len(t.positions))
	for key := range t.positions {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// drop forgets a position entirely, used once a liquidated holding's
// adjustment has been reversed.
func (t *positionTracker) drop(key positionKey) {
	delete(t.positions, key)
}

func compareKeys(a, b positionKey) int {
	if a.account != b.account {
		return strings.Compare(string(a.account), string(b.account))
	}
	if a.commodity != b.commodity {
		return strings.Compare(a.commodity, b.commodity)
	}
	return strings.Compare(a.currency, b.currency)
}
