package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/xentac/unrealized/parser"
)

// Weight is a posting's contribution to its transaction's balance, in
// the currency the posting converts to: the cost currency for postings
// held at cost, the price currency for priced postings, and the amount
// currency otherwise.
type Weight struct {
	Value    decimal.Decimal
	Currency string
}

// PostingWeight computes the balancing weight of a posting with an
// explicit amount.
func PostingWeight(p *parser.Posting) (Weight, error) {
	units, err := ParseAmount(p.Amount)
	if err != nil {
		return Weight{}, err
	}

	switch {
	case p.Cost != nil && p.Cost.Amount != nil:
		cost, err := ParseAmount(p.Cost.Amount)
		if err != nil {
			return Weight{}, err
		}
		if p.Cost.IsTotal {
			// Total cost carries the sign of the units.
			value := cost
			if units.IsNegative() {
				value = value.Neg()
			}
			return Weight{Value: value, Currency: p.Cost.Amount.Currency}, nil
		}
		return Weight{Value: units.Mul(cost), Currency: p.Cost.Amount.Currency}, nil

	case p.Price != nil:
		price, err := ParseAmount(p.Price)
		if err != nil {
			return Weight{}, err
		}
		if p.PriceTotal {
			value := price
			if units.IsNegative() {
				value = value.Neg()
			}
			return Weight{Value: value, Currency: p.Price.Currency}, nil
		}
		return Weight{Value: units.Mul(price), Currency: p.Price.Currency}, nil
	}

	return Weight{Value: units, Currency: p.Amount.Currency}, nil
}
