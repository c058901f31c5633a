package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xentac/unrealized/parser"
)

// PriceGraph stores dated prices per (commodity, quote currency) pair and
// answers forward-filled lookups: the latest price at or before a date.
// Prices are direct only; no conversion through intermediate currencies.
type PriceGraph struct {
	series map[priceKey][]pricePoint
}

type priceKey struct {
	commodity string
	currency  string
}

type pricePoint struct {
	date  time.Time
	price decimal.Decimal
}

// NewPriceGraph returns an empty price graph.
func NewPriceGraph() *PriceGraph {
	return &PriceGraph{series: make(map[priceKey][]pricePoint)}
}

// AddPrice records the price of one unit of commodity in currency on the
// given date. A second price on the same date replaces the first.
func (g *PriceGraph) AddPrice(commodity, currency string, date *parser.Date, price decimal.Decimal) {
	key := priceKey{commodity, currency}
	points := g.series[key]

	idx := sort.Search(len(points), func(i int) bool {
		return !points[i].date.Before(date.Time)
	})
	if idx < len(points) && points[idx].date.Equal(date.Time) {
		points[idx].price = price
		return
	}

	points = append(points, pricePoint{})
	copy(points[idx+1:], points[idx:])
	points[idx] = pricePoint{date: date.Time, price: price}
	g.series[key] = points
}

// AddPriceDirective records a parsed price directive.
func (g *PriceGraph) AddPriceDirective(p *parser.Price) error {
	value, err := ParseAmount(p.Amount)
	if err != nil {
		return err
	}
	g.AddPrice(p.Commodity, p.Amount.Currency, p.Date, value)
	return nil
}

// LookupPrice returns the latest price of commodity in currency at or
// before asOf, and whether one exists.
func (g *PriceGraph) LookupPrice(commodity, currency string, asOf time.Time) (decimal.Decimal, bool) {
	if point, ok := g.lookup(commodity, currency, asOf); ok {
		return point.price, true
	}
	return decimal.Decimal{}, false
}

// LatestPriceDate returns the date of the latest price of commodity in
// currency at or before asOf.
func (g *PriceGraph) LatestPriceDate(commodity, currency string, asOf time.Time) (time.Time, bool) {
	if point, ok := g.lookup(commodity, currency, asOf); ok {
		return point.date, true
	}
	return time.Time{}, false
}

func (g *PriceGraph) lookup(commodity, currency string, asOf time.Time) (pricePoint, bool) {
	points := g.series[priceKey{commodity, currency}]

	// Rightmost point at or before asOf.
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].date.After(asOf)
	})
	if idx == 0 {
		return pricePoint{}, false
	}
	return points[idx-1], true
}
