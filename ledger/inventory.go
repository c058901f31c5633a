package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xentac/unrealized/parser"
)

// BookingMethod selects how reductions match existing lots.
type BookingMethod int

const (
	// Strict requires an unambiguous lot match for every reduction.
	Strict BookingMethod = iota
	// None books reductions as-is; a non-matching reduction creates a
	// negative lot. This is how a position can end up with zero units but
	// a leftover cost basis.
	None
	// FIFO reduces the oldest matching lots first.
	FIFO
	// LIFO reduces the newest matching lots first.
	LIFO
	// Average merges all lots of the commodity before reducing.
	Average
)

func (m BookingMethod) String() string {
	switch m {
	case Strict:
		return "STRICT"
	case None:
		return "NONE"
	case FIFO:
		return "FIFO"
	case LIFO:
		return "LIFO"
	case Average:
		return "AVERAGE"
	}
	return fmt.Sprintf("BookingMethod(%d)", int(m))
}

// ParseBookingMethod parses the booking method spelling used in open
// directives and the booking_method option.
func ParseBookingMethod(s string) (BookingMethod, error) {
	switch s {
	case "", "STRICT":
		return Strict, nil
	case "NONE":
		return None, nil
	case "FIFO":
		return FIFO, nil
	case "LIFO":
		return LIFO, nil
	case "AVERAGE":
		return Average, nil
	}
	return Strict, fmt.Errorf("unknown booking method %q", s)
}

// Lot is a quantity of a commodity, optionally held at cost.
type Lot struct {
	Units        decimal.Decimal
	Currency     string
	Cost         *decimal.Decimal // per-unit cost, nil when not held at cost
	CostCurrency string
	CostDate     *parser.Date
	Label        string
}

// AtCost reports whether the lot carries a cost basis.
func (l *Lot) AtCost() bool {
	return l.Cost != nil
}

// BookValue returns units times per-unit cost, zero for costless lots.
func (l *Lot) BookValue() decimal.Decimal {
	if l.Cost == nil {
		return decimal.Decimal{}
	}
	return l.Units.Mul(*l.Cost)
}

func (l *Lot) matchesLot(other *Lot) bool {
	if l.Currency != other.Currency {
		return false
	}
	if (l.Cost == nil) != (other.Cost == nil) {
		return false
	}
	if l.Cost != nil && (!l.Cost.Equal(*other.Cost) || l.CostCurrency != other.CostCurrency) {
		return false
	}
	if l.CostDate != nil && other.CostDate != nil && !l.CostDate.Equal(other.CostDate.Time) {
		return false
	}
	return l.Label == "" || l.Label == other.Label
}

// ReduceSpec describes which lots a reduction may take from.
type ReduceSpec struct {
	Currency     string
	Cost         *decimal.Decimal
	CostCurrency string
	CostDate     *parser.Date
	Label        string

	// AnyLot is set for an empty {} cost spec: any lot of the currency
	// held at cost qualifies.
	AnyLot bool
}

func (s *ReduceSpec) matches(lot *Lot) bool {
	if lot.Currency != s.Currency || !lot.AtCost() {
		return false
	}
	if s.AnyLot {
		return true
	}
	if s.Cost != nil && (!s.Cost.Equal(*lot.Cost) || s.CostCurrency != lot.CostCurrency) {
		return false
	}
	if s.CostDate != nil && (lot.CostDate == nil || !s.CostDate.Equal(lot.CostDate.Time)) {
		return false
	}
	return s.Label == "" || s.Label == lot.Label
}

// Inventory tracks the lots held by one account.
type Inventory struct {
	lots []*Lot
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{}
}

// Add books a lot, merging with an existing lot of identical shape.
func (inv *Inventory) Add(lot *Lot) {
	for _, existing := range inv.lots {
		if existing.matchesLot(lot) && lot.matchesLot(existing) {
			existing.Units = existing.Units.Add(lot.Units)
			return
		}
	}
	copied := *lot
	inv.lots = append(inv.lots, &copied)
}

// Reduce takes units (a positive magnitude) out of the lots selected by
// spec, following the booking method. With None booking a reduction that
// matches no lot books a negative lot instead of failing.
func (inv *Inventory) Reduce(method BookingMethod, units decimal.Decimal, spec ReduceSpec) error {
	matching := inv.matchingLots(spec)

	switch method {
	case None:
		if len(matching) == 1 {
			matching[0].Units = matching[0].Units.Sub(units)
			inv.compact()
			return nil
		}
		inv.Add(&Lot{
			Units:        units.Neg(),
			Currency:     spec.Currency,
			Cost:         spec.Cost,
			CostCurrency: spec.CostCurrency,
			CostDate:     spec.CostDate,
			Label:        spec.Label,
		})
		return nil

	case Strict:
		if len(matching) != 1 {
			return fmt.Errorf("no unambiguous lot of %s matches the reduction", spec.Currency)
		}
		lot := matching[0]
		if lot.Units.Cmp(units) < 0 {
			return fmt.Errorf("lot of %s holds %s units, cannot reduce by %s",
				spec.Currency, lot.Units, units)
		}
		lot.Units = lot.Units.Sub(units)
		inv.compact()
		return nil

	case FIFO, LIFO:
		if method == LIFO {
			reverse(matching)
		}
		remaining := units
		for _, lot := range matching {
			if remaining.IsZero() {
				break
			}
			take := decimal.Min(lot.Units, remaining)
			lot.Units = lot.Units.Sub(take)
			remaining = remaining.Sub(take)
		}
		if !remaining.IsZero() {
			return fmt.Errorf("insufficient units of %s: %s left to reduce", spec.Currency, remaining)
		}
		inv.compact()
		return nil

	case Average:
		total := decimal.Decimal{}
		book := decimal.Decimal{}
		for _, lot := range matching {
			total = total.Add(lot.Units)
			book = book.Add(lot.BookValue())
		}
		if total.Cmp(units) < 0 {
			return fmt.Errorf("insufficient units of %s to reduce by %s", spec.Currency, units)
		}
		inv.removeMatching(spec)
		left := total.Sub(units)
		if !left.IsZero() {
			avg := book.Div(total)
			inv.Add(&Lot{Units: left, Currency: spec.Currency, Cost: &avg, CostCurrency: spec.CostCurrency})
		}
		return nil
	}

	return fmt.Errorf("unsupported booking method %s", method)
}

func (inv *Inventory) matchingLots(spec ReduceSpec) []*Lot {
	var matching []*Lot
	for _, lot := range inv.lots {
		if spec.matches(lot) {
			matching = append(matching, lot)
		}
	}
	return matching
}

func (inv *Inventory) removeMatching(spec ReduceSpec) {
	kept := inv.lots[:0]
	for _, lot := range inv.lots {
		if !spec.matches(lot) {
			kept = append(kept, lot)
		}
	}
	inv.lots = kept
}

// compact drops lots reduced to exactly zero units.
func (inv *Inventory) compact() {
	kept := inv.lots[:0]
	for _, lot := range inv.lots {
		if !lot.Units.IsZero() {
			kept = append(kept, lot)
		}
	}
	inv.lots = kept
}

// Get sums the units of a currency across all lots.
func (inv *Inventory) Get(currency string) decimal.Decimal {
	total := decimal.Decimal{}
	for _, lot := range inv.lots {
		if lot.Currency == currency {
			total = total.Add(lot.Units)
		}
	}
	return total
}

// Lots returns the inventory's lots. The slice is shared; callers must
// not modify it.
func (inv *Inventory) Lots() []*Lot {
	return inv.lots
}

// IsEmpty reports whether no units are held.
func (inv *Inventory) IsEmpty() bool {
	return len(inv.lots) == 0
}

func reverse(lots []*Lot) {
	for i, j := 0, len(lots)-1; i < j; i, j = i+1, j-1 {
		lots[i], lots[j] = lots[j], lots[i]
	}
}
