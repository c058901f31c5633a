package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2/lexer"
)

// Position locates a node in its source file.
type Position = lexer.Position

// Directive is a dated ledger entry. All directives sort by date, carry a
// source position, and may have attached metadata.
type Directive interface {
	WithMetadata

	date() *Date
	Position() Position
	Directive() string
}

// WithMetadata is implemented by nodes that accept metadata lines.
type WithMetadata interface {
	AddMetadata(...*Metadata)
	GetMetadata(key string) (string, bool)
}

type withMetadata struct {
	Metadata []*Metadata `parser:"@@*"`
}

func (w *withMetadata) AddMetadata(m ...*Metadata) {
	w.Metadata = append(w.Metadata, m...)
}

func (w *withMetadata) GetMetadata(key string) (string, bool) {
	for _, m := range w.Metadata {
		if m.Key == key {
			return m.Value, true
		}
	}
	return "", false
}

// Commodity declares a currency or commodity symbol.
//
//	2014-01-01 commodity HOUSE
type Commodity struct {
	Pos      Position
	Date     *Date  `parser:"@Date 'commodity'"`
	Currency string `parser:"@Ident"`

	withMetadata
}

var _ Directive = &Commodity{}

func (c *Commodity) date() *Date        { return c.Date }
func (c *Commodity) Position() Position { return c.Pos }
func (c *Commodity) Directive() string  { return "commodity" }

// Open starts the lifetime of an account. Currencies constrain what the
// account may hold; the booking method controls lot matching on reductions.
//
//	2014-01-01 open Assets:Account1 USD
//	2014-01-01 open Assets:Stocks "NONE"
type Open struct {
	Pos                  Position
	Date                 *Date    `parser:"@Date 'open'"`
	Account              Account  `parser:"@Account"`
	ConstraintCurrencies []string `parser:"(@Ident (',' @Ident)*)?"`
	BookingMethod        string   `parser:"@String?"`

	withMetadata
}

var _ Directive = &Open{}

func (o *Open) date() *Date        { return o.Date }
func (o *Open) Position() Position { return o.Pos }
func (o *Open) Directive() string  { return "open" }

// Close ends the lifetime of an account.
type Close struct {
	Pos     Position
	Date    *Date   `parser:"@Date 'close'"`
	Account Account `parser:"@Account"`

	withMetadata
}

var _ Directive = &Close{}

func (c *Close) date() *Date        { return c.Date }
func (c *Close) Position() Position { return c.Pos }
func (c *Close) Directive() string  { return "close" }

// Balance asserts an account's units of a currency at the start of a date.
//
//	2014-08-09 balance Assets:Account1 562.00 USD
type Balance struct {
	Pos     Position
	Date    *Date   `parser:"@Date 'balance'"`
	Account Account `parser:"@Account"`
	Amount  *Amount `parser:"@@"`

	withMetadata
}

var _ Directive = &Balance{}

func (b *Balance) date() *Date        { return b.Date }
func (b *Balance) Position() Position { return b.Pos }
func (b *Balance) Directive() string  { return "balance" }

// Note attaches a dated remark to an account.
type Note struct {
	Pos         Position
	Date        *Date   `parser:"@Date 'note'"`
	Account     Account `parser:"@Account"`
	Description string  `parser:"@String"`

	withMetadata
}

var _ Directive = &Note{}

func (n *Note) date() *Date        { return n.Date }
func (n *Note) Position() Position { return n.Pos }
func (n *Note) Directive() string  { return "note" }

// Price records the market price of a commodity in a quote currency.
//
//	2014-02-01 price HOUSE 130.00 USD
type Price struct {
	Pos       Position
	Date      *Date   `parser:"@Date 'price'"`
	Commodity string  `parser:"@Ident"`
	Amount    *Amount `parser:"@@"`

	withMetadata
}

var _ Directive = &Price{}

func (p *Price) date() *Date        { return p.Date }
func (p *Price) Position() Position { return p.Pos }
func (p *Price) Directive() string  { return "price" }

// Transaction is a flagged, dated set of postings that balances to zero.
// The flag is '*' for cleared, '!' for pending, 'P' for generated entries;
// the 'txn' keyword is accepted as an alias for '*'.
type Transaction struct {
	Pos       Position
	Date      *Date  `parser:"@Date ('txn' | "`
	Flag      string `parser:"@('*' | '!' | 'P') )"`
	Payee     string `parser:"@(String (?= String))?"`
	Narration string `parser:"@String?"`
	Tags      []Tag  `parser:"@Tag*"`
	Links     []Link `parser:"@Link*"`

	withMetadata

	Postings []*Posting `parser:"@@*"`
}

var _ Directive = &Transaction{}

func (t *Transaction) date() *Date        { return t.Date }
func (t *Transaction) Position() Position { return t.Pos }
func (t *Transaction) Directive() string  { return "transaction" }

// HasTag reports whether the transaction carries the given tag.
func (t *Transaction) HasTag(tag Tag) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// Posting is one leg of a transaction. The amount may be omitted for at
// most one posting per transaction; it is then inferred during validation.
//
//	Assets:Account1  10 HOUSE {100.00 USD}
//	Assets:Cash     200 EUR @ 1.35 USD
//	Income:Misc
type Posting struct {
	Pos         Position
	Flag        string  `parser:"@('*' | '!')?"`
	Account     Account `parser:"@Account"`
	Amount      *Amount `parser:"(@@"`
	Cost        *Cost   `parser:"@@?"`
	PriceMarker string  `parser:"( '@'"`
	PriceTotal  bool    `parser:"@'@'?"`
	Price       *Amount `parser:"@@)?)?"`

	// Inferred is set when the amount was filled in from the transaction
	// residual rather than written in the source.
	Inferred bool

	withMetadata
}

// Amount pairs a number with a currency. The value keeps the exact source
// spelling; conversion to decimal happens in the ledger.
type Amount struct {
	Value    string `parser:"@Number"`
	Currency string `parser:"@Ident"`
}

func (a *Amount) String() string {
	return a.Value + " " + a.Currency
}

// Cost is the cost basis attached to a posting. An empty {} selects any
// lot, {*} merges all lots, and a doubled brace form gives a total rather
// than per-unit cost.
//
//	10 HOUSE {100.00 USD}
//	10 HOUSE {100.00 USD, 2014-01-15}
//	-5 HOUSE {}
type Cost struct {
	IsTotal bool    `parser:"(@'{' '{' | '{')"`
	IsMerge bool    `parser:"(@'*'"`
	Amount  *Amount `parser:"| @@)?"`
	Date    *Date   `parser:"(',' @Date)?"`
	Label   string  `parser:"(',' @String)? ('}' '}' | '}')"`
}

// IsEmpty reports an empty cost spec {}, distinct from no cost at all.
func (c *Cost) IsEmpty() bool {
	return c != nil && !c.IsMerge && c.Amount == nil && c.Date == nil && c.Label == ""
}

// Account is a colon-separated account name. The root segment must be one
// of the five beancount categories; later segments must start with an
// uppercase letter or digit.
type Account string

func (a *Account) Capture(values []string) error {
	parts := strings.Split(values[0], ":")
	if len(parts) < 2 {
		return fmt.Errorf("account must have at least two segments: %s", values[0])
	}

	switch parts[0] {
	case "Assets", "Liabilities", "Equity", "Income", "Expenses":
	default:
		return fmt.Errorf("unexpected account type %q", parts[0])
	}

	for i := 1; i < len(parts); i++ {
		if !IsValidAccountSegment(parts[i]) {
			return fmt.Errorf("invalid account segment at position %d: %s", i, parts[i])
		}
	}

	*a = Account(values[0])
	return nil
}

var accountSegmentRegex = regexp.MustCompile(`^[A-Z0-9][A-Za-z0-9-]*$`)

// IsValidAccountSegment reports whether s is a valid non-root account
// segment: leading uppercase letter or digit, then letters, digits, and
// hyphens.
func IsValidAccountSegment(s string) bool {
	return len(s) > 0 && accountSegmentRegex.MatchString(s)
}

// Date is a calendar day in ISO 8601 form.
type Date struct {
	time.Time
}

func (d *Date) Capture(values []string) error {
	t, err := time.Parse("2006-01-02", values[0])
	if err != nil {
		return fmt.Errorf("invalid date: %s", values[0])
	}
	d.Time = t
	return nil
}

// IsZero is nil-safe so reflection-based tooling can probe Date fields.
func (d *Date) IsZero() bool {
	return d == nil || d.Time.IsZero()
}

// Link connects related transactions, written ^link in source.
type Link string

func (l *Link) Capture(values []string) error {
	*l = Link(values[0][1:])
	return nil
}

// Tag categorizes a transaction, written #tag in source.
type Tag string

func (t *Tag) Capture(values []string) error {
	*t = Tag(values[0][1:])
	return nil
}

// Metadata is an indented key-value line under a directive or posting.
// Values are single tokens: a string, number, date, account, or bare word.
type Metadata struct {
	Key   string `parser:"@Ident ':'"`
	Value string `parser:"@(String | Number | Date | Account | Ident)"`
}

// Option is a file-wide configuration setting.
//
//	option "operating_currency" "USD"
type Option struct {
	Pos   Position
	Name  string `parser:"'option' @String"`
	Value string `parser:"@String"`
}

// Include pulls directives in from another file, relative to the file
// containing the include.
type Include struct {
	Pos      Position
	Filename string `parser:"'include' @String"`
}

// Plugin names a transform to run over the parsed directives.
//
//	plugin "unrealized" "Gains"
type Plugin struct {
	Pos    Position
	Name   string `parser:"'plugin' @String"`
	Config string `parser:"@String?"`
}

// Pushtag applies a tag to every transaction until the matching poptag.
type Pushtag struct {
	Pos Position
	Tag Tag `parser:"'pushtag' @Tag"`
}

// Poptag removes a previously pushed tag.
type Poptag struct {
	Pos Position
	Tag Tag `parser:"'poptag' @Tag"`
}

// Pushmeta applies a metadata entry to every directive until the matching
// popmeta.
type Pushmeta struct {
	Pos   Position
	Key   string `parser:"'pushmeta' @Ident ':'"`
	Value string `parser:"@(String | Number | Date | Account | Ident)"`
}

// Popmeta removes a previously pushed metadata key.
type Popmeta struct {
	Pos Position
	Key string `parser:"'popmeta' @Ident ':'"`
}
