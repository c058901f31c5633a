package parser

import "time"

// Builders for synthesizing directives programmatically, used by
// transforms that inject entries into a parsed ledger. Synthesized nodes
// have zero positions; formatting and sorting treat them like parsed ones.

// NewDate builds a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) *Date {
	return &Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// NewDateFromTime builds a Date from t, truncated to the day.
func NewDateFromTime(t time.Time) *Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// NewAmount builds an Amount from an exact value string and a currency.
func NewAmount(value, currency string) *Amount {
	return &Amount{Value: value, Currency: currency}
}

// TransactionOption configures a synthesized transaction.
type TransactionOption func(*Transaction)

// WithFlag sets the transaction flag.
func WithFlag(flag string) TransactionOption {
	return func(t *Transaction) { t.Flag = flag }
}

// WithPayee sets the transaction payee.
func WithPayee(payee string) TransactionOption {
	return func(t *Transaction) { t.Payee = payee }
}

// WithNarration sets the transaction narration.
func WithNarration(narration string) TransactionOption {
	return func(t *Transaction) { t.Narration = narration }
}

// WithTags appends tags to the transaction.
func WithTags(tags ...Tag) TransactionOption {
	return func(t *Transaction) { t.Tags = append(t.Tags, tags...) }
}

// WithLinks appends links to the transaction.
func WithLinks(links ...Link) TransactionOption {
	return func(t *Transaction) { t.Links = append(t.Links, links...) }
}

// WithPostings appends postings to the transaction.
func WithPostings(postings ...*Posting) TransactionOption {
	return func(t *Transaction) { t.Postings = append(t.Postings, postings...) }
}

// WithTransactionMetadata attaches a metadata entry to the transaction.
func WithTransactionMetadata(key, value string) TransactionOption {
	return func(t *Transaction) { t.AddMetadata(&Metadata{Key: key, Value: value}) }
}

// NewTransaction builds a transaction with flag '*' unless overridden.
func NewTransaction(date *Date, opts ...TransactionOption) *Transaction {
	t := &Transaction{Date: date, Flag: "*"}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PostingOption configures a synthesized posting.
type PostingOption func(*Posting)

// WithAmount sets the posting amount.
func WithAmount(amount *Amount) PostingOption {
	return func(p *Posting) { p.Amount = amount }
}

// WithCost sets the posting cost basis.
func WithCost(cost *Cost) PostingOption {
	return func(p *Posting) { p.Cost = cost }
}

// WithPrice sets a per-unit price annotation.
func WithPrice(price *Amount) PostingOption {
	return func(p *Posting) { p.Price = price }
}

// NewPosting builds a posting for the given account.
func NewPosting(account Account, opts ...PostingOption) *Posting {
	p := &Posting{Account: account}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OpenOption configures a synthesized open directive.
type OpenOption func(*Open)

// WithConstraintCurrencies restricts the currencies the account may hold.
func WithConstraintCurrencies(currencies ...string) OpenOption {
	return func(o *Open) { o.ConstraintCurrencies = append(o.ConstraintCurrencies, currencies...) }
}

// WithBookingMethod sets the account's booking method.
func WithBookingMethod(method string) OpenOption {
	return func(o *Open) { o.BookingMethod = method }
}

// NewOpen builds an open directive for the given account.
func NewOpen(date *Date, account Account, opts ...OpenOption) *Open {
	o := &Open{Date: date, Account: account}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewPrice builds a price directive.
func NewPrice(date *Date, commodity string, amount *Amount) *Price {
	return &Price{Date: date, Commodity: commodity, Amount: amount}
}
