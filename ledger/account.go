package ledger

import (
	"strings"

	"github.com/xentac/unrealized/parser"
)

// AccountType classifies an account by its root segment.
type AccountType int

const (
	UnknownAccountType AccountType = iota
	Assets
	Liabilities
	Equity
	Income
	Expenses
)

func (t AccountType) String() string {
	switch t {
	case Assets:
		return "Assets"
	case Liabilities:
		return "Liabilities"
	case Equity:
		return "Equity"
	case Income:
		return "Income"
	case Expenses:
		return "Expenses"
	}
	return "Unknown"
}

// ParseAccountType classifies an account against the configured root
// names.
func ParseAccountType(opts *Options, account parser.Account) AccountType {
	switch AccountRoot(account) {
	case opts.NameAssets:
		return Assets
	case opts.NameLiabilities:
		return Liabilities
	case opts.NameEquity:
		return Equity
	case opts.NameIncome:
		return Income
	case opts.NameExpenses:
		return Expenses
	}
	return UnknownAccountType
}

// AccountRoot returns the first segment of an account name.
func AccountRoot(account parser.Account) string {
	name := string(account)
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		return name[:idx]
	}
	return name
}

// AccountLeaf returns the account name without its root segment, e.g.
// "Assets:US:Checking" -> "US:Checking".
func AccountLeaf(account parser.Account) string {
	name := string(account)
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		return name[idx+1:]
	}
	return ""
}

// JoinAccount assembles an account name from segments, skipping empties.
func JoinAccount(segments ...string) parser.Account {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parser.Account(strings.Join(parts, ":"))
}
