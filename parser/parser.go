// Package parser parses the beancount subset consumed by the unrealized
// gains pipeline: accounts, commodities, prices, balances, notes, and
// transactions with cost and price annotations, plus file-level options,
// includes, plugins, and pushed tags/metadata.
//
// Parsed amounts keep their exact source spelling; all arithmetic happens
// downstream on decimals.
package parser

import (
	"context"
	"fmt"
	"io"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"golang.org/x/exp/slices"

	"github.com/xentac/unrealized/telemetry"
)

// Directives is a date-sorted slice of ledger entries.
type Directives []Directive

// directivePriority breaks date ties: accounts open before anything else
// that day and close after being used for the last time.
func directivePriority(d Directive) int {
	switch d.(type) {
	case *Open:
		return 0
	case *Close:
		return 1
	default:
		return 2
	}
}

func compareDirectives(a, b Directive) int {
	if c := a.date().Compare(b.date().Time); c != 0 {
		return c
	}
	pa, pb := directivePriority(a), directivePriority(b)
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	}
	return 0
}

// AST is the parsed contents of a single source file (or of several files
// merged by the loader).
type AST struct {
	Directives Directives  `parser:"(@@"`
	Options    []*Option   `parser:"| @@"`
	Includes   []*Include  `parser:"| @@"`
	Plugins    []*Plugin   `parser:"| @@"`
	Pushtags   []*Pushtag  `parser:"| @@"`
	Poptags    []*Poptag   `parser:"| @@"`
	Pushmetas  []*Pushmeta `parser:"| @@"`
	Popmetas   []*Popmeta  `parser:"| @@ | ~ignore)*"`
}

// Option returns the value of a file option, or the empty string.
func (a *AST) Option(name string) string {
	for _, opt := range a.Options {
		if opt.Name == name {
			return opt.Value
		}
	}
	return ""
}

var (
	lex = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Date", Pattern: `\d{4}-\d{2}-\d{2}`},
		{Name: "Account", Pattern: `[A-Z][A-Za-z]*:[A-Za-z0-9][A-Za-z0-9:-]*`},
		{Name: "String", Pattern: `"[^"]*"`},
		{Name: "Number", Pattern: `[-+]?(\d*\.)?\d+`},
		{Name: "Link", Pattern: `\^[A-Za-z0-9_-]+`},
		{Name: "Tag", Pattern: `#[A-Za-z0-9_-]+`},
		{Name: "Ident", Pattern: `[A-Za-z][0-9A-Za-z_-]*`},
		{Name: "Punct", Pattern: `[!*:,@{}]`},
		{Name: "Comment", Pattern: `;[^\n]*\n?`},
		{Name: "Whitespace", Pattern: `[[:space:]]`},
		{Name: "ignore", Pattern: `.`},
	})

	grammar = participle.MustBuild[AST](
		participle.Lexer(lex),
		participle.Unquote("String"),
		participle.Elide("Comment", "Whitespace"),
		participle.Union[Directive](
			&Commodity{},
			&Open{},
			&Close{},
			&Balance{},
			&Note{},
			&Price{},
			&Transaction{},
		),
		participle.UseLookahead(2),
	)
)

// Parse reads and parses beancount input from r.
func Parse(r io.Reader) (*AST, error) {
	ast, err := grammar.Parse("", r)
	if err != nil {
		return nil, err
	}
	return finish(ast)
}

// ParseString parses beancount input from a string.
func ParseString(str string) (*AST, error) {
	ast, err := grammar.ParseString("", str)
	if err != nil {
		return nil, err
	}
	return finish(ast)
}

// ParseBytes parses beancount input from a byte slice.
func ParseBytes(data []byte) (*AST, error) {
	ast, err := grammar.ParseBytes("", data)
	if err != nil {
		return nil, err
	}
	return finish(ast)
}

// ParseBytesWithFilename parses data attributing positions to filename.
// Errors are wrapped in *ParseError.
func ParseBytesWithFilename(ctx context.Context, filename string, data []byte) (*AST, error) {
	defer telemetry.FromContext(ctx).Start(fmt.Sprintf("parse %s", filename)).End()

	ast, err := grammar.ParseBytes(filename, data)
	if err != nil {
		return nil, NewParseError(filename, err)
	}
	return finish(ast)
}

func finish(ast *AST) (*AST, error) {
	if err := ApplyPushPopDirectives(ast); err != nil {
		return nil, err
	}
	SortDirectives(ast.Directives)
	return ast, nil
}

// DirectiveDate returns the date of any directive. Directive structs
// expose their date as a field, so the interface accessor stays
// unexported; this bridges the two for other packages.
func DirectiveDate(d Directive) *Date {
	return d.date()
}

// SortDirectives sorts directives by date with the open/close tie-break.
// The sort is stable so same-day entries keep their file order; callers
// that merge synthesized entries rely on this.
func SortDirectives(directives Directives) {
	if slices.IsSortedFunc(directives, compareDirectives) {
		return
	}
	slices.SortStableFunc(directives, compareDirectives)
}

// positionedItem interleaves directives with push/pop markers so they can
// be replayed in file order.
type positionedItem struct {
	pos       Position
	directive Directive
	pushtag   *Pushtag
	poptag    *Poptag
	pushmeta  *Pushmeta
	popmeta   *Popmeta
}

// ApplyPushPopDirectives applies pushtag/poptag and pushmeta/popmeta
// pairs to the directives between them. Must run before date sorting.
func ApplyPushPopDirectives(ast *AST) error {
	items := make([]positionedItem, 0, len(ast.Directives))

	for _, d := range ast.Directives {
		items = append(items, positionedItem{pos: d.Position(), directive: d})
	}
	for _, pt := range ast.Pushtags {
		items = append(items, positionedItem{pos: pt.Pos, pushtag: pt})
	}
	for _, pt := range ast.Poptags {
		items = append(items, positionedItem{pos: pt.Pos, poptag: pt})
	}
	for _, pm := range ast.Pushmetas {
		items = append(items, positionedItem{pos: pm.Pos, pushmeta: pm})
	}
	for _, pm := range ast.Popmetas {
		items = append(items, positionedItem{pos: pm.Pos, popmeta: pm})
	}

	slices.SortFunc(items, func(a, b positionedItem) int {
		if a.pos.Offset < b.pos.Offset {
			return -1
		}
		if a.pos.Offset > b.pos.Offset {
			return 1
		}
		return 0
	})

	var activeTags []Tag
	activeMetadata := make(map[string]string)
	var metadataOrder []string

	for _, item := range items {
		switch {
		case item.pushtag != nil:
			activeTags = append(activeTags, item.pushtag.Tag)

		case item.poptag != nil:
			idx := slices.Index(activeTags, item.poptag.Tag)
			if idx < 0 {
				return fmt.Errorf("%s: poptag #%s without matching pushtag", item.pos, item.poptag.Tag)
			}
			activeTags = slices.Delete(activeTags, idx, idx+1)

		case item.pushmeta != nil:
			if _, ok := activeMetadata[item.pushmeta.Key]; !ok {
				metadataOrder = append(metadataOrder, item.pushmeta.Key)
			}
			activeMetadata[item.pushmeta.Key] = item.pushmeta.Value

		case item.popmeta != nil:
			if _, ok := activeMetadata[item.popmeta.Key]; !ok {
				return fmt.Errorf("%s: popmeta %s: without matching pushmeta", item.pos, item.popmeta.Key)
			}
			delete(activeMetadata, item.popmeta.Key)
			if idx := slices.Index(metadataOrder, item.popmeta.Key); idx >= 0 {
				metadataOrder = slices.Delete(metadataOrder, idx, idx+1)
			}

		case item.directive != nil:
			if txn, ok := item.directive.(*Transaction); ok {
				txn.Tags = append(txn.Tags, activeTags...)
			}
			for _, key := range metadataOrder {
				item.directive.AddMetadata(&Metadata{Key: key, Value: activeMetadata[key]})
			}
		}
	}

	return nil
}

// ParseError wraps a syntax error with the file it came from.
type ParseError struct {
	Filename string
	Pos      Position
	Err      error
}

// NewParseError wraps err, pulling out the error position when the
// underlying parser exposes one.
func NewParseError(filename string, err error) *ParseError {
	pe := &ParseError{Filename: filename, Err: err}
	var perr participle.Error
	if ok := asParticipleError(err, &perr); ok {
		pe.Pos = perr.Position()
	}
	return pe
}

func asParticipleError(err error, target *participle.Error) bool {
	for err != nil {
		if perr, ok := err.(participle.Error); ok {
			*target = perr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// GetPosition returns the position of the syntax error.
func (e *ParseError) GetPosition() Position {
	return e.Pos
}
