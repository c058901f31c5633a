// Package loader reads beancount files from disk. By default a single
// file is parsed and its include directives are left in the AST; with
// WithFollowIncludes the loader resolves includes recursively, relative
// to the including file, and merges everything into one AST.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xentac/unrealized/parser"
)

// Loader reads and parses beancount files.
type Loader struct {
	// FollowIncludes enables recursive include resolution. When false,
	// only the named file is parsed and ast.Includes is preserved.
	FollowIncludes bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithFollowIncludes makes Load resolve include directives recursively.
// Included files are located relative to the file that includes them,
// loaded once each, and merged into the returned AST.
func WithFollowIncludes() Option {
	return func(l *Loader) { l.FollowIncludes = true }
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses filename, following includes when configured.
func (l *Loader) Load(ctx context.Context, filename string) (*parser.AST, error) {
	if !l.FollowIncludes {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filename, err)
		}
		return parser.ParseBytesWithFilename(ctx, filename, data)
	}

	state := &loaderState{visited: make(map[string]bool)}
	return state.loadRecursive(ctx, filename)
}

type loaderState struct {
	// visited holds absolute paths of files already loaded, so a file
	// included twice contributes its directives once.
	visited map[string]bool
}

func (l *loaderState) loadRecursive(ctx context.Context, filename string) (*parser.AST, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
	}

	if l.visited[absPath] {
		return &parser.AST{}, nil
	}
	l.visited[absPath] = true

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	ast, err := parser.ParseBytesWithFilename(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	if len(ast.Includes) == 0 {
		return ast, nil
	}

	baseDir := filepath.Dir(absPath)
	var included []*parser.AST

	for _, inc := range ast.Includes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		includePath := inc.Filename
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, includePath)
		}

		includedAST, err := l.loadRecursive(ctx, includePath)
		if err != nil {
			return nil, fmt.Errorf("in file %s: %w", filename, err)
		}
		included = append(included, includedAST)
	}

	return mergeASTs(ast, included...), nil
}

// mergeASTs folds included ASTs into the main one. The main file's
// options win; plugins accumulate; push/pop directives were already
// applied per file during parsing.
func mergeASTs(main *parser.AST, included ...*parser.AST) *parser.AST {
	merged := &parser.AST{
		Directives: append(parser.Directives{}, main.Directives...),
		Options:    main.Options,
		Plugins:    main.Plugins,
	}

	for _, inc := range included {
		merged.Directives = append(merged.Directives, inc.Directives...)
		merged.Plugins = append(merged.Plugins, inc.Plugins...)
	}

	parser.SortDirectives(merged.Directives)
	return merged
}
