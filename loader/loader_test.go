package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/xentac/unrealized/parser"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSingleFile(t *testing.T) {
	tmpDir := t.TempDir()
	mainFile := writeFile(t, tmpDir, "main.beancount", `
2024-01-01 open Assets:Checking USD
2024-01-02 * "Test"
  Assets:Checking  100.00 USD
  Equity:Opening-Balances  -100.00 USD
`)

	ldr := New()
	ast, err := ldr.Load(context.Background(), mainFile)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(ast.Directives))

	ldr = New(WithFollowIncludes())
	ast, err = ldr.Load(context.Background(), mainFile)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(ast.Directives))
}

func TestLoadWithIncludeNoFollow(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "included.beancount", `
2024-01-01 open Assets:Savings USD
`)
	mainFile := writeFile(t, tmpDir, "main.beancount", `
include "included.beancount"

2024-01-02 open Assets:Checking USD
`)

	ldr := New()
	ast, err := ldr.Load(context.Background(), mainFile)
	assert.NoError(t, err)

	assert.Equal(t, 1, len(ast.Directives))
	assert.Equal(t, 1, len(ast.Includes))
	assert.Equal(t, "included.beancount", ast.Includes[0].Filename)
}

func TestLoadWithIncludeFollow(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "included.beancount", `
2024-01-01 open Assets:Savings USD
2024-01-03 open Income:Salary USD
`)
	mainFile := writeFile(t, tmpDir, "main.beancount", `
include "included.beancount"

2024-01-02 open Assets:Checking USD
`)

	ldr := New(WithFollowIncludes())
	ast, err := ldr.Load(context.Background(), mainFile)
	assert.NoError(t, err)

	assert.Equal(t, 3, len(ast.Directives))
	assert.Equal(t, 0, len(ast.Includes))

	accounts := make([]string, len(ast.Directives))
	for i, d := range ast.Directives {
		accounts[i] = string(d.(*parser.Open).Account)
	}
	assert.Equal(t, []string{"Assets:Savings", "Assets:Checking", "Income:Salary"}, accounts)
}

func TestLoadNestedIncludes(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "c.beancount", `
2024-01-03 open Expenses:Food USD
`)
	writeFile(t, tmpDir, "b.beancount", `
include "c.beancount"

2024-01-02 open Assets:Savings USD
`)
	fileA := writeFile(t, tmpDir, "a.beancount", `
include "b.beancount"

2024-01-01 open Assets:Checking USD
`)

	ldr := New(WithFollowIncludes())
	ast, err := ldr.Load(context.Background(), fileA)
	assert.NoError(t, err)

	accounts := make([]string, len(ast.Directives))
	for i, d := range ast.Directives {
		accounts[i] = string(d.(*parser.Open).Account)
	}
	assert.Equal(t, []string{"Assets:Checking", "Assets:Savings", "Expenses:Food"}, accounts)
}

func TestLoadCircularInclude(t *testing.T) {
	tmpDir := t.TempDir()
	fileA := writeFile(t, tmpDir, "a.beancount", `
include "b.beancount"

2024-01-01 open Assets:Checking USD
`)
	writeFile(t, tmpDir, "b.beancount", `
include "a.beancount"

2024-01-02 open Assets:Savings USD
`)

	// Circular includes resolve through deduplication, not an error.
	ldr := New(WithFollowIncludes())
	ast, err := ldr.Load(context.Background(), fileA)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(ast.Directives))
}

func TestLoadSameFileTwice(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "common.beancount", `
2024-01-01 open Assets:Savings USD
`)
	mainFile := writeFile(t, tmpDir, "main.beancount", `
include "common.beancount"
include "common.beancount"

2024-01-02 open Assets:Checking USD
`)

	ldr := New(WithFollowIncludes())
	ast, err := ldr.Load(context.Background(), mainFile)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(ast.Directives))
}

func TestLoadRelativePaths(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "accounts")
	assert.NoError(t, os.MkdirAll(subDir, 0o755))
	writeFile(t, subDir, "savings.beancount", `
2024-01-01 open Assets:Savings USD
`)
	mainFile := writeFile(t, tmpDir, "main.beancount", `
include "accounts/savings.beancount"

2024-01-02 open Assets:Checking USD
`)

	ldr := New(WithFollowIncludes())
	ast, err := ldr.Load(context.Background(), mainFile)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(ast.Directives))
}

func TestLoadNonExistentInclude(t *testing.T) {
	tmpDir := t.TempDir()
	mainFile := writeFile(t, tmpDir, "main.beancount", `
include "does-not-exist.beancount"

2024-01-01 open Assets:Checking USD
`)

	ldr := New(WithFollowIncludes())
	_, err := ldr.Load(context.Background(), mainFile)
	assert.Error(t, err)
}

func TestLoadOptionsPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "included.beancount", `
option "title" "Included File"
option "operating_currency" "EUR"

2024-01-01 open Assets:Savings EUR
`)
	mainFile := writeFile(t, tmpDir, "main.beancount", `
option "title" "Main File"
option "operating_currency" "USD"

include "included.beancount"

2024-01-02 open Assets:Checking USD
`)

	ldr := New(WithFollowIncludes())
	ast, err := ldr.Load(context.Background(), mainFile)
	assert.NoError(t, err)

	assert.Equal(t, 2, len(ast.Options))
	options := make(map[string]string)
	for _, opt := range ast.Options {
		options[opt.Name] = opt.Value
	}
	assert.Equal(t, "Main File", options["title"])
	assert.Equal(t, "USD", options["operating_currency"])
}

func TestLoadPluginsMerged(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "included.beancount", `
plugin "beancount.plugins.auto_accounts"

2024-01-01 open Assets:Savings USD
`)
	mainFile := writeFile(t, tmpDir, "main.beancount", `
plugin "beancount.plugins.check_commodity"

include "included.beancount"

2024-01-02 open Assets:Checking USD
`)

	ldr := New(WithFollowIncludes())
	ast, err := ldr.Load(context.Background(), mainFile)
	assert.NoError(t, err)

	assert.Equal(t, 2, len(ast.Plugins))
	assert.Equal(t, "beancount.plugins.check_commodity", ast.Plugins[0].Name)
	assert.Equal(t, "beancount.plugins.auto_accounts", ast.Plugins[1].Name)
}

func TestLoadParseError(t *testing.T) {
	tmpDir := t.TempDir()
	mainFile := writeFile(t, tmpDir, "main.beancount", `2024-01-01 invalid directive`)

	ldr := New()
	_, err := ldr.Load(context.Background(), mainFile)
	assert.Error(t, err)

	var parseErr *parser.ParseError
	assert.True(t, errors.As(err, &parseErr))
}
