package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fsnotify/fsnotify"

	"github.com/xentac/unrealized"
	"github.com/xentac/unrealized/formatter"
	"github.com/xentac/unrealized/ledger"
	"github.com/xentac/unrealized/loader"
	"github.com/xentac/unrealized/output"
	"github.com/xentac/unrealized/parser"
	"github.com/xentac/unrealized/telemetry"
)

// GainsCmd inserts unrealized gain entries into a ledger.
type GainsCmd struct {
	File       FileOrStdin `help:"Beancount input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Subaccount string      `help:"Subaccount to book gains under (e.g. 'Gains')."`
	DiffOnly   bool        `name:"diff-only" help:"Print only the synthesized entries."`
	Write      bool        `short:"w" help:"Write the augmented ledger back to the input file."`
	Watch      bool        `help:"Re-run whenever the input file changes."`
}

func (cmd *GainsCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	if cmd.File.IsStdin() && (cmd.Write || cmd.Watch) {
		return fmt.Errorf("--write and --watch require a file argument")
	}
	if cmd.Write && cmd.Watch {
		// Writing the file would retrigger the watcher.
		return fmt.Errorf("--write and --watch cannot be combined")
	}

	runCtx := context.Background()

	var collector telemetry.Collector
	var gainsTimer telemetry.Timer
	var once sync.Once

	reportTelemetry := func() {
		once.Do(func() {
			if collector != nil {
				gainsTimer.End()
				_, _ = fmt.Fprintln(ctx.Stderr)
				collector.Report(ctx.Stderr, output.NewStyles(ctx.Stderr))
			}
		})
	}

	if globals.Telemetry {
		collector = telemetry.NewTimingCollector()
		runCtx = telemetry.WithCollector(runCtx, collector)

		gainsTimer = collector.Start(fmt.Sprintf("gains %s", filepath.Base(cmd.File.Filename)))
		runCtx = telemetry.WithRootTimer(runCtx, gainsTimer)

		defer reportTelemetry()
	}

	err := cmd.runOnce(runCtx, ctx)

	if !cmd.Watch {
		if err != nil {
			reportTelemetry()
		}
		return err
	}

	if err != nil {
		printError(ctx.Stderr, err.Error())
	}
	return cmd.watch(runCtx, ctx)
}

// runOnce loads the ledger, runs the plugin and emits the result.
func (cmd *GainsCmd) runOnce(runCtx context.Context, ctx *kong.Context) error {
	sourceContent, err := cmd.File.GetSourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file for error context: %w", err)
	}

	ldr := loader.New(loader.WithFollowIncludes())
	ast, err := cmd.File.LoadAST(runCtx, ldr)
	if err != nil {
		renderer := NewErrorRenderer(sourceContent)
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.Render(err))

		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, "parse error")
		return NewCommandError(1)
	}

	opts, optErrs := ledger.OptionsFromAST(ast)

	augmented, errs := unrealized.AddUnrealizedGains(runCtx, ast.Directives, opts, cmd.Subaccount)
	errs = append(optErrs, errs...)
	if len(errs) > 0 {
		renderer := NewErrorRenderer(sourceContent)
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.RenderAll(errs))

		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, fmt.Sprintf("%d error(s) found", len(errs)))
		return NewCommandError(1)
	}

	synthesized := unrealized.GetUnrealizedEntries(augmented)

	result := &parser.AST{
		Options:    ast.Options,
		Plugins:    ast.Plugins,
		Directives: augmented,
	}

	f := formatter.New()

	switch {
	case cmd.Write:
		if err := cmd.writeBack(result, f); err != nil {
			return err
		}
		printSuccess(ctx.Stdout, fmt.Sprintf("Wrote %d unrealized gain entries to %s", len(synthesized), cmd.File.Filename))

	case cmd.DiffOnly:
		if err := f.FormatDirectives(synthesized, ctx.Stdout); err != nil {
			return err
		}

	default:
		if err := f.Format(result, ctx.Stdout); err != nil {
			return err
		}
	}

	if !cmd.Write {
		printInfof(ctx.Stderr, "%d unrealized gain entries synthesized", len(synthesized))
	}
	return nil
}

// writeBack rewrites the input file with the augmented ledger. On a
// terminal the user confirms first; otherwise the write proceeds.
func (cmd *GainsCmd) writeBack(result *parser.AST, f *formatter.Formatter) error {
	if isTerminal() {
		ok, err := promptYesNo(fmt.Sprintf("Overwrite %s with the augmented ledger?", cmd.File.Filename))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("aborted")
		}
	}

	var buf bytes.Buffer
	if err := f.Format(result, &buf); err != nil {
		return err
	}
	return os.WriteFile(cmd.File.Filename, buf.Bytes(), 0o644)
}

// watch re-runs the command whenever the input file changes. Events are
// debounced because editors often write files in several steps.
func (cmd *GainsCmd) watch(runCtx context.Context, ctx *kong.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	filename := cmd.File.GetAbsoluteFilename()
	if err := watcher.Add(filename); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filename, err)
	}

	printInfof(ctx.Stderr, "watching %s", cmd.File.Filename)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-runCtx.Done():
			return runCtx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Remove/Rename occur in atomic saves.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				printInfof(ctx.Stderr, "%s changed, re-running", cmd.File.Filename)
				if err := cmd.runOnce(runCtx, ctx); err != nil {
					printError(ctx.Stderr, err.Error())
				}
				// The file may have been recreated under the same name.
				_ = watcher.Add(filename)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printError(ctx.Stderr, fmt.Sprintf("file watcher error: %v", err))
		}
	}
}
