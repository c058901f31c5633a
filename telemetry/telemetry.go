// Package telemetry collects hierarchical operation timings. Collectors
// travel through the context so instrumentation never changes function
// signatures; without a collector in the context every operation is a
// no-op.
//
//	collector := telemetry.NewTimingCollector()
//	ctx := telemetry.WithCollector(context.Background(), collector)
//
//	defer telemetry.FromContext(ctx).Start("load file").End()
//
//	collector.Report(os.Stderr, styles)
package telemetry

import (
	"context"
	"io"

	"github.com/xentac/unrealized/output"
)

type contextKey int

const (
	collectorKey contextKey = iota
	rootTimerKey
)

// Collector gathers timing data for a run.
type Collector interface {
	// Start begins timing an operation; end it with End().
	Start(name string) Timer

	// Report writes the collected timings. Styles may be nil for plain
	// output.
	Report(w io.Writer, styles *output.Styles)
}

// Timer times a single operation and can nest children under it.
type Timer interface {
	End()
	Child(name string) Timer
}

// WithCollector stores a collector in the context.
func WithCollector(ctx context.Context, collector Collector) context.Context {
	return context.WithValue(ctx, collectorKey, collector)
}

// FromContext returns the context's collector, or a no-op one.
func FromContext(ctx context.Context) Collector {
	if collector, ok := ctx.Value(collectorKey).(Collector); ok {
		return collector
	}
	return noOpCollector{}
}

// WithRootTimer stores the run's outermost timer in the context so that
// nested operations can attach children to it.
func WithRootTimer(ctx context.Context, timer Timer) context.Context {
	return context.WithValue(ctx, rootTimerKey, timer)
}

// RootTimer returns the context's root timer, or a no-op one.
func RootTimer(ctx context.Context) Timer {
	if timer, ok := ctx.Value(rootTimerKey).(Timer); ok {
		return timer
	}
	return noOpTimer{}
}
