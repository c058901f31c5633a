package telemetry

import (
	"io"

	"github.com/xentac/unrealized/output"
)

// noOpCollector discards everything, so instrumented code pays nothing
// when telemetry is off.
type noOpCollector struct{}

func (noOpCollector) Start(name string) Timer                   { return noOpTimer{} }
func (noOpCollector) Report(w io.Writer, styles *output.Styles) {}

type noOpTimer struct{}

func (noOpTimer) End()                   {}
func (noOpTimer) Child(name string) Timer { return noOpTimer{} }
