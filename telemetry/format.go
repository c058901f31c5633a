package telemetry

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xentac/unrealized/output"
)

// slowThreshold marks operations worth highlighting in the report.
const slowThreshold = 100 * time.Millisecond

// formatTimingTree writes one line per timer, indented by nesting depth.
func formatTimingTree(w io.Writer, node *timerNode, styles *output.Styles) {
	writeTimingNode(w, node, 0, styles)
}

func writeTimingNode(w io.Writer, node *timerNode, depth int, styles *output.Styles) {
	indent := strings.Repeat("  ", depth)
	duration := formatDuration(node.duration())

	if styles != nil {
		duration = styles.Timing(duration, node.duration() >= slowThreshold)
	}
	_, _ = fmt.Fprintf(w, "%s%s %s\n", indent, node.name, duration)

	for _, child := range node.children {
		writeTimingNode(w, child, depth+1, styles)
	}
}

// formatDuration renders durations at a precision that reads well:
// sub-millisecond in microseconds, sub-second in milliseconds.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
