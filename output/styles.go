// Package output styles terminal output. It wraps termenv so callers
// never deal with escape codes or terminal capability detection.
package output

import (
	"io"

	"github.com/muesli/termenv"
)

// Styles renders styled strings for one output stream. Styling degrades
// to plain text automatically when the stream is not a terminal.
type Styles struct {
	output *termenv.Output
}

// NewStyles creates styles for the given writer.
func NewStyles(w io.Writer) *Styles {
	return &Styles{output: termenv.NewOutput(w)}
}

// Success renders green bold text.
func (s *Styles) Success(text string) string {
	return s.output.String(text).Foreground(s.output.Color("2")).Bold().String()
}

// Error renders red bold text.
func (s *Styles) Error(text string) string {
	return s.output.String(text).Foreground(s.output.Color("1")).Bold().String()
}

// Warning renders yellow bold text.
func (s *Styles) Warning(text string) string {
	return s.output.String(text).Foreground(s.output.Color("3")).Bold().String()
}

// FilePath renders a file path in cyan.
func (s *Styles) FilePath(text string) string {
	return s.output.String(text).Foreground(s.output.Color("6")).String()
}

// Account renders an account name in yellow.
func (s *Styles) Account(text string) string {
	return s.output.String(text).Foreground(s.output.Color("3")).String()
}

// Amount renders an amount in magenta.
func (s *Styles) Amount(text string) string {
	return s.output.String(text).Foreground(s.output.Color("5")).String()
}

// Dim renders secondary information faintly.
func (s *Styles) Dim(text string) string {
	return s.output.String(text).Faint().String()
}

// Timing renders a duration, highlighting slow operations in red.
func (s *Styles) Timing(text string, slow bool) string {
	if slow {
		return s.output.String(text).Foreground(s.output.Color("1")).String()
	}
	return s.Dim(text)
}
