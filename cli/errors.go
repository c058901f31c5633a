package cli

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xentac/unrealized/formatter"
	"github.com/xentac/unrealized/parser"
)

var (
	errCaretStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// ErrorRenderer renders errors with terminal styling and source context.
type ErrorRenderer struct {
	source    []byte
	formatter *formatter.Formatter
}

// NewErrorRenderer creates a renderer; source may be nil.
func NewErrorRenderer(source []byte) *ErrorRenderer {
	return &ErrorRenderer{source: source, formatter: formatter.New()}
}

// Render formats a single error with styling and whatever context the
// error carries.
func (r *ErrorRenderer) Render(err error) string {
	if e, ok := err.(interface {
		GetPosition() parser.Position
		GetDirective() parser.Directive
		Error() string
	}); ok {
		return r.renderWithDirective(e.Error(), e.GetDirective())
	}

	if e, ok := err.(interface {
		GetPosition() parser.Position
		Error() string
	}); ok {
		if r.source != nil {
			return r.renderWithSourceContext(e.GetPosition(), e.Error(), r.source)
		}
	}

	return err.Error()
}

// RenderAll formats multiple errors separated by blank lines.
func (r *ErrorRenderer) RenderAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf strings.Builder
	for i, err := range errs {
		buf.WriteString(r.Render(err))
		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}
	return buf.String()
}

func (r *ErrorRenderer) renderWithSourceContext(pos parser.Position, message string, source []byte) string {
	var buf strings.Builder

	buf.WriteString(errorStyle.Render(message))
	buf.WriteString("\n\n")

	lines := strings.Split(string(source), "\n")

	startLine := pos.Line - 3
	endLine := pos.Line + 1
	if startLine < 0 {
		startLine = 0
	}
	if endLine >= len(lines) {
		endLine = len(lines) - 1
	}

	for i := startLine; i <= endLine; i++ {
		buf.WriteString("   ")
		buf.WriteString(errContextStyle.Render(lines[i]))
		buf.WriteByte('\n')

		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   ")
			buf.WriteString(strings.Repeat(" ", pos.Column-1))
			buf.WriteString(errCaretStyle.Render("^"))
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

func (r *ErrorRenderer) renderWithDirective(message string, directive parser.Directive) string {
	if directive == nil {
		return message
	}

	var rendered bytes.Buffer
	if err := r.formatter.FormatDirective(directive, &rendered); err != nil {
		return message
	}

	var buf strings.Builder
	buf.WriteString(errorStyle.Render(message))
	buf.WriteString("\n\n")
	for _, line := range strings.Split(strings.TrimRight(rendered.String(), "\n"), "\n") {
		buf.WriteString("   ")
		buf.WriteString(errContextStyle.Render(line))
		buf.WriteByte('\n')
	}
	return buf.String()
}
