// Package errors renders validation and parse errors for different
// consumers. Domain error types live with their packages (ledger,
// parser); this package is only the presentation layer, with a text
// renderer in bean-check style and a JSON renderer for machine use.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xentac/unrealized/formatter"
	"github.com/xentac/unrealized/parser"
)

// Formatter renders errors for output.
type Formatter interface {
	// Format renders a single error.
	Format(err error) string

	// FormatAll renders multiple errors.
	FormatAll(errs []error) string
}

// TextFormatter renders errors for command-line output.
type TextFormatter struct {
	formatter     *formatter.Formatter
	sourceContent []byte
}

// TextFormatterOption configures a TextFormatter.
type TextFormatterOption func(*TextFormatter)

// WithSource provides the source text so parse errors can show an
// excerpt around the failing line.
func WithSource(source []byte) TextFormatterOption {
	return func(tf *TextFormatter) {
		tf.sourceContent = source
	}
}

// NewTextFormatter creates a text formatter. A nil directive formatter
// falls back to default formatting.
func NewTextFormatter(f *formatter.Formatter, opts ...TextFormatterOption) *TextFormatter {
	if f == nil {
		f = formatter.New()
	}
	tf := &TextFormatter{formatter: f}
	for _, opt := range opts {
		opt(tf)
	}
	return tf
}

// Format renders a single error, with the offending directive or a
// source excerpt when the error carries enough context.
func (tf *TextFormatter) Format(err error) string {
	if e, ok := err.(interface {
		GetPosition() parser.Position
		GetDirective() parser.Directive
		Error() string
	}); ok {
		return tf.formatWithDirective(e.Error(), e.GetDirective())
	}

	if e, ok := err.(interface {
		GetPosition() parser.Position
		Error() string
	}); ok {
		if tf.sourceContent != nil {
			return tf.formatWithSourceContext(e.GetPosition(), e.Error(), tf.sourceContent)
		}
	}

	return err.Error()
}

// FormatAll renders errors separated by blank lines.
func (tf *TextFormatter) FormatAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf bytes.Buffer
	for i, err := range errs {
		buf.WriteString(tf.Format(err))
		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}
	return buf.String()
}

// formatWithSourceContext shows the message followed by the source
// lines around the error position, with a caret under the column.
func (tf *TextFormatter) formatWithSourceContext(pos parser.Position, message string, source []byte) string {
	var buf bytes.Buffer

	buf.WriteString(message)
	buf.WriteString("\n\n")

	lines := strings.Split(string(source), "\n")

	// pos.Line is 1-based; show two lines before and one after.
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
		buf.WriteString(lines[i])
		buf.WriteByte('\n')

		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   ")
			buf.WriteString(strings.Repeat(" ", pos.Column-1))
			buf.WriteString("^\n")
		}
	}

	return buf.String()
}

// formatWithDirective shows the message followed by the directive the
// error refers to, indented three spaces.
func (tf *TextFormatter) formatWithDirective(message string, directive parser.Directive) string {
	if directive == nil {
		return message
	}

	var rendered bytes.Buffer
	if err := tf.formatter.FormatDirective(directive, &rendered); err != nil {
		return message
	}

	var buf bytes.Buffer
	buf.WriteString(message)
	buf.WriteString("\n\n")
	for _, line := range strings.Split(strings.TrimRight(rendered.String(), "\n"), "\n") {
		buf.WriteString("   ")
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.String()
}

// JSONFormatter renders errors as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// ErrorJSON is the wire shape of a rendered error.
type ErrorJSON struct {
	Type     string         `json:"type"`
	Message  string         `json:"message"`
	Position *PositionJSON  `json:"position,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// PositionJSON is the wire shape of a file position.
type PositionJSON struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// Format renders a single error as a JSON object.
func (jf *JSONFormatter) Format(err error) string {
	data, _ := json.Marshal(jf.toJSON(err))
	return string(data)
}

// FormatAll renders errors as an indented JSON array.
func (jf *JSONFormatter) FormatAll(errs []error) string {
	data, _ := json.MarshalIndent(jf.FormatAllToSlice(errs), "", "  ")
	return string(data)
}

// FormatAllToSlice converts errors to their wire shapes.
func (jf *JSONFormatter) FormatAllToSlice(errs []error) []ErrorJSON {
	result := make([]ErrorJSON, 0, len(errs))
	for _, err := range errs {
		result = append(result, jf.toJSON(err))
	}
	return result
}

func (jf *JSONFormatter) toJSON(err error) ErrorJSON {
	errJSON := ErrorJSON{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Details: make(map[string]any),
	}

	if e, ok := err.(interface{ GetPosition() parser.Position }); ok {
		pos := e.GetPosition()
		errJSON.Position = &PositionJSON{
			Filename: pos.Filename,
			Line:     pos.Line,
			Column:   pos.Column,
		}
	}

	if e, ok := err.(interface{ GetAccount() parser.Account }); ok {
		errJSON.Details["account"] = string(e.GetAccount())
	}
	if e, ok := err.(interface{ GetDate() *parser.Date }); ok {
		if date := e.GetDate(); date != nil {
			errJSON.Details["date"] = date.Format("2006-01-02")
		}
	}

	return errJSON
}
