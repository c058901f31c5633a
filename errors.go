package unrealized

import (
	"fmt"

	"github.com/xentac/unrealized/parser"
)

// Error reports a problem with how the transform was invoked. The input
// directives are returned unchanged alongside it.
type Error struct {
	pos     parser.Position
	Message string
}

// NewSubaccountError reports an invalid subaccount argument.
func NewSubaccountError(subaccount string) *Error {
	return &Error{
		Message: fmt.Sprintf("invalid subaccount name %q", subaccount),
	}
}

func (e *Error) Error() string {
	return "unrealized: " + e.Message
}

// GetPosition returns the source position, zero for configuration errors
// that have no location in the file.
func (e *Error) GetPosition() parser.Position {
	return e.pos
}
