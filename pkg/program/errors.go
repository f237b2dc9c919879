package program

import (
	"errors"
	"fmt"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// Position is a zero-based line/character location in a source file.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// ParserError reports a malformed Code Connect file. It aborts parsing of
// the file it was raised in.
//
// The position is computed from the offending node when the error is
// constructed, so the error stays meaningful after the tree is closed.
type ParserError struct {
	Message  string
	File     string
	Position *Position
	name     string
}

// NewParserError creates a ParserError located at node in file. Both may be
// nil for errors that have no source location.
func NewParserError(message string, file *SourceFile, node *ts.Node) *ParserError {
	err := &ParserError{Message: message, name: "ParserError"}
	if file != nil {
		err.File = file.Path
		if node != nil {
			pos := file.Position(node)
			err.Position = &pos
		}
	}
	return err
}

// Errorf is NewParserError with a format string.
func Errorf(file *SourceFile, node *ts.Node, format string, args ...any) *ParserError {
	return NewParserError(fmt.Sprintf(format, args...), file, node)
}

// Error renders "Name: message" followed by " -> file:line:character" when
// the location is known.
func (e *ParserError) Error() string {
	name := e.name
	if name == "" {
		name = "ParserError"
	}
	msg := name + ": " + e.Message
	if e.File != "" && e.Position != nil {
		msg += fmt.Sprintf(" -> %s:%d:%d", e.File, e.Position.Line, e.Position.Character)
	}
	return msg
}

// Line returns the zero-based line of the error, or -1 when unknown.
func (e *ParserError) Line() int {
	if e.Position == nil {
		return -1
	}
	return e.Position.Line
}

// InternalError reports an invariant violation inside the compiler rather
// than a problem with the user's code.
type InternalError struct {
	*ParserError
}

// NewInternalError creates an InternalError without a source location.
func NewInternalError(format string, args ...any) *InternalError {
	return &InternalError{ParserError: &ParserError{
		Message: fmt.Sprintf(format, args...),
		name:    "InternalError",
	}}
}

// Unwrap exposes the embedded ParserError to errors.As.
func (e *InternalError) Unwrap() error {
	return e.ParserError
}

// IsInternal reports whether err is or wraps an InternalError.
func IsInternal(err error) bool {
	var internal *InternalError
	return errors.As(err, &internal)
}

// AsParserError extracts the ParserError (or the ParserError inside an
// InternalError) from err.
func AsParserError(err error) (*ParserError, bool) {
	var pe *ParserError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
