// Package messages defines the payloads exchanged with parsers: the
// documents and the diagnostics a parse produces, and the protocol used to
// run an external parser executable.
package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Level is the severity of a Message.
type Level string

// Message levels. DEBUG and INFO messages are only shown; WARN and ERROR
// messages decide whether an operation succeeded.
const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown levels.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("message level: %w", err)
	}
	if !Level(s).Valid() {
		return fmt.Errorf("invalid message level %q, expected one of DEBUG, INFO, WARN, ERROR", s)
	}
	*l = Level(s)
	return nil
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SourceLocation points at the file, and optionally the line, a message is
// about.
type SourceLocation struct {
	File string `json:"file"`
	Line *int   `json:"line,omitempty"`
}

// Message is one diagnostic.
type Message struct {
	Level Level `json:"level"`
	// Type is an optional category shown highlighted next to the message,
	// e.g. "ParserError".
	Type           string          `json:"type,omitempty"`
	Message        string          `json:"message"`
	SourceLocation *SourceLocation `json:"sourceLocation,omitempty"`
}

// String renders the message the way the CLI prints it.
func (m Message) String() string {
	var b strings.Builder
	if m.Type != "" {
		b.WriteString(m.Type)
		b.WriteString(": ")
	}
	b.WriteString(m.Message)
	if loc := m.SourceLocation; loc != nil {
		b.WriteString(" (")
		b.WriteString(loc.File)
		if loc.Line != nil {
			fmt.Fprintf(&b, ":%d", *loc.Line)
		}
		b.WriteString(")")
	}
	return b.String()
}

// Messages is an ordered list of diagnostics.
type Messages []Message

// HasErrors reports whether any message has level ERROR, which means the
// operation failed.
func (ms Messages) HasErrors() bool {
	for _, m := range ms {
		if m.Level == LevelError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any message has level WARN.
func (ms Messages) HasWarnings() bool {
	for _, m := range ms {
		if m.Level == LevelWarn {
			return true
		}
	}
	return false
}

// Log writes every message to logger at its level.
func (ms Messages) Log(ctx context.Context, logger *slog.Logger) {
	for _, m := range ms {
		attrs := []any{}
		if m.Type != "" {
			attrs = append(attrs, "type", m.Type)
		}
		if m.SourceLocation != nil {
			attrs = append(attrs, "file", m.SourceLocation.File)
			if m.SourceLocation.Line != nil {
				attrs = append(attrs, "line", *m.SourceLocation.Line)
			}
		}
		logger.Log(ctx, m.Level.slogLevel(), m.Message, attrs...)
	}
}

// Validate checks the messages against the schema.
func (ms Messages) Validate() []error {
	var errs []error
	for i, m := range ms {
		if !m.Level.Valid() {
			errs = append(errs, fmt.Errorf("messages[%d].level: invalid level %q", i, m.Level))
		}
		if m.SourceLocation != nil && m.SourceLocation.File == "" {
			errs = append(errs, fmt.Errorf("messages[%d].sourceLocation.file: required", i))
		}
	}
	return errs
}

// Errorf builds an ERROR message.
func Errorf(format string, args ...any) Message {
	return Message{Level: LevelError, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a WARN message.
func Warnf(format string, args ...any) Message {
	return Message{Level: LevelWarn, Message: fmt.Sprintf(format, args...)}
}

// Infof builds an INFO message.
func Infof(format string, args ...any) Message {
	return Message{Level: LevelInfo, Message: fmt.Sprintf(format, args...)}
}

// At returns a copy of m located at file and, when line is not negative,
// line.
func (m Message) At(file string, line int) Message {
	loc := &SourceLocation{File: file}
	if line >= 0 {
		l := line
		loc.Line = &l
	}
	m.SourceLocation = loc
	return m
}

// WithType returns a copy of m with the given type.
func (m Message) WithType(typ string) Message {
	m.Type = typ
	return m
}
