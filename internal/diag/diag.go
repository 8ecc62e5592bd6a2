// Package diag is the domain error model: a SentraError-style shape
// (Type/Message/Location/CallStack/Source, fluent With* builders)
// generalized into the error kinds this compiler's stages raise.
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Kind is the domain-level error kind, not a Go type name.
type Kind string

const (
	UndeclaredIdentifier   Kind = "UndeclaredIdentifier"
	DuplicateSymbol        Kind = "DuplicateSymbol"
	InvalidUnaryOperator   Kind = "InvalidUnaryOperator"
	InvalidBinaryOperator  Kind = "InvalidBinaryOperator"
	InvalidPointerAssign   Kind = "InvalidPointerAssignment"
	InvalidVectorAssign    Kind = "InvalidVectorAssignment"
	OutOfRangeVector       Kind = "OutOfRangeVector"
	AllocationOverflow     Kind = "AllocationOverflow"
	InvalidRvalueType      Kind = "InvalidRvalueType"
	InvalidPath            Kind = "InvalidPath"
)

// SourceSpan is a location in the original B source, taken from the
// companion symbol map when one is available.
type SourceSpan struct {
	Line, Column, EndLine, EndColumn int
}

func (s SourceSpan) known() bool { return s.Line != 0 || s.Column != 0 }

// Error is the one error type every pipeline stage raises.
type Error struct {
	Kind     Kind
	Message  string
	Symbol   string
	Function string
	Span     SourceSpan
	cause    error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: errors.New(message)}
}

func (e *Error) WithSymbol(name string) *Error     { e.Symbol = name; return e }
func (e *Error) WithFunction(name string) *Error    { e.Function = name; return e }
func (e *Error) WithSpan(span SourceSpan) *Error    { e.Span = span; return e }
func (e *Error) StackTrace() string                 { return fmt.Sprintf("%+v", e.cause) }

// Error implements the error interface and the exact user-visible wire
// format: "Credence Error :: <message>".
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("Credence Error :: ")
	sb.WriteString(e.Message)
	if e.Symbol != "" {
		sb.WriteString(fmt.Sprintf(" (symbol: %s)", e.Symbol))
	}
	if e.Function != "" {
		sb.WriteString(fmt.Sprintf(" (in %s)", e.Function))
	}
	if e.Span.known() {
		sb.WriteString(fmt.Sprintf(" at %d:%d", e.Span.Line, e.Span.Column))
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.cause }

// ReportStack writes the stack trace recorded at the error's construction
// site; the CLI calls it after Report when --debug is set. Errors that
// reached the caller through fmt.Errorf wrapping are unwrapped back to the
// diag.Error that carries the trace.
func ReportStack(w io.Writer, err error) {
	var e *Error
	if errors.As(err, &e) {
		fmt.Fprintln(w, e.StackTrace())
		return
	}
	fmt.Fprintf(w, "%+v\n", err)
}
