// Package diag implements the diagnostic accumulator shared by every
// compiler stage: a closed taxonomy of diagnostic kinds, a Sink that
// collects them instead of aborting at first error, and the stable
// "<file>:<row>:<col>: <message>" line format spec.md's worked scenarios
// print.
package diag

import (
	"fmt"

	"micc/token"
)

// Kind is the closed taxonomy a Diagnostic is tagged with.
type Kind int

const (
	Lex      Kind = iota // malformed token text
	Syn                  // grammar violation
	Type                 // type-checking failure
	Scope                // D1/D2 name resolution failure
	Const                // constant-folding failure (e.g. E_DIVIDE_BY_ZERO)
	Fwd                  // unresolved NameRef at deferred-list close
	Module               // import/cycle/manifest failure
	Emit                 // emitter invariant violation surfaced as a diagnostic
	Internal             // compiler defect, not user error
)

func (k Kind) String() string {
	switch k {
	case Lex:
		return "LEX"
	case Syn:
		return "SYN"
	case Type:
		return "TYPE"
	case Scope:
		return "SCOPE"
	case Const:
		return "CONST"
	case Fwd:
		return "FWD"
	case Module:
		return "MODULE"
	case Emit:
		return "EMIT"
	case Internal:
		return "INTERNAL"
	default:
		return "Kind(?)"
	}
}

// Diagnostic is one accumulated error or warning.
type Diagnostic struct {
	Kind     Kind
	Message  string
	Pos      token.Position
	IsError  bool
}

// Error satisfies the error interface with the stable output line format.
func (d *Diagnostic) Error() string {
	if d.Pos.IsZero() {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Kind, d.Message)
}

// Sink accumulates diagnostics across a single compilation session
// (spec.md §5: single-threaded, so no mutex is needed -- unlike the
// teacher's concurrent Logger).
type Sink struct {
	diags      []*Diagnostic
	errorCount int
}

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Errorf records an error-severity diagnostic and returns it so callers can
// attach it to a returned error value.
func (s *Sink) Errorf(kind Kind, pos token.Position, format string, args ...interface{}) *Diagnostic {
	d := &Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos, IsError: true}
	s.diags = append(s.diags, d)
	s.errorCount++
	return d
}

// Warnf records a warning-severity diagnostic.
func (s *Sink) Warnf(kind Kind, pos token.Position, format string, args ...interface{}) *Diagnostic {
	d := &Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos, IsError: false}
	s.diags = append(s.diags, d)
	return d
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (s *Sink) HasErrors() bool { return s.errorCount > 0 }

// ErrorCount returns the number of error-severity diagnostics recorded.
func (s *Sink) ErrorCount() int { return s.errorCount }

// Diagnostics returns every diagnostic recorded so far, in recording order.
func (s *Sink) Diagnostics() []*Diagnostic { return s.diags }

// AbortError is raised by Abort for an INTERNAL-kind failure: a compiler
// defect rather than a diagnosable user error. Callers at the top of the
// call stack (cmd/micc) recover it and exit non-zero instead of letting a
// bare panic escape.
type AbortError struct {
	Message string
}

func (e *AbortError) Error() string { return "internal compiler error: " + e.Message }

// Abort records an INTERNAL diagnostic and panics with an *AbortError. Use
// this only for defensive assertions that should be unreachable in a
// correct compiler (e.g. an emitter invariant violation that slipped past
// the parser's own bookkeeping).
func (s *Sink) Abort(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.diags = append(s.diags, &Diagnostic{Kind: Internal, Message: msg, IsError: true})
	s.errorCount++
	panic(&AbortError{Message: msg})
}
