// Package serr defines the two error kinds the engine ever produces:
// ParseError for lexical/syntactic/post-process failures and EvalError for
// everything that can go wrong while walking a tree. Both carry a source
// location so a host can render a caret under the offending column.
package serr

import (
	"fmt"
	"strings"
)

// Location identifies a point in a source document. File is empty for
// sources parsed without a path (e.g. a string passed directly to
// parse_formula).
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File != "" {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	if l.Line == 0 && l.Column == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0 && l.Column == 0
}

// ParseError is returned by parse_formula, parse_skeleton and the
// post-process pass.
type ParseError struct {
	Loc     Location
	Message string
	Source  string // the full source text, for snippet rendering
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse error: %s", e.Message)
	if !e.Loc.IsZero() {
		fmt.Fprintf(&b, "\n%s", snippet(e.Loc, e.Source))
	}
	return b.String()
}

func NewParseError(loc Location, format string, args ...any) *ParseError {
	return &ParseError{Loc: loc, Message: fmt.Sprintf(format, args...)}
}

func (e *ParseError) WithSource(src string) *ParseError {
	e.Source = src
	return e
}

// ErrorKind classifies an EvalError per spec §7.
type ErrorKind string

const (
	TypeError        ErrorKind = "TypeError"
	ReferenceError   ErrorKind = "ReferenceError"
	ArityError       ErrorKind = "ArityError"
	IndexError       ErrorKind = "IndexError"
	AssignError      ErrorKind = "AssignError"
	ControlFlowError ErrorKind = "ControlFlowError"
	IncludeError     ErrorKind = "IncludeError"
	FilterError      ErrorKind = "FilterError"
	UnpackError      ErrorKind = "UnpackError"
)

// EvalError is returned by formula.Evaluate and skeleton.Render.
type EvalError struct {
	Kind    ErrorKind
	Loc     Location
	Message string
	Cause   error
}

func (e *EvalError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if !e.Loc.IsZero() {
		fmt.Fprintf(&b, " at %s", e.Loc)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	return b.String()
}

func (e *EvalError) Unwrap() error { return e.Cause }

func NewEvalError(kind ErrorKind, loc Location, format string, args ...any) *EvalError {
	return &EvalError{Kind: kind, Loc: loc, Message: fmt.Sprintf(format, args...)}
}

func WrapEvalError(kind ErrorKind, loc Location, cause error, format string, args ...any) *EvalError {
	return &EvalError{Kind: kind, Loc: loc, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithLocation fills in loc on err if err is an *EvalError that doesn't
// already carry one — the "outer node attaches its location" rule from §7.
func WithLocation(err error, loc Location) error {
	if ee, ok := err.(*EvalError); ok && ee.Loc.IsZero() {
		ee.Loc = loc
	}
	return err
}

// snippet renders a Rust/Clang-style pointer at the error column, grounded
// on the teacher's ParseError.createCodeSnippet.
func snippet(loc Location, source string) string {
	if source == "" || loc.Line <= 0 {
		return fmt.Sprintf("  --> %s", loc)
	}
	lines := strings.Split(source, "\n")
	if loc.Line > len(lines) {
		return fmt.Sprintf("  --> %s", loc)
	}
	line := lines[loc.Line-1]

	var b strings.Builder
	fmt.Fprintf(&b, "  --> %s\n", loc)
	b.WriteString("   |\n")
	fmt.Fprintf(&b, "%2d | %s\n", loc.Line, line)
	b.WriteString("   | ")
	if loc.Column > 0 && loc.Column <= len(line)+1 {
		b.WriteString(strings.Repeat(" ", loc.Column-1) + "^")
	}
	return b.String()
}
