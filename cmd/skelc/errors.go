package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/aledsdavies/skelc/pkgs/serr"
)

// CLIError is a usage-level error the CLI raises itself, distinct from a
// serr.ParseError/EvalError surfaced by the engine. Modeled on the teacher's
// cli/errors.go CLIError.
type CLIError struct {
	Message string
	Hint    string
}

func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// FormatError prints err to w after an "Error: " prefix, printing a
// *CLIError's hint on its own "Hint: " line; a serr.ParseError or
// serr.EvalError prints its own Error() text, location included.
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}
	switch e := err.(type) {
	case *serr.ParseError:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), e.Error())
	case *serr.EvalError:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), e.Error())
	case *CLIError:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), e.Message)
		if e.Hint != "" {
			_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), e.Hint)
		}
	default:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
	}
}
