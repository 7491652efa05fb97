package compiler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSyntax is returned by ParseFast when the input does not parse.
	ErrSyntax = errors.New("syntax error")

	// ErrTrailingInput marks a parse that stopped before the end of the
	// input with nothing able to continue from there.
	ErrTrailingInput = errors.New("unexpected trailing input")
)

// SyntaxError is the diagnostic returned by Parse.
type SyntaxError struct {
	Pos      Position
	Line     string   // source line containing Pos
	Expected []string // alternatives the grammar would have accepted at Pos
	Err      error    // ErrTrailingInput, or nil for a mismatch inside a ruleset
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "line %d, column %d: ", e.Pos.Line, e.Pos.Column)
	switch {
	case e.Err != nil && len(e.Expected) == 0:
		b.WriteString(e.Err.Error())
	case len(e.Expected) > 0:
		b.WriteString("expected ")
		b.WriteString(joinAlternatives(e.Expected))
		if e.Err != nil {
			fmt.Fprintf(&b, " (%v)", e.Err)
		}
	default:
		b.WriteString("syntax error")
	}
	b.WriteString("\n    ")
	b.WriteString(e.Line)
	b.WriteString("\n    ")
	b.WriteString(strings.Repeat(" ", e.Pos.Column-1))
	b.WriteString("^")
	return b.String()
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// joinAlternatives renders ["a", "b", "c"] as "a, b or c".
func joinAlternatives(alts []string) string {
	if len(alts) == 1 {
		return alts[0]
	}
	return strings.Join(alts[:len(alts)-1], ", ") + " or " + alts[len(alts)-1]
}
