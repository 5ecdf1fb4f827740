package core

import (
	"fmt"
	"strings"
)

// UnresolvedTargetsError is the fatal parse error raised when one or more
// targets remain Unknown after the whole manifest has been parsed
// (spec.md §7 "Parse error — unresolved references").
type UnresolvedTargetsError struct {
	Names []string
}

func (e *UnresolvedTargetsError) Error() string {
	return fmt.Sprintf("%d unresolved target(s):\n  %s", len(e.Names), strings.Join(e.Names, "\n  "))
}

// ParseError wraps a textual build description parse failure with the
// file and line it occurred on.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}
