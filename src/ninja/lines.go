package ninja

import "strings"

// logicalLine is one fully-joined line of the build description: a blank
// line or real content (full-line comments are dropped), along with the
// 1-based line number its content started on (for error messages) and the
// indentation of its first
// physical line (used to tell rule-var/build-var lines apart from
// top-level ones, per spec.md §6.1's "(leading WS)").
type logicalLine struct {
	Text    string
	Line    int
	Indent  bool
	IsBlank bool
}

// readLogicalLines splits input into logical lines, joining continuations
// (an unescaped '$' immediately before the newline, spec.md §4.1) and
// dropping full-line comments. Indentation and leading/trailing whitespace
// of the *first* physical line of each logical line is preserved in Text
// except for the join itself, which simply concatenates the continued
// physical lines without the `$`+newline.
func readLogicalLines(input string) []logicalLine {
	physical := strings.Split(strings.TrimSuffix(input, "\n"), "\n")
	var out []logicalLine
	lineNo := 0
	for i := 0; i < len(physical); i++ {
		lineNo++
		raw := strings.TrimRight(physical[i], "\r")
		startLine := lineNo
		indent := len(raw) > 0 && (raw[0] == ' ' || raw[0] == '\t')
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			out = append(out, logicalLine{Line: startLine, IsBlank: true})
			continue
		}
		if trimmed[0] == '#' {
			continue
		}
		var b strings.Builder
		b.WriteString(raw)
		for endsWithUnescapedDollar(raw) && i+1 < len(physical) {
			i++
			lineNo++
			// Drop the trailing '$' before joining the next physical line.
			joined := b.String()
			b.Reset()
			b.WriteString(strings.TrimSuffix(joined, "$"))
			next := strings.TrimRight(physical[i], "\r")
			b.WriteString(strings.TrimLeft(next, " \t"))
		}
		out = append(out, logicalLine{Text: b.String(), Line: startLine, Indent: indent})
	}
	return out
}

// endsWithUnescapedDollar reports whether raw ends in a '$' that is a line
// continuation marker rather than part of a `$$` literal-dollar escape.
func endsWithUnescapedDollar(raw string) bool {
	if !strings.HasSuffix(raw, "$") {
		return false
	}
	n := 0
	for i := len(raw) - 1; i >= 0 && raw[i] == '$'; i-- {
		n++
	}
	return n%2 == 1
}
