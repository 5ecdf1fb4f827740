// Package ninja implements component A of the pipeline: tokenizing and
// loading the textual build description into rules, build edges and a
// variable environment (spec.md §4.1, §6.1).
package ninja

import "strings"

// splitWords splits a logical line on unescaped whitespace, the way ninja's
// own lexer does for build-header tokens: `$ ` is a literal space, `$:` a
// literal colon, `$$` a literal dollar sign, so that paths containing any
// of those characters can still be written as single tokens.
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '$' && i+1 < len(s) {
			switch s[i+1] {
			case ' ', ':', '$':
				cur.WriteByte(s[i+1])
				i++
				continue
			}
		}
		if c == ' ' || c == '\t' {
			flush()
			continue
		}
		cur.WriteByte(c)
	}
	flush()
	return words
}

// findUnescapedColon returns the index of the first unescaped ':' in s, or
// -1 if there isn't one. A ':' is escaped when immediately preceded by an
// odd number of consecutive literal '$' escape markers is not a concern
// here: ninja only ever escapes a colon as the two-byte sequence `$:`.
func findUnescapedColon(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '$' && i+1 < len(s) {
			i++
			continue
		}
		if s[i] == ':' {
			return i
		}
	}
	return -1
}

// unescapeSimple undoes `$ `, `$:` and `$$` escaping in a single already
// word-split token (used for e.g. the path after `include`).
func unescapeSimple(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '$' && i+1 < len(s) {
			switch s[i+1] {
			case ' ', ':', '$':
				b.WriteByte(s[i+1])
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
