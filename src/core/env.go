// Package core holds the typed build graph that the rest of ninjabazel
// operates on: BuildTarget and Build nodes, the Rule table, imported
// prebuilt libraries, and the TBS output model produced by lowering.
package core

import "strings"

// An Env is a chain of variable scopes, used to resolve $NAME / ${NAME}
// references in a build description. Edge scope shadows rule scope which
// shadows file scope, matching the lookup order the ninja grammar defines
// for build-var / rule-var bindings (spec.md §4.1).
type Env struct {
	parent *Env
	vars   map[string]string
}

// NewEnv creates a new scope chained to parent. parent may be nil for the
// outermost (file) scope.
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, vars: map[string]string{}}
}

// Bind sets a variable in this scope only.
func (e *Env) Bind(name, value string) {
	e.vars[name] = value
}

// Lookup walks this scope and its ancestors looking for name.
func (e *Env) Lookup(name string) (string, bool) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return "", false
}

// Expand resolves $NAME and ${NAME} references in value against this scope.
// $in, $out and $TARGET_FILE are left untouched: they belong to a later
// expansion stage that has the edge's concrete inputs/outputs available
// (spec.md §4.1, §6.1).
func (e *Env) Expand(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '$' || i == len(value)-1 {
			b.WriteByte(c)
			continue
		}
		rest := value[i+1:]
		if rest[0] == '$' {
			// $$ is a literal dollar sign.
			b.WriteByte('$')
			i++
			continue
		}
		name, width, ok := parseVarRef(rest)
		if !ok {
			b.WriteByte(c)
			continue
		}
		if isPreserved(name) {
			b.WriteByte('$')
			if strings.HasPrefix(rest, "{") {
				b.WriteString("{" + name + "}")
			} else {
				b.WriteString(name)
			}
			i += width
			continue
		}
		if v, ok := e.Lookup(name); ok {
			b.WriteString(e.Expand(v))
		}
		i += width
	}
	return b.String()
}

// preservedVars are pseudo-variables that are only meaningful once an edge's
// concrete inputs/outputs are known; the Env layer must not try to resolve
// them (spec.md §4.1, §6.1).
var preservedVars = map[string]bool{
	"in": true, "out": true, "TARGET_FILE": true,
	"in_newline": true,
}

func isPreserved(name string) bool {
	return preservedVars[name]
}

// parseVarRef parses a $NAME or ${NAME} reference starting right after the
// '$'. It returns the variable name, the number of bytes consumed from rest
// (not counting the leading '$'), and whether a reference was found at all.
func parseVarRef(rest string) (name string, width int, ok bool) {
	if rest == "" {
		return "", 0, false
	}
	if rest[0] == '{' {
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return "", 0, false
		}
		return rest[1:end], end + 1, true
	}
	if rest[0] == '$' {
		// $$ is a literal dollar sign.
		return "", 0, false
	}
	i := 0
	for i < len(rest) && isIdentByte(rest[i]) {
		i++
	}
	if i == 0 {
		return "", 0, false
	}
	return rest[:i], i, true
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
