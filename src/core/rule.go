package core

// PhonyRuleName is the implicit rule name ninja gives no-op grouping edges.
const PhonyRuleName = "phony"

// Well-known rule variable names the lowerer inspects directly (spec.md §3).
const (
	VarCommand           = "command"
	VarCommandUpper       = "COMMAND"
	VarLinkFlags          = "LINK_FLAGS"
	VarSoname             = "SONAME"
	VarDefines            = "DEFINES"
	VarFlags              = "FLAGS"
	VarIncludes           = "INCLUDES"
	VarCMakeNinjaWorkdir  = "cmake_ninja_workdir"
)

// A Rule is a named command template plus whatever variables were bound at
// rule scope (spec.md §3). The phony rule is implicit and is never registered
// in the rule table; see IsPhony.
type Rule struct {
	Name string
	// Env is this rule's variable scope, chained to the file scope it was
	// declared in. Build edges using this rule chain their own edge scope
	// off of it (spec.md §4.1: edge → rule → file lookup order).
	Env *Env
}

// NewRule creates a rule bound to the given file-level scope.
func NewRule(name string, fileScope *Env) *Rule {
	return &Rule{Name: name, Env: NewEnv(fileScope)}
}

// IsPhony reports whether this is (or behaves as) the builtin phony rule.
func (r *Rule) IsPhony() bool {
	return r == nil || r.Name == PhonyRuleName
}
