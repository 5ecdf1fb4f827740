package core

// A CCImport describes one prebuilt native library as declared by the
// external imports manifest (src/imports). The core treats this as an
// opaque, already-validated record; parsing and validating the manifest
// text is explicitly out of scope for the core (spec.md §1, §7).
type CCImport struct {
	Name string
	// StaticLib and SharedLib are paths to the prebuilt archive/.so,
	// respectively. Either, both, or neither may be set (a header-only
	// import has neither).
	StaticLib string
	SharedLib string
	// System marks an import as provided by the toolchain/OS rather than
	// vendored in the repository (e.g. libpthread).
	System bool
	// Headers is the set of header paths this import exposes.
	Headers []string
	// IncludeDirs is the set of -I directories this import's headers
	// live under.
	IncludeDirs []string
	// Deps names other CCImports (or fully qualified external targets)
	// this import depends on.
	Deps []string
	// SkipWrapping selects between a direct cc_import and a
	// cc_library+cc_import wrapped pair when this import is lowered
	// (spec.md §3).
	SkipWrapping bool
	// Origin is the grouping location this import's TBS target is
	// emitted under, e.g. "third_party/cc" or an "@repo" sentinel.
	Origin string
}

// HasHeader reports whether header is one of this import's declared
// headers. Used by the header resolver to attribute a resolved include to
// an import (spec.md §4.3 step 3b/3c).
func (c *CCImport) HasHeader(header string) bool {
	for _, h := range c.Headers {
		if h == header {
			return true
		}
	}
	return false
}
