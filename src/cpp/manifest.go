// Package cpp implements component C: resolving a C/C++ source or header
// file's #include graph against a search-path model that understands
// CCImports and the generator's own generated-files manifest (spec.md §4.3).
package cpp

import "github.com/please-build/ninjabazel/src/core"

// GeneratedEntry records who produced a generated file and where it lives
// on disk while still ephemeral (spec.md §4.5 step 6).
type GeneratedEntry struct {
	ProducingBuild *core.Build
	EphemeralRoot  string
}

// GeneratedManifest maps a generated file's short name to the edge that
// produced it, populated incrementally by the generator executor (E) as
// commands run and consumed here and by the proto resolver (D).
type GeneratedManifest struct {
	entries map[string]GeneratedEntry
}

// NewGeneratedManifest creates an empty manifest.
func NewGeneratedManifest() *GeneratedManifest {
	return &GeneratedManifest{entries: map[string]GeneratedEntry{}}
}

// Add registers name as produced by entry, overwriting any prior entry of
// the same name (a later generator run takes precedence).
func (m *GeneratedManifest) Add(name string, entry GeneratedEntry) {
	m.entries[name] = entry
}

// Lookup returns the entry for name, if any.
func (m *GeneratedManifest) Lookup(name string) (GeneratedEntry, bool) {
	e, ok := m.entries[name]
	return e, ok
}
