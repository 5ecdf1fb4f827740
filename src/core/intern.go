package core

import (
	"fmt"
	"sort"
)

// internKey identifies a TBS target's identity independent of which Build
// edge or visitation path produced it (Design Notes: "object cache keyed by
// (kind,name,location)" replacing the original's module-level singleton
// cache).
type internKey struct {
	kind     TargetKind
	name     string
	location string
}

// A TargetRegistry guarantees exactly one live TBSTarget per (kind, name,
// location) identity, threaded explicitly through the pipeline context
// rather than held in a package-level global (Design Notes: "re-architect
// as explicit dependency-injected registries").
type TargetRegistry struct {
	byKey map[internKey]*TBSTarget
	byLoc map[string][]*TBSTarget // insertion order per location, for deterministic emission
}

// NewTargetRegistry creates an empty registry.
func NewTargetRegistry() *TargetRegistry {
	return &TargetRegistry{
		byKey: map[internKey]*TBSTarget{},
		byLoc: map[string][]*TBSTarget{},
	}
}

// GetOrCreate returns the existing target for (kind, name, location),
// creating it if necessary. The second return value is true iff a new
// target was created, which callers use to decide whether to populate it.
func (r *TargetRegistry) GetOrCreate(kind TargetKind, name, location string) (*TBSTarget, bool) {
	key := internKey{kind: kind, name: name, location: location}
	if t, ok := r.byKey[key]; ok {
		return t, false
	}
	t := NewTBSTarget(kind, name, location)
	r.byKey[key] = t
	r.byLoc[location] = append(r.byLoc[location], t)
	return t, true
}

// Lookup returns the target for (kind, name, location) if one exists.
func (r *TargetRegistry) Lookup(kind TargetKind, name, location string) (*TBSTarget, bool) {
	t, ok := r.byKey[internKey{kind: kind, name: name, location: location}]
	return t, ok
}

// Locations returns every grouping location that has at least one target,
// sorted.
func (r *TargetRegistry) Locations() []string {
	locs := make([]string, 0, len(r.byLoc))
	for loc := range r.byLoc {
		locs = append(locs, loc)
	}
	sort.Strings(locs)
	return locs
}

// TargetsIn returns the targets registered under location, in the order
// they were first created (callers sort by name before emission).
func (r *TargetRegistry) TargetsIn(location string) []*TBSTarget {
	return r.byLoc[location]
}

// String implements fmt.Stringer for debugging/log messages.
func (k internKey) String() string {
	return fmt.Sprintf("%s:%s@%s", k.kind.RuleName(), k.name, k.location)
}
