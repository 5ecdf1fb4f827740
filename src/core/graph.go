package core

import "sort"

// A BuildGraph is the typed graph of BuildTargets and Build edges produced
// by the parser and consumed by every later pass (spec.md §3 Lifecycle).
// It is not safe for concurrent use: the whole pipeline is single-threaded
// and synchronous (spec.md §5).
type BuildGraph struct {
	targets map[string]*BuildTarget
	// missing holds Unknown placeholders that have been referenced but not
	// yet produced by any edge; parsing fails if any remain once the whole
	// manifest has been read (spec.md §4.1, §7).
	missing map[string]*BuildTarget
	builds  []*Build
}

// NewBuildGraph creates an empty graph.
func NewBuildGraph() *BuildGraph {
	return &BuildGraph{
		targets: map[string]*BuildTarget{},
		missing: map[string]*BuildTarget{},
	}
}

// GetOrCreate returns the existing target named name, or creates a new
// Other-classified one and registers it.
func (g *BuildGraph) GetOrCreate(name string) *BuildTarget {
	if t, ok := g.targets[name]; ok {
		return t
	}
	t := NewBuildTarget(name)
	g.targets[name] = t
	return t
}

// Get returns the target named name, or nil.
func (g *BuildGraph) Get(name string) *BuildTarget {
	return g.targets[name]
}

// MarkMissing registers target as an Unknown placeholder pending
// reconciliation against a later-seen output (spec.md §4.1).
func (g *BuildGraph) MarkMissing(target *BuildTarget) {
	target.Class = Unknown
	g.missing[target.Name] = target
}

// Reconcile is called after each Build edge is fully registered: any
// output matching a pending Unknown placeholder flips it to Known
// (spec.md §4.1 "After a Build is handled...").
func (g *BuildGraph) Reconcile(output *BuildTarget) {
	if output.Class == Unknown {
		output.Class = Known
	}
	delete(g.missing, output.Name)
}

// Missing returns the names of all still-Unknown targets. A non-empty
// result after parsing completes is a fatal parse error (spec.md §7).
func (g *BuildGraph) Missing() []string {
	names := make([]string, 0, len(g.missing))
	for name := range g.missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddBuild registers a new edge in traversal order.
func (g *BuildGraph) AddBuild(b *Build) {
	g.builds = append(g.builds, b)
	for _, out := range b.Outputs {
		g.Reconcile(out)
	}
}

// Builds returns all edges in the order they were added.
func (g *BuildGraph) Builds() []*Build {
	return g.builds
}

// AllTargets returns every registered target, sorted by name.
func (g *BuildGraph) AllTargets() BuildTargets {
	out := make(BuildTargets, 0, len(g.targets))
	for _, t := range g.targets {
		out = append(out, t)
	}
	return out.Sort()
}

// Roots returns the set of top-level targets: any direct input of the
// synthetic `all` edge, plus any output used by nothing that isn't filtered
// by the ignored-targets list, minus any whose short name ends in the
// `_tests.cmake` exclusion (spec.md §9 Open Question 1 — preserved
// literally: the policy for `_tests.cmake`-suffixed outputs is exclusion
// only, even though it would otherwise qualify as an unused-output root).
func (g *BuildGraph) Roots(ignored map[string]bool) BuildTargets {
	var roots BuildTargets
	seen := map[string]bool{}
	add := func(t *BuildTarget) {
		t = t.Resolve()
		if t == nil || seen[t.Name] || ignored[t.Name] {
			return
		}
		if hasTestsCMakeSuffix(t.ShortName) {
			return
		}
		seen[t.Name] = true
		roots = append(roots, t)
	}
	if all, ok := g.targets["all"]; ok && all.ProducedBy != nil {
		for _, in := range all.ProducedBy.AllInputs() {
			add(in)
		}
	}
	for _, t := range g.targets {
		if len(t.UsedByBuilds) == 0 && t.Alias == nil {
			add(t)
		}
	}
	roots.Sort()
	return roots
}

func hasTestsCMakeSuffix(shortName string) bool {
	const suffix = "_tests.cmake"
	return len(shortName) >= len(suffix) && shortName[len(shortName)-len(suffix):] == suffix
}
