package core

import "sort"

// A Classification describes what kind of thing a BuildTarget names
// (spec.md §3).
type Classification int

const (
	// Other is the default classification for a node that hasn't been
	// examined yet (distinct from Unknown: Other is never registered as
	// missing, it's just "not yet looked at").
	Other Classification = iota
	// Unknown is a transient placeholder for a referenced output that
	// hasn't been produced by any build edge seen so far. It must not
	// survive parsing (spec.md invariant on BuildTarget).
	Unknown
	// Known is a target that is (or will be) produced by exactly one Build
	// edge in this graph.
	Known
	// ExternalPrebuilt is a path that exists on disk but resolves outside
	// both the source root and the generator's working directory.
	ExternalPrebuilt
	// ManuallyGenerated is a path matched against the user-supplied
	// manually-generated map (-m/--manually_generated).
	ManuallyGenerated
	// File is a path that exists on disk at parse time, inside the source
	// root or working directory.
	File
)

func (c Classification) String() string {
	switch c {
	case Unknown:
		return "unknown"
	case Known:
		return "known"
	case ExternalPrebuilt:
		return "external-prebuilt"
	case ManuallyGenerated:
		return "manually-generated"
	case File:
		return "file"
	default:
		return "other"
	}
}

// GeneratedIncludeSentinel marks an include directory as referring to the
// generated-files manifest rather than a real filesystem path. Grounded on
// the `/generated` prefix used throughout original_source/cppfileparser.py.
const GeneratedIncludeSentinel = "/generated"

// IncludeKey is a (header name, include directory) pair as resolved by the
// header/proto resolvers. Dir may be GeneratedIncludeSentinel.
type IncludeKey struct {
	Header string
	Dir    string
}

// A BuildTarget identifies one output, input or dependency node in the
// graph (spec.md §3). Equality and hashing are by Name; ordering is
// lexicographic by Name.
type BuildTarget struct {
	// Name is the fully qualified identifier for this node.
	Name string
	// ShortName is Name relative to either the source root or the
	// generator's working directory, optionally prefixed by
	// GroupingLocation.
	ShortName string
	// GroupingLocation is the top-level directory this target's emitted
	// TBS target, if any, will be grouped under.
	GroupingLocation string

	// ProducedBy is the Build edge that produces this target, if any.
	ProducedBy *Build
	// UsedByBuilds is the ordered sequence of Build edges that consume
	// this target as an input or dependency.
	UsedByBuilds []*Build

	Class  Classification
	IsFile bool

	// Includes is the set of (header, include-dir) pairs this target
	// (when it's a C/C++ source or generated header) was found to
	// transitively include.
	Includes map[IncludeKey]bool

	// ExplicitDeps are dependencies added outside of the normal
	// input/depends edges, e.g. ones synthesised by the header resolver
	// when it discovers a CCImport or generated-file dependency.
	ExplicitDeps []*BuildTarget

	// Alias points at the canonical BuildTarget this one stands in for,
	// once alias resolution (spec.md §4.2) has run. After resolution no
	// reachable target should have a non-nil Alias (spec.md §8 invariant 6).
	Alias *BuildTarget

	TopLevel bool

	// Handle is set when this target was classified as ExternalPrebuilt
	// and matched against a CCImport record.
	Handle *CCImport

	// TBSParams holds small per-target hints consumed during lowering,
	// e.g. "strip_import_prefix" for a proto_library.
	TBSParams map[string]string
}

// NewBuildTarget creates a target in the Other classification, ready to be
// classified by the parser.
func NewBuildTarget(name string) *BuildTarget {
	return &BuildTarget{
		Name:     name,
		Includes: map[IncludeKey]bool{},
	}
}

// Resolve follows the alias chain (guaranteed length <= 1 post-resolution)
// and returns the canonical target.
func (t *BuildTarget) Resolve() *BuildTarget {
	if t == nil {
		return nil
	}
	if t.Alias != nil {
		return t.Alias.Resolve()
	}
	return t
}

// AddInclude records that this target (or the generated/cc file it
// represents) was found to include header via dir.
func (t *BuildTarget) AddInclude(header, dir string) {
	if t.Includes == nil {
		t.Includes = map[IncludeKey]bool{}
	}
	t.Includes[IncludeKey{Header: header, Dir: dir}] = true
}

// AddExplicitDep appends dep to ExplicitDeps if not already present.
func (t *BuildTarget) AddExplicitDep(dep *BuildTarget) {
	for _, d := range t.ExplicitDeps {
		if d == dep {
			return
		}
	}
	t.ExplicitDeps = append(t.ExplicitDeps, dep)
}

// addUsedBy records that build consumes this target; idempotent.
func (t *BuildTarget) addUsedBy(build *Build) {
	for _, b := range t.UsedByBuilds {
		if b == build {
			return
		}
	}
	t.UsedByBuilds = append(t.UsedByBuilds, build)
}

// BuildTargets is a sortable, de-duplicatable slice of *BuildTarget, ordered
// lexicographically by Name (spec.md §3).
type BuildTargets []*BuildTarget

func (t BuildTargets) Len() int           { return len(t) }
func (t BuildTargets) Less(i, j int) bool { return t[i].Name < t[j].Name }
func (t BuildTargets) Swap(i, j int)      { t[i], t[j] = t[j], t[i] }

// Sort sorts targets in place by Name and returns it for chaining.
func (t BuildTargets) Sort() BuildTargets {
	sort.Sort(t)
	return t
}

// AddUnique appends target to the slice if no target of the same Name is
// already present, preserving the set semantics the spec calls for on
// inputs/outputs lists.
func (t BuildTargets) AddUnique(target *BuildTarget) BuildTargets {
	for _, existing := range t {
		if existing.Name == target.Name {
			return t
		}
	}
	return append(t, target)
}
