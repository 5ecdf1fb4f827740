// Package lower implements component F: classifying each build edge
// reachable from a top-level target and lowering it into the TBS tagged-
// variant target model (spec.md §4.6).
package lower

import (
	"path"
	"strings"

	"github.com/please-build/ninjabazel/src/core"
	"github.com/please-build/ninjabazel/src/fs"
	"github.com/please-build/ninjabazel/src/protoresolve"
)

// A Lowerer walks the graph from each top-level target, producing TBSTarget
// values registered in a TargetRegistry keyed by (kind, name, location) so
// that a library reached via two different paths lowers to one object
// (spec.md §9 "singletons... re-architect as explicit dependency-injected
// registries").
type Lowerer struct {
	registry      *core.TargetRegistry
	protoResolver *protoresolve.Resolver

	// protoNames tracks, per grouping location, the distinct derived name
	// assigned to each proto file visited so far, so the protoc edge, the
	// compile edge absorbing its generated object, and proto-import
	// resolution all agree on one name for the same file (spec.md §4.6
	// "Naming", §8.7 "Proto naming uniqueness").
	protoNames map[string]*protoNameState
}

// protoNameState is the per-location bookkeeping protoTargetName consults:
// byPath caches the name already assigned to a full proto path, byName is
// the reverse index used to detect a collision against a different path.
type protoNameState struct {
	byPath map[string]string
	byName map[string]string
}

// NewLowerer creates a Lowerer writing into registry.
func NewLowerer(registry *core.TargetRegistry) *Lowerer {
	return &Lowerer{registry: registry, protoNames: map[string]*protoNameState{}}
}

// SetProtoResolver installs the component D resolver a protoc edge uses to
// turn its sources' `import "..."` statements into proto_library deps
// (spec.md §4.4/§4.6). Left nil, protoc edges still lower correctly but
// without cross-package proto_library deps -- the caller opts in once a
// resolver and its CLI-chosen include dirs are available.
func (l *Lowerer) SetProtoResolver(r *protoresolve.Resolver) {
	l.protoResolver = r
}

// frame is one stack entry in the explicit worklist a construction chain
// walks: a phony-boundary crossing or a compile/archive absorption step
// mutates only the frame's own `current`, never a parent's (spec.md §9
// "Visitor with mutable context... re-architect as an explicit stack of
// frames").
type frame struct {
	target        *core.BuildTarget
	current       *core.TBSTarget
	location      string
	phonyAncestor bool
}

// Lower lowers the edge (if any) producing root and everything it absorbs,
// returning the resulting TBSTarget, or nil if root isn't produced by any
// edge (a plain source file used directly as a top-level target, for
// instance).
func (l *Lowerer) Lower(root *core.BuildTarget) *core.TBSTarget {
	root = root.Resolve()
	f := &frame{target: root, location: fs.TopLevelDir(root.ShortName)}
	l.run(f)
	return f.current
}

// run drains an explicit stack of frames belonging to one construction
// chain: phony pass-throughs and compile/archive absorptions push further
// frames that share `current`; a dependency that is its own TBS target
// identity is lowered independently via lowerDependency instead.
func (l *Lowerer) run(start *frame) {
	stack := []*frame{start}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		l.step(f, &stack)
	}
}

// LowerRoots lowers every top-level target, flattening any phony edge that
// still mixes real targets with grouping-only ones (PrunePhony already
// collapsed the groups that were purely phony) so each concrete target is
// lowered exactly once.
func (l *Lowerer) LowerRoots(roots core.BuildTargets) []*core.TBSTarget {
	var out []*core.TBSTarget
	seen := map[string]bool{}
	var walk func(t *core.BuildTarget)
	walk = func(t *core.BuildTarget) {
		t = t.Resolve()
		if t == nil || seen[t.Name] {
			return
		}
		seen[t.Name] = true
		if t.ProducedBy != nil && t.ProducedBy.Rule.IsPhony() {
			for _, in := range t.ProducedBy.AllInputs() {
				walk(in)
			}
			return
		}
		if target := l.Lower(t); target != nil {
			out = append(out, target)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}

func (l *Lowerer) step(f *frame, stack *[]*frame) {
	t := f.target.Resolve()
	b := t.ProducedBy
	if b == nil {
		return // leaf: a file, external import, or manually-generated path
	}
	if b.AssociatedTarget != nil {
		f.current = b.AssociatedTarget
		return
	}

	if b.Rule.IsPhony() {
		for _, in := range b.AllInputs() {
			*stack = append(*stack, &frame{target: in, current: f.current, location: f.location, phonyAncestor: true})
		}
		return
	}

	cmd := commandOf(b)
	trig := classifyCommand(cmd)
	switch {
	case trig == triggerProtoc:
		l.lowerProtoc(b, f)
	case b.Rule.Name == customCommandRule:
		l.lowerCustomCommand(b, f)
	case trig == triggerCompile:
		l.lowerCompile(b, f, cmd, stack)
	case trig == triggerArchive:
		l.lowerArchive(b, f, stack)
	default:
		l.lowerLink(b, f, cmd, stack)
	}
}

const customCommandRule = "CUSTOM_COMMAND"

func commandOf(b *core.Build) string {
	if cmd, ok := b.Var(core.VarCommand); ok {
		return cmd
	}
	cmd, _ := b.Var(core.VarCommandUpper)
	return cmd
}

// lowerDependency lowers dep (a distinct TBS target identity, e.g. a
// library this edge links against rather than absorbs) independently and
// returns a DepRef to it.
func (l *Lowerer) lowerDependency(dep *core.BuildTarget) core.DepRef {
	dep = dep.Resolve()
	if dep.Class == core.ExternalPrebuilt && dep.Handle != nil {
		return core.DepRef{External: externalRef(dep.Handle)}
	}
	target := l.Lower(dep)
	if target == nil {
		return core.DepRef{}
	}
	return core.DepRef{Target: target}
}

func externalRef(imp *core.CCImport) string {
	origin := imp.Origin
	if origin == "" {
		origin = "third_party/cc"
	}
	if strings.HasPrefix(origin, "@") {
		return origin + "//:" + imp.Name
	}
	return "//" + origin + ":" + imp.Name
}

// isObjectInput reports whether in is the output of a compile edge this
// link/archive edge should absorb (walk further in the same frame) rather
// than reference as an independent dependency.
func isObjectInput(in *core.BuildTarget) bool {
	return strings.HasSuffix(in.Name, ".o")
}

// libraryName derives a TBS target's short name from a BuildTarget's short
// name, applying the `lib` prefix rule (spec.md §4.6 "Naming").
func libraryName(shortName string) string {
	base := strings.TrimSuffix(path.Base(shortName), path.Ext(shortName))
	base = strings.TrimPrefix(base, "lib")
	if strings.HasPrefix(base, "lib") {
		return base
	}
	return "lib" + base
}

func binaryName(shortName string) string {
	return strings.TrimSuffix(path.Base(shortName), path.Ext(shortName))
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}
