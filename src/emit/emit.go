// Package emit implements component G: turning the TBSTargets a Lowerer
// produced into BUILD.bazel files, one per grouping location (spec.md
// §4.7). Grounded on please's src/format package, which hands the same
// bazelbuild/buildtools/build AST to build.Format rather than
// hand-rolling a Starlark printer.
package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bazelbuild/buildtools/build"

	"github.com/please-build/ninjabazel/src/core"
)

// helperLoad is the load statement generated-include copts depend on.
const helperLoad = "//build_defs:cc.bzl"

// loadsByKind maps each TargetKind to the `load(...)` statement its rule
// keyword comes from, mirroring the per-language .bzl files a real TBS
// workspace defines (spec.md §4.7 step 1).
var loadsByKind = map[core.TargetKind]string{
	core.KindCCLibrary:       "//build_defs:cc.bzl",
	core.KindCCSharedLibrary: "//build_defs:cc.bzl",
	core.KindCCBinary:        "//build_defs:cc.bzl",
	core.KindCCTest:          "//build_defs:cc.bzl",
	core.KindCCImport:        "//build_defs:cc.bzl",
	core.KindProtoLibrary:    "//build_defs:proto.bzl",
	core.KindCCProtoLibrary:  "//build_defs:proto.bzl",
	core.KindCCGRPCLibrary:   "//build_defs:proto.bzl",
	core.KindGenrule:         "//build_defs:genrule.bzl",
	core.KindShBinary:        "//build_defs:sh.bzl",
	core.KindPyBinary:        "//build_defs:py.bzl",
}

// PostHook rewrites a stanza's lines after it's otherwise fully built,
// registered by (name, location) (spec.md §4.7 step 5).
type PostHook func(lines *build.CallExpr)

// Emitter assembles and serializes BUILD.bazel files from a TargetRegistry.
type Emitter struct {
	hooks map[string]PostHook
}

// NewEmitter creates an Emitter with no post-processing hooks registered.
func NewEmitter() *Emitter {
	return &Emitter{hooks: map[string]PostHook{}}
}

// RegisterHook installs hook for the target named name at location,
// overwriting any previously registered hook for that pair.
func (e *Emitter) RegisterHook(location, name string, hook PostHook) {
	e.hooks[location+"\x00"+name] = hook
}

// EmitLocation renders every non-empty target at location into one
// BUILD.bazel file's bytes, in the fixed field order and stanza order
// spec.md §4.7 prescribes.
func (e *Emitter) EmitLocation(location string, targets []*core.TBSTarget) ([]byte, error) {
	live := make([]*core.TBSTarget, 0, len(targets))
	for _, t := range targets {
		if !t.IsEmpty() {
			live = append(live, t)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Name < live[j].Name })

	f := &build.File{Path: location + "/BUILD.bazel", Type: build.TypeBuild}
	for _, load := range sortedLoads(live) {
		f.Stmt = append(f.Stmt, load)
	}
	f.Stmt = append(f.Stmt, placeholderList("common_copts"))
	f.Stmt = append(f.Stmt, placeholderList("common_defines"))
	f.Stmt = append(f.Stmt, placeholderList("common_linkopts"))

	for _, t := range live {
		rule := e.buildRule(t)
		f.Stmt = append(f.Stmt, rule.Call)
	}
	return build.Format(f), nil
}

// sortedLoads returns one load statement per distinct kind present in
// targets, sorted by the comparator in spec.md §4.7 step 4 (same-dir,
// then source-tree, then external -- loads are always source-tree or
// external, never same-dir, so this reduces to a plain lexicographic sort
// with the helper load folded in whenever a generated-include copt needs it).
func sortedLoads(targets []*core.TBSTarget) []build.Expr {
	seen := map[string]map[string]bool{} // load path -> set of symbols
	needsHelper := false
	for _, t := range targets {
		path, ok := loadsByKind[t.Kind]
		if !ok {
			continue
		}
		if seen[path] == nil {
			seen[path] = map[string]bool{}
		}
		seen[path][t.Kind.RuleName()] = true
		for _, inc := range t.Includes {
			if strings.HasPrefix(inc, "add_bazel_out_prefix(") {
				needsHelper = true
			}
		}
	}
	if needsHelper {
		if seen[helperLoad] == nil {
			seen[helperLoad] = map[string]bool{}
		}
		seen[helperLoad]["add_bazel_out_prefix"] = true
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	stmts := make([]build.Expr, 0, len(paths))
	for _, p := range paths {
		symbols := make([]string, 0, len(seen[p]))
		for s := range seen[p] {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		stmts = append(stmts, loadStmt(p, symbols))
	}
	return stmts
}

func loadStmt(path string, symbols []string) *build.LoadStmt {
	load := &build.LoadStmt{Module: &build.StringExpr{Value: path}}
	for _, s := range symbols {
		load.From = append(load.From, &build.Ident{Name: s})
		load.To = append(load.To, &build.Ident{Name: s})
	}
	return load
}

func placeholderList(name string) *build.AssignExpr {
	return &build.AssignExpr{
		LHS: &build.Ident{Name: name},
		Op:  "=",
		RHS: &build.ListExpr{},
	}
}

// buildRule assembles one TBS stanza in the fixed field order spec.md
// §4.7 step 2 prescribes: name, srcs, hdrs, copts, defines, linkopts,
// data, deps.
func (e *Emitter) buildRule(t *core.TBSTarget) *build.Rule {
	rule := build.NewRule(t.Kind.RuleName(), t.Name)
	setStrings(rule, "srcs", t.Srcs)
	setStrings(rule, "hdrs", t.Hdrs)
	setStrings(rule, "copts", append(append([]string(nil), t.Includes...), t.Copts...))
	setStrings(rule, "defines", t.Defines)
	setStrings(rule, "linkopts", t.Linkopts)
	setStrings(rule, "data", t.Data)
	setDeps(rule, "deps", t.Deps, t.Location)

	switch t.Kind {
	case core.KindGenrule:
		setStrings(rule, "outs", t.Outs)
		setStrings(rule, "tools", t.Tools)
		if t.Cmd != "" {
			rule.SetAttr("cmd", &build.StringExpr{Value: t.Cmd})
		}
		if t.LocalExec {
			rule.SetAttr("local", &build.Ident{Name: "True"})
		}
	case core.KindCCImport:
		if t.ImportStatic != "" {
			rule.SetAttr("static_library", &build.StringExpr{Value: t.ImportStatic})
		}
		if t.ImportShared != "" {
			rule.SetAttr("shared_library", &build.StringExpr{Value: t.ImportShared})
		}
		rule.SetAttr("visibility", &build.ListExpr{List: []build.Expr{
			&build.StringExpr{Value: "//visibility:public"},
		}})
	case core.KindProtoLibrary:
		if t.StripImportPrefix != "" {
			rule.SetAttr("strip_import_prefix", &build.StringExpr{Value: t.StripImportPrefix})
		}
	}

	if hook, ok := e.hooks[t.Location+"\x00"+t.Name]; ok {
		hook(rule.Call)
	}
	return rule
}

func setStrings(rule *build.Rule, attr string, values []string) {
	if len(values) == 0 {
		return
	}
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	exprs := make([]build.Expr, len(sorted))
	for i, v := range sorted {
		if strings.HasPrefix(v, "add_bazel_out_prefix(") {
			// A generated include dir is a call to the loaded helper, not a string.
			exprs[i] = &build.Ident{Name: v}
			continue
		}
		exprs[i] = &build.StringExpr{Value: v}
	}
	rule.SetAttr(attr, &build.ListExpr{List: exprs})
}

// setDeps sets attr to a ListExpr of dependency reference strings, resolved
// relative to location and sorted same-dir, then source-tree, then
// external (spec.md §4.7 steps 3-4).
func setDeps(rule *build.Rule, attr string, deps []core.DepRef, location string) {
	if len(deps) == 0 {
		return
	}
	refs := make([]string, len(deps))
	for i, d := range deps {
		refs[i] = formatDepRef(d, location)
	}
	sort.Slice(refs, func(i, j int) bool {
		ri, rj := depRank(refs[i]), depRank(refs[j])
		if ri != rj {
			return ri < rj
		}
		return refs[i] < refs[j]
	})
	exprs := make([]build.Expr, len(refs))
	for i, r := range refs {
		exprs[i] = &build.StringExpr{Value: r}
	}
	rule.SetAttr(attr, &build.ListExpr{List: exprs})
}

// formatDepRef renders dep as TBS expects it, relative to location (spec.md
// §4.7 step 3): a same-location reference uses a leading `:`, a sibling
// location `//location:name`, and an external import keeps its `@repo//`
// prefix untouched.
func formatDepRef(dep core.DepRef, location string) string {
	if dep.Target == nil {
		return dep.External
	}
	if dep.Target.Location == location {
		return ":" + dep.Target.Name
	}
	return fmt.Sprintf("//%s:%s", dep.Target.Location, dep.Target.Name)
}

// depRank orders dependency references same-dir, then source-tree, then
// external, for the comparator spec.md §4.7 step 4 defines.
func depRank(ref string) int {
	switch {
	case strings.HasPrefix(ref, ":"):
		return 0
	case strings.HasPrefix(ref, "//"):
		return 1
	default:
		return 2
	}
}
