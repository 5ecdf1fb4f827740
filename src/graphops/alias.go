// Package graphops implements component B's post-parse graph rewrites:
// alias resolution and phony pruning (spec.md §4.2).
package graphops

import "github.com/please-build/ninjabazel/src/core"

// ResolveAliases finds, for every Build edge with more than one output,
// pairs where one output's raw Name is exactly the other's ShortName (the
// "full workdir-prefixed name" and "short relative name" pairing spec.md
// §4.2 describes), marks the short one as an alias of the full one, and
// retargets every reference to the alias in place.
//
// After this pass, no target reachable from a top-level has a non-nil
// Alias (spec.md §8 invariant 6): retargeting replaces the pointer
// everywhere it's held, so nothing should still observe the alias once
// this returns.
func ResolveAliases(graph *core.BuildGraph) {
	for _, b := range graph.Builds() {
		if len(b.Outputs) < 2 {
			continue
		}
		for _, short := range b.Outputs {
			for _, full := range b.Outputs {
				if short == full || short.Alias != nil {
					continue
				}
				if short.Name != full.Name && short.Name == full.ShortName {
					short.Alias = full
				}
			}
		}
	}
	for _, t := range graph.AllTargets() {
		if t.Alias == nil {
			continue
		}
		canonical := t.Resolve()
		retarget(t, canonical)
	}
}

// retarget rewrites every Build that references alias (as input, depend or
// output) to reference canonical instead, and merges
// alias's UsedByBuilds into canonical's.
func retarget(alias, canonical *core.BuildTarget) {
	for _, b := range alias.UsedByBuilds {
		replaceInSlice(&b.Inputs, alias, canonical)
		replaceInSlice(&b.Depends, alias, canonical)
		for i, d := range b.Outputs {
			if d == alias {
				b.Outputs[i] = canonical
			}
		}
		canonical.UsedByBuilds = append(canonical.UsedByBuilds, b)
	}
	alias.UsedByBuilds = nil
	if alias.ProducedBy != nil {
		for i, out := range alias.ProducedBy.Outputs {
			if out == alias {
				alias.ProducedBy.Outputs[i] = canonical
			}
		}
	}
}

func replaceInSlice(ts *core.BuildTargets, from, to *core.BuildTarget) {
	for i, t := range *ts {
		if t == from {
			(*ts)[i] = to
		}
	}
}
