package graphops

import "github.com/please-build/ninjabazel/src/core"

// PrunePhony removes grouping-only phony edges from the graph (spec.md
// §4.2). A phony edge is prunable iff every one of its inputs is either a
// leaf (no producer) or itself produced by a (recursively) prunable phony
// edge. Visitation is postorder and each edge is visited at most once, so
// a long chain of phony-of-phony-of-phony edges collapses in one pass.
func PrunePhony(graph *core.BuildGraph) {
	visited := map[*core.Build]bool{}
	var prunable func(b *core.Build) bool
	prunable = func(b *core.Build) bool {
		if b == nil {
			return false
		}
		if visited[b] {
			return b.Pruned
		}
		visited[b] = true
		if !b.Rule.IsPhony() {
			b.Pruned = false
			return false
		}
		ok := true
		for _, in := range b.Inputs {
			producer := in.ProducedBy
			if producer == nil {
				continue // leaf target: vacuously satisfies "or have no inputs"
			}
			if !prunable(producer) {
				ok = false
				break
			}
		}
		b.Pruned = ok
		return ok
	}
	for _, b := range graph.Builds() {
		prunable(b)
	}

	for _, b := range graph.Builds() {
		b.Inputs = expandAndDedup(b.Inputs)
		b.Depends = expandAndDedup(b.Depends)
	}
}

// expandAndDedup replaces every target produced by a pruned phony edge with
// that edge's own (recursively expanded) inputs, preserving order and
// dropping duplicates.
func expandAndDedup(ts core.BuildTargets) core.BuildTargets {
	var out core.BuildTargets
	seen := map[string]bool{}
	var expand func(t *core.BuildTarget)
	expand = func(t *core.BuildTarget) {
		if t.ProducedBy != nil && t.ProducedBy.Pruned {
			for _, in := range t.ProducedBy.Inputs {
				expand(in)
			}
			return
		}
		if seen[t.Name] {
			return
		}
		seen[t.Name] = true
		out = append(out, t)
	}
	for _, t := range ts {
		expand(t)
	}
	return out
}
