package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTargetsSortByName(t *testing.T) {
	ts := BuildTargets{
		NewBuildTarget("b"),
		NewBuildTarget("a"),
		NewBuildTarget("c"),
	}
	ts.Sort()
	assert.Equal(t, []string{"a", "b", "c"}, []string{ts[0].Name, ts[1].Name, ts[2].Name})
}

func TestAddUniqueDedupsByName(t *testing.T) {
	var ts BuildTargets
	a1 := NewBuildTarget("a")
	a2 := NewBuildTarget("a")
	ts = ts.AddUnique(a1)
	ts = ts.AddUnique(a2)
	assert.Len(t, ts, 1)
	assert.Same(t, a1, ts[0])
}

func TestResolveFollowsAliasChain(t *testing.T) {
	canonical := NewBuildTarget("canonical")
	alias := NewBuildTarget("alias")
	alias.Alias = canonical

	assert.Same(t, canonical, alias.Resolve())
	assert.Same(t, canonical, canonical.Resolve())
}

func TestAddExplicitDepIdempotent(t *testing.T) {
	target := NewBuildTarget("t")
	dep := NewBuildTarget("dep")
	target.AddExplicitDep(dep)
	target.AddExplicitDep(dep)
	assert.Len(t, target.ExplicitDeps, 1)
}
