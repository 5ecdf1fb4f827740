package ninja

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/please-build/ninjabazel/src/core"
	"github.com/please-build/ninjabazel/src/fs"
)

func newTestParser(t *testing.T, memfs *fs.MemFS) (*Parser, *core.BuildGraph) {
	t.Helper()
	graph := core.NewBuildGraph()
	p := NewParser(memfs, graph, Options{SourceRoot: "src", WorkDir: "build"})
	return p, graph
}

func TestParseSimpleCompileAndLinkEdges(t *testing.T) {
	memfs := fs.NewMemFS()
	memfs.Put("build.ninja", `
rule CXX_COMPILE
  command = clang++ $FLAGS -c $in -o $out

rule CXX_EXECUTABLE
  command = clang++ $LINK_FLAGS $in -o $out
  LINK_FLAGS = -pthread

build build/a.cc.o: CXX_COMPILE src/a.cc
  FLAGS = -Wall

build build/app: CXX_EXECUTABLE build/a.cc.o
`)
	memfs.Put("src/a.cc", "// source")

	p, graph := newTestParser(t, memfs)
	require.NoError(t, p.ParseFile("build.ninja"))
	assert.Empty(t, graph.Missing())

	app := graph.Get("build/app")
	require.NotNil(t, app)
	require.NotNil(t, app.ProducedBy)
	assert.Equal(t, "CXX_EXECUTABLE", app.ProducedBy.Rule.Name)

	linkFlags, ok := app.ProducedBy.Var("LINK_FLAGS")
	assert.True(t, ok)
	assert.Equal(t, "-pthread", linkFlags)

	compile := graph.Get("build/a.cc.o").ProducedBy
	flags, ok := compile.Var("FLAGS")
	assert.True(t, ok)
	assert.Equal(t, "-Wall", flags)

	src := graph.Get("src/a.cc")
	assert.Equal(t, core.File, src.Class)
}

func TestParseReportsUnresolvedReferences(t *testing.T) {
	memfs := fs.NewMemFS()
	memfs.Put("build.ninja", `
rule CXX_COMPILE
  command = clang++ -c $in -o $out

build build/a.cc.o: CXX_COMPILE src/missing.cc
`)
	p, graph := newTestParser(t, memfs)
	require.NoError(t, p.ParseFile("build.ninja"))
	assert.Equal(t, []string{"src/missing.cc"}, graph.Missing())
}

func TestParseFollowsInclude(t *testing.T) {
	memfs := fs.NewMemFS()
	memfs.Put("build.ninja", "include sub/rules.ninja\nbuild build/out: CUSTOM src/in.txt\n")
	memfs.Put("sub/rules.ninja", "rule CUSTOM\n  command = echo $in > $out\n")
	memfs.Put("src/in.txt", "x")

	p, graph := newTestParser(t, memfs)
	require.NoError(t, p.ParseFile("build.ninja"))
	assert.Len(t, p.Rules(), 1)
	assert.NotNil(t, graph.Get("build/out").ProducedBy)
}

func TestPhonyEdgeDropsDirectoryDependencies(t *testing.T) {
	memfs := fs.NewMemFS()
	memfs.Put("src/a.cc", "x")
	memfs.dirs["src/subdir"] = true

	memfs.Put("build.ninja", "build all: phony | src/a.cc src/subdir\n")
	p, graph := newTestParser(t, memfs)
	require.NoError(t, p.ParseFile("build.ninja"))
	all := graph.Get("all")
	require.NotNil(t, all.ProducedBy)
	assert.Empty(t, all.ProducedBy.Inputs)
	for _, d := range all.ProducedBy.Depends {
		assert.NotEqual(t, "src/subdir", d.Name)
	}
}

func TestLineContinuationJoinsLines(t *testing.T) {
	lines := readLogicalLines("FOO = bar $\n  baz\n")
	require.Len(t, lines, 1)
	assert.Equal(t, "FOO = bar baz", lines[0].Text)
}

func TestSplitWordsHandlesEscapes(t *testing.T) {
	words := splitWords(`a$ b.cc c$:d.cc`)
	assert.Equal(t, []string{"a b.cc", "c:d.cc"}, words)
}
