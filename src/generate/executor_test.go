package generate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/please-build/ninjabazel/src/core"
	"github.com/please-build/ninjabazel/src/cpp"
	"github.com/please-build/ninjabazel/src/fs"
)

func newTestExecutor(t *testing.T) (*Executor, *cpp.GeneratedManifest) {
	t.Helper()
	manifest := cpp.NewGeneratedManifest()
	resolver := cpp.NewResolver(fs.OS{}, nil, nil, manifest)
	return NewExecutor(t.TempDir(), manifest, resolver), manifest
}

func newCustomCommandBuild(command, inputPath, outShortName string) *core.Build {
	rule := core.NewRule(CustomCommandRule, core.NewEnv(nil))
	b := core.NewBuild(rule)
	if inputPath != "" {
		in := core.NewBuildTarget(inputPath)
		in.ShortName = inputPath
		b.AddInput(in)
	}
	out := core.NewBuildTarget(outShortName)
	out.ShortName = outShortName
	b.AddOutput(out)
	b.Env.Bind(core.VarCommand, command)
	return b
}

func TestRunExecutesCommandAndRegistersOutput(t *testing.T) {
	tmpSrc := t.TempDir()
	inputPath := filepath.Join(tmpSrc, "in.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte("hello"), 0644))

	b := newCustomCommandBuild("cp $in $out", inputPath, "out.txt")
	e, manifest := newTestExecutor(t)

	require.NoError(t, e.Run(b, t.TempDir()))

	entry, ok := manifest.Lookup("out.txt")
	require.True(t, ok)
	data, err := os.ReadFile(filepath.Join(entry.EphemeralRoot, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestRunIsIdempotentWithinOneWorkdir(t *testing.T) {
	tmpSrc := t.TempDir()
	inputPath := filepath.Join(tmpSrc, "in.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte("hello"), 0644))

	b := newCustomCommandBuild("cp $in $out", inputPath, "out.txt")
	e, _ := newTestExecutor(t)
	workdir := t.TempDir()

	require.NoError(t, e.Run(b, workdir))
	require.NoError(t, e.Run(b, workdir))
}

func TestRunSkipsCosmeticCommand(t *testing.T) {
	b := newCustomCommandBuild("cmake -E copy $in $out", "in.txt", "out.txt")
	e, manifest := newTestExecutor(t)

	require.NoError(t, e.Run(b, t.TempDir()))
	_, ok := manifest.Lookup("out.txt")
	assert.False(t, ok)
}

func TestRunShortCircuitsProtocCommand(t *testing.T) {
	b := newCustomCommandBuild("protoc --cpp_out=$out $in", "foo.proto", "foo.pb.cc")
	e, manifest := newTestExecutor(t)

	require.NoError(t, e.Run(b, t.TempDir()))
	entry, ok := manifest.Lookup("foo.pb.cc")
	require.True(t, ok)
	assert.Same(t, b, entry.ProducingBuild)
	assert.Empty(t, entry.EphemeralRoot, "protoc outputs are registered without running the command")
}

func TestRunIgnoresNonCustomCommandRule(t *testing.T) {
	rule := core.NewRule("CXX_COMPILE", core.NewEnv(nil))
	b := core.NewBuild(rule)
	e, manifest := newTestExecutor(t)

	require.NoError(t, e.Run(b, t.TempDir()))
	_, ok := manifest.Lookup("whatever")
	assert.False(t, ok)
}
