package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/please-build/ninjabazel/src/core"
	"github.com/please-build/ninjabazel/src/fs"
	"github.com/please-build/ninjabazel/src/protoresolve"
)

// newCompileEdge wires a CXX_COMPILE-shaped edge producing out.ShortName
// from src.ShortName, with FLAGS/DEFINES bound at edge scope.
func newCompileEdge(graph *core.BuildGraph, src, out, flags, defines string) *core.Build {
	rule := core.NewRule("CXX_COMPILE", core.NewEnv(nil))
	b := core.NewBuild(rule)
	in := graph.GetOrCreate(src)
	in.ShortName = src
	b.AddInput(in)
	o := graph.GetOrCreate(out)
	o.ShortName = out
	b.AddOutput(o)
	if flags != "" {
		b.Env.Bind(core.VarFlags, flags)
	}
	if defines != "" {
		b.Env.Bind(core.VarDefines, defines)
	}
	b.Env.Bind(core.VarCommand, "c++ -c $in -o $out "+flags)
	return b
}

func newArchiveEdge(graph *core.BuildGraph, out string, objs ...string) *core.Build {
	rule := core.NewRule("CXX_STATIC_LIBRARY_LINKER", core.NewEnv(nil))
	b := core.NewBuild(rule)
	for _, obj := range objs {
		in := graph.GetOrCreate(obj)
		in.ShortName = obj
		b.AddInput(in)
	}
	o := graph.GetOrCreate(out)
	o.ShortName = out
	b.AddOutput(o)
	b.Env.Bind(core.VarCommand, "ar rcs $out $in")
	return b
}

func newLinkEdge(graph *core.BuildGraph, out, linkFlags, soname string, deps ...string) *core.Build {
	rule := core.NewRule("CXX_EXECUTABLE_LINKER", core.NewEnv(nil))
	b := core.NewBuild(rule)
	for _, dep := range deps {
		in := graph.GetOrCreate(dep)
		in.ShortName = dep
		b.AddInput(in)
	}
	o := graph.GetOrCreate(out)
	o.ShortName = out
	b.AddOutput(o)
	if linkFlags != "" {
		b.Env.Bind(core.VarLinkFlags, linkFlags)
	}
	if soname != "" {
		b.Env.Bind(core.VarSoname, soname)
	}
	b.Env.Bind(core.VarCommand, "c++ $in -o $out "+linkFlags)
	return b
}

func TestLowerCompileAbsorbsSourceAndFiltersFlags(t *testing.T) {
	graph := core.NewBuildGraph()
	newCompileEdge(graph, "foo.cc", "foo.cc.o", "-Ithird_party/zlib -std=c++17 -Wall", "-DFOO=1")

	target := NewLowerer(core.NewTargetRegistry()).Lower(graph.GetOrCreate("foo.cc.o"))

	require.NotNil(t, target)
	assert.Equal(t, core.KindCCBinary, target.Kind)
	assert.Contains(t, target.Srcs, "foo.cc")
	assert.Contains(t, target.Defines, "FOO=1")
	assert.Contains(t, target.Copts, "-Wall")
	assert.NotContains(t, target.Copts, "-std=c++17")
	assert.Contains(t, target.Includes, "-Ithird_party/zlib")
}

func TestLowerCompileWrapsGeneratedIncludeSentinel(t *testing.T) {
	graph := core.NewBuildGraph()
	newCompileEdge(graph, "foo.cc", "foo.cc.o", "-I/generated/proto", "")

	target := NewLowerer(core.NewTargetRegistry()).Lower(graph.GetOrCreate("foo.cc.o"))

	require.NotNil(t, target)
	assert.Contains(t, target.Includes, `add_bazel_out_prefix("proto")`)
}

func TestLowerArchiveAbsorbsObjectInputs(t *testing.T) {
	graph := core.NewBuildGraph()
	newCompileEdge(graph, "foo.cc", "foo.cc.o", "", "")
	newCompileEdge(graph, "bar.cc", "bar.cc.o", "", "")
	newArchiveEdge(graph, "libfoo.a", "foo.cc.o", "bar.cc.o")

	target := NewLowerer(core.NewTargetRegistry()).Lower(graph.GetOrCreate("libfoo.a"))

	require.NotNil(t, target)
	assert.Equal(t, core.KindCCLibrary, target.Kind)
	assert.Equal(t, "libfoo", target.Name)
	assert.ElementsMatch(t, []string{"foo.cc", "bar.cc"}, target.Srcs)
}

func TestLowerLinkSharedLibraryWithSoname(t *testing.T) {
	graph := core.NewBuildGraph()
	newCompileEdge(graph, "foo.cc", "foo.cc.o", "", "")
	newLinkEdge(graph, "libfoo.so", "-shared", "libfoo.so.1", "foo.cc.o")

	registry := core.NewTargetRegistry()
	target := NewLowerer(registry).Lower(graph.GetOrCreate("libfoo.so"))

	// Consumers of the .so depend on the cc_library; the cc_shared_library
	// wraps it.
	require.NotNil(t, target)
	assert.Equal(t, core.KindCCLibrary, target.Kind)
	assert.Equal(t, "libfoo_cc", target.Name)
	assert.Contains(t, target.Srcs, "foo.cc")
	shared, created := registry.GetOrCreate(core.KindCCSharedLibrary, "shared_libfoo", target.Location)
	assert.False(t, created)
	require.Len(t, shared.Deps, 1)
	assert.Same(t, target, shared.Deps[0].Target)
}

func TestLowerLinkTestSuffix(t *testing.T) {
	graph := core.NewBuildGraph()
	newCompileEdge(graph, "foo_test.cc", "foo_test.cc.o", "", "")
	newLinkEdge(graph, "foo_test", "-lpthread", "", "foo_test.cc.o")

	target := NewLowerer(core.NewTargetRegistry()).Lower(graph.GetOrCreate("foo_test"))

	require.NotNil(t, target)
	assert.Equal(t, core.KindCCTest, target.Kind)
	assert.Contains(t, target.Linkopts, "-lpthread")
}

func TestLowerLinkPlainBinary(t *testing.T) {
	graph := core.NewBuildGraph()
	newCompileEdge(graph, "main.cc", "main.cc.o", "", "")
	newLinkEdge(graph, "myapp", "", "", "main.cc.o")

	target := NewLowerer(core.NewTargetRegistry()).Lower(graph.GetOrCreate("myapp"))

	require.NotNil(t, target)
	assert.Equal(t, core.KindCCBinary, target.Kind)
}

func TestLowerCustomCommandProducesGenruleAndWrapper(t *testing.T) {
	graph := core.NewBuildGraph()
	rule := core.NewRule("CUSTOM_COMMAND", core.NewEnv(nil))
	b := core.NewBuild(rule)
	in := graph.GetOrCreate("gen.py")
	in.ShortName = "gen.py"
	b.AddInput(in)
	out := graph.GetOrCreate("generated.h")
	out.ShortName = "generated.h"
	b.AddOutput(out)
	b.Env.Bind(core.VarCommand, "python gen.py $in $out")

	registry := core.NewTargetRegistry()
	target := NewLowerer(registry).Lower(graph.GetOrCreate("generated.h"))

	require.NotNil(t, target)
	assert.Equal(t, core.KindGenrule, target.Kind)
	assert.Contains(t, target.Outs, "generated.h")
	assert.Contains(t, target.Srcs, "gen.py")
	require.Len(t, target.Tools, 1)
	assert.Contains(t, target.Cmd, "$(location "+target.Tools[0]+")")

	wrapperName := target.Tools[0][1:] // strip leading ":"
	wrapper, created := registry.GetOrCreate(core.KindShBinary, wrapperName, target.Location)
	assert.False(t, created, "wrapper should already exist from lowering")
	require.Len(t, wrapper.Srcs, 1)
	assert.Empty(t, wrapper.Cmd, "sh_binary has no native cmd attribute")

	wrapperBuildName := wrapper.Srcs[0][1:] // strip leading ":"
	wrapperBuild, created := registry.GetOrCreate(core.KindGenrule, wrapperBuildName, target.Location)
	assert.False(t, created, "wrapper-build genrule should already exist from lowering")
	assert.Contains(t, wrapperBuild.Outs, wrapperName+".sh")
	assert.Contains(t, wrapperBuild.Cmd, "python gen.py $in $out")
}

func TestLowerProtocProducesProtoAndCCProtoLibrary(t *testing.T) {
	graph := core.NewBuildGraph()
	rule := core.NewRule("CUSTOM_COMMAND", core.NewEnv(nil))
	b := core.NewBuild(rule)
	in := graph.GetOrCreate("foo.proto")
	in.ShortName = "foo.proto"
	b.AddInput(in)
	h := graph.GetOrCreate("foo.pb.h")
	h.ShortName = "foo.pb.h"
	b.AddOutput(h)
	cc := graph.GetOrCreate("foo.pb.cc")
	cc.ShortName = "foo.pb.cc"
	b.AddOutput(cc)
	b.Env.Bind(core.VarCommand, "protoc --cpp_out=. $in")

	registry := core.NewTargetRegistry()
	target := NewLowerer(registry).Lower(graph.GetOrCreate("foo.pb.h"))

	require.NotNil(t, target)
	assert.Equal(t, core.KindProtoLibrary, target.Kind)
	assert.Contains(t, target.Srcs, "foo.proto")

	ccProto, created := registry.GetOrCreate(core.KindCCProtoLibrary, "foo_cc_proto", target.Location)
	assert.False(t, created)
	require.Len(t, ccProto.Deps, 1)
	assert.Same(t, target, ccProto.Deps[0].Target)
}

func TestLowerProtocProducesGRPCLibraryWhenGRPCOutputsPresent(t *testing.T) {
	graph := core.NewBuildGraph()
	rule := core.NewRule("CUSTOM_COMMAND", core.NewEnv(nil))
	b := core.NewBuild(rule)
	in := graph.GetOrCreate("svc.proto")
	in.ShortName = "svc.proto"
	b.AddInput(in)
	h := graph.GetOrCreate("svc.grpc.pb.h")
	h.ShortName = "svc.grpc.pb.h"
	b.AddOutput(h)
	b.Env.Bind(core.VarCommand, "protoc --grpc_out=. $in")

	registry := core.NewTargetRegistry()
	target := NewLowerer(registry).Lower(graph.GetOrCreate("svc.grpc.pb.h"))

	require.NotNil(t, target)
	grpc, created := registry.GetOrCreate(core.KindCCGRPCLibrary, "svc_cc_grpc", target.Location)
	assert.False(t, created)
	assert.Contains(t, grpc.Srcs, ":"+target.Name)
	ccProto, created := registry.GetOrCreate(core.KindCCProtoLibrary, "svc_cc_proto", target.Location)
	assert.False(t, created)
	require.Len(t, grpc.Deps, 1)
	assert.Same(t, ccProto, grpc.Deps[0].Target)
}

func TestLowerProtocDisambiguatesSameBasenameProtosInOneLocation(t *testing.T) {
	newProtocEdge := func(graph *core.BuildGraph, protoPath, headerPath string) *core.Build {
		rule := core.NewRule("CUSTOM_COMMAND", core.NewEnv(nil))
		b := core.NewBuild(rule)
		in := graph.GetOrCreate(protoPath)
		in.ShortName = protoPath
		b.AddInput(in)
		h := graph.GetOrCreate(headerPath)
		h.ShortName = headerPath
		b.AddOutput(h)
		b.Env.Bind(core.VarCommand, "protoc --cpp_out=. $in")
		return b
	}

	graph := core.NewBuildGraph()
	newProtocEdge(graph, "proto/a/foo.proto", "proto/a/foo.pb.h")
	newProtocEdge(graph, "proto/b/foo.proto", "proto/b/foo.pb.h")

	registry := core.NewTargetRegistry()
	lowerer := NewLowerer(registry)
	first := lowerer.Lower(graph.GetOrCreate("proto/a/foo.pb.h"))
	second := lowerer.Lower(graph.GetOrCreate("proto/b/foo.pb.h"))

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, "proto", first.Location)
	assert.Equal(t, first.Location, second.Location)
	assert.NotEqual(t, first.Name, second.Name, "same-basename protos in one location must not collide")
	assert.Equal(t, "foo_proto", first.Name)
	assert.Equal(t, "b_foo_proto", second.Name)
}

func TestLowerProtocWiresImportedProtoLibraryDep(t *testing.T) {
	memfs := fs.NewMemFS()
	memfs.Put("svc/svc.proto", `syntax = "proto3";
import "common/base.proto";
`)
	memfs.Put("common/base.proto", `syntax = "proto3";`)

	graph := core.NewBuildGraph()
	rule := core.NewRule("CUSTOM_COMMAND", core.NewEnv(nil))
	b := core.NewBuild(rule)
	in := graph.GetOrCreate("svc/svc.proto")
	in.ShortName = "svc/svc.proto"
	b.AddInput(in)
	h := graph.GetOrCreate("svc/svc.pb.h")
	h.ShortName = "svc/svc.pb.h"
	b.AddOutput(h)
	b.Env.Bind(core.VarCommand, "protoc --cpp_out=. $in")
	b.Env.Bind(core.VarFlags, "-I.")

	registry := core.NewTargetRegistry()
	lowerer := NewLowerer(registry)
	lowerer.SetProtoResolver(protoresolve.NewResolver(memfs))

	target := lowerer.Lower(graph.GetOrCreate("svc/svc.pb.h"))

	require.NotNil(t, target)
	require.Len(t, target.Deps, 1)
	assert.Equal(t, "base_proto", target.Deps[0].Target.Name)
	assert.Equal(t, "common", target.Deps[0].Target.Location)
}

func TestLowerIsIdempotentViaAssociatedTarget(t *testing.T) {
	graph := core.NewBuildGraph()
	newCompileEdge(graph, "foo.cc", "foo.cc.o", "", "")
	b := newArchiveEdge(graph, "libfoo.a", "foo.cc.o")

	lowerer := NewLowerer(core.NewTargetRegistry())
	first := lowerer.Lower(graph.GetOrCreate("libfoo.a"))
	second := lowerer.Lower(graph.GetOrCreate("libfoo.a"))

	assert.Same(t, first, second)
	assert.Same(t, first, b.AssociatedTarget)
}

func TestLowerRootsFlattensPhonyGrouping(t *testing.T) {
	graph := core.NewBuildGraph()
	newCompileEdge(graph, "foo.cc", "foo.cc.o", "", "")
	newArchiveEdge(graph, "libfoo.a", "foo.cc.o")

	phonyRule := core.NewRule(core.PhonyRuleName, core.NewEnv(nil))
	all := core.NewBuild(phonyRule)
	lib := graph.GetOrCreate("libfoo.a")
	all.AddInput(lib)
	allTarget := graph.GetOrCreate("all")
	allTarget.ShortName = "all"
	all.AddOutput(allTarget)

	targets := NewLowerer(core.NewTargetRegistry()).LowerRoots(core.BuildTargets{allTarget})

	require.Len(t, targets, 1)
	assert.Equal(t, core.KindCCLibrary, targets[0].Kind)
	assert.Equal(t, "libfoo", targets[0].Name)
}

func TestLowerLeafTargetReturnsNil(t *testing.T) {
	graph := core.NewBuildGraph()
	leaf := graph.GetOrCreate("plain_source.cc")
	leaf.ShortName = "plain_source.cc"

	target := NewLowerer(core.NewTargetRegistry()).Lower(leaf)

	assert.Nil(t, target)
}
