package lower

import (
	"path"
	"strings"

	"github.com/please-build/ninjabazel/src/core"
	"github.com/please-build/ninjabazel/src/fs"
	"github.com/please-build/ninjabazel/src/protoresolve"
)

// lowerCompile absorbs a compile edge's source into the enclosing target
// under construction, filtering FLAGS/DEFINES per spec.md §4.6's compile
// row. A compile edge never introduces its own TBSTarget; if no enclosing
// target exists yet (a compiled object reached as its own root) it starts
// one.
func (l *Lowerer) lowerCompile(b *core.Build, f *frame, cmd string, stack *[]*frame) {
	if f.current == nil {
		name := binaryName(firstOutputShortName(b))
		target, _ := l.registry.GetOrCreate(core.KindCCBinary, name, f.location)
		f.current = target
	}

	if src := firstInputShortName(b); src != "" {
		f.current.AddSrc(src)
	}

	for _, d := range strings.Fields(b.VarOr(core.VarDefines, "")) {
		f.current.AddDefine(strings.TrimPrefix(d, "-D"))
	}
	for _, flag := range strings.Fields(b.VarOr(core.VarFlags, "")) {
		if strings.HasPrefix(flag, "-I") {
			f.current.Includes = appendUnique(f.current.Includes, includeCopt(strings.TrimPrefix(flag, "-I")))
			continue
		}
		if isFilteredFlag(flag) {
			continue
		}
		f.current.AddCopt(flag)
	}

	out := firstOutputShortName(b)
	switch {
	case strings.HasSuffix(out, ".grpc.pb.cc.o"):
		l.attachGeneratedProto(f.current, out, core.KindCCGRPCLibrary)
	case strings.HasSuffix(out, ".pb.cc.o"):
		l.attachGeneratedProto(f.current, out, core.KindCCProtoLibrary)
	}

	b.AssociatedTarget = f.current
	_ = stack // compile edges have no further frames to push: their one input is a leaf source
}

// attachGeneratedProto wires a compiled protobuf translation unit's
// enclosing library to the cc_proto_library/cc_grpc_library the matching
// proto_library produces, by name convention (spec.md §4.6 compile row).
func (l *Lowerer) attachGeneratedProto(current *core.TBSTarget, objShortName string, kind core.TargetKind) {
	base := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(objShortName, ".o"), ".grpc.pb.cc"), ".pb.cc")
	suffix := "_cc_proto"
	if kind == core.KindCCGRPCLibrary {
		suffix = "_cc_grpc"
	}
	name := l.protoTargetName(base+".proto", current.Location) + suffix
	dep, _ := l.registry.GetOrCreate(kind, name, current.Location)
	current.AddDep(core.DepRef{Target: dep})
}

// lowerProtoc lowers a protoc-invoking edge into a proto_library over its
// .proto sources, plus a cc_proto_library when this same edge declares any
// generated headers and, when they include gRPC ones, a cc_grpc_library
// with the proto_library as srcs and the cc_proto_library as dep (spec.md
// §4.6 protoc row).
func (l *Lowerer) lowerProtoc(b *core.Build, f *frame) {
	protoName := ""
	var srcs []string
	for _, in := range b.Inputs {
		if strings.HasSuffix(in.ShortName, ".proto") {
			srcs = append(srcs, in.ShortName)
			if protoName == "" {
				protoName = l.protoTargetName(in.ShortName, f.location)
			}
		}
	}
	if protoName == "" {
		protoName = l.protoTargetName(firstOutputShortName(b), f.location)
	}

	protoLib, created := l.registry.GetOrCreate(core.KindProtoLibrary, protoName+"_proto", f.location)
	if created {
		protoLib.Srcs = srcs
	}
	f.current = protoLib
	b.AssociatedTarget = protoLib

	if l.protoResolver != nil && created {
		l.addProtoImportDeps(protoLib, srcs, protoIncludeDirs(b))
	}

	needsGRPC, needsPlain := false, false
	for _, out := range b.Outputs {
		switch {
		case strings.HasSuffix(out.ShortName, ".grpc.pb.h") || strings.HasSuffix(out.ShortName, ".grpc.pb.cc"):
			needsGRPC = true
		case strings.HasSuffix(out.ShortName, ".pb.h") || strings.HasSuffix(out.ShortName, ".pb.cc"):
			needsPlain = true
		}
	}
	if needsPlain || needsGRPC {
		ccProto, _ := l.registry.GetOrCreate(core.KindCCProtoLibrary, protoName+"_cc_proto", f.location)
		ccProto.AddDep(core.DepRef{Target: protoLib})
		if needsGRPC {
			grpc, _ := l.registry.GetOrCreate(core.KindCCGRPCLibrary, protoName+"_cc_grpc", f.location)
			grpc.Srcs = appendUnique(grpc.Srcs, ":"+protoLib.Name)
			grpc.AddDep(core.DepRef{Target: ccProto})
		}
	}
}

// protoIncludeDirs extracts the -I search path a protoc edge's FLAGS carry,
// the same way lowerCompile reads -I out of FLAGS for C/C++ edges.
func protoIncludeDirs(b *core.Build) []string {
	var dirs []string
	for _, flag := range strings.Fields(b.VarOr(core.VarFlags, "")) {
		if strings.HasPrefix(flag, "-I") {
			dirs = append(dirs, strings.TrimPrefix(flag, "-I"))
		}
	}
	return dirs
}

// addProtoImportDeps resolves each proto source's `import "..."` closure
// via component D and wires the result onto protoLib: a well-known-types
// import becomes an external dep, anything resolved on disk becomes a dep
// on that file's own proto_library, named and located the same way this
// edge's own proto_library was (spec.md §4.4/§4.6).
func (l *Lowerer) addProtoImportDeps(protoLib *core.TBSTarget, srcs []string, includeDirs []string) {
	for _, src := range srcs {
		deps, err := l.protoResolver.Resolve(src, includeDirs)
		if err != nil {
			continue // soft: a missing proto import doesn't abort lowering (spec.md §7)
		}
		for _, d := range deps {
			if d.Dir == protoresolve.ExternalDir {
				protoLib.AddDep(core.DepRef{External: "@com_google_protobuf//:well_known_types"})
				continue
			}
			if d.Dir == "" {
				continue // unresolved import: soft miss, doesn't abort lowering (spec.md §7)
			}
			depLocation := fs.TopLevelDir(d.Path)
			depName := l.protoTargetName(d.Path, depLocation) + "_proto"
			if depName == protoLib.Name && depLocation == protoLib.Location {
				continue
			}
			dep, _ := l.registry.GetOrCreate(core.KindProtoLibrary, depName, depLocation)
			protoLib.AddDep(core.DepRef{Target: dep})
		}
	}
}

// lowerArchive lowers a static-archive edge (`ar`/`llvm-ar`) into a
// cc_library and absorbs every object input transitively (spec.md §4.6
// "Static archive" row).
func (l *Lowerer) lowerArchive(b *core.Build, f *frame, stack *[]*frame) {
	name := libraryName(firstOutputShortName(b))
	target, created := l.registry.GetOrCreate(core.KindCCLibrary, name, f.location)
	f.current = target
	b.AssociatedTarget = target
	if !created {
		return // already populated by a previous visit
	}
	l.pushAbsorbedInputs(b, f, stack)
}

// lowerLink lowers a compile-and-link edge into cc_binary, cc_test,
// cc_library+cc_shared_library, depending on LINK_FLAGS/SONAME (spec.md
// §4.6 link rows).
func (l *Lowerer) lowerLink(b *core.Build, f *frame, cmd string, stack *[]*frame) {
	name := binaryName(firstOutputShortName(b))
	_, hasLinkFlags := b.Var(core.VarLinkFlags)
	soname, hasSoname := b.Var(core.VarSoname)

	var target *core.TBSTarget
	var created bool
	switch {
	case hasLinkFlags && hasSoname && soname != "":
		libBase := libraryName(name)
		target, created = l.registry.GetOrCreate(core.KindCCLibrary, libBase+"_cc", f.location)
		shared, _ := l.registry.GetOrCreate(core.KindCCSharedLibrary, "shared_"+libBase, f.location)
		shared.AddDep(core.DepRef{Target: target})
	case hasLinkFlags && strings.HasSuffix(name, "_test"):
		target, created = l.registry.GetOrCreate(core.KindCCTest, name, f.location)
	default:
		target, created = l.registry.GetOrCreate(core.KindCCBinary, name, f.location)
	}

	for _, flag := range strings.Fields(b.VarOr(core.VarLinkFlags, "")) {
		target.Linkopts = appendUnique(target.Linkopts, flag)
	}

	f.current = target
	b.AssociatedTarget = target
	if !created {
		return
	}
	l.pushAbsorbedInputs(b, f, stack)
}

// lowerCustomCommand lowers a non-protoc CUSTOM_COMMAND edge into a genrule
// plus a companion sh_binary wrapping the invoked executable (spec.md §4.6
// "Rule CUSTOM_COMMAND" row, scenario S5). The wrapper itself is two
// targets, not one: a genrule materializes the original command text as an
// executable script, and the sh_binary wraps that script as its `srcs` --
// native sh_binary has no `cmd` attribute, only genrule does.
func (l *Lowerer) lowerCustomCommand(b *core.Build, f *frame) {
	name := strings.ReplaceAll(path.Base(firstOutputShortName(b)), ".", "_") + "_command"
	target, created := l.registry.GetOrCreate(core.KindGenrule, name, f.location)
	f.current = target
	b.AssociatedTarget = target
	if !created {
		return
	}

	wrapperName := strings.TrimSuffix(name, "_command") + "_cmd"
	wrapperBuildName := wrapperName + "_build"
	scriptName := wrapperName + ".sh"

	wrapperBuild, wrapperBuildNew := l.registry.GetOrCreate(core.KindGenrule, wrapperBuildName, f.location)
	if wrapperBuildNew {
		wrapperBuild.Outs = appendUnique(wrapperBuild.Outs, scriptName)
		wrapperBuild.Cmd = wrapperScriptCmd(commandOf(b))
	}

	wrapper, wrapperNew := l.registry.GetOrCreate(core.KindShBinary, wrapperName, f.location)
	if wrapperNew {
		wrapper.Srcs = appendUnique(wrapper.Srcs, ":"+wrapperBuildName)
	}

	target.Tools = appendUnique(target.Tools, ":"+wrapperName)
	target.Cmd = "./$(location :" + wrapperName + ")"

	for _, in := range b.Inputs {
		target.Srcs = appendUnique(target.Srcs, in.ShortName)
	}
	for _, out := range b.Outputs {
		target.Outs = appendUnique(target.Outs, out.ShortName)
	}
}

// wrapperScriptCmd is the genrule command that writes command out as an
// executable shell script to its single output (spec.md S5 "a genrule
// builds the wrapper script text").
func wrapperScriptCmd(command string) string {
	return "printf '#!/bin/sh\\nexec " + command + "\\n' > $@ && chmod +x $@"
}

// pushAbsorbedInputs pushes a frame for every input so object-file inputs
// get absorbed into f.current via lowerCompile, while library-shaped
// inputs are wired as independent dependencies rather than absorbed.
func (l *Lowerer) pushAbsorbedInputs(b *core.Build, f *frame, stack *[]*frame) {
	for _, in := range b.Inputs {
		if isObjectInput(in) {
			*stack = append(*stack, &frame{target: in, current: f.current, location: f.location})
			continue
		}
		if ref := l.lowerDependency(in); ref.Key() != "" {
			f.current.AddDep(ref)
		}
	}
}

func firstInputShortName(b *core.Build) string {
	if len(b.Inputs) == 0 {
		return ""
	}
	return b.Inputs[0].ShortName
}

func firstOutputShortName(b *core.Build) string {
	if len(b.Outputs) == 0 {
		return ""
	}
	return b.Outputs[0].ShortName
}

// includeCopt wraps a generated include directory with the helper function
// call TBS needs to find it under the output tree (spec.md §4.6 "Include
// directories").
func includeCopt(dir string) string {
	if strings.HasPrefix(dir, core.GeneratedIncludeSentinel) {
		return "add_bazel_out_prefix(\"" + strings.TrimPrefix(dir, core.GeneratedIncludeSentinel+"/") + "\")"
	}
	return "-I" + dir
}

// protoTargetName derives a deterministic short name from a proto file's
// path p (relative to the source root, directory components included),
// disambiguating against any other proto file already named within the
// same location by progressively prepending ancestor directory components
// of p until the candidate is unique (spec.md §4.6 "Naming", §8.7 "Proto
// naming uniqueness"). Repeated calls for the same (p, location) pair
// always return the same name, so a protoc edge, the compile edge that
// absorbs its generated object, and proto-import resolution agree on one
// name for one file regardless of visitation order.
func (l *Lowerer) protoTargetName(p, location string) string {
	st := l.protoNameState(location)
	if name, ok := st.byPath[p]; ok {
		return name
	}

	stem := strings.TrimSuffix(p, path.Ext(p))
	parts := strings.Split(stem, "/")
	idx := len(parts) - 1
	candidate := parts[idx]
	for {
		owner, taken := st.byName[candidate]
		if !taken || owner == p {
			break
		}
		idx--
		if idx < 0 {
			// Exhausted every ancestor component without finding a free
			// name; fall back to the full stem so a collision becomes
			// impossible rather than merely unlikely.
			candidate = strings.Join(parts, "_")
			break
		}
		candidate = parts[idx] + "_" + candidate
	}

	st.byPath[p] = candidate
	st.byName[candidate] = p
	return candidate
}

func (l *Lowerer) protoNameState(location string) *protoNameState {
	if l.protoNames == nil {
		l.protoNames = map[string]*protoNameState{}
	}
	st, ok := l.protoNames[location]
	if !ok {
		st = &protoNameState{byPath: map[string]string{}, byName: map[string]string{}}
		l.protoNames[location] = st
	}
	return st
}
