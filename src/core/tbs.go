package core

// A TargetKind tags which TBS rule a Target represents (spec.md §3,
// Design Notes: "tagged variant over target kinds" rather than polymorphic
// dispatch).
type TargetKind int

const (
	KindCCLibrary TargetKind = iota
	KindCCSharedLibrary
	KindCCBinary
	KindCCTest
	KindProtoLibrary
	KindCCProtoLibrary
	KindCCGRPCLibrary
	KindGenrule
	KindShBinary
	KindPyBinary
	KindExportsFile
	KindCCImport
)

// RuleName is the TBS rule keyword this kind lowers to, used both for the
// emitted stanza and for deriving which `load` statement a location needs.
func (k TargetKind) RuleName() string {
	switch k {
	case KindCCLibrary:
		return "cc_library"
	case KindCCSharedLibrary:
		return "cc_shared_library"
	case KindCCBinary:
		return "cc_binary"
	case KindCCTest:
		return "cc_test"
	case KindProtoLibrary:
		return "proto_library"
	case KindCCProtoLibrary:
		return "cc_proto_library"
	case KindCCGRPCLibrary:
		return "cc_grpc_library"
	case KindGenrule:
		return "genrule"
	case KindShBinary:
		return "sh_binary"
	case KindPyBinary:
		return "py_binary"
	case KindExportsFile:
		return "exports_files"
	case KindCCImport:
		return "cc_import"
	default:
		return "unknown_rule"
	}
}

// A DepRef is a dependency reference from one TBS target to another, or to
// something this module doesn't itself own (an external prebuilt import, a
// `google/*` proto, etc.). Exactly one of Target or External is set
// (spec.md §4.7).
type DepRef struct {
	Target   *TBSTarget
	External string // pre-formatted, e.g. "@ext//:openssl" or "@com_google_protobuf//:timestamp_proto"
}

// Key returns the string this ref sorts and dedups by.
func (d DepRef) Key() string {
	if d.Target != nil {
		return d.Target.Name
	}
	return d.External
}

// A TBSTarget is the sum type over every TBS rule this tool can emit
// (spec.md §3). Not every field is meaningful for every Kind; lowering
// only ever populates the fields its trigger in §4.6 calls for.
type TBSTarget struct {
	Kind     TargetKind
	Name     string
	Location string // grouping location (top-level directory), spec.md §4.7

	Srcs     []string
	Hdrs     []string
	Deps     []DepRef
	Includes []string // -I copts, including add_bazel_out_prefix(...)-wrapped ones
	Copts    []string
	Defines  []string
	Linkopts []string
	Data     []string

	// genrule / sh_binary fields.
	Outs      []string
	OutsAlias map[string]string
	Cmd       string
	Tools     []string
	LocalExec bool

	// cc_import fields.
	ImportStatic   string
	ImportShared   string
	WrappedLibrary *TBSTarget // present when a CCImport needs a cc_library wrapper

	// proto_library fields.
	StripImportPrefix string

	Visibility []string
}

// NewTBSTarget creates a target of the given kind/name/location.
func NewTBSTarget(kind TargetKind, name, location string) *TBSTarget {
	return &TBSTarget{Kind: kind, Name: name, Location: location}
}

// AddSrc appends a source if not already present.
func (t *TBSTarget) AddSrc(src string) {
	t.Srcs = appendUnique(t.Srcs, src)
}

// AddHdr appends a header if not already present.
func (t *TBSTarget) AddHdr(hdr string) {
	t.Hdrs = appendUnique(t.Hdrs, hdr)
}

// AddCopt appends a copt if not already present.
func (t *TBSTarget) AddCopt(copt string) {
	t.Copts = appendUnique(t.Copts, copt)
}

// AddDefine appends a define if not already present.
func (t *TBSTarget) AddDefine(define string) {
	t.Defines = appendUnique(t.Defines, define)
}

// AddDep appends a dependency ref if no ref with the same key is present.
func (t *TBSTarget) AddDep(ref DepRef) {
	for _, d := range t.Deps {
		if d.Key() == ref.Key() {
			return
		}
	}
	t.Deps = append(t.Deps, ref)
}

// IsEmpty reports whether this target has no srcs, hdrs, deps, outs or
// command -- i.e. would be a "phantom" target that spec.md §8 invariant 3
// forbids emitting.
func (t *TBSTarget) IsEmpty() bool {
	return len(t.Srcs) == 0 && len(t.Hdrs) == 0 && len(t.Deps) == 0 &&
		len(t.Outs) == 0 && t.Cmd == "" && t.ImportStatic == "" && t.ImportShared == ""
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}
