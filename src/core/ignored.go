package core

// IgnoredRootTargets is the set of CMake/ninja housekeeping phony targets
// that never correspond to a real buildable artifact and must never be
// lowered into a top-level TBS target, even though `Roots` would otherwise
// pick them up as "used by nothing" (spec.md §4.6 "Traversal"). Grounded on
// original_source/ninjabuild.py's IGNORED_TARGETS list verbatim.
var IgnoredRootTargets = map[string]bool{
	"edit_cache":              true,
	"rebuild_cache":           true,
	"clean":                   true,
	"help":                    true,
	"install":                 true,
	"build.ninja":             true,
	"list_install_components": true,
	"install/local":           true,
	"install/strip":           true,
}
