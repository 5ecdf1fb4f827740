package lower

import "strings"

// trigger tags which lowering rule in spec.md §4.6's table an edge matches.
type trigger int

const (
	triggerNone trigger = iota
	triggerProtoc
	triggerCustomCommand
	triggerCompile
	triggerArchive
	triggerLinkShared
	triggerLinkTest
	triggerLinkBinary
)

// classifyCommand implements the "textual command classification by
// substring match" design note: a small first-match dispatcher over data,
// not a chain of if/else scattered through the lowerer.
var commandClassifiers = []struct {
	trigger trigger
	match   func(cmd string) bool
}{
	{triggerProtoc, func(cmd string) bool { return strings.Contains(cmd, "protoc") }},
	{triggerArchive, func(cmd string) bool {
		return hasToken(cmd, "ar") || hasToken(cmd, "llvm-ar")
	}},
	{triggerCompile, func(cmd string) bool { return hasFlag(cmd, "-c") }},
}

func classifyCommand(cmd string) trigger {
	for _, c := range commandClassifiers {
		if c.match(cmd) {
			return c.trigger
		}
	}
	return triggerNone
}

// hasToken reports whether tok appears as the command's first whitespace-
// separated word (the invoked program), ignoring a leading path.
func hasToken(cmd, tok string) bool {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return false
	}
	prog := fields[0]
	if i := strings.LastIndexByte(prog, '/'); i >= 0 {
		prog = prog[i+1:]
	}
	return prog == tok
}

// hasFlag reports whether flag appears as a standalone command-line token.
func hasFlag(cmd, flag string) bool {
	for _, f := range strings.Fields(cmd) {
		if f == flag {
			return true
		}
	}
	return false
}

// filteredFlagPrefixes are compiler flags the lowerer drops when absorbing
// FLAGS into a target's copts (spec.md §4.6 compile row).
var filteredFlagPrefixes = []string{"-std=", "-g", "-O", "-march", "-mtune", "-fPIC"}

func isFilteredFlag(flag string) bool {
	for _, p := range filteredFlagPrefixes {
		if strings.HasPrefix(flag, p) {
			return true
		}
	}
	return false
}
