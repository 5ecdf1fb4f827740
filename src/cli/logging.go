// Package cli holds the ambient flag and logging helpers every ninjabazel
// package shares, adapted from please's src/cli package and trimmed to the
// single verbosity knob a batch tool needs -- no interactive progress
// display, no window-resize handling, no log backend facade, since this
// tool never holds a terminal open across a long-running build.
package cli

import (
	"os"

	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("cli")

// A Verbosity is used as a flag to define logging verbosity; it maps
// directly onto logging.Level (0 = CRITICAL ... 5 = DEBUG).
type Verbosity int

// logFormatter matches please's: a fixed-width time, a 7-char level, then
// the message, with no colour since this tool's output is consumed by a
// build system, not a human terminal.
func logFormatter() logging.Formatter {
	return logging.MustStringFormatter("%{time:15:04:05.000} %{level:7s}: %{message}")
}

// InitLogging sets the global logging level and installs a stderr backend,
// exactly as please's InitLogging does minus the interactive LogBackend.
func InitLogging(verbosity Verbosity) {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, logFormatter())
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.Level(verbosity), "")
	logging.SetBackend(leveled)
}
