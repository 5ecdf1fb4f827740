package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvLookupChain(t *testing.T) {
	file := NewEnv(nil)
	file.Bind("FLAGS", "-Wall")
	rule := NewEnv(file)
	rule.Bind("command", "clang++ $FLAGS -c $in -o $out")
	edge := NewEnv(rule)

	v, ok := edge.Lookup("command")
	assert.True(t, ok)
	assert.Equal(t, "clang++ $FLAGS -c $in -o $out", v)
}

func TestEnvExpandPreservesPseudoVars(t *testing.T) {
	file := NewEnv(nil)
	file.Bind("FLAGS", "-Wall -O2")
	edge := NewEnv(file)

	got := edge.Expand("clang++ $FLAGS -c $in -o $out")
	assert.Equal(t, "clang++ -Wall -O2 -c $in -o $out", got)
}

func TestEnvExpandBraced(t *testing.T) {
	file := NewEnv(nil)
	file.Bind("NAME", "foo")
	assert.Equal(t, "libfoo.a", file.Expand("lib${NAME}.a"))
}

func TestEnvExpandShadowing(t *testing.T) {
	file := NewEnv(nil)
	file.Bind("X", "file")
	rule := NewEnv(file)
	rule.Bind("X", "rule")
	edge := NewEnv(rule)
	edge.Bind("X", "edge")

	assert.Equal(t, "edge", edge.Expand("$X"))
	assert.Equal(t, "rule", rule.Expand("$X"))
	assert.Equal(t, "file", file.Expand("$X"))
}

func TestEnvExpandMissingVarIsBlank(t *testing.T) {
	file := NewEnv(nil)
	assert.Equal(t, "", file.Expand("$NOPE"))
}
