package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueUnmarshalFlag(t *testing.T) {
	var kv KeyValue
	require.NoError(t, kv.UnmarshalFlag("foo=bar/baz.h"))
	assert.Equal(t, "foo", kv.Key)
	assert.Equal(t, "bar/baz.h", kv.Value)
}

func TestKeyValueUnmarshalFlagRejectsMissingEquals(t *testing.T) {
	var kv KeyValue
	assert.Error(t, kv.UnmarshalFlag("nope"))
}

func TestKeyValueUnmarshalFlagRejectsEmptyKey(t *testing.T) {
	var kv KeyValue
	assert.Error(t, kv.UnmarshalFlag("=value"))
}

func TestToMapLastWriteWins(t *testing.T) {
	m := ToMap([]KeyValue{{Key: "a", Value: "1"}, {Key: "a", Value: "2"}})
	assert.Equal(t, "2", m["a"])
}
