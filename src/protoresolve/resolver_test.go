package protoresolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/please-build/ninjabazel/src/fs"
)

func TestResolveLocalImportRecurses(t *testing.T) {
	memfs := fs.NewMemFS()
	memfs.Put("proto/a.proto", `import "proto/b.proto";`+"\n")
	memfs.Put("proto/b.proto", "message B {}\n")

	r := NewResolver(memfs)
	deps, err := r.Resolve("proto/a.proto", []string{"."})
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "proto/b.proto", deps[0].Path)
	assert.Equal(t, ".", deps[0].Dir)
}

func TestResolveGoogleImportIsExternal(t *testing.T) {
	memfs := fs.NewMemFS()
	memfs.Put("proto/a.proto", `import "google/protobuf/any.proto";`+"\n")

	r := NewResolver(memfs)
	deps, err := r.Resolve("proto/a.proto", nil)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, ExternalDir, deps[0].Dir)
	assert.Equal(t, "google/protobuf/any.proto", deps[0].Path)
}

func TestResolveUnresolvedImportRecordedWithEmptyDir(t *testing.T) {
	memfs := fs.NewMemFS()
	memfs.Put("proto/a.proto", `import "missing/c.proto";`+"\n")

	r := NewResolver(memfs)
	deps, err := r.Resolve("proto/a.proto", []string{"."})
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "", deps[0].Dir)
}
