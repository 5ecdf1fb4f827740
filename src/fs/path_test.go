package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, "a/b/c", Canonicalize(`a\b/./c`))
	assert.Equal(t, "a/c", Canonicalize("a/b/../c"))
}

func TestRelativeTo(t *testing.T) {
	rel, ok := RelativeTo("src/foo", "src/foo/bar.cc")
	assert.True(t, ok)
	assert.Equal(t, "bar.cc", rel)

	_, ok = RelativeTo("src/foo", "src/bar/baz.cc")
	assert.False(t, ok)
}

func TestCommonPrefixDirs(t *testing.T) {
	assert.Equal(t, "src/foo", CommonPrefixDirs("src/foo/a.cc", "src/foo/bar/b.cc"))
	assert.Equal(t, "", CommonPrefixDirs("src/foo/a.cc", "other/b.cc"))
}

func TestTopLevelDir(t *testing.T) {
	assert.Equal(t, "src", TopLevelDir("src/foo/bar.cc"))
	assert.Equal(t, "", TopLevelDir("bar.cc"))
}
