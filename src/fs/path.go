package fs

import (
	"path"
	"strings"
)

// Canonicalize cleans a path and converts it to use forward slashes,
// matching the single canonical form every component of the pipeline
// compares paths by (component H, spec.md §2 row H).
func Canonicalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean(p)
}

// RelativeTo returns p expressed relative to root if p is underneath root,
// and whether that was possible at all.
func RelativeTo(root, p string) (string, bool) {
	root = Canonicalize(root)
	p = Canonicalize(p)
	if root == "." || root == "" {
		return strings.TrimPrefix(p, "/"), true
	}
	if p == root {
		return ".", true
	}
	prefix := root + "/"
	if strings.HasPrefix(p, prefix) {
		return strings.TrimPrefix(p, prefix), true
	}
	return "", false
}

// CommonPrefixDirs returns the shared leading path components of a and b,
// joined back into a path. Used by the lowerer to find the shortest
// grouping location that covers a set of related files (component H).
func CommonPrefixDirs(a, b string) string {
	as := strings.Split(Canonicalize(a), "/")
	bs := strings.Split(Canonicalize(b), "/")
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	i := 0
	for i < n && as[i] == bs[i] {
		i++
	}
	return strings.Join(as[:i], "/")
}

// TopLevelDir returns the first path component of p, i.e. the grouping
// location a target's short name implies (spec.md §4.7).
func TopLevelDir(p string) string {
	p = Canonicalize(p)
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}
