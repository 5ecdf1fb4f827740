// Package protoresolve implements component D: resolving a .proto file's
// `import "..."` closure the same way component C resolves #include, but
// against proto's simpler single-namespace search path (spec.md §4.4).
package protoresolve

import (
	"path"
	"regexp"
	"strings"

	"github.com/please-build/ninjabazel/src/fs"
)

// importRe matches `import "foo/bar.proto";`, optionally `import public`.
var importRe = regexp.MustCompile(`^\s*import\s+(?:public\s+)?"([^"]+)"\s*;`)

// ExternalDir is the include-dir sentinel recorded for a well-known-types
// import that isn't resolved on disk (spec.md §4.4).
const ExternalDir = "@"

// Dep is one resolved or external proto import, paired with the -I
// directory that resolved it (or ExternalDir).
type Dep struct {
	Path string
	Dir  string
}

// A Resolver walks `.proto` import graphs against a fixed list of -I
// directories. One Resolver is shared across a parse run so the per-path
// result cache pays off across files.
type Resolver struct {
	fsys fs.FileSystem

	cache map[string][]Dep
	seen  map[string]bool
}

// NewResolver creates a Resolver.
func NewResolver(fsys fs.FileSystem) *Resolver {
	return &Resolver{fsys: fsys, cache: map[string][]Dep{}, seen: map[string]bool{}}
}

// Resolve returns name's transitive proto import closure, probing each
// directory in includeDirs in order for every import statement.
// `google/*` imports are mapped to the external sentinel and not recursed
// into (spec.md §4.4).
func (r *Resolver) Resolve(name string, includeDirs []string) ([]Dep, error) {
	abs := fs.Canonicalize(name)
	if cached, ok := r.cache[abs]; ok {
		return cached, nil
	}
	if r.seen[abs] {
		return nil, nil
	}
	r.seen[abs] = true

	data, err := r.fsys.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	var deps []Dep
	add := func(d Dep) {
		for _, existing := range deps {
			if existing == d {
				return
			}
		}
		deps = append(deps, d)
	}

	for _, line := range strings.Split(string(data), "\n") {
		m := importRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		imported := m[1]

		if strings.HasPrefix(imported, "google/") {
			add(Dep{Path: imported, Dir: ExternalDir})
			continue
		}

		resolved, dir, ok := r.probe(imported, includeDirs)
		if !ok {
			add(Dep{Path: imported, Dir: ""})
			continue
		}
		add(Dep{Path: imported, Dir: dir})
		sub, err := r.Resolve(resolved, includeDirs)
		if err != nil {
			return nil, err
		}
		for _, d := range sub {
			add(d)
		}
	}

	r.cache[abs] = deps
	return deps, nil
}

func (r *Resolver) probe(imported string, includeDirs []string) (resolved, dir string, ok bool) {
	for _, d := range includeDirs {
		candidate := path.Join(d, imported)
		if r.fsys.Exists(candidate) && !r.fsys.IsDir(candidate) {
			return candidate, d, true
		}
	}
	return "", "", false
}
