package cpp

import (
	"path"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/please-build/ninjabazel/src/core"
	"github.com/please-build/ninjabazel/src/fs"
)

// includeRe matches a preprocessor include directive, capturing the quote
// character and the quoted path.
var includeRe = regexp.MustCompile(`^\s*#\s*include\s*(["<])([^">]+)[">]`)

// FoundHeader is a resolved #include, paired with the -I (or own-directory)
// entry that resolved it. Dir is "" for an own-directory ("quoted, same
// dir") resolution.
type FoundHeader struct {
	Path string
	Dir  string
}

// GeneratedRef is a resolved reference into the generated-files manifest,
// paired with the /generated-sentinel include-dir entry that named it.
type GeneratedRef struct {
	Name string
	Dir  string
}

// CPPIncludes is the result of resolving one file's #include closure
// (spec.md §4.3).
type CPPIncludes struct {
	FoundHeaders         []FoundHeader
	NotFoundHeaders      []string
	NeededImports        []*core.CCImport
	NeededGeneratedFiles []GeneratedRef
}

func (c *CPPIncludes) addFound(p, dir string) {
	for _, f := range c.FoundHeaders {
		if f.Path == p && f.Dir == dir {
			return
		}
	}
	c.FoundHeaders = append(c.FoundHeaders, FoundHeader{Path: p, Dir: dir})
}

func (c *CPPIncludes) addNotFound(name string) {
	if strings.HasSuffix(name, ".pb.h") || strings.HasSuffix(name, ".grpc.pb.h") {
		return // protobuf artefacts are the proto subsystem's concern (D)
	}
	for _, n := range c.NotFoundHeaders {
		if n == name {
			return
		}
	}
	c.NotFoundHeaders = append(c.NotFoundHeaders, name)
}

func (c *CPPIncludes) addImport(imp *core.CCImport) {
	for _, e := range c.NeededImports {
		if e == imp {
			return
		}
	}
	c.NeededImports = append(c.NeededImports, imp)
}

func (c *CPPIncludes) addGenerated(name, dir string) {
	for _, g := range c.NeededGeneratedFiles {
		if g.Name == name && g.Dir == dir {
			return
		}
	}
	c.NeededGeneratedFiles = append(c.NeededGeneratedFiles, GeneratedRef{Name: name, Dir: dir})
}

func (c *CPPIncludes) merge(other CPPIncludes) {
	for _, f := range other.FoundHeaders {
		c.addFound(f.Path, f.Dir)
	}
	for _, n := range other.NotFoundHeaders {
		c.addNotFound(n)
	}
	for _, imp := range other.NeededImports {
		c.addImport(imp)
	}
	for _, g := range other.NeededGeneratedFiles {
		c.addGenerated(g.Name, g.Dir)
	}
}

type seenKey struct {
	path string
	dirs string
}

// A Resolver walks #include graphs against a fixed set of CCImports and
// compiler implicit directories, consulting a GeneratedManifest for
// generated files (spec.md §4.3). One Resolver is shared across every file
// in a parse run so its cycle/result caches pay off across compilation
// units.
type Resolver struct {
	fsys     fs.FileSystem
	imports  []*core.CCImport
	implicit []string
	manifest *GeneratedManifest

	seen  map[seenKey]bool
	cache map[string]CPPIncludes

	// lastResolvedPath/lastResolvedGenerated communicate the winning
	// candidate out of resolveOne without an extra return-tuple at every
	// call site; valid only immediately after resolveOne returns true.
	lastResolvedPath      string
	lastResolvedGenerated bool
}

// NewResolver creates a Resolver. implicitDirs are probed for every file
// regardless of that file's own -I list (spec.md §4.3 step 3b).
func NewResolver(fsys fs.FileSystem, imports []*core.CCImport, implicitDirs []string, manifest *GeneratedManifest) *Resolver {
	return &Resolver{
		fsys:     fsys,
		imports:  imports,
		implicit: implicitDirs,
		manifest: manifest,
		seen:     map[seenKey]bool{},
		cache:    map[string]CPPIncludes{},
	}
}

// Resolve returns name's transitive #include closure. includeDirs is the
// file's own -I list (in order); isGenerated marks name as itself living
// under a generator's ephemeral root, which enables the /generated
// sentinel self-include rewrite (spec.md §4.3 "Generated-file rewriting").
func (r *Resolver) Resolve(name string, includeDirs []string, isGenerated bool) (CPPIncludes, error) {
	abs := fs.Canonicalize(name)
	if cached, ok := r.cache[abs]; ok {
		return cached, nil
	}

	key := seenKey{path: abs, dirs: strings.Join(includeDirs, "\x00")}
	if r.seen[key] {
		return CPPIncludes{}, nil
	}
	r.seen[key] = true

	data, err := r.fsys.ReadFile(abs)
	if err != nil {
		return CPPIncludes{}, err
	}

	var result CPPIncludes
	var errs *multierror.Error
	dir := path.Dir(abs)

	for _, line := range strings.Split(string(data), "\n") {
		m := includeRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		quoted := m[1] == `"`
		file := m[2]

		handled, recurse := r.resolveOne(file, dir, includeDirs, quoted, isGenerated, &result)
		if recurse {
			sub, err := r.Resolve(r.lastResolvedPath, includeDirs, r.lastResolvedGenerated)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			result.merge(sub)
			continue
		}
		if !handled {
			result.addNotFound(file)
		}
	}

	r.cache[abs] = result
	return result, errs.ErrorOrNil()
}

// resolveOne implements steps 2-4 of the algorithm for a single #include
// directive, recording foundHeaders/neededImports/neededGeneratedFiles into
// result. handled reports whether the include was resolved at all (so the
// caller should not also record it as not-found); recurse additionally
// reports whether the caller should recurse into r.lastResolvedPath.
func (r *Resolver) resolveOne(file, ownDir string, includeDirs []string, quoted, isGenerated bool, result *CPPIncludes) (handled, recurse bool) {
	if quoted {
		candidate := path.Join(ownDir, file)
		if r.fsys.Exists(candidate) && !r.fsys.IsDir(candidate) {
			if isGenerated && sameEphemeralTree(ownDir, candidate) {
				result.addGenerated(file, core.GeneratedIncludeSentinel)
				r.setLast(file, true)
				return true, true
			}
			result.addFound(candidate, "")
			r.setLast(candidate, false)
			return true, true
		}
	}
	if handled, recurse = r.probeDirs(file, ownDir, includeDirs, result); handled {
		return handled, recurse
	}
	if entry, ok := r.manifest.Lookup(file); ok {
		result.addGenerated(file, core.GeneratedIncludeSentinel)
		if !isProtoGeneratedHeader(file) {
			r.setLast(path.Join(entry.EphemeralRoot, file), true)
			return true, true
		}
		return true, false
	}
	return false, false
}

// probeDirs implements step 3: for each -I d, try the /generated sentinel,
// the compiler implicit dirs, then d/<file>.
func (r *Resolver) probeDirs(file, ownDir string, includeDirs []string, result *CPPIncludes) (handled, recurse bool) {
	for _, d := range includeDirs {
		if strings.HasPrefix(d, core.GeneratedIncludeSentinel) {
			entry, ok := r.manifest.Lookup(file)
			if !ok {
				continue
			}
			result.addGenerated(file, d)
			if isProtoGeneratedHeader(file) {
				return true, false // registered but not recursed into (§4.3 step 3a)
			}
			r.setLast(path.Join(entry.EphemeralRoot, file), true)
			return true, true
		}

		found := false
		for _, implicit := range r.implicit {
			candidate := path.Join(implicit, file)
			if !r.fsys.Exists(candidate) || r.fsys.IsDir(candidate) {
				continue
			}
			if imp := r.ownerOf(candidate); imp != nil {
				result.addImport(imp)
			}
			result.addFound(candidate, d)
			r.setLast(candidate, false)
			found = true
			break
		}
		if found {
			return true, true
		}

		candidate := d
		if !path.IsAbs(d) {
			candidate = path.Join(ownDir, d, file)
		} else {
			candidate = path.Join(d, file)
		}
		if !r.fsys.Exists(candidate) || r.fsys.IsDir(candidate) {
			continue
		}
		if imp := r.ownerOf(candidate); imp != nil {
			result.addImport(imp)
			return true, false // owned by an import: not our transitive closure to walk
		}
		result.addFound(candidate, d)
		r.setLast(candidate, false)
		return true, true
	}
	return false, false
}

func (r *Resolver) ownerOf(candidate string) *core.CCImport {
	for _, imp := range r.imports {
		if imp.HasHeader(candidate) {
			return imp
		}
	}
	return nil
}

func (r *Resolver) setLast(p string, generated bool) {
	r.lastResolvedPath = p
	r.lastResolvedGenerated = generated
}

func isProtoGeneratedHeader(name string) bool {
	return strings.HasSuffix(name, ".pb.h") || strings.HasSuffix(name, ".grpc.pb.h")
}

// sameEphemeralTree reports whether candidate lives under the same
// directory tree as ownDir, the condition under which a generated file's
// self-include gets rewritten to the /generated sentinel rather than
// treated as an ordinary found header.
func sameEphemeralTree(ownDir, candidate string) bool {
	return fs.TopLevelDir(ownDir) != "" && fs.TopLevelDir(ownDir) == fs.TopLevelDir(candidate)
}
