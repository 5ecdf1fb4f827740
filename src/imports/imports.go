// Package imports parses the user-supplied prebuilt-imports manifest into
// core.CCImport records. Reading and validating this manifest is explicitly
// a collaborator the core consumes rather than part of it (spec.md §1); the
// core never reaches into this package's internals, only the []*core.CCImport
// it returns.
//
// Grounded on original_source/cc_import_parse.py: a small line-oriented
// state machine over `cc_import(...)` stanzas, not a general Starlark
// parser -- attribute values may themselves span multiple lines until a
// line closes the bracket or stanza.
package imports

import (
	"fmt"
	"path"
	"strings"

	"github.com/please-build/ninjabazel/src/core"
	"github.com/please-build/ninjabazel/src/fs"
)

// externalOrigin is the sentinel location every parsed import is placed
// under, matching the Python parser's forced "@cpp_ext_libs//" repo.
const externalOrigin = "@cpp_ext_libs"

// Parse reads every file in paths and returns the CCImport records they
// declare, in file then declaration order.
func Parse(fsys fs.FileSystem, paths []string) ([]*core.CCImport, error) {
	var all []*core.CCImport
	for _, p := range paths {
		data, err := fsys.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading import manifest %s: %w", p, err)
		}
		parsed, err := parseManifest(fsys, strings.Split(string(data), "\n"))
		if err != nil {
			return nil, fmt.Errorf("parsing import manifest %s: %w", p, err)
		}
		all = append(all, parsed...)
	}
	return all, nil
}

type builder struct {
	imp          *core.CCImport
	inflightAttr string
	inflightVals string
	haveInflight bool
}

// parseManifest walks lines reproducing the Python parser's state machine:
// a `cc_import(` opens a stanza, `name = "..."` starts a record, a bare
// `attr = value` either sets a scalar directly or opens a list value that
// continues accumulating lines until the next recognized attribute or the
// stanza's closing `)`.
func parseManifest(fsys fs.FileSystem, lines []string) ([]*core.CCImport, error) {
	var result []*core.CCImport
	var cur *builder
	open := false

	flush := func() {
		if cur != nil && cur.haveInflight {
			applyList(fsys, cur.imp, cur.inflightAttr, cur.inflightVals)
			cur.haveInflight = false
		}
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "cc_import(") {
			if open {
				return nil, fmt.Errorf("nested cc_import() while one is already open")
			}
			open = true
			cur = &builder{imp: &core.CCImport{Origin: externalOrigin}}
			continue
		}

		if strings.HasPrefix(line, ")") {
			if !open {
				return nil, fmt.Errorf("closing cc_import() with none open")
			}
			flush()
			result = append(result, cur.imp)
			cur = nil
			open = false
			continue
		}

		if !open {
			continue
		}

		if attr, val, ok := splitAssignment(line); ok {
			flush()
			switch attr {
			case "name":
				cur.imp.Name = cleanVar(val)
			case "static_library", "static_libs":
				cur.imp.StaticLib = cleanVar(val)
			case "shared_library", "interface_library":
				cur.imp.SharedLib = cleanVar(val)
			case "skip_wrapping":
				cur.imp.SkipWrapping = strings.TrimSpace(val) == "True"
			case "system":
				cur.imp.System = strings.TrimSpace(val) == "True"
			case "deps", "hdrs", "includes":
				cur.inflightAttr = attr
				cur.inflightVals = val
				cur.haveInflight = true
			}
			continue
		}

		if cur != nil && cur.haveInflight {
			cur.inflightVals += "\n" + line
		}
	}

	if open {
		return nil, fmt.Errorf("unterminated cc_import() stanza")
	}
	return result, nil
}

func splitAssignment(line string) (attr, val string, ok bool) {
	i := strings.Index(line, "=")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

// applyList resolves an inflightAttr's accumulated value text into a list
// of strings and assigns it to the matching CCImport field.
func applyList(fsys fs.FileSystem, imp *core.CCImport, attr, raw string) {
	values := parseListValue(fsys, raw)
	switch attr {
	case "hdrs":
		imp.Headers = values
	case "includes":
		imp.IncludeDirs = values
	case "deps":
		imp.Deps = values
	}
}

// parseListValue turns a (possibly multi-line) bracketed list literal, or a
// glob([...]) call, into its string elements.
func parseListValue(fsys fs.FileSystem, raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "glob(") {
		return expandGlob(fsys, trimmed)
	}

	var out []string
	for _, part := range strings.Split(trimmed, ",") {
		v := strings.Trim(strings.TrimSpace(part), "[]")
		v = cleanVar(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// expandGlob expands a `glob(["pattern", ...])` call against fsys using
// Walk + path.Match (original_source's parser shells out to Python's
// recursive glob.glob instead). Every `**/` is removed from a pattern, the
// pattern's directory is walked recursively, and each file's base name is
// matched against the pattern's base name, so files in subdirectories of
// that directory match as well.
func expandGlob(fsys fs.FileSystem, call string) []string {
	inner := call
	if i := strings.Index(inner, "["); i >= 0 {
		inner = inner[i+1:]
	}
	if i := strings.LastIndex(inner, "]"); i >= 0 {
		inner = inner[:i]
	}

	var matches []string
	for _, part := range strings.Split(inner, ",") {
		pattern := cleanVar(part)
		if pattern == "" {
			continue
		}
		pattern = strings.ReplaceAll(pattern, "**/", "")
		dir := path.Dir(pattern)
		if dir == "." {
			dir = ""
		}
		_ = fsys.Walk(dir, func(rel string) error {
			full := rel
			if dir != "" {
				full = path.Join(dir, rel)
			}
			if ok, _ := path.Match(path.Base(pattern), path.Base(full)); ok {
				matches = append(matches, full)
			}
			return nil
		})
	}
	return matches
}

func cleanVar(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, ",")
	v = strings.ReplaceAll(v, `"`, "")
	v = strings.ReplaceAll(v, "'", "")
	return strings.TrimSpace(v)
}

// Attach wires every ExternalPrebuilt target in graph whose name matches
// one of ccImports' declared library paths to that CCImport's Handle, so
// the lowerer can recognize a link edge's prebuilt input as belonging to
// a named import rather than an opaque external path (spec.md §4.6 link
// rows, S6).
func Attach(graph *core.BuildGraph, ccImports []*core.CCImport) {
	byPath := map[string]*core.CCImport{}
	for _, imp := range ccImports {
		if imp.StaticLib != "" {
			byPath[imp.StaticLib] = imp
		}
		if imp.SharedLib != "" {
			byPath[imp.SharedLib] = imp
		}
		for _, h := range imp.Headers {
			byPath[h] = imp
		}
	}
	for _, t := range graph.AllTargets() {
		if t.Class != core.ExternalPrebuilt {
			continue
		}
		if imp, ok := byPath[t.ShortName]; ok {
			t.Handle = imp
		} else if imp, ok := byPath[t.Name]; ok {
			t.Handle = imp
		}
	}
}
