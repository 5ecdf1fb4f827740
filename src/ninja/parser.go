package ninja

import (
	"fmt"
	"path"
	"strings"

	"gopkg.in/op/go-logging.v1"

	"github.com/please-build/ninjabazel/src/core"
	"github.com/please-build/ninjabazel/src/fs"
)

var log = logging.MustGetLogger("ninja")

// Options configures how the parser classifies output paths (spec.md
// §4.1).
type Options struct {
	// SourceRoot is the root of the checked-out source tree.
	SourceRoot string
	// WorkDir is the generator's working directory (often a sibling of
	// SourceRoot); outputs resolving here are also File nodes.
	WorkDir string
	// ManuallyGenerated maps a short output name to a path the user has
	// told us to treat as already present (-m/--manually_generated).
	ManuallyGenerated map[string]string
	// Remap rewrites a computed short name to another short name before
	// classification proceeds (--remap FROM=TO), for generated-file paths
	// whose CMake-chosen location doesn't match where the tool should
	// place them.
	Remap map[string]string
}

// A Parser loads one or more ninja-like build description files into a
// core.BuildGraph, following `include` directives (spec.md §4.1).
type Parser struct {
	opts     Options
	fsys     fs.FileSystem
	graph    *core.BuildGraph
	rules    map[string]*core.Rule
	fileEnv  *core.Env
	includes []string // directory stack for resolving include/relative paths
}

// NewParser creates a parser that will populate graph.
func NewParser(fsys fs.FileSystem, graph *core.BuildGraph, opts Options) *Parser {
	return &Parser{
		opts:    opts,
		fsys:    fsys,
		graph:   graph,
		rules:   map[string]*core.Rule{},
		fileEnv: core.NewEnv(nil),
	}
}

// Rules returns the rule table accumulated so far.
func (p *Parser) Rules() map[string]*core.Rule {
	return p.rules
}

// FileEnv returns the top-level (file-scope) variable environment.
func (p *Parser) FileEnv() *core.Env {
	return p.fileEnv
}

// ParseFile parses filename (and anything it includes) into the graph.
func (p *Parser) ParseFile(filename string) error {
	data, err := p.fsys.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}
	dir := path.Dir(filename)
	p.includes = append(p.includes, dir)
	defer func() { p.includes = p.includes[:len(p.includes)-1] }()

	lines := readLogicalLines(string(data))
	var curRule *core.Rule
	var curBuild *core.Build

	for _, ll := range lines {
		if ll.IsBlank {
			continue
		}
		if ll.Indent {
			name, value, ok := parseAssignment(ll.Text)
			if !ok {
				return &core.ParseError{File: filename, Line: ll.Line, Msg: "expected NAME = VALUE"}
			}
			switch {
			case curBuild != nil:
				curBuild.Env.Bind(name, curBuild.Env.Expand(value))
			case curRule != nil:
				curRule.Env.Bind(name, value)
			default:
				return &core.ParseError{File: filename, Line: ll.Line, Msg: "indented line outside of rule/build"}
			}
			continue
		}

		// A non-indented line closes whatever rule/build scope was open.
		curRule, curBuild = nil, nil

		switch {
		case strings.HasPrefix(ll.Text, "include "):
			target := p.resolveIncludePath(strings.TrimSpace(unescapeSimple(strings.TrimPrefix(ll.Text, "include "))))
			if err := p.ParseFile(target); err != nil {
				return err
			}
		case strings.HasPrefix(ll.Text, "rule "):
			name := strings.TrimSpace(strings.TrimPrefix(ll.Text, "rule "))
			rule := core.NewRule(name, p.fileEnv)
			p.rules[name] = rule
			curRule = rule
		case strings.HasPrefix(ll.Text, "build "):
			b, err := p.parseBuildHeader(filename, ll)
			if err != nil {
				return err
			}
			curBuild = b
		default:
			name, value, ok := parseAssignment(ll.Text)
			if !ok {
				return &core.ParseError{File: filename, Line: ll.Line, Msg: "unrecognised line: " + ll.Text}
			}
			p.fileEnv.Bind(name, p.fileEnv.Expand(value))
		}
	}
	return nil
}

// resolveIncludePath resolves an include/-I path against the directory of
// the file currently being parsed.
func (p *Parser) resolveIncludePath(rel string) string {
	if len(p.includes) == 0 || path.IsAbs(rel) {
		return rel
	}
	return path.Join(p.includes[len(p.includes)-1], rel)
}

// parseAssignment splits a "NAME = VALUE" line. VALUE may be empty.
func parseAssignment(line string) (name, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if name == "" {
		return "", "", false
	}
	return name, value, true
}

// parseBuildHeader parses `build out... : rulename in... [| implicit...] [|| orderonly...]`.
func (p *Parser) parseBuildHeader(filename string, ll logicalLine) (*core.Build, error) {
	rest := strings.TrimPrefix(ll.Text, "build ")
	colon := findUnescapedColon(rest)
	if colon < 0 {
		return nil, &core.ParseError{File: filename, Line: ll.Line, Msg: "build edge missing ':'"}
	}
	outWords := splitWords(rest[:colon])
	if len(outWords) == 0 {
		return nil, &core.ParseError{File: filename, Line: ll.Line, Msg: "build edge has no outputs"}
	}
	afterColon := splitWords(rest[colon+1:])
	if len(afterColon) == 0 {
		return nil, &core.ParseError{File: filename, Line: ll.Line, Msg: "build edge missing rule name"}
	}
	ruleName := afterColon[0]
	rule, ok := p.rules[ruleName]
	if !ok {
		if ruleName == core.PhonyRuleName {
			rule = core.NewRule(core.PhonyRuleName, p.fileEnv)
		} else {
			return nil, &core.ParseError{File: filename, Line: ll.Line, Msg: "unknown rule " + ruleName}
		}
	}

	var inputs, implicit, orderOnly []string
	dest := &inputs
	for _, w := range afterColon[1:] {
		switch w {
		case "|":
			dest = &implicit
		case "||":
			dest = &orderOnly
		default:
			*dest = append(*dest, w)
		}
	}

	b := core.NewBuild(rule)
	for _, out := range outWords {
		target := p.classify(out)
		b.AddOutput(target)
	}
	for _, in := range inputs {
		b.AddInput(p.referenceTarget(in))
	}
	for _, in := range implicit {
		b.AddDepend(p.referenceTarget(in))
	}
	for _, in := range orderOnly {
		b.AddDepend(p.referenceTarget(in))
	}

	// A phony edge with no proper inputs (only `|`/`||` dependencies, or
	// none at all) drops any dependency that names a directory
	// (spec.md §4.1; original_source/ninjabuild.py's `rulename == "phony"`
	// branch guards this on an empty raw_inputs list specifically).
	if rule.IsPhony() && len(inputs) == 0 {
		b.Depends = dropDirectories(b.Depends, p.fsys)
	}

	p.graph.AddBuild(b)
	return b, nil
}

func dropDirectories(ts core.BuildTargets, fsys fs.FileSystem) core.BuildTargets {
	var out core.BuildTargets
	for _, t := range ts {
		if fsys != nil && fsys.IsDir(t.Name) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// referenceTarget returns the (possibly already existing) target named
// name, classifying it for the first time if needed.
func (p *Parser) referenceTarget(name string) *core.BuildTarget {
	if existing := p.graph.Get(name); existing != nil {
		return existing
	}
	return p.classify(name)
}

// classify implements spec.md §4.1's output classification: File,
// ManuallyGenerated, ExternalPrebuilt, Known or (transient) Unknown.
func (p *Parser) classify(name string) *core.BuildTarget {
	t := p.graph.GetOrCreate(name)
	if t.Class != core.Other {
		return t // already classified on a previous reference
	}
	t.ShortName = p.shortName(name)
	if to, ok := p.opts.Remap[t.ShortName]; ok {
		t.ShortName = to
	}

	if target, ok := p.opts.ManuallyGenerated[t.ShortName]; ok {
		t.Class = core.ManuallyGenerated
		t.ShortName = target
		return t
	}
	if p.fsys.Exists(name) {
		if p.underRoot(name) {
			t.Class = core.File
			t.IsFile = true
		} else {
			t.Class = core.ExternalPrebuilt
		}
		return t
	}
	// Not yet produced by any edge we've seen: register as a transient
	// placeholder until (if ever) an edge's output reconciles it.
	p.graph.MarkMissing(t)
	return t
}

func (p *Parser) underRoot(name string) bool {
	if _, ok := fs.RelativeTo(p.opts.SourceRoot, name); ok {
		return true
	}
	_, ok := fs.RelativeTo(p.opts.WorkDir, name)
	return ok
}

func (p *Parser) shortName(name string) string {
	if rel, ok := fs.RelativeTo(p.opts.WorkDir, name); ok {
		return rel
	}
	if rel, ok := fs.RelativeTo(p.opts.SourceRoot, name); ok {
		return rel
	}
	return name
}
