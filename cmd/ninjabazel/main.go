// Command ninjabazel translates a CMake-generated ninja build description
// into BUILD.bazel files for a TBS workspace (spec.md §6.2). It is a
// single-invocation batch tool: parse, resolve, lower, emit, then exit --
// no daemon, no watch mode, no interactive progress display.
package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/thought-machine/go-flags"
	"gopkg.in/op/go-logging.v1"

	"github.com/please-build/ninjabazel/src/cli"
	"github.com/please-build/ninjabazel/src/core"
	"github.com/please-build/ninjabazel/src/cpp"
	"github.com/please-build/ninjabazel/src/emit"
	"github.com/please-build/ninjabazel/src/fs"
	"github.com/please-build/ninjabazel/src/generate"
	"github.com/please-build/ninjabazel/src/graphops"
	"github.com/please-build/ninjabazel/src/imports"
	"github.com/please-build/ninjabazel/src/lower"
	"github.com/please-build/ninjabazel/src/ninja"
	"github.com/please-build/ninjabazel/src/protoresolve"
)

var log = logging.MustGetLogger("ninjabazel")

var opts = struct {
	Verbosity         cli.Verbosity    `short:"v" long:"verbosity" description:"Verbosity of output (higher is more verbose)" default:"1"`
	ManuallyGenerated []cli.KeyValue   `short:"m" long:"manually_generated" description:"KEY=PATH: treat output KEY as already present at PATH"`
	Remap             []cli.KeyValue   `long:"remap" description:"FROM=TO: rewrite a generated-file short name before classification"`
	Prefix            string           `short:"p" long:"prefix" description:"Initial directory prefix under the source root"`
	Imports           []string         `long:"imports" description:"Path to a CCImport manifest (repeatable)"`
	Args              struct {
		NinjaFile  string `positional-arg-name:"ninja-file" required:"true"`
		SourceRoot string `positional-arg-name:"source-root" required:"true"`
	} `positional-args:"true"`
}{}

func main() {
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cli.InitLogging(opts.Verbosity)

	if err := run(); err != nil {
		log.Errorf("%s", err)
		os.Exit(1)
	}
}

func run() error {
	fsys := fs.OS{}
	sourceRoot := opts.Args.SourceRoot
	if opts.Prefix != "" {
		sourceRoot = path.Join(sourceRoot, opts.Prefix)
	}
	workDir := path.Dir(opts.Args.NinjaFile)

	graph := core.NewBuildGraph()
	p := ninja.NewParser(fsys, graph, ninja.Options{
		SourceRoot:        sourceRoot,
		WorkDir:           workDir,
		ManuallyGenerated: cli.ToMap(opts.ManuallyGenerated),
		Remap:             cli.ToMap(opts.Remap),
	})
	if err := p.ParseFile(opts.Args.NinjaFile); err != nil {
		return fmt.Errorf("parsing %s: %w", opts.Args.NinjaFile, err)
	}

	if missing := graph.Missing(); len(missing) > 0 {
		return &core.UnresolvedTargetsError{Names: missing}
	}

	graphops.ResolveAliases(graph)
	graphops.PrunePhony(graph)

	ccImports, err := imports.Parse(fsys, opts.Imports)
	if err != nil {
		return fmt.Errorf("parsing import manifests: %w", err)
	}
	imports.Attach(graph, ccImports)

	cacheDir, err := cacheRoot()
	if err != nil {
		return err
	}
	manifest := cpp.NewGeneratedManifest()
	cppResolver := cpp.NewResolver(fsys, ccImports, nil, manifest)
	protoResolver := protoresolve.NewResolver(fsys)
	executor := generate.NewExecutor(cacheDir, manifest, cppResolver)

	for _, b := range graph.Builds() {
		if b.Pruned || b.Rule.IsPhony() {
			continue
		}
		edgeWorkDir := b.VarOr(core.VarCMakeNinjaWorkdir, workDir)
		if err := executor.Run(b, edgeWorkDir); err != nil {
			log.Warningf("generator command failed: %s", err)
		}
	}

	registry := core.NewTargetRegistry()
	lowerer := lower.NewLowerer(registry)
	lowerer.SetProtoResolver(protoResolver)
	roots := graph.Roots(core.IgnoredRootTargets)
	lowerer.LowerRoots(roots)

	emitter := emit.NewEmitter()
	for _, location := range registry.Locations() {
		targets := registry.TargetsIn(location)
		if len(targets) == 0 {
			continue
		}
		data, err := emitter.EmitLocation(location, targets)
		if err != nil {
			return fmt.Errorf("emitting %s: %w", location, err)
		}
		outPath := filepath.Join(opts.Args.SourceRoot, location, "BUILD.bazel")
		if err := fsys.WriteFile(outPath, data); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
	}
	return nil
}

// cacheRoot returns $HOME/.cache/ninjabazel, creating it if necessary
// (spec.md §6.4/§6.5).
func cacheRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving cache root: %w", err)
	}
	dir := filepath.Join(home, ".cache", "ninjabazel")
	if err := os.MkdirAll(dir, 0775); err != nil {
		return "", fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	return dir, nil
}
