// Package generate implements component E: running the CUSTOM_COMMAND
// edges a CMake-generated ninja file uses for code generation, through a
// content-addressed on-disk cache (spec.md §4.5). Grounded on please's
// directory cache (src/cache/dir_cache.go): SHA-addressed entries, an
// atime-based bookkeeping story, and humanize for size logging, adapted
// from "cache a built target's outputs" to "cache a generator command's
// outputs".
package generate

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/djherbis/atime"
	"github.com/dustin/go-humanize"
	"github.com/google/shlex"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/op/go-logging.v1"

	"github.com/please-build/ninjabazel/src/core"
	"github.com/please-build/ninjabazel/src/cpp"
)

var log = logging.MustGetLogger("generate")

// CustomCommandRule is the rule name CMake's ninja generator gives a
// custom_command/add_custom_command edge.
const CustomCommandRule = "CUSTOM_COMMAND"

// Executor runs CUSTOM_COMMAND edges, short-circuiting protoc invocations
// and caching everything else by the SHA-1 of its normalized command
// (spec.md §4.5).
type Executor struct {
	cacheDir string
	manifest *cpp.GeneratedManifest
	resolver *cpp.Resolver

	ran map[string]bool // (command hash, workdir) pairs already executed this run
}

// NewExecutor creates an Executor that caches under cacheDir and registers
// generated files into manifest, immediately resolving C/C++ outputs
// through resolver (spec.md §4.5 step 6).
func NewExecutor(cacheDir string, manifest *cpp.GeneratedManifest, resolver *cpp.Resolver) *Executor {
	return &Executor{
		cacheDir: cacheDir,
		manifest: manifest,
		resolver: resolver,
		ran:      map[string]bool{},
	}
}

// Run processes b if it's a (non-phony) CUSTOM_COMMAND edge. Edges of any
// other rule are a no-op: compile/link/archive edges are the lowerer's
// concern (F), not the generator's.
func (e *Executor) Run(b *core.Build, workdir string) error {
	if b.Rule == nil || b.Rule.Name != CustomCommandRule {
		return nil
	}
	template, ok := b.Var(core.VarCommand)
	if !ok {
		template, ok = b.Var(core.VarCommandUpper)
	}
	if !ok || strings.TrimSpace(template) == "" {
		return nil
	}

	sub, ok := pickSubCommand(template, b)
	if !ok {
		log.Debug("no actionable sub-command in %q", template)
		return nil
	}
	if isCosmetic(sub) {
		log.Debug("skipping cosmetic command %q", sub)
		return nil
	}
	if isProtocCommand(sub) {
		e.registerWithoutExecution(b)
		return nil
	}

	normalized := substituteVars(sub, b)
	key := hashCommand(normalized)
	dedupeKey := key + "\x00" + workdir
	if e.ran[dedupeKey] {
		return nil
	}
	e.ran[dedupeKey] = true

	return e.runCached(b, sub, key, workdir)
}

// runCached executes (or replays from cache) the chosen sub-command inside
// an ephemeral working directory, then registers every file it produced.
func (e *Executor) runCached(b *core.Build, sub, key, workdir string) error {
	cacheEntry := filepath.Join(e.cacheDir, key[:2], key)
	ephemeral := filepath.Join(workdir, ".ninjabazel-gen", key)
	if err := os.MkdirAll(ephemeral, 0775); err != nil {
		return fmt.Errorf("preparing ephemeral dir for %s: %w", key, err)
	}

	if info, err := os.Stat(cacheEntry); err == nil && info.IsDir() {
		log.Debug("cache hit for %s, last used %s", key, humanize.Time(atime.Get(info)))
		if err := copyTree(cacheEntry, ephemeral); err != nil {
			return fmt.Errorf("replaying cache entry %s: %w", key, err)
		}
	} else {
		args, err := shlex.Split(substituteVars(sub, b))
		if err != nil {
			return fmt.Errorf("splitting command %q: %w", sub, err)
		}
		if len(args) == 0 {
			return nil
		}
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = ephemeral
		out, err := cmd.CombinedOutput()
		if err != nil {
			log.Warning("command %q failed: %s\n%s", sub, err, out)
			return nil // failure semantics: log and skip (spec.md §4.5)
		}
		if err := os.MkdirAll(cacheEntry, 0775); err != nil {
			return err
		}
		if err := copyTree(ephemeral, cacheEntry); err != nil {
			log.Warning("failed to populate cache entry %s: %s", key, err)
		} else if size, err := dirSize(cacheEntry); err == nil {
			log.Debug("cached %s output: %s", key, humanize.Bytes(uint64(size)))
		}
	}

	return e.registerOutputs(b, ephemeral)
}

// registerWithoutExecution handles the protoc short circuit: outputs are
// declared in the manifest so downstream header/proto resolution can see
// them, but the compiler itself is never invoked here (that's the proto
// subsystem's job).
func (e *Executor) registerWithoutExecution(b *core.Build) {
	for _, out := range b.Outputs {
		e.manifest.Add(out.ShortName, cpp.GeneratedEntry{ProducingBuild: b})
	}
}

// registerOutputs walks everything a command produced under ephemeral,
// registers it in the manifest, and immediately runs the header resolver
// over any C/C++ file among them (spec.md §4.5 step 6).
func (e *Executor) registerOutputs(b *core.Build, ephemeral string) error {
	var errs *multierror.Error
	err := filepath.Walk(ephemeral, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(ephemeral, p)
		if err != nil {
			return err
		}
		e.manifest.Add(rel, cpp.GeneratedEntry{ProducingBuild: b, EphemeralRoot: ephemeral})
		if isCOrCPPFile(rel) {
			if _, rerr := e.resolver.Resolve(p, nil, true); rerr != nil {
				errs = multierror.Append(errs, rerr)
			}
		}
		return nil
	})
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// pickSubCommand implements spec.md §4.5 step 1: split on `&&`, pick the
// first piece that looks like the command actually doing the generation.
func pickSubCommand(template string, b *core.Build) (string, bool) {
	for _, part := range strings.Split(template, "&&") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hasIn := strings.Contains(part, "$in")
		hasOut := strings.Contains(part, "$out") || strings.Contains(part, "$TARGET_FILE")
		if hasIn && hasOut {
			return part, true
		}
		for _, in := range b.Inputs {
			if in.Name != "" && strings.Contains(part, in.Name) {
				return part, true
			}
		}
	}
	return "", false
}

// cosmeticPrefixes are CMake-generated no-ops that never produce anything
// worth caching (spec.md §4.5 step 2).
var cosmeticPrefixes = []string{
	"cmake -E copy",
	"cmake -E touch",
	"cmake -E make_directory",
	"cmake -E cmake_echo_color",
	":",
}

func isCosmetic(cmd string) bool {
	for _, p := range cosmeticPrefixes {
		if strings.HasPrefix(cmd, p) {
			return true
		}
	}
	return false
}

func isProtocCommand(cmd string) bool {
	return strings.Contains(cmd, "protoc")
}

func isCOrCPPFile(name string) bool {
	for _, ext := range []string{".c", ".cc", ".cpp", ".cxx", ".h", ".hpp"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// substituteVars replaces the ninja pseudo-variables a command template may
// still contain with this edge's actual input/output short names.
func substituteVars(cmd string, b *core.Build) string {
	ins := make([]string, len(b.Inputs))
	for i, t := range b.Inputs {
		ins[i] = t.ShortName
	}
	outs := make([]string, len(b.Outputs))
	for i, t := range b.Outputs {
		outs[i] = t.ShortName
	}
	firstOut := ""
	if len(outs) > 0 {
		firstOut = outs[0]
	}
	r := strings.NewReplacer(
		"$in_newline", strings.Join(ins, "\n"),
		"$in", strings.Join(ins, " "),
		"$TARGET_FILE", firstOut,
		"$out", strings.Join(outs, " "),
	)
	return r.Replace(cmd)
}

// hashCommand returns the hex SHA-1 of normalized, the cache key (spec.md
// §4.5 step 4, §5 "addressed purely by the SHA-1 of the normalized command").
func hashCommand(normalized string) string {
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0775)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
