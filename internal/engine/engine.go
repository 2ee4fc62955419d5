// Package engine composes source loading, validation, caching and the
// external toolchain into the compile-and-run pipeline.
//
// Run is the structured entry point: it returns the program output or a
// tagged error (validation, compile, runtime, timeout, toolchain missing)
// that callers can inspect with errors.As. Output is the interactive shim
// on top of it: every expected failure is printed as a staged diagnostic
// and collapsed to a bare "no result", which is all a notebook cell wants.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hollowdene/mojorun/internal/cache"
	"github.com/hollowdene/mojorun/internal/hints"
	"github.com/hollowdene/mojorun/internal/source"
	"github.com/hollowdene/mojorun/internal/toolchain"
	"github.com/hollowdene/mojorun/internal/validate"
)

// Toolchain is the slice of the compiler driver the engine needs. It is an
// interface so tests can count invocations without spawning processes.
type Toolchain interface {
	// Compile builds sourcePath into an executable at outputPath.
	Compile(ctx context.Context, sourcePath, outputPath string) error

	// Execute runs a compiled artifact and returns its raw stdout.
	Execute(ctx context.Context, artifactPath string, args ...string) (string, error)

	// VersionString returns the toolchain's self-reported version.
	VersionString(ctx context.Context) string
}

var _ Toolchain = (*toolchain.Invoker)(nil)

// Options control one Run. The zero value matches interactive defaults:
// caching on, no echo, no extra arguments.
type Options struct {
	// NoCache forces a fresh compile to a disposable artifact, even when a
	// cached binary exists for the same source.
	NoCache bool

	// EchoSource prints the final source text before compilation.
	EchoSource bool

	// EchoOutput prints cache progress and the raw output after execution.
	EchoOutput bool

	// ExtraArgs are passed to the compiled artifact on execution.
	ExtraArgs []string
}

// Result is the outcome of a successful Run.
type Result struct {
	// Output is the whitespace-stripped stdout of the program.
	Output string

	// Key identifies the compiled artifact.
	Key cache.Key

	// CacheHit is true when a previously compiled binary was reused.
	CacheHit bool
}

// Engine runs Mojo snippets through validate, hash, cache and execute.
type Engine struct {
	Store cache.Store
	Tool  Toolchain

	// Keyer derives cache keys; the zero value hashes source content only.
	Keyer cache.Keyer

	// Hints maps failure text to remediation strings. Defaults to the
	// built-in table.
	Hints *hints.Table

	// Journal receives build provenance when set. Every journal failure is
	// logged and swallowed; provenance never decides behavior.
	Journal *cache.Journal

	// Diag receives echo text and failure diagnostics. Defaults to stdout.
	Diag io.Writer

	Log zerolog.Logger
}

// New returns an engine over the given store and toolchain with the
// built-in hint table and no journal.
func New(store cache.Store, tool Toolchain) *Engine {
	return &Engine{
		Store: store,
		Tool:  tool,
		Hints: hints.Default(),
		Log:   zerolog.Nop(),
	}
}

// Run resolves raw into source text, validates it, and executes the cached
// or freshly compiled binary. Expected failures come back as tagged errors:
// *validate.Error, *toolchain.CompileError, *toolchain.RunError,
// *toolchain.TimeoutError or *toolchain.NotFoundError.
func (e *Engine) Run(ctx context.Context, raw string, opts Options) (*Result, error) {
	unit, err := source.Load(raw)
	if err != nil {
		return nil, err
	}

	e.echoSource(unit, opts)

	if findings := validate.Source(unit.Text); validate.HasBlocking(findings) {
		return nil, &validate.Error{Findings: findings}
	}

	key := e.Keyer.KeyFor(unit.Bytes())
	log := e.Log.With().Str("key", key.String()).Logger()

	artifact := e.Store.PathFor(key)
	hit := !opts.NoCache && e.Store.Has(key)

	switch {
	case hit:
		log.Debug().Msg("cache hit")

		if opts.EchoOutput {
			fmt.Fprintf(e.diag(), "[Using cached binary %s]\n", key)
		}

		e.touchJournal(key)

	case opts.NoCache:
		staged, err := e.compile(ctx, unit, key)
		if err != nil {
			return nil, err
		}

		// The binary is disposable: it only lives for this execution.
		defer e.Store.Discard(staged)
		artifact = staged

	default:
		if opts.EchoOutput {
			fmt.Fprintf(e.diag(), "[Compiling and caching as %s...]\n", key)
		}

		staged, err := e.compile(ctx, unit, key)
		if err != nil {
			return nil, err
		}

		if err := e.Store.Commit(staged, key); err != nil {
			e.Store.Discard(staged)
			return nil, err
		}
	}

	stdout, err := e.Tool.Execute(ctx, artifact, opts.ExtraArgs...)
	if err != nil {
		return nil, err
	}

	out := strings.TrimSpace(stdout)
	if opts.EchoOutput && out != "" {
		fmt.Fprintf(e.diag(), "\n### Output - %s:\n%s\n", e.Tool.VersionString(ctx), out)
	}

	return &Result{Output: out, Key: key, CacheHit: hit}, nil
}

// Output is the collapsing shim over Run for interactive callers: the
// second return is false on any expected failure, after the failure has
// been printed as a staged diagnostic with a remediation hint when one is
// known. Unexpected errors (I/O, environment) collapse the same way but
// are additionally logged.
func (e *Engine) Output(ctx context.Context, raw string, opts Options) (string, bool) {
	res, err := e.Run(ctx, raw, opts)
	if err != nil {
		e.report(err)
		return "", false
	}

	return res.Output, true
}

// compile writes the unit to a scratch source file and builds it into a
// staged path that the caller commits or discards. The scratch file is
// removed on every path.
func (e *Engine) compile(ctx context.Context, unit source.Unit, key cache.Key) (string, error) {
	scratch, err := writeScratch(unit.Text)
	if err != nil {
		return "", err
	}
	defer os.Remove(scratch)

	staged := e.Store.Stage(key)

	start := time.Now()
	if err := e.Tool.Compile(ctx, scratch, staged); err != nil {
		e.Store.Discard(staged)
		return "", err
	}

	elapsed := time.Since(start)
	e.Log.Debug().Str("key", key.String()).Dur("elapsed", elapsed).Msg("compiled")
	e.recordBuild(ctx, key, unit, elapsed)

	return staged, nil
}

// writeScratch materializes source text as a .mojo file for the compiler.
func writeScratch(text string) (string, error) {
	f, err := os.CreateTemp("", "mojorun-*.mojo")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch source: %w", err)
	}

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write scratch source: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write scratch source: %w", err)
	}

	return f.Name(), nil
}

func (e *Engine) recordBuild(ctx context.Context, key cache.Key, unit source.Unit, elapsed time.Duration) {
	if e.Journal == nil {
		return
	}

	rec := cache.Record{
		Key:              key.String(),
		ToolchainVersion: e.Tool.VersionString(ctx),
		SourceBytes:      len(unit.Text),
		BuildDuration:    elapsed,
		CreatedAt:        time.Now(),
	}

	if err := e.Journal.RecordBuild(rec); err != nil {
		e.Log.Warn().Err(err).Str("key", key.String()).Msg("journal write failed")
	}
}

func (e *Engine) touchJournal(key cache.Key) {
	if e.Journal == nil {
		return
	}

	if err := e.Journal.Touch(key); err != nil {
		e.Log.Warn().Err(err).Str("key", key.String()).Msg("journal touch failed")
	}
}

func (e *Engine) echoSource(unit source.Unit, opts Options) {
	if !opts.EchoSource {
		return
	}

	w := e.diag()

	if unit.FromFile() {
		fmt.Fprintf(w, "### Mojo code from file: %s\n\n", unit.Path)
	} else {
		fmt.Fprint(w, "### Mojo code from string\n\n")
	}

	fmt.Fprintln(w, unit.Text)
	fmt.Fprintln(w, strings.Repeat("-", 80))
}

// report prints one failure as a staged diagnostic in the order the
// pipeline runs: validation, then compilation, then execution.
func (e *Engine) report(err error) {
	w := e.diag()

	var verr *validate.Error
	if errors.As(err, &verr) {
		for _, f := range verr.Findings {
			fmt.Fprintf(w, "### Validation Error: %s\n", f)

			if hint, ok := e.hintTable().Lookup(f.Message); ok {
				fmt.Fprintf(w, "hint: %s\n", hint)
			}
		}

		return
	}

	var cerr *toolchain.CompileError
	if errors.As(err, &cerr) {
		fmt.Fprintf(w, "### Compilation failed:\n%s", terminated(cerr.Stderr))

		if hint, ok := e.hintTable().Lookup(cerr.Stderr); ok {
			fmt.Fprintf(w, "hint: %s\n", hint)
		}

		return
	}

	var rerr *toolchain.RunError
	if errors.As(err, &rerr) {
		fmt.Fprintf(w, "### Runtime errors:\n%s", terminated(rerr.Stderr))
		return
	}

	var terr *toolchain.TimeoutError
	if errors.As(err, &terr) {
		fmt.Fprintf(w, "### Timeout: %s\n", terr)
		return
	}

	var nerr *toolchain.NotFoundError
	if errors.As(err, &nerr) {
		fmt.Fprintf(w, "### Toolchain missing: %s\nhint: install Mojo and ensure it is on PATH, or set compiler_path\n", nerr)
		return
	}

	e.Log.Error().Err(err).Msg("run failed")
	fmt.Fprintf(w, "### Error: %v\n", err)
}

func (e *Engine) diag() io.Writer {
	if e.Diag != nil {
		return e.Diag
	}

	return os.Stdout
}

func (e *Engine) hintTable() *hints.Table {
	if e.Hints != nil {
		return e.Hints
	}

	return hints.Default()
}

// terminated ensures diagnostics end with exactly one newline so stage
// banners never run together.
func terminated(s string) string {
	return strings.TrimRight(s, "\n") + "\n"
}
