// Package toolchain drives the external Mojo compiler and the executables
// it produces. Everything here is a subprocess boundary; no Mojo semantics
// live on this side of it.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPath is the compiler binary name resolved via PATH when no
// explicit path is configured.
const DefaultPath = "mojo"

// UnknownVersion is reported when the version probe fails. The version
// only decorates output and provenance records, so a failed probe is not
// an error.
const UnknownVersion = "Unknown"

const versionProbeTimeout = 10 * time.Second

// versionCache is a lazily-initialized, thread-safe single-value cache.
// The probe runs at most once per process regardless of how many
// goroutines ask.
type versionCache struct {
	once  sync.Once
	value string
}

func (c *versionCache) get(fill func() string) string {
	c.once.Do(func() { c.value = fill() })

	return c.value
}

// Invoker runs the compiler and compiled artifacts as subprocesses. Zero
// timeouts disable the corresponding deadline; callers can still bound
// calls through the context they pass in.
type Invoker struct {
	Path         string
	BuildTimeout time.Duration
	RunTimeout   time.Duration
	Log          zerolog.Logger

	version versionCache
}

// New returns an invoker for the given compiler path. An empty path
// selects DefaultPath.
func New(path string) *Invoker {
	if path == "" {
		path = DefaultPath
	}

	return &Invoker{Path: path, Log: zerolog.Nop()}
}

// BuildArgs returns the compiler arguments that build sourcePath into an
// executable at outputPath.
func BuildArgs(sourcePath, outputPath string) []string {
	return []string{"build", sourcePath, "-o", outputPath}
}

// Resolve returns the absolute path of the compiler binary, or a
// NotFoundError when it cannot be located.
func (i *Invoker) Resolve() (string, error) {
	path, err := exec.LookPath(i.Path)
	if err != nil {
		return "", &NotFoundError{Tool: i.Path, Err: err}
	}

	return path, nil
}

// Preflight verifies the compiler is resolvable before any subprocess is
// spawned.
func (i *Invoker) Preflight() error {
	_, err := i.Resolve()

	return err
}

// Compile builds sourcePath into an executable at outputPath. Compiler
// diagnostics are returned inside a CompileError rather than streamed, so
// the caller decides how to present them.
func (i *Invoker) Compile(ctx context.Context, sourcePath, outputPath string) error {
	var stdout, stderr bytes.Buffer

	start := time.Now()
	err := i.run(ctx, i.BuildTimeout, &stdout, &stderr, i.Path, BuildArgs(sourcePath, outputPath)...)
	i.Log.Debug().
		Str("source", sourcePath).
		Str("output", outputPath).
		Dur("elapsed", time.Since(start)).
		Err(err).
		Msg("compiler invoked")

	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Stage: "build", Limit: i.BuildTimeout}
	case errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist):
		return &NotFoundError{Tool: i.Path, Err: err}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CompileError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}

	return fmt.Errorf("failed to invoke compiler: %w", err)
}

// Execute runs a compiled artifact and returns its raw stdout. A non-zero
// exit or any stderr output is reported as a RunError carrying the stderr
// text.
func (i *Invoker) Execute(ctx context.Context, artifactPath string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer

	start := time.Now()
	err := i.run(ctx, i.RunTimeout, &stdout, &stderr, artifactPath, args...)
	i.Log.Debug().
		Str("artifact", artifactPath).
		Dur("elapsed", time.Since(start)).
		Err(err).
		Msg("artifact executed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "", &TimeoutError{Stage: "run", Limit: i.RunTimeout}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", &RunError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}

	if err != nil {
		return "", fmt.Errorf("failed to run artifact: %w", err)
	}

	if stderr.Len() > 0 {
		return "", &RunError{ExitCode: 0, Stderr: stderr.String()}
	}

	return stdout.String(), nil
}

// VersionString returns the toolchain's self-reported version, probing it
// at most once per process.
func (i *Invoker) VersionString(ctx context.Context) string {
	return i.version.get(func() string {
		var stdout, stderr bytes.Buffer

		err := i.run(ctx, versionProbeTimeout, &stdout, &stderr, i.Path, "--version")
		if err != nil {
			i.Log.Debug().Err(err).Msg("version probe failed")
			return UnknownVersion
		}

		v := strings.TrimSpace(stdout.String())
		if v == "" {
			return UnknownVersion
		}

		return v
	})
}

// run executes one subprocess with an optional deadline. When the context
// expires the context error is returned instead of the kill-induced exit
// error, so callers can classify timeouts regardless of how the process
// died.
func (i *Invoker) run(ctx context.Context, timeout time.Duration, stdout, stderr *bytes.Buffer, name string, args ...string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// Subprocesses the compiler spawns can outlive it and keep the output
	// pipes open; don't let them hold Run hostage after a kill.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	return err
}
