package toolchain

import (
	"fmt"
	"time"
)

// CompileError reports that the compiler rejected the source. Stderr holds
// the compiler's own diagnostics verbatim.
type CompileError struct {
	ExitCode int
	Stderr   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compilation failed with exit code %d", e.ExitCode)
}

// RunError reports that a compiled artifact failed at runtime, either by
// exiting non-zero or by writing to stderr.
type RunError struct {
	ExitCode int
	Stderr   string
}

func (e *RunError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("program exited with code %d", e.ExitCode)
	}

	return "program wrote to stderr"
}

// TimeoutError reports that a build or run exceeded its configured limit.
type TimeoutError struct {
	Stage string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("%s timed out after %s", e.Stage, e.Limit)
	}

	return fmt.Sprintf("%s timed out", e.Stage)
}

// NotFoundError reports that the toolchain binary could not be located.
// This is an environment problem, not a source problem, and is kept
// distinct so callers can suggest installation steps.
type NotFoundError struct {
	Tool string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("toolchain %q not found", e.Tool)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}
