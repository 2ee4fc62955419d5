// Package source turns raw run arguments into normalized source units.
//
// Callers hand the runner either a file path or literal Mojo source; both
// are resolved here. Literal snippets frequently arrive embedded in an
// indented host string, so every unit is dedented before it is hashed or
// compiled.
package source

import (
	"fmt"
	"os"
	"strings"
)

// Unit is one normalized snippet of source text ready for compilation.
// It is immutable once produced; only its hash and compiled artifact are
// ever persisted.
type Unit struct {
	// Text is the dedented source.
	Text string

	// Path is the file the text was read from, empty for literal input.
	Path string
}

// FromFile reports whether the unit was read from disk.
func (u Unit) FromFile() bool {
	return u.Path != ""
}

// Bytes returns the exact bytes that identify this unit.
func (u Unit) Bytes() []byte {
	return []byte(u.Text)
}

// Load resolves a raw argument into a Unit. If the argument names a regular
// file its content is used, otherwise the argument itself is treated as
// literal source. Both forms are dedented.
func Load(raw string) (Unit, error) {
	if info, err := os.Stat(raw); err == nil && info.Mode().IsRegular() {
		data, err := os.ReadFile(raw)
		if err != nil {
			return Unit{}, fmt.Errorf("failed to read source file %s: %w", raw, err)
		}

		return Unit{Text: Dedent(string(data)), Path: raw}, nil
	}

	return Unit{Text: Dedent(raw)}, nil
}

// Dedent removes the longest common leading whitespace from every non-blank
// line, preserving relative indentation. Lines are compared byte for byte,
// so a tab margin and a space margin never cancel each other out. When the
// lines share no margin the text is returned unchanged.
func Dedent(text string) string {
	lines := strings.Split(text, "\n")

	margin := ""
	found := false

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			// Blank or whitespace-only lines carry no margin information.
			continue
		}

		indent := line[:len(line)-len(trimmed)]
		if !found {
			margin = indent
			found = true
			continue
		}

		margin = commonPrefix(margin, indent)
		if margin == "" {
			return text
		}
	}

	if !found || margin == "" {
		return text
	}

	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, margin)
	}

	return strings.Join(lines, "\n")
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))

	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}

	return a[:n]
}
