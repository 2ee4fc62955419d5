package hints

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableCoversEveryFragment(t *testing.T) {
	table := Default()
	require.NotZero(t, table.Len())

	for _, p := range table.Pairs() {
		hint, ok := table.Lookup("error: " + p.Match + " somewhere")

		assert.True(t, ok, "fragment %q has no hint", p.Match)
		assert.NotEmpty(t, hint)
	}
}

func TestLookupUnknownMessage(t *testing.T) {
	hint, ok := Default().Lookup("error: cannot bitcast to vector")

	assert.False(t, ok)
	assert.Empty(t, hint)
}

func TestLookupEmptyMessage(t *testing.T) {
	_, ok := Default().Lookup("")

	assert.False(t, ok)
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	hint, ok := Default().Lookup("ERROR: USE OF UNKNOWN DECLARATION 'LET'")

	require.True(t, ok)
	assert.Contains(t, hint, "var")
}

func TestLookupFirstMatchWins(t *testing.T) {
	table := New(
		Pair{Match: "specific problem", Hint: "specific fix"},
		Pair{Match: "problem", Hint: "general fix"},
	)

	hint, ok := table.Lookup("a specific problem occurred")

	require.True(t, ok)
	assert.Equal(t, "specific fix", hint)
}

func TestValidatorMessagesResolve(t *testing.T) {
	// The validator phrases its findings with the same fragments the table
	// is keyed on, so each message should resolve to a hint.
	messages := []string{
		"missing 'fn main()' or 'def main()' - Mojo executables require a main function",
		"'var' at file scope - executable statements must be inside a function",
		"mixed tabs and spaces in indentation",
		"function declaration missing ':' at end of line",
		"'let' keyword is deprecated in Mojo - use 'var' instead",
		"print requires parentheses: print(...) not print ...",
		"use 'Int' (capitalized) for integer types in Mojo, not 'int'",
		"'range' requires parentheses: range(n) not range n",
	}

	table := Default()
	for _, msg := range messages {
		_, ok := table.Lookup(msg)
		assert.True(t, ok, "no hint for %q", msg)
	}
}

func TestExtendKeepsBuiltinPrecedence(t *testing.T) {
	table := Default()
	before := table.Len()

	table.Extend(Pair{Match: "mixed tabs and spaces", Hint: "custom override"})

	assert.Equal(t, before+1, table.Len())

	hint, ok := table.Lookup("mixed tabs and spaces in indentation")
	require.True(t, ok)
	assert.NotEqual(t, "custom override", hint)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hints.yml")
	content := `hints:
  - match: "cannot implicitly convert"
    hint: "add an explicit cast"
  - match: "no matching function"
    hint: "check argument types against the declaration"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	pairs, err := LoadFile(path)

	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "cannot implicitly convert", pairs[0].Match)
	assert.Equal(t, "add an explicit cast", pairs[0].Hint)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yml"))

	assert.Error(t, err)
}

func TestLoadFileRejectsIncompleteEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing hint", "hints:\n  - match: \"some error\"\n"},
		{"missing match", "hints:\n  - hint: \"do something\"\n"},
		{"blank match", "hints:\n  - match: \"  \"\n    hint: \"x\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "hints.yml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadFile(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFileRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hints.yml")
	require.NoError(t, os.WriteFile(path, []byte("hints: [unclosed"), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
