package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no indentation unchanged",
			in:   "fn main():\n    print(1)\n",
			want: "fn main():\n    print(1)\n",
		},
		{
			name: "common space margin removed",
			in:   "    fn main():\n        print(1)\n",
			want: "fn main():\n    print(1)\n",
		},
		{
			name: "relative indentation preserved",
			in:   "  a\n      b\n  c\n",
			want: "a\n    b\nc\n",
		},
		{
			name: "blank lines ignored when computing margin",
			in:   "    a\n\n    b\n",
			want: "a\n\nb\n",
		},
		{
			name: "tab margin removed",
			in:   "\ta\n\t\tb\n",
			want: "a\n\tb\n",
		},
		{
			name: "tab and space margins do not cancel",
			in:   "\ta\n    b\n",
			want: "\ta\n    b\n",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "whitespace only input",
			in:   "   \n\t\n",
			want: "   \n\t\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dedent(tt.in))
		})
	}
}

func TestDedentIsIdempotent(t *testing.T) {
	in := "    fn main():\n        print(1)\n"

	once := Dedent(in)
	twice := Dedent(once)

	assert.Equal(t, once, twice)
}

func TestLoadLiteral(t *testing.T) {
	unit, err := Load("    fn main():\n        print(1)")

	require.NoError(t, err)
	assert.False(t, unit.FromFile())
	assert.Empty(t, unit.Path)
	assert.Equal(t, "fn main():\n    print(1)", unit.Text)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.mojo")
	require.NoError(t, os.WriteFile(path, []byte("fn main():\n    print(1)\n"), 0o644))

	unit, err := Load(path)

	require.NoError(t, err)
	assert.True(t, unit.FromFile())
	assert.Equal(t, path, unit.Path)
	assert.Equal(t, "fn main():\n    print(1)\n", unit.Text)
}

func TestLoadMissingFileFallsBackToLiteral(t *testing.T) {
	unit, err := Load("no/such/file.mojo")

	require.NoError(t, err)
	assert.False(t, unit.FromFile())
	assert.Equal(t, "no/such/file.mojo", unit.Text)
}

func TestLoadDirectoryIsLiteral(t *testing.T) {
	dir := t.TempDir()

	unit, err := Load(dir)

	require.NoError(t, err)
	assert.False(t, unit.FromFile())
	assert.Equal(t, dir, unit.Text)
}

func TestUnitBytes(t *testing.T) {
	unit := Unit{Text: "fn main():\n    pass\n"}

	assert.Equal(t, []byte("fn main():\n    pass\n"), unit.Bytes())
}
