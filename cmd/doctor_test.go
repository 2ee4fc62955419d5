package cmd

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowdene/mojorun/internal/cache"
	"github.com/hollowdene/mojorun/internal/engine"
)

// probeTool stands in for the Mojo toolchain during doctor tests. It
// compiles every source to a marker file and answers with a fixed stdout.
type probeTool struct {
	stdout       string
	compileCalls int
}

func (p *probeTool) Compile(_ context.Context, _, outputPath string) error {
	p.compileCalls++
	return os.WriteFile(outputPath, []byte("#!artifact\n"), 0o755)
}

func (p *probeTool) Execute(context.Context, string, ...string) (string, error) {
	return p.stdout, nil
}

func (p *probeTool) VersionString(context.Context) string {
	return "Mojo 25.4.0 (fake)"
}

func newProbeEngine(t *testing.T, tool engine.Toolchain) (*engine.Engine, *bytes.Buffer) {
	t.Helper()

	store, err := cache.NewDirStore(t.TempDir())
	require.NoError(t, err)

	var diag bytes.Buffer
	eng := engine.New(store, tool)
	eng.Diag = &diag

	return eng, &diag
}

func TestRunProbe(t *testing.T) {
	tool := &probeTool{stdout: "55\n"}
	eng, diag := newProbeEngine(t, tool)

	var report bytes.Buffer
	err := runProbe(context.Background(), eng, &report)

	require.NoError(t, err)
	assert.Equal(t, 1, tool.compileCalls, "second run must come from the cache")
	assert.Empty(t, diag.String(), "healthy probe prints no diagnostics")

	out := report.String()
	assert.Contains(t, out, "probe: fibonacci(10) = 55")
	assert.Contains(t, out, "reused the cached binary")
}

func TestRunProbeWrongAnswer(t *testing.T) {
	tool := &probeTool{stdout: "54\n"}
	eng, _ := newProbeEngine(t, tool)

	var report bytes.Buffer
	err := runProbe(context.Background(), eng, &report)

	require.Error(t, err)
	assert.Contains(t, report.String(), "WRONG ANSWER")
}

func TestRunProbeBindsTemplate(t *testing.T) {
	// The probe template must bind cleanly with its single placeholder.
	tool := &probeTool{stdout: "55\n"}
	eng, _ := newProbeEngine(t, tool)

	require.NoError(t, runProbe(context.Background(), eng, &bytes.Buffer{}))

	entries, err := eng.Store.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
