package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hollowdene/mojorun/internal/cache"
	"github.com/hollowdene/mojorun/internal/config"
	"github.com/hollowdene/mojorun/internal/engine"
	"github.com/hollowdene/mojorun/internal/snippet"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify the Mojo toolchain and cache are usable",
	Long: `Check that the Mojo compiler is reachable and the cache directory is
usable, then compile and run a small probe program end to end, verifying
that a second run is served from the cache.`,
	RunE:         runDoctor,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

// probeTemplate is compiled and run end to end. A wrong answer means the
// toolchain is broken, not the probe.
const probeTemplate = `
fn fibonacci(n: Int) -> Int:
    if n <= 1:
        return n
    var prev: Int = 0
    var curr: Int = 1
    for _ in range(2, n + 1):
        var next_val = prev + curr
        prev = curr
        curr = next_val
    return curr

fn main():
    print(fibonacci({{n}}))
`

const (
	probeInput = "10"
	probeWant  = int64(55)
)

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewLoader().LoadForCommand(cmd, nil)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	log := newLogger(cfg.Verbose, cmd.ErrOrStderr())

	eng, inv, cleanup, err := buildEngine(cmd.Context(), cfg, log, w)
	if err != nil {
		return err
	}
	defer cleanup()

	path, err := inv.Resolve()
	if err != nil {
		fmt.Fprintf(w, "compiler: NOT FOUND (%q)\n", cfg.CompilerPath)
		fmt.Fprintln(w, "To fix this:")
		fmt.Fprintln(w, "  1. Install Mojo: curl -s https://get.modular.com | sh")
		fmt.Fprintln(w, "  2. Put the mojo binary on PATH, or set compiler_path in the config")

		return err
	}

	fmt.Fprintf(w, "compiler: %s\n", path)
	fmt.Fprintf(w, "version: %s\n", inv.VersionString(cmd.Context()))

	entries, err := eng.Store.Entries()
	if err != nil {
		fmt.Fprintf(w, "cache: UNREADABLE (%v)\n", err)
		return err
	}

	fmt.Fprintf(w, "cache: %s (%d binaries, %s)\n",
		eng.Store.Root(), len(entries), humanize.Bytes(uint64(cache.TotalSize(entries))))

	if eng.Journal != nil {
		recs, jerr := eng.Journal.Records()
		if jerr != nil {
			fmt.Fprintf(w, "journal: UNREADABLE (%v)\n", jerr)
		} else {
			fmt.Fprintf(w, "journal: %d build records\n", len(recs))
		}
	} else {
		fmt.Fprintln(w, "journal: unavailable")
	}

	fmt.Fprintf(w, "hints: %d fragments\n", eng.Hints.Len())

	if err := runProbe(cmd.Context(), eng, w); err != nil {
		return err
	}

	fmt.Fprintln(w, "environment looks good")

	return nil
}

// runProbe compiles and runs the fibonacci probe twice: the first run must
// produce the right answer and the second must come from the cache.
func runProbe(ctx context.Context, eng *engine.Engine, w io.Writer) error {
	src, err := snippet.NewTemplate(probeTemplate).Bind(map[string]string{"n": probeInput})
	if err != nil {
		return err
	}

	out, ok := eng.Output(ctx, src, engine.Options{})
	if !ok {
		return errors.New("probe failed")
	}

	if got := snippet.Coerce(out); got != probeWant {
		fmt.Fprintf(w, "probe: WRONG ANSWER (fibonacci(%s) = %v, want %d)\n", probeInput, got, probeWant)
		return fmt.Errorf("probe produced %v, want %d", got, probeWant)
	}

	fmt.Fprintf(w, "probe: fibonacci(%s) = %s\n", probeInput, out)

	second, err := eng.Run(ctx, src, engine.Options{})
	if err != nil {
		fmt.Fprintf(w, "probe: second run FAILED (%v)\n", err)
		return err
	}

	if !second.CacheHit {
		fmt.Fprintln(w, "probe: second run missed the cache")
		return errors.New("cached binary was not reused")
	}

	fmt.Fprintln(w, "probe: second run reused the cached binary")

	return nil
}
