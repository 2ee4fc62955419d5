package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hollowdene/mojorun/internal/cache"
	"github.com/hollowdene/mojorun/internal/config"
	"github.com/hollowdene/mojorun/internal/engine"
	"github.com/hollowdene/mojorun/internal/hints"
	"github.com/hollowdene/mojorun/internal/snippet"
	"github.com/hollowdene/mojorun/internal/source"
	"github.com/hollowdene/mojorun/internal/toolchain"
)

var runCmd = &cobra.Command{
	Use:   "run [file|-]",
	Short: "Compile and run a Mojo snippet",
	Long: `Compile a Mojo source file or inline snippet and run the resulting binary.

The source is validated, hashed and compiled at most once: later runs of
identical source reuse the cached binary. Arguments after -- are passed to
the compiled program. With --arg, {{name}} placeholders in the source are
substituted before compilation.`,
	RunE:         runRun,
	SilenceUsage: true,
	Args:         cobra.ArbitraryArgs,
}

func init() {
	addRunFlags(runCmd.Flags())
}

// addRunFlags registers the run-specific flags. They live on both the run
// subcommand and the root command, which runs snippets directly.
func addRunFlags(flags *pflag.FlagSet) {
	flags.StringP("code", "c", "", "Inline Mojo source to run")
	flags.Bool("no-cache", false, "Always recompile, skipping the binary cache")
	flags.Bool("echo-code", false, "Print the final source before compiling")
	flags.Bool("echo-output", false, "Print cache progress and the raw output")
	flags.StringArrayP("arg", "a", nil, "Bind name=value to a {{name}} placeholder, repeatable")
}

func runRun(cmd *cobra.Command, args []string) error {
	srcArgs, extraArgs := splitDashArgs(cmd, args)

	cfg, err := config.NewLoader().LoadForCommand(cmd, srcArgs)
	if err != nil {
		return err
	}

	code, _ := cmd.Flags().GetString("code")

	raw, err := resolveSource(code, srcArgs, cmd.InOrStdin())
	if err != nil {
		return err
	}

	bindings, _ := cmd.Flags().GetStringArray("arg")
	if len(bindings) > 0 {
		raw, err = bindSource(raw, bindings)
		if err != nil {
			return err
		}
	}

	log := newLogger(cfg.Verbose, cmd.ErrOrStderr())

	eng, _, cleanup, err := buildEngine(cmd.Context(), cfg, log, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer cleanup()

	opts := engine.Options{ExtraArgs: extraArgs}
	opts.NoCache, _ = cmd.Flags().GetBool("no-cache")
	opts.EchoSource, _ = cmd.Flags().GetBool("echo-code")
	opts.EchoOutput, _ = cmd.Flags().GetBool("echo-output")

	out, ok := eng.Output(cmd.Context(), raw, opts)
	if !ok {
		// The engine already printed the staged diagnostic.
		return errors.New("run failed")
	}

	if out != "" {
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}

	return nil
}

// splitDashArgs separates the source argument from pass-through arguments
// after --, which go to the compiled program untouched.
func splitDashArgs(cmd *cobra.Command, args []string) (srcArgs, extra []string) {
	if at := cmd.ArgsLenAtDash(); at >= 0 {
		return args[:at], args[at:]
	}

	return args, nil
}

// resolveSource picks the snippet to run: the --code flag, a positional
// file path or literal source, or stdin when the argument is "-".
func resolveSource(code string, args []string, stdin io.Reader) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("expected at most one source argument, got %d", len(args))
	}

	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}

	switch {
	case code != "" && arg != "":
		return "", errors.New("--code and a source argument are mutually exclusive")
	case code != "":
		return code, nil
	case arg == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read source from stdin: %w", err)
		}

		return string(data), nil
	case arg != "":
		return arg, nil
	}

	return "", errors.New("no source given: pass a file, '-' for stdin, or --code")
}

// bindSource substitutes --arg values into {{name}} placeholders. A file
// path is resolved to its content first, so templates work for files and
// inline source alike.
func bindSource(raw string, pairs []string) (string, error) {
	values, err := snippet.ParseBindings(pairs)
	if err != nil {
		return "", err
	}

	unit, err := source.Load(raw)
	if err != nil {
		return "", err
	}

	return snippet.NewTemplate(unit.Text).Bind(values)
}

// loadHints returns the built-in hint table, extended with the user's
// pairs when a hints file is configured.
func loadHints(cfg *config.Config) (*hints.Table, error) {
	table := hints.Default()

	if cfg.HintsFile != "" {
		pairs, err := hints.LoadFile(cfg.HintsFile)
		if err != nil {
			return nil, err
		}

		table.Extend(pairs...)
	}

	return table, nil
}

// buildEngine assembles the store, toolchain, hint table and journal into
// a ready engine. The returned cleanup closes the journal.
func buildEngine(ctx context.Context, cfg *config.Config, log zerolog.Logger, diag io.Writer) (*engine.Engine, *toolchain.Invoker, func(), error) {
	inv := toolchain.New(cfg.CompilerPath)
	inv.BuildTimeout = cfg.BuildTimeout
	inv.RunTimeout = cfg.RunTimeout
	inv.Log = log

	store, err := cache.NewDirStore(cfg.CacheDir)
	if err != nil {
		return nil, nil, nil, err
	}

	table, err := loadHints(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	eng := engine.New(store, inv)
	eng.Hints = table
	eng.Diag = diag
	eng.Log = log

	if cfg.FingerprintToolchain {
		eng.Keyer = cache.Keyer{Fingerprint: inv.VersionString(ctx)}
	}

	cleanup := func() {}

	journal, err := cache.OpenJournal(filepath.Join(store.Root(), cache.JournalFile))
	if err != nil {
		// Provenance is advisory; a locked or corrupt journal never stops a run.
		log.Warn().Err(err).Msg("journal unavailable")
	} else {
		eng.Journal = journal
		cleanup = func() { journal.Close() }
	}

	return eng, inv, cleanup, nil
}
