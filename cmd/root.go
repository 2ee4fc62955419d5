package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hollowdene/mojorun/internal/config"
	"github.com/hollowdene/mojorun/internal/version"
)

var rootCmd = &cobra.Command{
	Use:          "mojorun",
	Short:        "Cached compile-and-run for Mojo snippets",
	Long:         `Compile Mojo source once, cache the binary, and reuse it on every later run.`,
	RunE:         runRun,
	SilenceUsage: true,
	Args:         cobra.ArbitraryArgs,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)

	rootCmd.PersistentFlags().String("compiler", "", "Path or name of the Mojo compiler binary")
	rootCmd.PersistentFlags().String("cache-dir", "", "Root directory for cached binaries")
	rootCmd.PersistentFlags().Duration("build-timeout", 0, "Maximum duration of one compile, 0 disables")
	rootCmd.PersistentFlags().Duration("run-timeout", 0, "Maximum duration of one program run, 0 disables")
	rootCmd.PersistentFlags().Bool("fingerprint", false, "Mix the toolchain version into cache keys")
	rootCmd.PersistentFlags().String("hints-file", "", "YAML file with extra error hints")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	// The bare root command runs a snippet, so it carries the run flags too.
	addRunFlags(rootCmd.Flags())

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(doctorCmd)

	viper.SetDefault("compiler_path", config.DefaultCompilerPath)
	viper.SetDefault("fingerprint_toolchain", false)
	viper.SetDefault("verbose", false)
}

// newLogger builds the console logger shared by all commands. Engine events
// surface only with --verbose; user-facing diagnostics are printed by the
// engine itself, not logged.
func newLogger(verbose bool, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}
