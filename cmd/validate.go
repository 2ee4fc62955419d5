package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollowdene/mojorun/internal/config"
	"github.com/hollowdene/mojorun/internal/source"
	"github.com/hollowdene/mojorun/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file|-]",
	Short: "Check Mojo source without compiling",
	Long: `Run the static checks that normally gate compilation and report every
finding, without invoking the Mojo compiler.`,
	RunE:         runValidate,
	SilenceUsage: true,
	Args:         cobra.MaximumNArgs(1),
}

func init() {
	validateCmd.Flags().StringP("code", "c", "", "Inline Mojo source to check")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForCommand(cmd, args)
	if err != nil {
		return err
	}

	code, _ := cmd.Flags().GetString("code")

	raw, err := resolveSource(code, args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	unit, err := source.Load(raw)
	if err != nil {
		return err
	}

	findings := validate.Source(unit.Text)

	w := cmd.OutOrStdout()
	if len(findings) == 0 {
		fmt.Fprintln(w, "ok: no findings")
		return nil
	}

	table, err := loadHints(cfg)
	if err != nil {
		return err
	}

	for _, f := range findings {
		fmt.Fprintf(w, "### Validation Error: %s\n", f)

		if hint, ok := table.Lookup(f.Message); ok {
			fmt.Fprintf(w, "hint: %s\n", hint)
		}
	}

	if validate.HasBlocking(findings) {
		return fmt.Errorf("%d blocking finding(s)", countBlocking(findings))
	}

	return nil
}

func countBlocking(findings []validate.Finding) int {
	n := 0
	for _, f := range findings {
		if f.Severity == validate.Blocking {
			n++
		}
	}

	return n
}
