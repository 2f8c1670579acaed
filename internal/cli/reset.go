package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/badgify/internal/engine"
)

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Badges        string
	ExcludeBadges string
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all awards of badges and zero their holder counts",
		Long: `Delete every award of the selected badges and set their holder counts to 0.

Badges themselves are kept. Listeners are not notified.

Example:
  badgify reset --badges python-lover`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Badges, "badges", "", "only these badge slugs (comma or space separated)")
	cmd.Flags().StringVar(&opts.ExcludeBadges, "exclude-badges", "", "skip these badge slugs (comma or space separated)")

	return cmd
}

func runReset(opts *ResetOptions, cmd *cobra.Command) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	f := newFormatter(opts.RootOptions, cmd)
	report, err := a.engine.ResetAwards(ctx, engine.ResetOptions{
		Include: splitSlugs(opts.Badges),
		Exclude: splitSlugs(opts.ExcludeBadges),
	})
	if err != nil {
		return runError(f, err)
	}
	if err := f.Report(report.RunID, report, func(w io.Writer) { printResetReport(w, report) }); err != nil {
		return err
	}
	return failuresToExit(len(report.Failed), len(report.Invalid))
}
