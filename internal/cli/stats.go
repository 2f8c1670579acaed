package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Compare live award counts with stored holder counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			a, err := openApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			f := newFormatter(rootOpts, cmd)
			stats, err := a.engine.Stats(ctx)
			if err != nil {
				return runError(f, err)
			}
			return f.Report("", stats, func(w io.Writer) { printStats(w, stats) })
		},
	}
}
