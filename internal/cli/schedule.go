package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/badgify/internal/engine"
	"github.com/roach88/badgify/internal/scheduler"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*SyncOptions
	Schedule string
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{SyncOptions: &SyncOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run sync all on a cron schedule until interrupted",
		Long: `Run the full sync pipeline (badges, awards, counts) on a cron schedule.

The schedule accepts standard 5-field cron specs and descriptors such as
@hourly or "@every 15m". Runs never overlap.

Example:
  badgify schedule --cron "@every 15m" --revoke`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schedule, "cron", "", "cron spec (env BADGIFY_SCHEDULE)")
	cmd.Flags().BoolVar(&opts.Revoke, "revoke", false, "revoke awards of users who no longer qualify")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "recipes reconciled in parallel (default from config)")
	cmd.Flags().StringVar(&opts.Badges, "badges", "", "only these badge slugs (comma or space separated)")
	cmd.Flags().StringVar(&opts.ExcludeBadges, "exclude-badges", "", "skip these badge slugs (comma or space separated)")

	return cmd
}

func runSchedule(opts *ScheduleOptions, cmd *cobra.Command) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ao, err := opts.awardOptions(a, cmd)
	if err != nil {
		return err
	}

	spec := opts.Schedule
	if spec == "" {
		spec = a.cfg.Schedule
	}

	s := scheduler.New(a.logger)
	if err := s.Add("sync-all", spec, scheduler.SyncJob(a.engine, engine.AllOptions{Awards: ao})); err != nil {
		return WrapExitError(ExitCommandError, "invalid schedule", err)
	}
	s.Start()

	for _, e := range s.Entries() {
		fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %s (%s)\n", e.Name, e.Schedule)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		return WrapExitError(ExitFailure, "scheduled run did not stop in time", err)
	}
	return nil
}
