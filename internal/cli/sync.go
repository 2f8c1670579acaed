package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/roach88/badgify/internal/engine"
)

// SyncOptions holds flags shared by the sync subcommands.
type SyncOptions struct {
	*RootOptions
	Badges         string
	ExcludeBadges  string
	BatchSize      int
	IDsLimit       int
	Workers        int
	DBRead         string
	DisableSignals bool
	Update         bool
	Revoke         bool
}

// NewSyncCommand creates the sync command and its subcommands.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile badges, awards and holder counts with recipes",
		Long: `Reconcile the badge database with the recipes.

  sync badges   create badges missing for a recipe (--update patches existing ones)
  sync awards   award newly qualifying users (--revoke also removes stale awards)
  sync counts   recompute holder counts from awards
  sync all      badges, then awards, then counts

Example:
  badgify sync awards --badges "python-lover,go-gopher" --batch-size 1000
  badgify sync all --revoke --workers 4`,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.Badges, "badges", "", "only these badge slugs (comma or space separated)")
	flags.StringVar(&opts.ExcludeBadges, "exclude-badges", "", "skip these badge slugs (comma or space separated)")
	flags.IntVar(&opts.BatchSize, "batch-size", 0, "awards per transaction (default from config)")
	flags.IntVar(&opts.IDsLimit, "ids-limit", 0, "user ids per existing-award lookup (default from config)")
	flags.IntVar(&opts.Workers, "workers", 0, "recipes reconciled in parallel (default from config)")
	flags.StringVar(&opts.DBRead, "db-read", "", "DSN of a read replica for membership queries")
	flags.BoolVar(&opts.DisableSignals, "disable-signals", false, "do not notify listeners or update holder counts")
	flags.BoolVar(&opts.Update, "update", false, "patch metadata of existing badges")
	flags.BoolVar(&opts.Revoke, "revoke", false, "revoke awards of users who no longer qualify")

	cmd.AddCommand(&cobra.Command{
		Use:   "badges",
		Short: "Create badges missing for a recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd, syncBadges)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "awards",
		Short: "Award users who qualify for a badge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd, syncAwards)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "counts",
		Short: "Recompute holder counts from awards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd, syncCounts)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Sync badges, awards and counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd, syncAll)
		},
	})

	return cmd
}

type syncStep func(ctx context.Context, a *app, opts *SyncOptions, cmd *cobra.Command, f *OutputFormatter) error

func runSync(opts *SyncOptions, cmd *cobra.Command, step syncStep) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	return step(ctx, a, opts, cmd, newFormatter(opts.RootOptions, cmd))
}

// signalContext cancels the command context on SIGINT or SIGTERM.
// Batches already committed are kept.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// awardOptions resolves flags against configuration.
func (o *SyncOptions) awardOptions(a *app, cmd *cobra.Command) (engine.AwardOptions, error) {
	cfg := a.cfg
	ao := engine.AwardOptions{
		Include:              splitSlugs(o.Badges),
		Exclude:              splitSlugs(o.ExcludeBadges),
		BatchSize:            firstPositive(o.BatchSize, cfg.BatchSize),
		IDsLimit:             firstPositive(o.IDsLimit, cfg.IDsLimit),
		Workers:              firstPositive(o.Workers, cfg.Workers),
		DisableNotifications: o.DisableSignals,
		Revoke:               cfg.RevokeStale,
	}
	if cmd.Flags().Changed("revoke") {
		ao.Revoke = o.Revoke
	}

	if o.DBRead != "" {
		driver := cfg.UserDBDriver
		if driver == "" {
			driver = "sqlite3"
		}
		db, err := sql.Open(driver, o.DBRead)
		if err != nil {
			return ao, WrapExitError(ExitCommandError, "failed to open read database", err)
		}
		a.closers = append(a.closers, db)
		ao.DB = db
	}
	return ao, nil
}

func syncBadges(ctx context.Context, a *app, opts *SyncOptions, cmd *cobra.Command, f *OutputFormatter) error {
	report, err := a.engine.SyncBadges(ctx, engine.BadgeOptions{
		Include: splitSlugs(opts.Badges),
		Exclude: splitSlugs(opts.ExcludeBadges),
		Update:  opts.Update,
	})
	if err != nil {
		return runError(f, err)
	}
	if err := f.Report(report.RunID, report, func(w io.Writer) { printBadgeReport(w, report) }); err != nil {
		return err
	}
	return failuresToExit(len(report.Failed), len(report.Invalid))
}

func syncAwards(ctx context.Context, a *app, opts *SyncOptions, cmd *cobra.Command, f *OutputFormatter) error {
	ao, err := opts.awardOptions(a, cmd)
	if err != nil {
		return err
	}
	report, err := a.engine.SyncAwards(ctx, ao)
	if err != nil {
		return runError(f, err)
	}
	if err := f.Report(report.RunID, report, func(w io.Writer) { printAwardReport(w, report) }); err != nil {
		return err
	}
	return failuresToExit(len(report.Failed), len(report.Invalid))
}

func syncCounts(ctx context.Context, a *app, opts *SyncOptions, cmd *cobra.Command, f *OutputFormatter) error {
	report, err := a.engine.SyncCounts(ctx, engine.CountOptions{
		Include: splitSlugs(opts.Badges),
		Exclude: splitSlugs(opts.ExcludeBadges),
	})
	if err != nil {
		return runError(f, err)
	}
	if err := f.Report(report.RunID, report, func(w io.Writer) { printCountReport(w, report) }); err != nil {
		return err
	}
	return failuresToExit(len(report.Failed), len(report.Invalid))
}

func syncAll(ctx context.Context, a *app, opts *SyncOptions, cmd *cobra.Command, f *OutputFormatter) error {
	ao, err := opts.awardOptions(a, cmd)
	if err != nil {
		return err
	}
	report, err := a.engine.SyncAll(ctx, engine.AllOptions{Awards: ao, UpdateBadges: opts.Update})
	if err != nil {
		return runError(f, err)
	}

	err = f.Report(report.Awards.RunID, report, func(w io.Writer) {
		printBadgeReport(w, report.Badges)
		printAwardReport(w, report.Awards)
		printCountReport(w, report.Counts)
	})
	if err != nil {
		return err
	}
	return failuresToExit(
		len(report.Badges.Failed)+len(report.Awards.Failed)+len(report.Counts.Failed),
		len(report.Awards.Invalid),
	)
}

// runError reports an error that stopped a run.
func runError(f *OutputFormatter, err error) error {
	_ = f.Error(ErrCodeRunFailed, err.Error(), nil)
	return WrapExitError(ExitFailure, "run failed", err)
}

// failuresToExit maps per-recipe failures and unknown slugs to ExitFailure.
func failuresToExit(failed, invalid int) error {
	switch {
	case failed > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d recipe(s) failed", failed))
	case invalid > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d badge slug(s) not registered", invalid))
	}
	return nil
}

// splitSlugs splits a comma- or space-separated slug list.
func splitSlugs(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
