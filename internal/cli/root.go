package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/badgify/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose      bool
	Format       string // "json" | "text"
	DBPath       string
	RecipesDir   string
	UserDB       string
	UserDBDriver string

	// Config is loaded before any subcommand runs, with flags applied.
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the badgify CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "badgify",
		Short: "badgify - declarative badge awarding",
		Long: `Reconcile badges and awards with declarative recipes.

Each recipe names a badge and the users who currently qualify for it.
badgify creates missing badges, awards newly qualifying users, optionally
revokes stale awards and keeps holder counts in sync.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(opts, cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to the badge database (env BADGIFY_DB)")
	cmd.PersistentFlags().StringVar(&opts.RecipesDir, "recipes", "", "directory of *.cue recipes (env BADGIFY_RECIPES)")
	cmd.PersistentFlags().StringVar(&opts.UserDB, "user-db", "", "DSN of the user database membership queries run on")
	cmd.PersistentFlags().StringVar(&opts.UserDBDriver, "user-db-driver", "", "user database driver (sqlite3|postgres)")

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewAwardCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))

	return cmd
}

// setup validates global flags, loads configuration and installs the logger.
func setup(opts *RootOptions, cmd *cobra.Command) error {
	if !isValidFormat(opts.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
	}

	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.RecipesDir != "" {
		cfg.RecipesDir = opts.RecipesDir
	}
	if opts.UserDBDriver != "" {
		cfg.UserDBDriver = opts.UserDBDriver
	}
	if opts.UserDB != "" {
		cfg.UserDBDSN = opts.UserDB
		if cfg.UserDBDriver == "" {
			cfg.UserDBDriver = "sqlite3"
		}
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	opts.Config = cfg

	level := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(opts.Logger)
	return nil
}

// logger returns the configured logger, or the default one before setup ran.
func (opts *RootOptions) logger() *slog.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return slog.Default()
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	err := cmd.Execute()
	if err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) || exitErr.Code == ExitCommandError {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		}
	}
	return GetExitCode(err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newFormatter builds the output formatter for a command.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
}
