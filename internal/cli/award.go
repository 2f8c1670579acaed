package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/badgify/internal/badge"
)

// ManualResult is the payload of award grant and award revoke.
type ManualResult struct {
	Badge     string        `json:"badge"`
	Requested int           `json:"requested"`
	Changed   []badge.Award `json:"changed"`
}

// NewAwardCommand creates the award command for manual assignment.
func NewAwardCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "award",
		Short: "Grant or revoke a badge by hand",
		Long: `Grant or revoke a badge for specific users.

Used for badges with manual assignment, which award sync never touches.

Example:
  badgify award grant staff 12 57
  badgify award revoke staff 57`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "grant <badge> <user-id>...",
		Short: "Award a badge to users",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManual(rootOpts, cmd, args, "granted", func(ctx context.Context, a *app, slug string, ids []badge.UserID) ([]badge.Award, error) {
				return a.engine.Grant(ctx, slug, ids)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <badge> <user-id>...",
		Short: "Remove a badge from users",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManual(rootOpts, cmd, args, "revoked", func(ctx context.Context, a *app, slug string, ids []badge.UserID) ([]badge.Award, error) {
				return a.engine.Revoke(ctx, slug, ids)
			})
		},
	})

	return cmd
}

type manualOp func(ctx context.Context, a *app, slug string, ids []badge.UserID) ([]badge.Award, error)

func runManual(opts *RootOptions, cmd *cobra.Command, args []string, verb string, op manualOp) error {
	f := newFormatter(opts, cmd)
	slug := args[0]

	ids := make([]badge.UserID, 0, len(args)-1)
	for _, arg := range args[1:] {
		id, err := badge.ParseUserID(arg)
		if err != nil {
			_ = f.Error(ErrCodeGeneric, fmt.Sprintf("invalid user id %q", arg), nil)
			return WrapExitError(ExitCommandError, "invalid user id", err)
		}
		ids = append(ids, id)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	changed, err := op(ctx, a, slug, ids)
	if badge.IsNotFound(err) {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("badge %q does not exist", slug), nil)
		return WrapExitError(ExitCommandError, "badge not found", err)
	}
	if err != nil {
		return runError(f, err)
	}

	result := ManualResult{Badge: slug, Requested: len(ids), Changed: changed}
	if result.Changed == nil {
		result.Changed = []badge.Award{}
	}
	return f.Report("", result, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %d of %d user(s) %s\n", slug, len(changed), len(ids), verb)
	})
}
