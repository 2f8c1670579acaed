package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/badgify/internal/badge"
	"github.com/roach88/badgify/internal/recipe"
)

// AwardOptions controls a SyncAwards run.
type AwardOptions struct {
	Include []string
	Exclude []string

	// BatchSize bounds awards per insert or delete transaction. Default 500.
	BatchSize int

	// IDsLimit bounds user ids per existing-award lookup. Default 1000.
	IDsLimit int

	// Workers is the number of recipes reconciled in parallel. Default 1.
	Workers int

	// DisableNotifications suppresses listener calls, including counter updates.
	DisableNotifications bool

	// Revoke deletes awards of users who no longer qualify.
	Revoke bool

	// DB overrides the engine's user database for membership queries.
	DB recipe.Querier
}

func (o AwardOptions) withDefaults() AwardOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.IDsLimit <= 0 {
		o.IDsLimit = DefaultIDsLimit
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// SyncAwards brings the awards of every selected recipe in line with its
// current membership.
//
// Only a cancelled context is returned as an error; batches committed before
// cancellation are kept. Per-recipe failures are recorded in the report.
func (e *Engine) SyncAwards(ctx context.Context, opts AwardOptions) (*AwardReport, error) {
	opts = opts.withDefaults()
	runID, logger := e.startRun("sync_awards")
	recipes, invalid := e.selectRecipes(opts.Include, opts.Exclude)

	db := opts.DB
	if db == nil {
		db = e.userDB
	}

	report := &AwardReport{
		RunID:   runID,
		Recipes: []RecipeAwards{},
		Invalid: invalid,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, rec := range recipes {
		g.Go(func() error {
			res, skip, err := e.syncRecipeAwards(gctx, logger, rec, db, opts)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case skip != "":
				report.Skipped = append(report.Skipped, Skip{Slug: rec.Slug(), Reason: skip})
				return nil
			case res != nil:
				report.Recipes = append(report.Recipes, *res)
			}

			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logger.Error("award sync failed", "badge", rec.Slug(), "error", err)
				report.Failed = append(report.Failed, Failure{Slug: rec.Slug(), Error: err.Error()})
			}
			return nil
		})
	}

	err := g.Wait()
	report.sort()

	logger.Info("award sync complete",
		"recipes", len(report.Recipes),
		"created", report.Created(),
		"revoked", report.Revoked(),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed))

	if err != nil {
		return report, err
	}
	return report, ctx.Err()
}

// syncRecipeAwards reconciles one recipe under its slug lock.
// Returns a non-empty skip reason when the recipe was not reconciled.
// A partial result is returned alongside an error when some batches
// committed before the failure.
func (e *Engine) syncRecipeAwards(
	ctx context.Context,
	logger *slog.Logger,
	rec recipe.Recipe,
	db recipe.Querier,
	opts AwardOptions,
) (*RecipeAwards, string, error) {
	slug := rec.Slug()
	logger = logger.With("badge", slug)

	var (
		res  *RecipeAwards
		skip string
	)
	err := e.withSlugLock(ctx, slug, func() error {
		b, err := e.store.GetBadge(ctx, slug)
		if badge.IsNotFound(err) {
			logger.Warn("badge does not exist, run `sync badges` to create missing ones")
			skip = SkipBadgeMissing
			return nil
		}
		if err != nil {
			return storageError(slug, "get badge", err)
		}

		if b.ManualAssignment || recipe.IsManual(rec) {
			logger.Debug("badge is manually assigned, skipping")
			skip = SkipManualAssignment
			return nil
		}

		ids, err := rec.UserIDs(ctx, db)
		if errors.Is(err, recipe.ErrMembershipUndefined) {
			logger.Debug("membership undefined, skipping")
			skip = SkipMembershipUndefined
			return nil
		}
		if err != nil {
			return &RecipeError{Code: ErrCodeMembership, Slug: slug, Message: "compute membership", Err: err}
		}

		res = &RecipeAwards{Slug: slug}
		return e.reconcile(ctx, logger, slug, normalizeIDs(ids), opts, res)
	})
	return res, skip, err
}

// reconcile applies the delta between current membership and held awards.
func (e *Engine) reconcile(
	ctx context.Context,
	logger *slog.Logger,
	slug string,
	current []badge.UserID,
	opts AwardOptions,
	res *RecipeAwards,
) error {
	res.Qualifying = len(current)

	held, err := e.heldBy(ctx, slug, current, opts)
	if err != nil {
		return storageError(slug, "read existing awards", err)
	}

	currentSet := make(map[badge.UserID]struct{}, len(current))
	toAward := make([]badge.UserID, 0, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
		if _, ok := held[id]; ok {
			res.Already++
			continue
		}
		toAward = append(toAward, id)
	}

	if opts.Revoke {
		var toRevoke []badge.UserID
		for id := range held {
			if _, ok := currentSet[id]; !ok {
				toRevoke = append(toRevoke, id)
			}
		}
		slices.Sort(toRevoke)

		if err := e.revokeBatches(ctx, slug, toRevoke, opts, res); err != nil {
			return err
		}
	}

	if err := e.awardBatches(ctx, logger, slug, toAward, opts, res); err != nil {
		return err
	}

	logger.Info("awards synced",
		"qualifying", res.Qualifying,
		"already", res.Already,
		"created", res.Created,
		"revoked", res.Revoked,
		"duplicates", res.Duplicates,
		"batches", res.Batches)
	return nil
}

// heldBy returns the users holding the badge. Without revocation only the
// current ids are probed, IDsLimit at a time; with revocation every holder
// is needed.
func (e *Engine) heldBy(ctx context.Context, slug string, current []badge.UserID, opts AwardOptions) (map[badge.UserID]struct{}, error) {
	if opts.Revoke {
		return e.store.AllUserIDs(ctx, slug)
	}

	held := make(map[badge.UserID]struct{})
	for _, ids := range chunk(current, opts.IDsLimit) {
		part, err := e.store.ExistingUserIDs(ctx, slug, ids)
		if err != nil {
			return nil, err
		}
		for id := range part {
			held[id] = struct{}{}
		}
	}
	return held, nil
}

func (e *Engine) revokeBatches(ctx context.Context, slug string, ids []badge.UserID, opts AwardOptions, res *RecipeAwards) error {
	for _, batch := range chunk(ids, opts.BatchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}

		deleted, err := e.store.DeleteAwards(ctx, slug, batch)
		if err != nil {
			return storageError(slug, "revoke awards", err)
		}
		res.Revoked += len(deleted)

		if !opts.DisableNotifications {
			e.notify(ctx, false, deleted)
		}
	}
	return nil
}

func (e *Engine) awardBatches(
	ctx context.Context,
	logger *slog.Logger,
	slug string,
	ids []badge.UserID,
	opts AwardOptions,
	res *RecipeAwards,
) error {
	for _, batch := range chunk(ids, opts.BatchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := e.clock.Now()
		awards := make([]badge.Award, len(batch))
		for i, id := range batch {
			awards[i] = badge.Award{BadgeSlug: slug, UserID: id, AwardedAt: now}
		}

		inserted, dups, err := e.insertBatch(ctx, logger, awards)
		if err != nil {
			return storageError(slug, "insert awards", err)
		}
		res.Batches++
		res.Created += len(inserted)
		res.Duplicates += dups

		if !opts.DisableNotifications {
			e.notify(ctx, true, inserted)
		}
	}
	return nil
}

// insertBatch writes one batch atomically. On a duplicate pair the batch is
// either salvaged row by row or dropped, depending on engine configuration.
// Returns the awards actually inserted and how many were duplicates.
func (e *Engine) insertBatch(ctx context.Context, logger *slog.Logger, awards []badge.Award) ([]badge.Award, int, error) {
	err := e.store.InsertAwards(ctx, awards)
	if err == nil {
		return awards, 0, nil
	}
	if !badge.IsDuplicate(err) {
		return nil, 0, err
	}

	if !e.salvage {
		logger.Warn("batch rejected by duplicate award, dropping", "size", len(awards), "error", err)
		return nil, len(awards), nil
	}

	logger.Warn("batch rejected by duplicate award, salvaging row by row", "size", len(awards))
	inserted, err := e.store.InsertAwardsIgnoringConflicts(ctx, awards)
	if err != nil {
		return nil, 0, err
	}
	return inserted, len(awards) - len(inserted), nil
}

// normalizeIDs sorts and deduplicates membership ids.
func normalizeIDs(ids []badge.UserID) []badge.UserID {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
