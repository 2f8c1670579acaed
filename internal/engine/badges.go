package engine

import (
	"context"

	"github.com/roach88/badgify/internal/badge"
	"github.com/roach88/badgify/internal/recipe"
)

// BadgeOptions selects recipes for SyncBadges.
type BadgeOptions struct {
	Include []string
	Exclude []string

	// Update patches metadata of existing badges that differs from the recipe.
	Update bool
}

// SyncBadges ensures a badge exists for every selected recipe.
//
// Missing badges are created from recipe metadata. Existing badges are left
// alone unless opts.Update is set, in which case only differing fields are
// patched; the slug and holder count are never touched. Awards are never
// touched.
//
// A recipe without an image stops the run with a *badge.ConfigError.
// Other per-recipe failures are recorded in the report.
func (e *Engine) SyncBadges(ctx context.Context, opts BadgeOptions) (*BadgeReport, error) {
	runID, logger := e.startRun("sync_badges")
	recipes, invalid := e.selectRecipes(opts.Include, opts.Exclude)

	report := &BadgeReport{
		RunID:     runID,
		Created:   []string{},
		Updated:   []string{},
		Unchanged: []string{},
		Invalid:   invalid,
	}

	for _, rec := range recipes {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		slug := rec.Slug()
		fields, err := recipe.Fields(rec)
		if err != nil {
			logger.Error("invalid recipe configuration", "badge", slug, "error", err)
			return report, err
		}

		outcome, err := e.syncBadge(ctx, fields, opts.Update)
		if err != nil {
			logger.Error("badge sync failed", "badge", slug, "error", err)
			report.Failed = append(report.Failed, Failure{Slug: slug, Error: err.Error()})
			continue
		}

		switch outcome {
		case badgeCreated:
			logger.Info("badge created", "badge", slug)
			report.Created = append(report.Created, slug)
		case badgeUpdated:
			logger.Info("badge updated", "badge", slug)
			report.Updated = append(report.Updated, slug)
		default:
			logger.Debug("badge unchanged", "badge", slug)
			report.Unchanged = append(report.Unchanged, slug)
		}
	}

	logger.Info("badge sync complete",
		"created", len(report.Created),
		"updated", len(report.Updated),
		"unchanged", len(report.Unchanged),
		"failed", len(report.Failed))
	return report, nil
}

type badgeOutcome int

const (
	badgeUnchanged badgeOutcome = iota
	badgeCreated
	badgeUpdated
)

func (e *Engine) syncBadge(ctx context.Context, fields badge.Fields, update bool) (badgeOutcome, error) {
	existing, err := e.store.GetBadge(ctx, fields.Slug)
	switch {
	case badge.IsNotFound(err):
		_, err := e.store.CreateBadge(ctx, fields)
		if badge.IsDuplicate(err) {
			// Created concurrently by another writer
			e.logger.Info("badge already created", "badge", fields.Slug)
			return badgeUnchanged, nil
		}
		if err != nil {
			return badgeUnchanged, storageError(fields.Slug, "create badge", err)
		}
		return badgeCreated, nil
	case err != nil:
		return badgeUnchanged, storageError(fields.Slug, "get badge", err)
	}

	if !update {
		return badgeUnchanged, nil
	}

	patch := badge.Diff(existing, fields)
	if patch.Empty() {
		return badgeUnchanged, nil
	}
	if _, err := e.store.UpdateBadge(ctx, fields.Slug, patch); err != nil {
		return badgeUnchanged, storageError(fields.Slug, "update badge", err)
	}
	return badgeUpdated, nil
}
