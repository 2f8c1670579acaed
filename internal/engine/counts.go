package engine

import (
	"context"

	"github.com/roach88/badgify/internal/badge"
)

// CountOptions selects recipes for SyncCounts.
type CountOptions struct {
	Include []string
	Exclude []string
}

// SyncCounts recomputes the holder count of every selected badge from its
// awards and writes the counts that differ. Idempotent.
func (e *Engine) SyncCounts(ctx context.Context, opts CountOptions) (*CountReport, error) {
	runID, logger := e.startRun("sync_counts")
	recipes, invalid := e.selectRecipes(opts.Include, opts.Exclude)

	report := &CountReport{
		RunID:     runID,
		Updated:   []string{},
		Unchanged: []string{},
		Invalid:   invalid,
	}

	for _, rec := range recipes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		slug := rec.Slug()

		err := e.withSlugLock(ctx, slug, func() error {
			b, err := e.store.GetBadge(ctx, slug)
			if badge.IsNotFound(err) {
				report.Skipped = append(report.Skipped, Skip{Slug: slug, Reason: SkipBadgeMissing})
				return nil
			}
			if err != nil {
				return storageError(slug, "get badge", err)
			}

			live, err := e.store.CountAwards(ctx, slug)
			if err != nil {
				return storageError(slug, "count awards", err)
			}

			if live == b.HolderCount {
				report.Unchanged = append(report.Unchanged, slug)
				return nil
			}
			if err := e.store.SetCount(ctx, slug, live); err != nil {
				return storageError(slug, "set count", err)
			}
			logger.Info("holder count updated", "badge", slug, "old", b.HolderCount, "new", live)
			report.Updated = append(report.Updated, slug)
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.Error("count sync failed", "badge", slug, "error", err)
			report.Failed = append(report.Failed, Failure{Slug: slug, Error: err.Error()})
		}
	}

	logger.Info("count sync complete",
		"updated", len(report.Updated),
		"unchanged", len(report.Unchanged),
		"failed", len(report.Failed))
	return report, nil
}

// ResetOptions selects recipes for ResetAwards.
type ResetOptions struct {
	Include []string
	Exclude []string
}

// ResetAwards deletes every award of the selected badges and zeroes their
// holder counts. Listeners are not notified. Badges themselves are kept.
func (e *Engine) ResetAwards(ctx context.Context, opts ResetOptions) (*ResetReport, error) {
	runID, logger := e.startRun("reset_awards")
	recipes, invalid := e.selectRecipes(opts.Include, opts.Exclude)

	report := &ResetReport{
		RunID:   runID,
		Reset:   []ResetEntry{},
		Invalid: invalid,
	}

	for _, rec := range recipes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		slug := rec.Slug()

		err := e.withSlugLock(ctx, slug, func() error {
			n, err := e.store.DeleteAllAwards(ctx, slug)
			if badge.IsNotFound(err) {
				report.Skipped = append(report.Skipped, Skip{Slug: slug, Reason: SkipBadgeMissing})
				return nil
			}
			if err != nil {
				return storageError(slug, "delete awards", err)
			}
			if err := e.store.SetCount(ctx, slug, 0); err != nil {
				return storageError(slug, "reset count", err)
			}
			logger.Info("awards reset", "badge", slug, "deleted", n)
			report.Reset = append(report.Reset, ResetEntry{Slug: slug, Deleted: n})
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.Error("reset failed", "badge", slug, "error", err)
			report.Failed = append(report.Failed, Failure{Slug: slug, Error: err.Error()})
		}
	}

	return report, nil
}

// Stats compares live award counts with stored holder counts for every
// registered recipe whose badge exists, ordered by slug.
func (e *Engine) Stats(ctx context.Context) ([]badge.Stat, error) {
	recipes, _ := e.selectRecipes(nil, nil)

	stats := []badge.Stat{}
	for _, rec := range recipes {
		b, err := e.store.GetBadge(ctx, rec.Slug())
		if badge.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		live, err := e.store.CountAwards(ctx, b.Slug)
		if err != nil {
			return nil, err
		}
		stats = append(stats, badge.Stat{
			Slug:        b.Slug,
			Name:        b.Name,
			LiveCount:   live,
			StoredCount: b.HolderCount,
		})
	}
	return stats, nil
}
