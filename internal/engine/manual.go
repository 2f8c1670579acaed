package engine

import (
	"context"
	"fmt"

	"github.com/roach88/badgify/internal/badge"
)

// Grant awards the badge to the given users, skipping users who already
// hold it. Listeners are notified for every award inserted.
// Returns the awards actually inserted.
func (e *Engine) Grant(ctx context.Context, slug string, ids []badge.UserID) ([]badge.Award, error) {
	_, logger := e.startRun("grant")
	logger = logger.With("badge", slug)

	var inserted []badge.Award
	err := e.withSlugLock(ctx, slug, func() error {
		if _, err := e.store.GetBadge(ctx, slug); err != nil {
			return fmt.Errorf("grant %s: %w", slug, err)
		}

		now := e.clock.Now()
		for _, batch := range chunk(normalizeIDs(ids), DefaultBatchSize) {
			awards := make([]badge.Award, len(batch))
			for i, id := range batch {
				awards[i] = badge.Award{BadgeSlug: slug, UserID: id, AwardedAt: now}
			}

			got, err := e.store.InsertAwardsIgnoringConflicts(ctx, awards)
			if err != nil {
				return storageError(slug, "grant awards", err)
			}
			e.notify(ctx, true, got)
			inserted = append(inserted, got...)
		}
		return nil
	})
	if err != nil {
		return inserted, err
	}

	logger.Info("awards granted", "requested", len(ids), "created", len(inserted))
	return inserted, nil
}

// Revoke removes the badge from the given users. Users without the award
// are ignored. Listeners are notified for every award deleted.
// Returns the awards actually deleted.
func (e *Engine) Revoke(ctx context.Context, slug string, ids []badge.UserID) ([]badge.Award, error) {
	_, logger := e.startRun("revoke")
	logger = logger.With("badge", slug)

	var deleted []badge.Award
	err := e.withSlugLock(ctx, slug, func() error {
		for _, batch := range chunk(normalizeIDs(ids), DefaultBatchSize) {
			got, err := e.store.DeleteAwards(ctx, slug, batch)
			if err != nil {
				return fmt.Errorf("revoke %s: %w", slug, err)
			}
			e.notify(ctx, false, got)
			deleted = append(deleted, got...)
		}
		return nil
	})
	if err != nil {
		return deleted, err
	}

	logger.Info("awards revoked", "requested", len(ids), "revoked", len(deleted))
	return deleted, nil
}
