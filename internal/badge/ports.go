package badge

import "context"

// BadgeStore persists badge definitions and their denormalized holder counts.
type BadgeStore interface {
	// GetBadge returns the badge with the given slug, or an error wrapping ErrNotFound.
	GetBadge(ctx context.Context, slug string) (Badge, error)

	// CreateBadge inserts a badge. Fails with ErrDuplicateKey if the slug exists.
	CreateBadge(ctx context.Context, f Fields) (Badge, error)

	// UpdateBadge applies a patch to the badge's mutable metadata.
	UpdateBadge(ctx context.Context, slug string, p Patch) (Badge, error)

	// IncrementCount atomically adds delta to the holder count, clamped at zero.
	IncrementCount(ctx context.Context, slug string, delta int64) error

	// SetCount overwrites the holder count.
	SetCount(ctx context.Context, slug string, value int64) error

	// ListBadges returns every badge ordered by slug.
	ListBadges(ctx context.Context) ([]Badge, error)
}

// AwardStore persists (user, badge) awards under a uniqueness constraint on the pair.
type AwardStore interface {
	// ExistingUserIDs returns which of the given users already hold the badge.
	ExistingUserIDs(ctx context.Context, slug string, ids []UserID) (map[UserID]struct{}, error)

	// AllUserIDs returns every user holding the badge.
	AllUserIDs(ctx context.Context, slug string) (map[UserID]struct{}, error)

	// InsertAwards inserts all awards in one transaction. If any pair already
	// exists the whole batch is rejected with ErrDuplicateKey and nothing is written.
	InsertAwards(ctx context.Context, awards []Award) error

	// InsertAwardsIgnoringConflicts inserts awards one row at a time, skipping
	// pairs that already exist, and returns the awards actually inserted.
	InsertAwardsIgnoringConflicts(ctx context.Context, awards []Award) ([]Award, error)

	// DeleteAwards deletes the awards of the given users for a badge and
	// returns the awards actually deleted.
	DeleteAwards(ctx context.Context, slug string, ids []UserID) ([]Award, error)

	// DeleteAllAwards deletes every award of a badge and returns how many were removed.
	DeleteAllAwards(ctx context.Context, slug string) (int64, error)

	// CountAwards returns the number of awards for a badge.
	CountAwards(ctx context.Context, slug string) (int64, error)
}

// Store is the complete persistence port used by the engine.
type Store interface {
	BadgeStore
	AwardStore
}
