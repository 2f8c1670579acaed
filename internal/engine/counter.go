package engine

import (
	"context"

	"github.com/roach88/badgify/internal/badge"
)

// Counter keeps each badge's holder count current as awards change.
//
// Every notification is one relative update in the store, so concurrent
// counters never lose increments. Decrements are clamped at zero by the
// store.
type Counter struct {
	store badge.BadgeStore
}

var _ Listener = (*Counter)(nil)

// NewCounter creates a counter writing to s.
func NewCounter(s badge.BadgeStore) *Counter {
	return &Counter{store: s}
}

// AwardCreated increments the badge's holder count.
func (c *Counter) AwardCreated(ctx context.Context, a badge.Award) error {
	return c.store.IncrementCount(ctx, a.BadgeSlug, 1)
}

// AwardRevoked decrements the badge's holder count.
func (c *Counter) AwardRevoked(ctx context.Context, a badge.Award) error {
	return c.store.IncrementCount(ctx, a.BadgeSlug, -1)
}
