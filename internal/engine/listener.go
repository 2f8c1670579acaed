package engine

import (
	"context"

	"github.com/roach88/badgify/internal/badge"
)

// Listener observes award changes committed by the engine.
//
// Each method is called synchronously, once per award, after the batch that
// contains it has committed. A returned error is logged and does not undo
// the award.
type Listener interface {
	AwardCreated(ctx context.Context, a badge.Award) error
	AwardRevoked(ctx context.Context, a badge.Award) error
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are no-ops.
type ListenerFuncs struct {
	Created func(ctx context.Context, a badge.Award) error
	Revoked func(ctx context.Context, a badge.Award) error
}

// AwardCreated implements Listener.
func (f ListenerFuncs) AwardCreated(ctx context.Context, a badge.Award) error {
	if f.Created == nil {
		return nil
	}
	return f.Created(ctx, a)
}

// AwardRevoked implements Listener.
func (f ListenerFuncs) AwardRevoked(ctx context.Context, a badge.Award) error {
	if f.Revoked == nil {
		return nil
	}
	return f.Revoked(ctx, a)
}

// notify fans awards out to every listener.
func (e *Engine) notify(ctx context.Context, created bool, awards []badge.Award) {
	for _, a := range awards {
		for _, l := range e.listeners {
			var err error
			if created {
				err = l.AwardCreated(ctx, a)
			} else {
				err = l.AwardRevoked(ctx, a)
			}
			if err != nil {
				e.logger.Warn("award listener failed",
					"badge", a.BadgeSlug,
					"user", a.UserID,
					"created", created,
					"error", err)
			}
		}
	}
}
