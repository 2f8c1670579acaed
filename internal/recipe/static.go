package recipe

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/badgify/internal/badge"
)

// Static is a recipe with fixed metadata and an in-memory id list.
// The list can be replaced between passes, which makes Static the
// recipe of choice for tests and scenarios.
type Static struct {
	spec Spec

	mu  sync.RWMutex
	ids []badge.UserID
}

// NewStatic creates a recipe from spec whose members are ids.
// spec.Membership is ignored.
func NewStatic(spec Spec, ids ...badge.UserID) *Static {
	s := &Static{spec: spec}
	s.SetUserIDs(ids)
	return s
}

func (s *Static) Name() string           { return s.spec.Name }
func (s *Static) Slug() string           { return s.spec.Slug }
func (s *Static) Description() string    { return s.spec.Description }
func (s *Static) ManualAssignment() bool { return s.spec.Manual }

// Image returns the declared image, or ErrImageNotImplemented if empty.
func (s *Static) Image() (string, error) {
	if s.spec.Image == "" {
		return "", ErrImageNotImplemented
	}
	return s.spec.Image, nil
}

// UserIDs returns a copy of the current members. Never nil.
func (s *Static) UserIDs(context.Context, Querier) ([]badge.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ids), nil
}

// SetUserIDs replaces the member list.
func (s *Static) SetUserIDs(ids []badge.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ids == nil {
		ids = []badge.UserID{}
	}
	s.ids = slices.Clone(ids)
}
