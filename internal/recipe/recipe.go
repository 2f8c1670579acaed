package recipe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/badgify/internal/badge"
	"github.com/roach88/badgify/internal/queryir"
)

var (
	// ErrImageNotImplemented is returned by Image when a recipe has no image.
	ErrImageNotImplemented = errors.New("image not implemented")

	// ErrMembershipUndefined is returned by UserIDs when a recipe has no
	// membership source. Award sync skips such recipes.
	ErrMembershipUndefined = errors.New("membership source undefined")
)

// Querier is the read path into the user database. *sql.DB, *sql.Conn and
// *sql.Tx all satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// MembershipSource computes the users who currently qualify for a badge.
//
// UserIDs is called fresh on every reconciliation pass and must not mutate
// recipe state. A non-nil empty slice means nobody qualifies.
type MembershipSource interface {
	UserIDs(ctx context.Context, db Querier) ([]badge.UserID, error)
}

// Recipe describes one badge and its membership.
type Recipe interface {
	Name() string
	Slug() string
	Description() string

	// Image returns the badge image reference, or ErrImageNotImplemented.
	Image() (string, error)

	MembershipSource
}

// ManualAssigner is implemented by recipes whose badge is granted by hand.
type ManualAssigner interface {
	ManualAssignment() bool
}

// IsManual reports whether r opts into manual assignment.
func IsManual(r Recipe) bool {
	m, ok := r.(ManualAssigner)
	return ok && m.ManualAssignment()
}

// Fields returns the badge fields declared by r.
// Fails with a *badge.ConfigError if the image is not implemented.
func Fields(r Recipe) (badge.Fields, error) {
	image, err := r.Image()
	if err != nil {
		return badge.Fields{}, &badge.ConfigError{
			Slug:    r.Slug(),
			Field:   "image",
			Message: "recipe must provide an image",
			Err:     err,
		}
	}
	return badge.Fields{
		Name:             r.Name(),
		Slug:             r.Slug(),
		Description:      r.Description(),
		Image:            image,
		ManualAssignment: IsManual(r),
	}, nil
}

// Base supplies defaults for optional recipe capabilities.
// Embed it and override what the recipe implements.
type Base struct{}

// Description returns an empty description.
func (Base) Description() string { return "" }

// Image reports that no image is implemented.
func (Base) Image() (string, error) { return "", ErrImageNotImplemented }

// UserIDs reports that no membership source is defined.
func (Base) UserIDs(context.Context, Querier) ([]badge.UserID, error) {
	return nil, ErrMembershipUndefined
}

// Spec is the declarative form of a recipe, as compiled from CUE.
type Spec struct {
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug" validate:"required"`
	Description string `json:"description"`
	Image       string `json:"image" validate:"required"`
	Manual      bool   `json:"manual"`

	// Membership is nil when the recipe declares no membership source.
	Membership *queryir.Select `json:"-" validate:"-"`
}

// ContractError reports a recipe that cannot be registered.
type ContractError struct {
	Slug   string
	Reason string
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	if e.Slug == "" {
		return fmt.Sprintf("recipe contract violation: %s", e.Reason)
	}
	return fmt.Sprintf("recipe %q: contract violation: %s", e.Slug, e.Reason)
}

// Is makes every ContractError match badge.ErrContractViolation.
func (e *ContractError) Is(target error) bool {
	return target == badge.ErrContractViolation
}

// NotFoundError reports a slug with no registered recipe.
type NotFoundError struct {
	Slug string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("badge %q has not been registered", e.Slug)
}

// Is makes every NotFoundError match badge.ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == badge.ErrNotFound
}
