package recipe

import (
	"context"
	"fmt"

	"github.com/roach88/badgify/internal/badge"
	"github.com/roach88/badgify/internal/querysql"
)

// Query is a recipe whose membership is a declarative query on the user
// database. The SQL is compiled once, at construction.
type Query struct {
	spec   Spec
	sql    string
	params []any
}

// NewQuery compiles spec's membership for the given dialect.
// A spec without membership yields a recipe whose UserIDs reports
// ErrMembershipUndefined.
func NewQuery(spec Spec, dialect querysql.Dialect) (*Query, error) {
	q := &Query{spec: spec}
	if spec.Membership == nil {
		return q, nil
	}

	sql, params, err := querysql.NewSQLCompiler(dialect).Compile(spec.Membership)
	if err != nil {
		return nil, &badge.ConfigError{Slug: spec.Slug, Field: "membership", Message: "cannot compile query", Err: err}
	}
	q.sql = sql
	q.params = params
	return q, nil
}

func (q *Query) Name() string           { return q.spec.Name }
func (q *Query) Slug() string           { return q.spec.Slug }
func (q *Query) Description() string    { return q.spec.Description }
func (q *Query) ManualAssignment() bool { return q.spec.Manual }

// Image returns the declared image, or ErrImageNotImplemented if empty.
func (q *Query) Image() (string, error) {
	if q.spec.Image == "" {
		return "", ErrImageNotImplemented
	}
	return q.spec.Image, nil
}

// SQL returns the compiled membership statement and its parameters.
func (q *Query) SQL() (string, []any) {
	return q.sql, q.params
}

// UserIDs runs the membership query. Never returns a nil slice on success.
func (q *Query) UserIDs(ctx context.Context, db Querier) ([]badge.UserID, error) {
	if q.sql == "" {
		return nil, ErrMembershipUndefined
	}
	if db == nil {
		return nil, &badge.ConfigError{Slug: q.spec.Slug, Field: "membership", Message: "no user database configured"}
	}

	rows, err := db.QueryContext(ctx, q.sql, q.params...)
	if err != nil {
		return nil, fmt.Errorf("membership query for %q: %w", q.spec.Slug, err)
	}
	defer rows.Close()

	ids := []badge.UserID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id for %q: %w", q.spec.Slug, err)
		}
		ids = append(ids, badge.UserID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ids for %q: %w", q.spec.Slug, err)
	}
	return ids, nil
}
