package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/badgify/internal/badge"
)

// CreateBadge inserts a new badge and returns it as stored.
// An empty slug is derived from the name. Fails with an error wrapping
// badge.ErrDuplicateKey if the slug already exists.
func (s *Store) CreateBadge(ctx context.Context, f badge.Fields) (badge.Badge, error) {
	if f.Slug == "" {
		f.Slug = badge.Slugify(f.Name)
	}
	if !badge.ValidSlug(f.Slug) {
		return badge.Badge{}, &badge.ConfigError{Slug: f.Slug, Field: "slug", Message: "not a valid slug"}
	}

	now := marshalTime(s.now())
	err := s.withRetry(ctx, "create badge "+f.Slug, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO badges (slug, name, description, image, manual_assignment, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, f.Slug, f.Name, f.Description, f.Image, boolToInt(f.ManualAssignment), now, now)
		return err
	})
	if err != nil {
		return badge.Badge{}, err
	}

	return s.GetBadge(ctx, f.Slug)
}

// UpdateBadge applies the non-nil fields of p. An empty patch is a no-op
// that returns the current badge.
func (s *Store) UpdateBadge(ctx context.Context, slug string, p badge.Patch) (badge.Badge, error) {
	if p.Empty() {
		return s.GetBadge(ctx, slug)
	}

	var sets []string
	var args []any
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Image != nil {
		sets = append(sets, "image = ?")
		args = append(args, *p.Image)
	}
	if p.ManualAssignment != nil {
		sets = append(sets, "manual_assignment = ?")
		args = append(args, boolToInt(*p.ManualAssignment))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, marshalTime(s.now()), slug)

	query := `UPDATE badges SET ` + strings.Join(sets, ", ") + ` WHERE slug = ?`

	var affected int64
	err := s.withRetry(ctx, "update badge "+slug, func() error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return badge.Badge{}, err
	}
	if affected == 0 {
		return badge.Badge{}, fmt.Errorf("badge %q: %w", slug, badge.ErrNotFound)
	}

	return s.GetBadge(ctx, slug)
}

// IncrementCount adds delta to the holder count in a single statement.
// The result is clamped at zero so a decrement never drives it negative.
func (s *Store) IncrementCount(ctx context.Context, slug string, delta int64) error {
	return s.updateCount(ctx, "increment count "+slug, slug, `
		UPDATE badges
		SET holder_count = MAX(holder_count + ?, 0), updated_at = ?
		WHERE slug = ?
	`, delta)
}

// SetCount overwrites the holder count.
func (s *Store) SetCount(ctx context.Context, slug string, value int64) error {
	if value < 0 {
		return fmt.Errorf("set count %q: negative value %d", slug, value)
	}
	return s.updateCount(ctx, "set count "+slug, slug, `
		UPDATE badges
		SET holder_count = ?, updated_at = ?
		WHERE slug = ?
	`, value)
}

func (s *Store) updateCount(ctx context.Context, what, slug, query string, value int64) error {
	var affected int64
	err := s.withRetry(ctx, what, func() error {
		res, err := s.db.ExecContext(ctx, query, value, marshalTime(s.now()), slug)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("badge %q: %w", slug, badge.ErrNotFound)
	}
	return nil
}

// InsertAwards writes all awards in one transaction.
// A single pre-existing pair rolls back the whole batch and the returned
// error wraps badge.ErrDuplicateKey.
func (s *Store) InsertAwards(ctx context.Context, awards []badge.Award) error {
	if len(awards) == 0 {
		return nil
	}

	return s.withRetry(ctx, "insert awards", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			ins, err := s.prepareAwardInsert(ctx, tx, "")
			if err != nil {
				return err
			}
			defer ins.close()

			for _, a := range awards {
				if _, _, err := ins.exec(ctx, a); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// InsertAwardsIgnoringConflicts writes awards row by row, skipping pairs
// that already exist. Returns the awards that were actually inserted, in
// input order.
func (s *Store) InsertAwardsIgnoringConflicts(ctx context.Context, awards []badge.Award) ([]badge.Award, error) {
	if len(awards) == 0 {
		return nil, nil
	}

	var inserted []badge.Award
	err := s.withRetry(ctx, "insert awards ignoring conflicts", func() error {
		inserted = inserted[:0]
		return s.inTx(ctx, func(tx *sql.Tx) error {
			ins, err := s.prepareAwardInsert(ctx, tx, "ON CONFLICT (user_id, badge_id) DO NOTHING")
			if err != nil {
				return err
			}
			defer ins.close()

			for _, a := range awards {
				a, n, err := ins.exec(ctx, a)
				if err != nil {
					return err
				}
				if n == 1 {
					inserted = append(inserted, a)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// DeleteAwards removes the awards of the given users and returns the rows
// actually deleted. Users without the award are ignored.
func (s *Store) DeleteAwards(ctx context.Context, slug string, ids []badge.UserID) ([]badge.Award, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var deleted []badge.Award
	err := s.withRetry(ctx, "delete awards "+slug, func() error {
		deleted = deleted[:0]
		return s.inTx(ctx, func(tx *sql.Tx) error {
			badgeID, err := lookupBadgeID(ctx, tx, slug)
			if err != nil {
				return err
			}

			for start := 0; start < len(ids); start += maxInParams {
				chunk := ids[start:min(start+maxInParams, len(ids))]
				args := make([]any, 0, len(chunk)+1)
				args = append(args, badgeID)
				for _, id := range chunk {
					args = append(args, int64(id))
				}

				rows, err := tx.QueryContext(ctx, `
					DELETE FROM awards
					WHERE badge_id = ? AND user_id IN (`+placeholders(len(chunk))+`)
					RETURNING user_id, awarded_at
				`, args...)
				if err != nil {
					return err
				}
				if err := collectDeleted(rows, slug, &deleted); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// DeleteAllAwards removes every award of a badge.
func (s *Store) DeleteAllAwards(ctx context.Context, slug string) (int64, error) {
	var n int64
	err := s.withRetry(ctx, "delete all awards "+slug, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			badgeID, err := lookupBadgeID(ctx, tx, slug)
			if err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx, `DELETE FROM awards WHERE badge_id = ?`, badgeID)
			if err != nil {
				return err
			}
			n, err = res.RowsAffected()
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// inTx runs fn inside a transaction, committing on success.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func lookupBadgeID(ctx context.Context, tx *sql.Tx, slug string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM badges WHERE slug = ?`, slug).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("badge %q: %w", slug, badge.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup badge %q: %w", slug, err)
	}
	return id, nil
}

// awardInserter caches badge ids so a batch spanning several badges
// resolves each slug once.
type awardInserter struct {
	s        *Store
	tx       *sql.Tx
	stmt     *sql.Stmt
	badgeIDs map[string]int64
}

func (s *Store) prepareAwardInsert(ctx context.Context, tx *sql.Tx, conflict string) (*awardInserter, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO awards (user_id, badge_id, awarded_at)
		VALUES (?, ?, ?)
	`+conflict)
	if err != nil {
		return nil, fmt.Errorf("prepare award insert: %w", err)
	}
	return &awardInserter{s: s, tx: tx, stmt: stmt, badgeIDs: make(map[string]int64)}, nil
}

// exec inserts one award, stamping AwardedAt when unset.
// Returns the award as written and the number of rows affected.
func (ins *awardInserter) exec(ctx context.Context, a badge.Award) (badge.Award, int64, error) {
	badgeID, ok := ins.badgeIDs[a.BadgeSlug]
	if !ok {
		id, err := lookupBadgeID(ctx, ins.tx, a.BadgeSlug)
		if err != nil {
			return a, 0, err
		}
		ins.badgeIDs[a.BadgeSlug] = id
		badgeID = id
	}

	if a.AwardedAt.IsZero() {
		a.AwardedAt = ins.s.now()
	}
	a.AwardedAt = a.AwardedAt.UTC()

	res, err := ins.stmt.ExecContext(ctx, int64(a.UserID), badgeID, marshalTime(a.AwardedAt))
	if err != nil {
		return a, 0, fmt.Errorf("insert award (%s, %s): %w", a.BadgeSlug, a.UserID, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return a, 0, fmt.Errorf("rows affected: %w", err)
	}
	return a, n, nil
}

func (ins *awardInserter) close() {
	ins.stmt.Close()
}

func collectDeleted(rows *sql.Rows, slug string, into *[]badge.Award) error {
	defer rows.Close()
	for rows.Next() {
		var userID int64
		var awardedAt string
		if err := rows.Scan(&userID, &awardedAt); err != nil {
			return fmt.Errorf("scan deleted award: %w", err)
		}
		at, err := unmarshalTime(awardedAt)
		if err != nil {
			return err
		}
		*into = append(*into, badge.Award{BadgeSlug: slug, UserID: badge.UserID(userID), AwardedAt: at})
	}
	return rows.Err()
}
