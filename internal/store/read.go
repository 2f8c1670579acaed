package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/badgify/internal/badge"
)

// maxInParams bounds the number of bound parameters in one IN (...) list.
// SQLite's default SQLITE_MAX_VARIABLE_NUMBER is 32766.
const maxInParams = 30000

// GetBadge retrieves a badge by slug.
// Returns an error wrapping badge.ErrNotFound if the slug is unknown.
func (s *Store) GetBadge(ctx context.Context, slug string) (badge.Badge, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+badgeColumns+`
		FROM badges
		WHERE slug = ?
	`, slug)

	b, err := scanBadge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return badge.Badge{}, fmt.Errorf("badge %q: %w", slug, badge.ErrNotFound)
	}
	if err != nil {
		return badge.Badge{}, fmt.Errorf("get badge %q: %w", slug, classify(err))
	}
	return b, nil
}

// ListBadges returns all badges ordered by slug.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListBadges(ctx context.Context) ([]badge.Badge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+badgeColumns+`
		FROM badges
		ORDER BY slug COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query badges: %w", classify(err))
	}
	defer rows.Close()

	badges := []badge.Badge{}
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate badges: %w", err)
	}
	return badges, nil
}

// ExistingUserIDs returns the subset of ids that already hold the badge.
// Large id lists are split so no statement exceeds maxInParams.
func (s *Store) ExistingUserIDs(ctx context.Context, slug string, ids []badge.UserID) (map[badge.UserID]struct{}, error) {
	existing := make(map[badge.UserID]struct{})

	for start := 0; start < len(ids); start += maxInParams {
		end := min(start+maxInParams, len(ids))
		chunk := ids[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, slug)
		for _, id := range chunk {
			args = append(args, int64(id))
		}

		rows, err := s.db.QueryContext(ctx, `
			SELECT a.user_id
			FROM awards a
			JOIN badges b ON b.id = a.badge_id
			WHERE b.slug = ? AND a.user_id IN (`+placeholders(len(chunk))+`)
		`, args...)
		if err != nil {
			return nil, fmt.Errorf("query existing awards for %q: %w", slug, classify(err))
		}
		if err := scanUserIDs(rows, existing); err != nil {
			return nil, err
		}
	}

	return existing, nil
}

// AllUserIDs returns every user holding the badge.
func (s *Store) AllUserIDs(ctx context.Context, slug string) (map[badge.UserID]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.user_id
		FROM awards a
		JOIN badges b ON b.id = a.badge_id
		WHERE b.slug = ?
		ORDER BY a.user_id ASC
	`, slug)
	if err != nil {
		return nil, fmt.Errorf("query awards for %q: %w", slug, classify(err))
	}

	ids := make(map[badge.UserID]struct{})
	if err := scanUserIDs(rows, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// CountAwards returns the number of awards for a badge.
func (s *Store) CountAwards(ctx context.Context, slug string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM awards a
		JOIN badges b ON b.id = a.badge_id
		WHERE b.slug = ?
	`, slug).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count awards for %q: %w", slug, classify(err))
	}
	return count, nil
}

// ListAwards returns the awards of a badge ordered by user id.
func (s *Store) ListAwards(ctx context.Context, slug string) ([]badge.Award, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.user_id, a.awarded_at
		FROM awards a
		JOIN badges b ON b.id = a.badge_id
		WHERE b.slug = ?
		ORDER BY a.user_id ASC
	`, slug)
	if err != nil {
		return nil, fmt.Errorf("query awards for %q: %w", slug, classify(err))
	}
	defer rows.Close()

	awards := []badge.Award{}
	for rows.Next() {
		var userID int64
		var awardedAt string
		if err := rows.Scan(&userID, &awardedAt); err != nil {
			return nil, fmt.Errorf("scan award: %w", err)
		}
		at, err := unmarshalTime(awardedAt)
		if err != nil {
			return nil, err
		}
		awards = append(awards, badge.Award{BadgeSlug: slug, UserID: badge.UserID(userID), AwardedAt: at})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate awards: %w", err)
	}
	return awards, nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
