package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/badgify/internal/badge"
)

// timeLayout is the TEXT encoding of every timestamp column.
// Always UTC so lexical order equals chronological order.
const timeLayout = time.RFC3339Nano

func marshalTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const badgeColumns = `id, slug, name, description, image, holder_count, manual_assignment, created_at, updated_at`

// scanBadge scans a row selected with badgeColumns.
func scanBadge(row rowScanner) (badge.Badge, error) {
	var b badge.Badge
	var manual int
	var createdAt, updatedAt string

	if err := row.Scan(
		&b.ID, &b.Slug, &b.Name, &b.Description, &b.Image,
		&b.HolderCount, &manual, &createdAt, &updatedAt,
	); err != nil {
		return badge.Badge{}, err
	}
	b.ManualAssignment = manual != 0

	var err error
	if b.CreatedAt, err = unmarshalTime(createdAt); err != nil {
		return badge.Badge{}, err
	}
	if b.UpdatedAt, err = unmarshalTime(updatedAt); err != nil {
		return badge.Badge{}, err
	}
	return b, nil
}

// scanUserIDs drains rows of a single user_id column into a set.
func scanUserIDs(rows *sql.Rows, into map[badge.UserID]struct{}) error {
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan user id: %w", err)
		}
		into[badge.UserID(id)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate user ids: %w", err)
	}
	return nil
}
