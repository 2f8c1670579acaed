package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/badgify/internal/badge"
)

// fixedNow is the clock every test store uses.
var fixedNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithNow(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBadge inserts a badge with the given slug.
func createTestBadge(t *testing.T, s *Store, slug string) badge.Badge {
	t.Helper()
	b, err := s.CreateBadge(context.Background(), badge.Fields{
		Name:        "Badge " + slug,
		Slug:        slug,
		Description: "test badge",
	})
	if err != nil {
		t.Fatalf("CreateBadge(%q) failed: %v", slug, err)
	}
	return b
}

// awardsFor builds awards of slug for the given users.
func awardsFor(slug string, ids ...badge.UserID) []badge.Award {
	awards := make([]badge.Award, 0, len(ids))
	for _, id := range ids {
		awards = append(awards, badge.Award{BadgeSlug: slug, UserID: id})
	}
	return awards
}
