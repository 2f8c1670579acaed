package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	createTestBadge(t, s1, "keeper")
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.db.QueryRow("SELECT COUNT(*) FROM badges").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("badges = %d, want 1 after reopen", count)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"badges", "awards"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}

	// Second close must not panic
	_ = s.Close()
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

// Pragma tests

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

// Schema tests

func TestSchema_BadgesTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "badges")
	expected := []string{
		"id", "slug", "name", "description", "image",
		"holder_count", "manual_assignment", "created_at", "updated_at",
	}
	for _, col := range expected {
		if !contains(columns, col) {
			t.Errorf("badges table missing column %q", col)
		}
	}
}

func TestSchema_AwardsTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "awards")
	for _, col := range []string{"id", "user_id", "badge_id", "awarded_at"} {
		if !contains(columns, col) {
			t.Errorf("awards table missing column %q", col)
		}
	}

	indexes := getTableIndexes(t, s.db, "awards")
	if !contains(indexes, "idx_awards_badge") {
		t.Error("awards table missing index idx_awards_badge")
	}
}

// Constraint tests

func TestConstraint_AwardPairUnique(t *testing.T) {
	s := createTestStore(t)
	b := createTestBadge(t, s, "unique-pair")

	insert := `INSERT INTO awards (user_id, badge_id, awarded_at) VALUES (?, ?, '2024-01-01T00:00:00Z')`
	if _, err := s.db.Exec(insert, 7, b.ID); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := s.db.Exec(insert, 7, b.ID); err == nil {
		t.Error("expected UNIQUE constraint violation for repeated (user, badge) pair")
	}
}

func TestConstraint_SlugUnique(t *testing.T) {
	s := createTestStore(t)
	createTestBadge(t, s, "dup")

	_, err := s.db.Exec(`
		INSERT INTO badges (slug, name, created_at, updated_at)
		VALUES ('dup', 'Again', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')
	`)
	if err == nil {
		t.Error("expected UNIQUE constraint violation for repeated slug")
	}
}

func TestConstraint_HolderCountNonNegative(t *testing.T) {
	s := createTestStore(t)
	createTestBadge(t, s, "counted")

	_, err := s.db.Exec(`UPDATE badges SET holder_count = -1 WHERE slug = 'counted'`)
	if err == nil {
		t.Error("expected CHECK constraint violation for negative holder_count")
	}
}

func TestConstraint_AwardsCascadeOnBadgeDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestBadge(t, s, "cascade")

	if err := s.InsertAwards(ctx, awardsFor("cascade", 1, 2)); err != nil {
		t.Fatalf("InsertAwards() failed: %v", err)
	}
	if _, err := s.db.Exec(`DELETE FROM badges WHERE slug = 'cascade'`); err != nil {
		t.Fatalf("delete badge failed: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM awards`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("awards = %d, want 0 after badge delete", count)
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	v, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion() failed: %v", err)
	}
	if v != 2 {
		t.Errorf("schema version = %d, want 2", v)
	}
}

func TestMigration_IdempotentUpgrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	var applied int
	err = s2.db.QueryRow(`SELECT COUNT(*) FROM goose_db_version WHERE version_id > 0`).Scan(&applied)
	if err != nil {
		t.Fatalf("query goose_db_version failed: %v", err)
	}
	if applied != 2 {
		t.Errorf("applied migrations = %d, want 2", applied)
	}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
