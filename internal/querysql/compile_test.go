package querysql

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/badgify/internal/queryir"
)

func TestCompile_SimpleSelect(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	query := queryir.Select{
		From:     "users",
		IDColumn: "id",
		Filter:   queryir.Equals("love_python", queryir.Bool(true)),
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)

	assert.Equal(t, `SELECT DISTINCT "id" FROM "users" WHERE "love_python" = ? ORDER BY "id" ASC`, sql)
	assert.Equal(t, []any{true}, params)
}

func TestCompile_NoFilter(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, params, err := compiler.Compile(&queryir.Select{From: "public.users", IDColumn: "user_id"})
	require.NoError(t, err)

	assert.Equal(t, `SELECT DISTINCT "user_id" FROM "public"."users" ORDER BY "user_id" ASC`, sql)
	assert.Empty(t, params)
}

func TestCompile_ValuesNeverInterpolated(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, params, err := compiler.Compile(queryir.Select{
		From:     "users",
		IDColumn: "id",
		Filter:   queryir.Equals("name", queryir.String("'; DROP TABLE users; --")),
	})
	require.NoError(t, err)

	assert.NotContains(t, sql, "DROP")
	assert.Equal(t, []any{"'; DROP TABLE users; --"}, params)
}

func TestCompile_AndInCompare(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, params, err := compiler.Compile(queryir.Select{
		From:     "users",
		IDColumn: "id",
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Compare{Field: "karma", Op: queryir.OpGte, Value: queryir.Int(10)},
			queryir.Compare{Field: "status", Op: queryir.OpNe, Value: queryir.String("banned")},
			queryir.In{Field: "country", Values: []queryir.Value{queryir.String("FR"), queryir.String("BE")}},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT DISTINCT "id" FROM "users" WHERE ("karma" >= ? AND "status" <> ? AND "country" IN (?, ?)) ORDER BY "id" ASC`,
		sql)
	assert.Equal(t, []any{int64(10), "banned", "FR", "BE"}, params)
}

func TestCompile_PostgresPlaceholders(t *testing.T) {
	compiler := NewSQLCompiler(Postgres)

	sql, params, err := compiler.Compile(queryir.Select{
		From:     "users",
		IDColumn: "id",
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals("love_python", queryir.Bool(true)),
			queryir.In{Field: "tier", Values: []queryir.Value{queryir.Int(1), queryir.Int(2)}},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT DISTINCT "id" FROM "users" WHERE ("love_python" = $1 AND "tier" IN ($2, $3)) ORDER BY "id" ASC`,
		sql)
	assert.Equal(t, []any{true, int64(1), int64(2)}, params)
}

func TestCompile_EmptyAndIsTrue(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, _, err := compiler.Compile(queryir.Select{From: "users", IDColumn: "id", Filter: queryir.And{}})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 1")
}

func TestCompile_RejectsInvalidQuery(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	_, _, err := compiler.Compile(queryir.Select{From: "users; --", IDColumn: "id"})
	require.Error(t, err)

	var verr *queryir.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	d, err = DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	_, err = DialectFor("mysql")
	assert.Error(t, err)
}

// TestCompile_ExecutesAgainstSQLite runs compiled SQL on a real database.
func TestCompile_ExecutesAgainstSQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (id INTEGER PRIMARY KEY, love_python INTEGER NOT NULL, karma INTEGER NOT NULL);
		INSERT INTO users (id, love_python, karma) VALUES (3, 1, 50), (1, 1, 5), (2, 0, 99), (4, 1, 70);
	`)
	require.NoError(t, err)

	query, params, err := NewSQLCompiler(SQLite).Compile(queryir.Select{
		From:     "users",
		IDColumn: "id",
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals("love_python", queryir.Bool(true)),
			queryir.Compare{Field: "karma", Op: queryir.OpGt, Value: queryir.Int(10)},
		}},
	})
	require.NoError(t, err)

	rows, err := db.QueryContext(context.Background(), query, params...)
	require.NoError(t, err)
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []int64{3, 4}, ids)
}
