package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const pythonRecipes = `
recipe: "python-lover": {
	name:        "Python Lover"
	description: "People loving Python"
	image:       "python-lover.png"
	membership: {
		from: "users"
		where: [{field: "love_python", value: true}]
	}
}

recipe: "staff": {
	name:   "Staff"
	image:  "staff.png"
	manual: true
}
`

// workspace is a temp directory with recipes, a user database and a
// badge database path.
type workspace struct {
	dir     string
	recipes string
	userDB  string
	badgeDB string
}

func newWorkspace(t *testing.T, recipes map[string]string) *workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &workspace{
		dir:     dir,
		recipes: filepath.Join(dir, "recipes"),
		userDB:  filepath.Join(dir, "users.db"),
		badgeDB: filepath.Join(dir, "badgify.db"),
	}
	require.NoError(t, os.MkdirAll(ws.recipes, 0o755))
	for name, content := range recipes {
		writeRecipe(t, ws.recipes, name, content)
	}
	return ws
}

func writeRecipe(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// seedUsers creates the users table with ids 1..n; ids in pythonistas love Python.
func (ws *workspace) seedUsers(t *testing.T, n int, pythonistas func(id int) bool) {
	t.Helper()
	db, err := sql.Open("sqlite3", ws.userDB)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`DROP TABLE IF EXISTS users; CREATE TABLE users (id INTEGER PRIMARY KEY, love_python BOOLEAN NOT NULL)`)
	require.NoError(t, err)
	for id := 1; id <= n; id++ {
		_, err := db.Exec(`INSERT INTO users (id, love_python) VALUES (?, ?)`, id, pythonistas(id))
		require.NoError(t, err)
	}
}

// run executes the root command with the workspace's global flags.
func (ws *workspace) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	global := []string{
		"--db", ws.badgeDB,
		"--recipes", ws.recipes,
		"--user-db-driver", "sqlite3",
		"--user-db", ws.userDB,
	}
	return runCLI(t, append(global, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// envelope is CLIResponse with a typed payload.
type envelope[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
	RunID  string    `json:"run_id"`
}

func decode[T any](t *testing.T, out string) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal([]byte(out), &env), "output: %s", out)
	return env
}
