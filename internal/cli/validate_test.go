package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/badgify/internal/compiler"
)

func TestValidate_ValidRecipes(t *testing.T) {
	ws := newWorkspace(t, map[string]string{"python.cue": pythonRecipes})

	out, _, err := runCLI(t, "validate", ws.recipes)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 2 recipe(s) valid")
}

func TestValidate_ValidRecipesJSON(t *testing.T) {
	ws := newWorkspace(t, map[string]string{"python.cue": pythonRecipes})

	out, _, err := runCLI(t, "--format", "json", "validate", ws.recipes)
	require.NoError(t, err)

	resp := decode[ValidationResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.ElementsMatch(t, []string{"python-lover", "staff"}, resp.Data.Recipes)
}

func TestValidate_NonExistentDirectory(t *testing.T) {
	out, _, err := runCLI(t, "validate", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_EmptyDirectory(t *testing.T) {
	_, _, err := runCLI(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	ws := newWorkspace(t, map[string]string{
		"bad.cue": `
recipe: "Python_Lover": {
	name: "Python Lover"
}
recipe: "manual-query": {
	name:   "Manual"
	image:  "m.png"
	manual: true
	membership: from: "users"
}
`,
		"dup.cue": `
recipe: "manual-query": {
	name:  "Again"
	image: "a.png"
}
`,
	})

	out, _, err := runCLI(t, "--format", "json", "validate", ws.recipes)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode[ValidationResult](t, out)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)

	codes := map[string]bool{}
	for _, e := range resp.Data.Errors {
		codes[e.Code] = true
	}
	assert.True(t, codes[compiler.ErrRecipeImageEmpty], "missing image")
	assert.True(t, codes[compiler.ErrRecipeInvalidSlug], "non-canonical slug")
	assert.True(t, codes[compiler.ErrRecipeManualQuery], "manual with membership")
	assert.True(t, codes[compiler.ErrRecipeDuplicateSlug], "slug in two files")
}

func TestValidate_SyntaxError(t *testing.T) {
	ws := newWorkspace(t, map[string]string{"broken.cue": "recipe: {\n"})

	out, _, err := runCLI(t, "validate", ws.recipes)
	require.Error(t, err)
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, ErrCodeBuildFailed)
}
