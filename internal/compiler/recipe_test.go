package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/badgify/internal/queryir"
)

func compileFrom(t *testing.T, src, slug string) (cue.Value, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("recipes.cue"))
	require.NoError(t, v.Err())
	rv := v.LookupPath(cue.MakePath(cue.Str("recipe"), cue.Str(slug)))
	require.True(t, rv.Exists(), "recipe %q not found", slug)
	_, err := CompileRecipe(rv)
	return rv, err
}

func TestCompileRecipeBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		recipe: "python-lover": {
			name:        "Python Lover"
			description: "People loving Python"
			image:       "python-lover.png"
			membership: {
				from: "users"
				id:   "user_id"
				where: [{field: "love_python", op: "=", value: true}]
			}
		}
	`)
	require.NoError(t, v.Err())

	spec, err := CompileRecipe(v.LookupPath(cue.MakePath(cue.Str("recipe"), cue.Str("python-lover"))))
	require.NoError(t, err)

	assert.Equal(t, "python-lover", spec.Slug)
	assert.Equal(t, "Python Lover", spec.Name)
	assert.Equal(t, "People loving Python", spec.Description)
	assert.Equal(t, "python-lover.png", spec.Image)
	assert.False(t, spec.Manual)

	require.NotNil(t, spec.Membership)
	assert.Equal(t, "users", spec.Membership.From)
	assert.Equal(t, "user_id", spec.Membership.IDColumn)
	assert.Equal(t, queryir.Equals("love_python", queryir.Bool(true)), spec.Membership.Filter)
}

func TestCompileRecipeDefaults(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		recipe: "loyal": {
			name:  "Loyal"
			image: "loyal.png"
			membership: {
				from: "users"
				where: [
					{field: "years", op: ">=", value: 5},
					{field: "country", in: ["FR", "BE"]},
					{field: "plan", value: "pro"},
				]
			}
		}
	`)
	require.NoError(t, v.Err())

	spec, err := CompileRecipe(v.LookupPath(cue.MakePath(cue.Str("recipe"), cue.Str("loyal"))))
	require.NoError(t, err)

	assert.Equal(t, "id", spec.Membership.IDColumn)
	assert.Equal(t, queryir.And{Predicates: []queryir.Predicate{
		queryir.Compare{Field: "years", Op: queryir.OpGte, Value: queryir.Int(5)},
		queryir.In{Field: "country", Values: []queryir.Value{queryir.String("FR"), queryir.String("BE")}},
		queryir.Compare{Field: "plan", Op: queryir.OpEq, Value: queryir.String("pro")},
	}}, spec.Membership.Filter)
}

func TestCompileRecipeManualWithoutMembership(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		recipe: "staff-pick": {
			name:   "Staff Pick"
			image:  "staff.png"
			manual: true
		}
	`)
	require.NoError(t, v.Err())

	spec, err := CompileRecipe(v.LookupPath(cue.MakePath(cue.Str("recipe"), cue.Str("staff-pick"))))
	require.NoError(t, err)

	assert.True(t, spec.Manual)
	assert.Nil(t, spec.Membership)
}

func TestCompileRecipeErrors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantField string
	}{
		{
			name:      "name not a string",
			src:       `recipe: "x": { name: 3 }`,
			wantField: "name",
		},
		{
			name:      "manual not a bool",
			src:       `recipe: "x": { name: "X", manual: "yes" }`,
			wantField: "manual",
		},
		{
			name:      "membership without from",
			src:       `recipe: "x": { name: "X", membership: { id: "id" } }`,
			wantField: "membership.from",
		},
		{
			name:      "where not a list",
			src:       `recipe: "x": { name: "X", membership: { from: "users", where: { field: "a" } } }`,
			wantField: "membership.where",
		},
		{
			name:      "unknown operator",
			src:       `recipe: "x": { name: "X", membership: { from: "users", where: [{field: "a", op: "LIKE", value: "b"}] } }`,
			wantField: "membership.where.op",
		},
		{
			name:      "missing value",
			src:       `recipe: "x": { name: "X", membership: { from: "users", where: [{field: "a"}] } }`,
			wantField: "membership.where.value",
		},
		{
			name:      "float value",
			src:       `recipe: "x": { name: "X", membership: { from: "users", where: [{field: "score", op: ">", value: 1.5}] } }`,
			wantField: "membership.where.value",
		},
		{
			name:      "missing field",
			src:       `recipe: "x": { name: "X", membership: { from: "users", where: [{value: 1}] } }`,
			wantField: "membership.where.field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileFrom(t, tt.src, "x")
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "want *CompileError, got %T: %v", err, err)
			assert.Equal(t, tt.wantField, ce.Field)
		})
	}
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "name", Message: "must be a string"}
	assert.Equal(t, "name: must be a string", err.Error())
}

func TestCompileErrorHasPosition(t *testing.T) {
	_, err := compileFrom(t, "recipe: \"x\": {\n\tname: 3\n}\n", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipes.cue:2:")
}
