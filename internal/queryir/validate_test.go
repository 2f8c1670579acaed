package queryir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidIdent(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"users", true},
		{"love_python", true},
		{"public.users", true},
		{"_private", true},
		{"", false},
		{"1users", false},
		{"users; DROP TABLE awards", false},
		{"a.b.c", false},
		{"name-with-dash", false},
		{`"quoted"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidIdent(tt.in))
		})
	}
}

func TestValidate_ValidSelect(t *testing.T) {
	q := Select{
		From:     "users",
		IDColumn: "id",
		Filter: And{Predicates: []Predicate{
			Equals("love_python", Bool(true)),
			Compare{Field: "karma", Op: OpGte, Value: Int(100)},
			In{Field: "country", Values: []Value{String("FR"), String("BE")}},
		}},
	}

	assert.NoError(t, Validate(q))
	assert.NoError(t, Validate(&q))
}

func TestValidate_NilFilterIsValid(t *testing.T) {
	assert.NoError(t, Validate(Select{From: "users", IDColumn: "id"}))
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	q := Select{
		From:     "users;",
		IDColumn: "",
		Filter: And{Predicates: []Predicate{
			Compare{Field: "ok", Op: "LIKE", Value: String("x")},
			In{Field: "country"},
			Compare{Field: "flag", Op: OpGt, Value: Bool(true)},
		}},
	}

	err := Validate(q)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 5)
	assert.Contains(t, err.Error(), `invalid table name "users;"`)
	assert.Contains(t, err.Error(), `unknown operator "LIKE"`)
	assert.Contains(t, err.Error(), "empty IN list")
	assert.Contains(t, err.Error(), "not defined for booleans")
}

func TestValidate_NilQuery(t *testing.T) {
	assert.Error(t, Validate(nil))

	var sel *Select
	assert.Error(t, Validate(sel))
}

func TestValidate_MissingCompareValue(t *testing.T) {
	err := Validate(Select{
		From:     "users",
		IDColumn: "id",
		Filter:   Compare{Field: "name", Op: OpEq},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing value")
}

func TestOpValid(t *testing.T) {
	for _, op := range []Op{OpEq, OpNe, OpLt, OpLte, OpGt, OpGte} {
		assert.True(t, op.Valid(), "op %q", op)
	}
	assert.False(t, Op("<>").Valid())
	assert.False(t, Op("").Valid())
}
