package engine

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/badgify/internal/recipe"
)

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}

	id := g.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, g.Generate())
}

func TestFixedGenerator_RepeatsLast(t *testing.T) {
	gen := NewFixedGenerator("run-1", "run-2")

	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
}

func TestFixedGenerator_Default(t *testing.T) {
	assert.Equal(t, "run", NewFixedGenerator().Generate())
}

func TestFixedGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedGenerator("a", "b", "c")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gen.Generate()
		}()
	}
	wg.Wait()

	assert.Equal(t, "c", gen.Generate())
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		in   []int
		size int
		want [][]int
	}{
		{"empty", nil, 3, nil},
		{"exact", []int{1, 2, 3, 4}, 2, [][]int{{1, 2}, {3, 4}}},
		{"remainder", []int{1, 2, 3, 4, 5}, 2, [][]int{{1, 2}, {3, 4}, {5}}},
		{"larger than input", []int{1, 2}, 10, [][]int{{1, 2}}},
		{"non-positive size", []int{1, 2, 3}, 0, [][]int{{1, 2, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunk(tt.in, tt.size))
		})
	}
}

func TestRecipeError(t *testing.T) {
	cause := errors.New("disk full")
	err := storageError("python-lover", "insert awards", cause)

	assert.Equal(t, "STORAGE_FAILED: insert awards (badge=python-lover): disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsStorageError(err))
	assert.False(t, IsMembershipError(err))

	membership := &RecipeError{Code: ErrCodeMembership, Slug: "x", Message: "compute membership"}
	assert.Equal(t, "MEMBERSHIP_FAILED: compute membership (badge=x)", membership.Error())
	assert.True(t, IsMembershipError(membership))
	assert.False(t, IsStorageError(cause))
}

func TestNew_Defaults(t *testing.T) {
	reg := recipe.NewRegistry()
	e := New(nil, reg)

	assert.Same(t, reg, e.Registry())
	assert.IsType(t, SystemClock{}, e.clock)
	assert.IsType(t, UUIDv7Generator{}, e.runIDs)
	assert.True(t, e.salvage)
	assert.NotNil(t, e.locker)
}

func TestSystemClock_UTC(t *testing.T) {
	assert.Equal(t, "UTC", SystemClock{}.Now().Location().String())
}
