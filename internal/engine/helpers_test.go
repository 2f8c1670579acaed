package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/badgify/internal/badge"
	"github.com/roach88/badgify/internal/recipe"
	"github.com/roach88/badgify/internal/store"
	"github.com/roach88/badgify/internal/testutil"
)

// testEnv bundles an engine with the collaborators tests inspect.
type testEnv struct {
	engine   *Engine
	store    *store.Store
	registry *recipe.Registry
	clock    *testutil.FakeClock
	recorder *testutil.Recorder
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv opens a temp-dir store and builds an engine with a fake clock,
// a fixed run id, the holder counter and a recording listener.
func newTestEnv(t *testing.T, opts ...EngineOption) *testEnv {
	t.Helper()

	clock := testutil.NewFakeClock()
	s, err := store.Open(filepath.Join(t.TempDir(), "badgify.db"), store.WithNow(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	env := &testEnv{
		store:    s,
		registry: recipe.NewRegistry().WithLogger(discardLogger()),
		clock:    clock,
		recorder: &testutil.Recorder{},
	}

	base := []EngineOption{
		WithClock(clock),
		WithRunIDGenerator(NewFixedGenerator("run-1")),
		WithListener(NewCounter(s)),
		WithListener(env.recorder),
		WithLogger(discardLogger()),
	}
	env.engine = New(s, env.registry, append(base, opts...)...)
	return env
}

// register adds static recipes to the env's registry.
func (env *testEnv) register(t *testing.T, recipes ...recipe.Recipe) {
	t.Helper()
	require.NoError(t, env.registry.Register(recipes...))
}

// heldBy lists the users holding slug, ascending.
func (env *testEnv) heldBy(t *testing.T, slug string) []badge.UserID {
	t.Helper()
	awards, err := env.store.ListAwards(context.Background(), slug)
	require.NoError(t, err)
	ids := make([]badge.UserID, len(awards))
	for i, a := range awards {
		ids[i] = a.UserID
	}
	return ids
}

// holderCount reads the stored holder count of slug.
func (env *testEnv) holderCount(t *testing.T, slug string) int64 {
	t.Helper()
	b, err := env.store.GetBadge(context.Background(), slug)
	require.NoError(t, err)
	return b.HolderCount
}

// staticRecipe builds a recipe with an image and the given members.
func staticRecipe(slug string, ids ...badge.UserID) *recipe.Static {
	return recipe.NewStatic(recipe.Spec{
		Name:        "Badge " + slug,
		Slug:        slug,
		Description: "awarded to " + slug + " members",
		Image:       "badges/" + slug + ".png",
	}, ids...)
}

// userRange returns the ids from..to inclusive.
func userRange(from, to int) []badge.UserID {
	ids := make([]badge.UserID, 0, to-from+1)
	for i := from; i <= to; i++ {
		ids = append(ids, badge.UserID(i))
	}
	return ids
}

// staleStore reports that nobody holds any badge, simulating a writer that
// awarded between the read and the insert.
type staleStore struct {
	badge.Store
}

func (staleStore) ExistingUserIDs(context.Context, string, []badge.UserID) (map[badge.UserID]struct{}, error) {
	return map[badge.UserID]struct{}{}, nil
}

// failingRecipe has metadata but its membership source always errors.
type failingRecipe struct {
	recipe.Base
	slug string
	err  error
}

func (r failingRecipe) Name() string           { return "Failing " + r.slug }
func (r failingRecipe) Slug() string           { return r.slug }
func (r failingRecipe) Image() (string, error) { return "failing.png", nil }
func (r failingRecipe) UserIDs(context.Context, recipe.Querier) ([]badge.UserID, error) {
	return nil, r.err
}

// undefinedRecipe relies on Base for image and membership.
type undefinedRecipe struct {
	recipe.Base
	slug string
}

func (r undefinedRecipe) Name() string { return "Undefined " + r.slug }
func (r undefinedRecipe) Slug() string { return r.slug }
