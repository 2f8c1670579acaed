package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/badgify/internal/badge"
	"github.com/roach88/badgify/internal/lock"
	"github.com/roach88/badgify/internal/recipe"
)

const (
	// DefaultBatchSize is the maximum number of awards written per transaction.
	DefaultBatchSize = 500

	// DefaultIDsLimit is the maximum number of user ids per existing-award lookup.
	DefaultIDsLimit = 1000
)

// Engine reconciles a recipe registry with a badge store.
//
// Thread-safety: all methods are safe for concurrent use. Work on one slug
// is serialized through the configured lock.Locker.
type Engine struct {
	store     badge.Store
	registry  *recipe.Registry
	userDB    recipe.Querier
	clock     Clock
	runIDs    RunIDGenerator
	locker    lock.Locker
	listeners []Listener
	salvage   bool
	logger    *slog.Logger
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithUserDB sets the default read connection passed to membership sources.
func WithUserDB(db recipe.Querier) EngineOption {
	return func(e *Engine) {
		e.userDB = db
	}
}

// WithClock sets the clock used to stamp awards.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRunIDGenerator sets the run id source.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithLocker sets the per-slug locker. Default: lock.NewLocal().
func WithLocker(l lock.Locker) EngineOption {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithListener registers an award listener. May be repeated.
func WithListener(l Listener) EngineOption {
	return func(e *Engine) {
		e.listeners = append(e.listeners, l)
	}
}

// WithSalvageDuplicates controls what happens to a batch rejected for a
// duplicate pair. When true (the default) the batch is replayed row by row,
// skipping existing pairs. When false the batch is dropped and logged; the
// next run picks the missing awards up.
func WithSalvageDuplicates(salvage bool) EngineOption {
	return func(e *Engine) {
		e.salvage = salvage
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine over store s and the recipes in reg.
func New(s badge.Store, reg *recipe.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    s,
		registry: reg,
		clock:    SystemClock{},
		runIDs:   UUIDv7Generator{},
		locker:   lock.NewLocal(),
		salvage:  true,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Registry returns the recipe registry.
func (e *Engine) Registry() *recipe.Registry {
	return e.registry
}

// Badge returns the persisted badge for slug. Each call reads the store;
// nothing is memoized on the recipe.
func (e *Engine) Badge(ctx context.Context, slug string) (badge.Badge, error) {
	return e.store.GetBadge(ctx, slug)
}

// startRun allocates a run id and a logger tagged with it.
func (e *Engine) startRun(op string) (string, *slog.Logger) {
	runID := e.runIDs.Generate()
	return runID, e.logger.With("run", runID, "op", op)
}

// selectRecipes resolves include/exclude lists against the registry.
func (e *Engine) selectRecipes(include, exclude []string) ([]recipe.Recipe, []string) {
	return e.registry.Instances(include, exclude)
}

// withSlugLock runs fn while holding the lock for slug.
func (e *Engine) withSlugLock(ctx context.Context, slug string, fn func() error) error {
	release, err := e.locker.Acquire(ctx, "awards:"+slug)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RecipeError{Code: ErrCodeLock, Slug: slug, Message: "cannot acquire lock", Err: err}
	}
	defer release()
	return fn()
}
