package recipe

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/badgify/internal/badge"
)

// Registry maps badge slugs to recipes.
//
// Registry is safe for concurrent use. Registration normally happens once
// at startup; reads happen throughout a run.
type Registry struct {
	mu      sync.RWMutex
	recipes map[string]Recipe
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		recipes: make(map[string]Recipe),
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger used to report unknown slugs.
func (r *Registry) WithLogger(l *slog.Logger) *Registry {
	r.logger = l
	return r
}

// Register adds recipes, keyed by slug. Re-registering a slug replaces the
// previous recipe. If any recipe violates the contract, nothing from this
// call is registered and a *ContractError is returned.
func (r *Registry) Register(recipes ...Recipe) error {
	for _, rec := range recipes {
		if err := checkContract(rec); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recipes {
		r.recipes[rec.Slug()] = rec
	}
	return nil
}

// checkContract verifies the capabilities every recipe must expose.
func checkContract(rec Recipe) error {
	if rec == nil {
		return &ContractError{Reason: "nil recipe"}
	}
	slug := rec.Slug()
	if rec.Name() == "" {
		return &ContractError{Slug: slug, Reason: "name is required"}
	}
	if slug == "" {
		return &ContractError{Reason: "slug is required"}
	}
	if !badge.ValidSlug(slug) {
		return &ContractError{Slug: slug, Reason: "slug must be lowercase letters, digits and single hyphens"}
	}
	return nil
}

// Unregister removes the recipe with r's slug. No-op if absent.
func (r *Registry) Unregister(rec Recipe) {
	if rec == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.recipes, rec.Slug())
}

// Clear removes every recipe.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipes = make(map[string]Recipe)
}

// Get returns the recipe registered under slug, or a *NotFoundError.
func (r *Registry) Get(slug string) (Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recipes[slug]
	if !ok {
		return nil, &NotFoundError{Slug: slug}
	}
	return rec, nil
}

// Len returns the number of registered recipes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.recipes)
}

// Slugs returns every registered slug, sorted.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slugs := make([]string, 0, len(r.recipes))
	for slug := range r.recipes {
		slugs = append(slugs, slug)
	}
	slices.Sort(slugs)
	return slugs
}

// Instances selects recipes for a run.
//
// With a non-empty include list, each slug is resolved; unknown slugs are
// logged and returned in invalid. With an empty include list every recipe is
// selected. Slugs in exclude are then removed. valid is sorted by slug and
// contains each recipe once.
func (r *Registry) Instances(include, exclude []string) (valid []Recipe, invalid []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	excluded := make(map[string]bool, len(exclude))
	for _, slug := range exclude {
		excluded[slug] = true
	}

	seen := make(map[string]bool)
	add := func(rec Recipe) {
		slug := rec.Slug()
		if excluded[slug] || seen[slug] {
			return
		}
		seen[slug] = true
		valid = append(valid, rec)
	}

	if len(include) > 0 {
		for _, slug := range include {
			rec, ok := r.recipes[slug]
			if !ok {
				r.logger.Error("badge has not been registered", "badge", slug)
				invalid = append(invalid, slug)
				continue
			}
			add(rec)
		}
	} else {
		for _, rec := range r.recipes {
			add(rec)
		}
	}

	slices.SortFunc(valid, func(a, b Recipe) int {
		return strings.Compare(a.Slug(), b.Slug())
	})
	return valid, invalid
}
