package engine

import (
	"slices"
	"strings"
)

// Skip records a recipe that was deliberately not reconciled.
type Skip struct {
	Slug   string `json:"slug"`
	Reason string `json:"reason"`
}

// Skip reasons.
const (
	SkipBadgeMissing        = "badge does not exist"
	SkipManualAssignment    = "manual assignment"
	SkipMembershipUndefined = "membership undefined"
)

// Failure records a recipe whose reconciliation stopped on an error.
type Failure struct {
	Slug  string `json:"slug"`
	Error string `json:"error"`
}

// BadgeReport summarizes a SyncBadges run.
type BadgeReport struct {
	RunID     string    `json:"run_id"`
	Created   []string  `json:"created"`
	Updated   []string  `json:"updated"`
	Unchanged []string  `json:"unchanged"`
	Invalid   []string  `json:"invalid,omitempty"`
	Failed    []Failure `json:"failed,omitempty"`
}

// RecipeAwards summarizes award reconciliation of one recipe.
type RecipeAwards struct {
	Slug       string `json:"slug"`
	Qualifying int    `json:"qualifying"`
	Already    int    `json:"already"`
	Created    int    `json:"created"`
	Revoked    int    `json:"revoked"`
	Duplicates int    `json:"duplicates"`
	Batches    int    `json:"batches"`
}

// AwardReport summarizes a SyncAwards run.
type AwardReport struct {
	RunID   string         `json:"run_id"`
	Recipes []RecipeAwards `json:"recipes"`
	Skipped []Skip         `json:"skipped,omitempty"`
	Invalid []string       `json:"invalid,omitempty"`
	Failed  []Failure      `json:"failed,omitempty"`
}

// Created returns the total number of awards inserted.
func (r *AwardReport) Created() int {
	n := 0
	for _, ra := range r.Recipes {
		n += ra.Created
	}
	return n
}

// Revoked returns the total number of awards deleted.
func (r *AwardReport) Revoked() int {
	n := 0
	for _, ra := range r.Recipes {
		n += ra.Revoked
	}
	return n
}

// Recipe returns the entry for slug, if any.
func (r *AwardReport) Recipe(slug string) (RecipeAwards, bool) {
	for _, ra := range r.Recipes {
		if ra.Slug == slug {
			return ra, true
		}
	}
	return RecipeAwards{}, false
}

// sort orders every list by slug so parallel runs report deterministically.
func (r *AwardReport) sort() {
	slices.SortFunc(r.Recipes, func(a, b RecipeAwards) int { return strings.Compare(a.Slug, b.Slug) })
	slices.SortFunc(r.Skipped, func(a, b Skip) int { return strings.Compare(a.Slug, b.Slug) })
	sortFailures(r.Failed)
}

// CountReport summarizes a SyncCounts run.
type CountReport struct {
	RunID     string    `json:"run_id"`
	Updated   []string  `json:"updated"`
	Unchanged []string  `json:"unchanged"`
	Skipped   []Skip    `json:"skipped,omitempty"`
	Invalid   []string  `json:"invalid,omitempty"`
	Failed    []Failure `json:"failed,omitempty"`
}

// ResetEntry records the awards removed from one badge.
type ResetEntry struct {
	Slug    string `json:"slug"`
	Deleted int64  `json:"deleted"`
}

// ResetReport summarizes a ResetAwards run.
type ResetReport struct {
	RunID   string       `json:"run_id"`
	Reset   []ResetEntry `json:"reset"`
	Skipped []Skip       `json:"skipped,omitempty"`
	Invalid []string     `json:"invalid,omitempty"`
	Failed  []Failure    `json:"failed,omitempty"`
}

func sortFailures(f []Failure) {
	slices.SortFunc(f, func(a, b Failure) int { return strings.Compare(a.Slug, b.Slug) })
}
