package harness

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/roach88/badgify/internal/badge"
	"github.com/roach88/badgify/internal/engine"
	"github.com/roach88/badgify/internal/recipe"
	"github.com/roach88/badgify/internal/store"
	"github.com/roach88/badgify/internal/testutil"
)

// DefaultRunID is the run id of every engine pass unless the scenario sets one.
const DefaultRunID = "scenario-run"

// StepInterval is how far the clock moves before each step.
const StepInterval = time.Minute

// Harness executes one scenario against a fresh store.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	clock    *testutil.FakeClock
	recorder *testutil.Recorder
	recipes  map[string]*recipe.Static
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh SQLite database in a temporary directory.
// The store and engine share a fake clock that advances StepInterval
// before every step.
//
// Execution flow:
// 1. Register recipes and open the store
// 2. Execute setup steps (any error aborts the run)
// 3. Execute flow steps, checking expect clauses
// 4. Capture the final badge state
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "badgify-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	h, err := newHarness(scenario, filepath.Join(dir, "badgify.db"))
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	result := NewResult()
	seq := 0
	for i, step := range scenario.Setup {
		seq++
		ev, err := h.execute(ctx, seq, step)
		result.Trace = append(result.Trace, ev)
		if err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step.Op, err)
		}
	}

	for i, step := range scenario.Flow {
		seq++
		ev, err := h.execute(ctx, seq, step)
		result.Trace = append(result.Trace, ev)
		for _, msg := range checkStep(step, ev, err) {
			result.AddError(fmt.Sprintf("flow step %d (%s): %s", i, step.Op, msg))
		}
	}

	badges, err := h.finalState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.Badges = badges

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario, dbPath string) (*Harness, error) {
	clock := testutil.NewFakeClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(dbPath, store.WithNow(clock.Now), store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	h := &Harness{
		store:    st,
		clock:    clock,
		recorder: &testutil.Recorder{},
		recipes:  make(map[string]*recipe.Static, len(scenario.Recipes)),
		logger:   logger,
	}

	registry := recipe.NewRegistry().WithLogger(logger)
	for _, def := range scenario.Recipes {
		rec := recipe.NewStatic(recipe.Spec{
			Name:        def.Name,
			Slug:        def.Slug,
			Description: def.Description,
			Image:       def.Image,
			Manual:      def.Manual,
		}, userIDs(def.Members)...)
		if err := registry.Register(rec); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to register recipe %q: %w", def.Slug, err)
		}
		h.recipes[def.Slug] = rec
	}

	runID := cmp.Or(scenario.RunID, DefaultRunID)
	salvage := scenario.SalvageDuplicates == nil || *scenario.SalvageDuplicates
	h.engine = engine.New(st, registry,
		engine.WithClock(clock),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(runID)),
		engine.WithListener(engine.NewCounter(st)),
		engine.WithListener(h.recorder),
		engine.WithSalvageDuplicates(salvage),
		engine.WithLogger(logger),
	)
	return h, nil
}

// execute runs one step and records it as a trace event.
func (h *Harness) execute(ctx context.Context, seq int, step Step) (TraceEvent, error) {
	h.clock.Advance(StepInterval)
	seen := len(h.recorder.Events())

	ev := TraceEvent{Seq: seq, Op: step.Op}
	runID, outcome, err := h.dispatch(ctx, step)
	ev.RunID = runID
	ev.Outcome = outcome
	if err != nil {
		ev.Error = err.Error()
	}

	for _, e := range h.recorder.Events()[seen:] {
		ev.Events = append(ev.Events, AwardEvent{
			Kind:   e.Kind,
			Badge:  e.Award.BadgeSlug,
			UserID: int64(e.Award.UserID),
		})
	}
	slices.SortFunc(ev.Events, func(a, b AwardEvent) int {
		return cmp.Or(
			strings.Compare(a.Badge, b.Badge),
			cmp.Compare(a.UserID, b.UserID),
			strings.Compare(a.Kind, b.Kind),
		)
	})

	h.logger.Info("scenario step completed", "seq", seq, "op", step.Op, "error", ev.Error)
	return ev, err
}

func (h *Harness) dispatch(ctx context.Context, step Step) (string, map[string]any, error) {
	switch step.Op {
	case OpSyncBadges:
		report, err := h.engine.SyncBadges(ctx, engine.BadgeOptions{
			Include: step.Badges,
			Exclude: step.Exclude,
			Update:  step.Update,
		})
		if err != nil {
			return "", nil, err
		}
		return report.RunID, badgeOutcome(report), nil

	case OpSyncAwards:
		report, err := h.engine.SyncAwards(ctx, awardOptions(step))
		if err != nil {
			return "", nil, err
		}
		return report.RunID, awardOutcome(report), nil

	case OpSyncCounts:
		report, err := h.engine.SyncCounts(ctx, engine.CountOptions{Include: step.Badges, Exclude: step.Exclude})
		if err != nil {
			return "", nil, err
		}
		return report.RunID, countOutcome(report), nil

	case OpSyncAll:
		report, err := h.engine.SyncAll(ctx, engine.AllOptions{Awards: awardOptions(step), UpdateBadges: step.Update})
		if err != nil {
			return "", nil, err
		}
		awards := awardOutcome(report.Awards)
		outcome := map[string]any{
			"badges_created": len(report.Badges.Created),
			"created":        awards["created"],
			"revoked":        awards["revoked"],
			"counts_updated": len(report.Counts.Updated),
		}
		return report.Awards.RunID, outcome, nil

	case OpReset:
		report, err := h.engine.ResetAwards(ctx, engine.ResetOptions{Include: step.Badges, Exclude: step.Exclude})
		if err != nil {
			return "", nil, err
		}
		deleted := 0
		for _, r := range report.Reset {
			deleted += int(r.Deleted)
		}
		outcome := map[string]any{"deleted": deleted}
		addTail(outcome, report.Skipped, report.Invalid, report.Failed)
		return report.RunID, outcome, nil

	case OpGrant:
		changed, err := h.engine.Grant(ctx, step.Badge, userIDs(step.Users))
		if err != nil {
			return "", nil, err
		}
		return "", map[string]any{"changed": len(changed)}, nil

	case OpRevoke:
		changed, err := h.engine.Revoke(ctx, step.Badge, userIDs(step.Users))
		if err != nil {
			return "", nil, err
		}
		return "", map[string]any{"changed": len(changed)}, nil

	case OpSetMembers:
		rec, ok := h.recipes[step.Badge]
		if !ok {
			return "", nil, fmt.Errorf("set_members: no recipe %q", step.Badge)
		}
		rec.SetUserIDs(userIDs(step.Users))
		return "", nil, nil
	}
	return "", nil, fmt.Errorf("unknown op %q", step.Op)
}

// finalState reads every badge with its holders, ordered by slug.
func (h *Harness) finalState(ctx context.Context) ([]BadgeState, error) {
	badges, err := h.store.ListBadges(ctx)
	if err != nil {
		return nil, err
	}

	states := make([]BadgeState, 0, len(badges))
	for _, b := range badges {
		awards, err := h.store.ListAwards(ctx, b.Slug)
		if err != nil {
			return nil, err
		}
		holders := make([]int64, len(awards))
		for i, a := range awards {
			holders[i] = int64(a.UserID)
		}
		states = append(states, BadgeState{Slug: b.Slug, HolderCount: b.HolderCount, Holders: holders})
	}
	slices.SortFunc(states, func(a, b BadgeState) int { return strings.Compare(a.Slug, b.Slug) })
	return states, nil
}

// checkStep compares a flow step's error and outcome with its expectations.
func checkStep(step Step, ev TraceEvent, err error) []string {
	if step.ExpectError != "" {
		if err == nil {
			return []string{fmt.Sprintf("expected error containing %q, got success", step.ExpectError)}
		}
		if !strings.Contains(err.Error(), step.ExpectError) {
			return []string{fmt.Sprintf("expected error containing %q, got %q", step.ExpectError, err.Error())}
		}
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}

	var msgs []string
	for _, key := range sortedKeys(step.Expect) {
		got, ok := ev.Outcome[key]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("outcome has no field %q", key))
			continue
		}
		if !sameJSON(step.Expect[key], got) {
			msgs = append(msgs, fmt.Sprintf("%s: expected %v, got %v", key, step.Expect[key], got))
		}
	}
	return msgs
}

func awardOptions(step Step) engine.AwardOptions {
	return engine.AwardOptions{
		Include:              step.Badges,
		Exclude:              step.Exclude,
		BatchSize:            step.BatchSize,
		IDsLimit:             step.IDsLimit,
		Workers:              step.Workers,
		DisableNotifications: step.DisableNotifications,
		Revoke:               step.Revoke,
	}
}

func badgeOutcome(r *engine.BadgeReport) map[string]any {
	outcome := map[string]any{
		"created":   nonNil(r.Created),
		"updated":   nonNil(r.Updated),
		"unchanged": nonNil(r.Unchanged),
	}
	addTail(outcome, nil, r.Invalid, r.Failed)
	return outcome
}

func awardOutcome(r *engine.AwardReport) map[string]any {
	var already, duplicates int
	for _, ra := range r.Recipes {
		already += ra.Already
		duplicates += ra.Duplicates
	}
	outcome := map[string]any{
		"created":    r.Created(),
		"revoked":    r.Revoked(),
		"already":    already,
		"duplicates": duplicates,
	}
	addTail(outcome, r.Skipped, r.Invalid, r.Failed)
	return outcome
}

func countOutcome(r *engine.CountReport) map[string]any {
	outcome := map[string]any{
		"updated":   nonNil(r.Updated),
		"unchanged": nonNil(r.Unchanged),
	}
	addTail(outcome, r.Skipped, r.Invalid, r.Failed)
	return outcome
}

// addTail records skipped, invalid and failed slugs when there are any.
func addTail(outcome map[string]any, skipped []engine.Skip, invalid []string, failed []engine.Failure) {
	if len(skipped) > 0 {
		slugs := make([]string, len(skipped))
		for i, s := range skipped {
			slugs[i] = s.Slug
		}
		outcome["skipped"] = slugs
	}
	if len(invalid) > 0 {
		outcome["invalid"] = invalid
	}
	if len(failed) > 0 {
		slugs := make([]string, len(failed))
		for i, f := range failed {
			slugs[i] = f.Slug
		}
		outcome["failed"] = slugs
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func userIDs(ids []int64) []badge.UserID {
	out := make([]badge.UserID, len(ids))
	for i, id := range ids {
		out[i] = badge.UserID(id)
	}
	return out
}

// sameJSON compares values by their JSON encoding, so YAML-decoded
// expectations match typed outcomes.
func sameJSON(want, got any) bool {
	a, errA := json.Marshal(want)
	b, errB := json.Marshal(got)
	return errA == nil && errB == nil && string(a) == string(b)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
