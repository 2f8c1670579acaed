package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	return &Result{
		Pass: true,
		Trace: []TraceEvent{
			{Seq: 1, Op: OpSyncBadges, Outcome: map[string]any{"created": []string{"a", "b"}}},
			{Seq: 2, Op: OpSyncAwards, Outcome: map[string]any{"created": 3, "revoked": 0}, Events: []AwardEvent{
				{Kind: "created", Badge: "a", UserID: 1},
				{Kind: "created", Badge: "a", UserID: 2},
				{Kind: "created", Badge: "b", UserID: 1},
			}},
			{Seq: 3, Op: OpRevoke, Outcome: map[string]any{"changed": 1}, Events: []AwardEvent{
				{Kind: "revoked", Badge: "a", UserID: 2},
			}},
		},
		Badges: []BadgeState{
			{Slug: "a", HolderCount: 1, Holders: []int64{1}},
			{Slug: "b", HolderCount: 2, Holders: []int64{1}},
		},
	}
}

func TestAssertHolders(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertHolders(r, Assertion{Type: AssertHolders, Badge: "a", Users: []int64{1}}))
	assert.NoError(t, assertHolders(r, Assertion{Type: AssertHolders, Badge: "a", Users: []int64{1, 1}}))

	err := assertHolders(r, Assertion{Type: AssertHolders, Badge: "a", Users: []int64{1, 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "held by [1]")

	err = assertHolders(r, Assertion{Type: AssertHolders, Badge: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "badge does not exist")
}

func TestAssertHolderCount(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertHolderCount(r, Assertion{Badge: "b", Count: 2}))

	err := assertHolderCount(r, Assertion{Badge: "b", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holder count 2")
}

func TestAssertInSync(t *testing.T) {
	r := sampleResult()

	err := assertInSync(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b (stored 2, awarded 1)")
	assert.NotContains(t, err.Error(), "a (stored")

	r.Badges[1].HolderCount = 1
	assert.NoError(t, assertInSync(r))
}

func TestAssertEventCount(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertEventCount(r, Assertion{Kind: "created", Count: 3}))
	assert.NoError(t, assertEventCount(r, Assertion{Kind: "created", Badge: "a", Count: 2}))
	assert.NoError(t, assertEventCount(r, Assertion{Kind: "revoked", Badge: "b", Count: 0}))

	err := assertEventCount(r, Assertion{Kind: "revoked", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 revoked events for any badge")
	assert.Contains(t, err.Error(), "Actual: 1 events")
}

func TestAssertTraceContains(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertTraceContains(r.Trace, Assertion{Op: OpSyncAwards}))
	assert.NoError(t, assertTraceContains(r.Trace, Assertion{Op: OpSyncAwards, Outcome: map[string]any{"created": 3}}))
	assert.NoError(t, assertTraceContains(r.Trace, Assertion{Op: OpSyncBadges, Outcome: map[string]any{"created": []any{"a", "b"}}}))

	err := assertTraceContains(r.Trace, Assertion{Op: OpSyncAwards, Outcome: map[string]any{"created": 4}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in trace")
	assert.Contains(t, err.Error(), "[3] revoke")
}

func TestAssertTraceOrder(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertTraceOrder(r.Trace, Assertion{Ops: []string{OpSyncBadges, OpRevoke}}))
	assert.NoError(t, assertTraceOrder(r.Trace, Assertion{Ops: []string{OpSyncBadges, OpSyncAwards, OpRevoke}}))

	err := assertTraceOrder(r.Trace, Assertion{Ops: []string{OpRevoke, OpSyncAwards}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync_awards not found after [revoke]")
}

func TestEvaluateAssertions(t *testing.T) {
	r := sampleResult()

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertHolders, Badge: "a", Users: []int64{1}},
		{Type: AssertInSync},
		{Type: "bogus"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion 1:")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}

func TestMatchOutcome(t *testing.T) {
	actual := map[string]any{"created": 2, "skipped": []string{"x"}}

	assert.True(t, matchOutcome(actual, nil))
	assert.True(t, matchOutcome(actual, map[string]any{"skipped": []any{"x"}}))
	assert.False(t, matchOutcome(actual, map[string]any{"skipped": []any{"y"}}))
	assert.False(t, matchOutcome(actual, map[string]any{"revoked": 0}))
}
