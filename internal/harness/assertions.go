package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Op)
		if event.Error != "" {
			fmt.Fprintf(&buf, " error=%q", event.Error)
		} else if len(event.Outcome) > 0 {
			fmt.Fprintf(&buf, " %v", event.Outcome)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// EvaluateAssertions evaluates every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertHolders:
		return assertHolders(result, a)
	case AssertHolderCount:
		return assertHolderCount(result, a)
	case AssertInSync:
		return assertInSync(result)
	case AssertEventCount:
		return assertEventCount(result, a)
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertHolders checks the exact set of users holding a badge.
func assertHolders(result *Result, a Assertion) error {
	state, ok := result.Badge(a.Badge)
	if !ok {
		return &AssertionError{
			Type:     AssertHolders,
			Expected: fmt.Sprintf("badge %s held by %v", a.Badge, a.Users),
			Actual:   "badge does not exist",
			Trace:    result.Trace,
		}
	}

	want := slices.Clone(a.Users)
	slices.Sort(want)
	want = slices.Compact(want)
	if !slices.Equal(want, state.Holders) {
		return &AssertionError{
			Type:     AssertHolders,
			Expected: fmt.Sprintf("badge %s held by %v", a.Badge, want),
			Actual:   fmt.Sprintf("held by %v", state.Holders),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertHolderCount checks the stored holder count of a badge.
func assertHolderCount(result *Result, a Assertion) error {
	state, ok := result.Badge(a.Badge)
	if !ok {
		return &AssertionError{
			Type:     AssertHolderCount,
			Expected: fmt.Sprintf("badge %s with holder count %d", a.Badge, a.Count),
			Actual:   "badge does not exist",
			Trace:    result.Trace,
		}
	}
	if state.HolderCount != int64(a.Count) {
		return &AssertionError{
			Type:     AssertHolderCount,
			Expected: fmt.Sprintf("badge %s with holder count %d", a.Badge, a.Count),
			Actual:   fmt.Sprintf("holder count %d", state.HolderCount),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertInSync checks that every stored holder count equals its award count.
func assertInSync(result *Result) error {
	var drift []string
	for _, b := range result.Badges {
		if b.HolderCount != int64(len(b.Holders)) {
			drift = append(drift, fmt.Sprintf("%s (stored %d, awarded %d)", b.Slug, b.HolderCount, len(b.Holders)))
		}
	}
	if len(drift) > 0 {
		return &AssertionError{
			Type:     AssertInSync,
			Expected: "holder counts match award counts",
			Actual:   strings.Join(drift, ", "),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEventCount checks the number of listener notifications of a kind.
func assertEventCount(result *Result, a Assertion) error {
	count := 0
	for _, ev := range result.Events() {
		if ev.Kind == a.Kind && (a.Badge == "" || ev.Badge == a.Badge) {
			count++
		}
	}

	if count != a.Count {
		target := "any badge"
		if a.Badge != "" {
			target = a.Badge
		}
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s events for %s", a.Count, a.Kind, target),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceContains checks that some step of the op has an outcome
// including the given fields (subset match).
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Op == a.Op && matchOutcome(event.Outcome, a.Outcome) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("op %s with outcome %v", a.Op, a.Outcome),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if ops appear in the specified order.
// Ops don't need to be consecutive (intervening steps are allowed).
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(a.Ops) && event.Op == a.Ops[next] {
			next++
		}
	}

	if next < len(a.Ops) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("ops in order: %v", a.Ops),
			Actual:   fmt.Sprintf("%s not found after %v", a.Ops[next], a.Ops[:next]),
			Trace:    trace,
		}
	}
	return nil
}

// matchOutcome reports whether actual includes every field of expected.
func matchOutcome(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok || !sameJSON(want, got) {
			return false
		}
	}
	return true
}
