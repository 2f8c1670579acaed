package harness

// AwardEvent is one listener notification observed during a step.
type AwardEvent struct {
	Kind   string `json:"kind"` // "created" or "revoked"
	Badge  string `json:"badge"`
	UserID int64  `json:"user_id"`
}

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int            `json:"seq"`
	Op      string         `json:"op"`
	RunID   string         `json:"run_id,omitempty"`
	Outcome map[string]any `json:"outcome,omitempty"`
	Error   string         `json:"error,omitempty"`
	Events  []AwardEvent   `json:"events,omitempty"`
}

// BadgeState is the final state of one badge.
type BadgeState struct {
	Slug        string  `json:"slug"`
	HolderCount int64   `json:"holder_count"`
	Holders     []int64 `json:"holders"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the setup and flow steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Badges is the final store state, ordered by slug.
	Badges []BadgeState `json:"badges"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Badges: []BadgeState{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Events returns every event in the trace, in step order.
func (r *Result) Events() []AwardEvent {
	var events []AwardEvent
	for _, ev := range r.Trace {
		events = append(events, ev.Events...)
	}
	return events
}

// Badge returns the final state of slug, if the badge exists.
func (r *Result) Badge(slug string) (BadgeState, bool) {
	for _, b := range r.Badges {
		if b.Slug == slug {
			return b, true
		}
	}
	return BadgeState{}, false
}
