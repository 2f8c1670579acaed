package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/badgify/internal/badge"
)

// Scenario defines a reconciliation test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Recipes are registered before setup, in order.
	Recipes []RecipeDef `yaml:"recipes"`

	// Setup steps establish initial state. They appear in the trace but
	// carry no expect clauses.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the steps under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and store.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is returned for every engine run. Defaults to "scenario-run".
	RunID string `yaml:"run_id,omitempty"`

	// SalvageDuplicates configures the engine. Defaults to true.
	SalvageDuplicates *bool `yaml:"salvage_duplicates,omitempty"`
}

// RecipeDef declares a recipe with a fixed member list.
type RecipeDef struct {
	Slug        string  `yaml:"slug"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Image       string  `yaml:"image,omitempty"`
	Manual      bool    `yaml:"manual,omitempty"`
	Members     []int64 `yaml:"members,omitempty"`
}

// Step is one operation of a scenario.
type Step struct {
	Op string `yaml:"op"`

	// Selection for engine passes.
	Badges  []string `yaml:"badges,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`

	// Target of grant, revoke and set_members.
	Badge string  `yaml:"badge,omitempty"`
	Users []int64 `yaml:"users,omitempty"`

	Update               bool `yaml:"update,omitempty"`
	Revoke               bool `yaml:"revoke,omitempty"`
	BatchSize            int  `yaml:"batch_size,omitempty"`
	IDsLimit             int  `yaml:"ids_limit,omitempty"`
	Workers              int  `yaml:"workers,omitempty"`
	DisableNotifications bool `yaml:"disable_notifications,omitempty"`

	// Expect is a subset of the step outcome.
	Expect map[string]any `yaml:"expect,omitempty"`

	// ExpectError is a substring the step error must contain. When empty
	// the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	OpSyncBadges = "sync_badges"
	OpSyncAwards = "sync_awards"
	OpSyncCounts = "sync_counts"
	OpSyncAll    = "sync_all"
	OpReset      = "reset"
	OpGrant      = "grant"
	OpRevoke     = "revoke"
	OpSetMembers = "set_members"
)

var validOps = []string{
	OpSyncBadges, OpSyncAwards, OpSyncCounts, OpSyncAll,
	OpReset, OpGrant, OpRevoke, OpSetMembers,
}

// Assertion validates trace or final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Badge is used by holders, holder_count and optionally event_count.
	Badge string `yaml:"badge,omitempty"`

	// Users is the expected holder set (holders).
	Users []int64 `yaml:"users,omitempty"`

	// Kind is "created" or "revoked" (event_count).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected holder count or number of events.
	Count int `yaml:"count,omitempty"`

	// Op and Outcome are matched by trace_contains.
	Op      string         `yaml:"op,omitempty"`
	Outcome map[string]any `yaml:"outcome,omitempty"`

	// Ops is the expected order (trace_order).
	Ops []string `yaml:"ops,omitempty"`
}

// Assertion type constants.
const (
	AssertHolders       = "holders"
	AssertHolderCount   = "holder_count"
	AssertInSync        = "in_sync"
	AssertEventCount    = "event_count"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Recipes) == 0 {
		return fmt.Errorf("recipes list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	slugs := make(map[string]bool, len(s.Recipes))
	for i, r := range s.Recipes {
		if !badge.ValidSlug(r.Slug) {
			return fmt.Errorf("recipes[%d]: slug %q is not canonical", i, r.Slug)
		}
		if r.Name == "" {
			return fmt.Errorf("recipes[%d]: name is required", i)
		}
		if slugs[r.Slug] {
			return fmt.Errorf("recipes[%d]: duplicate slug %q", i, r.Slug)
		}
		slugs[r.Slug] = true
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil || step.ExpectError != "" {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(where string, step Step) error {
	if step.Op == "" {
		return fmt.Errorf("%s: op is required", where)
	}
	if !slices.Contains(validOps, step.Op) {
		return fmt.Errorf("%s: unknown op %q", where, step.Op)
	}

	switch step.Op {
	case OpGrant, OpRevoke:
		if step.Badge == "" || len(step.Users) == 0 {
			return fmt.Errorf("%s: badge and users are required for %s", where, step.Op)
		}
	case OpSetMembers:
		if step.Badge == "" {
			return fmt.Errorf("%s: badge is required for %s", where, step.Op)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertHolders, AssertHolderCount:
		if a.Badge == "" {
			return fmt.Errorf("assertions[%d]: badge is required for %s", index, a.Type)
		}
	case AssertInSync:
	case AssertEventCount:
		if a.Kind != "created" && a.Kind != "revoked" {
			return fmt.Errorf("assertions[%d]: kind must be created or revoked for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
