package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "One recipe, one pass"
recipes:
  - slug: starter
    name: Starter
    image: badges/starter.png
    members: [1]
flow:
  - op: sync_all
assertions:
  - type: in_sync
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", scenario.Name)
	assert.Equal(t, "One recipe, one pass", scenario.Description)
	require.Len(t, scenario.Recipes, 1)
	assert.Equal(t, []int64{1}, scenario.Recipes[0].Members)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, OpSyncAll, scenario.Flow[0].Op)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_ExpectDecodesAsMap(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: expect
description: "expect clause"
recipes:
  - {slug: a, name: A, image: a.png}
flow:
  - op: sync_awards
    expect: {created: 2, skipped: [a]}
assertions:
  - type: in_sync
`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"created": 2, "skipped": []any{"a"}}, scenario.Flow[0].Expect)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nrecipes: [{slug: a, name: A}]\nflow: [{op: sync_all}]\nassertions: [{type: in_sync}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nrecipes: [{slug: a, name: A}]\nflow: [{op: sync_all}]\nassertions: [{type: in_sync}]",
			wantErr: "description is required",
		},
		{
			name:    "no recipes",
			yaml:    "name: n\ndescription: d\nflow: [{op: sync_all}]\nassertions: [{type: in_sync}]",
			wantErr: "recipes list is required",
		},
		{
			name:    "no flow",
			yaml:    "name: n\ndescription: d\nrecipes: [{slug: a, name: A}]\nassertions: [{type: in_sync}]",
			wantErr: "flow list is required",
		},
		{
			name:    "no assertions",
			yaml:    "name: n\ndescription: d\nrecipes: [{slug: a, name: A}]\nflow: [{op: sync_all}]",
			wantErr: "assertions list is required",
		},
		{
			name:    "bad slug",
			yaml:    "name: n\ndescription: d\nrecipes: [{slug: Bad_Slug, name: A}]\nflow: [{op: sync_all}]\nassertions: [{type: in_sync}]",
			wantErr: "is not canonical",
		},
		{
			name:    "duplicate slug",
			yaml:    "name: n\ndescription: d\nrecipes: [{slug: a, name: A}, {slug: a, name: B}]\nflow: [{op: sync_all}]\nassertions: [{type: in_sync}]",
			wantErr: "duplicate slug",
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\nrecipes: [{slug: a, name: A}]\nflow: [{op: award_all}]\nassertions: [{type: in_sync}]",
			wantErr: `unknown op "award_all"`,
		},
		{
			name:    "grant without users",
			yaml:    "name: n\ndescription: d\nrecipes: [{slug: a, name: A}]\nflow: [{op: grant, badge: a}]\nassertions: [{type: in_sync}]",
			wantErr: "badge and users are required",
		},
		{
			name:    "expect in setup",
			yaml:    "name: n\ndescription: d\nrecipes: [{slug: a, name: A}]\nsetup: [{op: sync_badges, expect: {created: 1}}]\nflow: [{op: sync_all}]\nassertions: [{type: in_sync}]",
			wantErr: "expect is not allowed in setup",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\nrecipes: [{slug: a, name: A}]\nflow: [{op: sync_all}]\nassertions: [{type: final_state}]",
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name:    "event_count kind",
			yaml:    "name: n\ndescription: d\nrecipes: [{slug: a, name: A}]\nflow: [{op: sync_all}]\nassertions: [{type: event_count, kind: updated}]",
			wantErr: "kind must be created or revoked",
		},
		{
			name:    "holders without badge",
			yaml:    "name: n\ndescription: d\nrecipes: [{slug: a, name: A}]\nflow: [{op: sync_all}]\nassertions: [{type: holders, users: [1]}]",
			wantErr: "badge is required for holders",
		},
		{
			name:    "trace_order without ops",
			yaml:    "name: n\ndescription: d\nrecipes: [{slug: a, name: A}]\nflow: [{op: sync_all}]\nassertions: [{type: trace_order}]",
			wantErr: "ops list is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_Testdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}
