package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDir_Testdata(t *testing.T) {
	suite, err := RunDir(context.Background(), "testdata/scenarios")
	require.NoError(t, err)

	assert.Equal(t, 4, suite.TotalScenarios)
	assert.Equal(t, 4, suite.Passed, "failures: %+v", suite.Failures)
	assert.Zero(t, suite.Failed)
}

func TestRunDir_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_ok.yaml"), []byte(minimalScenario), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_broken.yaml"), []byte("name: [\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c_failing.yaml"), []byte(`
name: failing
description: "holder assertion does not hold"
recipes:
  - {slug: a, name: A, image: a.png, members: [1]}
flow:
  - op: sync_all
assertions:
  - type: holders
    badge: a
    users: [2]
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	suite, err := RunDir(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, suite.TotalScenarios)
	assert.Equal(t, 1, suite.Passed)
	assert.Equal(t, 2, suite.Failed)
	require.Len(t, suite.Failures, 2)
	assert.Equal(t, "b_broken.yaml", suite.Failures[0].Scenario)
	assert.Contains(t, suite.Failures[0].Error, "failed to parse YAML")
	assert.Equal(t, "failing", suite.Failures[1].Scenario)
	assert.Contains(t, suite.Failures[1].Error, "held by [1]")
}

func TestRunDir_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suite, err := RunDir(ctx, "testdata/scenarios")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, suite.TotalScenarios)
}
