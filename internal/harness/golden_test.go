package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden(t *testing.T) {
	for _, name := range []string{"python_lover", "counts_and_reset"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass)
		})
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/batches.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := NewSnapshot(scenario.Name, first).Marshal()
	require.NoError(t, err)
	b, err := NewSnapshot(scenario.Name, second).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshot_MarshalSortsOutcomeKeys(t *testing.T) {
	snap := Snapshot{
		Scenario: "s",
		Trace:    []TraceEvent{{Seq: 1, Op: OpGrant, Outcome: map[string]any{"z": 1, "a": 2}}},
		Badges:   []BadgeState{},
	}

	data, err := snap.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"a\": 2,\n        \"z\": 1")
	assert.Equal(t, byte('\n'), data[len(data)-1])
}
