package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanjj/AMBiT/internal/store"
)

func TestRun_ClosedShell(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/ca_closed_shell.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.NotNil(t, result.Sweep)
	assert.Equal(t, "test-sweep-default", result.Sweep.SweepID)
	assert.Len(t, result.Sweep.Runs, 1)
}

func TestRun_Overrides(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/ca_mass_sweep.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Sweep.Runs, 3)
	assert.Equal(t, map[string]float64{"NuclearInverseMass": 0.001}, result.Sweep.Runs[2].Masked)
}

func TestRun_FailingAssertionReported(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/ca_closed_shell.yaml")
	require.NoError(t, err)
	scenario.Assertions = []Assertion{{Type: AssertRunStatus, Run: 0, Status: store.StatusFailed}}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "run 0 status failed")
}

func TestRun_FailFastKeepsPartialResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/ca_failures.yaml")
	require.NoError(t, err)
	scenario.FailFast = true
	scenario.Assertions = []Assertion{
		{Type: AssertRunStatus, Run: 1, Status: store.StatusFailed, Code: "INVALID_INPUT"},
		{Type: AssertRunStatus, Run: 2, Status: store.StatusSkipped},
		{Type: AssertFinalState, Table: "runs", Where: map[string]interface{}{"run": 2}, Expect: map[string]interface{}{"status": "skipped"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FatalConfiguration(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bad.in")
	require.NoError(t, os.WriteFile(input, []byte(`
Z = 20
Multirun = 'NuclearInverseMass, NuclearRadius'
NuclearInverseMass = '0.0, 0.001'
NuclearRadius = '3.0, 3.5, 4.0'
`), 0644))

	_, err := Run(&Scenario{
		Name:       "fatal",
		Input:      input,
		Assertions: []Assertion{{Type: AssertRunCount, Status: "ok", Count: 0}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep aborted")
	assert.Contains(t, err.Error(), "MULTIRUN_LENGTH")
}

func TestRun_BadOverride(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/ca_closed_shell.yaml")
	require.NoError(t, err)
	scenario.Set = []string{"Z='20"}

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse overrides")
}

func TestRun_MissingInput(t *testing.T) {
	_, err := Run(&Scenario{Name: "missing", Input: "/nonexistent/ca.in"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load input")
}
