package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSweep creates a sweep with minimal required fields.
func createTestSweep(id string, numRuns int) Sweep {
	return Sweep{
		ID:          id,
		Input:       "ca.in",
		NumRuns:     numRuns,
		Fingerprint: "plan-hash",
	}
}

// createTestRun creates a successful run with minimal required fields.
func createTestRun(sweepID string, run int) Run {
	return Run{
		SweepID:     sweepID,
		Run:         run,
		AtomID:      "Ca-abc",
		Fingerprint: "params-hash",
		Status:      StatusOK,
	}
}
