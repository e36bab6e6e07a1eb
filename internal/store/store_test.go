package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
	for _, table := range []string{"atom_states", "sweeps", "runs", "levels", "state_energies"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
	for _, index := range []string{"idx_runs_atom", "idx_sweeps_seq"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?", index).Scan(&name)
		assert.NoError(t, err, "index %s", index)
	}
}

func TestOpen_ReopenKeepsSweeps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteSweep(ctx, createTestSweep("sweep-1", 2)))
	require.NoError(t, s.Close())

	for i := 0; i < 2; i++ {
		s, err = Open(path)
		require.NoError(t, err)
		sweeps, err := s.ReadSweeps(ctx)
		require.NoError(t, err)
		require.Len(t, sweeps, 1)
		assert.Equal(t, "sweep-1", sweeps[0].ID)
		require.NoError(t, s.Close())
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "ca.db"))
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())

	s, err := Open(filepath.Join(t.TempDir(), "ca.db"))
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.NotPanics(t, func() { _ = s.Close() })
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.pragma(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMigrate_FromUnversioned(t *testing.T) {
	s := createTestStore(t)
	_, err := s.db.Exec("DROP INDEX idx_sweeps_seq")
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)

	require.NoError(t, migrate(s.db))

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
	var name string
	assert.NoError(t, s.db.QueryRow("SELECT name FROM sqlite_master WHERE name = 'idx_sweeps_seq'").Scan(&name))
}

func TestQuery(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSweep(ctx, createTestSweep("sweep-1", 3)))

	rows, err := s.Query(ctx, "SELECT num_runs FROM sweeps WHERE id = ?", "sweep-1")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	assert.Equal(t, 3, n)
}

func TestConstraint_RunStatus(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSweep(ctx, createTestSweep("sweep-1", 1)))

	run := createTestRun("sweep-1", 0)
	run.Status = "pending"
	assert.Error(t, s.WriteRun(ctx, run, nil, nil), "unknown status violates CHECK")
}

func TestConstraint_RunRequiresSweep(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteRun(context.Background(), createTestRun("missing", 0), nil, nil)
	assert.Error(t, err, "run without sweep violates the foreign key")
}
