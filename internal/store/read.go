package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReadAtomState returns the stored state for an atom identifier.
// Returns ErrNotFound if none has been written.
func (s *Store) ReadAtomState(ctx context.Context, id string) (AtomState, error) {
	var st AtomState
	err := s.db.QueryRowContext(ctx, `
		SELECT id, z, charge, state, digest, seq
		FROM atom_states
		WHERE id = ?
	`, id).Scan(&st.ID, &st.Z, &st.Charge, &st.State, &st.Digest, &st.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return AtomState{}, fmt.Errorf("atom state %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return AtomState{}, fmt.Errorf("read atom state: %w", err)
	}
	return st, nil
}

// ReadSweep returns one sweep by identifier.
// Returns ErrNotFound if it does not exist.
func (s *Store) ReadSweep(ctx context.Context, id string) (Sweep, error) {
	var sw Sweep
	err := s.db.QueryRowContext(ctx, `
		SELECT id, input, num_runs, fingerprint, seq
		FROM sweeps
		WHERE id = ?
	`, id).Scan(&sw.ID, &sw.Input, &sw.NumRuns, &sw.Fingerprint, &sw.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Sweep{}, fmt.Errorf("sweep %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Sweep{}, fmt.Errorf("read sweep: %w", err)
	}
	return sw, nil
}

// ReadSweeps returns all sweeps in the order they were written.
//
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadSweeps(ctx context.Context) ([]Sweep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, input, num_runs, fingerprint, seq
		FROM sweeps
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sweeps: %w", err)
	}
	defer rows.Close()

	sweeps := []Sweep{}
	for rows.Next() {
		var sw Sweep
		if err := rows.Scan(&sw.ID, &sw.Input, &sw.NumRuns, &sw.Fingerprint, &sw.Seq); err != nil {
			return nil, fmt.Errorf("scan sweep: %w", err)
		}
		sweeps = append(sweeps, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweeps: %w", err)
	}
	return sweeps, nil
}

// LatestSweep returns the most recently written sweep.
// Returns ErrNotFound if the store holds none.
func (s *Store) LatestSweep(ctx context.Context) (Sweep, error) {
	var sw Sweep
	err := s.db.QueryRowContext(ctx, `
		SELECT id, input, num_runs, fingerprint, seq
		FROM sweeps
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`).Scan(&sw.ID, &sw.Input, &sw.NumRuns, &sw.Fingerprint, &sw.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Sweep{}, fmt.Errorf("latest sweep: %w", ErrNotFound)
	}
	if err != nil {
		return Sweep{}, fmt.Errorf("read latest sweep: %w", err)
	}
	return sw, nil
}

// ReadRuns returns the runs of a sweep ordered by run index.
//
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadRuns(ctx context.Context, sweepID string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sweep_id, run, atom_id, fingerprint, status, error, masked
		FROM runs
		WHERE sweep_id = ?
		ORDER BY run ASC
	`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var maskedJSON string
		if err := rows.Scan(&r.SweepID, &r.Run, &r.AtomID, &r.Fingerprint, &r.Status, &r.Error, &maskedJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.Masked, err = unmarshalFloats(maskedJSON); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadLevels returns the levels of a sweep ordered by run, 2J,
// configuration and index.
//
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadLevels(ctx context.Context, sweepID string) ([]Level, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sweep_id, run, two_j, config, idx, energy, leading, corrections
		FROM levels
		WHERE sweep_id = ?
		ORDER BY run ASC, two_j ASC, config COLLATE BINARY ASC, idx ASC
	`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("query levels: %w", err)
	}
	defer rows.Close()

	levels := []Level{}
	for rows.Next() {
		var l Level
		var corrJSON string
		if err := rows.Scan(&l.SweepID, &l.Run, &l.TwoJ, &l.Config, &l.Index, &l.Energy, &l.Leading, &corrJSON); err != nil {
			return nil, fmt.Errorf("scan level: %w", err)
		}
		if l.Corrections, err = unmarshalFloats(corrJSON); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate levels: %w", err)
	}
	return levels, nil
}

// ReadStateEnergies returns the single-particle energies of a sweep ordered
// by run then state name.
//
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadStateEnergies(ctx context.Context, sweepID string) ([]StateEnergy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sweep_id, run, state, energy
		FROM state_energies
		WHERE sweep_id = ?
		ORDER BY run ASC, state COLLATE BINARY ASC
	`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("query state energies: %w", err)
	}
	defer rows.Close()

	energies := []StateEnergy{}
	for rows.Next() {
		var e StateEnergy
		if err := rows.Scan(&e.SweepID, &e.Run, &e.State, &e.Energy); err != nil {
			return nil, fmt.Errorf("scan state energy: %w", err)
		}
		energies = append(energies, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state energies: %w", err)
	}
	return energies, nil
}
