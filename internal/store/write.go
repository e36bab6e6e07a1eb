package store

import (
	"context"
	"fmt"
)

// WriteAtomState stores an atom state, replacing any previous state with
// the same identifier. The row takes the next sequence number.
func (s *Store) WriteAtomState(ctx context.Context, st AtomState) error {
	if st.ID == "" {
		return fmt.Errorf("write atom state: empty identifier")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO atom_states
		(id, z, charge, state, digest, seq)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM atom_states))
		ON CONFLICT(id) DO UPDATE SET
			z = excluded.z,
			charge = excluded.charge,
			state = excluded.state,
			digest = excluded.digest,
			seq = excluded.seq
	`,
		st.ID,
		st.Z,
		st.Charge,
		st.State,
		st.Digest,
	)
	if err != nil {
		return fmt.Errorf("write atom state: %w", err)
	}
	return nil
}

// WriteSweep records the start of a sweep.
// Uses ON CONFLICT(id) DO NOTHING: sweep identifiers are unique, so a
// repeated write is a no-op.
func (s *Store) WriteSweep(ctx context.Context, sw Sweep) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sweeps
		(id, input, num_runs, fingerprint, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM sweeps))
		ON CONFLICT(id) DO NOTHING
	`,
		sw.ID,
		sw.Input,
		sw.NumRuns,
		sw.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("write sweep: %w", err)
	}
	return nil
}

// WriteRun atomically writes a run together with its levels and state
// energies. Rewriting a run replaces everything previously stored for it.
//
// The levels and energies must carry the run's SweepID and Run.
func (s *Store) WriteRun(ctx context.Context, run Run, levels []Level, energies []StateEnergy) error {
	maskedJSON, err := marshalFloats(run.Masked)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(sweep_id, run, atom_id, fingerprint, status, error, masked)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sweep_id, run) DO UPDATE SET
			atom_id = excluded.atom_id,
			fingerprint = excluded.fingerprint,
			status = excluded.status,
			error = excluded.error,
			masked = excluded.masked
	`,
		run.SweepID,
		run.Run,
		run.AtomID,
		run.Fingerprint,
		run.Status,
		run.Error,
		maskedJSON,
	)
	if err != nil {
		return fmt.Errorf("write run: insert run: %w", err)
	}

	for _, table := range []string{"levels", "state_energies"} {
		_, err = tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE sweep_id = ? AND run = ?",
			run.SweepID, run.Run,
		)
		if err != nil {
			return fmt.Errorf("write run: clear %s: %w", table, err)
		}
	}

	for _, l := range levels {
		if l.SweepID != run.SweepID || l.Run != run.Run {
			return fmt.Errorf("write run: level belongs to %s/%d", l.SweepID, l.Run)
		}
		corrJSON, err := marshalFloats(l.Corrections)
		if err != nil {
			return fmt.Errorf("write run: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO levels
			(sweep_id, run, two_j, config, idx, energy, leading, corrections)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			l.SweepID,
			l.Run,
			l.TwoJ,
			l.Config,
			l.Index,
			l.Energy,
			l.Leading,
			corrJSON,
		)
		if err != nil {
			return fmt.Errorf("write run: insert level: %w", err)
		}
	}

	for _, e := range energies {
		if e.SweepID != run.SweepID || e.Run != run.Run {
			return fmt.Errorf("write run: state energy belongs to %s/%d", e.SweepID, e.Run)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO state_energies
			(sweep_id, run, state, energy)
			VALUES (?, ?, ?, ?)
		`,
			e.SweepID,
			e.Run,
			e.State,
			e.Energy,
		)
		if err != nil {
			return fmt.Errorf("write run: insert state energy: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}
