package atom

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wanjj/AMBiT/internal/basis"
	"github.com/wanjj/AMBiT/internal/ir"
	"github.com/wanjj/AMBiT/internal/orbital"
	"github.com/wanjj/AMBiT/internal/store"
)

// StateStore persists atom states keyed by identifier.
type StateStore interface {
	WriteAtomState(ctx context.Context, st store.AtomState) error
	ReadAtomState(ctx context.Context, id string) (store.AtomState, error)
}

type savedState struct {
	ID        string             `json:"id"`
	Z         float64            `json:"z"`
	Charge    int                `json:"charge"`
	Core      []*orbital.Orbital `json:"core"`
	BasisType string             `json:"basis_type,omitempty"`
	Basis     []*orbital.Orbital `json:"basis,omitempty"`
}

// Write stores the core and basis orbitals under the atom identifier and
// returns the state digest.
func (a *Atom) Write(ctx context.Context, st StateStore) (string, error) {
	if err := a.require("Write", StageHFConverged, StageBasisBuilt, StageClosedShellCorrected, StageCISolved, StageOpenShellCorrected); err != nil {
		return "", err
	}
	saved := savedState{
		ID:        a.cfg.ID,
		Z:         a.cfg.Z,
		Charge:    a.cfg.Charge,
		Core:      a.comp.Core.Orbitals().List(),
		BasisType: string(a.comp.Excited.Strategy()),
		Basis:     a.comp.Excited.Orbitals().List(),
	}
	if a.stage < StageBasisBuilt {
		saved.BasisType = ""
		saved.Basis = nil
	}

	raw, err := json.Marshal(saved)
	if err != nil {
		return "", fmt.Errorf("atom: write: %w", err)
	}
	value, err := ir.FromJSON(raw)
	if err != nil {
		return "", fmt.Errorf("atom: write: %w", err)
	}
	obj, ok := value.(ir.Object)
	if !ok {
		return "", fmt.Errorf("atom: write: state is not an object")
	}
	canonical, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("atom: write: %w", err)
	}
	digest, err := ir.StateDigest(obj)
	if err != nil {
		return "", fmt.Errorf("atom: write: %w", err)
	}

	err = st.WriteAtomState(ctx, store.AtomState{
		ID:     a.cfg.ID,
		Z:      a.cfg.Z,
		Charge: a.cfg.Charge,
		State:  string(canonical),
		Digest: digest,
	})
	if err != nil {
		return "", fmt.Errorf("atom: write: %w", err)
	}
	a.logger.Info("atom state written", "digest", ir.Short(digest))
	return digest, nil
}

// Read restores a previously written state instead of converging the core.
// It must be called on a fresh atom. The core is marked converged and, if
// a basis was stored, the atom is left in BasisBuilt.
func (a *Atom) Read(ctx context.Context, st StateStore) error {
	if err := a.require("Read", StageUninitialized); err != nil {
		return err
	}
	rec, err := st.ReadAtomState(ctx, a.cfg.ID)
	if err != nil {
		return fmt.Errorf("atom: read %s: %w", a.cfg.ID, err)
	}

	var saved savedState
	if err := json.Unmarshal([]byte(rec.State), &saved); err != nil {
		return fmt.Errorf("atom: read %s: %w", a.cfg.ID, err)
	}
	if saved.Z != a.cfg.Z || saved.Charge != a.cfg.Charge {
		return fmt.Errorf("atom: read %s: stored Z=%g charge=%d, want Z=%g charge=%d",
			a.cfg.ID, saved.Z, saved.Charge, a.cfg.Z, a.cfg.Charge)
	}
	if len(saved.Core) == 0 {
		return fmt.Errorf("atom: read %s: stored state has no core", a.cfg.ID)
	}

	a.comp.Core.Restore(orbital.FromList(saved.Core))
	a.stage = StageHFConverged
	if len(saved.Basis) > 0 {
		a.comp.Excited.Restore(basis.Strategy(saved.BasisType), orbital.FromList(saved.Basis))
		a.stage = StageBasisBuilt
	}
	a.invalidate()
	a.logger.Info("atom state read", "stage", a.stage.String(), "digest", ir.Short(rec.Digest))
	return nil
}
