// Package atom orchestrates one atomic-structure calculation.
//
// An Atom owns a lattice, a self-consistent core and an excited basis, and
// threads their state through a fixed sequence of stages: converge the
// core, build a basis, then either apply closed-shell corrections or solve
// CI sectors and correct them. Every operation checks its prerequisite
// stage and returns a *StageError when called out of order.
//
// The numerical work is done by collaborators passed to New; the hf,
// basis, mbpt and ci packages provide the reference implementations.
package atom

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/wanjj/AMBiT/internal/basis"
	"github.com/wanjj/AMBiT/internal/ci"
	"github.com/wanjj/AMBiT/internal/hf"
	"github.com/wanjj/AMBiT/internal/orbital"
)

// Lattice is the radial grid the atom owns.
type Lattice interface {
	Size() int
	RMax() float64
}

// Core is the self-consistent core.
type Core interface {
	Update() error
	Converged() bool
	Orbitals() orbital.Set
	Restore(orbitals orbital.Set)
	Config() hf.Config
	Debug() *hf.Debug
	NuclearMeanSquareRadius() float64
	FieldShiftFactor(info orbital.Info, zeff float64) float64
	AlphaSensitivity(info orbital.Info, zeff float64) float64
}

// ExcitedStates builds and holds the excited basis.
type ExcitedStates interface {
	CreateHF() error
	CreateR(ionised *orbital.Info) error
	CreateBSpline(ionised *orbital.Info) error
	CreateCustom(ionised *orbital.Info) error
	Orbitals() orbital.Set
	Valence() orbital.Set
	Strategy() basis.Strategy
	Restore(strategy basis.Strategy, orbitals orbital.Set)
}

// SigmaCalculator evaluates the second-order self-energy of one state.
type SigmaCalculator interface {
	Sigma(info orbital.Info) (float64, error)
}

// Configuration builds and diagonalises CI sectors.
type Configuration interface {
	Space(leading orbital.Configuration, twoJ int, states []orbital.Info) (*ci.Space, error)
	Solve(space *ci.Space, orbitals orbital.Set, energies map[orbital.Info]float64) (*ci.Solution, error)
}

// Components are the collaborators of an atom.
type Components struct {
	Lattice Lattice
	Core    Core
	Excited ExcitedStates
	Sigma   SigmaCalculator
	CI      Configuration
}

// Config identifies an atom and selects pipeline behaviour.
type Config struct {
	// ID names the atom in storage. It should change whenever a physical
	// parameter changes.
	ID string

	Z      float64
	Charge int

	// IncludeMBPT folds Σ into the one-body energies used by CI.
	IncludeMBPT bool
}

// Atom is the state of one calculation.
//
// Thread-safety: an Atom is confined to one goroutine. Parallel sweeps build
// one atom per run.
type Atom struct {
	cfg    Config
	comp   Components
	logger *slog.Logger
	stage  Stage

	// energies holds the single-particle energies of the core and the
	// valence basis as built; closed-shell corrections are kept apart.
	energies    map[orbital.Info]float64
	closedShell map[Correction]map[orbital.Info]float64

	sigma        map[orbital.Info]float64
	sigmaCompute int

	sectors map[SectorKey]*Sector
}

// New returns an uninitialized atom.
func New(cfg Config, comp Components, logger *slog.Logger) (*Atom, error) {
	if comp.Lattice == nil || comp.Core == nil || comp.Excited == nil {
		return nil, fmt.Errorf("atom: lattice, core and excited states are required")
	}
	if comp.Sigma == nil || comp.CI == nil {
		return nil, fmt.Errorf("atom: sigma calculator and CI are required")
	}
	if cfg.Z < 1 {
		return nil, fmt.Errorf("atom: nuclear charge must be >= 1, got %g", cfg.Z)
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Atom{
		cfg:    cfg,
		comp:   comp,
		logger: logger.With("atom", cfg.ID),
	}
	a.invalidate()
	return a, nil
}

// Identifier returns the storage identifier.
func (a *Atom) Identifier() string { return a.cfg.ID }

// SetIdentifier changes the storage identifier.
func (a *Atom) SetIdentifier(id string) {
	a.cfg.ID = id
	a.logger = a.logger.With("atom", id)
}

// Z returns the nuclear charge.
func (a *Atom) Z() float64 { return a.cfg.Z }

// Charge returns the degree of ionisation.
func (a *Atom) Charge() int { return a.cfg.Charge }

// Stage returns the current pipeline stage.
func (a *Atom) Stage() Stage { return a.stage }

// DebugOptions returns the debug flags shared with the core.
func (a *Atom) DebugOptions() *hf.Debug { return a.comp.Core.Debug() }

// Core returns the core collaborator.
func (a *Atom) Core() Core { return a.comp.Core }

// Excited returns the excited-states collaborator.
func (a *Atom) Excited() ExcitedStates { return a.comp.Excited }

// Lattice returns the radial grid.
func (a *Atom) Lattice() Lattice { return a.comp.Lattice }

// ConvergeCore runs the SCF iteration unless the core is already converged
// (as after Read). Downstream state is dropped.
func (a *Atom) ConvergeCore() error {
	if !a.comp.Core.Converged() {
		if err := a.comp.Core.Update(); err != nil {
			a.stage = StageUninitialized
			a.invalidate()
			return fmt.Errorf("atom: core: %w", err)
		}
	}
	a.stage = StageHFConverged
	a.invalidate()
	a.logger.Info("core converged", "num_orbitals", len(a.comp.Core.Orbitals()))
	return nil
}

// CreateHFBasis converges the core and builds the complete HF basis.
func (a *Atom) CreateHFBasis() error {
	if err := a.ConvergeCore(); err != nil {
		return err
	}
	return a.buildBasis("CreateHFBasis", a.comp.Excited.CreateHF)
}

// CreateRBasis builds the cavity basis, optionally from a core with one
// electron of ionised removed.
func (a *Atom) CreateRBasis(ionised *orbital.Info) error {
	return a.buildBasis("CreateRBasis", func() error { return a.comp.Excited.CreateR(ionised) })
}

// CreateBSplineBasis builds the B-spline basis, optionally from an ionised
// core.
func (a *Atom) CreateBSplineBasis(ionised *orbital.Info) error {
	return a.buildBasis("CreateBSplineBasis", func() error { return a.comp.Excited.CreateBSpline(ionised) })
}

// CreateCustomBasis builds the custom basis, optionally from an ionised
// core.
func (a *Atom) CreateCustomBasis(ionised *orbital.Info) error {
	return a.buildBasis("CreateCustomBasis", func() error { return a.comp.Excited.CreateCustom(ionised) })
}

func (a *Atom) buildBasis(op string, build func() error) error {
	if a.stage == StageUninitialized || !a.comp.Core.Converged() {
		return &StageError{Op: op, Stage: a.stage, Allowed: []Stage{
			StageHFConverged, StageBasisBuilt, StageClosedShellCorrected, StageCISolved, StageOpenShellCorrected,
		}}
	}
	// Any failure leaves no basis behind.
	a.stage = StageHFConverged
	a.invalidate()
	if err := build(); err != nil {
		return fmt.Errorf("atom: %s: %w", op, err)
	}
	a.stage = StageBasisBuilt
	a.invalidate()
	return nil
}

// invalidate drops every quantity derived from the core and basis and
// reloads the single-particle energies.
func (a *Atom) invalidate() {
	a.sigma = make(map[orbital.Info]float64)
	a.closedShell = make(map[Correction]map[orbital.Info]float64)
	a.sectors = make(map[SectorKey]*Sector)
	a.energies = make(map[orbital.Info]float64)
	if a.stage >= StageHFConverged {
		for info, o := range a.comp.Core.Orbitals() {
			a.energies[info] = o.Energy
		}
	}
	if a.stage >= StageBasisBuilt {
		for info, o := range a.comp.Excited.Valence() {
			a.energies[info] = o.Energy
		}
	}
}

// GetSigma returns Σ for info, computing it on first use. Later calls
// return the cached value without recomputation until the basis changes.
func (a *Atom) GetSigma(info orbital.Info) (float64, error) {
	if err := a.require("GetSigma", StageBasisBuilt, StageClosedShellCorrected, StageCISolved, StageOpenShellCorrected); err != nil {
		return 0, err
	}
	if s, ok := a.sigma[info]; ok {
		return s, nil
	}
	s, err := a.comp.Sigma.Sigma(info)
	if err != nil {
		return 0, fmt.Errorf("atom: sigma %s: %w", info.Name(), err)
	}
	a.sigma[info] = s
	a.sigmaCompute++
	return s, nil
}

// SigmaComputations returns how many times Σ has been evaluated.
func (a *Atom) SigmaComputations() int { return a.sigmaCompute }

// GetEnergy returns the energy of a core or valence state including every
// closed-shell correction applied so far. It never computes anything.
func (a *Atom) GetEnergy(info orbital.Info) (float64, error) {
	e, ok := a.energies[info]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotComputed, info.Name())
	}
	for _, kind := range corrections {
		e += a.closedShell[kind][info]
	}
	return e, nil
}

// States returns the states GetEnergy can answer for, in order.
func (a *Atom) States() []orbital.Info {
	set := make(orbital.Set, len(a.energies))
	for info := range a.energies {
		set[info] = nil
	}
	return set.Infos()
}

func (a *Atom) orbital(info orbital.Info) *orbital.Orbital {
	if o := a.comp.Excited.Orbitals().Get(info); o != nil {
		return o
	}
	return a.comp.Core.Orbitals().Get(info)
}

// IsNotComputed reports whether err is (or wraps) ErrNotComputed.
func IsNotComputed(err error) bool {
	return errors.Is(err, ErrNotComputed)
}
