package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wanjj/AMBiT/internal/atom"
	"github.com/wanjj/AMBiT/internal/basis"
	"github.com/wanjj/AMBiT/internal/ci"
	"github.com/wanjj/AMBiT/internal/orbital"
	"github.com/wanjj/AMBiT/internal/store"
)

// Pipeline is the sequence of atom operations a run performs.
type Pipeline struct {
	Basis   basis.Strategy
	Ionised *orbital.Info

	// Sectors are the CI sectors to solve. Empty selects the closed-shell
	// pipeline.
	Sectors []SectorSpec

	Corrections []atom.Correction
	SMSOperator atom.SMSOperator
	IncludeMBPT bool

	// SizeOnly stops after the size pass.
	SizeOnly      bool
	MaxMatrixSize int
}

// SectorSpec names one CI sector.
type SectorSpec struct {
	TwoJ   int
	Config orbital.Configuration
}

// ClosedShell reports whether the pipeline solves no CI sectors.
func (p Pipeline) ClosedShell() bool {
	return len(p.Sectors) == 0
}

// SectorResult is a sector as computed by one run.
type SectorResult struct {
	TwoJ      int           `json:"two_j"`
	Config    string        `json:"config"`
	Dimension int           `json:"dimension"`
	Levels    []LevelResult `json:"levels,omitempty"`
}

// LevelResult is one CI level with every correction included in Energy.
type LevelResult struct {
	Energy      float64            `json:"energy"`
	Leading     string             `json:"leading"`
	Corrections map[string]float64 `json:"corrections,omitempty"`
}

// StateEnergy is a single-particle energy reported by a closed-shell run.
type StateEnergy struct {
	State  string  `json:"state"`
	Energy float64 `json:"energy"`
}

// outcome is what a successful pipeline produced.
type outcome struct {
	sectors  []SectorResult
	energies []StateEnergy
}

// executor runs a pipeline against one atom.
type executor struct {
	pipeline Pipeline
	store    *store.Store
	read     bool
	logger   *slog.Logger
}

func (x *executor) execute(ctx context.Context, a *atom.Atom) (outcome, error) {
	if err := x.prepare(ctx, a); err != nil {
		return outcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}
	if x.pipeline.ClosedShell() {
		return x.closedShell(a)
	}
	return x.openShell(ctx, a)
}

// prepare leaves a with a converged core and the pipeline's basis, reading
// the stored state when asked and writing it after a fresh build.
func (x *executor) prepare(ctx context.Context, a *atom.Atom) error {
	if a.Stage() >= atom.StageBasisBuilt && a.Excited().Strategy() == x.pipeline.Basis {
		x.logger.Debug("reusing basis", "atom", a.Identifier())
		return nil
	}

	if x.read && x.store != nil && a.Stage() == atom.StageUninitialized {
		err := a.Read(ctx, x.store)
		switch {
		case err == nil:
			if a.Stage() >= atom.StageBasisBuilt && a.Excited().Strategy() == x.pipeline.Basis {
				return nil
			}
		case errors.Is(err, store.ErrNotFound):
			x.logger.Info("no stored state, computing", "atom", a.Identifier())
		default:
			return err
		}
	}

	if err := x.buildBasis(a); err != nil {
		return err
	}
	if x.store != nil {
		if _, err := a.Write(ctx, x.store); err != nil {
			return err
		}
	}
	return nil
}

func (x *executor) buildBasis(a *atom.Atom) error {
	p := x.pipeline
	if p.Basis == basis.StrategyHF {
		if p.Ionised != nil {
			x.logger.Warn("Basis/Ionised is ignored for the HF basis", "ionised", p.Ionised.Name())
		}
		return a.CreateHFBasis()
	}
	if err := a.ConvergeCore(); err != nil {
		return err
	}
	switch p.Basis {
	case basis.StrategyR:
		return a.CreateRBasis(p.Ionised)
	case basis.StrategyBSpline:
		return a.CreateBSplineBasis(p.Ionised)
	case basis.StrategyCustom:
		return a.CreateCustomBasis(p.Ionised)
	}
	return fmt.Errorf("%w: no basis type", ErrInvalidInput)
}

func (x *executor) closedShell(a *atom.Atom) (outcome, error) {
	for _, kind := range x.pipeline.Corrections {
		var err error
		switch kind {
		case atom.CorrectionSMS:
			err = a.DoClosedShellSMS(x.pipeline.IncludeMBPT)
		case atom.CorrectionVolumeShift:
			err = a.DoClosedShellVolumeShift(x.pipeline.IncludeMBPT)
		case atom.CorrectionAlphaVar:
			err = a.DoClosedShellAlphaVar(x.pipeline.IncludeMBPT)
		}
		if err != nil {
			return outcome{}, err
		}
	}

	var out outcome
	for _, info := range a.States() {
		e, err := a.GetEnergy(info)
		if err != nil {
			return outcome{}, err
		}
		out.energies = append(out.energies, StateEnergy{State: info.Name(), Energy: e})
	}
	return out, nil
}

func (x *executor) openShell(ctx context.Context, a *atom.Atom) (outcome, error) {
	quota := NewMatrixQuota(x.pipeline.MaxMatrixSize)

	// Size pass: nothing is diagonalised unless every sector fits.
	var sectors []SectorSpec
	var out outcome
	for _, sec := range x.pipeline.Sectors {
		dim, err := a.OpenShellEnergy(sec.TwoJ, sec.Config, true)
		if errors.Is(err, ci.ErrEmptySpace) {
			x.logger.Warn("sector has no states (ignoring)", "two_j", sec.TwoJ, "config", sec.Config.Label())
			continue
		}
		if err != nil {
			return outcome{}, err
		}
		if err := quota.Check(sec.TwoJ, sec.Config.Label(), dim); err != nil {
			return outcome{}, err
		}
		sectors = append(sectors, sec)
		out.sectors = append(out.sectors, SectorResult{TwoJ: sec.TwoJ, Config: sec.Config.Label(), Dimension: dim})
	}
	if len(sectors) == 0 {
		return outcome{}, fmt.Errorf("%w: every configured sector is empty", ci.ErrEmptySpace)
	}
	if x.pipeline.SizeOnly {
		return out, nil
	}

	for i, sec := range sectors {
		if err := ctx.Err(); err != nil {
			return outcome{}, err
		}
		if _, err := a.OpenShellEnergy(sec.TwoJ, sec.Config, false); err != nil {
			return outcome{}, err
		}
		if err := x.correct(a, sec); err != nil {
			return outcome{}, err
		}
		solved, _ := a.Sector(sec.TwoJ, sec.Config)
		out.sectors[i].Levels = levelResults(solved)
	}
	return out, nil
}

func (x *executor) correct(a *atom.Atom, sec SectorSpec) error {
	for _, kind := range x.pipeline.Corrections {
		var err error
		switch kind {
		case atom.CorrectionSMS:
			err = a.ApplySMS(x.pipeline.SMSOperator, sec.TwoJ, sec.Config)
		case atom.CorrectionVolumeShift:
			err = a.DoOpenShellVolumeShift(sec.TwoJ, sec.Config)
		case atom.CorrectionAlphaVar:
			err = a.DoOpenShellAlphaVar(sec.TwoJ, sec.Config)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func levelResults(sec *atom.Sector) []LevelResult {
	energies := sec.Energies()
	out := make([]LevelResult, len(sec.Levels))
	for k, level := range sec.Levels {
		out[k] = LevelResult{Energy: energies[k], Leading: level.Leading}
		if len(sec.Corrections) == 0 {
			continue
		}
		out[k].Corrections = make(map[string]float64, len(sec.Corrections))
		for kind, deltas := range sec.Corrections {
			out[k].Corrections[string(kind)] = deltas[k]
		}
	}
	return out
}
