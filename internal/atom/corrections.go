package atom

import (
	"fmt"
	"slices"
	"strings"

	"github.com/wanjj/AMBiT/internal/ci"
	"github.com/wanjj/AMBiT/internal/orbital"
)

// Correction names a perturbative correction.
type Correction string

const (
	CorrectionSMS         Correction = "SMS"
	CorrectionVolumeShift Correction = "VolumeShift"
	CorrectionAlphaVar    Correction = "AlphaVar"
)

// corrections lists every Correction in the order shifts are summed.
var corrections = []Correction{CorrectionSMS, CorrectionVolumeShift, CorrectionAlphaVar}

// ParseCorrection validates a Corrections entry.
func ParseCorrection(s string) (Correction, error) {
	switch c := Correction(strings.TrimSpace(s)); c {
	case CorrectionSMS, CorrectionVolumeShift, CorrectionAlphaVar:
		return c, nil
	}
	return "", fmt.Errorf("atom: unknown correction %q (want SMS, VolumeShift or AlphaVar)", s)
}

// SMSOperator selects the open-shell specific-mass-shift treatment.
type SMSOperator string

const (
	// SMSV0 is the one-body diagonal term only.
	SMSV0 SMSOperator = "V0"
	// SMSV1 adds the two-body valence p·p term.
	SMSV1 SMSOperator = "V1"
	// SMSV2 is V1 with the one-body term relaxed by Σ.
	SMSV2 SMSOperator = "V2"
)

// ParseSMSOperator validates an SMS/Operator value.
func ParseSMSOperator(s string) (SMSOperator, error) {
	switch op := SMSOperator(strings.ToUpper(strings.TrimSpace(s))); op {
	case SMSV0, SMSV1, SMSV2:
		return op, nil
	}
	return "", fmt.Errorf("atom: unknown SMS operator %q (want V0, V1 or V2)", s)
}

// DoClosedShellSMS applies the specific mass shift, linear in the nuclear
// inverse mass, to every core and valence energy.
func (a *Atom) DoClosedShellSMS(includeMBPT bool) error {
	return a.applyClosedShell("DoClosedShellSMS", CorrectionSMS, includeMBPT, a.smsOneBody)
}

// DoClosedShellVolumeShift applies the core-relaxation part of the field
// shift for the current nuclear radius.
func (a *Atom) DoClosedShellVolumeShift(includeMBPT bool) error {
	return a.applyClosedShell("DoClosedShellVolumeShift", CorrectionVolumeShift, includeMBPT, a.volumeOneBody)
}

// DoClosedShellAlphaVar applies the core-relaxation part of the α²
// variation.
func (a *Atom) DoClosedShellAlphaVar(includeMBPT bool) error {
	return a.applyClosedShell("DoClosedShellAlphaVar", CorrectionAlphaVar, includeMBPT, a.alphaOneBody)
}

// ClosedShellCorrection returns the shift applied to info by kind.
func (a *Atom) ClosedShellCorrection(kind Correction, info orbital.Info) (float64, bool) {
	deltas, ok := a.closedShell[kind]
	if !ok {
		return 0, false
	}
	d, ok := deltas[info]
	return d, ok
}

func (a *Atom) applyClosedShell(op string, kind Correction, includeMBPT bool, oneBody func(*orbital.Orbital) float64) error {
	if err := a.require(op, StageBasisBuilt, StageClosedShellCorrected); err != nil {
		return err
	}
	deltas := make(map[orbital.Info]float64, len(a.energies))
	for _, info := range a.States() {
		o := a.orbital(info)
		if o == nil {
			continue
		}
		d := oneBody(o)
		if includeMBPT {
			var err error
			if d, err = a.relax(info, d); err != nil {
				return err
			}
		}
		deltas[info] = d
	}
	a.closedShell[kind] = deltas
	a.stage = StageClosedShellCorrected
	a.logger.Info("closed-shell correction applied", "correction", string(kind), "mbpt", includeMBPT, "num_states", len(deltas))
	return nil
}

// relax scales a first-order shift by (1 + Σ/ε).
func (a *Atom) relax(info orbital.Info, d float64) (float64, error) {
	e := a.energies[info]
	if e == 0 {
		return d, nil
	}
	s, err := a.GetSigma(info)
	if err != nil {
		return 0, err
	}
	return d * (1 + s/e), nil
}

// coreSum returns Σ_a w_a f(a) over the core, with w_a the occupancy of a
// less one electron when a is v itself.
func (a *Atom) coreSum(v *orbital.Orbital, f func(c *orbital.Orbital) float64) float64 {
	sum := 0.0
	for _, c := range a.comp.Core.Orbitals().List() {
		w := c.Occupancy
		if c.Info == v.Info {
			w--
		}
		if w <= 0 {
			continue
		}
		sum += w * f(c)
	}
	return sum
}

func (a *Atom) smsOneBody(v *orbital.Orbital) float64 {
	inverseMass := a.comp.Core.Config().Nucleus.InverseMass
	if inverseMass == 0 {
		return 0
	}
	return -inverseMass * a.coreSum(v, func(c *orbital.Orbital) float64 {
		p := orbital.Momentum(v, c)
		return p * p
	})
}

func (a *Atom) volumeOneBody(v *orbital.Orbital) float64 {
	r2 := a.comp.Core.NuclearMeanSquareRadius()
	if r2 == 0 {
		return 0
	}
	return r2 / a.cfg.Z * a.coreSum(v, func(c *orbital.Orbital) float64 {
		x := orbital.Overlap(v, c)
		return a.comp.Core.FieldShiftFactor(c.Info, c.Zeff) * x * x
	})
}

func (a *Atom) alphaOneBody(v *orbital.Orbital) float64 {
	variation := a.comp.Core.Config().AlphaSquaredVariation
	if variation == 0 {
		return 0
	}
	return variation / a.cfg.Z * a.coreSum(v, func(c *orbital.Orbital) float64 {
		x := orbital.Overlap(v, c)
		return a.comp.Core.AlphaSensitivity(c.Info, c.Zeff) * x * x
	})
}

// OpenShellEnergy builds the CI sector (twoJ, config) on the current
// valence basis. With sizeOnly it returns the dimension without
// diagonalising and leaves the stage unchanged; otherwise the lowest
// levels are stored and the dimension returned.
func (a *Atom) OpenShellEnergy(twoJ int, config orbital.Configuration, sizeOnly bool) (int, error) {
	const op = "OpenShellEnergy"
	if err := a.require(op, StageBasisBuilt, StageCISolved, StageOpenShellCorrected); err != nil {
		return 0, err
	}
	valence := a.comp.Excited.Valence()
	space, err := a.comp.CI.Space(config, twoJ, valence.Infos())
	if err != nil {
		return 0, fmt.Errorf("atom: sector 2J=%d %s: %w", twoJ, config.Label(), err)
	}
	if sizeOnly {
		a.logger.Info("ci size", "two_j", twoJ, "config", config.Label(), "dimension", space.Dimension())
		return space.Dimension(), nil
	}

	energies := make(map[orbital.Info]float64, len(valence))
	for info := range valence {
		e := a.energies[info]
		if a.cfg.IncludeMBPT {
			s, err := a.GetSigma(info)
			if err != nil {
				return 0, err
			}
			e += s
		}
		energies[info] = e
	}

	sol, err := a.comp.CI.Solve(space, valence, energies)
	if err != nil {
		return 0, fmt.Errorf("atom: sector 2J=%d %s: %w", twoJ, config.Label(), err)
	}
	key := SectorKey{TwoJ: twoJ, Config: config.Label()}
	a.sectors[key] = &Sector{
		TwoJ:        twoJ,
		Config:      key.Config,
		Dimension:   space.Dimension(),
		Levels:      sol.Levels,
		Corrections: make(map[Correction][]float64),
		solution:    sol,
	}
	a.stage = StageCISolved
	if a.DebugOptions().CI {
		a.logger.Debug("ci levels", "two_j", twoJ, "config", key.Config, "energies", sol.Energies())
	}
	a.logger.Info("ci solved", "two_j", twoJ, "config", key.Config, "dimension", space.Dimension(), "num_levels", len(sol.Levels))
	return space.Dimension(), nil
}

// DoOpenShellSMS applies the full (V2) specific mass shift to a sector.
func (a *Atom) DoOpenShellSMS(twoJ int, config orbital.Configuration) error {
	return a.openShellSMS("DoOpenShellSMS", twoJ, config, SMSV2)
}

// SMS_V0 applies the one-body diagonal specific mass shift.
func (a *Atom) SMS_V0(twoJ int, config orbital.Configuration) error {
	return a.openShellSMS("SMS_V0", twoJ, config, SMSV0)
}

// SMS_V1 adds the two-body valence term to V0.
func (a *Atom) SMS_V1(twoJ int, config orbital.Configuration) error {
	return a.openShellSMS("SMS_V1", twoJ, config, SMSV1)
}

// SMS_V2 is V1 with the one-body term relaxed by Σ.
func (a *Atom) SMS_V2(twoJ int, config orbital.Configuration) error {
	return a.openShellSMS("SMS_V2", twoJ, config, SMSV2)
}

// ApplySMS dispatches to the operator named by op.
func (a *Atom) ApplySMS(op SMSOperator, twoJ int, config orbital.Configuration) error {
	switch op {
	case SMSV0:
		return a.SMS_V0(twoJ, config)
	case SMSV1:
		return a.SMS_V1(twoJ, config)
	default:
		return a.SMS_V2(twoJ, config)
	}
}

// DoOpenShellVolumeShift applies the field-shift relaxation to a sector.
func (a *Atom) DoOpenShellVolumeShift(twoJ int, config orbital.Configuration) error {
	return a.openShell("DoOpenShellVolumeShift", twoJ, config, CorrectionVolumeShift, func(sec *Sector, k int) (float64, error) {
		return a.oneBodyLevel(sec, k, a.volumeOneBody, a.cfg.IncludeMBPT)
	})
}

// DoOpenShellAlphaVar applies the α² variation relaxation to a sector.
func (a *Atom) DoOpenShellAlphaVar(twoJ int, config orbital.Configuration) error {
	return a.openShell("DoOpenShellAlphaVar", twoJ, config, CorrectionAlphaVar, func(sec *Sector, k int) (float64, error) {
		return a.oneBodyLevel(sec, k, a.alphaOneBody, a.cfg.IncludeMBPT)
	})
}

func (a *Atom) openShellSMS(op string, twoJ int, config orbital.Configuration, operator SMSOperator) error {
	err := a.openShell(op, twoJ, config, CorrectionSMS, func(sec *Sector, k int) (float64, error) {
		d, err := a.oneBodyLevel(sec, k, a.smsOneBody, operator == SMSV2)
		if err != nil || operator == SMSV0 {
			return d, err
		}
		return d + a.smsTwoBody(sec.solution, k), nil
	})
	if err != nil {
		return err
	}
	a.sectors[SectorKey{TwoJ: twoJ, Config: config.Label()}].SMSOperator = operator
	return nil
}

func (a *Atom) openShell(op string, twoJ int, config orbital.Configuration, kind Correction, level func(*Sector, int) (float64, error)) error {
	if err := a.require(op, StageCISolved, StageOpenShellCorrected); err != nil {
		return err
	}
	sec, ok := a.sectors[SectorKey{TwoJ: twoJ, Config: config.Label()}]
	if !ok {
		return fmt.Errorf("%w: 2J=%d %s", ErrNoSector, twoJ, config.Label())
	}
	deltas := make([]float64, len(sec.Levels))
	for k := range sec.Levels {
		d, err := level(sec, k)
		if err != nil {
			return fmt.Errorf("atom: %s: %w", op, err)
		}
		deltas[k] = d
	}
	sec.Corrections[kind] = deltas
	a.stage = StageOpenShellCorrected
	a.logger.Info("open-shell correction applied", "correction", string(kind), "two_j", twoJ, "config", sec.Config)
	return nil
}

// oneBodyLevel sums a single-particle shift over the populations of level k.
func (a *Atom) oneBodyLevel(sec *Sector, k int, oneBody func(*orbital.Orbital) float64, includeMBPT bool) (float64, error) {
	pops := sec.solution.Populations(k)
	infos := make([]orbital.Info, 0, len(pops))
	for info := range pops {
		infos = append(infos, info)
	}
	slices.SortFunc(infos, orbital.Info.Compare)

	sum := 0.0
	for _, info := range infos {
		o := a.orbital(info)
		if o == nil {
			continue
		}
		d := oneBody(o)
		if includeMBPT {
			var err error
			if d, err = a.relax(info, d); err != nil {
				return 0, err
			}
		}
		sum += pops[info] * d
	}
	return sum, nil
}

// smsTwoBody returns -M⁻¹ <Σ_{i<j} p_i·p_j> over valence pairs in level k.
func (a *Atom) smsTwoBody(sol *ci.Solution, k int) float64 {
	inverseMass := a.comp.Core.Config().Nucleus.InverseMass
	if inverseMass == 0 {
		return 0
	}
	return -inverseMass * sol.Expect(k, func(det ci.Determinant) float64 {
		sum := 0.0
		for i, ei := range det {
			oi := a.orbital(ei.Info)
			for _, ej := range det[i+1:] {
				p := orbital.Momentum(oi, a.orbital(ej.Info))
				sum += p * p
			}
		}
		return sum
	})
}
