// Package basis builds the excited single-particle states used by MBPT and
// CI on top of a converged core.
//
// Four strategies are available: the HF basis (valence states of the
// frozen core plus continuum pseudo-states), the R basis (states confined
// to a cavity), the B-spline basis (the spectrum of the core potential in a
// spline space) and a custom list. The last three may be generated from an
// ionised core.
package basis

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/wanjj/AMBiT/internal/hf"
	"github.com/wanjj/AMBiT/internal/lattice"
	"github.com/wanjj/AMBiT/internal/orbital"
)

// Strategy names a basis construction method.
type Strategy string

const (
	StrategyNone    Strategy = ""
	StrategyHF      Strategy = "HF"
	StrategyR       Strategy = "R"
	StrategyBSpline Strategy = "BSpline"
	StrategyCustom  Strategy = "Custom"
)

// ParseStrategy validates a Basis/Type value.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyHF, StrategyR, StrategyBSpline, StrategyCustom:
		return st, nil
	}
	return StrategyNone, fmt.Errorf("basis: unknown type %q (want HF, R, BSpline or Custom)", s)
}

// Defaults for Config.
const (
	DefaultContinuumStates = 4
	DefaultRMax            = 30.0
	DefaultBSplineN        = 20
	DefaultBSplineK        = 7
	DefaultBSplineRMax     = 50.0
	DefaultKnotStart       = 0.05
)

// Config selects the states a basis contains.
type Config struct {
	// Limits maps each partial wave l to its highest principal quantum
	// number, as parsed from Basis/ValenceBasis.
	Limits map[int]int

	ContinuumStates int
	RMax            float64

	BSplineN    int
	BSplineK    int
	BSplineRMax float64
	KnotStart   float64

	// Custom is the explicit state list for StrategyCustom.
	Custom []orbital.Info
}

func (c *Config) applyDefaults() {
	if c.ContinuumStates < 0 {
		c.ContinuumStates = 0
	}
	if c.RMax <= 0 {
		c.RMax = DefaultRMax
	}
	if c.BSplineN <= 0 {
		c.BSplineN = DefaultBSplineN
	}
	if c.BSplineK <= 0 {
		c.BSplineK = DefaultBSplineK
	}
	if c.BSplineRMax <= 0 {
		c.BSplineRMax = DefaultBSplineRMax
	}
	if c.KnotStart <= 0 {
		c.KnotStart = DefaultKnotStart
	}
}

// Core is what the basis needs from the self-consistent core.
type Core interface {
	Orbitals() orbital.Set
	Config() hf.Config
	Lattice() *lattice.Lattice
	Valence(info orbital.Info) (*orbital.Orbital, error)
	Potential(r float64) float64
	Correction(info orbital.Info, zeff float64) float64
	Ionised(info orbital.Info) (*hf.Core, error)
	Debug() *hf.Debug
}

// Excited holds the excited states built by one strategy. Every Create call
// replaces the previous contents.
type Excited struct {
	core     Core
	cfg      Config
	logger   *slog.Logger
	strategy Strategy
	orbitals orbital.Set
}

// New returns an empty basis over core.
func New(core Core, cfg Config, logger *slog.Logger) (*Excited, error) {
	if core == nil {
		return nil, fmt.Errorf("basis: nil core")
	}
	for l, n := range cfg.Limits {
		if l < 0 || n <= l {
			return nil, fmt.Errorf("basis: invalid limit n=%d for l=%d", n, l)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Excited{core: core, cfg: cfg, logger: logger, orbitals: make(orbital.Set)}, nil
}

// CreateHF fills the basis with the bound valence states of the frozen core
// up to the configured limits, plus ContinuumStates positive-energy
// pseudo-states per relativistic wave.
func (e *Excited) CreateHF() error {
	set, err := e.bound(e.core)
	if err != nil {
		return err
	}

	ionCharge := e.ionCharge(e.core)
	rmax := e.core.Lattice().RMax()
	for _, l := range e.waves() {
		for _, kappa := range orbital.Kappas(l) {
			for k := 1; k <= e.cfg.ContinuumStates; k++ {
				momentum := float64(k) * math.Pi / rmax
				set.Add(&orbital.Orbital{
					Info:       orbital.Info{PQN: e.cfg.Limits[l] + k, Kappa: kappa},
					Energy:     momentum * momentum / 2,
					Zeff:       ionCharge,
					MeanRadius: rmax / 2,
					Continuum:  true,
				})
			}
		}
	}
	e.install(StrategyHF, set)
	return nil
}

// CreateR fills the basis with the valence states confined to a cavity of
// radius RMax: each level is raised by the kinetic energy of a particle in
// a box with n-l antinodes.
func (e *Excited) CreateR(ionised *orbital.Info) error {
	core, err := e.parent(ionised)
	if err != nil {
		return err
	}
	set, err := e.bound(core)
	if err != nil {
		return err
	}
	for _, o := range set {
		momentum := float64(o.PQN-o.L()) * math.Pi / e.cfg.RMax
		o.Energy += momentum * momentum / 2
		o.MeanRadius = math.Min(o.MeanRadius, e.cfg.RMax/2)
	}
	e.install(StrategyR, set)
	return nil
}

// CreateBSpline fills the basis with the spectrum of the core potential in
// a B-spline space. The i-th solution of wave l is labelled n = l+1+i;
// solutions that coincide with closed core shells are dropped. Bound
// solutions take the reduced-mass, fine-structure and field-shift
// corrections at the charge reproducing their eigenvalue; states left at
// positive energy are flagged as continuum.
func (e *Excited) CreateBSpline(ionised *orbital.Info) error {
	core, err := e.parent(ionised)
	if err != nil {
		return err
	}
	sp, err := newSplines(e.cfg.BSplineN, e.cfg.BSplineK, e.cfg.KnotStart, e.cfg.BSplineRMax)
	if err != nil {
		return err
	}

	set := make(orbital.Set)
	closed := closedShells(core)
	for _, l := range e.waves() {
		states, err := sp.solve(l, core.Potential)
		if err != nil {
			return fmt.Errorf("basis: l=%d: %w", l, err)
		}
		for i, st := range states {
			n := l + 1 + i
			zeff := splineCharge(n, st.energy, core.Config().Nucleus.Z)
			for _, kappa := range orbital.Kappas(l) {
				info := orbital.Info{PQN: n, Kappa: kappa}
				if closed[info] {
					continue
				}
				energy := st.energy
				if zeff > 0 {
					energy += core.Correction(info, zeff)
				}
				set.Add(&orbital.Orbital{
					Info:       info,
					Energy:     energy,
					Zeff:       zeff,
					MeanRadius: st.meanRadius,
					Continuum:  energy > 0,
				})
			}
		}
		if core.Debug().Basis {
			e.logger.Debug("bspline wave solved", "l", l, "num_states", len(states), "lowest", states[0].energy)
		}
	}
	e.install(StrategyBSpline, set)
	return nil
}

// splineCharge returns the hydrogenic charge whose level n sits at energy,
// capped at the nuclear charge. Unbound states have none.
func splineCharge(n int, energy, z float64) float64 {
	if energy >= 0 {
		return 0
	}
	return math.Min(float64(n)*math.Sqrt(-2*energy), z)
}

// CreateCustom fills the basis with exactly the configured states.
func (e *Excited) CreateCustom(ionised *orbital.Info) error {
	if len(e.cfg.Custom) == 0 {
		return fmt.Errorf("basis: custom basis requested with no states")
	}
	core, err := e.parent(ionised)
	if err != nil {
		return err
	}
	set := make(orbital.Set, len(e.cfg.Custom))
	for _, info := range e.cfg.Custom {
		o, err := core.Valence(info)
		if err != nil {
			return fmt.Errorf("basis: custom state %s: %w", info.Name(), err)
		}
		set.Add(o)
	}
	e.install(StrategyCustom, set)
	return nil
}

// Orbitals returns every state in the basis. The set must not be modified.
func (e *Excited) Orbitals() orbital.Set { return e.orbitals }

// Strategy returns the strategy of the last Create or Restore.
func (e *Excited) Strategy() Strategy { return e.strategy }

// Valence returns the bound states available to CI: for the custom basis
// every listed state, otherwise the non-continuum states within the
// configured limits.
func (e *Excited) Valence() orbital.Set {
	out := make(orbital.Set)
	for info, o := range e.orbitals {
		if o.Continuum {
			continue
		}
		if e.strategy != StrategyCustom {
			limit, ok := e.cfg.Limits[info.L()]
			if !ok || info.PQN > limit {
				continue
			}
		}
		out[info] = o
	}
	return out
}

// Restore installs previously stored states.
func (e *Excited) Restore(strategy Strategy, orbitals orbital.Set) {
	e.install(strategy, orbitals.Clone())
}

// Clear empties the basis.
func (e *Excited) Clear() {
	e.strategy = StrategyNone
	e.orbitals = make(orbital.Set)
}

func (e *Excited) install(strategy Strategy, set orbital.Set) {
	e.strategy = strategy
	e.orbitals = set
	e.logger.Info("basis built", "type", string(strategy), "num_orbitals", len(set))
}

// parent returns the core used to generate a basis.
func (e *Excited) parent(ionised *orbital.Info) (Core, error) {
	if ionised == nil {
		return e.core, nil
	}
	ion, err := e.core.Ionised(*ionised)
	if err != nil {
		return nil, fmt.Errorf("basis: ionised core: %w", err)
	}
	return ion, nil
}

// bound returns the valence states of core up to the limits, skipping
// closed core shells.
func (e *Excited) bound(core Core) (orbital.Set, error) {
	set := make(orbital.Set)
	for _, l := range e.waves() {
		for _, kappa := range orbital.Kappas(l) {
			for n := l + 1; n <= e.cfg.Limits[l]; n++ {
				o, err := core.Valence(orbital.Info{PQN: n, Kappa: kappa})
				if errors.Is(err, hf.ErrCoreOccupied) {
					continue
				}
				if err != nil {
					return nil, err
				}
				set.Add(o)
			}
		}
	}
	return set, nil
}

func (e *Excited) waves() []int {
	ls := make([]int, 0, len(e.cfg.Limits))
	for l := range e.cfg.Limits {
		ls = append(ls, l)
	}
	slices.Sort(ls)
	return ls
}

func (e *Excited) ionCharge(core Core) float64 {
	cfg := core.Config()
	return math.Max(cfg.Nucleus.Z-float64(cfg.Configuration.NumElectrons()), 1)
}

func closedShells(core Core) map[orbital.Info]bool {
	closed := make(map[orbital.Info]bool)
	for info, o := range core.Orbitals() {
		if o.Occupancy >= float64(info.Degeneracy()) {
			closed[info] = true
		}
	}
	return closed
}
