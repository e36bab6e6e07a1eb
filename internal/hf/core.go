package hf

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/wanjj/AMBiT/internal/lattice"
	"github.com/wanjj/AMBiT/internal/orbital"
)

// SCF defaults.
const (
	DefaultMaxIterations = 200
	DefaultTolerance     = 1e-10
	DefaultMixing        = 0.5
)

// Config holds everything needed to build a core.
type Config struct {
	Nucleus Nucleus

	// Charge is the degree of ionisation of the atom.
	Charge int

	// Configuration is the core occupancy, e.g. 1s2 2s2 2p6.
	Configuration orbital.Configuration

	// AlphaSquaredVariation is x in α² = α0²(1 + x).
	AlphaSquaredVariation float64

	MaxIterations int
	Tolerance     float64
	Mixing        float64
}

func (c *Config) applyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.Mixing <= 0 || c.Mixing > 1 {
		c.Mixing = DefaultMixing
	}
}

// Core is the self-consistent screened-hydrogenic core. Each core state has
// an effective charge Zeff set by the screening of every other core
// electron; Update iterates Zeff to self-consistency.
//
// Thread-safety: a Core is owned by one atom and is not safe for concurrent
// mutation. Read-only methods may be called concurrently once Update has
// returned.
type Core struct {
	lattice *lattice.Lattice
	cfg     Config
	logger  *slog.Logger
	debug   Debug

	alpha2     float64
	nuclearR2  float64
	orbitals   orbital.Set
	converged  bool
	iterations int
}

// NewCore validates cfg and prepares an unconverged core.
func NewCore(lat *lattice.Lattice, cfg Config, logger *slog.Logger) (*Core, error) {
	if lat == nil {
		return nil, fmt.Errorf("hf: nil lattice")
	}
	if cfg.Nucleus.Z < 1 {
		return nil, fmt.Errorf("hf: nuclear charge must be >= 1, got %g", cfg.Nucleus.Z)
	}
	if len(cfg.Configuration) == 0 {
		return nil, fmt.Errorf("hf: empty core configuration")
	}
	if n := cfg.Configuration.NumElectrons(); float64(n) > cfg.Nucleus.Z {
		return nil, fmt.Errorf("hf: %d core electrons exceed Z=%g", n, cfg.Nucleus.Z)
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	return &Core{
		lattice:   lat,
		cfg:       cfg,
		logger:    logger,
		alpha2:    Alpha0 * Alpha0 * (1 + cfg.AlphaSquaredVariation),
		nuclearR2: cfg.Nucleus.MeanSquareRadius(lat),
		orbitals:  make(orbital.Set),
	}, nil
}

// Update iterates the core to self-consistency. Convergence is reached when
// no core energy changes by more than Tolerance between iterations; the
// energies are otherwise left at their last iterate and ErrNotConverged is
// returned.
func (c *Core) Update() error {
	occupancy := c.cfg.Configuration.RelativisticOccupancy()
	c.orbitals = make(orbital.Set, len(occupancy))
	for info, occ := range occupancy {
		c.orbitals.Add(c.makeOrbital(info, c.cfg.Nucleus.Z, occ))
	}
	infos := c.orbitals.Infos()
	c.converged = false

	for iter := 1; iter <= c.cfg.MaxIterations; iter++ {
		targets := make([]float64, len(infos))
		for i, info := range infos {
			targets[i] = c.screenedCharge(c.orbitals[info].MeanRadius, info)
		}

		delta := 0.0
		for i, info := range infos {
			o := c.orbitals[info]
			zeff := (1-c.cfg.Mixing)*o.Zeff + c.cfg.Mixing*targets[i]
			next := c.makeOrbital(info, zeff, o.Occupancy)
			delta = math.Max(delta, math.Abs(next.Energy-o.Energy))
			c.orbitals[info] = next
		}
		c.iterations = iter

		if c.debug.HF {
			c.logger.Debug("hf iteration", "iteration", iter, "delta", delta)
		}
		if delta < c.cfg.Tolerance {
			c.converged = true
			c.logger.Info("hf converged", "iterations", iter, "num_orbitals", len(infos))
			return nil
		}
	}
	return fmt.Errorf("%w after %d iterations", ErrNotConverged, c.cfg.MaxIterations)
}

// screenedCharge returns the charge seen at radius r by an electron in
// state self: Z minus the screening of all other core electrons.
func (c *Core) screenedCharge(r float64, self orbital.Info) float64 {
	z := c.cfg.Nucleus.Z
	for _, o := range c.orbitals.List() {
		info := o.Info
		weight := o.Occupancy
		if info == self {
			weight = math.Max(weight-1, 0)
		}
		z -= weight * screening(r, o.MeanRadius)
	}
	return z
}

// screening is the fraction of an electron at mean radius rb that lies
// inside ra in the model: 1/(1 + (rb/ra)³).
func screening(ra, rb float64) float64 {
	x := rb / ra
	return 1 / (1 + x*x*x)
}

// hydrogenicMeanRadius returns <r> = (3n² - l(l+1)) / (2 Zeff).
func hydrogenicMeanRadius(info orbital.Info, zeff float64) float64 {
	n := float64(info.PQN)
	l := float64(info.L())
	return (3*n*n - l*(l+1)) / (2 * zeff)
}

func (c *Core) makeOrbital(info orbital.Info, zeff, occupancy float64) *orbital.Orbital {
	return &orbital.Orbital{
		Info:       info,
		Energy:     c.Energy(info, zeff),
		Occupancy:  occupancy,
		Zeff:       zeff,
		MeanRadius: hydrogenicMeanRadius(info, zeff),
	}
}

// Valence returns the orbital for a state outside the closed core, with its
// effective charge iterated to self-consistency in the frozen core. A state
// in a partially filled core shell sees the other electrons of that shell.
func (c *Core) Valence(info orbital.Info) (*orbital.Orbital, error) {
	if o := c.orbitals.Get(info); o != nil && o.Occupancy >= float64(info.Degeneracy()) {
		return nil, fmt.Errorf("%w: %s", ErrCoreOccupied, info.Name())
	}

	zeff := c.cfg.Nucleus.Z - float64(c.cfg.Configuration.NumElectrons()) + 1
	for range 200 {
		next := c.screenedCharge(hydrogenicMeanRadius(info, zeff), info)
		next = 0.5*zeff + 0.5*next
		if math.Abs(next-zeff) < 1e-13 {
			zeff = next
			break
		}
		zeff = next
	}
	return c.makeOrbital(info, zeff, 0), nil
}

// Energy returns the model energy of info at effective charge zeff:
//
//	ε = μ·(-Zeff²/2n²)·[1 + α²Zeff²/n²·(n/(j+½) - ¾)] + δε_FS
//
// where μ is the reduced-mass factor and δε_FS the finite nuclear size shift.
func (c *Core) Energy(info orbital.Info, zeff float64) float64 {
	n := float64(info.PQN)
	nonrel := -zeff * zeff / (2 * n * n)
	rel := c.alpha2 * zeff * zeff / (n * n) * (n/(info.J()+0.5) - 0.75)
	return c.cfg.Nucleus.MassScale()*nonrel*(1+rel) + c.FieldShiftFactor(info, zeff)*c.nuclearR2
}

// Correction returns Energy minus the bare non-relativistic level
// -Zeff²/2n²: the reduced-mass, fine-structure and field-shift terms.
func (c *Core) Correction(info orbital.Info, zeff float64) float64 {
	n := float64(info.PQN)
	return c.Energy(info, zeff) + zeff*zeff/(2*n*n)
}

// FieldShiftFactor returns ∂ε/∂<r²>. Only s and p½ states penetrate the
// nucleus; the p½ factor carries the relativistic suppression (αZeff)².
func (c *Core) FieldShiftFactor(info orbital.Info, zeff float64) float64 {
	n := float64(info.PQN)
	s := 2.0 / 3.0 * c.cfg.Nucleus.Z * zeff * zeff * zeff / (n * n * n)
	switch info.Kappa {
	case -1:
		return s
	case 1:
		return s * c.alpha2 * zeff * zeff * (n*n - 1) / (4 * n * n)
	default:
		return 0
	}
}

// AlphaSensitivity returns q = ∂ε/∂x for α² = α0²(1 + x).
func (c *Core) AlphaSensitivity(info orbital.Info, zeff float64) float64 {
	n := float64(info.PQN)
	nonrel := -zeff * zeff / (2 * n * n)
	return c.cfg.Nucleus.MassScale() * nonrel * Alpha0 * Alpha0 * zeff * zeff / (n * n) * (n/(info.J()+0.5) - 0.75)
}

// Potential returns the local model potential at r: the nuclear attraction
// plus the Hartree repulsion of every core electron, each treated as an
// exponential cloud with the electron's mean radius.
func (c *Core) Potential(r float64) float64 {
	v := -c.cfg.Nucleus.Z / r
	for _, o := range c.orbitals.List() {
		zeta := 1.5 / o.MeanRadius
		v += o.Occupancy * (1/r - math.Exp(-2*zeta*r)*(zeta+1/r))
	}
	return v
}

// Ionised returns a new converged core with one electron of info's shell
// removed.
func (c *Core) Ionised(info orbital.Info) (*Core, error) {
	shell := info.NonRel()
	occ := c.cfg.Configuration.Occupancy(shell)
	if occ == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotInCore, info.Name())
	}

	config := make(orbital.Configuration, 0, len(c.cfg.Configuration))
	for _, sh := range c.cfg.Configuration {
		if sh.NonRelInfo == shell {
			sh.Occupancy--
			if sh.Occupancy == 0 {
				continue
			}
		}
		config = append(config, sh)
	}
	if len(config) == 0 {
		return nil, fmt.Errorf("hf: removing %s leaves an empty core", info.Name())
	}

	cfg := c.cfg
	cfg.Configuration = config
	cfg.Charge++
	ionised, err := NewCore(c.lattice, cfg, c.logger.With("ionised", info.Name()))
	if err != nil {
		return nil, err
	}
	ionised.debug = c.debug
	if err := ionised.Update(); err != nil {
		return nil, fmt.Errorf("ionised core: %w", err)
	}
	return ionised, nil
}

// Restore installs previously stored orbitals and marks the core converged
// without iterating.
func (c *Core) Restore(orbitals orbital.Set) {
	c.orbitals = orbitals.Clone()
	c.converged = true
	c.iterations = 0
}

// Orbitals returns the core orbitals. The set must not be modified.
func (c *Core) Orbitals() orbital.Set { return c.orbitals }

// Converged reports whether the last Update (or Restore) succeeded.
func (c *Core) Converged() bool { return c.converged }

// Iterations returns the number of iterations of the last Update.
func (c *Core) Iterations() int { return c.iterations }

// Config returns the configuration the core was built with.
func (c *Core) Config() Config { return c.cfg }

// Lattice returns the radial grid.
func (c *Core) Lattice() *lattice.Lattice { return c.lattice }

// NuclearMeanSquareRadius returns <r²> of the nucleus in bohr².
func (c *Core) NuclearMeanSquareRadius() float64 { return c.nuclearR2 }

// Debug returns the debug options, shared by every stage of the atom.
func (c *Core) Debug() *Debug { return &c.debug }
