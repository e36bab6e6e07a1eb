// Package mbpt computes second-order many-body corrections to
// single-particle energies.
//
// The self-energy of a valence state v is the core-polarisation sum
//
//	Σ_v = -Σ_a Σ_m q_a R(v,a,m)² / (ε_m - ε_a + δ)
//
// over core states a with occupancy q_a and excited states m, where
// R(v,a,m) = λ·Overlap(v,a)·Overlap(a,m)/√(r_v r_m) is the model Coulomb
// coupling, λ the coulomb scale and δ the denominator shift. Terms whose
// denominator is not positive are intruders and are skipped.
package mbpt

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/wanjj/AMBiT/internal/hf"
	"github.com/wanjj/AMBiT/internal/orbital"
)

// DefaultCoulombScale is λ when Config leaves it unset.
const DefaultCoulombScale = 0.1

// ErrUnknownState is returned for a state in neither the core nor the basis.
var ErrUnknownState = errors.New("mbpt: state not in core or basis")

// Config controls the perturbation sum.
type Config struct {
	// Delta shifts every energy denominator.
	Delta float64

	// CoulombScale is the coupling λ.
	CoulombScale float64
}

// States provides the orbitals the sum runs over.
type States interface {
	Orbitals() orbital.Set
}

// Calculator evaluates Σ for single states. It holds no cache: callers
// that need memoisation keep their own.
type Calculator struct {
	core    States
	excited States
	cfg     Config
	debug   *hf.Debug
	logger  *slog.Logger
}

// New returns a calculator summing over core and excited.
func New(core, excited States, cfg Config, debug *hf.Debug, logger *slog.Logger) *Calculator {
	if cfg.CoulombScale == 0 {
		cfg.CoulombScale = DefaultCoulombScale
	}
	if debug == nil {
		debug = &hf.Debug{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{core: core, excited: excited, cfg: cfg, debug: debug, logger: logger}
}

// Config returns the calculator settings.
func (c *Calculator) Config() Config { return c.cfg }

// Sigma returns Σ_v for info.
func (c *Calculator) Sigma(info orbital.Info) (float64, error) {
	core := c.core.Orbitals()
	excited := c.excited.Orbitals()

	v := excited.Get(info)
	if v == nil {
		v = core.Get(info)
	}
	if v == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownState, info.Name())
	}

	sigma := 0.0
	intruders := 0
	for _, a := range core.List() {
		weight := a.Occupancy
		if a.Info == info {
			weight = math.Max(weight-1, 0)
		}
		if weight == 0 {
			continue
		}
		va := c.cfg.CoulombScale * orbital.Overlap(v, a)
		for _, m := range excited.List() {
			if m.Info == info || core.Get(m.Info) != nil {
				continue
			}
			denom := m.Energy - a.Energy + c.cfg.Delta
			if denom <= 0 {
				intruders++
				continue
			}
			r := va * orbital.Overlap(a, m) / math.Sqrt(v.MeanRadius*m.MeanRadius)
			sigma -= weight * r * r / denom
		}
	}

	if c.debug.MBPT {
		c.logger.Debug("sigma computed", "state", info.Name(), "sigma", sigma, "intruders", intruders)
	}
	return sigma, nil
}
