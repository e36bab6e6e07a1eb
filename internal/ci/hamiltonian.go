package ci

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/wanjj/AMBiT/internal/orbital"
)

// DefaultCoulombScale is the configuration-mixing strength λ.
const DefaultCoulombScale = 0.05

// Hamiltonian is the model many-electron Hamiltonian over a Space.
//
// Diagonal elements are the sum of one-body energies plus the screened
// pair repulsion Coulomb(i,j), reduced by half the squared overlap for
// pairs with projections of equal sign. Determinants differing by one or
// two electrons are coupled with strength λ through the model radial
// integrals, with the usual maximum-coincidence phase.
type Hamiltonian struct {
	space    *Space
	orbitals orbital.Set
	energies map[orbital.Info]float64
	scale    float64
}

// NewHamiltonian checks that every state of space has an orbital and an
// energy.
func NewHamiltonian(space *Space, orbitals orbital.Set, energies map[orbital.Info]float64, scale float64) (*Hamiltonian, error) {
	for _, det := range space.Determinants {
		for _, e := range det {
			if orbitals.Get(e.Info) == nil {
				return nil, fmt.Errorf("ci: no orbital for %s", e.Info.Name())
			}
			if _, ok := energies[e.Info]; !ok {
				return nil, fmt.Errorf("ci: no energy for %s", e.Info.Name())
			}
		}
	}
	if scale == 0 {
		scale = DefaultCoulombScale
	}
	return &Hamiltonian{space: space, orbitals: orbitals, energies: energies, scale: scale}, nil
}

// Element returns <a|H|b>.
func (h *Hamiltonian) Element(a, b Determinant) float64 {
	holes, particles, phase := difference(a, b)
	switch len(holes) {
	case 0:
		return h.diagonal(a)
	case 1:
		hole, particle := h.orbital(holes[0]), h.orbital(particles[0])
		sum := 0.0
		for _, e := range a {
			if e == holes[0] {
				continue
			}
			spectator := h.orbital(e)
			sum += math.Sqrt(orbital.Coulomb(hole, spectator) * orbital.Coulomb(particle, spectator))
		}
		return phase * h.scale * orbital.Overlap(hole, particle) * sum
	case 2:
		ha, hb := h.orbital(holes[0]), h.orbital(holes[1])
		pc, pd := h.orbital(particles[0]), h.orbital(particles[1])
		direct := math.Sqrt(orbital.Coulomb(ha, pc) * orbital.Coulomb(hb, pd))
		exchange := math.Sqrt(orbital.Coulomb(ha, pd) * orbital.Coulomb(hb, pc))
		return phase * h.scale * (direct - exchange)
	default:
		return 0
	}
}

func (h *Hamiltonian) diagonal(d Determinant) float64 {
	e := 0.0
	for i, ei := range d {
		oi := h.orbital(ei)
		e += h.energies[ei.Info]
		for _, ej := range d[i+1:] {
			oj := h.orbital(ej)
			u := orbital.Coulomb(oi, oj)
			if ei.TwoM*ej.TwoM > 0 {
				x := orbital.Overlap(oi, oj)
				u *= 1 - 0.5*x*x
			}
			e += u
		}
	}
	return e
}

func (h *Hamiltonian) orbital(e Electron) *orbital.Orbital {
	return h.orbitals.Get(e.Info)
}

// Matrix returns the full symmetric matrix.
func (h *Hamiltonian) Matrix() *mat.SymDense {
	dets := h.space.Determinants
	n := len(dets)
	m := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			m.SetSym(i, j, h.Element(dets[i], dets[j]))
		}
	}
	return m
}

// difference returns the electrons of a absent from b (holes) and of b
// absent from a (particles), both in determinant order, and the phase
// (-1)^(Σ positions) that brings the two into maximum coincidence. More
// than two differences return three holes so callers can stop early.
func difference(a, b Determinant) (holes, particles []Electron, phase float64) {
	pos := 0
	for i, e := range a {
		if _, found := slices.BinarySearchFunc(b, e, compareElectrons); !found {
			holes = append(holes, e)
			pos += i
			if len(holes) > 2 {
				return holes, nil, 0
			}
		}
	}
	for i, e := range b {
		if _, found := slices.BinarySearchFunc(a, e, compareElectrons); !found {
			particles = append(particles, e)
			pos += i
		}
	}
	phase = 1
	if pos%2 != 0 {
		phase = -1
	}
	return holes, particles, phase
}
