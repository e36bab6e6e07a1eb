package hf

import (
	"math"

	"github.com/wanjj/AMBiT/internal/lattice"
)

// Physical constants in atomic units.
const (
	// Alpha0 is the fine-structure constant at its laboratory value.
	Alpha0 = 1 / 137.035999084

	// FermiToBohr converts femtometres to bohr.
	FermiToBohr = 1.8897261246e-5

	// DefaultNuclearThickness is the 90%-10% skin thickness t in fm.
	DefaultNuclearThickness = 2.3
)

// Nucleus describes the nuclear charge distribution and mass.
type Nucleus struct {
	Z float64

	// InverseMass is m_e/M; zero means an infinitely heavy nucleus.
	InverseMass float64

	// Radius is the Fermi half-density radius c and Thickness the skin
	// thickness t, both in fm. Radius zero means a point nucleus.
	Radius    float64
	Thickness float64
}

// MassScale returns the reduced-mass factor μ/m_e = 1/(1 + m_e/M).
func (n Nucleus) MassScale() float64 {
	return 1 / (1 + n.InverseMass)
}

// MeanSquareRadius returns <r²> of the Fermi distribution
// ρ(r) = 1/(1 + exp((r-c)/a)), a = t/(4 ln 3), in bohr². Point nuclei
// return zero.
func (n Nucleus) MeanSquareRadius(lat *lattice.Lattice) float64 {
	if n.Radius <= 0 {
		return 0
	}
	thickness := n.Thickness
	if thickness <= 0 {
		thickness = DefaultNuclearThickness
	}
	c := n.Radius * FermiToBohr
	a := thickness * FermiToBohr / (4 * math.Log(3))

	rho := func(r float64) float64 { return 1 / (1 + math.Exp((r-c)/a)) }
	rmax := c + 30*a
	num := lat.IntegrateTo(func(r float64) float64 { return rho(r) * r * r * r * r }, rmax)
	den := lat.IntegrateTo(func(r float64) float64 { return rho(r) * r * r }, rmax)
	if den == 0 {
		return 0
	}
	return num / den
}
