package ci

import "github.com/wanjj/AMBiT/internal/orbital"

// Builder carries the CI settings of one calculation.
type Builder struct {
	SingleDouble bool
	NumSolutions int
	CoulombScale float64
}

// Space builds the determinant space of a sector.
func (b Builder) Space(leading orbital.Configuration, twoJ int, states []orbital.Info) (*Space, error) {
	return NewSpace(leading, twoJ, states, b.SingleDouble)
}

// Solve diagonalises the sector with the given one-body energies.
func (b Builder) Solve(space *Space, orbitals orbital.Set, energies map[orbital.Info]float64) (*Solution, error) {
	h, err := NewHamiltonian(space, orbitals, energies, b.CoulombScale)
	if err != nil {
		return nil, err
	}
	return Solve(h, b.NumSolutions)
}
