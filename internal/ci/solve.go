package ci

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/wanjj/AMBiT/internal/orbital"
)

// DefaultNumSolutions is the number of levels kept per sector.
const DefaultNumSolutions = 6

// Level is one eigenstate of a sector.
type Level struct {
	Energy float64 `json:"energy"`

	// Leading is the label of the configuration with the largest weight.
	Leading string `json:"leading"`

	// Weights maps configuration labels to their summed squared
	// coefficients.
	Weights map[string]float64 `json:"weights"`
}

// Solution holds the lowest levels of a diagonalised sector.
type Solution struct {
	Space  *Space
	Levels []Level

	vectors *mat.Dense
}

// Solve diagonalises h and keeps the lowest numSolutions levels in
// ascending order.
func Solve(h *Hamiltonian, numSolutions int) (*Solution, error) {
	if numSolutions <= 0 {
		numSolutions = DefaultNumSolutions
	}
	space := h.space
	n := space.Dimension()

	var es mat.EigenSym
	if !es.Factorize(h.Matrix(), true) {
		return nil, fmt.Errorf("ci: diagonalisation failed for dimension %d", n)
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	keep := min(numSolutions, n)
	sol := &Solution{Space: space, Levels: make([]Level, keep)}
	sol.vectors = mat.DenseCopyOf(vectors.Slice(0, n, 0, keep))

	for k := range keep {
		weights := make(map[string]float64)
		for i := range n {
			c := sol.vectors.At(i, k)
			weights[space.Configurations[space.configOf[i]].Label()] += c * c
		}
		leading, best := "", -1.0
		for _, config := range space.Configurations {
			label := config.Label()
			if w := weights[label]; w > best {
				leading, best = label, w
			}
		}
		sol.Levels[k] = Level{Energy: values[k], Leading: leading, Weights: weights}
	}
	return sol, nil
}

// Energies returns the level energies in ascending order.
func (s *Solution) Energies() []float64 {
	out := make([]float64, len(s.Levels))
	for i, l := range s.Levels {
		out[i] = l.Energy
	}
	return out
}

// Expect returns the expectation value of a determinant-diagonal operator
// in level k.
func (s *Solution) Expect(k int, op func(Determinant) float64) float64 {
	sum := 0.0
	for i, det := range s.Space.Determinants {
		c := s.vectors.At(i, k)
		if c == 0 {
			continue
		}
		sum += c * c * op(det)
	}
	return sum
}

// Populations returns the mean number of electrons in each state for
// level k.
func (s *Solution) Populations(k int) map[orbital.Info]float64 {
	out := make(map[orbital.Info]float64)
	for i, det := range s.Space.Determinants {
		c := s.vectors.At(i, k)
		for _, e := range det {
			out[e.Info] += c * c
		}
	}
	return out
}
