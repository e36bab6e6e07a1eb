package basis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

// splines is a set of B-splines of order k on a knot sequence clamped at 0
// and rmax, with breakpoints spaced exponentially so that the density is
// highest near the nucleus.
type splines struct {
	k      int
	knots  []float64
	breaks []float64
}

func newSplines(n, k int, start, rmax float64) (*splines, error) {
	if k < 2 {
		return nil, fmt.Errorf("basis: spline order must be >= 2, got %d", k)
	}
	if n < k || n < 3 {
		return nil, fmt.Errorf("basis: need N >= max(K, 3) splines, got N=%d K=%d", n, k)
	}
	if start <= 0 || rmax <= start {
		return nil, fmt.Errorf("basis: need 0 < start < rmax, got start=%g rmax=%g", start, rmax)
	}

	m := n - k + 1
	gamma := math.Log(1+rmax/start) / float64(m)
	breaks := make([]float64, m+1)
	for i := range breaks {
		breaks[i] = start * (math.Exp(float64(i)*gamma) - 1)
	}
	breaks[m] = rmax

	knots := make([]float64, 0, n+k)
	for range k - 1 {
		knots = append(knots, 0)
	}
	knots = append(knots, breaks...)
	for range k - 1 {
		knots = append(knots, rmax)
	}
	return &splines{k: k, knots: knots, breaks: breaks}, nil
}

// size returns the number of splines.
func (s *splines) size() int { return len(s.knots) - s.k }

// eval fills b and db with the values and first derivatives of every spline
// at x using the Cox-de Boor recursion.
func (s *splines) eval(x float64, b, db []float64) {
	nk := len(s.knots)
	prev := make([]float64, nk-1)
	for i := range prev {
		if s.knots[i] <= x && x < s.knots[i+1] {
			prev[i] = 1
		}
	}

	var lower []float64
	for order := 2; order <= s.k; order++ {
		cur := make([]float64, nk-order)
		for i := range cur {
			if d := s.knots[i+order-1] - s.knots[i]; d > 0 {
				cur[i] += (x - s.knots[i]) / d * prev[i]
			}
			if d := s.knots[i+order] - s.knots[i+1]; d > 0 {
				cur[i] += (s.knots[i+order] - x) / d * prev[i+1]
			}
		}
		lower, prev = prev, cur
	}

	n := s.size()
	copy(b, prev[:n])
	for i := range n {
		v := 0.0
		if d := s.knots[i+s.k-1] - s.knots[i]; d > 0 {
			v += lower[i] / d
		}
		if d := s.knots[i+s.k] - s.knots[i+1]; d > 0 {
			v -= lower[i+1] / d
		}
		db[i] = float64(s.k-1) * v
	}
}

// eigenstate is one solution of the radial equation in the spline space.
type eigenstate struct {
	energy     float64
	meanRadius float64
}

// solve diagonalises the non-relativistic radial Hamiltonian
//
//	H = -½ d²/dr² + l(l+1)/2r² + V(r)
//
// in the spline space with the first and last splines removed, so every
// solution vanishes at 0 and rmax. Solutions are returned in ascending
// energy.
func (s *splines) solve(l int, potential func(r float64) float64) ([]eigenstate, error) {
	full := s.size()
	n := full - 2
	h := mat.NewSymDense(n, nil)
	overlap := mat.NewSymDense(n, nil)
	radius := mat.NewSymDense(n, nil)

	nq := s.k + 2
	xs := make([]float64, nq)
	ws := make([]float64, nq)
	b := make([]float64, full)
	db := make([]float64, full)
	centrifugal := float64(l*(l+1)) / 2

	for m := 0; m+1 < len(s.breaks); m++ {
		quad.Legendre{}.FixedLocations(xs, ws, s.breaks[m], s.breaks[m+1])
		for q, x := range xs {
			s.eval(x, b, db)
			w := ws[q]
			v := centrifugal/(x*x) + potential(x)
			for i := range n {
				bi, dbi := b[i+1], db[i+1]
				if bi == 0 && dbi == 0 {
					continue
				}
				for j := i; j < n; j++ {
					bj, dbj := b[j+1], db[j+1]
					overlap.SetSym(i, j, overlap.At(i, j)+w*bi*bj)
					radius.SetSym(i, j, radius.At(i, j)+w*bi*bj*x)
					h.SetSym(i, j, h.At(i, j)+w*(0.5*dbi*dbj+bi*bj*v))
				}
			}
		}
	}

	// Symmetric orthogonalisation: X = S^(-1/2), A = X H X.
	var es mat.EigenSym
	if !es.Factorize(overlap, true) {
		return nil, fmt.Errorf("basis: overlap factorisation failed")
	}
	svals := es.Values(nil)
	for _, v := range svals {
		if v <= 0 {
			return nil, fmt.Errorf("basis: overlap matrix is not positive definite")
		}
	}
	var u mat.Dense
	es.VectorsTo(&u)
	var scaled mat.Dense
	scaled.Apply(func(_, j int, v float64) float64 { return v / math.Sqrt(svals[j]) }, &u)
	var x mat.Dense
	x.Mul(&scaled, u.T())

	var a mat.Dense
	a.Mul(&x, h)
	a.Mul(&a, &x)
	sym := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	if !es.Factorize(sym, true) {
		return nil, fmt.Errorf("basis: hamiltonian factorisation failed")
	}
	energies := es.Values(nil)
	var y, coeffs mat.Dense
	es.VectorsTo(&y)
	coeffs.Mul(&x, &y)

	states := make([]eigenstate, n)
	for i := range n {
		c := coeffs.ColView(i)
		states[i] = eigenstate{energy: energies[i], meanRadius: mat.Inner(c, radius, c)}
	}
	return states, nil
}
