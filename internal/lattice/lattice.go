// Package lattice provides the exponential radial grid r_i = r0·exp(i·h)
// on which radial integrals are evaluated.
package lattice

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
)

// Defaults read by callers when the input omits the Lattice keys.
const (
	DefaultNumPoints  = 1000
	DefaultStartPoint = 1e-6
	DefaultH          = 0.02
)

// Lattice is an immutable exponential grid. Safe for concurrent use.
type Lattice struct {
	r  []float64
	h  float64
	r0 float64
}

// New builds a grid of numPoints points starting at startPoint with
// logarithmic step h.
func New(numPoints int, startPoint, h float64) (*Lattice, error) {
	switch {
	case numPoints < 3:
		return nil, fmt.Errorf("lattice needs at least 3 points, got %d", numPoints)
	case startPoint <= 0:
		return nil, fmt.Errorf("lattice start point must be positive, got %g", startPoint)
	case h <= 0:
		return nil, fmt.Errorf("lattice step must be positive, got %g", h)
	}
	r := make([]float64, numPoints)
	for i := range r {
		r[i] = startPoint * math.Exp(float64(i)*h)
	}
	return &Lattice{r: r, h: h, r0: startPoint}, nil
}

// Size returns the number of points.
func (l *Lattice) Size() int { return len(l.r) }

// R returns the radius of point i.
func (l *Lattice) R(i int) float64 { return l.r[i] }

// DR returns dr/di at point i.
func (l *Lattice) DR(i int) float64 { return l.r[i] * l.h }

// H returns the logarithmic step.
func (l *Lattice) H() float64 { return l.h }

// StartPoint returns r_0.
func (l *Lattice) StartPoint() float64 { return l.r0 }

// RMax returns the outermost radius.
func (l *Lattice) RMax() float64 { return l.r[len(l.r)-1] }

// Index returns the first point with R(i) >= r, or Size() if r is beyond
// the grid.
func (l *Lattice) Index(r float64) int {
	return sort.SearchFloat64s(l.r, r)
}

// Integrate returns ∫ f(r) dr over the whole grid.
func (l *Lattice) Integrate(f func(r float64) float64) float64 {
	return l.IntegrateTo(f, l.RMax())
}

// IntegrateTo returns ∫ f(r) dr from the first point to the first point at
// or beyond rmax.
func (l *Lattice) IntegrateTo(f func(r float64) float64, rmax float64) float64 {
	n := min(l.Index(rmax)+1, len(l.r))
	if n < 2 {
		return 0
	}
	ys := make([]float64, n)
	for i := range ys {
		ys[i] = f(l.r[i])
	}
	if n == 2 {
		return integrate.Trapezoidal(l.r[:n], ys)
	}
	return integrate.Simpsons(l.r[:n], ys)
}
