package orbital

import "math"

// Overlap returns the model radial overlap of two orbitals,
// (2√(ra rb)/(ra + rb))³: one for equal mean radii, falling off as the
// radii separate.
func Overlap(a, b *Orbital) float64 {
	if a.MeanRadius <= 0 || b.MeanRadius <= 0 {
		return 0
	}
	x := 2 * math.Sqrt(a.MeanRadius*b.MeanRadius) / (a.MeanRadius + b.MeanRadius)
	return x * x * x
}

// Coulomb returns the model Slater integral R(ab; ab) ≈ Overlap/√(ra rb)
// in hartree.
func Coulomb(a, b *Orbital) float64 {
	if a.MeanRadius <= 0 || b.MeanRadius <= 0 {
		return 0
	}
	return Overlap(a, b) / math.Sqrt(a.MeanRadius*b.MeanRadius)
}

// Momentum returns the model reduced matrix element <a|p|b> of the
// momentum operator. It is non-zero only for |la - lb| = 1.
func Momentum(a, b *Orbital) float64 {
	dl := a.L() - b.L()
	if dl != 1 && dl != -1 {
		return 0
	}
	na, nb := float64(a.PQN), float64(b.PQN)
	return math.Sqrt(a.Zeff*b.Zeff) / (na * nb) * Overlap(a, b)
}
