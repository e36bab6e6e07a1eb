package atom

import (
	"cmp"
	"slices"

	"github.com/wanjj/AMBiT/internal/ci"
	"github.com/wanjj/AMBiT/internal/orbital"
)

// SectorKey identifies a CI sector.
type SectorKey struct {
	TwoJ   int
	Config string
}

// Sector is a solved CI sector and the corrections applied to it.
type Sector struct {
	TwoJ      int
	Config    string
	Dimension int
	Levels    []ci.Level

	// Corrections holds one shift per level for each correction applied.
	Corrections map[Correction][]float64

	// SMSOperator records which treatment produced the SMS correction.
	SMSOperator SMSOperator

	solution *ci.Solution
}

// Energies returns the level energies with every correction added.
func (s *Sector) Energies() []float64 {
	out := make([]float64, len(s.Levels))
	for i, l := range s.Levels {
		out[i] = l.Energy
	}
	for _, kind := range corrections {
		for i, d := range s.Corrections[kind] {
			out[i] += d
		}
	}
	return out
}

// Sector returns the solved sector (twoJ, config).
func (a *Atom) Sector(twoJ int, config orbital.Configuration) (*Sector, bool) {
	s, ok := a.sectors[SectorKey{TwoJ: twoJ, Config: config.Label()}]
	return s, ok
}

// Sectors returns every solved sector ordered by 2J then configuration.
func (a *Atom) Sectors() []*Sector {
	out := make([]*Sector, 0, len(a.sectors))
	for _, s := range a.sectors {
		out = append(out, s)
	}
	slices.SortFunc(out, func(x, y *Sector) int {
		if c := cmp.Compare(x.TwoJ, y.TwoJ); c != 0 {
			return c
		}
		return cmp.Compare(x.Config, y.Config)
	})
	return out
}
