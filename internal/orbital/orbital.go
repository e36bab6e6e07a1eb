package orbital

import (
	"slices"
)

// Orbital is a single-particle state in the model: an energy and the
// hydrogenic shape parameters used for radial integrals.
type Orbital struct {
	Info
	Energy float64 `json:"energy"`

	// Occupancy is the (possibly fractional) number of core electrons in
	// this state; zero for excited states.
	Occupancy float64 `json:"occupancy"`

	// Zeff is the effective charge seen by the electron and MeanRadius its
	// hydrogenic <r> in bohr.
	Zeff       float64 `json:"zeff"`
	MeanRadius float64 `json:"mean_radius"`

	// Continuum marks a pseudo-state above threshold.
	Continuum bool `json:"continuum,omitempty"`
}

// Clone returns a copy.
func (o *Orbital) Clone() *Orbital {
	c := *o
	return &c
}

// Set is a collection of orbitals keyed by state.
type Set map[Info]*Orbital

// Add stores o, replacing any orbital with the same Info.
func (s Set) Add(o *Orbital) {
	s[o.Info] = o
}

// Get returns the orbital for info, or nil.
func (s Set) Get(info Info) *Orbital {
	return s[info]
}

// Infos returns the states in Compare order.
func (s Set) Infos() []Info {
	infos := make([]Info, 0, len(s))
	for info := range s {
		infos = append(infos, info)
	}
	slices.SortFunc(infos, Info.Compare)
	return infos
}

// List returns the orbitals in Compare order.
func (s Set) List() []*Orbital {
	out := make([]*Orbital, 0, len(s))
	for _, info := range s.Infos() {
		out = append(out, s[info])
	}
	return out
}

// Clone returns a deep copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, o := range s {
		out[k] = o.Clone()
	}
	return out
}

// FromList builds a Set from a slice, as read back from storage.
func FromList(list []*Orbital) Set {
	s := make(Set, len(list))
	for _, o := range list {
		s.Add(o)
	}
	return s
}
