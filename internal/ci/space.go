package ci

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/wanjj/AMBiT/internal/orbital"
)

// ErrEmptySpace is returned when a sector contains no determinants, e.g.
// an odd number of electrons with even 2J.
var ErrEmptySpace = errors.New("ci: no determinants in sector")

// Electron is one occupied state with projection m = TwoM/2.
type Electron struct {
	Info orbital.Info
	TwoM int
}

func compareElectrons(a, b Electron) int {
	if c := a.Info.Compare(b.Info); c != 0 {
		return c
	}
	return cmp.Compare(a.TwoM, b.TwoM)
}

// Determinant is a sorted list of occupied states.
type Determinant []Electron

// TwoM returns twice the total projection.
func (d Determinant) TwoM() int {
	m := 0
	for _, e := range d {
		m += e.TwoM
	}
	return m
}

// Space is the determinant basis of one sector: every determinant with
// 2M = 2J built from the configurations reachable from the leading one.
// Levels with J ≥ TwoJ/2 all appear in this projection.
type Space struct {
	TwoJ   int
	Parity int

	// Configurations lists the non-relativistic configurations, leading
	// configuration first.
	Configurations []orbital.Configuration
	Determinants   []Determinant

	configOf []int
}

// Dimension returns the number of determinants.
func (s *Space) Dimension() int { return len(s.Determinants) }

// ConfigurationOf returns the configuration index of determinant i.
func (s *Space) ConfigurationOf(i int) int { return s.configOf[i] }

// NewSpace builds the sector for leading with 2M = twoJ over the given
// single-particle states. With singleDouble set, every configuration of
// the same parity reachable by moving one or two electrons is included.
func NewSpace(leading orbital.Configuration, twoJ int, states []orbital.Info, singleDouble bool) (*Space, error) {
	if leading.NumElectrons() == 0 {
		return nil, fmt.Errorf("ci: empty leading configuration")
	}
	if twoJ < 0 {
		return nil, fmt.Errorf("ci: 2J must be >= 0, got %d", twoJ)
	}

	shells := availableShells(states)
	for _, sh := range leading {
		if sh.Occupancy > 0 && len(shells[sh.NonRelInfo]) == 0 {
			return nil, fmt.Errorf("ci: shell %s is not in the valence basis", sh.Name())
		}
	}

	configs := []orbital.Configuration{normalise(occupancies(leading))}
	if singleDouble {
		configs = excitations(configs[0], shells)
	}

	space := &Space{TwoJ: twoJ, Parity: leading.Parity(), Configurations: configs}
	for idx, config := range configs {
		for _, det := range determinants(config, shells, twoJ) {
			space.Determinants = append(space.Determinants, det)
			space.configOf = append(space.configOf, idx)
		}
	}
	if len(space.Determinants) == 0 {
		return nil, fmt.Errorf("%w: 2J=%d %s", ErrEmptySpace, twoJ, configs[0].Label())
	}
	return space, nil
}

// availableShells groups the states by non-relativistic shell, each list
// sorted by kappa order (j-½ first).
func availableShells(states []orbital.Info) map[orbital.NonRelInfo][]orbital.Info {
	out := make(map[orbital.NonRelInfo][]orbital.Info)
	for _, info := range states {
		out[info.NonRel()] = append(out[info.NonRel()], info)
	}
	for _, infos := range out {
		slices.SortFunc(infos, orbital.Info.Compare)
	}
	return out
}

func sortedShells(shells map[orbital.NonRelInfo][]orbital.Info) []orbital.NonRelInfo {
	keys := make([]orbital.NonRelInfo, 0, len(shells))
	for k := range shells {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareShells)
	return keys
}

func compareShells(a, b orbital.NonRelInfo) int {
	if c := cmp.Compare(a.PQN, b.PQN); c != 0 {
		return c
	}
	return cmp.Compare(a.L, b.L)
}

func occupancies(c orbital.Configuration) map[orbital.NonRelInfo]int {
	out := make(map[orbital.NonRelInfo]int, len(c))
	for _, sh := range c {
		out[sh.NonRelInfo] += sh.Occupancy
	}
	return out
}

func normalise(occ map[orbital.NonRelInfo]int) orbital.Configuration {
	out := make(orbital.Configuration, 0, len(occ))
	for shell, n := range occ {
		if n > 0 {
			out = append(out, orbital.Shell{NonRelInfo: shell, Occupancy: n})
		}
	}
	slices.SortFunc(out, func(a, b orbital.Shell) int { return compareShells(a.NonRelInfo, b.NonRelInfo) })
	return out
}

// excitations returns leading followed by every distinct configuration of
// the same parity reachable by one or two single-electron moves.
func excitations(leading orbital.Configuration, shells map[orbital.NonRelInfo][]orbital.Info) []orbital.Configuration {
	order := sortedShells(shells)
	capacity := func(sh orbital.NonRelInfo) int {
		n := 0
		for _, info := range shells[sh] {
			n += info.Degeneracy()
		}
		return n
	}
	moves := func(c orbital.Configuration) []orbital.Configuration {
		var out []orbital.Configuration
		occ := occupancies(c)
		for _, from := range order {
			if occ[from] == 0 {
				continue
			}
			for _, to := range order {
				if to == from || occ[to] >= capacity(to) {
					continue
				}
				next := make(map[orbital.NonRelInfo]int, len(occ)+1)
				for k, v := range occ {
					next[k] = v
				}
				next[from]--
				next[to]++
				out = append(out, normalise(next))
			}
		}
		return out
	}

	seen := map[string]bool{leading.Label(): true}
	configs := []orbital.Configuration{leading}
	add := func(c orbital.Configuration) {
		if label := c.Label(); !seen[label] {
			seen[label] = true
			if c.Parity() == leading.Parity() {
				configs = append(configs, c)
			}
		}
	}
	singles := moves(leading)
	for _, c := range singles {
		add(c)
	}
	for _, s := range singles {
		for _, c := range moves(s) {
			add(c)
		}
	}
	return configs
}

// determinants enumerates every determinant of config with total 2M = twoM.
func determinants(config orbital.Configuration, shells map[orbital.NonRelInfo][]orbital.Info, twoM int) []Determinant {
	// Each shell expands into a list of alternative electron sets, one per
	// relativistic split and choice of projections.
	var options [][][]Electron
	for _, sh := range config {
		options = append(options, shellOptions(shells[sh.NonRelInfo], sh.Occupancy))
	}

	var out []Determinant
	var build func(i int, acc []Electron, m int)
	build = func(i int, acc []Electron, m int) {
		if i == len(options) {
			if m == twoM {
				det := slices.Clone(acc)
				slices.SortFunc(det, compareElectrons)
				out = append(out, det)
			}
			return
		}
		for _, opt := range options[i] {
			dm := 0
			for _, e := range opt {
				dm += e.TwoM
			}
			build(i+1, append(acc, opt...), m+dm)
		}
	}
	build(0, nil, 0)
	return out
}

// shellOptions lists every way of placing q electrons in the relativistic
// subshells infos.
func shellOptions(infos []orbital.Info, q int) [][]Electron {
	var out [][]Electron
	var split func(i, left int, acc []Electron)
	split = func(i, left int, acc []Electron) {
		if i == len(infos) {
			if left == 0 {
				out = append(out, slices.Clone(acc))
			}
			return
		}
		info := infos[i]
		for k := 0; k <= min(left, info.Degeneracy()); k++ {
			for _, ms := range projections(info.TwoJ(), k) {
				next := slices.Clone(acc)
				for _, m := range ms {
					next = append(next, Electron{Info: info, TwoM: m})
				}
				split(i+1, left-k, next)
			}
		}
	}
	split(0, q, nil)
	return out
}

// projections returns every k-subset of {-twoJ, -twoJ+2, ..., twoJ}.
func projections(twoJ, k int) [][]int {
	var out [][]int
	var choose func(next int, acc []int)
	choose = func(next int, acc []int) {
		if len(acc) == k {
			out = append(out, slices.Clone(acc))
			return
		}
		for m := next; m <= twoJ; m += 2 {
			choose(m+2, append(acc, m))
		}
	}
	choose(-twoJ, nil)
	return out
}
