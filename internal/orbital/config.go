package orbital

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// NonRelInfo identifies a non-relativistic shell (n, l).
type NonRelInfo struct {
	PQN int `json:"pqn"`
	L   int `json:"l"`
}

// Name returns "3d".
func (n NonRelInfo) Name() string {
	return strconv.Itoa(n.PQN) + letter(n.L)
}

func (n NonRelInfo) String() string {
	return n.Name()
}

// Capacity returns 2(2l+1).
func (n NonRelInfo) Capacity() int {
	return 2 * (2*n.L + 1)
}

// Relativistic returns the states of this shell, j = l-1/2 first.
func (n NonRelInfo) Relativistic() []Info {
	out := make([]Info, 0, 2)
	for _, k := range Kappas(n.L) {
		out = append(out, Info{PQN: n.PQN, Kappa: k})
	}
	return out
}

// Shell is one entry of a configuration.
type Shell struct {
	NonRelInfo
	Occupancy int `json:"occupancy"`
}

// Configuration is an ordered list of occupied non-relativistic shells.
type Configuration []Shell

// ParseConfiguration reads occupancy notation: shells separated by spaces,
// each written as n, l letter and occupancy ("1s2 2s2 2p6", "3d1 4s1").
// Shells are kept in input order; repeating a shell is an error.
func ParseConfiguration(s string) (Configuration, error) {
	var config Configuration
	seen := make(map[NonRelInfo]bool)
	for _, tok := range strings.Fields(s) {
		idx := strings.IndexFunc(tok, func(r rune) bool { return r < '0' || r > '9' })
		if idx <= 0 || idx+1 >= len(tok) {
			return nil, fmt.Errorf("invalid shell %q", tok)
		}
		n, l, err := parseShell(tok[:idx+1])
		if err != nil {
			return nil, err
		}
		occ, err := strconv.Atoi(tok[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("invalid occupancy in %q", tok)
		}
		shell := Shell{NonRelInfo: NonRelInfo{PQN: n, L: l}, Occupancy: occ}
		if occ < 0 || occ > shell.Capacity() {
			return nil, fmt.Errorf("shell %q: occupancy %d outside [0, %d]", tok, occ, shell.Capacity())
		}
		if seen[shell.NonRelInfo] {
			return nil, fmt.Errorf("shell %s repeated", shell.Name())
		}
		seen[shell.NonRelInfo] = true
		config = append(config, shell)
	}
	if len(config) == 0 {
		return nil, fmt.Errorf("empty configuration %q", s)
	}
	return config, nil
}

// NumElectrons returns the total occupancy.
func (c Configuration) NumElectrons() int {
	total := 0
	for _, sh := range c {
		total += sh.Occupancy
	}
	return total
}

// Parity returns the product of (-1)^l over all electrons.
func (c Configuration) Parity() int {
	p := 1
	for _, sh := range c {
		if sh.L%2 == 1 && sh.Occupancy%2 == 1 {
			p = -p
		}
	}
	return p
}

// Occupancy returns the occupancy of shell, 0 if absent.
func (c Configuration) Occupancy(shell NonRelInfo) int {
	for _, sh := range c {
		if sh.NonRelInfo == shell {
			return sh.Occupancy
		}
	}
	return 0
}

// Label returns the canonical text form, shells sorted by (n, l) and empty
// shells dropped: "3d1 4s1".
func (c Configuration) Label() string {
	sorted := slices.Clone(c)
	slices.SortFunc(sorted, func(a, b Shell) int {
		if a.PQN != b.PQN {
			return a.PQN - b.PQN
		}
		return a.L - b.L
	})
	parts := make([]string, 0, len(sorted))
	for _, sh := range sorted {
		if sh.Occupancy > 0 {
			parts = append(parts, sh.Name()+strconv.Itoa(sh.Occupancy))
		}
	}
	return strings.Join(parts, " ")
}

// RelativisticOccupancy splits each shell over its two j sub-shells in
// proportion to their degeneracy (the average-of-configuration rule).
// Closed shells split exactly.
func (c Configuration) RelativisticOccupancy() map[Info]float64 {
	out := make(map[Info]float64)
	for _, sh := range c {
		if sh.Occupancy == 0 {
			continue
		}
		for _, info := range sh.Relativistic() {
			out[info] = float64(sh.Occupancy) * float64(info.Degeneracy()) / float64(sh.Capacity())
		}
	}
	return out
}

// ParseValenceBasis reads a basis definition and returns the highest PQN per
// partial wave. Digits apply to the letters that follow them: "4spd" gives
// s, p and d up to n = 4; "8s7p6d" gives s to 8, p to 7 and d to 6.
func ParseValenceBasis(s string) (map[int]int, error) {
	s = strings.TrimSpace(s)
	limits := make(map[int]int)
	maxPQN := 0
	for i := 0; i < len(s); {
		if s[i] >= '0' && s[i] <= '9' {
			j := i
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			maxPQN, _ = strconv.Atoi(s[i:j])
			i = j
			continue
		}
		l, ok := LetterL(s[i])
		if !ok {
			return nil, fmt.Errorf("basis %q: invalid letter %q", s, s[i])
		}
		if maxPQN == 0 {
			return nil, fmt.Errorf("basis %q: letter %q has no principal quantum number", s, s[i])
		}
		if l >= maxPQN {
			return nil, fmt.Errorf("basis %q: no %c states with n <= %d", s, s[i], maxPQN)
		}
		limits[l] = maxPQN
		i++
	}
	if len(limits) == 0 {
		return nil, fmt.Errorf("empty basis definition %q", s)
	}
	return limits, nil
}
