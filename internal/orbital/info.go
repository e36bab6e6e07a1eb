// Package orbital holds single-particle state identifiers, orbitals and the
// occupancy notation used by input files ("1s2 2s2 2p6", "3d1 4s1").
package orbital

import (
	"fmt"
	"strconv"
	"strings"
)

// spectroscopic letters indexed by orbital angular momentum l.
const letters = "spdfghik"

// Info identifies a relativistic single-particle state by principal quantum
// number and kappa. kappa = -(l+1) for j = l+1/2 and kappa = l for
// j = l-1/2; kappa is never zero.
type Info struct {
	PQN   int `json:"pqn"`
	Kappa int `json:"kappa"`
}

// NewInfo builds an Info, rejecting kappa = 0 and l >= n.
func NewInfo(pqn, kappa int) (Info, error) {
	info := Info{PQN: pqn, Kappa: kappa}
	if kappa == 0 {
		return Info{}, fmt.Errorf("kappa must be non-zero")
	}
	if pqn < 1 || info.L() >= pqn {
		return Info{}, fmt.Errorf("invalid state n=%d l=%d", pqn, info.L())
	}
	return info, nil
}

// L returns the orbital angular momentum.
func (i Info) L() int {
	if i.Kappa > 0 {
		return i.Kappa
	}
	return -i.Kappa - 1
}

// TwoJ returns twice the total angular momentum.
func (i Info) TwoJ() int {
	if i.Kappa > 0 {
		return 2*i.Kappa - 1
	}
	return -2*i.Kappa - 1
}

// J returns the total angular momentum.
func (i Info) J() float64 {
	return float64(i.TwoJ()) / 2
}

// Degeneracy returns 2j+1, the number of magnetic substates.
func (i Info) Degeneracy() int {
	return i.TwoJ() + 1
}

// Parity returns +1 for even l and -1 for odd l.
func (i Info) Parity() int {
	if i.L()%2 == 0 {
		return 1
	}
	return -1
}

// NonRel returns the non-relativistic shell this state belongs to.
func (i Info) NonRel() NonRelInfo {
	return NonRelInfo{PQN: i.PQN, L: i.L()}
}

// Name returns the spectroscopic name: "4s", "4p-" (j = l-1/2), "4p".
func (i Info) Name() string {
	name := strconv.Itoa(i.PQN) + letter(i.L())
	if i.Kappa > 0 {
		name += "-"
	}
	return name
}

func (i Info) String() string {
	return i.Name()
}

// Compare orders states by PQN, then l, then j.
func (i Info) Compare(o Info) int {
	switch {
	case i.PQN != o.PQN:
		return i.PQN - o.PQN
	case i.L() != o.L():
		return i.L() - o.L()
	default:
		return i.TwoJ() - o.TwoJ()
	}
}

// ParseInfo parses names produced by Name: "4s", "4p-", "4p+" or "4p".
// A trailing "+" is accepted as an explicit j = l+1/2.
func ParseInfo(s string) (Info, error) {
	s = strings.TrimSpace(s)
	minus := strings.HasSuffix(s, "-")
	s = strings.TrimSuffix(strings.TrimSuffix(s, "-"), "+")

	n, l, err := parseShell(s)
	if err != nil {
		return Info{}, err
	}
	kappa := -(l + 1)
	if minus {
		if l == 0 {
			return Info{}, fmt.Errorf("state %q: s states have no j = l-1/2 partner", s)
		}
		kappa = l
	}
	return NewInfo(n, kappa)
}

// Kappas returns the kappa values belonging to partial wave l, j = l-1/2
// first.
func Kappas(l int) []int {
	if l == 0 {
		return []int{-1}
	}
	return []int{l, -(l + 1)}
}

func letter(l int) string {
	if l >= 0 && l < len(letters) {
		return letters[l : l+1]
	}
	return fmt.Sprintf("[l=%d]", l)
}

// LetterL returns the l of a spectroscopic letter.
func LetterL(c byte) (int, bool) {
	idx := strings.IndexByte(letters, c)
	return idx, idx >= 0
}

// parseShell splits "4p" into n = 4, l = 1.
func parseShell(s string) (int, int, error) {
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("invalid state %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid principal quantum number in %q", s)
	}
	l, ok := LetterL(s[len(s)-1])
	if !ok {
		return 0, 0, fmt.Errorf("invalid angular momentum letter in %q", s)
	}
	if n < 1 || l >= n {
		return 0, 0, fmt.Errorf("invalid state %q: need 0 <= l < n", s)
	}
	return n, l, nil
}
