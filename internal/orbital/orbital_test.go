package orbital

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoQuantumNumbers(t *testing.T) {
	tests := []struct {
		name   string
		info   Info
		l      int
		twoJ   int
		parity int
	}{
		{"4s", Info{4, -1}, 0, 1, 1},
		{"4p-", Info{4, 1}, 1, 1, -1},
		{"4p", Info{4, -2}, 1, 3, -1},
		{"3d-", Info{3, 2}, 2, 3, 1},
		{"3d", Info{3, -3}, 2, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.info.Name())
			assert.Equal(t, tt.l, tt.info.L())
			assert.Equal(t, tt.twoJ, tt.info.TwoJ())
			assert.Equal(t, tt.twoJ+1, tt.info.Degeneracy())
			assert.Equal(t, tt.parity, tt.info.Parity())

			parsed, err := ParseInfo(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.info, parsed)
		})
	}
}

func TestParseInfoErrors(t *testing.T) {
	for _, s := range []string{"", "s", "4x", "1p", "2s-", "0s", "xs"} {
		_, err := ParseInfo(s)
		assert.Error(t, err, "input %q", s)
	}

	info, err := ParseInfo("5p+")
	require.NoError(t, err)
	assert.Equal(t, Info{5, -2}, info)
}

func TestNewInfo(t *testing.T) {
	_, err := NewInfo(3, 0)
	assert.Error(t, err)
	_, err = NewInfo(2, -3)
	assert.Error(t, err)
	info, err := NewInfo(2, 1)
	require.NoError(t, err)
	assert.Equal(t, "2p-", info.Name())
}

func TestInfoCompare(t *testing.T) {
	set := Set{}
	for _, info := range []Info{{4, -1}, {3, -3}, {3, 2}, {4, -2}, {3, -1}, {4, 1}} {
		set.Add(&Orbital{Info: info})
	}

	var names []string
	for _, info := range set.Infos() {
		names = append(names, info.Name())
	}
	assert.Equal(t, []string{"3s", "3d-", "3d", "4s", "4p-", "4p"}, names)
}

func TestParseConfiguration(t *testing.T) {
	config, err := ParseConfiguration("1s2 2s2 2p6 3s2 3p6")
	require.NoError(t, err)

	assert.Len(t, config, 5)
	assert.Equal(t, 18, config.NumElectrons())
	assert.Equal(t, 1, config.Parity())
	assert.Equal(t, 6, config.Occupancy(NonRelInfo{PQN: 2, L: 1}))
	assert.Equal(t, 0, config.Occupancy(NonRelInfo{PQN: 4, L: 0}))

	open, err := ParseConfiguration("4s1 3d1")
	require.NoError(t, err)
	assert.Equal(t, "3d1 4s1", open.Label())
	assert.Equal(t, 1, open.Parity())

	odd, err := ParseConfiguration("4s1 4p1")
	require.NoError(t, err)
	assert.Equal(t, -1, odd.Parity())
}

func TestParseConfigurationErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "empty configuration"},
		{"1s3", "outside"},
		{"2p7", "outside"},
		{"1s2 1s1", "repeated"},
		{"s2", "invalid shell"},
		{"4s", "invalid shell"},
		{"1p2", "need 0 <= l < n"},
		{"4q1", "invalid angular momentum"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseConfiguration(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRelativisticOccupancy(t *testing.T) {
	config, err := ParseConfiguration("2p6 3d1")
	require.NoError(t, err)

	occ := config.RelativisticOccupancy()
	assert.Equal(t, 2.0, occ[Info{2, 1}])
	assert.Equal(t, 4.0, occ[Info{2, -2}])
	assert.InDelta(t, 0.4, occ[Info{3, 2}], 1e-12)
	assert.InDelta(t, 0.6, occ[Info{3, -3}], 1e-12)
}

func TestParseValenceBasis(t *testing.T) {
	limits, err := ParseValenceBasis("4spd")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 4, 1: 4, 2: 4}, limits)

	limits, err = ParseValenceBasis("8s7p6d")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 8, 1: 7, 2: 6}, limits)

	for _, bad := range []string{"", "spd", "3spdf", "4sx"} {
		_, err := ParseValenceBasis(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestSetCloneIsDeep(t *testing.T) {
	set := Set{}
	set.Add(&Orbital{Info: Info{4, -1}, Energy: -0.4})

	clone := set.Clone()
	clone.Get(Info{4, -1}).Energy = 1

	assert.Equal(t, -0.4, set.Get(Info{4, -1}).Energy)
	assert.Nil(t, set.Get(Info{5, -1}))

	rebuilt := FromList(set.List())
	assert.Equal(t, set.Infos(), rebuilt.Infos())
}

func TestRadialModel(t *testing.T) {
	s := &Orbital{Info: Info{4, -1}, Zeff: 2, MeanRadius: 6}
	p := &Orbital{Info: Info{4, -2}, Zeff: 2, MeanRadius: 6}
	far := &Orbital{Info: Info{5, -2}, Zeff: 2, MeanRadius: 24}

	assert.InDelta(t, 1.0, Overlap(s, s), 1e-15)
	assert.InDelta(t, 0.512, Overlap(s, far), 1e-12)
	assert.InDelta(t, 1.0/6, Coulomb(s, p), 1e-15)

	assert.Equal(t, 0.0, Momentum(s, s), "p couples only l to l±1")
	assert.InDelta(t, 2.0/16, Momentum(s, p), 1e-15)
	assert.Equal(t, Momentum(s, far), Momentum(far, s))

	assert.Equal(t, 0.0, Overlap(s, &Orbital{Info: Info{4, -1}}))
}
