package mbpt

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanjj/AMBiT/internal/basis"
	"github.com/wanjj/AMBiT/internal/hf"
	"github.com/wanjj/AMBiT/internal/lattice"
	"github.com/wanjj/AMBiT/internal/orbital"
	"github.com/wanjj/AMBiT/internal/testutil"
)

type staticStates orbital.Set

func (s staticStates) Orbitals() orbital.Set { return orbital.Set(s) }

var (
	s1 = orbital.Info{PQN: 1, Kappa: -1}
	s2 = orbital.Info{PQN: 2, Kappa: -1}
	s3 = orbital.Info{PQN: 3, Kappa: -1}
)

func toyStates() (staticStates, staticStates) {
	core := orbital.Set{}
	core.Add(&orbital.Orbital{Info: s1, Energy: -2, Occupancy: 2, Zeff: 2, MeanRadius: 1})
	excited := orbital.Set{}
	excited.Add(&orbital.Orbital{Info: s2, Energy: -0.5, Zeff: 1, MeanRadius: 3})
	excited.Add(&orbital.Orbital{Info: s3, Energy: 0.5, Zeff: 1, MeanRadius: 2})
	return staticStates(core), staticStates(excited)
}

func TestSigmaToyModel(t *testing.T) {
	core, excited := toyStates()
	calc := New(core, excited, Config{CoulombScale: 0.1}, nil, testutil.DiscardLogger())

	v, a, m := excited[s2], core[s1], excited[s3]
	r := 0.1 * orbital.Overlap(v, a) * orbital.Overlap(a, m) / math.Sqrt(3*2)
	want := -2 * r * r / (0.5 - -2)

	got, err := calc.Sigma(s2)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-15)
}

func TestSigmaScaling(t *testing.T) {
	core, excited := toyStates()

	base, err := New(core, excited, Config{CoulombScale: 0.1}, nil, nil).Sigma(s2)
	require.NoError(t, err)
	doubled, err := New(core, excited, Config{CoulombScale: 0.2}, nil, nil).Sigma(s2)
	require.NoError(t, err)
	assert.InEpsilon(t, 4*base, doubled, 1e-12)

	shifted, err := New(core, excited, Config{CoulombScale: 0.1, Delta: 0.5}, nil, nil).Sigma(s2)
	require.NoError(t, err)
	assert.Less(t, math.Abs(shifted), math.Abs(base), "a positive shift weakens the correction")
}

func TestSigmaSkipsIntruders(t *testing.T) {
	core, excited := toyStates()
	calc := New(core, excited, Config{Delta: -10}, nil, nil)

	got, err := calc.Sigma(s2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestSigmaUnknownState(t *testing.T) {
	core, excited := toyStates()
	_, err := New(core, excited, Config{}, nil, nil).Sigma(orbital.Info{PQN: 7, Kappa: -1})
	assert.True(t, errors.Is(err, ErrUnknownState))
}

func TestSigmaDebugLogging(t *testing.T) {
	core, excited := toyStates()
	buf, logger := testutil.NewLogBuffer()

	_, err := New(core, excited, Config{}, &hf.Debug{}, logger).Sigma(s2)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "sigma computed")

	_, err = New(core, excited, Config{}, &hf.Debug{MBPT: true}, logger).Sigma(s2)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "sigma computed")
	assert.Contains(t, buf.String(), "state=2s")
}

func TestSigmaCalcium(t *testing.T) {
	lat, err := lattice.New(lattice.DefaultNumPoints, lattice.DefaultStartPoint, lattice.DefaultH)
	require.NoError(t, err)
	config, err := orbital.ParseConfiguration("1s2 2s2 2p6 3s2 3p6")
	require.NoError(t, err)
	core, err := hf.NewCore(lat, hf.Config{Nucleus: hf.Nucleus{Z: 20}, Charge: 1, Configuration: config}, nil)
	require.NoError(t, err)
	require.NoError(t, core.Update())

	limits, err := orbital.ParseValenceBasis("4spd")
	require.NoError(t, err)
	excited, err := basis.New(core, basis.Config{Limits: limits, ContinuumStates: 4}, nil)
	require.NoError(t, err)
	require.NoError(t, excited.CreateHF())

	calc := New(core, excited, Config{}, nil, nil)
	s4 := orbital.Info{PQN: 4, Kappa: -1}
	first, err := calc.Sigma(s4)
	require.NoError(t, err)
	second, err := calc.Sigma(s4)
	require.NoError(t, err)

	assert.Less(t, first, 0.0)
	assert.Equal(t, first, second)
}
