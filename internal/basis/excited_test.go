package basis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanjj/AMBiT/internal/hf"
	"github.com/wanjj/AMBiT/internal/lattice"
	"github.com/wanjj/AMBiT/internal/orbital"
	"github.com/wanjj/AMBiT/internal/testutil"
)

var (
	s4  = orbital.Info{PQN: 4, Kappa: -1}
	p4m = orbital.Info{PQN: 4, Kappa: 1}
	d3  = orbital.Info{PQN: 3, Kappa: 2}
)

func calciumCore(t *testing.T) *hf.Core {
	t.Helper()
	lat, err := lattice.New(lattice.DefaultNumPoints, lattice.DefaultStartPoint, lattice.DefaultH)
	require.NoError(t, err)
	config, err := orbital.ParseConfiguration("1s2 2s2 2p6 3s2 3p6")
	require.NoError(t, err)
	core, err := hf.NewCore(lat, hf.Config{Nucleus: hf.Nucleus{Z: 20}, Charge: 1, Configuration: config}, testutil.DiscardLogger())
	require.NoError(t, err)
	require.NoError(t, core.Update())
	return core
}

func newExcited(t *testing.T, core Core, cfg Config) *Excited {
	t.Helper()
	if cfg.Limits == nil {
		limits, err := orbital.ParseValenceBasis("4spd")
		require.NoError(t, err)
		cfg.Limits = limits
	}
	e, err := New(core, cfg, testutil.DiscardLogger())
	require.NoError(t, err)
	return e
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"HF", "R", "BSpline", "Custom"} {
		st, err := ParseStrategy(s)
		require.NoError(t, err)
		assert.Equal(t, Strategy(s), st)
	}
	_, err := ParseStrategy("Sturmian")
	assert.ErrorContains(t, err, "unknown type")
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, Config{}, nil)
	assert.Error(t, err)

	_, err = New(calciumCore(t), Config{Limits: map[int]int{2: 2}}, nil)
	assert.ErrorContains(t, err, "invalid limit")
}

func TestCreateHF(t *testing.T) {
	core := calciumCore(t)
	e := newExcited(t, core, Config{ContinuumStates: DefaultContinuumStates})

	require.NoError(t, e.CreateHF())
	assert.Equal(t, StrategyHF, e.Strategy())

	// 4s, 4p-, 4p, 3d-, 3d, 4d-, 4d bound; 4 pseudo-states for each of 5 waves.
	assert.Len(t, e.Orbitals(), 7+5*DefaultContinuumStates)
	assert.Len(t, e.Valence(), 7)
	assert.Nil(t, e.Orbitals().Get(orbital.Info{PQN: 3, Kappa: -1}), "closed core shells are excluded")

	cont := e.Orbitals().Get(orbital.Info{PQN: 5, Kappa: -1})
	require.NotNil(t, cont)
	assert.True(t, cont.Continuum)
	assert.Greater(t, cont.Energy, 0.0)
	assert.Equal(t, 2.0, cont.Zeff)

	for _, o := range e.Valence() {
		assert.False(t, o.Continuum)
		assert.Less(t, o.Energy, 0.0, o.Name())
		assert.Equal(t, 0.0, o.Occupancy)
	}
}

func TestCreateRRaisesLevels(t *testing.T) {
	core := calciumCore(t)
	e := newExcited(t, core, Config{})

	require.NoError(t, e.CreateR(nil))
	assert.Equal(t, StrategyR, e.Strategy())
	assert.Len(t, e.Orbitals(), 7)

	free, err := core.Valence(s4)
	require.NoError(t, err)
	assert.Greater(t, e.Orbitals().Get(s4).Energy, free.Energy)
}

func TestCreateRIonised(t *testing.T) {
	core := calciumCore(t)
	e := newExcited(t, core, Config{})

	require.NoError(t, e.CreateR(nil))
	neutral := e.Orbitals().Get(s4).Energy

	p3 := orbital.Info{PQN: 3, Kappa: -2}
	require.NoError(t, e.CreateR(&p3))
	assert.Less(t, e.Orbitals().Get(s4).Energy, neutral, "fewer screening electrons bind 4s more tightly")

	err := e.CreateR(&orbital.Info{PQN: 5, Kappa: -1})
	assert.True(t, errors.Is(err, hf.ErrNotInCore))
}

func TestCreateBSpline(t *testing.T) {
	core := calciumCore(t)
	e := newExcited(t, core, Config{})

	require.NoError(t, e.CreateBSpline(nil))
	assert.Equal(t, StrategyBSpline, e.Strategy())

	valence := e.Valence()
	assert.Len(t, valence, 7)
	for _, info := range []orbital.Info{s4, p4m, d3} {
		o := valence.Get(info)
		require.NotNil(t, o, info.Name())
		assert.Less(t, o.Energy, 0.0, info.Name())
		assert.Greater(t, o.MeanRadius, 0.0, info.Name())
	}
	assert.Nil(t, e.Orbitals().Get(orbital.Info{PQN: 3, Kappa: -1}))

	// The spline spectrum extends well above the valence limit.
	assert.Greater(t, len(e.Orbitals()), len(valence))
	deepest := 0.0
	for _, o := range core.Orbitals() {
		deepest = math.Min(deepest, o.Energy)
	}
	continuum := 0
	for _, o := range e.Orbitals() {
		assert.GreaterOrEqual(t, o.Energy, deepest, "%s below the core", o.Info.Name())
		assert.Equal(t, o.Energy > 0, o.Continuum, o.Info.Name())
		if o.Continuum {
			continuum++
			assert.Zero(t, o.Zeff, o.Info.Name())
		}
	}
	assert.Greater(t, continuum, 0)

	// Fine structure: p1/2 below p3/2.
	assert.Less(t, valence.Get(p4m).Energy, valence.Get(orbital.Info{PQN: 4, Kappa: -2}).Energy)
}

func TestCreateBSplineInvalidConfig(t *testing.T) {
	e := newExcited(t, calciumCore(t), Config{BSplineN: 5, BSplineK: 7})
	assert.Error(t, e.CreateBSpline(nil))
}

func TestCreateCustom(t *testing.T) {
	core := calciumCore(t)

	e := newExcited(t, core, Config{})
	assert.ErrorContains(t, e.CreateCustom(nil), "no states")

	e = newExcited(t, core, Config{Custom: []orbital.Info{s4, d3}})
	require.NoError(t, e.CreateCustom(nil))
	assert.Equal(t, []orbital.Info{d3, s4}, e.Orbitals().Infos())
	assert.Len(t, e.Valence(), 2)

	e = newExcited(t, core, Config{Custom: []orbital.Info{{PQN: 2, Kappa: 1}}})
	err := e.CreateCustom(nil)
	assert.True(t, errors.Is(err, hf.ErrCoreOccupied))
}

func TestRestoreAndClear(t *testing.T) {
	core := calciumCore(t)
	source := newExcited(t, core, Config{})
	require.NoError(t, source.CreateR(nil))

	e := newExcited(t, core, Config{})
	e.Restore(source.Strategy(), source.Orbitals())
	assert.Equal(t, StrategyR, e.Strategy())
	assert.Equal(t, source.Orbitals().Infos(), e.Orbitals().Infos())

	e.Orbitals().Get(s4).Energy = 0
	assert.NotEqual(t, 0.0, source.Orbitals().Get(s4).Energy, "restore copies orbitals")

	e.Clear()
	assert.Equal(t, StrategyNone, e.Strategy())
	assert.Empty(t, e.Orbitals())
}

func TestSplineCharge(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		energy float64
		want   float64
	}{
		{"hydrogenic 1s", 1, -0.5, 1},
		{"hydrogenic 4s", 4, -0.5 / 16, 1},
		{"capped at nucleus", 30, -50, 20},
		{"threshold", 5, 0, 0},
		{"continuum", 12, 3.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, splineCharge(tt.n, tt.energy, 20), 1e-12)
		})
	}
}
