package atom

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanjj/AMBiT/internal/basis"
	"github.com/wanjj/AMBiT/internal/ci"
	"github.com/wanjj/AMBiT/internal/hf"
	"github.com/wanjj/AMBiT/internal/lattice"
	"github.com/wanjj/AMBiT/internal/mbpt"
	"github.com/wanjj/AMBiT/internal/orbital"
	"github.com/wanjj/AMBiT/internal/store"
	"github.com/wanjj/AMBiT/internal/testutil"
)

var (
	s3 = orbital.Info{PQN: 3, Kappa: -1}
	s4 = orbital.Info{PQN: 4, Kappa: -1}
	p4 = orbital.Info{PQN: 4, Kappa: -2}
)

type calciumOptions struct {
	inverseMass  float64
	radius       float64
	alphaVar     float64
	includeMBPT  bool
	singleDouble bool
}

// newCalcium returns an uninitialized neutral calcium atom over the
// 1s2 2s2 2p6 3s2 3p6 core with a 4spd valence basis.
func newCalcium(t *testing.T, opts calciumOptions) *Atom {
	t.Helper()
	lat, err := lattice.New(lattice.DefaultNumPoints, lattice.DefaultStartPoint, lattice.DefaultH)
	require.NoError(t, err)
	config, err := orbital.ParseConfiguration("1s2 2s2 2p6 3s2 3p6")
	require.NoError(t, err)

	logger := testutil.DiscardLogger()
	core, err := hf.NewCore(lat, hf.Config{
		Nucleus: hf.Nucleus{
			Z:           20,
			InverseMass: opts.inverseMass,
			Radius:      opts.radius,
			Thickness:   hf.DefaultNuclearThickness,
		},
		Configuration:         config,
		AlphaSquaredVariation: opts.alphaVar,
	}, logger)
	require.NoError(t, err)

	limits, err := orbital.ParseValenceBasis("4spd")
	require.NoError(t, err)
	excited, err := basis.New(core, basis.Config{Limits: limits}, logger)
	require.NoError(t, err)

	a, err := New(Config{ID: "Ca", Z: 20, IncludeMBPT: opts.includeMBPT}, Components{
		Lattice: lat,
		Core:    core,
		Excited: excited,
		Sigma:   mbpt.New(core, excited, mbpt.Config{}, core.Debug(), logger),
		CI:      ci.Builder{SingleDouble: opts.singleDouble, NumSolutions: ci.DefaultNumSolutions},
	}, logger)
	require.NoError(t, err)
	return a
}

func mustConfig(t *testing.T, s string) orbital.Configuration {
	t.Helper()
	c, err := orbital.ParseConfiguration(s)
	require.NoError(t, err)
	return c
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Z: 20}, Components{}, nil)
	assert.Error(t, err)

	a := newCalcium(t, calciumOptions{})
	_, err = New(Config{Z: 0}, a.comp, nil)
	assert.ErrorContains(t, err, "nuclear charge")

	assert.Equal(t, StageUninitialized, a.Stage())
	assert.Equal(t, "Ca", a.Identifier())
	assert.Equal(t, 20.0, a.Z())
	assert.Same(t, a.comp.Core.Debug(), a.DebugOptions())
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "BasisBuilt", StageBasisBuilt.String())
	assert.Equal(t, "OpenShellCorrected", StageOpenShellCorrected.String())
	assert.Equal(t, "Stage(42)", Stage(42).String())
}

func TestOperationsRejectUninitialized(t *testing.T) {
	a := newCalcium(t, calciumOptions{})
	leading := mustConfig(t, "4s2")

	calls := map[string]func() error{
		"CreateRBasis":       func() error { return a.CreateRBasis(nil) },
		"CreateBSplineBasis": func() error { return a.CreateBSplineBasis(nil) },
		"CreateCustomBasis":  func() error { return a.CreateCustomBasis(nil) },
		"GetSigma": func() error {
			_, err := a.GetSigma(s4)
			return err
		},
		"OpenShellEnergy": func() error {
			_, err := a.OpenShellEnergy(0, leading, false)
			return err
		},
		"DoClosedShellSMS":  func() error { return a.DoClosedShellSMS(false) },
		"DoOpenShellSMS":    func() error { return a.DoOpenShellSMS(0, leading) },
		"DoOpenShellAlpha":  func() error { return a.DoOpenShellAlphaVar(0, leading) },
		"DoClosedShellVol":  func() error { return a.DoClosedShellVolumeShift(false) },
		"DoOpenShellVolume": func() error { return a.DoOpenShellVolumeShift(0, leading) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.Error(t, err)
			var se *StageError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, StageUninitialized, se.Stage)
			assert.NotContains(t, se.Allowed, StageUninitialized)
		})
	}
	assert.Equal(t, StageUninitialized, a.Stage())
}

func TestOpenShellCorrectionRequiresSolvedSector(t *testing.T) {
	a := newCalcium(t, calciumOptions{})
	require.NoError(t, a.CreateHFBasis())

	err := a.DoOpenShellSMS(0, mustConfig(t, "4s2"))
	assert.True(t, IsStageError(err))
	assert.ErrorContains(t, err, "requires CISolved or OpenShellCorrected")
}

func TestCreateHFBasis(t *testing.T) {
	a := newCalcium(t, calciumOptions{})
	require.NoError(t, a.CreateHFBasis())
	assert.Equal(t, StageBasisBuilt, a.Stage())
	assert.Equal(t, basis.StrategyHF, a.Excited().Strategy())

	core, err := a.GetEnergy(s3)
	require.NoError(t, err)
	valence, err := a.GetEnergy(s4)
	require.NoError(t, err)
	assert.Less(t, core, valence)
	assert.Less(t, valence, 0.0)

	// 7 core states plus 7 bound valence states; continuum states are
	// excluded.
	assert.Len(t, a.States(), 14)
}

func TestGetEnergyNotComputed(t *testing.T) {
	a := newCalcium(t, calciumOptions{})
	_, err := a.GetEnergy(s4)
	assert.True(t, IsNotComputed(err))

	require.NoError(t, a.CreateHFBasis())
	_, err = a.GetEnergy(orbital.Info{PQN: 9, Kappa: -1})
	assert.True(t, IsNotComputed(err))
	assert.ErrorContains(t, err, "9s")
}

func TestConvergeCoreFailureResets(t *testing.T) {
	a := newCalcium(t, calciumOptions{})
	core := a.comp.Core.(*hf.Core)
	cfg := core.Config()
	cfg.MaxIterations = 1
	cfg.Tolerance = 1e-300
	failing, err := hf.NewCore(core.Lattice(), cfg, testutil.DiscardLogger())
	require.NoError(t, err)
	a.comp.Core = failing

	err = a.CreateHFBasis()
	require.ErrorIs(t, err, hf.ErrNotConverged)
	assert.Equal(t, StageUninitialized, a.Stage())
}

func TestBSplineOpenShellEnergy(t *testing.T) {
	a := newCalcium(t, calciumOptions{singleDouble: true})
	require.NoError(t, a.CreateHFBasis())
	require.NoError(t, a.CreateBSplineBasis(nil))
	assert.Equal(t, basis.StrategyBSpline, a.Excited().Strategy())

	leading := mustConfig(t, "4s2")
	dim, err := a.OpenShellEnergy(0, leading, false)
	require.NoError(t, err)
	assert.Equal(t, StageCISolved, a.Stage())

	sec, ok := a.Sector(0, leading)
	require.True(t, ok)
	energies := sec.Energies()
	require.NotEmpty(t, energies)
	assert.LessOrEqual(t, len(energies), ci.DefaultNumSolutions)
	assert.LessOrEqual(t, len(energies), dim)
	assert.True(t, slices.IsSorted(energies), "energies %v", energies)
}

func TestBSplineBasisLiesAboveCore(t *testing.T) {
	a := newCalcium(t, calciumOptions{})
	require.NoError(t, a.CreateHFBasis())
	require.NoError(t, a.CreateBSplineBasis(nil))

	deepest := 0.0
	for _, o := range a.Core().Orbitals() {
		deepest = math.Min(deepest, o.Energy)
	}
	require.Less(t, deepest, 0.0)
	for _, o := range a.Excited().Orbitals() {
		assert.GreaterOrEqual(t, o.Energy, deepest, o.Info.Name())
		assert.Equal(t, o.Energy > 0, o.Continuum, o.Info.Name())
	}

	sigma, err := a.GetSigma(s4)
	require.NoError(t, err)
	assert.Less(t, sigma, 0.0)
	assert.False(t, math.IsInf(sigma, 0) || math.IsNaN(sigma))
}

func TestSizeOnlyMatchesSolve(t *testing.T) {
	a := newCalcium(t, calciumOptions{singleDouble: true})
	require.NoError(t, a.CreateHFBasis())

	for _, tc := range []struct {
		config string
		twoJ   int
	}{
		{"4s2", 0},
		{"4s1 4p1", 2},
		{"4s1 3d1", 4},
	} {
		t.Run(tc.config, func(t *testing.T) {
			leading := mustConfig(t, tc.config)
			stage := a.Stage()
			size, err := a.OpenShellEnergy(tc.twoJ, leading, true)
			require.NoError(t, err)
			assert.Equal(t, stage, a.Stage(), "size-only must not advance the stage")
			_, solved := a.Sector(tc.twoJ, leading)
			assert.False(t, solved)

			dim, err := a.OpenShellEnergy(tc.twoJ, leading, false)
			require.NoError(t, err)
			assert.Equal(t, size, dim)

			sec, ok := a.Sector(tc.twoJ, leading)
			require.True(t, ok)
			assert.Equal(t, dim, sec.Dimension)
			assert.LessOrEqual(t, len(sec.Levels), dim)
		})
	}
	assert.Len(t, a.Sectors(), 3)
}

func TestOpenShellEnergyEmptySector(t *testing.T) {
	a := newCalcium(t, calciumOptions{})
	require.NoError(t, a.CreateHFBasis())

	_, err := a.OpenShellEnergy(4, mustConfig(t, "4s2"), false)
	assert.ErrorIs(t, err, ci.ErrEmptySpace)
	assert.Equal(t, StageBasisBuilt, a.Stage())
}

func TestGetSigmaComputesOnce(t *testing.T) {
	a := newCalcium(t, calciumOptions{})
	require.NoError(t, a.CreateHFBasis())

	first, err := a.GetSigma(s4)
	require.NoError(t, err)
	second, err := a.GetSigma(s4)
	require.NoError(t, err)

	assert.Equal(t, math.Float64bits(first), math.Float64bits(second))
	assert.Equal(t, 1, a.SigmaComputations())
	assert.Less(t, first, 0.0)

	// A new basis invalidates the cache.
	require.NoError(t, a.CreateRBasis(nil))
	_, err = a.GetSigma(s4)
	require.NoError(t, err)
	assert.Equal(t, 2, a.SigmaComputations())
}

func TestIncludeMBPTLowersLevels(t *testing.T) {
	solve := func(include bool) float64 {
		a := newCalcium(t, calciumOptions{includeMBPT: include})
		require.NoError(t, a.CreateHFBasis())
		_, err := a.OpenShellEnergy(0, mustConfig(t, "4s2"), false)
		require.NoError(t, err)
		sec, _ := a.Sector(0, mustConfig(t, "4s2"))
		return sec.Energies()[0]
	}
	assert.Less(t, solve(true), solve(false))
}

func TestClosedShellSMSIsLinearInInverseMass(t *testing.T) {
	shift := func(inverseMass float64) float64 {
		a := newCalcium(t, calciumOptions{inverseMass: inverseMass})
		require.NoError(t, a.CreateHFBasis())
		before, err := a.GetEnergy(s4)
		require.NoError(t, err)

		require.NoError(t, a.DoClosedShellSMS(false))
		assert.Equal(t, StageClosedShellCorrected, a.Stage())

		d, ok := a.ClosedShellCorrection(CorrectionSMS, s4)
		require.True(t, ok)
		after, err := a.GetEnergy(s4)
		require.NoError(t, err)
		assert.InDelta(t, before+d, after, 1e-15)
		return d
	}

	plus := shift(0.001)
	minus := shift(-0.001)
	assert.Less(t, plus, 0.0)
	assert.InEpsilon(t, -plus, minus, 1e-6)
	assert.Zero(t, shift(0))
}

func TestClosedShellCorrectionsAccumulate(t *testing.T) {
	a := newCalcium(t, calciumOptions{inverseMass: 1e-3, radius: 3.7, alphaVar: 0.01})
	require.NoError(t, a.CreateHFBasis())
	base, err := a.GetEnergy(s4)
	require.NoError(t, err)

	require.NoError(t, a.DoClosedShellSMS(false))
	require.NoError(t, a.DoClosedShellVolumeShift(false))
	require.NoError(t, a.DoClosedShellAlphaVar(false))

	total := base
	for _, kind := range []Correction{CorrectionSMS, CorrectionVolumeShift, CorrectionAlphaVar} {
		d, ok := a.ClosedShellCorrection(kind, s4)
		require.True(t, ok, "%s missing", kind)
		assert.NotZero(t, d, "%s", kind)
		total += d
	}
	got, err := a.GetEnergy(s4)
	require.NoError(t, err)
	assert.InDelta(t, total, got, 1e-15)

	// Core states are corrected too.
	_, ok := a.ClosedShellCorrection(CorrectionSMS, s3)
	assert.True(t, ok)
}

func TestClosedShellRelaxationUsesSigma(t *testing.T) {
	a := newCalcium(t, calciumOptions{inverseMass: 1e-3})
	require.NoError(t, a.CreateHFBasis())

	require.NoError(t, a.DoClosedShellSMS(false))
	bare, _ := a.ClosedShellCorrection(CorrectionSMS, s4)
	assert.Zero(t, a.SigmaComputations())

	require.NoError(t, a.DoClosedShellSMS(true))
	relaxed, _ := a.ClosedShellCorrection(CorrectionSMS, s4)
	assert.Positive(t, a.SigmaComputations())

	sigma, err := a.GetSigma(s4)
	require.NoError(t, err)
	e := a.energies[s4]
	assert.InEpsilon(t, bare*(1+sigma/e), relaxed, 1e-12)
}

func TestOpenShellSMSOperators(t *testing.T) {
	a := newCalcium(t, calciumOptions{inverseMass: 1e-3, singleDouble: true})
	require.NoError(t, a.CreateHFBasis())
	leading := mustConfig(t, "4s1 4p1")
	_, err := a.OpenShellEnergy(2, leading, false)
	require.NoError(t, err)

	shifts := make(map[SMSOperator][]float64)
	for _, op := range []SMSOperator{SMSV0, SMSV1, SMSV2} {
		require.NoError(t, a.ApplySMS(op, 2, leading))
		sec, _ := a.Sector(2, leading)
		assert.Equal(t, op, sec.SMSOperator)
		shifts[op] = slices.Clone(sec.Corrections[CorrectionSMS])
	}
	assert.Equal(t, StageOpenShellCorrected, a.Stage())

	require.NotEmpty(t, shifts[SMSV0])
	assert.Negative(t, shifts[SMSV0][0])
	// 4s and 4p are coupled by the two-body term.
	assert.NotEqual(t, shifts[SMSV0][0], shifts[SMSV1][0])
	// V2 relaxes the one-body part by Σ.
	assert.NotEqual(t, shifts[SMSV1][0], shifts[SMSV2][0])

	require.NoError(t, a.DoOpenShellSMS(2, leading))
	sec, _ := a.Sector(2, leading)
	assert.Equal(t, shifts[SMSV2], sec.Corrections[CorrectionSMS])
}

func TestOpenShellVolumeAndAlpha(t *testing.T) {
	a := newCalcium(t, calciumOptions{radius: 3.7, alphaVar: 0.01})
	require.NoError(t, a.CreateHFBasis())
	leading := mustConfig(t, "4s2")
	_, err := a.OpenShellEnergy(0, leading, false)
	require.NoError(t, err)

	require.NoError(t, a.DoOpenShellVolumeShift(0, leading))
	require.NoError(t, a.DoOpenShellAlphaVar(0, leading))

	sec, _ := a.Sector(0, leading)
	require.Len(t, sec.Corrections[CorrectionVolumeShift], len(sec.Levels))
	assert.Positive(t, sec.Corrections[CorrectionVolumeShift][0])
	assert.NotZero(t, sec.Corrections[CorrectionAlphaVar][0])

	want := sec.Levels[0].Energy + sec.Corrections[CorrectionVolumeShift][0] + sec.Corrections[CorrectionAlphaVar][0]
	assert.InDelta(t, want, sec.Energies()[0], 1e-15)
}

func TestBasisRebuildDropsSectors(t *testing.T) {
	a := newCalcium(t, calciumOptions{inverseMass: 1e-3})
	require.NoError(t, a.CreateHFBasis())
	s2 := mustConfig(t, "4s2")
	_, err := a.OpenShellEnergy(0, s2, false)
	require.NoError(t, err)

	require.NoError(t, a.CreateBSplineBasis(nil))
	assert.Equal(t, StageBasisBuilt, a.Stage())
	assert.Empty(t, a.Sectors())

	_, err = a.OpenShellEnergy(2, mustConfig(t, "4s1 4p1"), false)
	require.NoError(t, err)
	err = a.DoOpenShellSMS(0, s2)
	assert.ErrorIs(t, err, ErrNoSector)
}

func TestIonisedBasis(t *testing.T) {
	a := newCalcium(t, calciumOptions{})
	require.NoError(t, a.CreateHFBasis())
	neutral, err := a.GetEnergy(s4)
	require.NoError(t, err)

	p3 := orbital.Info{PQN: 3, Kappa: -2}
	require.NoError(t, a.CreateRBasis(&p3))
	ionised, err := a.GetEnergy(s4)
	require.NoError(t, err)
	assert.NotEqual(t, neutral, ionised)

	err = a.CreateBSplineBasis(&s4)
	assert.ErrorIs(t, err, hf.ErrNotInCore)
	assert.Equal(t, StageHFConverged, a.Stage())
	_, err = a.GetEnergy(s4)
	assert.True(t, IsNotComputed(err))
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ambit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	a := newCalcium(t, calciumOptions{})
	require.NoError(t, a.CreateHFBasis())
	require.NoError(t, a.CreateBSplineBasis(nil))
	digest, err := a.Write(ctx, st)
	require.NoError(t, err)
	assert.Len(t, digest, 64)

	b := newCalcium(t, calciumOptions{})
	require.NoError(t, b.Read(ctx, st))
	assert.Equal(t, StageBasisBuilt, b.Stage())
	assert.Equal(t, basis.StrategyBSpline, b.Excited().Strategy())
	assert.True(t, b.Core().Converged())

	for _, info := range []orbital.Info{s3, s4, p4} {
		want, err := a.GetEnergy(info)
		require.NoError(t, err)
		got, err := b.GetEnergy(info)
		require.NoError(t, err)
		assert.Equal(t, want, got, "%s", info.Name())
	}

	// Writing the restored atom reproduces the digest.
	again, err := b.Write(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, digest, again)

	// Read is only valid on a fresh atom.
	assert.True(t, IsStageError(b.Read(ctx, st)))
}

func TestReadCoreOnly(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	a := newCalcium(t, calciumOptions{})
	require.NoError(t, a.ConvergeCore())
	_, err := a.Write(ctx, st)
	require.NoError(t, err)

	b := newCalcium(t, calciumOptions{})
	require.NoError(t, b.Read(ctx, st))
	assert.Equal(t, StageHFConverged, b.Stage())
	require.NoError(t, b.CreateRBasis(nil))
}

func TestReadErrors(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	a := newCalcium(t, calciumOptions{})
	err := a.Read(ctx, st)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = a.Write(ctx, st)
	assert.True(t, IsStageError(err))

	require.NoError(t, a.ConvergeCore())
	_, err = a.Write(ctx, st)
	require.NoError(t, err)

	b := newCalcium(t, calciumOptions{})
	b.cfg.Charge = 1
	assert.ErrorContains(t, b.Read(ctx, st), "stored Z=20 charge=0")
}
