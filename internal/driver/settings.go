package driver

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/wanjj/AMBiT/internal/atom"
	"github.com/wanjj/AMBiT/internal/basis"
	"github.com/wanjj/AMBiT/internal/ci"
	"github.com/wanjj/AMBiT/internal/hf"
	"github.com/wanjj/AMBiT/internal/ir"
	"github.com/wanjj/AMBiT/internal/lattice"
	"github.com/wanjj/AMBiT/internal/mbpt"
	"github.com/wanjj/AMBiT/internal/orbital"
	"github.com/wanjj/AMBiT/internal/params"
)

// DefaultID names the atom when ID is unset.
const DefaultID = "atom"

// Settings are the atom and pipeline parameters of one run.
type Settings struct {
	Atom     atom.Config
	Lattice  LatticeSettings
	Core     hf.Config
	Basis    basis.Config
	Strategy basis.Strategy
	MBPT     mbpt.Config
	CI       ci.Builder
	Debug    hf.Debug
	Pipeline Pipeline
}

// LatticeSettings are the radial grid parameters.
type LatticeSettings struct {
	NumPoints  int
	StartPoint float64
	H          float64
}

// ReadSettings reads the settings of the run selected in opts. Every
// scalar float is read through opts, so multirun keys yield the run's
// value.
func ReadSettings(opts *params.Options) (Settings, error) {
	var s Settings

	if !opts.Has("Z") {
		return s, fmt.Errorf("%w: Z is required", ErrInvalidInput)
	}
	s.Atom = atom.Config{
		ID:          opts.String("ID", DefaultID),
		Z:           opts.Float("Z", 0),
		Charge:      opts.Int("Charge", 0),
		IncludeMBPT: opts.Bool("MBPT/Include", true),
	}

	s.Lattice = LatticeSettings{
		NumPoints:  opts.Int("Lattice/NumPoints", lattice.DefaultNumPoints),
		StartPoint: opts.Float("Lattice/StartPoint", lattice.DefaultStartPoint),
		H:          opts.Float("Lattice/H", lattice.DefaultH),
	}

	coreConfig, err := orbital.ParseConfiguration(opts.String("HF/Configuration", ""))
	if err != nil {
		return s, fmt.Errorf("%w: HF/Configuration: %v", ErrInvalidInput, err)
	}
	s.Core = hf.Config{
		Nucleus: hf.Nucleus{
			Z:           s.Atom.Z,
			InverseMass: opts.Float("NuclearInverseMass", 0),
			Radius:      opts.Float("NuclearRadius", 0),
			Thickness:   opts.Float("NuclearThickness", hf.DefaultNuclearThickness),
		},
		Charge:                s.Atom.Charge,
		Configuration:         coreConfig,
		AlphaSquaredVariation: opts.Float("AlphaSquaredVariation", 0),
		MaxIterations:         opts.Int("HF/MaxIterations", hf.DefaultMaxIterations),
		Tolerance:             opts.Float("HF/Tolerance", hf.DefaultTolerance),
		Mixing:                opts.Float("HF/Mixing", hf.DefaultMixing),
	}

	if s.Strategy, err = basis.ParseStrategy(opts.String("Basis/Type", string(basis.StrategyHF))); err != nil {
		return s, fmt.Errorf("%w: Basis/Type: %v", ErrInvalidInput, err)
	}
	limits, err := orbital.ParseValenceBasis(opts.String("Basis/ValenceBasis", "4spd"))
	if err != nil {
		return s, fmt.Errorf("%w: Basis/ValenceBasis: %v", ErrInvalidInput, err)
	}
	custom, err := parseInfos(opts.Strings("Basis/Custom"))
	if err != nil {
		return s, fmt.Errorf("%w: Basis/Custom: %v", ErrInvalidInput, err)
	}
	s.Basis = basis.Config{
		Limits:          limits,
		ContinuumStates: opts.Int("Basis/ContinuumStates", basis.DefaultContinuumStates),
		RMax:            opts.Float("Basis/R/Rmax", basis.DefaultRMax),
		BSplineN:        opts.Int("Basis/BSpline/N", basis.DefaultBSplineN),
		BSplineK:        opts.Int("Basis/BSpline/K", basis.DefaultBSplineK),
		BSplineRMax:     opts.Float("Basis/BSpline/Rmax", basis.DefaultBSplineRMax),
		KnotStart:       opts.Float("Basis/BSpline/KnotStart", basis.DefaultKnotStart),
		Custom:          custom,
	}

	s.MBPT = mbpt.Config{
		Delta:        opts.Float("MBPT/Delta", 0),
		CoulombScale: opts.Float("MBPT/CoulombScale", mbpt.DefaultCoulombScale),
	}
	s.CI = ci.Builder{
		SingleDouble: opts.Bool("CI/SingleDouble", false),
		NumSolutions: opts.Int("CI/NumSolutions", ci.DefaultNumSolutions),
		CoulombScale: opts.Float("CI/CoulombScale", ci.DefaultCoulombScale),
	}
	s.Debug = hf.Debug{
		HF:    opts.Bool("Debug/HF", false),
		Basis: opts.Bool("Debug/Basis", false),
		MBPT:  opts.Bool("Debug/MBPT", false),
		CI:    opts.Bool("Debug/CI", false),
	}

	if s.Pipeline, err = readPipeline(opts, s.Strategy); err != nil {
		return s, err
	}
	return s, nil
}

func readPipeline(opts *params.Options, strategy basis.Strategy) (Pipeline, error) {
	p := Pipeline{
		Basis:         strategy,
		IncludeMBPT:   opts.Bool("MBPT/Include", true),
		SizeOnly:      opts.Bool("CI/SizeOnly", false),
		MaxMatrixSize: opts.Int("CI/MaxMatrixSize", DefaultMaxMatrixSize),
	}

	if name := opts.String("Basis/Ionised", ""); name != "" {
		info, err := orbital.ParseInfo(name)
		if err != nil {
			return p, fmt.Errorf("%w: Basis/Ionised: %v", ErrInvalidInput, err)
		}
		p.Ionised = &info
	}

	for _, name := range opts.Strings("Corrections") {
		c, err := atom.ParseCorrection(name)
		if err != nil {
			return p, fmt.Errorf("%w: Corrections: %v", ErrInvalidInput, err)
		}
		p.Corrections = append(p.Corrections, c)
	}

	op, err := atom.ParseSMSOperator(opts.String("SMS/Operator", string(atom.SMSV2)))
	if err != nil {
		return p, fmt.Errorf("%w: SMS/Operator: %v", ErrInvalidInput, err)
	}
	p.SMSOperator = op

	twoJs := []int{0}
	if fields := opts.Strings("CI/TwoJ"); len(fields) > 0 {
		twoJs = twoJs[:0]
		for _, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil || n < 0 {
				return p, fmt.Errorf("%w: CI/TwoJ: %q is not a non-negative integer", ErrInvalidInput, f)
			}
			twoJs = append(twoJs, n)
		}
	}
	for _, label := range opts.Strings("CI/LeadingConfigurations") {
		config, err := orbital.ParseConfiguration(label)
		if err != nil {
			return p, fmt.Errorf("%w: CI/LeadingConfigurations: %v", ErrInvalidInput, err)
		}
		for _, twoJ := range twoJs {
			p.Sectors = append(p.Sectors, SectorSpec{TwoJ: twoJ, Config: config})
		}
	}
	return p, nil
}

func parseInfos(names []string) ([]orbital.Info, error) {
	var out []orbital.Info
	for _, name := range names {
		info, err := orbital.ParseInfo(name)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// Physical returns the parameters that determine the atom's core, basis
// and collaborators. Runs with equal Physical fingerprints build identical
// atoms. The identifier, debug flags and the pipeline are excluded.
func (s Settings) Physical() ir.Object {
	limits := make(map[string]float64, len(s.Basis.Limits))
	for l, n := range s.Basis.Limits {
		limits[strconv.Itoa(l)] = float64(n)
	}
	custom := make([]string, len(s.Basis.Custom))
	for i, info := range s.Basis.Custom {
		custom[i] = info.Name()
	}
	ionised := ""
	if s.Pipeline.Ionised != nil {
		ionised = s.Pipeline.Ionised.Name()
	}

	return ir.Object{
		"z":            ir.Float(s.Atom.Z),
		"charge":       ir.Int(s.Atom.Charge),
		"include_mbpt": ir.Bool(s.Atom.IncludeMBPT),
		"lattice": ir.Object{
			"num_points":  ir.Int(s.Lattice.NumPoints),
			"start_point": ir.Float(s.Lattice.StartPoint),
			"h":           ir.Float(s.Lattice.H),
		},
		"nucleus": ir.Object{
			"inverse_mass": ir.Float(s.Core.Nucleus.InverseMass),
			"radius":       ir.Float(s.Core.Nucleus.Radius),
			"thickness":    ir.Float(s.Core.Nucleus.Thickness),
		},
		"hf": ir.Object{
			"configuration":   ir.String(s.Core.Configuration.Label()),
			"alpha_variation": ir.Float(s.Core.AlphaSquaredVariation),
			"max_iterations":  ir.Int(s.Core.MaxIterations),
			"tolerance":       ir.Float(s.Core.Tolerance),
			"mixing":          ir.Float(s.Core.Mixing),
		},
		"basis": ir.Object{
			"type":             ir.String(s.Strategy),
			"limits":           ir.FloatMap(limits),
			"ionised":          ir.String(ionised),
			"continuum_states": ir.Int(s.Basis.ContinuumStates),
			"r_max":            ir.Float(s.Basis.RMax),
			"bspline_n":        ir.Int(s.Basis.BSplineN),
			"bspline_k":        ir.Int(s.Basis.BSplineK),
			"bspline_r_max":    ir.Float(s.Basis.BSplineRMax),
			"knot_start":       ir.Float(s.Basis.KnotStart),
			"custom":           ir.Strings(custom),
		},
		"mbpt": ir.Object{
			"delta":         ir.Float(s.MBPT.Delta),
			"coulomb_scale": ir.Float(s.MBPT.CoulombScale),
		},
		"ci": ir.Object{
			"single_double": ir.Bool(s.CI.SingleDouble),
			"num_solutions": ir.Int(s.CI.NumSolutions),
			"coulomb_scale": ir.Float(s.CI.CoulombScale),
		},
	}
}

// Fingerprint returns the content hash of Physical.
func (s Settings) Fingerprint() (string, error) {
	return ir.ParametersFingerprint(s.Physical())
}

// Identifier returns the storage identifier of the atom: ID followed by
// the short fingerprint, so it changes whenever a physical parameter does.
func (s Settings) Identifier() (string, error) {
	fp, err := s.Fingerprint()
	if err != nil {
		return "", err
	}
	return s.Atom.ID + "-" + ir.Short(fp), nil
}

// BuildAtom constructs an uninitialized atom and its collaborators.
func BuildAtom(s Settings, id string, logger *slog.Logger) (*atom.Atom, error) {
	lat, err := lattice.New(s.Lattice.NumPoints, s.Lattice.StartPoint, s.Lattice.H)
	if err != nil {
		return nil, fmt.Errorf("%w: lattice: %v", ErrInvalidInput, err)
	}
	core, err := hf.NewCore(lat, s.Core, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	*core.Debug() = s.Debug

	excited, err := basis.New(core, s.Basis, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	cfg := s.Atom
	cfg.ID = id
	a, err := atom.New(cfg, atom.Components{
		Lattice: lat,
		Core:    core,
		Excited: excited,
		Sigma:   mbpt.New(core, excited, s.MBPT, core.Debug(), logger),
		CI:      s.CI,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return a, nil
}
