package driver

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/wanjj/AMBiT/internal/atom"
	"github.com/wanjj/AMBiT/internal/ir"
	"github.com/wanjj/AMBiT/internal/params"
	"github.com/wanjj/AMBiT/internal/store"
)

// Policy decides what a failed run does to the rest of the sweep.
type Policy int

const (
	// ContinueOnError records the failure and runs the remaining runs.
	ContinueOnError Policy = iota

	// FailFast stops the sweep at the first failed run.
	FailFast
)

func (p Policy) String() string {
	if p == FailFast {
		return "fail-fast"
	}
	return "continue"
}

// RunResult is the outcome of one run.
type RunResult struct {
	Run         int                `json:"run"`
	AtomID      string             `json:"atom_id"`
	Fingerprint string             `json:"fingerprint"`
	Masked      map[string]float64 `json:"masked"`
	Status      string             `json:"status"`
	Error       string             `json:"error,omitempty"`
	Code        RunErrorCode       `json:"code,omitempty"`

	// Seq orders runs by completion.
	Seq int64 `json:"-"`

	Sectors  []SectorResult `json:"sectors,omitempty"`
	Energies []StateEnergy  `json:"energies,omitempty"`

	err error
}

// Err returns the run's failure, or nil.
func (r *RunResult) Err() error { return r.err }

// SweepResult is the outcome of a sweep. Runs is ordered by run index.
type SweepResult struct {
	SweepID     string      `json:"sweep_id"`
	NumRuns     int         `json:"num_runs"`
	Fingerprint string      `json:"fingerprint"`
	Runs        []RunResult `json:"runs"`
}

// Failed returns the number of runs that did not succeed.
func (s *SweepResult) Failed() int {
	n := 0
	for _, r := range s.Runs {
		if r.Status != store.StatusOK {
			n++
		}
	}
	return n
}

// Driver executes a multirun sweep.
//
// Thread-safety: a Driver runs one sweep at a time.
type Driver struct {
	opts        *params.Options
	logger      *slog.Logger
	store       *store.Store
	gen         SweepIDGenerator
	clock       *Clock
	policy      Policy
	parallelism int
	read        bool
	sizeOnly    bool
	input       string
}

// Option configures a Driver.
type Option func(*Driver)

// WithStore persists atom states, sweeps, runs and levels to st.
func WithStore(st *store.Store) Option {
	return func(d *Driver) { d.store = st }
}

// WithSweepIDGenerator replaces the UUIDv7 sweep identifiers.
func WithSweepIDGenerator(gen SweepIDGenerator) Option {
	return func(d *Driver) { d.gen = gen }
}

// WithPolicy sets the failure policy. Default: ContinueOnError.
func WithPolicy(p Policy) Option {
	return func(d *Driver) { d.policy = p }
}

// WithParallelism runs up to n runs concurrently. Default: 1.
// Each run gets its own options snapshot and atom.
func WithParallelism(n int) Option {
	return func(d *Driver) {
		if n < 1 {
			n = 1
		}
		d.parallelism = n
	}
}

// WithReadState reads stored atom states instead of recomputing the core
// and basis when the store holds one for the run's identifier.
func WithReadState(read bool) Option {
	return func(d *Driver) { d.read = read }
}

// WithSizeOnly forces the size-only CI pass regardless of CI/SizeOnly.
func WithSizeOnly(sizeOnly bool) Option {
	return func(d *Driver) { d.sizeOnly = sizeOnly }
}

// WithInput records the input name with the sweep.
func WithInput(name string) Option {
	return func(d *Driver) { d.input = name }
}

// New creates a driver over opts.
func New(opts *params.Options, logger *slog.Logger, options ...Option) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Driver{
		opts:        opts,
		logger:      logger,
		gen:         UUIDv7Generator{},
		clock:       NewClock(),
		parallelism: 1,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Run executes every run of the sweep.
//
// A fatal configuration error aborts the sweep and is returned with a nil
// result. Under FailFast the first failed run stops the sweep and its
// *RunError is returned together with the partial result; runs that never
// started are reported as skipped.
func (d *Driver) Run(ctx context.Context) (*SweepResult, error) {
	plan, err := NewPlan(d.opts)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{
		SweepID:     d.gen.Generate(),
		NumRuns:     plan.NumRuns,
		Fingerprint: plan.Fingerprint,
		Runs:        make([]RunResult, plan.NumRuns),
	}
	logger := d.logger.With("sweep", result.SweepID)
	logger.Info("sweep started", "num_runs", plan.NumRuns, "parallelism", d.parallelism, "policy", d.policy.String())

	if d.store != nil {
		err := d.store.WriteSweep(ctx, store.Sweep{
			ID:          result.SweepID,
			Input:       d.input,
			NumRuns:     plan.NumRuns,
			Fingerprint: plan.Fingerprint,
		})
		if err != nil {
			return nil, err
		}
	}

	for i := range result.Runs {
		result.Runs[i] = RunResult{Run: i, Masked: plan.Runs[i], Status: store.StatusSkipped}
	}

	if d.parallelism > 1 {
		err = d.runParallel(ctx, result, logger)
	} else {
		err = d.runSequential(ctx, result, logger)
	}
	if params.IsFatal(err) {
		return nil, err
	}

	if d.store != nil {
		// Runs a fail-fast sweep never reached are recorded as skipped.
		for i := range result.Runs {
			if r := &result.Runs[i]; r.Status == store.StatusSkipped {
				if perr := d.persist(context.WithoutCancel(ctx), result.SweepID, r); perr != nil && err == nil {
					err = perr
				}
			}
		}
	}

	logger.Info("sweep finished", "failed", result.Failed(), "num_runs", plan.NumRuns)
	return result, err
}

func (d *Driver) runSequential(ctx context.Context, result *SweepResult, logger *slog.Logger) error {
	var prev *atom.Atom
	var prevFingerprint string

	for i := range result.Runs {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap, err := d.opts.ForRun(i)
		if err != nil {
			return err
		}

		a, fp, err := d.run(ctx, result.SweepID, snap, &result.Runs[i], prev, prevFingerprint, logger)
		if err != nil {
			return err
		}
		if result.Runs[i].Status == store.StatusOK {
			prev, prevFingerprint = a, fp
		} else {
			prev, prevFingerprint = nil, ""
			if d.policy == FailFast {
				return result.Runs[i].err
			}
		}
	}
	return nil
}

func (d *Driver) runParallel(ctx context.Context, result *SweepResult, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallelism)

	for i := range result.Runs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			snap, err := d.opts.ForRun(i)
			if err != nil {
				return err
			}
			// Each goroutine writes only its own slot.
			if _, _, err := d.run(gctx, result.SweepID, snap, &result.Runs[i], nil, "", logger); err != nil {
				return err
			}
			if result.Runs[i].Status != store.StatusOK && d.policy == FailFast {
				return result.Runs[i].err
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return err
}

// run executes one run into res and persists it. The returned error is
// fatal to the sweep; run failures are recorded in res instead.
func (d *Driver) run(
	ctx context.Context,
	sweepID string,
	snap *params.Options,
	res *RunResult,
	prev *atom.Atom,
	prevFingerprint string,
	logger *slog.Logger,
) (*atom.Atom, string, error) {
	logger = logger.With("run", res.Run)
	a, fp, runErr := d.execute(ctx, snap, res, prev, prevFingerprint, logger)

	res.Seq = d.clock.Next()
	if runErr != nil {
		re := newRunError(res.Run, runErr)
		res.Status = store.StatusFailed
		res.Error = runErr.Error()
		res.Code = re.Code
		res.err = re
		logger.Warn("run failed", "code", string(re.Code), "error", runErr)
	} else {
		res.Status = store.StatusOK
		logger.Info("run finished", "atom", res.AtomID, "seq", res.Seq)
	}

	if d.store != nil {
		if err := d.persist(context.WithoutCancel(ctx), sweepID, res); err != nil {
			return nil, "", err
		}
	}
	return a, fp, nil
}

func (d *Driver) execute(
	ctx context.Context,
	snap *params.Options,
	res *RunResult,
	prev *atom.Atom,
	prevFingerprint string,
	logger *slog.Logger,
) (*atom.Atom, string, error) {
	settings, err := ReadSettings(snap)
	if err != nil {
		return nil, "", err
	}
	if d.sizeOnly {
		settings.Pipeline.SizeOnly = true
	}

	fp, err := settings.Fingerprint()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	res.Fingerprint = fp
	res.AtomID = settings.Atom.ID + "-" + ir.Short(fp)

	a := prev
	if prev == nil || fp != prevFingerprint {
		if a, err = BuildAtom(settings, res.AtomID, logger); err != nil {
			return nil, "", err
		}
	} else {
		logger.Info("reusing atom", "atom", res.AtomID)
	}

	x := &executor{pipeline: settings.Pipeline, store: d.store, read: d.read, logger: logger}
	out, err := x.execute(ctx, a)
	if err != nil {
		return nil, "", err
	}
	res.Sectors = out.sectors
	res.Energies = out.energies
	return a, fp, nil
}

// persist writes one run with its levels and energies.
func (d *Driver) persist(ctx context.Context, sweepID string, res *RunResult) error {
	run := store.Run{
		SweepID:     sweepID,
		Run:         res.Run,
		AtomID:      res.AtomID,
		Fingerprint: res.Fingerprint,
		Status:      res.Status,
		Error:       res.Error,
		Masked:      res.Masked,
	}

	var levels []store.Level
	for _, sec := range res.Sectors {
		for k, l := range sec.Levels {
			levels = append(levels, store.Level{
				SweepID:     sweepID,
				Run:         res.Run,
				TwoJ:        sec.TwoJ,
				Config:      sec.Config,
				Index:       k,
				Energy:      l.Energy,
				Leading:     l.Leading,
				Corrections: l.Corrections,
			})
		}
	}
	energies := make([]store.StateEnergy, len(res.Energies))
	for i, e := range res.Energies {
		energies[i] = store.StateEnergy{SweepID: sweepID, Run: res.Run, State: e.State, Energy: e.Energy}
	}

	if err := d.store.WriteRun(ctx, run, levels, energies); err != nil {
		return fmt.Errorf("persist run %d: %w", res.Run, err)
	}
	return nil
}
