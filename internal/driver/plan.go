package driver

import (
	"github.com/wanjj/AMBiT/internal/ir"
	"github.com/wanjj/AMBiT/internal/params"
)

// Plan is the run table of a sweep.
type Plan struct {
	NumRuns int      `json:"num_runs"`
	Keys    []string `json:"keys"`

	// Runs holds each run's masked values.
	Runs []map[string]float64 `json:"runs"`

	// Fingerprint covers every input value and the run table.
	Fingerprint string `json:"fingerprint"`
}

// NewPlan derives the run table from opts.
func NewPlan(opts *params.Options) (*Plan, error) {
	p := &Plan{
		NumRuns: opts.NumRuns(),
		Keys:    opts.MultirunKeys(),
		Runs:    make([]map[string]float64, opts.NumRuns()),
	}

	runs := make(ir.Array, p.NumRuns)
	for i := range p.NumRuns {
		snap, err := opts.ForRun(i)
		if err != nil {
			return nil, err
		}
		p.Runs[i] = snap.Masked()
		runs[i] = ir.FloatMap(p.Runs[i])
	}

	values := opts.Values()
	inputs := make(ir.Object, values.Len())
	for _, key := range values.Keys() {
		inputs[key] = ir.Strings(values.Strings(key))
	}

	fp, err := ir.PlanFingerprint(ir.Object{
		"num_runs": ir.Int(p.NumRuns),
		"keys":     ir.Strings(p.Keys),
		"inputs":   inputs,
		"runs":     runs,
	})
	if err != nil {
		return nil, err
	}
	p.Fingerprint = fp
	return p, nil
}
