package harness

import (
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/wanjj/AMBiT/internal/driver"
	"github.com/wanjj/AMBiT/internal/ir"
)

// SnapshotDigits is the number of significant digits energies keep in a
// snapshot. Differences below it are floating-point noise between
// platforms, not regressions.
const SnapshotDigits = 9

// Snapshot renders a sweep result as canonical JSON for golden comparison.
// Energies are rounded to SnapshotDigits significant digits.
func Snapshot(scenarioName string, sweep *driver.SweepResult) ([]byte, error) {
	runs := make(ir.Array, len(sweep.Runs))
	for i, r := range sweep.Runs {
		run := ir.Object{
			"run":     ir.Int(r.Run),
			"status":  ir.String(r.Status),
			"atom_id": ir.String(r.AtomID),
			"masked":  ir.FloatMap(r.Masked),
		}
		if r.Code != "" {
			run["code"] = ir.String(r.Code)
		}

		sectors := make(ir.Array, len(r.Sectors))
		for j, sec := range r.Sectors {
			levels := make(ir.Array, len(sec.Levels))
			for k, l := range sec.Levels {
				level := ir.Object{
					"energy":  ir.Float(round(l.Energy)),
					"leading": ir.String(l.Leading),
				}
				if len(l.Corrections) > 0 {
					corrections := make(map[string]float64, len(l.Corrections))
					for kind, d := range l.Corrections {
						corrections[kind] = round(d)
					}
					level["corrections"] = ir.FloatMap(corrections)
				}
				levels[k] = level
			}
			sectors[j] = ir.Object{
				"two_j":     ir.Int(sec.TwoJ),
				"config":    ir.String(sec.Config),
				"dimension": ir.Int(sec.Dimension),
				"levels":    levels,
			}
		}
		run["sectors"] = sectors

		energies := make(ir.Object, len(r.Energies))
		for _, e := range r.Energies {
			energies[e.State] = ir.Float(round(e.Energy))
		}
		run["energies"] = energies
		runs[i] = run
	}

	return ir.MarshalCanonical(ir.Object{
		"scenario_name": ir.String(scenarioName),
		"sweep_id":      ir.String(sweep.SweepID),
		"num_runs":      ir.Int(sweep.NumRuns),
		"runs":          runs,
	})
}

func round(f float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', SnapshotDigits, 64), 64)
	if err != nil {
		return f
	}
	return r
}

// RunWithGolden executes a scenario and compares the sweep snapshot against
// a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's sweep against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result.Sweep)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
