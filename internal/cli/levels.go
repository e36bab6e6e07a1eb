package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wanjj/AMBiT/internal/store"
)

// LevelsOptions holds flags for the levels command.
type LevelsOptions struct {
	*RootOptions
	Database string
	Sweep    string
}

// LevelsReport is the stored outcome of one sweep.
type LevelsReport struct {
	Sweep    SweepView    `json:"sweep"`
	Runs     []RunView    `json:"runs"`
	Levels   []LevelView  `json:"levels"`
	Energies []EnergyView `json:"energies"`
}

// SweepView is the JSON form of a stored sweep.
type SweepView struct {
	ID          string `json:"id"`
	Input       string `json:"input"`
	NumRuns     int    `json:"num_runs"`
	Fingerprint string `json:"fingerprint"`
}

// RunView is the JSON form of a stored run.
type RunView struct {
	Run    int                `json:"run"`
	AtomID string             `json:"atom_id,omitempty"`
	Status string             `json:"status"`
	Error  string             `json:"error,omitempty"`
	Masked map[string]float64 `json:"masked,omitempty"`
}

// LevelView is the JSON form of a stored level.
type LevelView struct {
	Run         int                `json:"run"`
	TwoJ        int                `json:"two_j"`
	Config      string             `json:"config"`
	Index       int                `json:"index"`
	Energy      float64            `json:"energy"`
	Leading     string             `json:"leading"`
	Corrections map[string]float64 `json:"corrections,omitempty"`
}

// EnergyView is the JSON form of a stored single-particle energy.
type EnergyView struct {
	Run    int     `json:"run"`
	State  string  `json:"state"`
	Energy float64 `json:"energy"`
}

// NewLevelsCommand creates the levels command.
func NewLevelsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LevelsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Show the levels stored for a sweep",
		Long: `Read the results of a sweep back from the database.

Prints every run of the sweep with its status, the single-particle energies of
closed-shell runs and the CI levels of each solved sector. Without --sweep the
most recently written sweep is shown.

Example:
  ambit levels --db ./ca.db
  ambit levels --db ./ca.db --sweep 0192a4b2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLevels(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Sweep, "sweep", "", "sweep ID (defaults to the latest sweep)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLevels(opts *LevelsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Opening would create a missing database.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, "database not found", opts.Database)
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	report, err := readLevels(ctx, st, opts.Sweep)
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, "sweep not found", err.Error())
		return WrapExitError(ExitCommandError, "sweep not found", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, "failed to read sweep", err.Error())
		return WrapExitError(ExitCommandError, "failed to read sweep", err)
	}

	formatter.VerboseLog("fingerprint %s", report.Sweep.Fingerprint)
	return formatter.Success(report)
}

// readLevels loads one sweep and everything recorded under it.
func readLevels(ctx context.Context, st *store.Store, sweepID string) (*LevelsReport, error) {
	var (
		sw  store.Sweep
		err error
	)
	if sweepID == "" {
		sw, err = st.LatestSweep(ctx)
	} else {
		sw, err = st.ReadSweep(ctx, sweepID)
	}
	if err != nil {
		return nil, err
	}

	runs, err := st.ReadRuns(ctx, sw.ID)
	if err != nil {
		return nil, err
	}
	levels, err := st.ReadLevels(ctx, sw.ID)
	if err != nil {
		return nil, err
	}
	energies, err := st.ReadStateEnergies(ctx, sw.ID)
	if err != nil {
		return nil, err
	}

	report := &LevelsReport{
		Sweep: SweepView{
			ID:          sw.ID,
			Input:       sw.Input,
			NumRuns:     sw.NumRuns,
			Fingerprint: sw.Fingerprint,
		},
		Runs:     make([]RunView, len(runs)),
		Levels:   make([]LevelView, len(levels)),
		Energies: make([]EnergyView, len(energies)),
	}
	for i, r := range runs {
		report.Runs[i] = RunView{Run: r.Run, AtomID: r.AtomID, Status: r.Status, Error: r.Error, Masked: r.Masked}
	}
	for i, l := range levels {
		report.Levels[i] = LevelView{
			Run:         l.Run,
			TwoJ:        l.TwoJ,
			Config:      l.Config,
			Index:       l.Index,
			Energy:      l.Energy,
			Leading:     l.Leading,
			Corrections: l.Corrections,
		}
	}
	for i, e := range energies {
		report.Energies[i] = EnergyView{Run: e.Run, State: e.State, Energy: e.Energy}
	}
	return report, nil
}

// WriteText prints each run with its energies and levels grouped by sector.
func (report *LevelsReport) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Sweep %s: %d run(s) of %s\n", report.Sweep.ID, report.Sweep.NumRuns, report.Sweep.Input)

	// Levels and energies are ordered by run, so each run consumes a prefix.
	li, ei := 0, 0
	for _, r := range report.Runs {
		writeRunHeader(w, r.Run, r.Status, r.AtomID, r.Masked)
		if r.Error != "" {
			fmt.Fprintf(w, "  %s\n", r.Error)
		}
		for ; ei < len(report.Energies) && report.Energies[ei].Run == r.Run; ei++ {
			e := report.Energies[ei]
			fmt.Fprintf(w, "  %-6s %18.10f\n", e.State, e.Energy)
		}
		lastTwoJ, lastConfig := -1, ""
		for ; li < len(report.Levels) && report.Levels[li].Run == r.Run; li++ {
			l := report.Levels[li]
			if l.TwoJ != lastTwoJ || l.Config != lastConfig {
				fmt.Fprintf(w, "  2J=%d %s\n", l.TwoJ, l.Config)
				lastTwoJ, lastConfig = l.TwoJ, l.Config
			}
			fmt.Fprintf(w, "    %3d %18.10f  %s\n", l.Index, l.Energy, l.Leading)
		}
	}
}
