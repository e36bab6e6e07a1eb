package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wanjj/AMBiT/internal/driver"
	"github.com/wanjj/AMBiT/internal/params"
	"github.com/wanjj/AMBiT/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Jobs     int
	FailFast bool
	SizeOnly bool
	Read     bool
	Set      []string

	// SweepGenerator allows overriding the sweep ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	SweepGenerator driver.SweepIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <input> [key=value...]",
		Short: "Run every calculation of a multirun sweep",
		Long: `Run the sweep described by an input file.

The input is a GetPot file (or a .cue file). Trailing key=value arguments and
--set flags override values from the file. Each run of the sweep builds and
solves its atom independently; a failed run is recorded and the sweep moves
on unless --fail-fast is given.

Results are written to the SQLite database given by --db (created if it does
not exist).

Example:
  ambit run --db ./ca.db ca.input
  ambit run --db ./ca.db ca.input NuclearInverseMass=0.001 --jobs 4
  ambit run --db ./ca.db ca.input --size-only --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 1, "number of runs to execute in parallel")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop the sweep at the first failed run")
	cmd.Flags().BoolVar(&opts.SizeOnly, "size-only", false, "report CI matrix sizes without diagonalising")
	cmd.Flags().BoolVar(&opts.Read, "read", false, "reuse atom state stored under the same identifier")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "override an input value (key=value, repeatable)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// newLogger configures the default slog logger based on the verbose flag.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func runSweep(opts *RunOptions, inputPath string, extra []string, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Jobs < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--jobs must be at least 1, got %d", opts.Jobs))
	}

	// Load input
	logger.Info("loading input", "path", inputPath)
	overrides := append(append([]string{}, opts.Set...), extra...)
	paramOpts, err := LoadInput(inputPath, overrides, logger)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), "failed to load input", err.Error())
		return WrapExitError(ExitCommandError, "failed to load input", err)
	}
	logger.Info("input loaded", "runs", paramOpts.NumRuns(), "multirun", paramOpts.MultirunKeys())

	// Open database (create if not exists)
	logger.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	gen := opts.SweepGenerator
	if gen == nil {
		gen = driver.UUIDv7Generator{}
	}
	options := []driver.Option{
		driver.WithStore(st),
		driver.WithSweepIDGenerator(gen),
		driver.WithParallelism(opts.Jobs),
		driver.WithReadState(opts.Read),
		driver.WithSizeOnly(opts.SizeOnly),
		driver.WithInput(inputPath),
	}
	if opts.FailFast {
		options = append(options, driver.WithPolicy(driver.FailFast))
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping sweep", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	result, err := driver.New(paramOpts, logger, options...).Run(ctx)
	if params.IsFatal(err) {
		_ = formatter.Error(ErrCodeConfig, "sweep aborted", err.Error())
		return WrapExitError(ExitCommandError, "sweep aborted", err)
	}
	if result == nil {
		if err == nil {
			err = errors.New("no result")
		}
		return WrapExitError(ExitFailure, "sweep failed", err)
	}

	if err := writeSweep(formatter, result); err != nil {
		return err
	}

	if err != nil && !driver.IsRunError(err) {
		return WrapExitError(ExitFailure, "sweep interrupted", err)
	}
	if failed := result.Failed(); failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d run(s) did not complete", failed, result.NumRuns))
	}
	return nil
}

// writeSweep prints a sweep result in the configured format. JSON output
// carries ErrCodeRunFailed when any run did not complete.
func writeSweep(f *OutputFormatter, result *driver.SweepResult) error {
	f.VerboseLog("fingerprint %s", result.Fingerprint)
	if !f.JSON() {
		return f.Success(sweepReport{result})
	}
	resp := CLIResponse{Status: "ok", Data: result, SweepID: result.SweepID}
	if failed := result.Failed(); failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeRunFailed,
			Message: fmt.Sprintf("%d of %d run(s) did not complete", failed, result.NumRuns),
		}
	}
	return f.Respond(resp)
}

// sweepReport renders a finished sweep as text.
type sweepReport struct {
	*driver.SweepResult
}

func (r sweepReport) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Sweep %s: %d run(s)\n", r.SweepID, r.NumRuns)
	for _, run := range r.Runs {
		writeRunHeader(w, run.Run, run.Status, run.AtomID, run.Masked)
		if run.Error != "" {
			fmt.Fprintf(w, "  %s: %s\n", run.Code, run.Error)
		}
		for _, e := range run.Energies {
			fmt.Fprintf(w, "  %-6s %18.10f\n", e.State, e.Energy)
		}
		for _, sec := range run.Sectors {
			fmt.Fprintf(w, "  2J=%d %s (dimension %d)\n", sec.TwoJ, sec.Config, sec.Dimension)
			for i, l := range sec.Levels {
				fmt.Fprintf(w, "    %3d %18.10f  %s\n", i, l.Energy, l.Leading)
			}
		}
	}
}

// writeRunHeader prints the one-line summary of a run.
func writeRunHeader(w io.Writer, run int, status, atomID string, masked map[string]float64) {
	mark := "✓"
	if status != store.StatusOK {
		mark = "✗"
	}
	line := fmt.Sprintf("%s run %d %s", mark, run, status)
	if atomID != "" {
		line += " " + atomID
	}
	if m := formatMasked(masked); m != "" {
		line += " [" + m + "]"
	}
	fmt.Fprintln(w, line)
}

// formatMasked renders masked values as sorted key=value pairs.
func formatMasked(masked map[string]float64) string {
	keys := make([]string, 0, len(masked))
	for k := range masked {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, masked[k])
	}
	return strings.Join(parts, " ")
}
