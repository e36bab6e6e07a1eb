package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wanjj/AMBiT/internal/driver"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Set []string
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <input> [key=value...]",
		Short: "Show the runs a sweep would execute",
		Long: `Expand the multirun configuration of an input file without computing.

Prints the run count, the multirun keys and the value each key takes in every
run, together with the sweep fingerprint. Inconsistent multirun vectors are
reported exactly as 'ambit run' would report them.

Example:
  ambit plan ca.input
  ambit plan ca.input Multirun=NuclearInverseMass NuclearInverseMass='-0.001, 0, 0.001'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "override an input value (key=value, repeatable)")

	return cmd
}

func runPlan(opts *PlanOptions, inputPath string, extra []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	overrides := append(append([]string{}, opts.Set...), extra...)
	paramOpts, err := LoadInput(inputPath, overrides, logger)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), "failed to load input", err.Error())
		return WrapExitError(ExitCommandError, "failed to load input", err)
	}

	plan, err := driver.NewPlan(paramOpts)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, "failed to expand runs", err.Error())
		return WrapExitError(ExitCommandError, "failed to expand runs", err)
	}

	return formatter.Success(planReport{plan})
}

// planReport renders a plan as text; its JSON form is the plan itself.
type planReport struct {
	*driver.Plan
}

func (r planReport) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Runs: %d\n", r.NumRuns)
	if len(r.Keys) > 0 {
		fmt.Fprintf(w, "Multirun: %s\n", strings.Join(r.Keys, ", "))
	}
	fmt.Fprintf(w, "Fingerprint: %s\n", r.Fingerprint)
	for i, masked := range r.Runs {
		if m := formatMasked(masked); m != "" {
			fmt.Fprintf(w, "  run %d: %s\n", i, m)
		} else {
			fmt.Fprintf(w, "  run %d\n", i)
		}
	}
}
