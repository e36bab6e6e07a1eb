package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/wanjj/AMBiT/internal/driver"
	"github.com/wanjj/AMBiT/internal/params"
	"github.com/wanjj/AMBiT/internal/store"
	"github.com/wanjj/AMBiT/internal/testutil"
)

// Harness runs scenarios with a fixed sweep identifier against a private
// store.
type Harness struct {
	store  *store.Store
	gen    *testutil.FixedSweepGenerator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the input file and apply the overrides
// 3. Run the sweep
// 4. Evaluate assertions against the sweep result and the store
//
// An error is returned only if the scenario could not be executed; failed
// runs and failed assertions are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		gen:    testutil.NewFixedSweepGenerator(scenario.SweepID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	opts, err := loadOptions(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	sweep, err := h.sweep(ctx, scenario, opts)
	if params.IsFatal(err) {
		return nil, fmt.Errorf("sweep aborted: %w", err)
	}
	// A fail-fast sweep returns the failed run's error with the partial
	// result; assertions decide whether that was expected.
	if err != nil && !driver.IsRunError(err) {
		return nil, fmt.Errorf("sweep failed: %w", err)
	}
	result.Sweep = sweep

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness) sweep(ctx context.Context, scenario *Scenario, opts *params.Options) (*driver.SweepResult, error) {
	options := []driver.Option{
		driver.WithStore(h.store),
		driver.WithSweepIDGenerator(h.gen),
		driver.WithInput(scenario.Name),
		driver.WithParallelism(scenario.Jobs),
	}
	if scenario.FailFast {
		options = append(options, driver.WithPolicy(driver.FailFast))
	}
	if scenario.SizeOnly {
		options = append(options, driver.WithSizeOnly(true))
	}

	h.logger.Info("scenario started", "name", scenario.Name, "input", scenario.Input)
	return driver.New(opts, h.logger, options...).Run(ctx)
}

// loadOptions reads the scenario input and applies its overrides.
func loadOptions(scenario *Scenario) (*params.Options, error) {
	values, err := params.LoadFile(scenario.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to load input: %w", err)
	}
	if len(scenario.Set) > 0 {
		overrides, err := params.ParseArgs(scenario.Set)
		if err != nil {
			return nil, fmt.Errorf("failed to parse overrides: %w", err)
		}
		values = values.Merge(overrides)
	}
	opts, err := params.New(values, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return nil, fmt.Errorf("sweep aborted: %w", err)
	}
	return opts, nil
}
