package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path         string
	ResolvedPath string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist (resolved to: %s)", e.Path, e.ResolvedPath)
}

// ExtractScenarios expands path into scenario files. A file is returned
// as is; a directory yields its *.yaml and *.yml files in name order.
func ExtractScenarios(path string) ([]string, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		resolved = path
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path, ResolvedPath: resolved}
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// SuiteResult summarises a scenario suite.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure records one failed scenario.
type ScenarioFailure struct {
	Scenario     string `json:"scenario,omitempty"`
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// RunSuite loads and runs every scenario under paths.
//
// For each scenario file:
// 1. Load the scenario (input resolved relative to the file)
// 2. Run it via RunContext
// 3. Collect and report results
//
// A missing path is recorded as a failure rather than aborting the suite.
func RunSuite(ctx context.Context, paths []string) (*SuiteResult, error) {
	result := &SuiteResult{}

	for _, path := range paths {
		files, err := ExtractScenarios(path)
		if err != nil {
			result.TotalScenarios++
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				ScenarioPath: path,
				Error:        err.Error(),
			})
			continue
		}

		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			result.TotalScenarios++

			scenario, err := LoadScenario(file)
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, ScenarioFailure{
					ScenarioPath: file,
					Error:        fmt.Sprintf("failed to load scenario: %v", err),
				})
				continue
			}

			runResult, err := RunContext(ctx, scenario)
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, ScenarioFailure{
					Scenario:     scenario.Name,
					ScenarioPath: file,
					Error:        fmt.Sprintf("scenario execution failed: %v", err),
				})
				continue
			}

			if !runResult.Pass {
				result.Failed++
				result.Failures = append(result.Failures, ScenarioFailure{
					Scenario:     scenario.Name,
					ScenarioPath: file,
					Error:        fmt.Sprintf("scenario assertions failed: %v", runResult.Errors),
				})
				continue
			}

			result.Passed++
		}
	}

	return result, nil
}
