package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a calculation scenario: one sweep over an input file
// with assertions on its outcome.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Input is the GetPot or CUE input file.
	// Relative paths are resolved against the scenario file location.
	Input string `yaml:"input"`

	// Set holds key=value overrides applied on top of Input.
	Set []string `yaml:"set,omitempty"`

	// Jobs is the number of runs executed concurrently. Zero means one.
	Jobs int `yaml:"jobs,omitempty"`

	// FailFast stops the sweep at the first failed run.
	FailFast bool `yaml:"fail_fast,omitempty"`

	// SizeOnly reports CI dimensions without diagonalising.
	SizeOnly bool `yaml:"size_only,omitempty"`

	// Assertions validate the sweep result and the persisted rows.
	Assertions []Assertion `yaml:"assertions"`

	// SweepID is an optional fixed sweep identifier.
	// If empty, defaults to "test-sweep-default" for golden file comparison.
	SweepID string `yaml:"sweep_id,omitempty"`
}

// Assertion validates the sweep result or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "run_status": Check a run's status and error code
	// - "run_count": Check how many runs have a status
	// - "level_order": Check a sector's levels are ordered by energy
	// - "energy_range": Check an energy lies within [min, max]
	// - "final_state": Query table and verify expected values
	Type string `yaml:"type"`

	// Run is the run index (used by run_status, level_order, energy_range).
	Run int `yaml:"run,omitempty"`

	// Status is the expected run status (used by run_status, run_count).
	Status string `yaml:"status,omitempty"`

	// Code is the expected run error code (used by run_status).
	Code string `yaml:"code,omitempty"`

	// Count is the expected number of runs (used by run_count).
	Count int `yaml:"count,omitempty"`

	// TwoJ and Config select a CI sector (used by level_order and
	// energy_range).
	TwoJ   int    `yaml:"two_j,omitempty"`
	Config string `yaml:"config,omitempty"`

	// Index selects a level within the sector (used by energy_range).
	Index int `yaml:"index,omitempty"`

	// State selects a single-particle energy (used by energy_range).
	State string `yaml:"state,omitempty"`

	// Min and Max bound the energy (used by energy_range).
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// Table is the store table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertRunStatus   = "run_status"
	AssertRunCount    = "run_count"
	AssertLevelOrder  = "level_order"
	AssertEnergyRange = "energy_range"
	AssertFinalState  = "final_state"
)

// LoadScenario reads and parses a scenario YAML file, resolving the input
// path relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the input path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Input != "" && !filepath.IsAbs(scenario.Input) && basePath != "" {
		scenario.Input = filepath.Join(basePath, scenario.Input)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Input == "" {
		return fmt.Errorf("input is required")
	}
	if _, err := os.Stat(s.Input); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", s.Input)
	}
	if s.Jobs < 0 {
		return fmt.Errorf("jobs must be non-negative")
	}
	for i, set := range s.Set {
		if key, _, ok := strings.Cut(set, "="); !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("set[%d]: expected key=value, got %q", i, set)
		}
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRunStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for run_status", index)
		}
	case AssertRunCount:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for run_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for run_count", index)
		}
	case AssertLevelOrder:
		if a.Config == "" {
			return fmt.Errorf("assertions[%d]: config is required for level_order", index)
		}
	case AssertEnergyRange:
		if (a.State == "") == (a.Config == "") {
			return fmt.Errorf("assertions[%d]: exactly one of state or config is required for energy_range", index)
		}
		if a.Min == nil && a.Max == nil {
			return fmt.Errorf("assertions[%d]: min or max is required for energy_range", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
