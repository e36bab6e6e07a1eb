// Package harness provides scenario testing for AMBiT calculations.
//
// A scenario names an input file, optional command-line style overrides and
// the sweep options, then asserts on the sweep result and on the rows the
// sweep persisted.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	input: ca.in
//	set:
//	  - NuclearInverseMass=0.001
//	jobs: 1
//	fail_fast: false
//	size_only: false
//	assertions:
//	  - type: run_status
//	    run: 0
//	    status: ok
//	  - type: run_count
//	    status: failed
//	    count: 1
//	  - type: level_order
//	    run: 0
//	    two_j: 2
//	    config: "4s1 4p1"
//	  - type: energy_range
//	    run: 0
//	    state: 4s
//	    min: -0.5
//	    max: 0
//	  - type: final_state
//	    table: runs
//	    where: { run: 1 }
//	    expect: { status: "failed" }
//
// # Assertion Types
//
//   - run_status: the run finished with the given status and, optionally, code
//   - run_count: exactly count runs finished with the given status
//   - level_order: the sector's levels are in non-decreasing energy order
//   - energy_range: a state energy or level energy lies within [min, max]
//   - final_state: queries a store table and verifies expected values
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite database with a fixed
// sweep identifier (scenario.sweep_id, default "test-sweep-default"), so
// persisted rows and golden snapshots are identical across runs.
package harness
