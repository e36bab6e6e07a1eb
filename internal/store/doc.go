// Package store provides SQLite-backed storage for AMBiT results.
//
// Tables:
//   - atom_states: core and basis orbitals keyed by atom identifier
//   - sweeps: one row per multirun sweep
//   - runs: per-run status, atom identifier and masked parameter values
//   - levels: CI level energies of each solved sector
//   - state_energies: single-particle energies of closed-shell runs
//
// All ordering uses logical sequence numbers and run indices, never
// timestamps, so two sweeps over the same input read back identically.
// Maps (masked values, corrections) are stored as canonical JSON via
// internal/ir.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
