// Package driver runs a multirun sweep.
//
// For every run index the driver takes a snapshot of the options with that
// run selected, reads the atom and pipeline settings from it, builds (or,
// in a sequential sweep with unchanged physical parameters, reuses) an
// atom, executes the pipeline and records a RunResult. Every scalar read
// made while building the atom therefore sees the run's value of each
// multirun key.
//
// # Pipeline
//
//  1. Read the stored core and basis when requested, else converge the
//     core and build the basis named by Basis/Type.
//  2. Without CI/LeadingConfigurations: apply the closed-shell corrections
//     and report every single-particle energy.
//  3. Otherwise: size every sector first, refuse the run if any sector
//     exceeds CI/MaxMatrixSize, then solve each sector and apply the
//     open-shell corrections.
//
// # Failure policy
//
// Fatal configuration errors (params.IsFatal) abort the sweep. Any other
// failure is confined to its run; with FailFast the sweep stops at the
// first failed run, otherwise it continues.
package driver
