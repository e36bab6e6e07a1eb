// Package params provides the calculation's parameter store.
//
// Input is read into a Values store (GetPot-style text or CUE). Options wraps
// a Values store and masks the keys named by the "Multirun" vector: for those
// keys a scalar Float read returns the value belonging to the currently
// selected run instead of the stored scalar. For example
//
//	Multirun = 'NuclearInverseMass, MBPT/Delta'
//	NuclearInverseMass = '-0.001, 0.0, 0.001'
//	MBPT/Delta = '0.62, 0.65, 0.68'
//
// describes three runs; on the first run Float("NuclearInverseMass", 0.0)
// returns -0.001 whatever the default.
//
// # Error Tiers
//
// Inconsistent multirun configuration (vectors of different lengths, run
// selection out of range, absorbing an option set with a different run count)
// is reported as a *ConfigError. These are fatal: callers must not continue a
// sweep past them. Benign anomalies (a named key that is missing or has a
// single value) are logged as warnings and the key is left unmasked.
//
// # Concurrency
//
// Options is not safe for concurrent SetRun. Use ForRun to give each
// concurrent run its own snapshot; snapshots share the read-only Values.
package params
