// Package ir provides the canonical value representation used for content
// fingerprints: run plans, per-run physical parameters and stored atom
// states are converted to Values, serialized with MarshalCanonical and hashed
// with a domain prefix.
//
// This package imports nothing internal.
//
// Key constraints:
//   - Object keys are ordered by UTF-16 code units (RFC 8785)
//   - Strings are NFC normalized at the serialization boundary
//   - Floats are written in their shortest round-trip form; NaN and Inf are
//     rejected, and negative zero is written as 0
package ir
