package driver

import "github.com/google/uuid"

// SweepIDGenerator generates sweep identifiers.
// Implemented by UUIDv7Generator (production) and
// testutil.FixedSweepGenerator (tests).
type SweepIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 sweep identifiers.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
