package store

import "errors"

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("store: not found")

// Run statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// AtomState is the serialised core and basis of one atom.
type AtomState struct {
	ID     string
	Z      float64
	Charge int

	// State is canonical JSON.
	State string

	// Digest is the content hash of State.
	Digest string

	// Seq is assigned on write.
	Seq int64
}

// Sweep is one multirun execution over an input.
type Sweep struct {
	ID          string
	Input       string
	NumRuns     int
	Fingerprint string

	// Seq is assigned on write.
	Seq int64
}

// Run is the outcome of one run of a sweep.
type Run struct {
	SweepID     string
	Run         int
	AtomID      string
	Fingerprint string
	Status      string
	Error       string

	// Masked holds the value each multirun key took in this run.
	Masked map[string]float64
}

// Level is one CI eigenvalue of a solved sector.
type Level struct {
	SweepID string
	Run     int
	TwoJ    int
	Config  string
	Index   int
	Energy  float64
	Leading string

	// Corrections holds the shift each applied correction contributed.
	Corrections map[string]float64
}

// StateEnergy is the single-particle energy of one state in a closed-shell
// run, corrections included.
type StateEnergy struct {
	SweepID string
	Run     int
	State   string
	Energy  float64
}
