package testutil

// FixedSweepGenerator returns the same sweep ID every time.
//
// This keeps persisted sweep records and golden reports byte-identical
// across test runs.
//
// Thread-safety: FixedSweepGenerator is stateless and safe for concurrent use.
type FixedSweepGenerator struct {
	id string
}

// NewFixedSweepGenerator creates a generator returning id.
// If id is empty, Generate() returns "test-sweep-default".
func NewFixedSweepGenerator(id string) *FixedSweepGenerator {
	if id == "" {
		id = "test-sweep-default"
	}
	return &FixedSweepGenerator{id: id}
}

// Generate returns the fixed sweep ID.
//
// Implements driver.SweepIDGenerator.
func (g *FixedSweepGenerator) Generate() string {
	return g.id
}
