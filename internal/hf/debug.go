package hf

// Debug selects per-stage debug output. Flags are read from the Debug/*
// input keys and consulted by the stage that owns them.
type Debug struct {
	HF    bool `json:"hf"`
	Basis bool `json:"basis"`
	MBPT  bool `json:"mbpt"`
	CI    bool `json:"ci"`
}

// Any reports whether any flag is set.
func (d *Debug) Any() bool {
	return d.HF || d.Basis || d.MBPT || d.CI
}
