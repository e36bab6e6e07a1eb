package hf

import "errors"

var (
	// ErrNotConverged is returned when the SCF iteration exhausts
	// MaxIterations without meeting the tolerance.
	ErrNotConverged = errors.New("hf: self-consistent field did not converge")

	// ErrNotInCore is returned when an ionised core is requested for a state
	// the core does not occupy.
	ErrNotInCore = errors.New("hf: state not occupied in core")

	// ErrCoreOccupied is returned when a valence orbital is requested for a
	// closed core shell.
	ErrCoreOccupied = errors.New("hf: state is a closed core shell")
)
