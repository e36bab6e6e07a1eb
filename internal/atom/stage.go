package atom

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Stage is the position of an atom in the calculation pipeline.
//
//	Uninitialized → HFConverged → BasisBuilt → ClosedShellCorrected
//	                                         → CISolved → OpenShellCorrected
//
// Rebuilding the basis returns to BasisBuilt and drops all downstream
// state.
type Stage int

const (
	StageUninitialized Stage = iota
	StageHFConverged
	StageBasisBuilt
	StageClosedShellCorrected
	StageCISolved
	StageOpenShellCorrected
)

var stageNames = [...]string{
	StageUninitialized:        "Uninitialized",
	StageHFConverged:          "HFConverged",
	StageBasisBuilt:           "BasisBuilt",
	StageClosedShellCorrected: "ClosedShellCorrected",
	StageCISolved:             "CISolved",
	StageOpenShellCorrected:   "OpenShellCorrected",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// StageError is returned when an operation is called in a stage that does
// not satisfy its prerequisites.
type StageError struct {
	// Op is the rejected operation.
	Op string

	// Stage is the atom's stage at the time of the call.
	Stage Stage

	// Allowed lists the stages the operation accepts.
	Allowed []Stage
}

func (e *StageError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = s.String()
	}
	return fmt.Sprintf("atom: %s not allowed in stage %s (requires %s)", e.Op, e.Stage, strings.Join(allowed, " or "))
}

// IsStageError reports whether err is (or wraps) a *StageError.
func IsStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}

var (
	// ErrNotComputed is returned by GetEnergy for a state with no energy.
	ErrNotComputed = errors.New("atom: energy not computed")

	// ErrNoSector is returned by an open-shell correction for a sector that
	// has not been solved on the current basis.
	ErrNoSector = errors.New("atom: sector not solved")
)

// require returns a StageError unless the atom is in one of allowed.
func (a *Atom) require(op string, allowed ...Stage) error {
	if slices.Contains(allowed, a.stage) {
		return nil
	}
	return &StageError{Op: op, Stage: a.stage, Allowed: allowed}
}
