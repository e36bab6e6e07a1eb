package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/wanjj/AMBiT/internal/atom"
	"github.com/wanjj/AMBiT/internal/ci"
	"github.com/wanjj/AMBiT/internal/hf"
)

// ErrInvalidInput marks settings that cannot be read from the options.
var ErrInvalidInput = errors.New("invalid input")

// RunErrorCode categorizes run failures.
type RunErrorCode string

const (
	// ErrCodeInvalidInput indicates a missing or malformed setting.
	ErrCodeInvalidInput RunErrorCode = "INVALID_INPUT"

	// ErrCodeNotConverged indicates the core did not converge.
	ErrCodeNotConverged RunErrorCode = "NOT_CONVERGED"

	// ErrCodeQuotaExceeded indicates a sector above CI/MaxMatrixSize.
	ErrCodeQuotaExceeded RunErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeEmptySector indicates a sector with no determinants.
	ErrCodeEmptySector RunErrorCode = "EMPTY_SECTOR"

	// ErrCodeStage indicates a pipeline operation called out of order.
	ErrCodeStage RunErrorCode = "STAGE"

	// ErrCodeCanceled indicates the sweep context ended before the run
	// finished.
	ErrCodeCanceled RunErrorCode = "CANCELED"

	// ErrCodeNumerical covers every other failure of the calculation.
	ErrCodeNumerical RunErrorCode = "NUMERICAL"
)

// RunError is the failure of one run.
type RunError struct {
	Code RunErrorCode
	Run  int
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: run %d: %v", e.Code, e.Run, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsRunError reports whether err is (or wraps) a *RunError.
func IsRunError(err error) bool {
	var re *RunError
	return errors.As(err, &re)
}

// newRunError classifies err.
func newRunError(run int, err error) *RunError {
	code := ErrCodeNumerical
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeCanceled
	case errors.Is(err, ErrInvalidInput):
		code = ErrCodeInvalidInput
	case IsQuotaError(err):
		code = ErrCodeQuotaExceeded
	case atom.IsStageError(err):
		code = ErrCodeStage
	case errors.Is(err, hf.ErrNotConverged):
		code = ErrCodeNotConverged
	case errors.Is(err, ci.ErrEmptySpace):
		code = ErrCodeEmptySector
	}
	return &RunError{Code: code, Run: run, Err: err}
}
