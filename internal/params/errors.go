package params

import (
	"errors"
	"fmt"
)

// ConfigErrorCode categorizes fatal configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeMultirunLength indicates a multirun vector whose length differs
	// from the run count established by an earlier key.
	ErrCodeMultirunLength ConfigErrorCode = "MULTIRUN_LENGTH"

	// ErrCodeRunOutOfRange indicates a run selection outside [0, NumRuns).
	ErrCodeRunOutOfRange ConfigErrorCode = "RUN_OUT_OF_RANGE"

	// ErrCodeAbsorbMismatch indicates an attempt to absorb options with a
	// different run count.
	ErrCodeAbsorbMismatch ConfigErrorCode = "ABSORB_MISMATCH"
)

// ConfigError is a fatal configuration error. A sweep must not continue
// past one.
type ConfigError struct {
	Code    ConfigErrorCode
	Message string

	// Key names the offending multirun key, if any.
	Key string

	// Details holds additional context (lengths, indexes).
	Details map[string]string
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsFatal reports whether err is (or wraps) a *ConfigError.
func IsFatal(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ErrorCode returns the ConfigErrorCode carried by err, or "" if err is not
// a configuration error.
func ErrorCode(err error) ConfigErrorCode {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func newLengthError(key string, got, want int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMultirunLength,
		Message: "multirun variable has wrong length",
		Key:     key,
		Details: map[string]string{
			"length":   fmt.Sprintf("%d", got),
			"num_runs": fmt.Sprintf("%d", want),
		},
	}
}

func newRunRangeError(index, numRuns int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeRunOutOfRange,
		Message: fmt.Sprintf("run index %d out of bounds [0, %d)", index, numRuns),
		Details: map[string]string{
			"run_index": fmt.Sprintf("%d", index),
			"num_runs":  fmt.Sprintf("%d", numRuns),
		},
	}
}

func newAbsorbError(have, other int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeAbsorbMismatch,
		Message: fmt.Sprintf("cannot absorb options with %d runs into options with %d runs", other, have),
		Details: map[string]string{
			"num_runs":       fmt.Sprintf("%d", have),
			"other_num_runs": fmt.Sprintf("%d", other),
		},
	}
}
