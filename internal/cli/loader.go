package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/wanjj/AMBiT/internal/params"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeParseFailed = "E010" // Input file or override could not be parsed
	ErrCodeConfig      = "E011" // Inconsistent multirun configuration
	ErrCodeStore       = "E020" // Database could not be opened or read
	ErrCodeRunFailed   = "E030" // One or more runs failed
	ErrCodeTestFailed  = "E_TEST_FAILED"
)

// LoadError represents an error that occurred while loading an input.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadInput reads an input file, applies key=value overrides on top of it
// and builds the multirun options.
//
// Overrides take precedence over the file. A multirun configuration that
// cannot be expanded is reported with ErrCodeConfig.
func LoadInput(path string, overrides []string, logger *slog.Logger) (*params.Options, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("input file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "error accessing input file", Err: err}
	}

	values, err := params.LoadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("failed to parse %s", path), Err: err}
	}

	if len(overrides) > 0 {
		extra, err := params.ParseArgs(overrides)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeParseFailed, Message: "failed to parse overrides", Err: err}
		}
		values = values.Merge(extra)
	}

	opts, err := params.New(values, logger)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: "invalid multirun configuration", Err: err}
	}
	return opts, nil
}

// loadErrorCode returns the code of a *LoadError, or ErrCodeGeneric.
func loadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}
