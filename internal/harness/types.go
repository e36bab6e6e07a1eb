package harness

import "github.com/wanjj/AMBiT/internal/driver"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the sweep ran and every assertion holds.
	Pass bool `json:"pass"`

	// Sweep is the driver's result. Nil if the sweep aborted.
	Sweep *driver.SweepResult `json:"sweep,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
