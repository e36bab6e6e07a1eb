package driver

import (
	"errors"
	"fmt"
)

// DefaultMaxMatrixSize is the CI dimension quota when CI/MaxMatrixSize is
// unset.
const DefaultMaxMatrixSize = 5000

// MatrixQuota bounds the CI matrix dimension a run may diagonalise.
//
// The driver sizes every sector before solving any of them, so a run that
// would exceed the quota fails without having diagonalised anything.
type MatrixQuota struct {
	limit int
}

// NewMatrixQuota returns a quota of limit; limit <= 0 disables it.
func NewMatrixQuota(limit int) *MatrixQuota {
	return &MatrixQuota{limit: limit}
}

// Check returns a *QuotaError if dimension exceeds the limit.
func (q *MatrixQuota) Check(twoJ int, config string, dimension int) error {
	if q.limit > 0 && dimension > q.limit {
		return &QuotaError{TwoJ: twoJ, Config: config, Dimension: dimension, Limit: q.limit}
	}
	return nil
}

// Limit returns the configured limit.
func (q *MatrixQuota) Limit() int {
	return q.limit
}

// QuotaError is returned when a sector's CI matrix exceeds the quota.
type QuotaError struct {
	TwoJ      int
	Config    string
	Dimension int
	Limit     int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("sector 2J=%d %s exceeds matrix quota: dimension %d > %d limit",
		e.TwoJ, e.Config, e.Dimension, e.Limit)
}

// IsQuotaError reports whether err is (or wraps) a *QuotaError.
func IsQuotaError(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}
