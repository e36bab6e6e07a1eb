package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/wanjj/AMBiT/internal/driver"
	"github.com/wanjj/AMBiT/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string             // Assertion type for categorization
	Expected string             // Human-readable expected outcome
	Actual   string             // Human-readable actual outcome
	Runs     []driver.RunResult // Sweep runs for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Runs) > 0 {
		fmt.Fprintf(&buf, "\nRuns:\n")
		for _, r := range e.Runs {
			fmt.Fprintf(&buf, "  [%d] %s %v", r.Run, r.Status, r.Masked)
			if r.Error != "" {
				fmt.Fprintf(&buf, " %s", r.Error)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// findRun returns the run with the given index.
func findRun(sweep *driver.SweepResult, assertion Assertion) (*driver.RunResult, error) {
	if assertion.Run < 0 || assertion.Run >= len(sweep.Runs) {
		return nil, &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("run %d", assertion.Run),
			Actual:   fmt.Sprintf("sweep has %d runs", len(sweep.Runs)),
			Runs:     sweep.Runs,
		}
	}
	return &sweep.Runs[assertion.Run], nil
}

// findSector returns the run's sector matching the assertion.
func findSector(sweep *driver.SweepResult, assertion Assertion) (*driver.SectorResult, error) {
	r, err := findRun(sweep, assertion)
	if err != nil {
		return nil, err
	}
	for i := range r.Sectors {
		if r.Sectors[i].TwoJ == assertion.TwoJ && r.Sectors[i].Config == assertion.Config {
			return &r.Sectors[i], nil
		}
	}
	return nil, &AssertionError{
		Type:     assertion.Type,
		Expected: fmt.Sprintf("sector 2J=%d %s in run %d", assertion.TwoJ, assertion.Config, assertion.Run),
		Actual:   "sector not found",
		Runs:     sweep.Runs,
	}
}

// assertRunStatus checks a run's status and, if given, its error code.
func assertRunStatus(sweep *driver.SweepResult, assertion Assertion) error {
	r, err := findRun(sweep, assertion)
	if err != nil {
		return err
	}
	if r.Status != assertion.Status {
		return &AssertionError{
			Type:     AssertRunStatus,
			Expected: fmt.Sprintf("run %d status %s", assertion.Run, assertion.Status),
			Actual:   fmt.Sprintf("status %s", r.Status),
			Runs:     sweep.Runs,
		}
	}
	if assertion.Code != "" && string(r.Code) != assertion.Code {
		return &AssertionError{
			Type:     AssertRunStatus,
			Expected: fmt.Sprintf("run %d code %s", assertion.Run, assertion.Code),
			Actual:   fmt.Sprintf("code %q", r.Code),
			Runs:     sweep.Runs,
		}
	}
	return nil
}

// assertRunCount checks the number of runs with a status.
func assertRunCount(sweep *driver.SweepResult, assertion Assertion) error {
	count := 0
	for _, r := range sweep.Runs {
		if r.Status == assertion.Status {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertRunCount,
			Expected: fmt.Sprintf("%d runs with status %s", assertion.Count, assertion.Status),
			Actual:   fmt.Sprintf("%d runs", count),
			Runs:     sweep.Runs,
		}
	}
	return nil
}

// assertLevelOrder checks that a sector's levels are sorted by energy.
func assertLevelOrder(sweep *driver.SweepResult, assertion Assertion) error {
	sec, err := findSector(sweep, assertion)
	if err != nil {
		return err
	}
	if len(sec.Levels) == 0 {
		return &AssertionError{
			Type:     AssertLevelOrder,
			Expected: fmt.Sprintf("levels in sector 2J=%d %s", sec.TwoJ, sec.Config),
			Actual:   "no levels (size-only run?)",
			Runs:     sweep.Runs,
		}
	}
	for k := 1; k < len(sec.Levels); k++ {
		if sec.Levels[k].Energy < sec.Levels[k-1].Energy {
			return &AssertionError{
				Type:     AssertLevelOrder,
				Expected: "levels in non-decreasing energy order",
				Actual: fmt.Sprintf("level %d (%.10g) below level %d (%.10g)",
					k, sec.Levels[k].Energy, k-1, sec.Levels[k-1].Energy),
				Runs: sweep.Runs,
			}
		}
	}
	return nil
}

// assertEnergyRange checks that an energy lies within the given bounds.
func assertEnergyRange(sweep *driver.SweepResult, assertion Assertion) error {
	var energy float64
	var what string

	if assertion.State != "" {
		r, err := findRun(sweep, assertion)
		if err != nil {
			return err
		}
		found := false
		for _, e := range r.Energies {
			if e.State == assertion.State {
				energy, found = e.Energy, true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertEnergyRange,
				Expected: fmt.Sprintf("energy of %s in run %d", assertion.State, assertion.Run),
				Actual:   "state not found",
				Runs:     sweep.Runs,
			}
		}
		what = assertion.State
	} else {
		sec, err := findSector(sweep, assertion)
		if err != nil {
			return err
		}
		if assertion.Index < 0 || assertion.Index >= len(sec.Levels) {
			return &AssertionError{
				Type:     AssertEnergyRange,
				Expected: fmt.Sprintf("level %d in sector 2J=%d %s", assertion.Index, sec.TwoJ, sec.Config),
				Actual:   fmt.Sprintf("sector has %d levels", len(sec.Levels)),
				Runs:     sweep.Runs,
			}
		}
		energy = sec.Levels[assertion.Index].Energy
		what = fmt.Sprintf("level %d of 2J=%d %s", assertion.Index, sec.TwoJ, sec.Config)
	}

	if (assertion.Min != nil && energy < *assertion.Min) || (assertion.Max != nil && energy > *assertion.Max) {
		return &AssertionError{
			Type:     AssertEnergyRange,
			Expected: fmt.Sprintf("%s in [%s, %s]", what, bound(assertion.Min, "-inf"), bound(assertion.Max, "+inf")),
			Actual:   fmt.Sprintf("%.10g", energy),
			Runs:     sweep.Runs,
		}
	}
	return nil
}

func bound(v *float64, open string) string {
	if v == nil {
		return open
	}
	return fmt.Sprintf("%g", *v)
}

// assertFinalState checks if a store table contains expected values.
// Queries the table with parameterized SQL and validates expected values
// using subset semantics.
//
// Security: Table and column names are validated against a whitelist pattern
// to prevent SQL injection via identifier interpolation.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if assertion.Table == "" {
		return fmt.Errorf("final_state assertion requires table name")
	}

	// Identifiers can't be parameterized
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		whereDesc := formatWhereClause(assertion.Where)
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		whereDesc := formatWhereClause(assertion.Where)
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{})
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	// Sorted so the first reported mismatch is deterministic
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}
	return nil
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
//
// Security: Column names are validated against a whitelist pattern to prevent
// SQL injection via identifier interpolation.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML-decoded value to a SQL-compatible value.
func toSQLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string, int, int64, float64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares expected and actual values from store tables.
// Handles type coercion for SQLite values which may be returned as different types.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	switch exp := expected.(type) {
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case []byte:
			return exp == string(act)
		}
		return false
	case int:
		// SQLite returns int64 for integers
		if actualInt, ok := actual.(int64); ok {
			return int64(exp) == actualInt
		}
		if actualInt, ok := actual.(int); ok {
			return exp == actualInt
		}
		return false
	case int64:
		if actualInt, ok := actual.(int64); ok {
			return exp == actualInt
		}
		return false
	case float64:
		if actualFloat, ok := actual.(float64); ok {
			return exp == actualFloat
		}
		if actualInt, ok := actual.(int64); ok {
			return exp == float64(actualInt)
		}
		return false
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		// SQLite stores booleans as integers
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		if result.Sweep == nil && assertion.Type != AssertFinalState {
			errors = append(errors, fmt.Sprintf("assertion[%d]: %s requires a sweep result", i, assertion.Type))
			continue
		}

		switch assertion.Type {
		case AssertRunStatus:
			err = assertRunStatus(result.Sweep, assertion)
		case AssertRunCount:
			err = assertRunCount(result.Sweep, assertion)
		case AssertLevelOrder:
			err = assertLevelOrder(result.Sweep, assertion)
		case AssertEnergyRange:
			err = assertEnergyRange(result.Sweep, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires database context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
