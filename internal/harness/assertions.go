package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/toverud/lexivault/internal/schema"
	"github.com/toverud/lexivault/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Flow trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Flow trace for context
	fmt.Fprintf(&buf, "\nFlow trace:\n")
	for _, event := range e.Trace {
		line := fmt.Sprintf("  [%d] %s", event.Step, event.Op)
		if event.Entity != "" {
			line += " " + event.Entity
		}
		if event.OperationID != "" {
			line += " " + event.OperationID
		}
		if event.Error != "" {
			line += " error=" + event.Error
		}
		fmt.Fprintln(&buf, line)
	}

	return buf.String()
}

// AssertionContext provides database access for evaluating assertions.
type AssertionContext struct {
	Store    *store.Store
	Registry *schema.Registry
	Ctx      context.Context
}

func (a *AssertionContext) describe(entity string) (*schema.EntityDescriptor, error) {
	ent, ok := a.Registry.Describe(entity)
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", entity)
	}
	return ent, nil
}

// assertRowCount checks that the entity's table holds exactly the
// expected number of rows.
func assertRowCount(actx *AssertionContext, assertion Assertion, trace []TraceEvent) error {
	ent, err := actx.describe(assertion.Entity)
	if err != nil {
		return err
	}

	count, err := actx.Store.CountRows(actx.Ctx, ent)
	if err != nil {
		return fmt.Errorf("count %s rows: %w", assertion.Entity, err)
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d %s row(s)", assertion.Count, assertion.Entity),
			Actual:   fmt.Sprintf("%d row(s)", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertRowExists checks that a row with the id exists and carries the
// expected field values (subset semantics - only specified fields are
// validated).
func assertRowExists(actx *AssertionContext, assertion Assertion, trace []TraceEvent) error {
	ent, err := actx.describe(assertion.Entity)
	if err != nil {
		return err
	}

	row, found, err := actx.Store.GetRow(actx.Ctx, ent, assertion.ID)
	if err != nil {
		return fmt.Errorf("get %s row: %w", assertion.Entity, err)
	}
	if !found {
		return &AssertionError{
			Type:     AssertRowExists,
			Expected: fmt.Sprintf("%s row %d to exist", assertion.Entity, assertion.ID),
			Actual:   "row not found",
			Trace:    trace,
		}
	}

	for _, name := range sortedKeys(assertion.Fields) {
		if _, ok := ent.Field(name); !ok {
			return fmt.Errorf("entity %s has no field %q", assertion.Entity, name)
		}
		expected := assertion.Fields[name]
		actual := row.Values[name]
		if !valuesEqual(expected, actual) {
			return &AssertionError{
				Type:     AssertRowExists,
				Expected: fmt.Sprintf("%s row %d field %q = %v", assertion.Entity, assertion.ID, name, expected),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", name, actual, actual),
				Trace:    trace,
			}
		}
	}

	return nil
}

// assertRowAbsent checks that no row with the id exists.
func assertRowAbsent(actx *AssertionContext, assertion Assertion, trace []TraceEvent) error {
	ent, err := actx.describe(assertion.Entity)
	if err != nil {
		return err
	}

	exists, err := actx.Store.RowExists(actx.Ctx, ent, assertion.ID)
	if err != nil {
		return fmt.Errorf("check %s row: %w", assertion.Entity, err)
	}

	if exists {
		return &AssertionError{
			Type:     AssertRowAbsent,
			Expected: fmt.Sprintf("no %s row %d", assertion.Entity, assertion.ID),
			Actual:   "row exists",
			Trace:    trace,
		}
	}

	return nil
}

// EvaluateAssertions evaluates all assertions against the final table
// state. Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRowCount:
			err = assertRowCount(actx, assertion, result.Trace)
		case AssertRowExists:
			err = assertRowExists(actx, assertion, result.Trace)
		case AssertRowAbsent:
			err = assertRowAbsent(actx, assertion, result.Trace)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// valuesEqual compares an expected YAML value against an engine value.
// Handles type coercion: YAML integers arrive as int while the engine
// works in int64, and SQLite may hand back booleans as integers.
func valuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case string:
		s, ok := actual.(string)
		return ok && exp == s
	case bool:
		switch act := actual.(type) {
		case bool:
			return exp == act
		case int64:
			return exp == (act != 0)
		}
		return false
	case int:
		return intEqual(int64(exp), actual)
	case int64:
		return intEqual(exp, actual)
	case float64:
		switch act := actual.(type) {
		case float64:
			return exp == act
		case int64:
			return exp == float64(act)
		}
		return false
	}

	// Fallback to DeepEqual for complex types
	return reflect.DeepEqual(expected, actual)
}

func intEqual(exp int64, actual any) bool {
	switch act := actual.(type) {
	case int64:
		return exp == act
	case int:
		return exp == int64(act)
	case float64:
		return float64(exp) == act
	}
	return false
}

// sortedKeys returns map keys in sorted order for deterministic
// iteration.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
