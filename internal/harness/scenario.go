package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: rows to seed, a flow of
// delete and undo operations to execute, and assertions on the final
// table state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden files.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is an optional inline CUE declaration. When empty the
	// scenario runs against the built-in lexicon model.
	Schema string `yaml:"schema,omitempty"`

	// Seed lists the rows inserted before the flow runs.
	// Seed rows are assumed valid for the declared schema.
	Seed []SeedRow `yaml:"seed,omitempty"`

	// Flow contains the engine operations to execute, in order.
	// Each step can specify an expected outcome.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final table state after the flow.
	// Supported types: row_count, row_exists, row_absent
	Assertions []Assertion `yaml:"assertions"`
}

// SeedRow is one row inserted during scenario setup. Fields must cover
// every non-nullable column of the entity.
type SeedRow struct {
	// Entity is the entity type to insert into.
	Entity string `yaml:"entity"`

	// ID is the explicit primary key of the row.
	ID int64 `yaml:"id"`

	// Fields contains the column values as a map.
	Fields map[string]any `yaml:"fields"`
}

// FlowStep is one engine operation in the scenario flow. Only the
// fields relevant to Op are set.
type FlowStep struct {
	// Op names the operation: delete_by_id, delete_by_field,
	// delete_by_range, delete_all, or undo.
	Op string `yaml:"op"`

	// Entity is the target entity type (delete operations only).
	Entity string `yaml:"entity,omitempty"`

	// ID selects the row for delete_by_id.
	ID int64 `yaml:"id,omitempty"`

	// Field and Value select the rows for delete_by_field.
	Field string `yaml:"field,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// CascadeParent extends delete_by_field to the parent rows the
	// matched rows reference.
	CascadeParent bool `yaml:"cascade_parent,omitempty"`

	// Start and End bound delete_by_range, inclusive.
	Start int64 `yaml:"start,omitempty"`
	End   int64 `yaml:"end,omitempty"`

	// Operation targets a specific operation id for undo. Empty means
	// the most recent successful delete in the flow.
	Operation string `yaml:"operation,omitempty"`

	// Expect specifies the expected step outcome.
	// If nil, the step is only required to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies an expected step outcome: either an engine
// error code, or a subset of the operation's result fields.
type ExpectClause struct {
	// Error is the expected engine error code (NOT_FOUND, EXPIRED,
	// ...). The step must fail with exactly this code.
	Error string `yaml:"error,omitempty"`

	// Result contains expected result field values. Subset match; only
	// the listed fields are validated. Delete steps produce
	// operation_id and count, undo steps restored and degraded.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates final table state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": the entity's table holds exactly Count rows
	// - "row_exists": a row with ID exists, optionally matching Fields
	// - "row_absent": no row with ID exists
	Type string `yaml:"type"`

	// Entity is the asserted entity type.
	Entity string `yaml:"entity"`

	// ID is the asserted row id (row_exists, row_absent).
	ID int64 `yaml:"id,omitempty"`

	// Count is the expected row count (row_count).
	Count int `yaml:"count,omitempty"`

	// Fields are expected column values (row_exists).
	// Subset match - only specified fields are validated.
	Fields map[string]any `yaml:"fields,omitempty"`
}

// Flow operation constants.
const (
	OpDeleteByID    = "delete_by_id"
	OpDeleteByField = "delete_by_field"
	OpDeleteByRange = "delete_by_range"
	OpDeleteAll     = "delete_all"
	OpUndo          = "undo"
)

// Assertion type constants.
const (
	AssertRowCount  = "row_count"
	AssertRowExists = "row_exists"
	AssertRowAbsent = "row_absent"
)

// Result fields each operation kind produces, for expect validation.
var (
	deleteResultFields = map[string]bool{"operation_id": true, "count": true}
	undoResultFields   = map[string]bool{"restored": true, "degraded": true}
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation
// (catches typos like "assertion:" vs "assertions:").
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	// Validate seed rows (if present)
	for i, row := range s.Seed {
		if row.Entity == "" {
			return fmt.Errorf("seed[%d]: entity is required", i)
		}
		if row.ID <= 0 {
			return fmt.Errorf("seed[%d]: id must be positive", i)
		}
	}

	// Validate flow steps
	for i, step := range s.Flow {
		if err := validateFlowStep(i, &step); err != nil {
			return err
		}
	}

	// Validate assertions
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateFlowStep validates a single flow step based on its op.
func validateFlowStep(index int, step *FlowStep) error {
	if step.Op == "" {
		return fmt.Errorf("flow[%d]: op is required", index)
	}

	switch step.Op {
	case OpDeleteByID:
		if step.Entity == "" {
			return fmt.Errorf("flow[%d]: entity is required for %s", index, step.Op)
		}
		if step.ID <= 0 {
			return fmt.Errorf("flow[%d]: id must be positive for delete_by_id", index)
		}
	case OpDeleteByField:
		if step.Entity == "" {
			return fmt.Errorf("flow[%d]: entity is required for %s", index, step.Op)
		}
		if step.Field == "" {
			return fmt.Errorf("flow[%d]: field is required for delete_by_field", index)
		}
		if step.Value == nil {
			return fmt.Errorf("flow[%d]: value is required for delete_by_field", index)
		}
	case OpDeleteByRange:
		if step.Entity == "" {
			return fmt.Errorf("flow[%d]: entity is required for %s", index, step.Op)
		}
		if step.Start <= 0 || step.End <= 0 {
			return fmt.Errorf("flow[%d]: start and end must be positive for delete_by_range", index)
		}
	case OpDeleteAll:
		if step.Entity == "" {
			return fmt.Errorf("flow[%d]: entity is required for %s", index, step.Op)
		}
	case OpUndo:
		if step.Entity != "" {
			return fmt.Errorf("flow[%d]: entity does not apply to undo", index)
		}
	default:
		return fmt.Errorf("flow[%d]: unknown op %q", index, step.Op)
	}

	if step.Expect != nil {
		if step.Expect.Error == "" && len(step.Expect.Result) == 0 {
			return fmt.Errorf("flow[%d].expect: error or result is required", index)
		}
		if step.Expect.Error != "" && len(step.Expect.Result) > 0 {
			return fmt.Errorf("flow[%d].expect: error and result are mutually exclusive", index)
		}
		allowed := deleteResultFields
		if step.Op == OpUndo {
			allowed = undoResultFields
		}
		for key := range step.Expect.Result {
			if !allowed[key] {
				return fmt.Errorf("flow[%d].expect: unknown result field %q for %s", index, key, step.Op)
			}
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Entity == "" {
		return fmt.Errorf("assertions[%d]: entity is required", index)
	}

	switch a.Type {
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertRowExists, AssertRowAbsent:
		if a.ID <= 0 {
			return fmt.Errorf("assertions[%d]: id must be positive for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Type != AssertRowExists && len(a.Fields) > 0 {
		return fmt.Errorf("assertions[%d]: fields only apply to row_exists", index)
	}

	return nil
}
