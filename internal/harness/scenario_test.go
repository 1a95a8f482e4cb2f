package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "test.yaml")

	content := `
name: test_scenario
description: "Delete a word and bring it back"
seed:
  - entity: french_word
    id: 1
    fields:
      noun_form: chat
      created_at: "2024-02-10T08:30:00Z"
      marked_for_review: false
      native: false
flow:
  - op: delete_by_id
    entity: french_word
    id: 1
    expect:
      result:
        operation_id: deletion_op-0001
        count: 1
  - op: undo
    expect:
      result:
        restored: 1
        degraded: false
assertions:
  - type: row_exists
    entity: french_word
    id: 1
    fields:
      noun_form: chat
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0644))

	scenario, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Delete a word and bring it back", scenario.Description)
	assert.Len(t, scenario.Seed, 1)
	assert.Len(t, scenario.Flow, 2)
	assert.Len(t, scenario.Assertions, 1)

	assert.Equal(t, "french_word", scenario.Seed[0].Entity)
	assert.EqualValues(t, 1, scenario.Seed[0].ID)
	assert.Equal(t, "chat", scenario.Seed[0].Fields["noun_form"])

	assert.Equal(t, OpDeleteByID, scenario.Flow[0].Op)
	require.NotNil(t, scenario.Flow[0].Expect)
	assert.Equal(t, "deletion_op-0001", scenario.Flow[0].Expect.Result["operation_id"])
	assert.Equal(t, OpUndo, scenario.Flow[1].Op)

	assert.Equal(t, AssertRowExists, scenario.Assertions[0].Type)
	assert.EqualValues(t, 1, scenario.Assertions[0].ID)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_MalformedYAML(t *testing.T) {
	_, err := ParseScenario([]byte("name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_UnknownField(t *testing.T) {
	content := `
name: test
description: "Typo in a top-level key"
flow:
  - op: delete_all
    entity: french_word
assertion:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_MissingName(t *testing.T) {
	content := `
description: "Missing name"
flow:
  - op: delete_all
    entity: french_word
assertions:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestParseScenario_MissingDescription(t *testing.T) {
	content := `
name: test
flow:
  - op: delete_all
    entity: french_word
assertions:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "description is required")
}

func TestParseScenario_EmptyFlow(t *testing.T) {
	content := `
name: test
description: "No flow"
flow: []
assertions:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow list is required")
}

func TestParseScenario_MissingAssertions(t *testing.T) {
	content := `
name: test
description: "No assertions"
flow:
  - op: delete_all
    entity: french_word
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertions list is required")
}

func TestParseScenario_SeedMissingEntity(t *testing.T) {
	content := `
name: test
description: "Seed row without an entity"
seed:
  - id: 1
    fields:
      noun_form: chat
flow:
  - op: delete_all
    entity: french_word
assertions:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed[0]: entity is required")
}

func TestParseScenario_SeedNonPositiveID(t *testing.T) {
	content := `
name: test
description: "Second seed row has a bad id"
seed:
  - entity: french_word
    id: 1
    fields: {}
  - entity: french_word
    id: 0
    fields: {}
flow:
  - op: delete_all
    entity: french_word
assertions:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed[1]: id must be positive")
}

func TestParseScenario_DeleteByIDMissingEntity(t *testing.T) {
	content := `
name: test
description: "delete_by_id without an entity"
flow:
  - op: delete_by_id
    id: 1
assertions:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow[0]: entity is required for delete_by_id")
}

func TestParseScenario_DeleteByFieldMissingValue(t *testing.T) {
	content := `
name: test
description: "delete_by_field without a value"
flow:
  - op: delete_by_field
    entity: french_example
    field: french_word_id
assertions:
  - type: row_count
    entity: french_example
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow[0]: value is required for delete_by_field")
}

func TestParseScenario_RangeNonPositiveBounds(t *testing.T) {
	content := `
name: test
description: "delete_by_range with a zero bound"
flow:
  - op: delete_by_range
    entity: french_word
    start: 0
    end: 5
assertions:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow[0]: start and end must be positive")
}

func TestParseScenario_UndoWithEntity(t *testing.T) {
	content := `
name: test
description: "undo does not take an entity"
flow:
  - op: undo
    entity: french_word
assertions:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow[0]: entity does not apply to undo")
}

func TestParseScenario_UnknownOp(t *testing.T) {
	content := `
name: test
description: "Unsupported operation"
flow:
  - op: drop_table
    entity: french_word
assertions:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `flow[0]: unknown op "drop_table"`)
}

func TestParseScenario_ExpectEmpty(t *testing.T) {
	content := `
name: test
description: "Expect clause with nothing in it"
flow:
  - op: delete_all
    entity: french_word
    expect: {}
assertions:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow[0].expect: error or result is required")
}

func TestParseScenario_ExpectErrorAndResult(t *testing.T) {
	content := `
name: test
description: "Expect clause with both outcomes"
flow:
  - op: delete_by_id
    entity: french_word
    id: 1
    expect:
      error: NOT_FOUND
      result:
        count: 1
assertions:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error and result are mutually exclusive")
}

func TestParseScenario_ExpectUnknownResultField(t *testing.T) {
	content := `
name: test
description: "Delete steps do not produce a restored count"
flow:
  - op: delete_by_id
    entity: french_word
    id: 1
    expect:
      result:
        restored: 1
assertions:
  - type: row_count
    entity: french_word
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown result field "restored" for delete_by_id`)
}

func TestParseScenario_UnknownAssertionType(t *testing.T) {
	content := `
name: test
description: "Unsupported assertion type"
flow:
  - op: delete_all
    entity: french_word
assertions:
  - type: rows_ok
    entity: french_word
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `assertions[0]: unknown assertion type "rows_ok"`)
}

func TestParseScenario_AssertionFieldsOnRowCount(t *testing.T) {
	content := `
name: test
description: "row_count does not take fields"
flow:
  - op: delete_all
    entity: french_word
assertions:
  - type: row_count
    entity: french_word
    count: 0
    fields:
      noun_form: chat
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fields only apply to row_exists")
}

func TestParseScenario_AssertionNonPositiveID(t *testing.T) {
	content := `
name: test
description: "row_exists needs a positive id"
flow:
  - op: delete_all
    entity: french_word
assertions:
  - type: row_exists
    entity: french_word
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertions[0]: id must be positive for row_exists")
}

func TestParseScenario_InlineSchema(t *testing.T) {
	content := `
name: test
description: "Inline CUE declaration"
schema: |
  schema: {
    entities: {
      note: {
        fields: [
          {name: "body", kind: "text"},
        ]
      }
    }
  }
flow:
  - op: delete_all
    entity: note
assertions:
  - type: row_count
    entity: note
    count: 0
`
	scenario, err := ParseScenario([]byte(content))
	require.NoError(t, err)
	assert.Contains(t, scenario.Schema, "entities")
}
