package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuite_ScenarioFiles(t *testing.T) {
	result, err := RunSuite(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	assert.Equal(t, 7, result.Total)
	assert.Equal(t, 7, result.Passed)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Failures)
}

func TestRunSuite_EmptyDirectory(t *testing.T) {
	_, err := RunSuite(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files in")
}

func TestRunSuite_CollectsFailures(t *testing.T) {
	dir := t.TempDir()

	// Does not parse.
	broken := `
name: broken
description: "Missing everything else"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(broken), 0644))

	// Parses and runs, but the flow step fails unexpectedly.
	failing := `
name: failing
description: "Deletes from an empty table"
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
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.yaml"), []byte(failing), 0644))

	result, err := RunSuite(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 0, result.Passed)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Failures, 2)

	// Glob order is lexical, so broken.yaml comes first.
	assert.Equal(t, "broken.yaml", result.Failures[0].Scenario)
	assert.Contains(t, result.Failures[0].Error, "failed to load scenario")
	assert.Equal(t, "failing", result.Failures[1].Scenario)
	assert.Contains(t, result.Failures[1].Error, "scenario assertions failed")
}
