// Package harness executes declarative conformance scenarios against the
// deletion engine.
//
// A scenario seeds rows into a fresh database, runs a flow of delete and
// undo operations through a real engine, and asserts on the final table
// state. The snapshot document of every delete is kept on the result for
// golden file comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	seed:
//	  - entity: french_word
//	    id: 1
//	    fields:
//	      noun_form: chat
//	      created_at: "2024-02-10T08:30:00Z"
//	      marked_for_review: false
//	      native: false
//	flow:
//	  - op: delete_by_id
//	    entity: french_word
//	    id: 1
//	    expect:
//	      result: { operation_id: deletion_op-0001, count: 1 }
//	  - op: undo
//	    expect:
//	      result: { restored: 3, degraded: false }
//	assertions:
//	  - type: row_count
//	    entity: french_example
//	    count: 2
//
// An optional top-level schema field carries an inline CUE declaration;
// without one the scenario runs against the built-in lexicon model.
//
// # Flow Operations
//
// The following operations are supported:
//
//   - delete_by_id: delete one row by primary key (entity, id)
//   - delete_by_field: delete rows matching field = value; cascade_parent
//     extends the delete to the referenced parent rows
//   - delete_by_range: delete rows with ids between start and end inclusive
//   - delete_all: delete every row of the entity
//   - undo: restore a delete; operation names an operation id, the default
//     is the most recent successful delete in the flow
//
// An expect clause validates the step outcome: either an engine error code
// (error: EXPIRED) or a subset of the result fields (operation_id and
// count for deletes, restored and degraded for undo).
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - row_count: the entity's table holds exactly count rows
//   - row_exists: a row with the id exists, optionally matching fields
//   - row_absent: no row with the id exists
//
// # Deterministic Execution
//
// Every scenario runs with a clock pinned at 2024-03-01T10:00:00Z,
// sequential operation ids (deletion_op-0001, deletion_op-0002, ...), an
// in-memory SQLite database, and a memory operation store. Identical runs
// produce identical snapshot documents, which golden file comparison
// depends on.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/word_cascade_undo.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
