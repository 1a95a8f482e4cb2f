package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/toverud/lexivault/internal/engine"
	"github.com/toverud/lexivault/internal/lexicon"
	"github.com/toverud/lexivault/internal/opstore"
	"github.com/toverud/lexivault/internal/schema"
	"github.com/toverud/lexivault/internal/snapshot"
	"github.com/toverud/lexivault/internal/store"
	"github.com/toverud/lexivault/internal/testutil"
)

// scenarioEpoch is the pinned capture time every scenario runs at. With
// sequential operation ids this makes snapshot documents byte-identical
// across runs, which golden file comparison depends on.
var scenarioEpoch = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// Harness executes one scenario against a real engine over an isolated
// in-memory database.
type Harness struct {
	registry *schema.Registry
	store    *store.Store
	ops      opstore.Store
	engine   *engine.Engine
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a memory
// Operation Store, a clock pinned at scenarioEpoch, and sequential
// operation ids (deletion_op-0001, deletion_op-0002, ...).
//
// Execution flow:
//  1. Compile the inline schema, or load the built-in lexicon
//  2. Migrate a fresh in-memory database and insert the seed rows
//  3. Execute flow steps, validating each expect clause
//  4. Evaluate assertions against the final table state
//
// Expect mismatches and assertion failures accumulate on the result;
// infrastructure failures (a seed row that cannot be inserted, a
// snapshot that cannot be decoded) abort the run with an error.
func Run(scenario *Scenario) (*Result, error) {
	reg, err := buildRegistry(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Migrate(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	ops := opstore.NewMemory()
	defer ops.Close()

	eng := engine.New(reg, st, ops,
		engine.WithClock(testutil.NewFixedClock(scenarioEpoch)),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator("op")),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)

	h := &Harness{registry: reg, store: st, ops: ops, engine: eng}

	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed rows: %w", err)
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{Store: st, Registry: reg, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// buildRegistry compiles the scenario's inline declaration, falling
// back to the built-in lexicon when none is given.
func buildRegistry(scenario *Scenario) (*schema.Registry, error) {
	if scenario.Schema == "" {
		return lexicon.Load()
	}
	model, err := schema.CompileString(scenario.Schema, scenario.Name+".cue")
	if err != nil {
		return nil, err
	}
	return schema.NewRegistry(*model)
}

// seed inserts the scenario's seed rows. Seed rows are assumed valid; a
// failed insert is an infrastructure error, not a scenario failure.
func (h *Harness) seed(ctx context.Context, rows []SeedRow) error {
	for i, row := range rows {
		ent, ok := h.registry.Describe(row.Entity)
		if !ok {
			return fmt.Errorf("seed[%d]: unknown entity type %q", i, row.Entity)
		}
		values := make(map[string]any, len(row.Fields))
		for name, v := range row.Fields {
			values[name] = normalizeValue(v)
		}
		if err := h.store.InsertRow(ctx, ent, store.Row{ID: row.ID, Values: values}); err != nil {
			return fmt.Errorf("seed[%d]: insert %s row: %w", i, row.Entity, err)
		}
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses.
//
// Engine errors roll their operation back and expect mismatches leave
// the database consistent, so the flow always runs to the end; failures
// accumulate on the result. Undo steps without an explicit operation id
// target the most recent successful delete.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	var lastOperation string

	for i, step := range flow {
		stepNo := i + 1

		if step.Op == OpUndo {
			operationID := step.Operation
			if operationID == "" {
				operationID = lastOperation
			}
			if operationID == "" {
				return fmt.Errorf("flow step %d: no delete to undo", stepNo)
			}

			res, err := h.engine.Undo(ctx, operationID)
			if err != nil {
				h.recordStepError(result, stepNo, step, err)
				continue
			}
			result.AddUndoTrace(stepNo, operationID, res.Restored, res.Degraded)
			if expectsError(step) {
				result.AddError(fmt.Sprintf("flow step %d: expected error %s, undo succeeded",
					stepNo, step.Expect.Error))
				continue
			}
			if step.Expect != nil {
				checkResult(result, stepNo, step.Expect.Result, map[string]any{
					"restored": res.Restored,
					"degraded": res.Degraded,
				})
			}
			continue
		}

		res, err := h.runDelete(ctx, step)
		if err != nil {
			h.recordStepError(result, stepNo, step, err)
			continue
		}
		result.AddDeleteTrace(stepNo, step.Op, step.Entity, res.OperationID, res.Count)
		lastOperation = res.OperationID

		// Stash the decoded snapshot now; a later undo consumes the
		// Operation Store entry.
		payload, err := h.ops.Get(ctx, res.OperationID)
		if err != nil {
			return fmt.Errorf("flow step %d: load snapshot: %w", stepNo, err)
		}
		snap, err := snapshot.Decode(payload)
		if err != nil {
			return fmt.Errorf("flow step %d: decode snapshot: %w", stepNo, err)
		}
		result.Snapshots[res.OperationID] = snap
		result.Operations = append(result.Operations, res.OperationID)

		if expectsError(step) {
			result.AddError(fmt.Sprintf("flow step %d: expected error %s, %s succeeded",
				stepNo, step.Expect.Error, step.Op))
			continue
		}
		if step.Expect != nil {
			checkResult(result, stepNo, step.Expect.Result, map[string]any{
				"operation_id": res.OperationID,
				"count":        res.Count,
			})
		}
	}

	return nil
}

// runDelete dispatches a delete step to the engine.
func (h *Harness) runDelete(ctx context.Context, step FlowStep) (engine.DeleteResult, error) {
	switch step.Op {
	case OpDeleteByID:
		return h.engine.DeleteByID(ctx, step.Entity, step.ID)
	case OpDeleteByField:
		return h.engine.DeleteByFieldValue(ctx, step.Entity, step.Field, normalizeValue(step.Value), step.CascadeParent)
	case OpDeleteByRange:
		return h.engine.DeleteByIDRange(ctx, step.Entity, step.Start, step.End)
	case OpDeleteAll:
		return h.engine.DeleteAll(ctx, step.Entity)
	}
	return engine.DeleteResult{}, fmt.Errorf("unsupported op %q", step.Op)
}

// recordStepError matches a failed step against its expect clause. A
// matching engine error code keeps the scenario passing; anything else
// is a scenario failure.
func (h *Harness) recordStepError(result *Result, stepNo int, step FlowStep, err error) {
	var engErr *engine.Error
	code := ""
	if errors.As(err, &engErr) {
		code = string(engErr.Code)
	}

	traceCode := code
	if traceCode == "" {
		traceCode = err.Error()
	}
	result.AddErrorTrace(stepNo, step.Op, step.Entity, traceCode)

	switch {
	case !expectsError(step):
		result.AddError(fmt.Sprintf("flow step %d: %s failed: %v", stepNo, step.Op, err))
	case code != step.Expect.Error:
		result.AddError(fmt.Sprintf("flow step %d: expected error %s, got: %v",
			stepNo, step.Expect.Error, err))
	}
}

// checkResult validates expected result fields (subset match).
func checkResult(result *Result, stepNo int, expected, actual map[string]any) {
	for _, key := range sortedKeys(expected) {
		want := expected[key]
		got, ok := actual[key]
		if !ok {
			result.AddError(fmt.Sprintf("flow step %d: result has no field %q", stepNo, key))
			continue
		}
		if !valuesEqual(want, got) {
			result.AddError(fmt.Sprintf("flow step %d: result field %q = %v, want %v",
				stepNo, key, got, want))
		}
	}
}

func expectsError(step FlowStep) bool {
	return step.Expect != nil && step.Expect.Error != ""
}

// normalizeValue converts a YAML-parsed value into the engine's value
// domain (nil, bool, int64, float64, string). YAML decodes integers as
// int, which the rest of the stack never uses.
func normalizeValue(v any) any {
	if x, ok := v.(int); ok {
		return int64(x)
	}
	return v
}
