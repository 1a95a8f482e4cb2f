package harness

import "github.com/toverud/lexivault/internal/snapshot"

// TraceEvent records one executed flow step and its outcome. Only the
// fields the operation produced are set: deletes carry an operation id
// and a count, undos carry restored and degraded, failed steps carry
// the error code.
type TraceEvent struct {
	Step        int    `json:"step"`
	Op          string `json:"op"`
	Entity      string `json:"entity,omitempty"`
	OperationID string `json:"operation_id,omitempty"`
	Count       int64  `json:"count,omitempty"`
	Restored    int64  `json:"restored,omitempty"`
	Degraded    bool   `json:"degraded,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every expect clause matched and every assertion held.
	Pass bool `json:"pass"`

	// Trace records each executed flow step in order.
	// Used for golden comparison and assertion failure context.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Snapshots holds the decoded snapshot document of every delete in
	// the flow, keyed by operation id. Captured before any undo removes
	// the Operation Store entry, so golden comparison still sees
	// snapshots a later step consumed.
	Snapshots map[string]*snapshot.Snapshot `json:"-"`

	// Operations lists the operation ids in the order the deletes ran.
	Operations []string `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Snapshots: make(map[string]*snapshot.Snapshot),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddDeleteTrace records a completed delete step.
func (r *Result) AddDeleteTrace(step int, op, entity, operationID string, count int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:        step,
		Op:          op,
		Entity:      entity,
		OperationID: operationID,
		Count:       count,
	})
}

// AddUndoTrace records a completed undo step.
func (r *Result) AddUndoTrace(step int, operationID string, restored int64, degraded bool) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:        step,
		Op:          OpUndo,
		OperationID: operationID,
		Restored:    restored,
		Degraded:    degraded,
	})
}

// AddErrorTrace records a step that failed.
func (r *Result) AddErrorTrace(step int, op, entity, code string) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:   step,
		Op:     op,
		Entity: entity,
		Error:  code,
	})
}
