// Package snapshot defines the persisted deletion-snapshot document: the
// self-contained record of everything one delete operation removed, sufficient
// to restore it.
package snapshot

import "time"

// Selection modes.
const (
	ModeSingle  = "single"   // one row by id
	ModeByField = "by_field" // rows matching field = value
	ModeIDRange = "id_range" // rows with id in an inclusive range
	ModeAll     = "all"      // every row of the entity
)

// Cascade rule tags recorded on rows removed beyond the primary selection.
const (
	RuleLastChild     = "last_child"     // orphan policy: last child removed its parent
	RuleCascadeParent = "cascade_parent" // caller explicitly requested parent removal
)

// Selection records how the primary rows were chosen, for auditability and
// for reporting. Only the fields relevant to Mode are set.
type Selection struct {
	Mode    string `json:"mode"`
	ID      int64  `json:"id,omitempty"`
	Field   string `json:"field,omitempty"`
	Value   any    `json:"value,omitempty"`
	StartID int64  `json:"start_id,omitempty"`
	EndID   int64  `json:"end_id,omitempty"`
}

// RowData is one serialized row. The id is held apart from the field map so
// restoration can reuse original ids; foreign-key values stay in Fields as
// plain integers so every row keeps its own linkage.
type RowData struct {
	ID     int64          `json:"id"`
	Fields map[string]any `json:"fields"`
}

// RelatedRow is a child row captured alongside the primaries, annotated with
// the parent id its referencing field held.
type RelatedRow struct {
	ID       int64          `json:"id"`
	ParentID int64          `json:"parent_id"`
	Fields   map[string]any `json:"fields"`
}

// RelatedGroup holds every captured child row of one child entity type,
// grouped by the field that held the reference.
type RelatedGroup struct {
	Field string       `json:"field"`
	Rows  []RelatedRow `json:"rows"`
}

// ParentEntry is one ancestor row referenced by the primaries. Data is nil
// when the ancestor row was already gone at capture time; restoration then
// skips re-creating it and relies on stub recreation at the child level.
type ParentEntry struct {
	ID   int64          `json:"id"`
	Data map[string]any `json:"data,omitempty"`
}

// ParentGroup holds the ancestor entries for one parent entity type.
type ParentGroup struct {
	Field   string        `json:"field"`
	Entries []ParentEntry `json:"entries"`
}

// CascadedRow is a row removed beyond the primary selection, tagged with the
// rule that triggered the removal and the parent id it belonged to.
type CascadedRow struct {
	EntityType string         `json:"entity_type"`
	Rule       string         `json:"rule"`
	ParentID   int64          `json:"parent_id"`
	ID         int64          `json:"id"`
	Fields     map[string]any `json:"fields"`
}

// Snapshot is the unit of undo.
//
// Invariant: every id referenced inside RelatedRows/CascadedRows resolves
// either to a row present in PrimaryRows/ParentRows of the same snapshot, or
// is recreated as a stub by the restorer.
type Snapshot struct {
	OperationID  string                  `json:"operation_id"`
	EntityType   string                  `json:"entity_type"`
	Selection    Selection               `json:"selection"`
	PrimaryRows  []RowData               `json:"primary_rows"`
	RelatedRows  map[string]RelatedGroup `json:"related_rows,omitempty"`
	ParentRows   map[string]ParentGroup  `json:"parent_rows,omitempty"`
	CascadedRows []CascadedRow           `json:"cascaded_rows,omitempty"`
	CapturedAt   time.Time               `json:"captured_at"`
	ExpiresAt    time.Time               `json:"expires_at"`
}

// RowCount is the total number of rows the snapshot carries, counting parent
// entries only when they hold data.
func (s *Snapshot) RowCount() int {
	n := len(s.PrimaryRows) + len(s.CascadedRows)
	for _, group := range s.RelatedRows {
		n += len(group.Rows)
	}
	for _, group := range s.ParentRows {
		for _, entry := range group.Entries {
			if entry.Data != nil {
				n++
			}
		}
	}
	return n
}
