package store

import (
	"fmt"
	"strings"

	"github.com/toverud/lexivault/internal/schema"
)

// Selection identifies the rows a read or delete targets.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the WHERE compiler.
type Selection interface {
	selectionNode() // Marker method - seals interface to this package
}

// ByID selects a single row by primary key.
type ByID struct {
	ID int64
}

// ByField selects rows whose field equals a value. The field must exist on
// the entity being queried ("id" is allowed).
type ByField struct {
	Field string
	Value any
}

// ByIDRange selects rows whose id lies in the inclusive [Start, End] range.
// Callers normalize swapped bounds before constructing the selection.
type ByIDRange struct {
	Start int64
	End   int64
}

// All selects every row of the entity.
type All struct{}

func (ByID) selectionNode()      {}
func (ByField) selectionNode()   {}
func (ByIDRange) selectionNode() {}
func (All) selectionNode()       {}

// compileSelection converts a selection to a parameterized WHERE clause
// (without the keyword; empty for All). Field names are checked against the
// descriptor so an unknown field fails here rather than producing bad SQL.
func compileSelection(ent *schema.EntityDescriptor, sel Selection) (string, []any, error) {
	switch s := sel.(type) {
	case ByID:
		return "id = ?", []any{s.ID}, nil
	case ByField:
		if s.Field != "id" {
			if _, ok := ent.Field(s.Field); !ok {
				return "", nil, fmt.Errorf("entity %s has no field %q", ent.Name, s.Field)
			}
		}
		return s.Field + " = ?", []any{s.Value}, nil
	case ByIDRange:
		return "id >= ? AND id <= ?", []any{s.Start, s.End}, nil
	case All:
		return "", nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported selection type: %T", sel)
	}
}

// placeholders returns "?, ?, ..." for n bound values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// int64Args widens ids for variadic query arguments.
func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
