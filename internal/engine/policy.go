package engine

import (
	"context"
	"fmt"

	"github.com/toverud/lexivault/internal/schema"
	"github.com/toverud/lexivault/internal/snapshot"
	"github.com/toverud/lexivault/internal/store"
)

// lastChildCascades evaluates the orphan policy for a row set about to
// be deleted: for each configured (child, parent) rule, a parent that
// would be left with no remaining child rows is captured for cascade
// deletion alongside the selection.
//
// Sibling counts exclude the rows being deleted, so a single delete
// that covers all of a parent's children still triggers the cascade.
// Parents whose row is already gone contribute nothing.
func (e *Engine) lastChildCascades(ctx context.Context, txs *store.Store, ent *schema.EntityDescriptor, rows []store.Row) ([]snapshot.CascadedRow, error) {
	rules := e.registry.RulesFor(ent.Name)
	if len(rules) == 0 {
		return nil, nil
	}

	deletedIDs := rowIDs(rows)
	var out []snapshot.CascadedRow
	for _, rule := range rules {
		parentEnt, ok := e.registry.Describe(rule.Parent)
		if !ok {
			return nil, NewPolicyViolationError(ent.Name,
				fmt.Sprintf("policy rule references unregistered entity %q", rule.Parent))
		}
		for _, pid := range distinctFieldIDs(rows, rule.Via) {
			left, err := txs.CountSiblings(ctx, ent, rule.Via, pid, deletedIDs)
			if err != nil {
				return nil, fmt.Errorf("count surviving %s rows: %w", ent.Name, err)
			}
			if left > 0 {
				continue
			}
			row, found, err := txs.GetRow(ctx, parentEnt, pid)
			if err != nil {
				return nil, fmt.Errorf("capture cascaded %s row: %w", rule.Parent, err)
			}
			if !found {
				continue
			}
			out = append(out, snapshot.CascadedRow{
				EntityType: rule.Parent,
				Rule:       snapshot.RuleLastChild,
				ParentID:   pid,
				ID:         pid,
				Fields:     row.Values,
			})
		}
	}
	return out, nil
}

// parentCascades captures the parent rows referenced by an explicit
// cascade-parent delete: every distinct row the selection points at
// through the given foreign-key field. Non-fk fields engage nothing.
func (e *Engine) parentCascades(ctx context.Context, txs *store.Store, ent *schema.EntityDescriptor, field string, rows []store.Row) ([]snapshot.CascadedRow, error) {
	f, ok := ent.Field(field)
	if !ok || f.Kind != schema.KindForeignKey {
		return nil, nil
	}
	parentEnt, ok := e.registry.Describe(f.Ref)
	if !ok {
		return nil, NewPolicyViolationError(ent.Name,
			fmt.Sprintf("field %s references unregistered entity %q", field, f.Ref))
	}

	var out []snapshot.CascadedRow
	for _, pid := range distinctFieldIDs(rows, field) {
		row, found, err := txs.GetRow(ctx, parentEnt, pid)
		if err != nil {
			return nil, fmt.Errorf("capture cascaded %s row: %w", f.Ref, err)
		}
		if !found {
			continue
		}
		out = append(out, snapshot.CascadedRow{
			EntityType: f.Ref,
			Rule:       snapshot.RuleCascadeParent,
			ParentID:   pid,
			ID:         pid,
			Fields:     row.Values,
		})
	}
	return out, nil
}
