package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/toverud/lexivault/internal/schema"
	"github.com/toverud/lexivault/internal/snapshot"
	"github.com/toverud/lexivault/internal/store"
)

// buildSnapshot captures everything a delete operation is about to
// remove: the primary rows, every immediate child row referencing them,
// and every ancestor row they reference. Reads only; the caller appends
// policy cascades and persists the document before any row is touched.
//
// Capture runs on the deletion transaction so the document reflects the
// exact state the delete will act on.
func (e *Engine) buildSnapshot(ctx context.Context, txs *store.Store, ent *schema.EntityDescriptor, operationID string, sel snapshot.Selection, rows []store.Row) (*snapshot.Snapshot, error) {
	now := e.clock.Now()
	snap := &snapshot.Snapshot{
		OperationID: operationID,
		EntityType:  ent.Name,
		Selection:   sel,
		PrimaryRows: make([]snapshot.RowData, 0, len(rows)),
		CapturedAt:  now,
		ExpiresAt:   now.Add(e.retention),
	}

	for _, row := range rows {
		snap.PrimaryRows = append(snap.PrimaryRows, snapshot.RowData{ID: row.ID, Fields: row.Values})
	}

	related, err := e.captureRelated(ctx, txs, ent, rowIDs(rows))
	if err != nil {
		return nil, err
	}
	snap.RelatedRows = related

	parents, err := e.captureParents(ctx, txs, ent, rows)
	if err != nil {
		return nil, err
	}
	snap.ParentRows = parents

	return snap, nil
}

// captureRelated serializes the immediate child rows of the primary
// selection, grouped by child entity type. A child entity referencing
// the primaries through two fields contributes all its rows to one
// group; each row still records the parent id its own field held.
func (e *Engine) captureRelated(ctx context.Context, txs *store.Store, ent *schema.EntityDescriptor, parentIDs []int64) (map[string]snapshot.RelatedGroup, error) {
	links := e.registry.ChildrenOf(ent.Name)
	if len(links) == 0 {
		return nil, nil
	}

	out := make(map[string]snapshot.RelatedGroup)
	for _, link := range links {
		childEnt, ok := e.registry.Describe(link.Entity)
		if !ok {
			continue
		}
		rows, err := txs.SelectChildRows(ctx, childEnt, link.Field, parentIDs)
		if err != nil {
			return nil, fmt.Errorf("capture %s rows: %w", link.Entity, err)
		}
		if len(rows) == 0 {
			continue
		}
		group, exists := out[link.Entity]
		if !exists {
			group = snapshot.RelatedGroup{Field: link.Field}
		}
		for _, row := range rows {
			pid, _ := fkValue(row.Values[link.Field])
			group.Rows = append(group.Rows, snapshot.RelatedRow{
				ID:       row.ID,
				ParentID: pid,
				Fields:   row.Values,
			})
		}
		out[link.Entity] = group
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// captureParents serializes the ancestor rows referenced by the primary
// selection, one group per parent entity type. An ancestor id whose row
// is already gone is recorded with no data; restoration then leaves it
// to the stub guard at the child level.
func (e *Engine) captureParents(ctx context.Context, txs *store.Store, ent *schema.EntityDescriptor, rows []store.Row) (map[string]snapshot.ParentGroup, error) {
	links := e.registry.ParentsOf(ent.Name)
	if len(links) == 0 {
		return nil, nil
	}

	out := make(map[string]snapshot.ParentGroup)
	for _, link := range links {
		parentEnt, ok := e.registry.Describe(link.Entity)
		if !ok {
			continue
		}
		ids := distinctFieldIDs(rows, link.Field)
		if len(ids) == 0 {
			continue
		}
		group, exists := out[link.Entity]
		if !exists {
			group = snapshot.ParentGroup{Field: link.Field}
		}
		for _, id := range ids {
			row, found, err := txs.GetRow(ctx, parentEnt, id)
			if err != nil {
				return nil, fmt.Errorf("capture %s ancestor: %w", link.Entity, err)
			}
			entry := snapshot.ParentEntry{ID: id}
			if found {
				entry.Data = row.Values
			}
			group.Entries = append(group.Entries, entry)
		}
		out[link.Entity] = group
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// rowIDs collects the primary keys of a row set, preserving order.
func rowIDs(rows []store.Row) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids
}

// distinctFieldIDs collects the distinct non-NULL id values a row set
// holds in one field, ascending.
func distinctFieldIDs(rows []store.Row, field string) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, row := range rows {
		id, ok := fkValue(row.Values[field])
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// fkValue extracts an id from a field value. Scanned rows carry int64;
// decoded snapshots may carry float64 for values that lost integer
// typing in transit. NULL references return false.
func fkValue(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	case int:
		return int64(x), true
	}
	return 0, false
}
