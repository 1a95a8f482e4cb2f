package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/toverud/lexivault/internal/opstore"
	"github.com/toverud/lexivault/internal/schema"
	"github.com/toverud/lexivault/internal/snapshot"
	"github.com/toverud/lexivault/internal/store"
)

// Undo restores everything a delete operation removed.
//
// Rows come back in dependency order: policy-cascaded ancestors first,
// then captured ancestor rows, then the primary rows, then child rows.
// Ancestor writes are guarded by existence checks, so re-running an
// undo, or undoing after a parent was independently recreated, never
// duplicates a row. A referenced parent that is missing from both the
// database and the snapshot is recreated as a stub row so children can
// attach; the result is then flagged degraded.
//
// Any row-save failure aborts the whole undo transaction and leaves
// the snapshot in the Operation Store for a later retry.
func (e *Engine) Undo(ctx context.Context, operationID string) (RestoreResult, error) {
	payload, err := e.ops.Get(ctx, operationID)
	if err != nil {
		if errors.Is(err, opstore.ErrNotFound) {
			return RestoreResult{}, NewExpiredError(operationID)
		}
		ee := NewExpiredError(operationID)
		ee.Message = "snapshot could not be loaded"
		ee.Err = err
		return RestoreResult{}, ee
	}

	snap, err := snapshot.Decode(payload)
	if err != nil {
		return RestoreResult{}, NewSerializationError("undo", "", err)
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("undo: begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	txs := e.store.WithTx(tx)

	var restored int64
	degraded := false

	for _, cascaded := range snap.CascadedRows {
		ent, ok := e.registry.Describe(cascaded.EntityType)
		if !ok {
			return RestoreResult{}, NewPartialRestoreError(operationID, cascaded.EntityType,
				fmt.Errorf("entity type no longer registered"))
		}
		created, err := e.restoreIfMissing(ctx, txs, ent, cascaded.ID, cascaded.Fields)
		if err != nil {
			return RestoreResult{}, NewPartialRestoreError(operationID, cascaded.EntityType, err)
		}
		if created {
			restored++
		}
	}

	for _, parentType := range sortedGroupKeys(snap.ParentRows) {
		group := snap.ParentRows[parentType]
		ent, ok := e.registry.Describe(parentType)
		if !ok {
			return RestoreResult{}, NewPartialRestoreError(operationID, parentType,
				fmt.Errorf("entity type no longer registered"))
		}
		for _, entry := range group.Entries {
			if entry.Data == nil {
				continue
			}
			created, err := e.restoreIfMissing(ctx, txs, ent, entry.ID, entry.Data)
			if err != nil {
				return RestoreResult{}, NewPartialRestoreError(operationID, parentType, err)
			}
			if created {
				restored++
			}
		}
	}

	primaryEnt, ok := e.registry.Describe(snap.EntityType)
	if !ok {
		return RestoreResult{}, NewPartialRestoreError(operationID, snap.EntityType,
			fmt.Errorf("entity type no longer registered"))
	}
	for _, row := range snap.PrimaryRows {
		stubbed, err := e.ensureParentRows(ctx, txs, primaryEnt, row.Fields)
		if err != nil {
			return RestoreResult{}, NewPartialRestoreError(operationID, snap.EntityType, err)
		}
		degraded = degraded || stubbed
		if err := txs.UpsertRow(ctx, primaryEnt, store.Row{ID: row.ID, Values: row.Fields}); err != nil {
			return RestoreResult{}, NewPartialRestoreError(operationID, snap.EntityType, err)
		}
		restored++
	}

	for _, childType := range sortedGroupKeys(snap.RelatedRows) {
		group := snap.RelatedRows[childType]
		childEnt, ok := e.registry.Describe(childType)
		if !ok {
			return RestoreResult{}, NewPartialRestoreError(operationID, childType,
				fmt.Errorf("entity type no longer registered"))
		}
		// Rows recreated under the restored parents since the delete
		// would collide with the originals; clear them first.
		parentIDs := relatedParentIDs(group.Rows)
		if _, err := txs.DeleteChildRows(ctx, childEnt, group.Field, parentIDs); err != nil {
			return RestoreResult{}, NewPartialRestoreError(operationID, childType, err)
		}
		for _, row := range group.Rows {
			stubbed, err := e.ensureParentRows(ctx, txs, childEnt, row.Fields)
			if err != nil {
				return RestoreResult{}, NewPartialRestoreError(operationID, childType, err)
			}
			degraded = degraded || stubbed
			if err := txs.UpsertRow(ctx, childEnt, store.Row{ID: row.ID, Values: row.Fields}); err != nil {
				return RestoreResult{}, NewPartialRestoreError(operationID, childType, err)
			}
			restored++
		}
	}

	if err := tx.Commit(); err != nil {
		return RestoreResult{}, fmt.Errorf("undo: commit: %w", err)
	}

	// The snapshot has served its purpose. Cleanup is best-effort; a
	// leftover entry ages out through its TTL.
	if err := e.ops.Delete(ctx, operationID); err != nil {
		e.logger.Warn("snapshot cleanup failed", "operation", operationID, "error", err)
	}

	e.logger.Info("undo completed",
		"operation", operationID,
		"entity", snap.EntityType,
		"restored", restored,
		"degraded", degraded,
	)

	return RestoreResult{Restored: restored, Degraded: degraded}, nil
}

// restoreIfMissing writes an ancestor row unless a row with its id
// already exists. Reports whether a write happened.
func (e *Engine) restoreIfMissing(ctx context.Context, txs *store.Store, ent *schema.EntityDescriptor, id int64, fields map[string]any) (bool, error) {
	exists, err := txs.RowExists(ctx, ent, id)
	if err != nil {
		return false, fmt.Errorf("check %s row: %w", ent.Name, err)
	}
	if exists {
		return false, nil
	}
	if err := txs.InsertRow(ctx, ent, store.Row{ID: id, Values: fields}); err != nil {
		return false, fmt.Errorf("restore %s row: %w", ent.Name, err)
	}
	return true, nil
}

// ensureParentRows guarantees every parent a row references exists
// before the row is written, creating a stub where neither the database
// nor the snapshot has the original. Reports whether a stub was created.
func (e *Engine) ensureParentRows(ctx context.Context, txs *store.Store, ent *schema.EntityDescriptor, fields map[string]any) (bool, error) {
	degraded := false
	for _, link := range ent.ParentLinks {
		pid, ok := fkValue(fields[link.Field])
		if !ok {
			continue
		}
		parentEnt, ok := e.registry.Describe(link.Entity)
		if !ok {
			continue
		}
		exists, err := txs.RowExists(ctx, parentEnt, pid)
		if err != nil {
			return degraded, fmt.Errorf("check %s row: %w", link.Entity, err)
		}
		if exists {
			continue
		}
		created, err := txs.InsertStub(ctx, parentEnt, pid)
		if err != nil {
			return degraded, fmt.Errorf("create stub %s row: %w", link.Entity, err)
		}
		if created {
			degraded = true
			e.logger.Warn("stub parent created",
				"entity", link.Entity,
				"id", pid,
				"child", ent.Name,
			)
		}
	}
	return degraded, nil
}

// relatedParentIDs collects the distinct parent ids a captured child
// group references, ascending.
func relatedParentIDs(rows []snapshot.RelatedRow) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, row := range rows {
		if seen[row.ParentID] {
			continue
		}
		seen[row.ParentID] = true
		ids = append(ids, row.ParentID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedGroupKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
