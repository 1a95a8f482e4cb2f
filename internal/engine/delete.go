package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/toverud/lexivault/internal/schema"
	"github.com/toverud/lexivault/internal/snapshot"
	"github.com/toverud/lexivault/internal/store"
)

// deleteRequest carries one delete operation through the shared
// capture/persist/remove flow.
type deleteRequest struct {
	op           string
	storeSel     store.Selection
	snapSel      snapshot.Selection
	lastChild    bool   // evaluate the last-child orphan policy
	cascadeField string // non-empty: cascade the parents this fk field references
}

// DeleteByID removes one row and its immediate child rows after
// capturing a restorable snapshot. The orphan policy runs: a parent
// left without children by this delete is removed and captured in the
// same snapshot.
func (e *Engine) DeleteByID(ctx context.Context, entityType string, id int64) (DeleteResult, error) {
	ent, err := e.describeEntity("deleteById", entityType)
	if err != nil {
		return DeleteResult{}, err
	}
	return e.runDelete(ctx, ent, deleteRequest{
		op:        "deleteById",
		storeSel:  store.ByID{ID: id},
		snapSel:   snapshot.Selection{Mode: snapshot.ModeSingle, ID: id},
		lastChild: true,
	})
}

// DeleteByFieldValue removes every row whose field equals value. When
// cascadeParent is set and the field is a foreign key, the referenced
// parent rows are captured and deleted in the same operation.
func (e *Engine) DeleteByFieldValue(ctx context.Context, entityType, field string, value any, cascadeParent bool) (DeleteResult, error) {
	const op = "deleteByFieldValue"
	ent, err := e.describeEntity(op, entityType)
	if err != nil {
		return DeleteResult{}, err
	}
	if field != "id" {
		f, ok := ent.Field(field)
		if !ok {
			return DeleteResult{}, NewNotFoundError(op, entityType, fmt.Sprintf("unknown field %q", field))
		}
		value = coerceFieldValue(f.Kind, value)
	} else {
		value = coerceFieldValue(schema.KindInteger, value)
	}

	req := deleteRequest{
		op:       op,
		storeSel: store.ByField{Field: field, Value: value},
		snapSel:  snapshot.Selection{Mode: snapshot.ModeByField, Field: field, Value: value},
	}
	if cascadeParent {
		req.cascadeField = field
	}
	return e.runDelete(ctx, ent, req)
}

// DeleteByIDRange removes every row with an id in the inclusive range.
// Swapped bounds are normalized.
func (e *Engine) DeleteByIDRange(ctx context.Context, entityType string, startID, endID int64) (DeleteResult, error) {
	ent, err := e.describeEntity("deleteByIdRange", entityType)
	if err != nil {
		return DeleteResult{}, err
	}
	if startID > endID {
		startID, endID = endID, startID
	}
	return e.runDelete(ctx, ent, deleteRequest{
		op:       "deleteByIdRange",
		storeSel: store.ByIDRange{Start: startID, End: endID},
		snapSel:  snapshot.Selection{Mode: snapshot.ModeIDRange, StartID: startID, EndID: endID},
	})
}

// DeleteAll removes every row of the entity type.
func (e *Engine) DeleteAll(ctx context.Context, entityType string) (DeleteResult, error) {
	ent, err := e.describeEntity("deleteAll", entityType)
	if err != nil {
		return DeleteResult{}, err
	}
	return e.runDelete(ctx, ent, deleteRequest{
		op:       "deleteAll",
		storeSel: store.All{},
		snapSel:  snapshot.Selection{Mode: snapshot.ModeAll},
	})
}

func (e *Engine) describeEntity(op, entityType string) (*schema.EntityDescriptor, error) {
	ent, ok := e.registry.Describe(entityType)
	if !ok {
		return nil, NewNotFoundError(op, entityType, fmt.Sprintf("unknown entity type %q", entityType))
	}
	return ent, nil
}

// runDelete is the shared flow behind every delete entry point: select
// the primary rows, capture the snapshot, persist it to the Operation
// Store, then remove rows bottom-up, all inside one transaction.
//
// The snapshot is persisted before the first row is removed; any
// failure up to that point leaves the data untouched, and a failure
// after it rolls the transaction back while the (now unused) snapshot
// ages out of the Operation Store on its own.
func (e *Engine) runDelete(ctx context.Context, ent *schema.EntityDescriptor, req deleteRequest) (DeleteResult, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("%s: begin transaction: %w", req.op, err)
	}
	defer tx.Rollback() // No-op if committed

	txs := e.store.WithTx(tx)

	rows, err := txs.SelectRows(ctx, ent, req.storeSel)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("%s: select %s rows: %w", req.op, ent.Name, err)
	}
	if len(rows) == 0 {
		return DeleteResult{}, NewNotFoundError(req.op, ent.Name, "no rows match the selection")
	}

	operationID := operationKey(e.idgen.Generate())

	snap, err := e.buildSnapshot(ctx, txs, ent, operationID, req.snapSel, rows)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("%s: %w", req.op, err)
	}

	if req.lastChild {
		cascades, err := e.lastChildCascades(ctx, txs, ent, rows)
		if err != nil {
			return DeleteResult{}, fmt.Errorf("%s: %w", req.op, err)
		}
		snap.CascadedRows = append(snap.CascadedRows, cascades...)
	}
	if req.cascadeField != "" {
		cascades, err := e.parentCascades(ctx, txs, ent, req.cascadeField, rows)
		if err != nil {
			return DeleteResult{}, fmt.Errorf("%s: %w", req.op, err)
		}
		snap.CascadedRows = append(snap.CascadedRows, cascades...)
	}

	payload, err := snapshot.Encode(e.codec, snap)
	if err != nil {
		return DeleteResult{}, NewSerializationError(req.op, ent.Name, err)
	}
	if err := e.ops.Put(ctx, operationID, payload, e.retention); err != nil {
		return DeleteResult{}, &Error{
			Code:       ErrCodeSerialization,
			Message:    "snapshot could not be persisted",
			EntityType: ent.Name,
			Op:         req.op,
			Err:        err,
		}
	}

	if err := e.deleteCaptured(ctx, txs, ent, snap, rows); err != nil {
		return DeleteResult{}, fmt.Errorf("%s: %w", req.op, err)
	}

	if err := tx.Commit(); err != nil {
		return DeleteResult{}, fmt.Errorf("%s: commit: %w", req.op, err)
	}

	e.logger.Info("delete completed",
		"op", req.op,
		"entity", ent.Name,
		"operation", operationID,
		"count", len(rows),
		"captured", snap.RowCount(),
		"cascaded", len(snap.CascadedRows),
	)

	return DeleteResult{OperationID: operationID, Count: int64(len(rows))}, nil
}

// deleteCaptured removes rows bottom-up: child rows first, then the
// primary selection, then any cascaded parents. By that point the
// cascaded parents have no remaining children, so the foreign-key
// constraints hold at every step.
func (e *Engine) deleteCaptured(ctx context.Context, txs *store.Store, ent *schema.EntityDescriptor, snap *snapshot.Snapshot, rows []store.Row) error {
	ids := rowIDs(rows)
	for _, link := range e.registry.ChildrenOf(ent.Name) {
		childEnt, ok := e.registry.Describe(link.Entity)
		if !ok {
			continue
		}
		if _, err := txs.DeleteChildRows(ctx, childEnt, link.Field, ids); err != nil {
			return fmt.Errorf("delete %s rows: %w", link.Entity, err)
		}
	}
	if _, err := txs.DeleteByIDs(ctx, ent, ids); err != nil {
		return fmt.Errorf("delete %s rows: %w", ent.Name, err)
	}
	for _, cascaded := range snap.CascadedRows {
		cascEnt, ok := e.registry.Describe(cascaded.EntityType)
		if !ok {
			continue
		}
		if _, err := txs.DeleteByIDs(ctx, cascEnt, []int64{cascaded.ID}); err != nil {
			return fmt.Errorf("delete cascaded %s row: %w", cascaded.EntityType, err)
		}
	}
	return nil
}

// coerceFieldValue converts CLI string input to the column's bind type
// so SQLite comparisons match. Unconvertible input passes through and
// simply matches nothing.
func coerceFieldValue(kind schema.FieldKind, v any) any {
	s, isString := v.(string)
	if !isString {
		return v
	}
	switch kind {
	case schema.KindInteger, schema.KindForeignKey:
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n
		}
	case schema.KindBoolean:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return v
}
