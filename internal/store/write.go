package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/toverud/lexivault/internal/schema"
)

// InsertRow inserts a row under its original id. Fails if the id is taken;
// callers that need idempotency check existence or use UpsertRow.
func (s *Store) InsertRow(ctx context.Context, ent *schema.EntityDescriptor, row Row) error {
	args, err := bindRow(ent, row)
	if err != nil {
		return fmt.Errorf("insert %s: %w", ent.Table, err)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ent.Table, columnList(ent), placeholders(len(args)))
	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", ent.Table, err)
	}
	return nil
}

// UpsertRow writes a row under its original id, overwriting any row that
// reoccupied the id since deletion. Uses ON CONFLICT(id) DO UPDATE so the
// write behaves like a save-by-primary-key and stays idempotent.
func (s *Store) UpsertRow(ctx context.Context, ent *schema.EntityDescriptor, row Row) error {
	args, err := bindRow(ent, row)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", ent.Table, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		ent.Table, columnList(ent), placeholders(len(args)))
	if len(ent.Fields) == 0 {
		b.WriteString(" ON CONFLICT(id) DO NOTHING")
	} else {
		b.WriteString(" ON CONFLICT(id) DO UPDATE SET ")
		for i, f := range ent.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name + " = excluded." + f.Name)
		}
	}

	if _, err := s.q.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("upsert %s: %w", ent.Table, err)
	}
	return nil
}

// InsertStub creates a placeholder row holding only the primary key; every
// other column takes its schema default. Uses ON CONFLICT(id) DO NOTHING for
// idempotency and reports whether a row was actually created.
func (s *Store) InsertStub(ctx context.Context, ent *schema.EntityDescriptor, id int64) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO "+ent.Table+" (id) VALUES (?) ON CONFLICT(id) DO NOTHING", id)
	if err != nil {
		return false, fmt.Errorf("stub %s: %w", ent.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("stub %s: rows affected: %w", ent.Table, err)
	}
	return n > 0, nil
}

// DeleteByIDs removes rows by primary key, chunked under the bind variable
// cap, and returns how many rows were removed.
func (s *Store) DeleteByIDs(ctx context.Context, ent *schema.EntityDescriptor, ids []int64) (int64, error) {
	var total int64
	for _, chunk := range chunkIDs(ids) {
		res, err := s.q.ExecContext(ctx,
			"DELETE FROM "+ent.Table+" WHERE id IN ("+placeholders(len(chunk))+")",
			int64Args(chunk)...)
		if err != nil {
			return total, fmt.Errorf("delete from %s: %w", ent.Table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("delete from %s: rows affected: %w", ent.Table, err)
		}
		total += n
	}
	return total, nil
}

// DeleteChildRows removes rows of ent whose foreign key field references any
// of the parent ids. Restores use this to clear interim children before
// reinserting the captured originals.
func (s *Store) DeleteChildRows(ctx context.Context, ent *schema.EntityDescriptor, field string, parentIDs []int64) (int64, error) {
	if _, ok := ent.Field(field); !ok {
		return 0, fmt.Errorf("entity %s has no field %q", ent.Name, field)
	}
	var total int64
	for _, chunk := range chunkIDs(parentIDs) {
		res, err := s.q.ExecContext(ctx,
			"DELETE FROM "+ent.Table+" WHERE "+field+" IN ("+placeholders(len(chunk))+")",
			int64Args(chunk)...)
		if err != nil {
			return total, fmt.Errorf("delete %s by %s: %w", ent.Table, field, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("delete %s by %s: rows affected: %w", ent.Table, field, err)
		}
		total += n
	}
	return total, nil
}
