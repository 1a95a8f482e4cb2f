package store

import (
	"context"
	"fmt"

	"github.com/toverud/lexivault/internal/schema"
)

// Row is one table row. The primary key is split out from the remaining
// columns; Values is keyed by field name and holds snapshot-domain values
// (nil, bool, int64, float64, string).
type Row struct {
	ID     int64
	Values map[string]any
}

// SelectRows returns the rows matched by a selection.
// Results are ordered by id ASC so captures and deletions see the same
// deterministic row order.
//
// Returns an empty slice (not nil) if no rows match.
func (s *Store) SelectRows(ctx context.Context, ent *schema.EntityDescriptor, sel Selection) ([]Row, error) {
	where, args, err := compileSelection(ent, sel)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + columnList(ent) + " FROM " + ent.Table
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id ASC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", ent.Table, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows, ent)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", ent.Table, err)
	}

	// Return empty slice instead of nil
	if out == nil {
		out = []Row{}
	}

	return out, nil
}

// SelectChildRows returns rows of ent whose foreign key field references any
// of the parent ids. Large parent sets are chunked to stay under the SQLite
// bind variable limit. Results are ordered by id ASC within each chunk, and
// chunks follow the caller's parent id order.
func (s *Store) SelectChildRows(ctx context.Context, ent *schema.EntityDescriptor, field string, parentIDs []int64) ([]Row, error) {
	if _, ok := ent.Field(field); !ok {
		return nil, fmt.Errorf("entity %s has no field %q", ent.Name, field)
	}
	out := []Row{}
	for _, chunk := range chunkIDs(parentIDs) {
		query := "SELECT " + columnList(ent) + " FROM " + ent.Table +
			" WHERE " + field + " IN (" + placeholders(len(chunk)) + ") ORDER BY id ASC"

		rows, err := s.q.QueryContext(ctx, query, int64Args(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("query %s by %s: %w", ent.Table, field, err)
		}

		for rows.Next() {
			r, err := scanRow(rows, ent)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate %s: %w", ent.Table, err)
		}
		rows.Close()
	}
	return out, nil
}

// GetRow retrieves a single row by primary key.
// Returns false if the row does not exist.
func (s *Store) GetRow(ctx context.Context, ent *schema.EntityDescriptor, id int64) (Row, bool, error) {
	rows, err := s.SelectRows(ctx, ent, ByID{ID: id})
	if err != nil {
		return Row{}, false, err
	}
	if len(rows) == 0 {
		return Row{}, false, nil
	}
	return rows[0], true, nil
}

// RowExists reports whether a row with the given primary key exists.
func (s *Store) RowExists(ctx context.Context, ent *schema.EntityDescriptor, id int64) (bool, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+ent.Table+" WHERE id = ?", id,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check %s row: %w", ent.Table, err)
	}
	return count > 0, nil
}

// CountRows returns the number of rows in the entity's table.
func (s *Store) CountRows(ctx context.Context, ent *schema.EntityDescriptor) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ent.Table).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", ent.Table, err)
	}
	return count, nil
}

// CountSiblings counts rows referencing a parent through field, excluding the
// given ids. Orphan policy checks use this to ask how many siblings would
// remain after a delete commits.
func (s *Store) CountSiblings(ctx context.Context, ent *schema.EntityDescriptor, field string, parentID int64, excludeIDs []int64) (int, error) {
	if _, ok := ent.Field(field); !ok {
		return 0, fmt.Errorf("entity %s has no field %q", ent.Name, field)
	}
	query := "SELECT COUNT(*) FROM " + ent.Table + " WHERE " + field + " = ?"
	args := []any{parentID}
	// NOT IN chunks combine with AND, so the query stays a single statement
	// even for large exclusion sets.
	for _, chunk := range chunkIDs(excludeIDs) {
		query += " AND id NOT IN (" + placeholders(len(chunk)) + ")"
		args = append(args, int64Args(chunk)...)
	}

	var count int
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s siblings: %w", ent.Table, err)
	}
	return count, nil
}
