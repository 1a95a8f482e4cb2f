package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/toverud/lexivault/internal/schema"
)

// maxBindVars caps how many values a single statement binds. SQLite's
// variable limit is 999 in older builds; chunking well below it keeps
// generated IN lists safe everywhere.
const maxBindVars = 500

// timestampFormats lists the layouts a stored timestamp may carry: the
// snapshot format, the driver's bind format, and SQLite's CURRENT_TIMESTAMP.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// columnList returns the SELECT column list for an entity: id first, then
// the descriptor's fields in declaration order.
func columnList(ent *schema.EntityDescriptor) string {
	cols := make([]string, 0, len(ent.Fields)+1)
	cols = append(cols, "id")
	for _, f := range ent.Fields {
		cols = append(cols, f.Name)
	}
	return strings.Join(cols, ", ")
}

// scanRow scans the current result row into a Row, normalizing each column
// into the snapshot value domain.
func scanRow(rows *sql.Rows, ent *schema.EntityDescriptor) (Row, error) {
	raw := make([]any, len(ent.Fields)+1)
	dest := make([]any, len(raw))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return Row{}, fmt.Errorf("scan %s row: %w", ent.Table, err)
	}

	id, ok := raw[0].(int64)
	if !ok {
		return Row{}, fmt.Errorf("%s id column: unexpected type %T", ent.Table, raw[0])
	}

	values := make(map[string]any, len(ent.Fields))
	for i, f := range ent.Fields {
		values[f.Name] = normalizeColumnValue(raw[i+1], f.Kind)
	}
	return Row{ID: id, Values: values}, nil
}

// normalizeColumnValue maps a driver value into the snapshot value domain
// (nil, bool, int64, float64, string). The sqlite driver already applies
// decltype conversions (BOOLEAN to bool, TIMESTAMP to time.Time); timestamps
// are flattened to RFC 3339 UTC text so snapshots serialize identically
// across codecs.
func normalizeColumnValue(v any, kind schema.FieldKind) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		return x
	case int64:
		if kind == schema.KindBoolean {
			return x != 0
		}
		return x
	case float64:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []byte:
		return normalizeText(string(x), kind)
	case string:
		return normalizeText(x, kind)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// normalizeText re-parses timestamp text the driver could not convert, so a
// raw CURRENT_TIMESTAMP default still lands in the snapshot as RFC 3339 UTC.
func normalizeText(s string, kind schema.FieldKind) any {
	if kind == schema.KindTimestamp {
		if t, err := parseTimestamp(s); err == nil {
			return t.UTC().Format(time.RFC3339Nano)
		}
	}
	return s
}

// bindColumnValue converts a snapshot-domain value back into a driver
// argument for the field's declared kind. Timestamps become time.Time so the
// driver stores them in its own format; a timestamp string that cannot be
// parsed is a serialization defect and fails the bind.
func bindColumnValue(v any, kind schema.FieldKind) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case schema.KindTimestamp:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			t, err := parseTimestamp(x)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
	case schema.KindBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		}
	case schema.KindInteger, schema.KindForeignKey:
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			return int64(x), nil
		}
	}
	return v, nil
}

// bindRow converts a full row into statement arguments in column order:
// id first, then each descriptor field.
func bindRow(ent *schema.EntityDescriptor, row Row) ([]any, error) {
	args := make([]any, 0, len(ent.Fields)+1)
	args = append(args, row.ID)
	for _, f := range ent.Fields {
		v, err := bindColumnValue(row.Values[f.Name], f.Kind)
		if err != nil {
			return nil, fmt.Errorf("bind %s.%s: %w", ent.Name, f.Name, err)
		}
		args = append(args, v)
	}
	return args, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// chunkIDs splits an id list into slices that each fit under the bind
// variable cap. Returns nil for an empty list.
func chunkIDs(ids []int64) [][]int64 {
	if len(ids) == 0 {
		return nil
	}
	var chunks [][]int64
	for start := 0; start < len(ids); start += maxBindVars {
		end := min(start+maxBindVars, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
