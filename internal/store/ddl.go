package store

import (
	"fmt"
	"strings"

	"github.com/toverud/lexivault/internal/schema"
)

// schemaStatements generates the CREATE statements for every entity in the
// registry, parents before children so foreign-key references resolve.
//
// Identifiers come from the validated registry, never from caller input, so
// interpolating them is safe. Values are always parameterized elsewhere.
func schemaStatements(reg *schema.Registry) []string {
	var stmts []string
	for _, ent := range topoOrder(reg) {
		stmts = append(stmts, createTableSQL(reg, ent))
		for _, f := range ent.Fields {
			if f.Kind == schema.KindForeignKey {
				stmts = append(stmts, createIndexSQL(ent, f))
			}
		}
	}
	return stmts
}

func createTableSQL(reg *schema.Registry, ent *schema.EntityDescriptor) string {
	cols := make([]string, 0, len(ent.Fields)+1)
	cols = append(cols, "id INTEGER PRIMARY KEY")
	for _, f := range ent.Fields {
		cols = append(cols, columnDef(reg, f))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", ent.Table, strings.Join(cols, ",\n\t"))
}

func createIndexSQL(ent *schema.EntityDescriptor, f schema.FieldDescriptor) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)", ent.Table, f.Name, ent.Table, f.Name)
}

// columnDef maps a field descriptor to its column definition.
//
// Stub rows recreated during a degraded restore carry only their primary
// key, so every other column must be insertable by omission: plain columns
// get a DEFAULT, while unique and foreign key columns stay nullable at the
// column level (SQLite treats NULLs as distinct under UNIQUE, so two stubs
// of the same entity never collide). Foreign keys carry no ON DELETE action:
// the engine deletes children explicitly before parents, and a constraint
// error here means a row escaped capture.
func columnDef(reg *schema.Registry, f schema.FieldDescriptor) string {
	var b strings.Builder
	b.WriteString(f.Name)

	switch f.Kind {
	case schema.KindString, schema.KindText:
		b.WriteString(" TEXT")
	case schema.KindBoolean:
		b.WriteString(" BOOLEAN")
	case schema.KindTimestamp:
		b.WriteString(" TIMESTAMP")
	case schema.KindInteger, schema.KindForeignKey:
		b.WriteString(" INTEGER")
	default:
		b.WriteString(" TEXT")
	}

	if !f.Nullable && !f.Unique && f.Kind != schema.KindForeignKey {
		b.WriteString(" NOT NULL")
		switch f.Kind {
		case schema.KindString, schema.KindText:
			b.WriteString(" DEFAULT ''")
		case schema.KindBoolean, schema.KindInteger:
			b.WriteString(" DEFAULT 0")
		case schema.KindTimestamp:
			b.WriteString(" DEFAULT CURRENT_TIMESTAMP")
		}
	}
	if f.Unique {
		b.WriteString(" UNIQUE")
	}
	if f.Kind == schema.KindForeignKey {
		if parent, ok := reg.Describe(f.Ref); ok {
			fmt.Fprintf(&b, " REFERENCES %s (id)", parent.Table)
		}
	}
	return b.String()
}

// topoOrder returns the registry's entities with every parent before its
// children. The registry guarantees the link graph is acyclic.
func topoOrder(reg *schema.Registry) []*schema.EntityDescriptor {
	ents := reg.Entities()
	emitted := make(map[string]bool, len(ents))
	ordered := make([]*schema.EntityDescriptor, 0, len(ents))

	for len(ordered) < len(ents) {
		progressed := false
		for _, ent := range ents {
			if emitted[ent.Name] {
				continue
			}
			ready := true
			for _, link := range ent.ParentLinks {
				if link.Entity != ent.Name && !emitted[link.Entity] {
					ready = false
					break
				}
			}
			if ready {
				emitted[ent.Name] = true
				ordered = append(ordered, ent)
				progressed = true
			}
		}
		if !progressed {
			// Unreachable for a validated registry; avoid spinning anyway.
			for _, ent := range ents {
				if !emitted[ent.Name] {
					emitted[ent.Name] = true
					ordered = append(ordered, ent)
				}
			}
		}
	}
	return ordered
}
