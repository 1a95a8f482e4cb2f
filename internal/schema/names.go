package schema

import (
	"strings"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// displayName derives a human-readable name from a snake_case identifier:
// "french_word" -> "French Word", "category_2" -> "Category 2".
func displayName(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p == "id" {
			parts[i] = "ID"
			continue
		}
		parts[i] = titleCaser.String(p)
	}
	return strings.Join(parts, " ")
}

// tableName derives the backing table for an entity: the pluralized
// snake_case name ("french_word" -> "french_words").
func tableName(name string) string {
	return inflection.Plural(name)
}

// FieldDisplayName is the label shown for a field in chooser UIs. Foreign-key
// fields carry the referenced entity so callers can tell loose integer
// references from real links.
func (r *Registry) FieldDisplayName(ent *EntityDescriptor, f FieldDescriptor) string {
	label := displayName(f.Name)
	if f.Kind == KindForeignKey {
		if parent, ok := r.entities[f.Ref]; ok {
			return label + " (Foreign Key to " + parent.DisplayName + ")"
		}
	}
	return label
}
