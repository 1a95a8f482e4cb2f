package schema

// FieldKind is the semantic type of an entity field.
//
// Kinds drive DDL generation, snapshot value normalization, and restore-time
// denormalization. The primary key is implicit on every entity and never
// declared as a field.
type FieldKind string

const (
	KindString     FieldKind = "string"    // short text, TEXT column
	KindText       FieldKind = "text"      // long text, TEXT column
	KindBoolean    FieldKind = "boolean"   // BOOLEAN column, scans as bool
	KindTimestamp  FieldKind = "timestamp" // TIMESTAMP column, scans as time.Time
	KindInteger    FieldKind = "integer"   // INTEGER column, not a foreign key
	KindForeignKey FieldKind = "fk"        // INTEGER column referencing a parent id
)

// ValidFieldKinds defines the allowed field kinds.
var ValidFieldKinds = map[FieldKind]bool{
	KindString:     true,
	KindText:       true,
	KindBoolean:    true,
	KindTimestamp:  true,
	KindInteger:    true,
	KindForeignKey: true,
}

// FieldDescriptor describes one declared field of an entity.
type FieldDescriptor struct {
	Name     string
	Kind     FieldKind
	Ref      string // referenced entity name, fk fields only
	Unique   bool
	Nullable bool
}

// EntityDescriptor is the static description of one manageable entity type.
//
// Name is the snake_case identity used in every API call ("french_word").
// Table and DisplayName are derived from Name when not declared.
// ParentLinks is derived from the fk fields; ChildLinks is filled in at
// registry build time as the exact inverse of every other entity's ParentLinks.
type EntityDescriptor struct {
	Name        string
	DisplayName string
	Table       string
	Fields      []FieldDescriptor

	ParentLinks []Link // this entity's fk field -> parent entity
	ChildLinks  []Link // child entity's fk field -> this entity
}

// Link is one edge of the relationship graph.
//
// For ParentLinks, Entity is the parent type and Field is the fk field on the
// owning entity. For ChildLinks, Entity is the child type and Field is the fk
// field on that child.
type Link struct {
	Entity string
	Field  string
}

// Field returns the descriptor for the named field.
func (e *EntityDescriptor) Field(name string) (FieldDescriptor, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// PolicyRule is one configured orphan-cascade entry.
//
// The Child entity's Via field references Parent. When the last remaining
// Child row of a given parent is deleted, the parent row is deleted too, and
// the pair is restored together on undo.
type PolicyRule struct {
	Child  string
	Parent string
	Via    string
}

// Model is a compiled schema declaration: the input to NewRegistry.
type Model struct {
	Entities []EntityDescriptor
	Policies []PolicyRule
}
