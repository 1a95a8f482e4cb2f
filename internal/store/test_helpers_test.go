package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/toverud/lexivault/internal/schema"
)

// testRegistry builds a two-entity registry (word with example children)
// covering every field kind.
func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(schema.Model{
		Entities: []schema.EntityDescriptor{
			{
				Name: "word",
				Fields: []schema.FieldDescriptor{
					{Name: "word", Kind: schema.KindString, Unique: true},
					{Name: "frequency", Kind: schema.KindInteger, Nullable: true},
					{Name: "marked_for_review", Kind: schema.KindBoolean},
					{Name: "created_at", Kind: schema.KindTimestamp},
				},
			},
			{
				Name: "example",
				Fields: []schema.FieldDescriptor{
					{Name: "word_id", Kind: schema.KindForeignKey, Ref: "word"},
					{Name: "example_text", Kind: schema.KindText},
					{Name: "is_explanation", Kind: schema.KindBoolean},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}
	return reg
}

// createTestStore creates a migrated store in a temp directory.
func createTestStore(t *testing.T, reg *schema.Registry) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background(), reg); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	return s
}

// mustDescribe looks up an entity descriptor or fails the test.
func mustDescribe(t *testing.T, reg *schema.Registry, name string) *schema.EntityDescriptor {
	t.Helper()
	ent, ok := reg.Describe(name)
	if !ok {
		t.Fatalf("Describe(%q) returned no entity", name)
	}
	return ent
}

// seedWord inserts a word row with fixed texture values.
func seedWord(t *testing.T, s *Store, reg *schema.Registry, id int64, text string) {
	t.Helper()
	ent := mustDescribe(t, reg, "word")
	err := s.InsertRow(context.Background(), ent, Row{
		ID: id,
		Values: map[string]any{
			"word":              text,
			"frequency":         int64(3),
			"marked_for_review": false,
			"created_at":        "2024-03-01T10:00:00Z",
		},
	})
	if err != nil {
		t.Fatalf("InsertRow(word %d) failed: %v", id, err)
	}
}

// seedExample inserts an example row attached to a word.
func seedExample(t *testing.T, s *Store, reg *schema.Registry, id, wordID int64, text string) {
	t.Helper()
	ent := mustDescribe(t, reg, "example")
	err := s.InsertRow(context.Background(), ent, Row{
		ID: id,
		Values: map[string]any{
			"word_id":        wordID,
			"example_text":   text,
			"is_explanation": false,
		},
	})
	if err != nil {
		t.Fatalf("InsertRow(example %d) failed: %v", id, err)
	}
}
