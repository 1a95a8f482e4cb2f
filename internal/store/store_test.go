package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	s2.Close()
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	// Second close on an already-closed DB should not panic
	s.Close()
}

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t, testRegistry(t))

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode failed: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestPragma_ForeignKeys(t *testing.T) {
	s := createTestStore(t, testRegistry(t))

	var fk int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("read foreign_keys failed: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestMigrate_CreatesEntityTables(t *testing.T) {
	s := createTestStore(t, testRegistry(t))

	for _, table := range []string{"words", "examples"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}
}

func TestMigrate_CreatesForeignKeyIndexes(t *testing.T) {
	s := createTestStore(t, testRegistry(t))

	var name string
	err := s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_examples_word_id'",
	).Scan(&name)
	if err != nil {
		t.Errorf("fk index not created: %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	reg := testRegistry(t)
	s := createTestStore(t, reg)

	if err := s.Migrate(context.Background(), reg); err != nil {
		t.Fatalf("second Migrate() failed: %v", err)
	}
}

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t, testRegistry(t))

	var version int
	if err := s.DB().QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("read user_version failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestConstraint_ForeignKeyChildToParent(t *testing.T) {
	reg := testRegistry(t)
	s := createTestStore(t, reg)
	ent := mustDescribe(t, reg, "example")

	err := s.InsertRow(context.Background(), ent, Row{
		ID: 1,
		Values: map[string]any{
			"word_id":        int64(999),
			"example_text":   "orphan",
			"is_explanation": false,
		},
	})
	if err == nil {
		t.Fatal("expected foreign key violation, got nil")
	}
}

func TestConstraint_UniqueColumn(t *testing.T) {
	reg := testRegistry(t)
	s := createTestStore(t, reg)
	ent := mustDescribe(t, reg, "word")

	seedWord(t, s, reg, 1, "bonjour")
	err := s.InsertRow(context.Background(), ent, Row{
		ID: 2,
		Values: map[string]any{
			"word":              "bonjour",
			"frequency":         nil,
			"marked_for_review": false,
			"created_at":        "2024-03-01T10:00:00Z",
		},
	})
	if err == nil {
		t.Fatal("expected unique violation, got nil")
	}
}

func TestWithTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	reg := testRegistry(t)
	s := createTestStore(t, reg)
	ent := mustDescribe(t, reg, "word")

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	row := Row{ID: 1, Values: map[string]any{
		"word":              "bonjour",
		"frequency":         nil,
		"marked_for_review": false,
		"created_at":        "2024-03-01T10:00:00Z",
	}}
	if err := s.WithTx(tx).InsertRow(ctx, ent, row); err != nil {
		t.Fatalf("InsertRow() in tx failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}

	exists, err := s.RowExists(ctx, ent, 1)
	if err != nil {
		t.Fatalf("RowExists() failed: %v", err)
	}
	if exists {
		t.Error("row visible after rollback")
	}
}

func TestWithTx_CommitKeepsWrites(t *testing.T) {
	ctx := context.Background()
	reg := testRegistry(t)
	s := createTestStore(t, reg)
	ent := mustDescribe(t, reg, "word")

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	row := Row{ID: 2, Values: map[string]any{
		"word":              "gato",
		"frequency":         int64(1),
		"marked_for_review": true,
		"created_at":        "2024-03-01T10:00:00Z",
	}}
	if err := s.WithTx(tx).InsertRow(ctx, ent, row); err != nil {
		t.Fatalf("InsertRow() in tx failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	exists, err := s.RowExists(ctx, ent, 2)
	if err != nil {
		t.Fatalf("RowExists() failed: %v", err)
	}
	if !exists {
		t.Error("row missing after commit")
	}
}
