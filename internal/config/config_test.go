package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toverud/lexivault/internal/opstore"
	"github.com/toverud/lexivault/internal/snapshot"
)

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexivault.yaml")

	content := `
database: vocab.db
operation_store:
  backend: sqlite
  path: ops.db
snapshot_codec: msgpack
retention: 30m
schema_file: custom.cue
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "vocab.db", cfg.Database)
	assert.Equal(t, "sqlite", cfg.OperationStore.Backend)
	assert.Equal(t, "ops.db", cfg.OperationStore.Path)
	assert.Equal(t, "msgpack", cfg.SnapshotCodec)
	assert.Equal(t, Duration(30*time.Minute), cfg.Retention)
	assert.Equal(t, "custom.cue", cfg.SchemaFile)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/lexivault.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestParse_DefaultsApplied(t *testing.T) {
	cfg, err := Parse([]byte("database: lexicon.db\n"))
	require.NoError(t, err)

	assert.Equal(t, "lexicon.db", cfg.Database)
	assert.Equal(t, string(opstore.BackendBadger), cfg.OperationStore.Backend)
	assert.Equal(t, "lexicon.db.ops", cfg.OperationStore.Path)
	assert.Equal(t, string(snapshot.CodecJSON), cfg.SnapshotCodec)
	assert.Equal(t, Duration(time.Hour), cfg.Retention)
	assert.Empty(t, cfg.SchemaFile)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Empty(t, cfg.Database)
	assert.Equal(t, string(opstore.BackendBadger), cfg.OperationStore.Backend)
	assert.Empty(t, cfg.OperationStore.Path)
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	_, err := Parse([]byte("databse: typo.db\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "databse")
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte("database: x.db\nretention: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid duration "soon"`)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Empty(t, cfg.Database)
	assert.Equal(t, string(opstore.BackendBadger), cfg.OperationStore.Backend)
	assert.Empty(t, cfg.OperationStore.Path)
	assert.Equal(t, string(snapshot.CodecJSON), cfg.SnapshotCodec)
	assert.Equal(t, Duration(time.Hour), cfg.Retention)
}

func TestApplyDefaults_PathFollowsDatabaseOverride(t *testing.T) {
	cfg := Default()
	cfg.Database = "override.db"
	cfg.ApplyDefaults()

	assert.Equal(t, "override.db.ops", cfg.OperationStore.Path)
}

func TestValidate_RequiresDatabase(t *testing.T) {
	err := Default().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is required")
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Database = "x.db"
	cfg.OperationStore.Backend = "redis"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation_store.backend")
	assert.Contains(t, err.Error(), "redis")
}

func TestValidate_UnknownCodec(t *testing.T) {
	cfg := Default()
	cfg.Database = "x.db"
	cfg.SnapshotCodec = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot_codec")
}

func TestValidate_NegativeRetention(t *testing.T) {
	cfg := Default()
	cfg.Database = "x.db"
	cfg.Retention = Duration(-time.Minute)

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention must be positive")
}

func TestValidate_SchemaFileMustExist(t *testing.T) {
	cfg := Default()
	cfg.Database = "x.db"
	cfg.SchemaFile = "/nonexistent/model.cue"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema_file")
}

func TestValidate_FullConfig(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "model.cue")
	require.NoError(t, os.WriteFile(schemaPath, []byte("schema: entities: {}"), 0644))

	cfg := Default()
	cfg.Database = filepath.Join(dir, "vocab.db")
	cfg.SchemaFile = schemaPath
	cfg.ApplyDefaults()

	require.NoError(t, cfg.Validate())
}

func TestAccessors(t *testing.T) {
	cfg := Default()
	cfg.SnapshotCodec = "msgpack"
	cfg.OperationStore.Backend = "sqlite"

	assert.Equal(t, snapshot.CodecMsgpack, cfg.Codec())
	assert.Equal(t, opstore.BackendSQLite, cfg.Backend())
}
