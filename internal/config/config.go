// Package config loads the lexivault configuration file.
//
// The file is strict YAML: unknown keys are rejected so typos surface as
// parse errors instead of silently-ignored settings. Defaults and validation
// are separate steps because the CLI overrides keys from flags between
// loading and validating.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/toverud/lexivault/internal/opstore"
	"github.com/toverud/lexivault/internal/snapshot"
)

// DefaultRetention bounds how long a completed deletion stays reversible
// when the file does not say otherwise.
const DefaultRetention = time.Hour

// Config is the full configuration surface.
type Config struct {
	// Database is the SQLite file holding the managed tables. Required.
	Database string `yaml:"database"`

	// OperationStore selects where deletion snapshots are kept.
	OperationStore OperationStore `yaml:"operation_store"`

	// SnapshotCodec is the snapshot payload encoding: json or msgpack.
	SnapshotCodec string `yaml:"snapshot_codec"`

	// Retention is the snapshot TTL, e.g. "1h" or "30m".
	Retention Duration `yaml:"retention"`

	// SchemaFile optionally points at a CUE declaration that replaces the
	// embedded lexicon model.
	SchemaFile string `yaml:"schema_file"`
}

// OperationStore configures the snapshot store backend.
type OperationStore struct {
	// Backend is one of memory, sqlite or badger.
	Backend string `yaml:"backend"`

	// Path is the database file (sqlite) or data directory (badger).
	Path string `yaml:"path"`
}

// Duration parses YAML scalars like "1h" through time.ParseDuration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) String() string { return time.Duration(d).String() }

// Load reads and parses a config file. The result has defaults applied but
// is not validated; callers validate after applying their own overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes config bytes with strict field checking. An empty document
// yields the default configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown keys
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given. Database is
// left empty; it has no default and must come from a flag.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset keys with their documented defaults. The
// operation store path derives from Database, so apply any database override
// first.
func (c *Config) ApplyDefaults() {
	if c.OperationStore.Backend == "" {
		c.OperationStore.Backend = string(opstore.BackendBadger)
	}
	if c.OperationStore.Path == "" && c.Database != "" {
		c.OperationStore.Path = c.Database + ".ops"
	}
	if c.SnapshotCodec == "" {
		c.SnapshotCodec = string(snapshot.CodecJSON)
	}
	if c.Retention == 0 {
		c.Retention = Duration(DefaultRetention)
	}
}

// Validate reports the first unusable key.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}

	switch opstore.Backend(c.OperationStore.Backend) {
	case opstore.BackendMemory, opstore.BackendSQLite, opstore.BackendBadger:
	default:
		return fmt.Errorf("operation_store.backend: unknown backend %q", c.OperationStore.Backend)
	}

	if _, err := snapshot.ParseCodec(c.SnapshotCodec); err != nil {
		return fmt.Errorf("snapshot_codec: %w", err)
	}

	if c.Retention <= 0 {
		return fmt.Errorf("retention must be positive, got %s", c.Retention)
	}

	if c.SchemaFile != "" {
		if _, err := os.Stat(c.SchemaFile); err != nil {
			return fmt.Errorf("schema_file: %w", err)
		}
	}

	return nil
}

// Codec returns the validated snapshot codec.
func (c *Config) Codec() snapshot.Codec {
	codec, err := snapshot.ParseCodec(c.SnapshotCodec)
	if err != nil {
		return snapshot.CodecJSON
	}
	return codec
}

// Backend returns the operation store backend selector.
func (c *Config) Backend() opstore.Backend {
	return opstore.Backend(c.OperationStore.Backend)
}
