package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/toverud/lexivault/internal/opstore"
	"github.com/toverud/lexivault/internal/schema"
	"github.com/toverud/lexivault/internal/snapshot"
	"github.com/toverud/lexivault/internal/store"
)

// DefaultRetention is how long a deletion snapshot stays restorable.
// After this window the Operation Store entry expires and undo fails
// with EXPIRED even if the underlying rows are untouched.
const DefaultRetention = time.Hour

// Engine is the reversible-deletion engine.
//
// Each delete operation captures a snapshot of the affected rows (the
// primary selection, its descendant rows, its ancestor rows, and any
// policy cascades), persists it to the Operation Store under a fresh
// operation id, and then removes the rows inside a single transaction.
// Undo replays the snapshot in dependency order.
//
// INVARIANTS:
//   - The snapshot is persisted before any row is removed; a failure to
//     capture or persist aborts the delete with no rows touched.
//   - All row writes of one operation happen inside one transaction; no
//     sub-step is observable mid-way by another transaction.
//   - Restoration writes ancestors before the primary entity before
//     descendants, and never duplicates a row that already exists.
type Engine struct {
	registry  *schema.Registry
	store     *store.Store
	ops       opstore.Store
	codec     snapshot.Codec
	idgen     OperationIDGenerator
	clock     Clock
	logger    *slog.Logger
	retention time.Duration
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithRetention sets the snapshot retention window.
//
// Default: one hour (DefaultRetention).
func WithRetention(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.retention = d
	}
}

// WithCodec sets the snapshot serialization codec.
//
// Default: JSON.
func WithCodec(c snapshot.Codec) EngineOption {
	return func(e *Engine) {
		e.codec = c
	}
}

// WithClock sets the time source used for capturedAt/expiresAt stamps.
//
// Default: SystemClock. Tests inject a fixed clock to exercise expiry
// deterministically.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the operation id source.
//
// Default: UUIDv7Generator. Tests inject a FixedGenerator for
// deterministic operation ids.
func WithIDGenerator(g OperationIDGenerator) EngineOption {
	return func(e *Engine) {
		e.idgen = g
	}
}

// WithLogger sets the engine logger. A nil logger falls back to
// slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine over a validated registry, an entity store, and
// an Operation Store.
//
// Options can be passed to configure the engine (e.g., WithRetention).
func New(reg *schema.Registry, s *store.Store, ops opstore.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:  reg,
		store:     s,
		ops:       ops,
		codec:     snapshot.CodecJSON,
		idgen:     UUIDv7Generator{},
		clock:     SystemClock{},
		logger:    slog.Default(),
		retention: DefaultRetention,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// DeleteResult reports a completed delete operation. Count is the
// number of primary rows removed; descendant and cascaded rows are
// carried in the snapshot but not counted here.
type DeleteResult struct {
	OperationID string `json:"operation_id"`
	Count       int64  `json:"count"`
}

// RestoreResult reports a completed undo operation. Restored counts the
// rows actually written. Degraded is set when a referenced parent row
// was missing from both the database and the snapshot, and a stub row
// had to be created for children to attach to.
type RestoreResult struct {
	Restored int64 `json:"restored"`
	Degraded bool  `json:"degraded"`
}

// EntityInfo is the listing entry for one manageable entity type.
type EntityInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// FieldInfo is the listing entry for one field of an entity. ForeignKey
// marks reference fields; References names the parent entity they point
// at.
type FieldInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	ForeignKey  bool   `json:"foreign_key"`
	References  string `json:"references,omitempty"`
}

// ListEntities lists every entity type in a registry, sorted by display
// name. Package-level so listing works without live stores.
func ListEntities(reg *schema.Registry) []EntityInfo {
	descriptors := reg.Entities()
	out := make([]EntityInfo, 0, len(descriptors))
	for _, ent := range descriptors {
		out = append(out, EntityInfo{Name: ent.Name, DisplayName: ent.DisplayName})
	}
	return out
}

// ListFields lists the fields of an entity type, leading with the implicit
// primary key. Foreign-key fields name the entity they reference in the
// display name, matching how the rows are linked.
func ListFields(reg *schema.Registry, entityType string) ([]FieldInfo, error) {
	ent, ok := reg.Describe(entityType)
	if !ok {
		return nil, NewNotFoundError("fields", entityType, fmt.Sprintf("unknown entity type %q", entityType))
	}

	out := make([]FieldInfo, 0, len(ent.Fields)+1)
	out = append(out, FieldInfo{Name: "id", DisplayName: "ID (Primary Key)"})
	for _, f := range ent.Fields {
		info := FieldInfo{
			Name:        f.Name,
			DisplayName: reg.FieldDisplayName(ent, f),
		}
		if f.Kind == schema.KindForeignKey {
			info.ForeignKey = true
			info.References = f.Ref
		}
		out = append(out, info)
	}
	return out, nil
}

// Entities lists every registered entity type, sorted by display name.
func (e *Engine) Entities() []EntityInfo {
	return ListEntities(e.registry)
}

// Fields lists the fields of an entity type. See ListFields.
func (e *Engine) Fields(entityType string) ([]FieldInfo, error) {
	return ListFields(e.registry, entityType)
}

// Retention returns the configured snapshot retention window.
func (e *Engine) Retention() time.Duration {
	return e.retention
}
