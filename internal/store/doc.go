// Package store provides SQLite-backed storage for manageable entities.
//
// Tables are generated from the schema registry, so the store has no
// compiled-in knowledge of any particular entity: every read and write is
// driven by an EntityDescriptor. Row values cross the boundary in the
// snapshot value domain (nil, bool, int64, float64, string), with timestamps
// flattened to RFC 3339 UTC text.
//
// # Invariants
//
//   - Deterministic reads: every multi-row query orders by id ASC, so a
//     capture and the delete that follows see rows in the same order.
//   - Identifiers from the registry only: table and column names are
//     interpolated solely from validated descriptors; row values always
//     bind as parameters.
//   - Chunked statements: generated IN lists split below a bind variable
//     cap to stay inside SQLite's statement limits.
//   - Stub-friendly schema: every generated column is insertable by
//     omission, so a degraded restore can materialize an ancestor row from
//     its primary key alone.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Operations accept an optional transaction through WithTx, which returns a
// Store view bound to a caller-owned *sql.Tx.
package store
