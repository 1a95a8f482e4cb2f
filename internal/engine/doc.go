// Package engine implements the reversible-deletion engine.
//
// The engine sits between the schema registry and the stores - it
// resolves selections against registered entity types, captures
// restorable snapshots, executes cascading deletes, and replays
// snapshots on undo.
//
// ARCHITECTURE:
//
// Capture Before Removal:
// Every delete runs as: select primaries -> capture snapshot (primaries,
// child rows, ancestor rows, policy cascades) -> persist snapshot to the
// Operation Store -> remove rows bottom-up -> commit. The snapshot is
// durable before the first row disappears, so a failure at any point
// either leaves the data untouched or leaves a restorable record.
//
// One Transaction Per Operation:
// All row reads and writes of one delete or undo happen inside one
// SQLite transaction. No sub-step is observable mid-way by another
// transaction. The Operation Store write sits outside the transaction
// (it is a different database); an orphaned snapshot from a failed
// commit is harmless and ages out through its TTL.
//
// Restore Ordering:
// Undo writes ancestors before the primary entity before descendants:
// policy-cascaded rows, then captured parent rows, then primary rows,
// then child rows. Ancestor writes are existence-guarded, primary and
// child writes are upserts, so undo is idempotent. A referenced parent
// that no longer exists anywhere is recreated as a stub row and the
// result is flagged degraded.
//
// The engine is designed for correctness of the round-trip, not
// throughput. Deletes and undos run on request-handling goroutines;
// there is no background scheduler.
package engine
