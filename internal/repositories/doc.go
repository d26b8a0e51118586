// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [DeviationRepository] : Scan snapshots keyed by (deviation, folder), refreshed via Upsert
//   - [SyncRunRepository] : Sync history with status tracking and latest-run lookups
//
// Sequence numbers provide stable, human-readable ordering (e.g., sync run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
