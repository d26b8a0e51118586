// Package tasks orchestrates gallery ranking and sync operations with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines two operations:
//
//  1. [SyncEngine.Plan] : Dry-run ranking and diff
//     - Scans the source folder (or every folder) for candidate deviations
//     - Ranks candidates by favourite count under a deterministic total order
//     - Diffs the top-N against the destination folder's current contents
//     - Returns the additions and removals needed, without applying them
//
//  2. [SyncEngine.Run] : Plan plus apply
//     - Batches additions and removals at the API's per-mutation limit
//     - Counts mutations the API reports as already satisfied as no-ops
//     - Re-running against an unchanged gallery converges to an empty plan
//
// [GalleryEngine.BulkExport] additionally dumps whole galleries to disk
// (JSON, CSV, Markdown, or plain text) through a rate-limited worker pool.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [GalleryEngine] implements [SyncEngine] with a dependency on
// [services.Service], the DeviantArt API client. The ranking ([Select]) and
// diffing ([Reconcile]) primitives are pure functions and can be used on their
// own, e.g. against cached snapshots.
package tasks
