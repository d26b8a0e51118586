// Package models defines domain entities and persistence interfaces for the dvx gallery sync service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing DeviantArt API data
//   - [Folder] : Gallery folder metadata
//   - [Deviation] : A single artwork with its favourite count and publish time
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [CachedDeviation] : Deviation snapshots from the most recent gallery scans
//   - [SyncRun] : A recorded sync against the destination gallery with its plan counts
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
