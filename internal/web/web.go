// Package web implements an HTMX-based web application mirroring the TUI functionality.
//
// # HTMX Web Application Implementation Plan
//
// # Architecture
//
// The web app replicates the five-view TUI workflow using server-side rendering
// with HTMX for dynamic updates. Each view corresponds to a template and handler:
//
//  1. Folder List: Server-rendered table with hx-get for ranking preview
//  2. Ranking Preview: HTMX partial swap showing the top-N + sync button
//  3. Sync Confirm: Modal confirmation with hx-post trigger
//  4. Progress Monitor: SSE (Server-Sent Events) streaming progress updates
//  5. Results Display: Final added/removed/no-op breakdown
//
// Core Components
//
//   - HTTP Server: extends internal/server's Router with page handlers
//   - Service Integration: Uses same services.Service and tasks.GalleryEngine as TUI
//   - Session Management: Cookie-based sessions for OAuth state
//   - SSE Handler: Streams real-time progress during syncs
//
// Routes
//
//	GET  /                     → Folder list view (requires auth)
//	GET  /auth/deviantart      → OAuth initiation
//	GET  /callback             → OAuth completion (existing server.OAuthHandler)
//	GET  /folders/{id}/preview → HTMX partial: ranked top-N
//	POST /sync                 → Start sync, return SSE endpoint
//	GET  /sync/{id}/stream     → SSE progress stream
//	GET  /sync/{id}/result     → Final result view
//
// # State Management
//
// Unlike the TUI's in-memory state, the web app persists state in:
//   - Session cookies: Authentication tokens
//   - SyncRun records: Track sync progress across requests (repositories.SyncRunRepository)
//   - In-memory channels: SSE connections for active syncs
//
// # Progress Streaming
//
// Sync progress uses Server-Sent Events:
//  1. POST /sync creates a SyncRun, returns run ID
//  2. Client opens SSE connection to /sync/{id}/stream
//  3. Handler launches goroutine running GalleryEngine.Run
//  4. Progress channel updates stream as SSE events
//  5. On completion, send "done" event with redirect URL
//
// # Testing Strategy
//
// Use httptest:
//   - Mock services.Service for folder/deviation data
//   - Validate HTMX headers and response structure
//   - Test SSE stream formatting
package web
