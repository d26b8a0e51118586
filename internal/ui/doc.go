// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for gallery syncing:
//  1. [FolderListView] : Browse gallery folders (or scan all of them)
//  2. [PreviewView] : Preview the ranked top-N before touching anything
//  3. [ConfirmView] : Confirm the planned additions and removals
//  4. [SyncView] : Monitor real-time progress updates
//  5. [ResultView] : Display added/removed/no-op counts
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the GalleryEngine, providing non-blocking status reporting during syncs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
