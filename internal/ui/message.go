package ui

import (
	"github.com/desertthunder/dvx/internal/models"
	"github.com/desertthunder/dvx/internal/tasks"
)

// foldersFetchedMsg carries the gallery folder listing fetched at startup.
type foldersFetchedMsg struct {
	folders []models.Folder
	err     error
}

// planComputedMsg carries a dry-run plan for the selected source.
type planComputedMsg struct {
	plan *tasks.SyncPlanResult
	err  error
}

// progressUpdateMsg wraps engine progress for the Elm update loop.
type progressUpdateMsg tasks.ProgressUpdate

// syncCompleteMsg carries the final sync outcome.
type syncCompleteMsg struct {
	result *tasks.SyncRunResult
	err    error
}
