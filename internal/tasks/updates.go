package tasks

import (
	"fmt"

	"github.com/desertthunder/dvx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchFolders Phase = iota
	ScanSource
	FetchDest
	RankDeviations
	BuildPlan
	ApplyAdds
	ApplyRemovals
	ExportFolder
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchFolders:
		return "fetch_folders"
	case ScanSource:
		return "scan_source"
	case FetchDest:
		return "fetch_dest"
	case RankDeviations:
		return "rank_deviations"
	case BuildPlan:
		return "build_plan"
	case ApplyAdds:
		return "apply_adds"
	case ApplyRemovals:
		return "apply_removals"
	case ExportFolder:
		return "export_folder"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func fetchFoldersUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFolders,
		Step:    1,
		Total:   1,
		Message: "Fetching gallery folders...",
	}
}

func scanFolderUpdate(step, total int, folder models.Folder) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Scanning %s (%d deviations)...", step, total, folder.Name, folder.Size),
		Data:    folder,
	}
}

func fetchDestUpdate(folder models.Folder) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching destination folder (%s)...", folder.Name),
		Data:    folder,
	}
}

func rankUpdate(candidates, topN int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RankDeviations,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Ranking %d deviations by favourites (top %d)...", candidates, topN),
	}
}

func planUpdate(plan Plan) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildPlan,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Plan: %d to add, %d to remove", len(plan.ToAdd), len(plan.ToRemove)),
		Data:    plan,
	}
}

func applyAddUpdate(step, total, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyAdds,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Adding %d deviations...", step, total, count),
	}
}

func applyRemoveUpdate(step, total, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyRemovals,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Removing %d deviations...", step, total, count),
	}
}

func syncCompleteUpdate(added, removed, noops int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sync complete: %d added, %d removed, %d no-ops", added, removed, noops),
	}
}

func exportingFolderUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportFolder,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name, file string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportFolder,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, name, file),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportFolder,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
