// package tasks implements gallery sync operations against a deviation service.
//
// The core abstraction is SyncEngine, which orchestrates ranking a user's
// deviations by favourite count and reconciling a destination folder to hold
// the top of that ranking. Operations emit progress updates via channels for
// non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/dvx/internal/models"
	"github.com/desertthunder/dvx/internal/services"
	"github.com/desertthunder/dvx/internal/shared"
)

// SyncOpts configures a sync operation.
type SyncOpts struct {
	SourceFolder string // Source folder name or id; empty scans every folder
	DestFolder   string // Destination folder name or id
	TopN         int    // Ranking size
	MaxAgeDays   int    // Only consider deviations published in this window; 0 disables
}

// SyncPlanResult contains everything computed by a dry-run plan.
type SyncPlanResult struct {
	DestFolder models.Folder      // Resolved destination folder
	Scanned    int                // Folders scanned for candidates
	Candidates []models.Deviation // Deduplicated candidate pool after age filtering
	Selection  []models.Deviation // The ranked top-N
	Current    []models.Deviation // Destination contents at plan time
	Plan       Plan               // Mutations needed to converge
}

// SyncRunResult contains the outcome of applying a plan.
type SyncRunResult struct {
	Plan    *SyncPlanResult
	Added   int // ids added to the destination
	Removed int // ids removed from the destination
	NoOps   int // mutations the service reported as already satisfied
}

// SyncEngine defines operations for maintaining a ranked gallery folder.
type SyncEngine interface {
	// Plan computes the top-N ranking and the mutations needed, without applying them.
	Plan(ctx context.Context, progress chan<- ProgressUpdate, opts SyncOpts) (*SyncPlanResult, error)

	// Run computes a plan and applies it, batching mutations at the API limit.
	Run(ctx context.Context, progress chan<- ProgressUpdate, opts SyncOpts) (*SyncRunResult, error)
}

// GalleryEngine implements SyncEngine against a deviation service.
type GalleryEngine struct {
	svc services.Service
	now func() time.Time
}

// NewGalleryEngine creates a GalleryEngine backed by the provided service.
func NewGalleryEngine(svc services.Service) *GalleryEngine {
	return &GalleryEngine{svc: svc, now: time.Now}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *GalleryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// resolveFolder finds a folder by id or by name. Name matching is case
// insensitive and prefers top-level folders when names collide.
func resolveFolder(folders []models.Folder, nameOrID string) (models.Folder, error) {
	for _, f := range folders {
		if f.ID == nameOrID {
			return f, nil
		}
	}

	var match *models.Folder
	for i, f := range folders {
		if !strings.EqualFold(f.Name, nameOrID) {
			continue
		}
		if match == nil || (match.Parent != "" && f.Parent == "") {
			match = &folders[i]
		}
	}
	if match == nil {
		return models.Folder{}, fmt.Errorf("%w: %q", shared.ErrGalleryNotFound, nameOrID)
	}
	return *match, nil
}

// Plan computes the ranked selection and reconciliation plan without mutating
// anything. Running Plan twice against an unchanged gallery yields the same
// result.
func (e *GalleryEngine) Plan(ctx context.Context, progress chan<- ProgressUpdate, opts SyncOpts) (*SyncPlanResult, error) {
	if e.svc == nil {
		return nil, fmt.Errorf("%w: deviation service not initialized", shared.ErrServiceUnavailable)
	}
	if opts.DestFolder == "" {
		return nil, fmt.Errorf("%w: destination folder is required", shared.ErrMissingArgument)
	}
	if opts.TopN < 1 {
		return nil, fmt.Errorf("%w: top-n must be at least 1, got %d", shared.ErrInvalidArgument, opts.TopN)
	}

	e.sendProgress(progress, fetchFoldersUpdate())
	folders, err := e.svc.Folders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	dest, err := resolveFolder(folders, opts.DestFolder)
	if err != nil {
		return nil, err
	}

	result := &SyncPlanResult{DestFolder: dest}

	candidates, scanned, err := e.gatherCandidates(ctx, progress, folders, dest, opts)
	if err != nil {
		return nil, err
	}
	result.Scanned = scanned

	if opts.MaxAgeDays > 0 {
		cutoff := e.now().AddDate(0, 0, -opts.MaxAgeDays)
		candidates = filterByAge(candidates, cutoff)
	}
	result.Candidates = candidates

	e.sendProgress(progress, rankUpdate(len(candidates), opts.TopN))
	selection := candidates
	if len(candidates) > 0 {
		selection, err = Select(candidates, opts.TopN)
		if err != nil {
			return nil, err
		}
	}
	result.Selection = selection

	e.sendProgress(progress, fetchDestUpdate(dest))
	current, err := e.svc.FolderContents(ctx, dest.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch destination contents: %w", err)
	}
	result.Current = current

	result.Plan = Reconcile(selection, current)
	e.sendProgress(progress, planUpdate(result.Plan))
	return result, nil
}

// Run computes a plan and applies it. Mutations the service reports as already
// satisfied are counted as no-ops rather than failures, so re-running against
// an unchanged gallery converges instead of erroring.
func (e *GalleryEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, opts SyncOpts) (*SyncRunResult, error) {
	plan, err := e.Plan(ctx, progress, opts)
	if err != nil {
		return nil, err
	}

	result := &SyncRunResult{Plan: plan}

	addBatches := chunkIDs(plan.Plan.ToAdd, services.MaxDeviationIDsPerMutation)
	for i, batch := range addBatches {
		e.sendProgress(progress, applyAddUpdate(i+1, len(addBatches), len(batch)))

		switch err := e.svc.CopyDeviations(ctx, plan.DestFolder.ID, batch); {
		case err == nil:
			result.Added += len(batch)
		case isNoOp(err):
			result.NoOps += len(batch)
		default:
			return result, fmt.Errorf("failed to add deviations: %w", err)
		}
	}

	removeBatches := chunkIDs(plan.Plan.ToRemove, services.MaxDeviationIDsPerMutation)
	for i, batch := range removeBatches {
		e.sendProgress(progress, applyRemoveUpdate(i+1, len(removeBatches), len(batch)))

		switch err := e.svc.RemoveDeviations(ctx, plan.DestFolder.ID, batch); {
		case err == nil:
			result.Removed += len(batch)
		case isNoOp(err):
			result.NoOps += len(batch)
		default:
			return result, fmt.Errorf("failed to remove deviations: %w", err)
		}
	}

	e.sendProgress(progress, syncCompleteUpdate(result.Added, result.Removed, result.NoOps))
	return result, nil
}

// gatherCandidates collects the deviation pool to rank. With an explicit
// source folder only that folder is read; otherwise every folder except the
// destination is scanned and duplicates (the same deviation filed in several
// folders) keep their highest favourite count.
func (e *GalleryEngine) gatherCandidates(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	folders []models.Folder,
	dest models.Folder,
	opts SyncOpts,
) ([]models.Deviation, int, error) {
	if opts.SourceFolder != "" {
		source, err := resolveFolder(folders, opts.SourceFolder)
		if err != nil {
			return nil, 0, err
		}
		if source.ID == dest.ID {
			return nil, 0, fmt.Errorf("%w: source and destination are the same folder", shared.ErrInvalidArgument)
		}

		e.sendProgress(progress, scanFolderUpdate(1, 1, source))
		deviations, err := e.svc.FolderContents(ctx, source.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan %s: %w", source.Name, err)
		}
		return dedupeByMaxFavourites(deviations), 1, nil
	}

	var pool []models.Deviation
	scanned := 0
	total := 0
	for _, f := range folders {
		if f.ID != dest.ID {
			total++
		}
	}

	for _, folder := range folders {
		if folder.ID == dest.ID {
			continue
		}
		scanned++
		e.sendProgress(progress, scanFolderUpdate(scanned, total, folder))

		deviations, err := e.svc.FolderContents(ctx, folder.ID)
		if err != nil {
			return nil, scanned, fmt.Errorf("failed to scan %s: %w", folder.Name, err)
		}
		pool = append(pool, deviations...)
	}

	return dedupeByMaxFavourites(pool), scanned, nil
}

// dedupeByMaxFavourites collapses repeated ids, keeping the occurrence with
// the highest favourite count. First-seen order is preserved.
func dedupeByMaxFavourites(deviations []models.Deviation) []models.Deviation {
	index := make(map[string]int, len(deviations))
	out := make([]models.Deviation, 0, len(deviations))

	for _, d := range deviations {
		if i, ok := index[d.ID]; ok {
			if d.Favourites > out[i].Favourites {
				out[i] = d
			}
			continue
		}
		index[d.ID] = len(out)
		out = append(out, d)
	}
	return out
}

// filterByAge keeps deviations published at or after the cutoff. Deviations
// with no known publish time are dropped, since their age cannot be
// established.
func filterByAge(deviations []models.Deviation, cutoff time.Time) []models.Deviation {
	out := make([]models.Deviation, 0, len(deviations))
	for _, d := range deviations {
		if d.PublishedAt.IsZero() || d.PublishedAt.Before(cutoff) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// isNoOp reports whether the service classified a mutation as already
// satisfied (id already in the folder, or already absent from it).
func isNoOp(err error) bool {
	return errors.Is(err, shared.ErrNoOp)
}

// chunkIDs splits ids into batches of at most size elements.
func chunkIDs(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
