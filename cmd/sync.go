package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/dvx/internal/models"
	"github.com/desertthunder/dvx/internal/repositories"
	"github.com/desertthunder/dvx/internal/shared"
	"github.com/desertthunder/dvx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncPlan computes the top-N ranking and the mutations needed without applying them.
func (r *Runner) SyncPlan(ctx context.Context, cmd *cli.Command) error {
	opts := r.syncOpts(cmd)

	if r.deviantart == nil {
		return fmt.Errorf("%w: DeviantArt service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Info("planning sync", "source", opts.SourceFolder, "dest", opts.DestFolder, "top_n", opts.TopN)
	r.writePlain("Computing sync plan...\n")
	if opts.SourceFolder == "" {
		r.writePlain("Source: all folders\n")
	} else {
		r.writePlain("Source: %s\n", opts.SourceFolder)
	}
	r.writePlain("Destination: %s\n\n", opts.DestFolder)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go r.printSyncProgress(progressCh)

	plan, err := r.engine.Plan(ctx, progressCh, opts)
	close(progressCh)

	if err != nil {
		if retried, authErr := r.handleAuthError(ctx, err); retried {
			if authErr != nil {
				return authErr
			}
			retryCh := make(chan tasks.ProgressUpdate, 50)
			go r.printSyncProgress(retryCh)
			plan, err = r.engine.Plan(ctx, retryCh, opts)
			close(retryCh)
			if err != nil {
				return err
			}
		} else {
			return err
		}
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Plan")
	r.writePlain("Destination: %s (%s)\n", plan.DestFolder.Name, plan.DestFolder.ID)
	r.writePlain("Folders scanned: %d\n", plan.Scanned)
	r.writePlain("Candidates: %d\n", len(plan.Candidates))
	r.writePlain("Selected: %d\n", len(plan.Selection))
	r.writePlain("Currently in destination: %d\n\n", len(plan.Current))

	if plan.Plan.InSync() {
		r.writePlain("✓ Destination is already in sync. Nothing to do.\n")
		return nil
	}

	r.writePlain("Ranking:\n")
	for i, d := range plan.Selection {
		marker := " "
		for _, id := range plan.Plan.ToAdd {
			if id == d.ID {
				marker = "+"
				break
			}
		}
		r.writePlain("  %s %2d. %s (%d favourites)\n", marker, i+1, d.Title, d.Favourites)
	}

	if len(plan.Plan.ToRemove) > 0 {
		r.writePlain("\nTo remove:\n")
		for _, id := range plan.Plan.ToRemove {
			title := id
			for _, d := range plan.Current {
				if d.ID == id {
					title = d.Title
					break
				}
			}
			r.writePlain("  - %s\n", title)
		}
	}

	r.writePlain("\n%d to add, %d to remove\n", len(plan.Plan.ToAdd), len(plan.Plan.ToRemove))
	r.writePlain("Run 'dvx sync run' to apply.\n")

	return nil
}

// SyncRun computes a plan and applies it, recording the run in the database.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	opts := r.syncOpts(cmd)
	noHistory := cmd.Bool("no-history")

	if r.deviantart == nil {
		return fmt.Errorf("%w: DeviantArt service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Info("starting sync", "source", opts.SourceFolder, "dest", opts.DestFolder, "top_n", opts.TopN)
	r.writePlain("Starting gallery sync...\n\n")

	var run *models.SyncRun
	var runs *repositories.SyncRunRepository
	var cache *repositories.DeviationRepository

	if !noHistory {
		db, err := r.openDatabase()
		if err != nil {
			r.logger.Warn("sync history disabled", "error", err)
		} else {
			defer db.Close()
			runs = repositories.NewSyncRunRepository(db)
			cache = repositories.NewDeviationRepository(db)

			run = models.NewSyncRun(0, opts.SourceFolder, opts.DestFolder, opts.TopN)
			if err := runs.Create(run); err != nil {
				r.logger.Warn("failed to record sync run", "error", err)
				run = nil
			}
		}
	}

	if run != nil {
		run.Start(time.Now())
		if err := runs.Update(run); err != nil {
			r.logger.Warn("failed to mark sync run started", "error", err)
		}
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go r.printSyncProgress(progressCh)

	result, err := r.engine.Run(ctx, progressCh, opts)
	close(progressCh)

	if err != nil {
		if retried, authErr := r.handleAuthError(ctx, err); retried && authErr == nil {
			retryCh := make(chan tasks.ProgressUpdate, 50)
			go r.printSyncProgress(retryCh)
			result, err = r.engine.Run(ctx, retryCh, opts)
			close(retryCh)
		} else if retried {
			err = authErr
		}
	}

	if err != nil {
		if run != nil {
			run.Fail(time.Now(), err)
			if updateErr := runs.Update(run); updateErr != nil {
				r.logger.Warn("failed to record sync failure", "error", updateErr)
			}
		}
		return err
	}

	if run != nil {
		run.Complete(time.Now(), result.Plan.Scanned, result.Added, result.Removed, result.NoOps)
		if err := runs.Update(run); err != nil {
			r.logger.Warn("failed to record sync result", "error", err)
		}
	}

	if cache != nil {
		r.snapshotSelection(cache, result.Plan)
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete!")
	r.writePlain("Destination: %s\n", result.Plan.DestFolder.Name)
	r.writePlain("Added: %d\n", result.Added)
	r.writePlain("Removed: %d\n", result.Removed)
	if result.NoOps > 0 {
		r.writePlain("Already satisfied: %d\n", result.NoOps)
	}
	if result.Plan.Plan.InSync() && result.Added == 0 && result.Removed == 0 {
		r.writePlain("Destination was already in sync.\n")
	}

	return nil
}

// SyncStatus shows the most recent recorded sync run.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	runs := repositories.NewSyncRunRepository(db)
	run, err := runs.Latest()
	if err != nil {
		r.writePlain("No sync runs recorded yet.\n")
		r.writePlain("Run 'dvx sync run' to start one.\n")
		return nil
	}

	r.writePlainHeader("Last Sync Run")
	r.printSyncRun(run)
	return nil
}

// syncOpts builds engine options from flags, falling back to the config file.
func (r *Runner) syncOpts(cmd *cli.Command) tasks.SyncOpts {
	opts := tasks.SyncOpts{
		SourceFolder: r.config.Sync.SourceGallery,
		DestFolder:   r.config.Sync.DestGallery,
		TopN:         r.config.Sync.TopN,
		MaxAgeDays:   r.config.Sync.MaxAgeDays,
	}

	if source := cmd.String("source"); source != "" {
		opts.SourceFolder = source
	}
	if cmd.Bool("all-folders") {
		opts.SourceFolder = ""
	}
	if dest := cmd.String("dest"); dest != "" {
		opts.DestFolder = dest
	}
	if topN := int(cmd.Int("top")); topN > 0 {
		opts.TopN = topN
	}
	if maxAge := int(cmd.Int("max-age-days")); maxAge > 0 {
		opts.MaxAgeDays = maxAge
	}

	if opts.TopN == 0 {
		opts.TopN = 20
	}

	return opts
}

// printSyncProgress drains a progress channel to the output writer.
func (r *Runner) printSyncProgress(progressCh <-chan tasks.ProgressUpdate) {
	for update := range progressCh {
		switch update.Phase {
		case tasks.FetchFolders, tasks.FetchDest:
			r.writePlain("📥 %s\n", update.Message)
		case tasks.ScanSource:
			r.writePlain("🔍 %s\n", update.Message)
		case tasks.RankDeviations, tasks.BuildPlan:
			r.writePlain("📊 %s\n", update.Message)
		case tasks.ApplyAdds, tasks.ApplyRemovals:
			r.writePlain("✏️  %s\n", update.Message)
		}
	}
}

// snapshotSelection caches the applied ranking so later runs can be inspected offline.
func (r *Runner) snapshotSelection(cache *repositories.DeviationRepository, plan *tasks.SyncPlanResult) {
	if _, err := cache.PurgeFolder(plan.DestFolder.ID); err != nil {
		r.logger.Warn("failed to purge cached snapshot", "error", err)
	}

	for _, d := range plan.Selection {
		d.FolderID = plan.DestFolder.ID
		if _, err := cache.Upsert(d); err != nil {
			r.logger.Warn("failed to cache deviation", "id", d.ID, "error", err)
		}
	}
}

func (r *Runner) printSyncRun(run *models.SyncRun) {
	source := run.SourceGallery()
	if source == "" {
		source = "(all folders)"
	}
	r.writePlain("Source: %s\n", source)
	r.writePlain("Destination: %s\n", run.DestGallery())
	r.writePlain("Top N: %d\n", run.TopN())
	r.writePlain("Status: %s\n", run.Status())
	if run.Status() == models.SyncStatusCompleted {
		r.writePlain("Scanned: %d folders\n", run.Scanned())
		r.writePlain("Added: %d\n", run.Added())
		r.writePlain("Removed: %d\n", run.Removed())
		if run.NoOps() > 0 {
			r.writePlain("Already satisfied: %d\n", run.NoOps())
		}
	}
	if run.ErrorMessage() != "" {
		r.writePlain("Error: %s\n", run.ErrorMessage())
	}
	if started := run.StartedAt(); started != nil {
		r.writePlain("Started: %s\n", started.Format(time.RFC1123))
	}
	if completed := run.CompletedAt(); completed != nil {
		r.writePlain("Completed: %s\n", completed.Format(time.RFC1123))
	}
}

// syncCommand handles ranked gallery sync operations
func syncCommand(r *Runner) *cli.Command {
	syncFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "source",
			Usage: "Source folder name or ID (default: scan all folders)",
		},
		&cli.BoolFlag{
			Name:  "all-folders",
			Usage: "Scan every folder for candidates",
		},
		&cli.StringFlag{
			Name:  "dest",
			Usage: "Destination folder name or ID",
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "Ranking size",
		},
		&cli.IntFlag{
			Name:  "max-age-days",
			Usage: "Only consider deviations published in the last N days",
		},
	}

	return &cli.Command{
		Name:  "sync",
		Usage: "Keep a destination folder pinned to the top-N favourites",
		Commands: []*cli.Command{
			{
				Name:   "plan",
				Usage:  "Show what a sync would change without applying it",
				Flags:  syncFlags,
				Action: r.SyncPlan,
			},
			{
				Name:  "run",
				Usage: "Compute and apply the sync plan",
				Flags: append(syncFlags, &cli.BoolFlag{
					Name:  "no-history",
					Usage: "Skip recording the run in the database",
				}),
				Action: r.SyncRun,
			},
			{
				Name:   "status",
				Usage:  "Show the most recent recorded sync run",
				Action: r.SyncStatus,
			},
		},
	}
}
