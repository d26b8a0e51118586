package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/dvx/internal/repositories"
	"github.com/desertthunder/dvx/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheList shows the cached deviation snapshot for a folder.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	folderID := cmd.String("folder")
	minFavourites := int(cmd.Int("min-favourites"))

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	cache := repositories.NewDeviationRepository(db)

	criteria := map[string]any{}
	if folderID != "" {
		criteria["folder_id"] = folderID
	}
	if minFavourites > 0 {
		criteria["min_favourites"] = minFavourites
	}

	cached, err := cache.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list cached deviations: %w", err)
	}

	if len(cached) == 0 {
		r.writePlain("No cached deviations found.\n")
		r.writePlain("Snapshots are written by 'dvx sync run'.\n")
		return nil
	}

	r.writePlain("Found %d cached deviations:\n\n", len(cached))
	for i, d := range cached {
		r.writePlain("%d. %s\n", i+1, d.Title())
		r.writePlain("   Deviation: %s\n", d.DeviationID())
		r.writePlain("   Folder: %s\n", d.FolderID())
		r.writePlain("   Favourites: %d\n", d.Favourites())
		if !d.PublishedAt().IsZero() {
			r.writePlain("   Published: %s\n", d.PublishedAt().Format("2006-01-02"))
		}
		r.writePlain("\n")
	}

	return nil
}

// CacheHistory lists recorded sync runs.
func (r *Runner) CacheHistory(ctx context.Context, cmd *cli.Command) error {
	status := cmd.String("status")
	limit := int(cmd.Int("limit"))

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	runs := repositories.NewSyncRunRepository(db)

	criteria := map[string]any{}
	if status != "" {
		criteria["status"] = status
	}
	if limit > 0 {
		criteria["limit"] = limit
	}

	history, err := runs.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list sync runs: %w", err)
	}

	if len(history) == 0 {
		r.writePlain("No sync runs recorded yet.\n")
		return nil
	}

	r.writePlain("Found %d sync runs:\n", len(history))
	for _, run := range history {
		r.writePlain("\n")
		r.writePlainHeader(fmt.Sprintf("Run #%d", run.Sequence()))
		r.printSyncRun(run)
	}

	return nil
}

// CachePurge removes the cached snapshot for a folder.
func (r *Runner) CachePurge(ctx context.Context, cmd *cli.Command) error {
	folderID := cmd.String("folder")
	if folderID == "" {
		return fmt.Errorf("%w: --folder flag is required", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	cache := repositories.NewDeviationRepository(db)

	count, err := cache.PurgeFolder(folderID)
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	r.logger.Infof("purged %v cached deviations for folder %v", count, folderID)
	r.writePlain("✓ Purged %d cached deviations\n", count)

	return nil
}

// cacheCommand inspects the local snapshot and sync history database
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect cached snapshots and sync history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached deviations from the last sync",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "folder",
						Usage: "Filter by folder ID",
					},
					&cli.IntFlag{
						Name:  "min-favourites",
						Usage: "Only show deviations with at least this many favourites",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:  "history",
				Usage: "List recorded sync runs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (pending, completed, failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 10,
					},
				},
				Action: r.CacheHistory,
			},
			{
				Name:  "purge",
				Usage: "Remove the cached snapshot for a folder",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "folder",
						Usage:    "Folder ID to purge",
						Required: true,
					},
				},
				Action: r.CachePurge,
			},
		},
	}
}
