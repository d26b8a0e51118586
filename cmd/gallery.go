package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/dvx/internal/formatter"
	"github.com/desertthunder/dvx/internal/models"
	"github.com/desertthunder/dvx/internal/shared"
	"github.com/desertthunder/dvx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// GalleryFolders lists the authenticated user's gallery folders.
func (r *Runner) GalleryFolders(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	save := cmd.Bool("save")

	if r.deviantart == nil {
		return fmt.Errorf("%w: DeviantArt service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Info("listing gallery folders")

	folders, err := r.deviantart.Folders(ctx)
	if err != nil {
		if retried, authErr := r.handleAuthError(ctx, err); retried {
			if authErr != nil {
				return authErr
			}
			if folders, err = r.deviantart.Folders(ctx); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			}
		} else {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	if save {
		saveFile := "gallery_folders.json"
		data, err := shared.MarshalJSON(folders, true)
		if err != nil {
			return fmt.Errorf("failed to marshal folders: %w", err)
		}
		if err := os.WriteFile(saveFile, data, 0644); err != nil {
			r.logger.Warn("failed to save folders", "error", err)
		} else {
			r.logger.Info("folders saved", "file", saveFile)
		}
	}

	if useJSON {
		return r.writeJSON(folders, pretty)
	}

	r.writePlain("Found %d folders:\n\n", len(folders))
	for i, f := range folders {
		r.writePlain("%d. %s\n", i+1, f.Name)
		r.writePlain("   ID: %s\n", f.ID)
		if f.Parent != "" {
			r.writePlain("   Parent: %s\n", f.Parent)
		}
		r.writePlain("   Deviations: %d\n", f.Size)
		r.writePlain("\n")
	}

	return nil
}

// GalleryContents lists the deviations in a folder ordered by favourite count.
func (r *Runner) GalleryContents(ctx context.Context, cmd *cli.Command) error {
	folderID := cmd.String("id")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if folderID == "" {
		return fmt.Errorf("%w: --id flag is required", shared.ErrMissingArgument)
	}

	if r.deviantart == nil {
		return fmt.Errorf("%w: DeviantArt service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Infof("fetching folder contents %v", folderID)

	deviations, err := r.deviantart.FolderContents(ctx, folderID)
	if err != nil {
		if retried, authErr := r.handleAuthError(ctx, err); retried {
			if authErr != nil {
				return authErr
			}
			if deviations, err = r.deviantart.FolderContents(ctx, folderID); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			}
		} else {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	ranked, err := tasks.Select(deviations, len(deviations))
	if err == nil {
		deviations = ranked
	}

	if useJSON {
		return r.writeJSON(deviations, pretty)
	}

	r.writePlain("Found %d deviations:\n\n", len(deviations))
	for i, d := range deviations {
		r.writePlain("%d. %s\n", i+1, d.Title)
		r.writePlain("   ID: %s\n", d.ID)
		r.writePlain("   Favourites: %d\n", d.Favourites)
		if !d.PublishedAt.IsZero() {
			r.writePlain("   Published: %s\n", d.PublishedAt.Format("2006-01-02"))
		}
		r.writePlain("\n")
	}

	return nil
}

// GalleryExport writes one folder, or every folder, to disk.
//
// Single-folder exports write one file. With --all a worker pool exports every
// folder concurrently and writes a manifest alongside the files.
func (r *Runner) GalleryExport(ctx context.Context, cmd *cli.Command) error {
	folderID := cmd.String("id")
	all := cmd.Bool("all")
	format := cmd.String("format")
	outputDir := cmd.String("output")
	workers := cmd.Int("workers")

	if r.deviantart == nil {
		return fmt.Errorf("%w: DeviantArt service not initialized", shared.ErrServiceUnavailable)
	}

	if !all && folderID == "" {
		return fmt.Errorf("%w: either --id or --all must be provided", shared.ErrMissingArgument)
	}
	if all && folderID != "" {
		return fmt.Errorf("%w: cannot specify both --id and --all", shared.ErrInvalidArgument)
	}

	folders, err := r.deviantart.Folders(ctx)
	if err != nil {
		if retried, authErr := r.handleAuthError(ctx, err); retried {
			if authErr != nil {
				return authErr
			}
			if folders, err = r.deviantart.Folders(ctx); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			}
		} else {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	if all {
		return r.exportAllFolders(ctx, folders, format, outputDir, int(workers))
	}

	var folder *models.Folder
	for i := range folders {
		if folders[i].ID == folderID || folders[i].Name == folderID {
			folder = &folders[i]
			break
		}
	}
	if folder == nil {
		return fmt.Errorf("%w: %s", shared.ErrGalleryNotFound, folderID)
	}

	deviations, err := r.deviantart.FolderContents(ctx, folder.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if ranked, rankErr := tasks.Select(deviations, len(deviations)); rankErr == nil {
		deviations = ranked
	}

	if outputDir == "" {
		outputDir = "."
	}

	path, err := formatter.WriteFolderExport(*folder, deviations, format, outputDir)
	if err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	r.logger.Infof("folder exported to %v with %v deviations", path, len(deviations))

	r.writePlain("✓ Folder exported to %s\n", path)
	r.writePlain("  Folder: %s\n", folder.Name)
	r.writePlain("  Deviations: %d\n", len(deviations))
	return nil
}

// exportAllFolders runs the bulk export pipeline and prints a summary.
func (r *Runner) exportAllFolders(ctx context.Context, folders []models.Folder, format, outputDir string, workers int) error {
	r.writePlain("Exporting %d folders...\n\n", len(folders))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			if update.Phase == tasks.ExportFolder {
				r.writePlain("📁 %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.BulkExport(ctx, progressCh, folders, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  outputDir,
		NumWorkers: workers,
	})
	close(progressCh)

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Folders: %d\n", result.TotalFolders)
	r.writePlain("Successful: %d\n", result.SuccessfulExports)
	r.writePlain("Failed: %d\n", result.FailedExports)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	if result.FailedExports > 0 {
		r.writePlain("\nFailed folders:\n")
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %v\n", res.FolderName, res.Error)
			}
		}
	}

	return nil
}

// galleryCommand handles gallery folder operations
func galleryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "gallery",
		Aliases: []string{"gal"},
		Usage:   "DeviantArt gallery operations",
		Commands: []*cli.Command{
			{
				Name:  "folders",
				Usage: "List gallery folders",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save folders to gallery_folders.json",
					},
				},
				Action: r.GalleryFolders,
			},
			{
				Name:  "contents",
				Usage: "List deviations in a folder, ordered by favourites",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Folder ID or name",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.GalleryContents,
			},
			{
				Name:  "export",
				Usage: "Export folder contents to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Folder ID or name to export",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Export every folder",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format (json, csv, markdown, txt)",
						Value: "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers (with --all)",
						Value: 5,
					},
				},
				Action: r.GalleryExport,
			},
		},
	}
}
