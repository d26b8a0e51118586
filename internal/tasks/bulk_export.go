package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/dvx/internal/formatter"
	"github.com/desertthunder/dvx/internal/models"
	"github.com/desertthunder/dvx/internal/shared"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk folder exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: gallery_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 5)
	RateLimit  float64 // Folder fetches per second (default: 2)
}

// FolderExportJob carries one fetched folder to an export worker.
type FolderExportJob struct {
	Folder     models.Folder
	Deviations []models.Deviation
}

// FolderExportResult records the outcome of exporting a single folder.
type FolderExportResult struct {
	FolderID   string
	FolderName string
	Deviations int
	Success    bool
	File       string
	Error      error
}

// BulkExportResult summarizes a bulk export run.
type BulkExportResult struct {
	TotalFolders      int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []FolderExportResult
}

// BulkExport exports multiple folders concurrently with rate limiting and progress tracking.
//
// A single producer fetches folder contents under a rate limiter while a
// worker pool writes the export files. Partial failures are recorded per
// folder and summarized in a manifest file.
func (e *GalleryEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	folders []models.Folder,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if e.svc == nil {
		return nil, fmt.Errorf("%w: deviation service not initialized", shared.ErrServiceUnavailable)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("gallery_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalFolders:    len(folders),
		OutputDirectory: opts.OutputDir,
		Results:         make([]FolderExportResult, 0, len(folders)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan FolderExportJob, len(folders))
	results := make(chan FolderExportResult, len(folders))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(&wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, folder := range folders {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			e.sendProgress(prog, exportingFolderUpdate(i+1, len(folders), folder.Name))

			deviations, err := e.svc.FolderContents(ctx, folder.ID)
			if err != nil {
				results <- FolderExportResult{
					FolderID:   folder.ID,
					FolderName: folder.Name,
					Success:    false,
					Error:      fmt.Errorf("failed to fetch folder: %w", err),
				}
				continue
			}

			jobs <- FolderExportJob{Folder: folder, Deviations: deviations}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(folders), res.FolderName, res.File))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(folders), res.FolderName, res.Error))
		}
	}

	manifest := formatter.ExportManifest{
		GeneratedAt:  time.Now().UTC(),
		Format:       opts.Format,
		TotalFolders: result.TotalFolders,
		Successful:   result.SuccessfulExports,
		Failed:       result.FailedExports,
	}
	for _, res := range result.Results {
		entry := formatter.ExportManifestEntry{
			FolderID:   res.FolderID,
			FolderName: res.FolderName,
			Deviations: res.Deviations,
			File:       res.File,
		}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		manifest.Entries = append(manifest.Entries, entry)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteExportManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker writes export files for folders from the jobs channel.
func (e *GalleryEngine) exportWorker(
	wg *sync.WaitGroup,
	jobs <-chan FolderExportJob,
	results chan<- FolderExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		res := FolderExportResult{
			FolderID:   job.Folder.ID,
			FolderName: job.Folder.Name,
			Deviations: len(job.Deviations),
		}

		file, err := formatter.WriteFolderExport(job.Folder, job.Deviations, opts.Format, opts.OutputDir)
		if err != nil {
			res.Error = err
			results <- res
			continue
		}

		res.File = file
		res.Success = true
		results <- res
	}
}
