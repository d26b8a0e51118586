package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/dvx/internal/models"
)

func TestBulkExport(t *testing.T) {
	ctx := context.Background()

	t.Run("Exports All Folders", func(t *testing.T) {
		mock := newMock()
		engine := NewGalleryEngine(mock)
		outputDir := t.TempDir()

		result, err := engine.BulkExport(ctx, nil, mock.folders, BulkExportOpts{
			Format:    "json",
			OutputDir: outputDir,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.TotalFolders != 3 {
			t.Errorf("expected 3 folders, got %d", result.TotalFolders)
		}
		if result.SuccessfulExports != 3 || result.FailedExports != 0 {
			t.Errorf("expected 3 successes, got %d/%d", result.SuccessfulExports, result.FailedExports)
		}

		for _, res := range result.Results {
			if _, err := os.Stat(res.File); err != nil {
				t.Errorf("export file missing for %s: %v", res.FolderName, err)
			}
		}
	})

	t.Run("Writes Manifest", func(t *testing.T) {
		mock := newMock()
		engine := NewGalleryEngine(mock)
		outputDir := t.TempDir()

		result, err := engine.BulkExport(ctx, nil, mock.folders, BulkExportOpts{
			Format:    "csv",
			OutputDir: outputDir,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.ManifestPath != filepath.Join(outputDir, "export_manifest.json") {
			t.Errorf("unexpected manifest path %s", result.ManifestPath)
		}

		data, err := os.ReadFile(result.ManifestPath)
		if err != nil {
			t.Fatalf("failed to read manifest: %v", err)
		}

		var manifest struct {
			Format       string `json:"format"`
			TotalFolders int    `json:"total_folders"`
			Successful   int    `json:"successful"`
			Entries      []struct {
				FolderID string `json:"folder_id"`
			} `json:"entries"`
		}
		if err := json.Unmarshal(data, &manifest); err != nil {
			t.Fatalf("manifest is not valid JSON: %v", err)
		}

		if manifest.Format != "csv" || manifest.TotalFolders != 3 || len(manifest.Entries) != 3 {
			t.Errorf("unexpected manifest contents: %+v", manifest)
		}
	})

	t.Run("Partial Failures Are Recorded", func(t *testing.T) {
		mock := newMock()
		delete(mock.contents, "f-other")
		engine := NewGalleryEngine(mock)

		result, err := engine.BulkExport(ctx, nil, mock.folders, BulkExportOpts{
			Format:    "json",
			OutputDir: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.SuccessfulExports != 2 || result.FailedExports != 1 {
			t.Errorf("expected 2 successes and 1 failure, got %d/%d", result.SuccessfulExports, result.FailedExports)
		}

		var failed *FolderExportResult
		for i := range result.Results {
			if !result.Results[i].Success {
				failed = &result.Results[i]
			}
		}
		if failed == nil || failed.FolderID != "f-other" {
			t.Errorf("expected f-other to fail, got %+v", failed)
		}
	})

	t.Run("Nil Service", func(t *testing.T) {
		engine := &GalleryEngine{}

		_, err := engine.BulkExport(ctx, nil, nil, BulkExportOpts{OutputDir: t.TempDir()})
		if err == nil {
			t.Error("expected error for uninitialized service")
		}
	})

	t.Run("Respects Context Cancellation", func(t *testing.T) {
		y := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
		mock := &mockService{contents: map[string][]models.Deviation{}}
		var folders []models.Folder
		for i := 0; i < 50; i++ {
			id := fmt.Sprintf("f-%02d", i)
			folders = append(folders, models.Folder{ID: id, Name: id})
			mock.contents[id] = []models.Deviation{dev(fmt.Sprintf("d-%02d", i), i, y)}
		}

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		engine := NewGalleryEngine(mock)
		result, err := engine.BulkExport(canceled, nil, folders, BulkExportOpts{
			Format:    "json",
			OutputDir: t.TempDir(),
			RateLimit: 1000,
		})
		if err != nil {
			t.Fatalf("expected graceful stop, got %v", err)
		}

		if result.SuccessfulExports == len(folders) {
			t.Error("expected the canceled run to stop early")
		}
	})

	t.Run("Progress Updates Sent", func(t *testing.T) {
		mock := newMock()
		engine := NewGalleryEngine(mock)

		progress := make(chan ProgressUpdate, 64)
		_, err := engine.BulkExport(ctx, progress, mock.folders, BulkExportOpts{
			Format:    "txt",
			OutputDir: t.TempDir(),
			RateLimit: 1000,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		sawExport := false
		for update := range progress {
			if update.Phase == ExportFolder {
				sawExport = true
			}
		}
		if !sawExport {
			t.Error("expected export progress updates")
		}
	})
}
