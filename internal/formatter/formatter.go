// package formatter provides functions to export gallery data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/dvx/internal/models"
	"github.com/desertthunder/dvx/internal/shared"
)

// ExportToCSV converts a folder's deviations to CSV with columns: Rank, ID, Title, Favourites, Published, URL
func ExportToCSV(deviations []models.Deviation) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "ID", "Title", "Favourites", "Published", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, d := range deviations {
		record := []string{
			strconv.Itoa(i + 1),
			d.ID,
			d.Title,
			strconv.Itoa(d.Favourites),
			formatPublished(d.PublishedAt),
			d.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a folder's deviations to a Markdown ranking table
func ExportToMarkdown(folder models.Folder, deviations []models.Deviation) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", folder.Name))
	buf.WriteString(fmt.Sprintf("**Deviations**: %d\n\n", len(deviations)))

	buf.WriteString("| # | Title | Favourites | Published |\n")
	buf.WriteString("|---|-------|-----------:|-----------|\n")
	for i, d := range deviations {
		title := d.Title
		if d.URL != "" {
			title = fmt.Sprintf("[%s](%s)", d.Title, d.URL)
		}
		buf.WriteString(fmt.Sprintf("| %d | %s | %d | %s |\n", i+1, title, d.Favourites, formatPublished(d.PublishedAt)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a folder's deviations to plain text
func ExportToText(folder models.Folder, deviations []models.Deviation) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Folder: %s\n", folder.Name))
	buf.WriteString(fmt.Sprintf("Deviations: %d\n\n", len(deviations)))

	for i, d := range deviations {
		buf.WriteString(fmt.Sprintf("%d. %s (%d favourites)\n", i+1, d.Title, d.Favourites))
	}

	return buf.Bytes(), nil
}

// folderExport is the JSON shape written for a folder dump.
type folderExport struct {
	Folder     models.Folder      `json:"folder"`
	Deviations []models.Deviation `json:"deviations"`
}

// WriteFolderExport writes a folder's deviations to outputDir in the given
// format and returns the path of the file created. Unknown formats fall back
// to JSON.
func WriteFolderExport(folder models.Folder, deviations []models.Deviation, format, outputDir string) (string, error) {
	var data []byte
	var err error
	var ext string

	switch format {
	case "csv":
		data, err = ExportToCSV(deviations)
		ext = "csv"
	case "markdown":
		data, err = ExportToMarkdown(folder, deviations)
		ext = "md"
	case "txt":
		data, err = ExportToText(folder, deviations)
		ext = "txt"
	default:
		data, err = shared.MarshalJSON(folderExport{Folder: folder, Deviations: deviations}, true)
		ext = "json"
	}
	if err != nil {
		return "", fmt.Errorf("failed to render %s export: %w", format, err)
	}

	path := filepath.Join(outputDir, fmt.Sprintf("%s.%s", folder.ID, ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// ExportManifestEntry records one folder's outcome in a bulk export.
type ExportManifestEntry struct {
	FolderID   string `json:"folder_id"`
	FolderName string `json:"folder_name"`
	Deviations int    `json:"deviations"`
	File       string `json:"file,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ExportManifest summarizes a bulk export for later inspection.
type ExportManifest struct {
	GeneratedAt  time.Time             `json:"generated_at"`
	Format       string                `json:"format"`
	TotalFolders int                   `json:"total_folders"`
	Successful   int                   `json:"successful"`
	Failed       int                   `json:"failed"`
	Entries      []ExportManifestEntry `json:"entries"`
}

// WriteExportManifest writes the manifest as pretty-printed JSON.
func WriteExportManifest(manifest ExportManifest, path string) error {
	data, err := shared.MarshalJSON(manifest, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func formatPublished(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
