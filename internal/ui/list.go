package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/dvx/internal/models"
)

var (
	_ list.Item = folderItem{}
	_ list.Item = deviationItem{}
)

// scanAllID marks the synthetic "every folder" entry at the top of the folder list.
const scanAllID = ""

// folderItem wraps [models.Folder] to implement [list.Item].
type folderItem struct {
	folder models.Folder
}

func (i folderItem) FilterValue() string { return i.folder.Name }
func (i folderItem) Title() string       { return i.folder.Name }
func (i folderItem) Description() string {
	if i.folder.ID == scanAllID {
		return "rank deviations across every folder"
	}
	desc := fmt.Sprintf("%d deviations", i.folder.Size)
	if i.folder.Parent != "" {
		desc = fmt.Sprintf("%s • subfolder", desc)
	}
	return desc
}

// deviationItem wraps a ranked [models.Deviation] to implement [list.Item].
type deviationItem struct {
	rank      int
	deviation models.Deviation
}

func (i deviationItem) FilterValue() string { return i.deviation.Title }
func (i deviationItem) Title() string {
	return fmt.Sprintf("%d. %s", i.rank, i.deviation.Title)
}
func (i deviationItem) Description() string {
	desc := fmt.Sprintf("%d favourites", i.deviation.Favourites)
	if !i.deviation.PublishedAt.IsZero() {
		desc = fmt.Sprintf("%s • %s", desc, i.deviation.PublishedAt.Format("Jan 2006"))
	}
	return desc
}
