package models

import "time"

// Folder represents a DeviantArt gallery folder.
type Folder struct {
	ID     string `json:"id"`     // DeviantArt folderid
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"` // parent folderid, empty for top-level folders
	Size   int    `json:"size"`             // number of deviations, populated when calculate_size is requested
}

// Deviation represents a single artwork item in a gallery folder.
//
// Snapshots are read-only and valid only for the duration of one sync run.
type Deviation struct {
	ID          string    `json:"id"` // DeviantArt deviationid, stable and unique
	Title       string    `json:"title"`
	FolderID    string    `json:"folder_id"` // folder the snapshot was read from
	Favourites  int       `json:"favourites"`
	PublishedAt time.Time `json:"published_at"` // used as the ranking tie-break
	URL         string    `json:"url,omitempty"`
}
