package models

import (
	"fmt"
	"time"
)

// CachedDeviation is a database-backed snapshot of a deviation seen during a gallery scan.
type CachedDeviation struct {
	id          string
	sequence    int
	deviationID string
	folderID    string
	title       string
	favourites  int
	publishedAt time.Time
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewCachedDeviation creates a cached snapshot from a [Deviation] DTO.
func NewCachedDeviation(sequence int, dto Deviation) *CachedDeviation {
	now := time.Now()
	return &CachedDeviation{
		sequence:    sequence,
		deviationID: dto.ID,
		folderID:    dto.FolderID,
		title:       dto.Title,
		favourites:  dto.Favourites,
		publishedAt: dto.PublishedAt,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (d *CachedDeviation) ID() string             { return d.id }
func (d *CachedDeviation) Sequence() int          { return d.sequence }
func (d *CachedDeviation) DeviationID() string    { return d.deviationID }
func (d *CachedDeviation) FolderID() string       { return d.folderID }
func (d *CachedDeviation) Title() string          { return d.title }
func (d *CachedDeviation) Favourites() int        { return d.favourites }
func (d *CachedDeviation) PublishedAt() time.Time { return d.publishedAt }
func (d *CachedDeviation) CreatedAt() time.Time   { return d.createdAt }
func (d *CachedDeviation) UpdatedAt() time.Time   { return d.updatedAt }
func (d *CachedDeviation) DeletedAt() *time.Time  { return d.deletedAt }

func (d *CachedDeviation) SetID(id string)           { d.id = id }
func (d *CachedDeviation) SetSequence(n int)         { d.sequence = n }
func (d *CachedDeviation) SetFavourites(n int)       { d.favourites = n }
func (d *CachedDeviation) SetUpdatedAt(t time.Time)  { d.updatedAt = t }
func (d *CachedDeviation) SetDeletedAt(t *time.Time) { d.deletedAt = t }

// Deviation converts the cached snapshot back to its DTO form.
func (d *CachedDeviation) Deviation() Deviation {
	return Deviation{
		ID:          d.deviationID,
		Title:       d.title,
		FolderID:    d.folderID,
		Favourites:  d.favourites,
		PublishedAt: d.publishedAt,
	}
}

// Validate checks the snapshot's data integrity.
func (d *CachedDeviation) Validate() error {
	if d.deviationID == "" {
		return fmt.Errorf("deviation id is required")
	}
	if d.folderID == "" {
		return fmt.Errorf("folder id is required")
	}
	if d.favourites < 0 {
		return fmt.Errorf("favourites must be non-negative, got %d", d.favourites)
	}
	return nil
}

// Sync run status values.
const (
	SyncStatusPending   = "pending"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncRun records one reconciliation against the destination gallery.
type SyncRun struct {
	id            string
	sequence      int
	sourceGallery string
	destGallery   string
	topN          int
	scanned       int
	added         int
	removed       int
	noops         int
	status        string
	errorMessage  string
	startedAt     *time.Time
	completedAt   *time.Time
	createdAt     time.Time
	updatedAt     time.Time
	deletedAt     *time.Time
}

// NewSyncRun creates a pending sync run for the given galleries.
func NewSyncRun(sequence int, sourceGallery, destGallery string, topN int) *SyncRun {
	now := time.Now()
	return &SyncRun{
		sequence:      sequence,
		sourceGallery: sourceGallery,
		destGallery:   destGallery,
		topN:          topN,
		status:        SyncStatusPending,
		createdAt:     now,
		updatedAt:     now,
	}
}

func (s *SyncRun) ID() string              { return s.id }
func (s *SyncRun) Sequence() int           { return s.sequence }
func (s *SyncRun) SourceGallery() string   { return s.sourceGallery }
func (s *SyncRun) DestGallery() string     { return s.destGallery }
func (s *SyncRun) TopN() int               { return s.topN }
func (s *SyncRun) Scanned() int            { return s.scanned }
func (s *SyncRun) Added() int              { return s.added }
func (s *SyncRun) Removed() int            { return s.removed }
func (s *SyncRun) NoOps() int              { return s.noops }
func (s *SyncRun) Status() string          { return s.status }
func (s *SyncRun) ErrorMessage() string    { return s.errorMessage }
func (s *SyncRun) StartedAt() *time.Time   { return s.startedAt }
func (s *SyncRun) CompletedAt() *time.Time { return s.completedAt }
func (s *SyncRun) CreatedAt() time.Time    { return s.createdAt }
func (s *SyncRun) UpdatedAt() time.Time    { return s.updatedAt }
func (s *SyncRun) DeletedAt() *time.Time   { return s.deletedAt }

func (s *SyncRun) SetID(id string)           { s.id = id }
func (s *SyncRun) SetSequence(n int)         { s.sequence = n }
func (s *SyncRun) SetUpdatedAt(t time.Time)  { s.updatedAt = t }
func (s *SyncRun) SetDeletedAt(t *time.Time) { s.deletedAt = t }

// Start marks the run as in-flight.
func (s *SyncRun) Start(t time.Time) {
	s.startedAt = &t
}

// Complete records the final counters and marks the run completed.
func (s *SyncRun) Complete(t time.Time, scanned, added, removed, noops int) {
	s.scanned = scanned
	s.added = added
	s.removed = removed
	s.noops = noops
	s.status = SyncStatusCompleted
	s.completedAt = &t
}

// Fail records the error message and marks the run failed.
func (s *SyncRun) Fail(t time.Time, err error) {
	s.status = SyncStatusFailed
	if err != nil {
		s.errorMessage = err.Error()
	}
	s.completedAt = &t
}

// Restore repopulates counters and status when scanning a row from the database.
func (s *SyncRun) Restore(scanned, added, removed, noops int, status, errorMessage string, startedAt, completedAt *time.Time) {
	s.scanned = scanned
	s.added = added
	s.removed = removed
	s.noops = noops
	s.status = status
	s.errorMessage = errorMessage
	s.startedAt = startedAt
	s.completedAt = completedAt
}

// Validate checks the run's data integrity.
func (s *SyncRun) Validate() error {
	if s.destGallery == "" {
		return fmt.Errorf("destination gallery is required")
	}
	if s.topN < 1 {
		return fmt.Errorf("top_n must be at least 1, got %d", s.topN)
	}
	switch s.status {
	case SyncStatusPending, SyncStatusCompleted, SyncStatusFailed:
	default:
		return fmt.Errorf("invalid status %q", s.status)
	}
	return nil
}
