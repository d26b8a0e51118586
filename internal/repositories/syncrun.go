package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/dvx/internal/models"
	"github.com/desertthunder/dvx/internal/shared"
)

// SyncRunRepository implements models.Repository[*models.SyncRun] for sync history.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a new [models.SyncRun] into the database with generated ID and sequence
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	run.SetSequence(sequence)

	id := shared.GenerateID()
	run.SetID(id)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_runs (id, sequence, source_gallery, dest_gallery, top_n, scanned, added, removed, noops, status, error_message, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.SourceGallery(),
		run.DestGallery(),
		run.TopN(),
		run.Scanned(),
		run.Added(),
		run.Removed(),
		run.NoOps(),
		run.Status(),
		run.ErrorMessage(),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// Get retrieves a sync run by ID, excluding soft-deleted rows
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `
		SELECT id, sequence, source_gallery, dest_gallery, top_n, scanned, added, removed, noops, status, error_message, started_at, completed_at, created_at, updated_at, deleted_at
		FROM sync_runs
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// Latest retrieves the most recent sync run, if any
func (r *SyncRunRepository) Latest() (*models.SyncRun, error) {
	query := `
		SELECT id, sequence, source_gallery, dest_gallery, top_n, scanned, added, removed, noops, status, error_message, started_at, completed_at, created_at, updated_at, deleted_at
		FROM sync_runs
		WHERE deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRow(query))
}

// Update modifies an existing sync run, typically to record completion or failure
func (r *SyncRunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE sync_runs
		SET scanned = ?, added = ?, removed = ?, noops = ?, status = ?, error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.Scanned(),
		run.Added(),
		run.Removed(),
		run.NoOps(),
		run.Status(),
		run.ErrorMessage(),
		run.StartedAt(),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync run not found or already deleted: %s", run.ID())
	}

	return nil
}

// Delete soft-deletes a sync run by ID
func (r *SyncRunRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE sync_runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync run not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves sync runs matching the given criteria, most recent first
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `
		SELECT id, sequence, source_gallery, dest_gallery, top_n, scanned, added, removed, noops, status, error_message, started_at, completed_at, created_at, updated_at, deleted_at
		FROM sync_runs
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type syncRunRow struct {
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
	errorMessage  sql.NullString
	startedAt     sql.NullTime
	completedAt   sql.NullTime
	createdAt     time.Time
	updatedAt     time.Time
	deletedAt     sql.NullTime
}

func (r *SyncRunRepository) scanOne(row *sql.Row) (*models.SyncRun, error) {
	var s syncRunRow

	err := row.Scan(&s.id, &s.sequence, &s.sourceGallery, &s.destGallery, &s.topN, &s.scanned, &s.added, &s.removed, &s.noops, &s.status, &s.errorMessage, &s.startedAt, &s.completedAt, &s.createdAt, &s.updatedAt, &s.deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sync run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	return s.toModel(), nil
}

func (r *SyncRunRepository) scanRow(rows *sql.Rows) (*models.SyncRun, error) {
	var s syncRunRow

	err := rows.Scan(&s.id, &s.sequence, &s.sourceGallery, &s.destGallery, &s.topN, &s.scanned, &s.added, &s.removed, &s.noops, &s.status, &s.errorMessage, &s.startedAt, &s.completedAt, &s.createdAt, &s.updatedAt, &s.deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	return s.toModel(), nil
}

func (s syncRunRow) toModel() *models.SyncRun {
	run := models.NewSyncRun(s.sequence, s.sourceGallery, s.destGallery, s.topN)
	run.SetID(s.id)
	run.SetUpdatedAt(s.updatedAt)

	var startedAt, completedAt *time.Time
	if s.startedAt.Valid {
		startedAt = &s.startedAt.Time
	}
	if s.completedAt.Valid {
		completedAt = &s.completedAt.Time
	}

	run.Restore(s.scanned, s.added, s.removed, s.noops, s.status, s.errorMessage.String, startedAt, completedAt)

	if s.deletedAt.Valid {
		run.SetDeletedAt(&s.deletedAt.Time)
	}

	return run
}
