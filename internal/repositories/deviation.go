package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/dvx/internal/models"
	"github.com/desertthunder/dvx/internal/shared"
)

// DeviationRepository implements models.Repository[*models.CachedDeviation] for scan snapshots.
//
// Snapshots are keyed by (deviation_id, folder_id) so the same artwork filed
// in several folders keeps one row per folder. Upsert refreshes favourite
// counts on repeated scans.
type DeviationRepository struct {
	db *sql.DB
}

// NewDeviationRepository creates a new DeviationRepository with the given database connection
func NewDeviationRepository(db *sql.DB) *DeviationRepository {
	return &DeviationRepository{db: db}
}

// Create inserts a new [models.CachedDeviation] into the database with generated ID and sequence
func (r *DeviationRepository) Create(deviation *models.CachedDeviation) error {
	sequence, err := NextSequence(r.db, "deviations")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	deviation.SetSequence(sequence)

	id := shared.GenerateID()
	deviation.SetID(id)

	if err := deviation.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO deviations (id, sequence, deviation_id, folder_id, title, favourites, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		deviation.DeviationID(),
		deviation.FolderID(),
		deviation.Title(),
		deviation.Favourites(),
		nullableTime(deviation.PublishedAt()),
		deviation.CreatedAt(),
		deviation.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert deviation: %w", err)
	}

	return nil
}

// Get retrieves a snapshot by ID, excluding soft-deleted rows
func (r *DeviationRepository) Get(id string) (*models.CachedDeviation, error) {
	query := `
		SELECT id, sequence, deviation_id, folder_id, title, favourites, published_at, created_at, updated_at, deleted_at
		FROM deviations
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByDeviationAndFolder retrieves the snapshot for a deviation in a specific folder
func (r *DeviationRepository) GetByDeviationAndFolder(deviationID, folderID string) (*models.CachedDeviation, error) {
	query := `
		SELECT id, sequence, deviation_id, folder_id, title, favourites, published_at, created_at, updated_at, deleted_at
		FROM deviations
		WHERE deviation_id = ? AND folder_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, deviationID, folderID))
}

// Upsert stores a freshly scanned deviation, refreshing the existing snapshot
// for its (deviation, folder) pair when one exists.
func (r *DeviationRepository) Upsert(dto models.Deviation) (*models.CachedDeviation, error) {
	existing, err := r.GetByDeviationAndFolder(dto.ID, dto.FolderID)
	if err == nil {
		existing.SetFavourites(dto.Favourites)
		if err := r.Update(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	fresh := models.NewCachedDeviation(0, dto)
	if err := r.Create(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Update modifies an existing snapshot in the database
func (r *DeviationRepository) Update(deviation *models.CachedDeviation) error {
	if err := deviation.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	deviation.SetUpdatedAt(now)

	query := `
		UPDATE deviations
		SET title = ?, favourites = ?, published_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		deviation.Title(),
		deviation.Favourites(),
		nullableTime(deviation.PublishedAt()),
		now,
		deviation.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update deviation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("deviation not found or already deleted: %s", deviation.ID())
	}

	return nil
}

// Delete soft-deletes a snapshot by ID
func (r *DeviationRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE deviations
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete deviation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("deviation not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all snapshots matching the given criteria, excluding soft-deleted rows
func (r *DeviationRepository) List(criteria map[string]any) ([]*models.CachedDeviation, error) {
	query := `
		SELECT id, sequence, deviation_id, folder_id, title, favourites, published_at, created_at, updated_at, deleted_at
		FROM deviations
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if folderID, ok := criteria["folder_id"].(string); ok && folderID != "" {
		query += " AND folder_id = ?"
		args = append(args, folderID)
	}

	if minFavourites, ok := criteria["min_favourites"].(int); ok && minFavourites > 0 {
		query += " AND favourites >= ?"
		args = append(args, minFavourites)
	}

	query += " ORDER BY favourites DESC, sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deviations: %w", err)
	}
	defer rows.Close()

	var deviations []*models.CachedDeviation
	for rows.Next() {
		deviation, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		deviations = append(deviations, deviation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return deviations, nil
}

// PurgeFolder soft-deletes every snapshot for a folder, ahead of a fresh scan
func (r *DeviationRepository) PurgeFolder(folderID string) (int, error) {
	query := `
		UPDATE deviations
		SET deleted_at = ?
		WHERE folder_id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), folderID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge folder snapshots: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

type deviationRow struct {
	id          string
	sequence    int
	deviationID string
	folderID    string
	title       string
	favourites  int
	publishedAt sql.NullTime
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   sql.NullTime
}

func (r *DeviationRepository) scanOne(row *sql.Row) (*models.CachedDeviation, error) {
	var d deviationRow

	err := row.Scan(&d.id, &d.sequence, &d.deviationID, &d.folderID, &d.title, &d.favourites, &d.publishedAt, &d.createdAt, &d.updatedAt, &d.deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("deviation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan deviation: %w", err)
	}

	return d.toModel(), nil
}

func (r *DeviationRepository) scanRow(rows *sql.Rows) (*models.CachedDeviation, error) {
	var d deviationRow

	err := rows.Scan(&d.id, &d.sequence, &d.deviationID, &d.folderID, &d.title, &d.favourites, &d.publishedAt, &d.createdAt, &d.updatedAt, &d.deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan deviation: %w", err)
	}

	return d.toModel(), nil
}

func (d deviationRow) toModel() *models.CachedDeviation {
	dto := models.Deviation{
		ID:         d.deviationID,
		Title:      d.title,
		FolderID:   d.folderID,
		Favourites: d.favourites,
	}
	if d.publishedAt.Valid {
		dto.PublishedAt = d.publishedAt.Time
	}

	deviation := models.NewCachedDeviation(d.sequence, dto)
	deviation.SetID(d.id)
	deviation.SetUpdatedAt(d.updatedAt)
	if d.deletedAt.Valid {
		deviation.SetDeletedAt(&d.deletedAt.Time)
	}

	return deviation
}

// nullableTime maps the zero time to NULL for storage.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
