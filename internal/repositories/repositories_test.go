package repositories

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/desertthunder/dvx/internal/models"
	"github.com/desertthunder/dvx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func snapshot(deviationID, folderID string, favourites int) models.Deviation {
	return models.Deviation{
		ID:          deviationID,
		Title:       "Deviation " + deviationID,
		FolderID:    folderID,
		Favourites:  favourites,
		PublishedAt: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
	}
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	first, err := NextSequence(db, "deviations")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	second, err := NextSequence(db, "deviations")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}

	if second != first+1 {
		t.Errorf("expected monotonically increasing sequence, got %d then %d", first, second)
	}
}

func TestDeviationRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviationRepository(db)

		deviation := models.NewCachedDeviation(0, snapshot("d-1", "f-1", 41))
		if err := repo.Create(deviation); err != nil {
			t.Fatalf("failed to create deviation: %v", err)
		}

		if deviation.ID() == "" {
			t.Error("deviation ID should be set after creation")
		}
		if deviation.Sequence() == 0 {
			t.Error("sequence should be assigned after creation")
		}
	})

	t.Run("Create Validates", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviationRepository(db)

		invalid := models.NewCachedDeviation(0, models.Deviation{FolderID: "f-1"})
		if err := repo.Create(invalid); err == nil {
			t.Error("expected validation error for missing deviation id")
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviationRepository(db)

		created := models.NewCachedDeviation(0, snapshot("d-1", "f-1", 41))
		if err := repo.Create(created); err != nil {
			t.Fatalf("failed to create deviation: %v", err)
		}

		got, err := repo.Get(created.ID())
		if err != nil {
			t.Fatalf("failed to get deviation: %v", err)
		}

		if got.DeviationID() != "d-1" || got.Favourites() != 41 {
			t.Errorf("unexpected snapshot: %s with %d favourites", got.DeviationID(), got.Favourites())
		}
		if got.PublishedAt().IsZero() {
			t.Error("expected published time to round-trip")
		}
	})

	t.Run("GetByDeviationAndFolder", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviationRepository(db)

		// same deviation filed in two folders keeps one row each
		if err := repo.Create(models.NewCachedDeviation(0, snapshot("d-1", "f-1", 41))); err != nil {
			t.Fatalf("failed to create deviation: %v", err)
		}
		if err := repo.Create(models.NewCachedDeviation(0, snapshot("d-1", "f-2", 12))); err != nil {
			t.Fatalf("failed to create deviation: %v", err)
		}

		got, err := repo.GetByDeviationAndFolder("d-1", "f-2")
		if err != nil {
			t.Fatalf("failed to get deviation: %v", err)
		}
		if got.Favourites() != 12 {
			t.Errorf("expected the f-2 snapshot, got %d favourites", got.Favourites())
		}
	})

	t.Run("Upsert Refreshes Favourites", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviationRepository(db)

		first, err := repo.Upsert(snapshot("d-1", "f-1", 10))
		if err != nil {
			t.Fatalf("first upsert failed: %v", err)
		}

		second, err := repo.Upsert(snapshot("d-1", "f-1", 25))
		if err != nil {
			t.Fatalf("second upsert failed: %v", err)
		}

		if second.ID() != first.ID() {
			t.Error("upsert should reuse the existing row")
		}

		got, err := repo.Get(first.ID())
		if err != nil {
			t.Fatalf("failed to get deviation: %v", err)
		}
		if got.Favourites() != 25 {
			t.Errorf("expected refreshed favourites 25, got %d", got.Favourites())
		}
	})

	t.Run("List By Folder Ordered By Favourites", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviationRepository(db)

		for i, fav := range []int{5, 40, 12} {
			dto := snapshot(fmt.Sprintf("d-%d", i), "f-1", fav)
			if err := repo.Create(models.NewCachedDeviation(0, dto)); err != nil {
				t.Fatalf("failed to create deviation: %v", err)
			}
		}
		if err := repo.Create(models.NewCachedDeviation(0, snapshot("d-x", "f-2", 99))); err != nil {
			t.Fatalf("failed to create deviation: %v", err)
		}

		got, err := repo.List(map[string]any{"folder_id": "f-1"})
		if err != nil {
			t.Fatalf("failed to list deviations: %v", err)
		}

		if len(got) != 3 {
			t.Fatalf("expected 3 snapshots for f-1, got %d", len(got))
		}
		if got[0].Favourites() != 40 || got[2].Favourites() != 5 {
			t.Errorf("expected favourites-descending order, got %d..%d", got[0].Favourites(), got[2].Favourites())
		}
	})

	t.Run("List By Minimum Favourites", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviationRepository(db)

		for i, fav := range []int{5, 40, 12} {
			dto := snapshot(fmt.Sprintf("d-%d", i), "f-1", fav)
			if err := repo.Create(models.NewCachedDeviation(0, dto)); err != nil {
				t.Fatalf("failed to create deviation: %v", err)
			}
		}

		got, err := repo.List(map[string]any{"min_favourites": 10})
		if err != nil {
			t.Fatalf("failed to list deviations: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 snapshots with >= 10 favourites, got %d", len(got))
		}
	})

	t.Run("Delete Is Soft", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviationRepository(db)

		created := models.NewCachedDeviation(0, snapshot("d-1", "f-1", 41))
		if err := repo.Create(created); err != nil {
			t.Fatalf("failed to create deviation: %v", err)
		}

		if err := repo.Delete(created.ID()); err != nil {
			t.Fatalf("failed to delete deviation: %v", err)
		}

		if _, err := repo.Get(created.ID()); err == nil {
			t.Error("expected deleted snapshot to be hidden")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM deviations WHERE id = ?", created.ID()).Scan(&count); err != nil {
			t.Fatalf("failed to count rows: %v", err)
		}
		if count != 1 {
			t.Error("soft delete should keep the row")
		}

		if err := repo.Delete(created.ID()); err == nil {
			t.Error("expected error deleting an already-deleted snapshot")
		}
	})

	t.Run("PurgeFolder", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewDeviationRepository(db)

		for i := 0; i < 3; i++ {
			dto := snapshot(fmt.Sprintf("d-%d", i), "f-1", i)
			if err := repo.Create(models.NewCachedDeviation(0, dto)); err != nil {
				t.Fatalf("failed to create deviation: %v", err)
			}
		}

		purged, err := repo.PurgeFolder("f-1")
		if err != nil {
			t.Fatalf("failed to purge folder: %v", err)
		}
		if purged != 3 {
			t.Errorf("expected 3 purged rows, got %d", purged)
		}

		got, err := repo.List(map[string]any{"folder_id": "f-1"})
		if err != nil {
			t.Fatalf("failed to list deviations: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no live snapshots after purge, got %d", len(got))
		}
	})
}

func TestSyncRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSyncRunRepository(db)

		run := models.NewSyncRun(0, "Featured", "Top 20 Favorites", 20)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create sync run: %v", err)
		}

		if run.ID() == "" {
			t.Error("sync run ID should be set after creation")
		}
		if run.Status() != models.SyncStatusPending {
			t.Errorf("expected pending status, got %s", run.Status())
		}
	})

	t.Run("Lifecycle Roundtrip", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSyncRunRepository(db)

		run := models.NewSyncRun(0, "", "Top 20 Favorites", 20)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create sync run: %v", err)
		}

		started := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
		run.Start(started)
		run.Complete(started.Add(time.Minute), 4, 3, 2, 1)
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update sync run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get sync run: %v", err)
		}

		if got.Status() != models.SyncStatusCompleted {
			t.Errorf("expected completed status, got %s", got.Status())
		}
		if got.Scanned() != 4 || got.Added() != 3 || got.Removed() != 2 || got.NoOps() != 1 {
			t.Errorf("counters did not round-trip: %d/%d/%d/%d", got.Scanned(), got.Added(), got.Removed(), got.NoOps())
		}
		if got.StartedAt() == nil || got.CompletedAt() == nil {
			t.Error("expected timestamps to round-trip")
		}
	})

	t.Run("Failed Run Records Error", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSyncRunRepository(db)

		run := models.NewSyncRun(0, "", "Top 20 Favorites", 20)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create sync run: %v", err)
		}

		run.Start(time.Now())
		run.Fail(time.Now(), fmt.Errorf("token expired"))
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update sync run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get sync run: %v", err)
		}
		if got.Status() != models.SyncStatusFailed || got.ErrorMessage() != "token expired" {
			t.Errorf("unexpected failure record: %s / %q", got.Status(), got.ErrorMessage())
		}
	})

	t.Run("Latest", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSyncRunRepository(db)

		if _, err := repo.Latest(); err == nil {
			t.Error("expected error with no runs recorded")
		}

		for i := 0; i < 3; i++ {
			run := models.NewSyncRun(0, "", "Top 20 Favorites", 10+i)
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create sync run: %v", err)
			}
		}

		latest, err := repo.Latest()
		if err != nil {
			t.Fatalf("failed to get latest run: %v", err)
		}
		if latest.TopN() != 12 {
			t.Errorf("expected most recent run, got top_n %d", latest.TopN())
		}
	})

	t.Run("List With Status And Limit", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSyncRunRepository(db)

		for i := 0; i < 4; i++ {
			run := models.NewSyncRun(0, "", "Top 20 Favorites", 20)
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create sync run: %v", err)
			}
			if i%2 == 0 {
				run.Start(time.Now())
				run.Complete(time.Now(), 1, 1, 0, 0)
				if err := repo.Update(run); err != nil {
					t.Fatalf("failed to update sync run: %v", err)
				}
			}
		}

		completed, err := repo.List(map[string]any{"status": models.SyncStatusCompleted})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(completed) != 2 {
			t.Errorf("expected 2 completed runs, got %d", len(completed))
		}

		limited, err := repo.List(map[string]any{"limit": 3})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(limited) != 3 {
			t.Errorf("expected 3 runs with limit, got %d", len(limited))
		}
		if len(limited) > 1 && limited[0].Sequence() < limited[1].Sequence() {
			t.Error("expected most recent runs first")
		}
	})
}
