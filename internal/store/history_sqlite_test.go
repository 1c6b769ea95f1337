package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/homedeck/homedeck-core/internal/infrastructure/database"
	_ "github.com/homedeck/homedeck-core/migrations"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	return db
}

func TestSQLiteTemperatureRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	points := []TemperaturePoint{
		{Time: now.Add(-3 * time.Hour), Temp: 19.5},
		{Time: now.Add(-2 * time.Hour), Temp: 20.0},
		{Time: now.Add(-1 * time.Hour), Temp: 20.5},
	}
	for _, p := range points {
		if err := repo.InsertTemperature(ctx, "Lounge", p); err != nil {
			t.Fatalf("InsertTemperature() error: %v", err)
		}
	}
	// Rows for a different room must not bleed into Lounge queries.
	if err := repo.InsertTemperature(ctx, "Office", TemperaturePoint{Time: now, Temp: 23.0}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.TemperatureSince(ctx, "Lounge", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("TemperatureSince() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}
	for i, p := range points {
		if !got[i].Time.Equal(p.Time) || got[i].Temp != p.Temp {
			t.Errorf("row %d = %+v, want %+v", i, got[i], p)
		}
	}
}

func TestSQLitePruneTemperature(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	repo.InsertTemperature(ctx, "Hall", TemperaturePoint{Time: now.Add(-30 * time.Hour), Temp: 17.0})
	repo.InsertTemperature(ctx, "Hall", TemperaturePoint{Time: now.Add(-1 * time.Hour), Temp: 18.0})

	pruned, err := repo.PruneTemperature(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneTemperature() error: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	got, err := repo.TemperatureSince(ctx, "Hall", now.Add(-48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Temp != 18.0 {
		t.Errorf("surviving rows = %+v, want only the in-window one", got)
	}
}

func TestSQLiteActivityRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	in := ActivityEntry{
		Type:     ActivityConnection,
		Location: "sonos",
		Detail:   "offline",
		Time:     now.Add(-time.Hour),
	}
	if err := repo.InsertActivity(ctx, in); err != nil {
		t.Fatalf("InsertActivity() error: %v", err)
	}

	got, err := repo.ActivitySince(ctx, now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("ActivitySince() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows = %d, want 1", len(got))
	}
	if got[0].Type != in.Type || got[0].Location != in.Location || got[0].Detail != in.Detail || !got[0].Time.Equal(in.Time) {
		t.Errorf("row = %+v, want %+v", got[0], in)
	}
}

func TestSQLiteLayout(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteLayoutRepository(db)
	ctx := context.Background()

	if _, err := repo.Get(ctx, "thermostat-card"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on empty table = %v, want ErrNotFound", err)
	}

	if err := repo.Put(ctx, "thermostat-card", Position{X: 100, Y: 40}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	// Upsert replaces, never duplicates.
	if err := repo.Put(ctx, "thermostat-card", Position{X: 120, Y: 60}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := repo.Put(ctx, "lights-panel", Position{X: 0, Y: 200}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	pos, err := repo.Get(ctx, "thermostat-card")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if pos != (Position{X: 120, Y: 60}) {
		t.Errorf("Get() = %+v, want updated position", pos)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List() len = %d, want 2", len(all))
	}
}
