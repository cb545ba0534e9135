package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/skyroof/safetymonitor/internal/infrastructure/database"
	"github.com/skyroof/safetymonitor/internal/safety"
)

func openMemoryDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

func TestSQLiteStore_DefaultsAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	roofs := writeFile(t, t.TempDir(), "roofs.json", twoRoofs)
	store, err := NewSQLiteStore(ctx, openMemoryDB(t), roofs)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	if got := store.Load(ctx); got != safety.DefaultSettings() {
		t.Errorf("Load() on empty table = %+v, want defaults", got)
	}

	want := safety.Settings{
		SelectedRoofName:     "South",
		ManualOverrideValue:  true,
		MaxSolarAltitude:     -6.5,
		ObservatoryLatitude:  -31.27,
		ObservatoryLongitude: 149.06,
		ObservatoryTimezone:  "Australia/Sydney",
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := store.Load(ctx); got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	want.ManualOverrideEnabled = true
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if got := store.Load(ctx); !got.ManualOverrideEnabled {
		t.Error("upsert did not update the existing row")
	}
}

func TestSQLiteStore_RegistryMirror(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	roofs := writeFile(t, dir, "roofs.json", twoRoofs)
	db := openMemoryDB(t)

	store, err := NewSQLiteStore(ctx, db, roofs)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	reg := store.Registry(ctx)
	if len(reg.Roofs) != 2 || reg.Roofs[0].Name != "North" || reg.Roofs[1].Name != "South" {
		t.Fatalf("Registry() = %+v, want North, South in order", reg.Roofs)
	}
	if reg.Location != nil {
		t.Errorf("Location = %+v, want nil", reg.Location)
	}

	// The mirror outlives the file.
	if err := os.Remove(roofs); err != nil {
		t.Fatal(err)
	}
	if err := store.SyncRegistry(ctx); !isMissing(err) {
		t.Errorf("SyncRegistry() error = %v, want not-exist", err)
	}
	if got := store.Registry(ctx); len(got.Roofs) != 2 {
		t.Errorf("Registry() after file removal = %+v, want stored roofs", got.Roofs)
	}

	writeFile(t, dir, "roofs.json", locatedRoofs)
	if err := store.SyncRegistry(ctx); err != nil {
		t.Fatalf("SyncRegistry() error = %v", err)
	}
	got := store.Registry(ctx)
	if len(got.Roofs) != 1 || got.Location == nil || got.Location.Timezone != "Europe/Madrid" {
		t.Errorf("Registry() = %+v, want one roof with location", got)
	}
}

func TestSQLiteStore_MissingRegistryFile(t *testing.T) {
	ctx := context.Background()
	log := &recordingLogger{}

	store, err := NewSQLiteStore(ctx, openMemoryDB(t), filepath.Join(t.TempDir(), "roofs.json"), WithLogger(log))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if reg := store.Registry(ctx); len(reg.Roofs) != 0 {
		t.Errorf("Registry() = %+v, want empty", reg)
	}
	if len(log.warns) != 0 {
		t.Errorf("warnings = %v, want none for an absent registry file", log.warns)
	}
}

func TestSQLiteStore_PopulatesCoordinates(t *testing.T) {
	ctx := context.Background()
	roofs := writeFile(t, t.TempDir(), "roofs.json", locatedRoofs)
	db := openMemoryDB(t)
	store, err := NewSQLiteStore(ctx, db, roofs)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	got := store.Load(ctx)
	if got.ObservatoryLatitude != 38.1 || got.ObservatoryTimezone != "Europe/Madrid" {
		t.Fatalf("Load() = %+v, want registry coordinates", got)
	}

	var stored float64
	if err := db.QueryRowContext(ctx, "SELECT observatory_latitude FROM settings WHERE id = 1").Scan(&stored); err != nil {
		t.Fatalf("populated settings not persisted: %v", err)
	}
	if stored != 38.1 {
		t.Errorf("stored latitude = %v, want 38.1", stored)
	}
}

func TestSQLiteStore_ClosedDatabase(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)
	store, err := NewSQLiteStore(ctx, db, filepath.Join(t.TempDir(), "roofs.json"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	db.Close() //nolint:errcheck // forcing failures

	if got := store.Load(ctx); got != safety.DefaultSettings() {
		t.Errorf("Load() = %+v, want defaults", got)
	}
	if err := store.Save(ctx, safety.DefaultSettings()); !errors.Is(err, ErrPersist) {
		t.Errorf("Save() error = %v, want ErrPersist", err)
	}
	if err := store.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() on closed database returned nil")
	}
}

func TestSQLiteStore_WorksWithService(t *testing.T) {
	ctx := context.Background()
	roofs := writeFile(t, t.TempDir(), "roofs.json", twoRoofs)
	store, err := NewSQLiteStore(ctx, openMemoryDB(t), roofs)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	svc := safety.NewService(store, nil, nil)
	if err := svc.SelectRoof(ctx, "South"); err != nil {
		t.Fatalf("SelectRoof() error = %v", err)
	}
	if err := svc.SelectRoof(ctx, "West"); !errors.Is(err, safety.ErrUnknownRoof) {
		t.Errorf("SelectRoof(West) error = %v, want ErrUnknownRoof", err)
	}
	if got := store.Load(ctx).SelectedRoofName; got != "South" {
		t.Errorf("SelectedRoofName = %q, want South", got)
	}
}
