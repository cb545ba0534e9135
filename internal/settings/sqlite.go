package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/skyroof/safetymonitor/internal/infrastructure/database"
	"github.com/skyroof/safetymonitor/internal/safety"
	"github.com/skyroof/safetymonitor/migrations"
)

// SQLiteStore keeps settings in a single-row table. The roof registry is
// mirrored from the registry file into the roofs table by SyncRegistry, so
// the database keeps serving the last good registry when the file goes
// missing.
type SQLiteStore struct {
	db        *database.DB
	roofsPath string
	logger    Logger

	mu       sync.Mutex
	lastWarn string
}

// NewSQLiteStore migrates db and mirrors the registry file into it.
func NewSQLiteStore(ctx context.Context, db *database.DB, roofsPath string, opts ...Option) (*SQLiteStore, error) {
	o := applyOptions(opts)
	if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
		return nil, fmt.Errorf("migrating settings database: %w", err)
	}

	s := &SQLiteStore{db: db, roofsPath: roofsPath, logger: o.logger}
	switch err := s.SyncRegistry(ctx); {
	case err == nil:
	case isMissing(err):
		s.logger.Info("no roof registry file, keeping stored roofs", "path", roofsPath)
	default:
		s.logger.Warn("roof registry not mirrored, keeping stored roofs", "path", roofsPath, "error", err)
	}
	return s, nil
}

// SyncRegistry replaces the stored registry with the contents of the
// registry file. The stored copy is untouched when the file cannot be read.
func (s *SQLiteStore) SyncRegistry(ctx context.Context) error {
	reg, err := LoadRegistry(s.roofsPath)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM roofs"); err != nil {
		return fmt.Errorf("clearing roofs: %w", err)
	}
	for i, r := range reg.Roofs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO roofs (position, name, url) VALUES (?, ?, ?)",
			i, r.Name, r.URL,
		); err != nil {
			return fmt.Errorf("inserting roof %q: %w", r.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM registry_location"); err != nil {
		return fmt.Errorf("clearing registry location: %w", err)
	}
	if loc := reg.Location; loc != nil {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO registry_location (id, latitude, longitude, timezone) VALUES (1, ?, ?, ?)",
			loc.Latitude, loc.Longitude, loc.Timezone,
		); err != nil {
			return fmt.Errorf("storing registry location: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing registry: %w", err)
	}
	s.logger.Info("roof registry mirrored", "roofs", len(reg.Roofs))
	return nil
}

// Load returns the stored settings, or defaults when none are stored or the
// query fails.
func (s *SQLiteStore) Load(ctx context.Context) safety.Settings {
	set, err := s.readSettings(ctx)
	if err != nil {
		s.warnOnce("reading settings failed, using defaults", err)
		set = safety.DefaultSettings()
	}

	if populateCoordinates(&set, s.Registry(ctx)) {
		if err := s.Save(ctx, set); err != nil {
			s.logger.Warn("persisting auto-populated coordinates failed", "error", err)
		} else {
			s.logger.Info("observatory coordinates populated from roof registry",
				"latitude", set.ObservatoryLatitude,
				"longitude", set.ObservatoryLongitude,
			)
		}
	}
	return set
}

func (s *SQLiteStore) readSettings(ctx context.Context) (safety.Settings, error) {
	set := safety.DefaultSettings()
	err := s.db.QueryRowContext(ctx, `
		SELECT selected_roof_name, manual_override_enabled, manual_override_value,
		       solar_lockout_enabled, max_solar_altitude,
		       observatory_latitude, observatory_longitude, observatory_timezone
		FROM settings WHERE id = 1`,
	).Scan(
		&set.SelectedRoofName,
		&set.ManualOverrideEnabled,
		&set.ManualOverrideValue,
		&set.SolarLockoutEnabled,
		&set.MaxSolarAltitude,
		&set.ObservatoryLatitude,
		&set.ObservatoryLongitude,
		&set.ObservatoryTimezone,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return safety.DefaultSettings(), nil
	}
	if err != nil {
		return safety.Settings{}, fmt.Errorf("querying settings: %w", err)
	}
	return set, nil
}

// Save upserts the settings row.
func (s *SQLiteStore) Save(ctx context.Context, set safety.Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (
			id, selected_roof_name, manual_override_enabled, manual_override_value,
			solar_lockout_enabled, max_solar_altitude,
			observatory_latitude, observatory_longitude, observatory_timezone, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			selected_roof_name      = excluded.selected_roof_name,
			manual_override_enabled = excluded.manual_override_enabled,
			manual_override_value   = excluded.manual_override_value,
			solar_lockout_enabled   = excluded.solar_lockout_enabled,
			max_solar_altitude      = excluded.max_solar_altitude,
			observatory_latitude    = excluded.observatory_latitude,
			observatory_longitude   = excluded.observatory_longitude,
			observatory_timezone    = excluded.observatory_timezone,
			updated_at              = excluded.updated_at`,
		set.SelectedRoofName,
		set.ManualOverrideEnabled,
		set.ManualOverrideValue,
		set.SolarLockoutEnabled,
		set.MaxSolarAltitude,
		set.ObservatoryLatitude,
		set.ObservatoryLongitude,
		set.ObservatoryTimezone,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Registry returns the mirrored registry, empty on query failure.
func (s *SQLiteStore) Registry(ctx context.Context) safety.Registry {
	reg, err := s.readRegistry(ctx)
	if err != nil {
		s.warnOnce("reading roof registry failed, no roofs configured", err)
		return safety.Registry{Roofs: []safety.RoofConfig{}}
	}
	return reg
}

func (s *SQLiteStore) readRegistry(ctx context.Context) (safety.Registry, error) {
	roofs, err := s.readRoofs(ctx)
	if err != nil {
		return safety.Registry{}, err
	}
	reg := safety.Registry{Roofs: roofs}

	var loc safety.LocationInfo
	err = s.db.QueryRowContext(ctx,
		"SELECT latitude, longitude, timezone FROM registry_location WHERE id = 1",
	).Scan(&loc.Latitude, &loc.Longitude, &loc.Timezone)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return safety.Registry{}, fmt.Errorf("querying registry location: %w", err)
	default:
		reg.Location = &loc
	}
	return reg, nil
}

// readRoofs must release its connection before the caller queries again:
// the pool holds a single connection.
func (s *SQLiteStore) readRoofs(ctx context.Context) ([]safety.RoofConfig, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, url FROM roofs ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("querying roofs: %w", err)
	}
	defer rows.Close()

	roofs := []safety.RoofConfig{}
	for rows.Next() {
		var r safety.RoofConfig
		if err := rows.Scan(&r.Name, &r.URL); err != nil {
			return nil, fmt.Errorf("scanning roof: %w", err)
		}
		roofs = append(roofs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roofs: %w", err)
	}
	return roofs, nil
}

// HealthCheck pings the underlying database.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

func (s *SQLiteStore) warnOnce(msg string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastWarn == err.Error() {
		return
	}
	s.lastWarn = err.Error()
	s.logger.Warn(msg, "error", err)
}

// isMissing reports whether err means the registry file does not exist.
func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
