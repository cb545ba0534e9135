package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/skyroof/safetymonitor/internal/safety"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// FileStore keeps settings in a JSON file next to a read-only roofs.json
// registry. Both files are re-read on every call so external edits apply
// without a restart.
//
// A missing or corrupt file reads as defaults; the problem is logged once
// per distinct cause rather than on every read.
type FileStore struct {
	settingsPath string
	roofsPath    string
	logger       Logger

	mu       sync.Mutex // serialises writes and guards lastWarn
	lastWarn map[string]string
}

// NewFileStore creates a store over the two files. Neither needs to exist.
func NewFileStore(settingsPath, roofsPath string, opts ...Option) *FileStore {
	o := applyOptions(opts)
	return &FileStore{
		settingsPath: settingsPath,
		roofsPath:    roofsPath,
		logger:       o.logger,
		lastWarn:     make(map[string]string),
	}
}

// Load returns the persisted settings, defaults when the file is missing or
// unreadable. Unset coordinates are filled from the registry location and
// persisted best-effort.
func (f *FileStore) Load(ctx context.Context) safety.Settings {
	s := f.readSettings()

	if populateCoordinates(&s, f.Registry(ctx)) {
		if err := f.Save(ctx, s); err != nil {
			f.logger.Warn("persisting auto-populated coordinates failed", "error", err)
		} else {
			f.logger.Info("observatory coordinates populated from roof registry",
				"latitude", s.ObservatoryLatitude,
				"longitude", s.ObservatoryLongitude,
				"timezone", s.ObservatoryTimezone,
			)
		}
	}
	return s
}

func (f *FileStore) readSettings() safety.Settings {
	s := safety.DefaultSettings()

	data, err := os.ReadFile(f.settingsPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		f.clearWarn("settings")
		return s
	case err != nil:
		f.warnOnce("settings", "reading settings file failed, using defaults", err)
		return safety.DefaultSettings()
	}

	if err := json.Unmarshal(data, &s); err != nil {
		f.warnOnce("settings", "settings file is corrupt, using defaults", err)
		return safety.DefaultSettings()
	}
	f.clearWarn("settings")
	return s
}

// Save writes settings atomically (temp file then rename), creating the
// directory when needed.
func (f *FileStore) Save(_ context.Context, s safety.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding: %w", ErrPersist, err)
	}

	dir := filepath.Dir(f.settingsPath)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrPersist, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("%w: writing: %w", ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := os.Rename(tmpName, f.settingsPath); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Registry returns the roof registry, empty when the file is missing or
// malformed.
func (f *FileStore) Registry(context.Context) safety.Registry {
	reg, err := LoadRegistry(f.roofsPath)
	if err != nil {
		f.warnOnce("registry", "roof registry unavailable, no roofs configured", err)
		return safety.Registry{Roofs: []safety.RoofConfig{}}
	}
	f.clearWarn("registry")
	return reg
}

func (f *FileStore) warnOnce(key, msg string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastWarn[key] == err.Error() {
		return
	}
	f.lastWarn[key] = err.Error()
	f.logger.Warn(msg, "error", err)
}

func (f *FileStore) clearWarn(key string) {
	f.mu.Lock()
	delete(f.lastWarn, key)
	f.mu.Unlock()
}
