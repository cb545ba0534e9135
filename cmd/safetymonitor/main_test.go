package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skyroof/safetymonitor/internal/auth"
	"github.com/skyroof/safetymonitor/internal/infrastructure/config"
	"github.com/skyroof/safetymonitor/internal/infrastructure/logging"
	"github.com/skyroof/safetymonitor/internal/safety"
	"github.com/skyroof/safetymonitor/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func writeTestConfig(t *testing.T, port int, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
site:
  id: test-site
  name: Test Roll-off
api:
  host: "127.0.0.1"
  port: %d
discovery:
  enabled: false
settings:
  backend: file
  settings_file: %q
  roofs_file: %q
database:
  path: %q
monitor:
  enabled: true
  interval: 1
logging:
  level: error
  format: text
  output: stdout
%s`, port,
		filepath.Join(dir, "settings.json"),
		filepath.Join(dir, "roofs.json"),
		filepath.Join(dir, "settings.db"),
		extra)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with an explicit missing config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv(configEnv, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_ServesUntilCancelled starts the full stack on the file backend and
// stops it through the context.
func TestRun_ServesUntilCancelled(t *testing.T) {
	port := freePort(t)
	t.Setenv(configEnv, writeTestConfig(t, port, ""))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/safetymonitor/0/issafe", port)
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("issafe status = %d, want 200", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(configEnv, "")
	if path, explicit := getConfigPath(); path != config.DefaultPath || explicit {
		t.Errorf("getConfigPath() = %q, %v; want default", path, explicit)
	}

	t.Setenv(configEnv, "/etc/safetymonitor/config.yaml")
	if path, explicit := getConfigPath(); path != "/etc/safetymonitor/config.yaml" || !explicit {
		t.Errorf("getConfigPath() = %q, %v; want explicit path", path, explicit)
	}
}

func TestOpenStore_SQLite(t *testing.T) {
	t.Setenv(configEnv, writeTestConfig(t, 11111, ""))
	cfg, err := loadConfig(logging.Discard())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	cfg.Settings.Backend = config.BackendSQLite

	ctx := context.Background()
	store, db, err := openStore(ctx, cfg, logging.Discard())
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	defer db.Close()

	// The store migrates the database itself; openStore adds no second pass.
	applied, pending, err := db.MigrationStatus(ctx, migrations.FS, migrations.Dir)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 0 || len(applied) == 0 {
		t.Errorf("migrations applied = %d pending = %d, want all applied", len(applied), len(pending))
	}

	want := safety.DefaultSettings()
	want.SelectedRoofName = "North"
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got := store.Load(ctx); got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestOpenStore_File(t *testing.T) {
	t.Setenv(configEnv, writeTestConfig(t, 11111, ""))
	cfg, err := loadConfig(logging.Discard())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	store, db, err := openStore(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	if db != nil {
		t.Error("file backend should not open a database")
	}
	if got := store.Load(context.Background()); got != safety.DefaultSettings() {
		t.Errorf("Load() = %+v, want defaults", got)
	}
}

func TestRunToken(t *testing.T) {
	t.Setenv(configEnv, writeTestConfig(t, 11111, "security:\n  jwt:\n    secret: \""+testSecret+"\"\n"))

	var out bytes.Buffer
	if err := runToken([]string{"dome-operator"}, &out); err != nil {
		t.Fatalf("runToken() error = %v", err)
	}

	signer, err := auth.NewSigner(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	claims, err := signer.Parse(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != "dome-operator" || claims.Role != auth.RoleOperator {
		t.Errorf("claims = %s/%s, want dome-operator/operator", claims.Subject, claims.Role)
	}
}

func TestRunToken_Errors(t *testing.T) {
	t.Setenv(configEnv, writeTestConfig(t, 11111, ""))
	t.Setenv("SAFETYMONITOR_JWT_SECRET", "")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "no subject", args: nil},
		{name: "too many args", args: []string{"a", "operator", "x"}},
		{name: "invalid role", args: []string{"a", "admin"}, wantErr: auth.ErrInvalidRole},
		{name: "no secret", args: []string{"a", "observer"}, wantErr: auth.ErrNoSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runToken(tt.args, &bytes.Buffer{})
			if err == nil {
				t.Fatal("runToken() expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("runToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
