package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BackendURL != defaultBackendURL {
		t.Fatalf("BackendURL = %q, want %q", cfg.BackendURL, defaultBackendURL)
	}
	wantDataDir, err := expandPath(defaultDataDir)
	if err != nil {
		t.Fatalf("expandPath(defaultDataDir) returned error: %v", err)
	}
	if cfg.DataDir != wantDataDir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, wantDataDir)
	}
	if cfg.SyncInterval != 30*time.Second || cfg.RequestTimeout != 15*time.Second || cfg.QueueMaxAttempts != 8 {
		t.Fatalf("defaults = %#v", cfg)
	}
	if cfg.UserID != "" {
		t.Fatalf("UserID = %q, want anonymous", cfg.UserID)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
backend_url = "  https://sync.example.com  "
data_dir = "  ~/.reformer  "
user_id = " alice "
sync_interval = "45s"
request_timeout = "5s"
queue_max_attempts = 3
theme = "Nord"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BackendURL != "https://sync.example.com" || cfg.UserID != "alice" || cfg.Theme != "Nord" {
		t.Fatalf("cfg = %#v", cfg)
	}
	if !strings.HasPrefix(cfg.DataDir, home) {
		t.Fatalf("DataDir = %q, want it under HOME %q", cfg.DataDir, home)
	}
	if cfg.SyncInterval != 45*time.Second || cfg.RequestTimeout != 5*time.Second || cfg.QueueMaxAttempts != 3 {
		t.Fatalf("durations = %v %v %d", cfg.SyncInterval, cfg.RequestTimeout, cfg.QueueMaxAttempts)
	}
	if cfg.QueueDBPath() != filepath.Join(cfg.DataDir, "queue.db") {
		t.Fatalf("QueueDBPath = %q", cfg.QueueDBPath())
	}
	if cfg.KVDir() != filepath.Join(cfg.DataDir, "store") {
		t.Fatalf("KVDir = %q", cfg.KVDir())
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
backend_url = "   "
data_dir = ""
sync_interval = ""
queue_max_attempts = 0
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BackendURL != defaultBackendURL || cfg.SyncInterval != defaultSyncInterval || cfg.QueueMaxAttempts != defaultQueueMaxAttempts {
		t.Fatalf("cfg = %#v", cfg)
	}
	wantDataDir, err := expandPath(defaultDataDir)
	if err != nil {
		t.Fatalf("expandPath(defaultDataDir) returned error: %v", err)
	}
	if cfg.DataDir != wantDataDir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, wantDataDir)
	}
}

func TestLoad_InvalidValuesFail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad toml", `backend_url = [`, "parse config"},
		{"bad duration", `sync_interval = "soon"`, "sync_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadBackend(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadBackend(filepath.Join(home, "missing.toml"))
	if err != nil {
		t.Fatalf("LoadBackend: %v", err)
	}
	if cfg.Listen != defaultListen || cfg.Store != StoreSQLite || !strings.HasPrefix(cfg.SQLitePath, home) {
		t.Fatalf("defaults = %#v", cfg)
	}

	path := filepath.Join(t.TempDir(), "backend.toml")
	if err := os.WriteFile(path, []byte(`
listen = ":9000"
store = " Mongo "
mongo_database = "classes"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err = LoadBackend(path)
	if err != nil {
		t.Fatalf("LoadBackend: %v", err)
	}
	if cfg.Listen != ":9000" || cfg.Store != StoreMongo || cfg.MongoDatabase != "classes" || cfg.MongoURI != defaultMongoURI {
		t.Fatalf("cfg = %#v", cfg)
	}

	if err := os.WriteFile(path, []byte(`store = "postgres"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadBackend(path); err == nil {
		t.Fatalf("LoadBackend accepted an unknown store")
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestLogPath_DefaultsWhenDataDirEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var cfg Config
	got := cfg.LogPath()
	if !strings.HasPrefix(got, home) {
		t.Fatalf("LogPath = %q, want it under HOME %q", got, home)
	}
	if !strings.HasSuffix(got, filepath.FromSlash("/reformer.log")) {
		t.Fatalf("LogPath = %q, want it to end with /reformer.log", got)
	}
}
