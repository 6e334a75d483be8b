package app

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/five82/reformer/internal/backend"
	"github.com/five82/reformer/internal/config"
	"github.com/five82/reformer/internal/logtail"
	"github.com/five82/reformer/internal/state"
)

func testConfig(t *testing.T, backendURL string) config.Config {
	t.Helper()
	return config.Config{
		BackendURL:       backendURL,
		DataDir:          t.TempDir(),
		UserID:           "instructor-1",
		SyncInterval:     time.Hour,
		RequestTimeout:   2 * time.Second,
		QueueMaxAttempts: 3,
	}
}

func buildServices(t *testing.T, cfg config.Config, offline bool) *services {
	t.Helper()
	svc, err := build(context.Background(), cfg, offline, slog.Default())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestBuild_TwoDevicesShareThroughBackend(t *testing.T) {
	store, err := backend.OpenSQLite(filepath.Join(t.TempDir(), "backend.db"), false)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	server := httptest.NewServer(backend.Router(store, nil))
	t.Cleanup(server.Close)
	ctx := context.Background()

	first := buildServices(t, testConfig(t, server.URL), false)
	if !first.engine.State().IsOnline || first.monitor == nil {
		t.Fatalf("device with reachable backend should start online with a monitor")
	}

	first.plans.UpdateClassName("Monday Class")
	first.prefs.SetTheme("Kanagawa")
	if !first.engine.State().HasPendingChanges {
		t.Fatalf("store edits did not flag pending changes")
	}
	if err := first.engine.SyncToCloud(ctx, false); err != nil {
		t.Fatalf("SyncToCloud: %v", err)
	}
	if st := first.engine.State(); st.HasPendingChanges || st.LastSyncTime.IsZero() {
		t.Fatalf("state after push = %#v", st)
	}

	second := buildServices(t, testConfig(t, server.URL), false)
	if err := second.engine.SyncFromCloud(ctx, false); err != nil {
		t.Fatalf("SyncFromCloud: %v", err)
	}
	if got := second.plans.Snapshot().Name; got != "Monday Class" {
		t.Fatalf("second device plan = %q, want Monday Class", got)
	}
	if got := second.prefs.Get().Theme; got != "Kanagawa" {
		t.Fatalf("second device theme = %q, want Kanagawa", got)
	}
	if second.engine.State().HasPendingChanges {
		t.Fatalf("applying the remote record must not flag pending changes")
	}
}

func TestBuild_OfflineModeStaysLocal(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Theme = "Slate"
	svc := buildServices(t, cfg, true)

	if svc.monitor != nil {
		t.Fatalf("offline mode must not start a monitor")
	}
	if svc.engine.State().IsOnline {
		t.Fatalf("offline mode started online")
	}
	if got := svc.prefs.Get().Theme; got != "Slate" {
		t.Fatalf("theme = %q, want config theme Slate", got)
	}

	svc.plans.UpdateClassName("Offline Class")
	if !svc.engine.State().HasPendingChanges {
		t.Fatalf("edit did not flag pending changes")
	}

	reopened := buildServices(t, cfg, true)
	if got := reopened.plans.Snapshot().Name; got != "Offline Class" {
		t.Fatalf("plan after reopen = %q, want Offline Class", got)
	}
}

func TestBuild_SignInSwitchesPlanDocument(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	svc := buildServices(t, cfg, true)
	svc.plans.UpdateClassName("Before Sign In")

	if err := svc.engine.SignIn(context.Background(), "u2"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got, want := svc.plans.StorageKey(), state.KeyForUser("u2"); got != want {
		t.Fatalf("plan key = %q, want %q", got, want)
	}
	if got := svc.plans.Snapshot().Name; got == "Before Sign In" {
		t.Fatalf("previous user's plan leaked into u2")
	}

	svc.engine.SignOut()
	if got, want := svc.plans.StorageKey(), state.KeyForUser(""); got != want {
		t.Fatalf("plan key after sign out = %q, want %q", got, want)
	}
}

func TestOpenLog_WritesTextRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reformer.log")
	logger, closer, err := openLog(path, false)
	if err != nil {
		t.Fatalf("openLog: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("sync finished", "user", "instructor-1")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines, err := logtail.Read(path, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("lines = %q, want one INFO line", lines)
	}
	entry := logtail.Parse(lines[0])
	if entry.Message != "sync finished" || entry.Level != slog.LevelInfo || !strings.Contains(lines[0], "user=instructor-1") {
		t.Fatalf("entry = %#v", entry)
	}
}
