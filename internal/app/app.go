package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/reformer/internal/config"
	"github.com/five82/reformer/internal/kv"
	"github.com/five82/reformer/internal/notify"
	"github.com/five82/reformer/internal/prefs"
	"github.com/five82/reformer/internal/queue"
	"github.com/five82/reformer/internal/remote"
	"github.com/five82/reformer/internal/state"
	"github.com/five82/reformer/internal/syncer"
	"github.com/five82/reformer/internal/ui"
)

const startupProbeTimeout = 3 * time.Second

// Options configure the reformer application. Non-zero fields override the
// config file.
type Options struct {
	ConfigPath string
	UserID     string
	SyncEvery  int  // seconds; zero uses the config value
	Offline    bool // never contact the backend
	Verbose    bool
}

// services is everything Run wires together.
type services struct {
	cfg      config.Config
	logger   *slog.Logger
	storage  kv.Storage
	queue    *queue.Queue
	plans    *state.Store
	prefs    *prefs.Store
	notifier *notify.Notifier
	engine   *syncer.Engine
	monitor  *syncer.Monitor // nil when offline
}

// Run boots the teaching TUI until the user quits or the context is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.UserID != "" {
		cfg.UserID = opts.UserID
	}
	if opts.SyncEvery > 0 {
		cfg.SyncInterval = time.Duration(opts.SyncEvery) * time.Second
	}

	logger, logFile, err := openLog(cfg.LogPath(), opts.Verbose)
	if err != nil {
		return err
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	svc, err := build(ctx, cfg, opts.Offline, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	startBackground(bgCtx, svc)

	err = ui.Run(ui.Options{
		Context:  ctx,
		Plans:    svc.plans,
		Prefs:    svc.prefs,
		Sync:     svc.engine,
		Notifier: svc.notifier,
		LogPath:  cfg.LogPath(),
	})
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// build opens storage and the queue and connects the stores to the sync
// engine. Store edits flag pending changes; a remote overwrite reloads both
// stores.
func build(ctx context.Context, cfg config.Config, offline bool, logger *slog.Logger) (*services, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	storage, err := kv.NewFileStorage(cfg.KVDir())
	if err != nil {
		return nil, fmt.Errorf("open local storage: %w", err)
	}
	q, err := queue.Open(queue.Options{
		Path:        cfg.QueueDBPath(),
		MaxAttempts: cfg.QueueMaxAttempts,
		Logger:      logger.With("component", "queue"),
	})
	if err != nil {
		return nil, fmt.Errorf("open offline queue: %w", err)
	}
	client, err := remote.NewClient(cfg.BackendURL, cfg.RequestTimeout)
	if err != nil {
		_ = q.Close()
		return nil, fmt.Errorf("init backend client: %w", err)
	}

	svc := &services{
		cfg:      cfg,
		logger:   logger,
		storage:  storage,
		queue:    q,
		notifier: notify.New(notify.DefaultThrottle, nil),
	}
	svc.plans = state.New(state.Options{
		Storage: storage,
		UserID:  cfg.UserID,
		Logger:  logger.With("component", "plans"),
	})
	svc.prefs = prefs.NewStore(prefs.Options{
		Storage: storage,
		Logger:  logger.With("component", "prefs"),
	})
	if cfg.Theme != "" {
		if _, found, _ := storage.Get(prefs.StorageKey); !found {
			svc.prefs.SetTheme(cfg.Theme)
		}
	}

	online := false
	if !offline {
		probeCtx, cancel := context.WithTimeout(ctx, startupProbeTimeout)
		online = client.Ping(probeCtx) == nil
		cancel()
	}
	logger.Info("starting", "user", cfg.UserID, "backend", cfg.BackendURL, "online", online, "offline_mode", offline)

	svc.engine = syncer.New(syncer.Options{
		Storage:        storage,
		Backend:        client,
		Queue:          q,
		Notifier:       svc.notifier,
		Logger:         logger.With("component", "sync"),
		UserID:         cfg.UserID,
		Online:         online,
		Interval:       cfg.SyncInterval,
		RequestTimeout: cfg.RequestTimeout,
		OnRemoteApplied: func() {
			svc.plans.Reload()
			svc.prefs.Reload()
		},
		OnUserChanged: svc.plans.SwitchUser,
	})
	svc.plans.SetOnChange(svc.engine.MarkPendingChanges)
	svc.prefs.SetOnChange(svc.engine.MarkPendingChanges)

	if !offline {
		svc.monitor = syncer.NewMonitor(client, 0, cfg.RequestTimeout, svc.engine.SetOnline, logger.With("component", "monitor"))
	}
	return svc, nil
}

// Close releases the queue database.
func (s *services) Close() error {
	return s.queue.Close()
}

// openLog sends structured logs to a file; the terminal belongs to the UI.
func openLog(path string, verbose bool) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), f, nil
}
