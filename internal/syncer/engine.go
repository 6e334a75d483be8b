package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/five82/reformer/internal/kv"
	"github.com/five82/reformer/internal/notify"
	"github.com/five82/reformer/internal/prefs"
	"github.com/five82/reformer/internal/queue"
	"github.com/five82/reformer/internal/remote"
	"github.com/five82/reformer/internal/state"
)

// LastSyncKey holds the time of the last successful reconciliation.
const LastSyncKey = "last_sync_time"

const (
	defaultInterval       = 30 * time.Second
	defaultRequestTimeout = 15 * time.Second
)

var (
	ErrNotSignedIn    = errors.New("not signed in")
	ErrOffline        = errors.New("offline")
	ErrSyncInProgress = errors.New("sync already in progress")
)

// State is the engine's externally visible status.
type State struct {
	IsOnline          bool
	IsSyncing         bool
	LastSyncTime      time.Time // zero when never synced
	HasPendingChanges bool
	UserID            string
}

// Options configure an Engine. Storage and Backend are required.
type Options struct {
	Storage        kv.Storage
	Backend        remote.Backend
	Queue          *queue.Queue
	Notifier       *notify.Notifier
	Logger         *slog.Logger
	Now            func() time.Time
	UserID         string
	Online         bool
	Interval       time.Duration
	RequestTimeout time.Duration

	// ClassPlanKey maps a user id to the class plan's storage key.
	ClassPlanKey func(userID string) string
	// OnRemoteApplied runs after a remote record overwrote local storage.
	OnRemoteApplied func()
	// OnStateChange receives a copy of the state after every transition.
	OnStateChange func(State)
	// OnUserChanged runs when SignIn or SignOut changes the active user,
	// before any pull. The plan store switches documents here.
	OnUserChanged func(userID string)
}

// Engine reconciles the on-device documents with the backend's copy using
// last-writer-wins on the record timestamp.
type Engine struct {
	storage      kv.Storage
	backend      remote.Backend
	queue        *queue.Queue
	notifier     *notify.Notifier
	logger       *slog.Logger
	now          func() time.Time
	interval     time.Duration
	timeout      time.Duration
	classPlanKey func(string) string

	mu              sync.Mutex
	state           State
	pendingGen      uint64
	pulled          bool // a SyncFromCloud succeeded for the current user
	onRemoteApplied func()
	onStateChange   func(State)
	onUserChanged   func(string)
}

// New builds an Engine. The last-sync marker is read from storage.
func New(opts Options) *Engine {
	e := &Engine{
		storage:         opts.Storage,
		backend:         opts.Backend,
		queue:           opts.Queue,
		notifier:        opts.Notifier,
		logger:          opts.Logger,
		now:             opts.Now,
		interval:        opts.Interval,
		timeout:         opts.RequestTimeout,
		classPlanKey:    opts.ClassPlanKey,
		onRemoteApplied: opts.OnRemoteApplied,
		onStateChange:   opts.OnStateChange,
		onUserChanged:   opts.OnUserChanged,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.interval <= 0 {
		e.interval = defaultInterval
	}
	if e.timeout <= 0 {
		e.timeout = defaultRequestTimeout
	}
	if e.classPlanKey == nil {
		e.classPlanKey = state.KeyForUser
	}
	e.state = State{
		IsOnline:     opts.Online,
		LastSyncTime: e.lastSyncMarker(),
		UserID:       strings.TrimSpace(opts.UserID),
	}
	return e
}

// SetOnRemoteApplied replaces the remote-overwrite callback.
func (e *Engine) SetOnRemoteApplied(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRemoteApplied = fn
}

// SetOnUserChanged replaces the user-switch callback.
func (e *Engine) SetOnUserChanged(fn func(userID string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onUserChanged = fn
}

// SetOnStateChange replaces the state observer.
func (e *Engine) SetOnStateChange(fn func(State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStateChange = fn
}

// State returns a copy of the current status.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// MarkPendingChanges records that a local document changed since the last
// successful push.
func (e *Engine) MarkPendingChanges() {
	e.mu.Lock()
	e.pendingGen++
	changed := !e.state.HasPendingChanges
	e.state.HasPendingChanges = true
	e.mu.Unlock()
	if changed {
		e.emit()
	}
}

// SignIn sets the active user and, when online, pulls the remote record.
// Switching to a different user drops the last-sync marker, since it
// described the previous user's record, so that user's remote copy wins.
func (e *Engine) SignIn(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrNotSignedIn
	}
	e.switchUser(userID)
	if !e.State().IsOnline {
		return nil
	}
	return e.SyncFromCloud(ctx, false)
}

// SignOut clears the active user. Local documents are left in place.
func (e *Engine) SignOut() {
	e.switchUser("")
}

func (e *Engine) switchUser(userID string) {
	e.mu.Lock()
	if e.state.UserID == userID {
		e.mu.Unlock()
		return
	}
	e.state.UserID = userID
	e.pulled = false
	e.state.LastSyncTime = time.Time{}
	changed := e.onUserChanged
	e.mu.Unlock()

	if err := e.storage.Remove(LastSyncKey); err != nil {
		e.logger.Warn("clear last sync time failed", "error", err)
	}
	e.logger.Info("active user changed", "user", userID)
	if changed != nil {
		changed(userID)
	}
	e.emit()
}

// SetOnline records a connectivity change. Going from offline to online
// reconciles through SyncFromCloud, so a newer remote record is adopted
// rather than overwritten, and then replays the offline queue.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	e.mu.Lock()
	wasOnline := e.state.IsOnline
	e.state.IsOnline = online
	signedIn := e.state.UserID != ""
	e.mu.Unlock()
	if wasOnline == online {
		return
	}
	e.logger.Info("connectivity changed", "online", online)
	e.emit()
	if !online || !signedIn {
		return
	}
	if err := e.SyncFromCloud(ctx, false); err != nil && !errors.Is(err, ErrSyncInProgress) {
		e.logger.Warn("sync after reconnect failed", "error", err)
	}
	if _, err := e.ProcessQueue(ctx); err != nil {
		e.logger.Warn("queue replay after reconnect failed", "error", err)
	}
}

// SyncNow is the user-invoked sync and reports the outcome as a
// notification either way. It pushes local state, or reconciles first when
// nothing has been pulled for this user yet.
func (e *Engine) SyncNow(ctx context.Context) error {
	var err error
	if e.hasPulled() {
		err = e.SyncToCloud(ctx, true)
	} else {
		err = e.SyncFromCloud(ctx, true)
	}
	switch {
	case errors.Is(err, ErrNotSignedIn):
		e.notifyError("Sign in to sync")
	case errors.Is(err, ErrOffline):
		e.notifyError("Offline: changes will sync when the connection returns")
	case errors.Is(err, ErrSyncInProgress):
		if e.notifier != nil {
			e.notifier.Info("Sync already in progress")
		}
	}
	return err
}

func (e *Engine) hasPulled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pulled
}

func (e *Engine) markPulled(userID string) {
	e.mu.Lock()
	if e.state.UserID == userID {
		e.pulled = true
	}
	e.mu.Unlock()
}

// SyncToCloud upserts both local documents to the backend with synced_at set
// to now. On failure pending changes stay flagged for the next attempt.
func (e *Engine) SyncToCloud(ctx context.Context, showToast bool) error {
	userID, err := e.begin()
	if err != nil {
		return err
	}
	defer e.end()
	return e.push(ctx, userID, showToast)
}

// SyncFromCloud fetches the backend record and applies last-writer-wins:
// the remote copy replaces both local documents only when its synced_at is
// strictly after the local last-sync marker. Otherwise local is pushed. A
// missing remote record is a first sync and also pushes.
func (e *Engine) SyncFromCloud(ctx context.Context, showToast bool) error {
	userID, err := e.begin()
	if err != nil {
		return err
	}
	defer e.end()

	fetchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	record, err := e.backend.FetchRecord(fetchCtx, userID)
	cancel()
	if errors.Is(err, remote.ErrNotFound) {
		e.logger.Info("no remote record, pushing local copy", "user", userID)
		if err := e.push(ctx, userID, showToast); err != nil {
			return err
		}
		e.markPulled(userID)
		return nil
	}
	if err != nil {
		e.logger.Warn("fetch remote record failed", "user", userID, "error", err)
		if showToast {
			e.notifyError("Couldn't load from cloud")
		}
		return fmt.Errorf("fetch remote record: %w", err)
	}

	marker := e.lastSyncMarker()
	if !record.SyncedAt.After(marker) {
		e.logger.Debug("local copy is current, pushing", "remote_synced_at", record.SyncedAt, "last_sync", marker)
		if err := e.push(ctx, userID, showToast); err != nil {
			return err
		}
		e.markPulled(userID)
		return nil
	}

	if err := e.apply(userID, record); err != nil {
		e.logger.Error("apply remote record failed", "user", userID, "error", err)
		return err
	}
	e.logger.Info("remote copy applied", "user", userID, "synced_at", record.SyncedAt)

	e.mu.Lock()
	e.state.LastSyncTime = record.SyncedAt
	e.state.HasPendingChanges = false
	if e.state.UserID == userID {
		e.pulled = true
	}
	applied := e.onRemoteApplied
	e.mu.Unlock()
	if applied != nil {
		applied()
	}
	if showToast && e.notifier != nil {
		e.notifier.Success("Loaded latest from cloud")
	}
	return nil
}

// ProcessQueue replays queued mutations while signed in and online.
func (e *Engine) ProcessQueue(ctx context.Context) (queue.Result, error) {
	if e.queue == nil {
		return queue.Result{}, nil
	}
	st := e.State()
	if st.UserID == "" {
		return queue.Result{}, ErrNotSignedIn
	}
	if !st.IsOnline {
		return queue.Result{}, ErrOffline
	}
	res, err := e.queue.Process(ctx, func(ctx context.Context, item queue.Item) error {
		replayCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return e.backend.ReplayMutation(replayCtx, st.UserID, remote.Mutation{
			ID:        item.ID,
			Type:      string(item.Type),
			Action:    string(item.Action),
			Data:      item.Data,
			Timestamp: item.Timestamp,
		})
	})
	if res.Replayed > 0 || res.Failed > 0 || res.DeadLettered > 0 {
		e.logger.Info("queue replay finished",
			"replayed", res.Replayed, "failed", res.Failed, "deferred", res.Deferred, "dead", res.DeadLettered)
	}
	return res, err
}

// Run drives the periodic sync until ctx is cancelled. When signed in and
// online it first pulls the remote record.
func (e *Engine) Run(ctx context.Context) {
	if st := e.State(); st.UserID != "" && st.IsOnline {
		if err := e.SyncFromCloud(ctx, false); err != nil {
			e.logger.Warn("initial sync failed", "error", err)
		}
	}
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	st := e.State()
	if st.UserID == "" || !st.IsOnline {
		return
	}
	switch {
	case !e.hasPulled():
		// The startup pull failed or never ran; reconcile before pushing.
		if err := e.SyncFromCloud(ctx, false); err != nil && !errors.Is(err, ErrSyncInProgress) {
			e.logger.Debug("periodic reconcile failed", "error", err)
		}
	case st.HasPendingChanges:
		if err := e.SyncToCloud(ctx, false); err != nil && !errors.Is(err, ErrSyncInProgress) {
			e.logger.Debug("periodic sync failed", "error", err)
		}
	}
	if _, err := e.ProcessQueue(ctx); err != nil {
		e.logger.Debug("periodic queue replay failed", "error", err)
	}
}

// begin is the reentrancy guard: it checks preconditions and claims the
// syncing flag in one critical section.
func (e *Engine) begin() (string, error) {
	e.mu.Lock()
	switch {
	case e.state.UserID == "":
		e.mu.Unlock()
		return "", ErrNotSignedIn
	case !e.state.IsOnline:
		e.mu.Unlock()
		return "", ErrOffline
	case e.state.IsSyncing:
		e.mu.Unlock()
		return "", ErrSyncInProgress
	}
	e.state.IsSyncing = true
	userID := e.state.UserID
	e.mu.Unlock()
	e.emit()
	return userID, nil
}

func (e *Engine) end() {
	e.mu.Lock()
	e.state.IsSyncing = false
	e.mu.Unlock()
	e.emit()
}

// push must run with the syncing flag held.
func (e *Engine) push(ctx context.Context, userID string, showToast bool) error {
	e.mu.Lock()
	gen := e.pendingGen
	e.mu.Unlock()

	classPlan := e.readDocument(e.classPlanKey(userID))
	preferences := e.readDocument(prefs.StorageKey)
	syncedAt := e.now().UTC()

	pushCtx, cancel := context.WithTimeout(ctx, e.timeout)
	err := e.backend.UpsertRecord(pushCtx, remote.SyncRecord{
		UserID:      userID,
		ClassPlan:   classPlan,
		Preferences: preferences,
		SyncedAt:    syncedAt,
	})
	cancel()
	if err != nil {
		e.logger.Warn("push to backend failed", "user", userID, "error", err)
		e.enqueue(ctx, classPlan, preferences)
		if showToast {
			e.notifyError("Sync failed")
		}
		return fmt.Errorf("push record: %w", err)
	}

	if err := e.storage.Set(LastSyncKey, syncedAt.Format(time.RFC3339Nano)); err != nil {
		e.logger.Error("persist last sync time failed", "error", err)
	}
	e.mu.Lock()
	e.state.LastSyncTime = syncedAt
	// An edit made while the push was in flight keeps the flag set.
	if e.pendingGen == gen {
		e.state.HasPendingChanges = false
	}
	e.mu.Unlock()
	e.logger.Info("pushed to backend", "user", userID, "synced_at", syncedAt)
	if showToast && e.notifier != nil {
		e.notifier.Success("Class plan synced")
	}
	return nil
}

// apply overwrites both local documents with the remote ones and advances
// the marker. It is all or nothing: on any write failure the previous
// values are put back and the error is returned.
func (e *Engine) apply(userID string, record *remote.SyncRecord) error {
	writes := []struct {
		key string
		raw json.RawMessage
	}{
		{e.classPlanKey(userID), record.ClassPlan},
		{prefs.StorageKey, record.Preferences},
		{LastSyncKey, json.RawMessage(record.SyncedAt.UTC().Format(time.RFC3339Nano))},
	}

	saved := make([]storedValue, 0, len(writes))
	for _, w := range writes {
		value, ok, err := e.storage.Get(w.key)
		if err != nil {
			return fmt.Errorf("read %s before overwrite: %w", w.key, err)
		}
		saved = append(saved, storedValue{key: w.key, value: value, ok: ok})
	}

	for i, w := range writes {
		if err := e.writeDocument(w.key, w.raw); err != nil {
			e.restore(saved[:i+1])
			return fmt.Errorf("write %s: %w", w.key, err)
		}
	}
	return nil
}

// storedValue is a key's content before apply touched it.
type storedValue struct {
	key   string
	value string
	ok    bool
}

func (e *Engine) restore(saved []storedValue) {
	for _, sv := range saved {
		var err error
		if sv.ok {
			err = e.storage.Set(sv.key, sv.value)
		} else {
			err = e.storage.Remove(sv.key)
		}
		if err != nil {
			e.logger.Error("restore local document failed", "key", sv.key, "error", err)
		}
	}
}

func (e *Engine) writeDocument(key string, raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return e.storage.Remove(key)
	}
	return e.storage.Set(key, string(raw))
}

func (e *Engine) readDocument(key string) json.RawMessage {
	raw, ok, err := e.storage.Get(key)
	if err != nil {
		e.logger.Warn("read local document failed", "key", key, "error", err)
		return nil
	}
	if !ok || !json.Valid([]byte(raw)) {
		return nil
	}
	return json.RawMessage(raw)
}

// enqueue records the failed push as per-document intents. An older pending
// intent of the same type is replaced so the queue holds the latest copy.
func (e *Engine) enqueue(ctx context.Context, classPlan, preferences json.RawMessage) {
	if e.queue == nil {
		return
	}
	intents := []struct {
		typ  queue.Type
		data json.RawMessage
	}{
		{queue.TypeClassPlan, classPlan},
		{queue.TypePreferences, preferences},
	}
	for _, intent := range intents {
		existing, err := e.queue.ByType(ctx, intent.typ)
		if err != nil {
			e.logger.Warn("read queue failed", "type", intent.typ, "error", err)
			continue
		}
		for _, item := range existing {
			if err := e.queue.Remove(ctx, item.ID); err != nil && !errors.Is(err, queue.ErrNotFound) {
				e.logger.Warn("drop superseded queue item failed", "id", item.ID, "error", err)
			}
		}
		action := queue.ActionUpdate
		if intent.data == nil {
			action = queue.ActionDelete
		}
		if _, err := e.queue.Add(ctx, intent.typ, action, intent.data); err != nil {
			e.logger.Warn("enqueue failed push", "type", intent.typ, "error", err)
		}
	}
}

func (e *Engine) lastSyncMarker() time.Time {
	raw, ok, err := e.storage.Get(LastSyncKey)
	if err != nil || !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		e.logger.Warn("ignoring malformed last sync time", "value", raw)
		return time.Time{}
	}
	return t
}

func (e *Engine) notifyError(msg string) {
	if e.notifier != nil {
		e.notifier.Error(msg)
	}
}

func (e *Engine) emit() {
	e.mu.Lock()
	fn := e.onStateChange
	st := e.state
	e.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}
