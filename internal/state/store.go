package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/five82/reformer/internal/history"
	"github.com/five82/reformer/internal/kv"
	"github.com/five82/reformer/internal/plan"
)

const (
	classPlanKeyPrefix = "classPlan_"
	anonymousUser      = "anonymous"
	defaultHistorySize = 100
)

// KeyForUser returns the storage key holding userID's class plan. An empty
// userID maps to the anonymous key. The id is path-escaped so ids such as
// "team/alice" still name a single storage entry.
func KeyForUser(userID string) string {
	id := strings.TrimSpace(userID)
	if id == "" {
		id = anonymousUser
	}
	return classPlanKeyPrefix + url.PathEscape(id)
}

// Options configure a Store.
type Options struct {
	Storage      kv.Storage
	UserID       string
	Logger       *slog.Logger
	Now          func() time.Time
	HistoryLimit int    // zero uses the default; negative disables the cap
	OnChange     func() // called after every mutation, outside the lock
}

// Store owns the in-memory class plan and mirrors each change to storage.
type Store struct {
	mu       sync.RWMutex
	storage  kv.Storage
	userID   string
	logger   *slog.Logger
	now      func() time.Time
	history  *history.History[plan.ClassPlan]
	onChange func()
}

// New builds a Store and loads the user's plan from storage. A missing or
// unreadable document yields a fresh empty plan.
func New(opts Options) *Store {
	s := &Store{
		storage:  opts.Storage,
		userID:   strings.TrimSpace(opts.UserID),
		logger:   opts.Logger,
		now:      opts.Now,
		onChange: opts.OnChange,
	}
	if s.storage == nil {
		s.storage = kv.NewMemoryStorage()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.history = history.New(s.loadLocked())
	switch {
	case opts.HistoryLimit > 0:
		s.history.Limit = opts.HistoryLimit
	case opts.HistoryLimit == 0:
		s.history.Limit = defaultHistorySize
	}
	return s
}

// SetOnChange replaces the mutation callback.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// UserID returns the user whose plan is loaded; empty means anonymous.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// StorageKey returns the key the current plan is persisted under.
func (s *Store) StorageKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return KeyForUser(s.userID)
}

// Snapshot returns a deep copy of the current plan.
func (s *Store) Snapshot() plan.ClassPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Present().Clone()
}

// AddExercise appends a deep copy of ex. The caller must have minted a
// unique id; no collision check is made.
func (s *Store) AddExercise(ex plan.Exercise) {
	s.mutate("add exercise", func(p *plan.ClassPlan) bool {
		p.Exercises = append(p.Exercises, ex.Clone())
		return true
	})
}

// RemoveExercise drops the entry with id. A missing id is a no-op.
func (s *Store) RemoveExercise(id string) {
	s.mutate("remove exercise", func(p *plan.ClassPlan) bool {
		idx := plan.IndexOf(p.Exercises, id)
		if idx < 0 {
			return false
		}
		p.Exercises = append(p.Exercises[:idx], p.Exercises[idx+1:]...)
		return true
	})
}

// ReorderExercises replaces the entry list with ordered. The caller supplies
// a permutation of the current entries; nothing is validated.
func (s *Store) ReorderExercises(ordered []plan.Exercise) {
	s.mutate("reorder exercises", func(p *plan.ClassPlan) bool {
		p.Exercises = plan.CloneExercises(ordered)
		if p.Exercises == nil {
			p.Exercises = []plan.Exercise{}
		}
		return true
	})
}

// MoveExercise shifts the entry with id by delta positions, clamped to the
// list bounds.
func (s *Store) MoveExercise(id string, delta int) {
	s.mutate("move exercise", func(p *plan.ClassPlan) bool {
		from := plan.IndexOf(p.Exercises, id)
		if from < 0 || delta == 0 {
			return false
		}
		to := min(max(from+delta, 0), len(p.Exercises)-1)
		if to == from {
			return false
		}
		moved := p.Exercises[from]
		p.Exercises = append(p.Exercises[:from], p.Exercises[from+1:]...)
		p.Exercises = append(p.Exercises[:to], append([]plan.Exercise{moved}, p.Exercises[to:]...)...)
		return true
	})
}

// UpdateExercise replaces the entry whose id matches updated.ID.
func (s *Store) UpdateExercise(updated plan.Exercise) {
	s.mutate("update exercise", func(p *plan.ClassPlan) bool {
		idx := plan.IndexOf(p.Exercises, updated.ID)
		if idx < 0 {
			return false
		}
		p.Exercises[idx] = updated.Clone()
		return true
	})
}

// AddCallout appends a section marker and returns its id.
func (s *Store) AddCallout(name string) string {
	return s.InsertCallout(name, -1)
}

// InsertCallout places a section marker at index, or appends it when index
// is negative or past the end. It returns the new marker's id.
func (s *Store) InsertCallout(name string, index int) string {
	callout := plan.NewCallout(name, s.now())
	s.mutate("add callout", func(p *plan.ClassPlan) bool {
		if index < 0 || index >= len(p.Exercises) {
			p.Exercises = append(p.Exercises, callout)
			return true
		}
		p.Exercises = append(p.Exercises[:index], append([]plan.Exercise{callout}, p.Exercises[index:]...)...)
		return true
	})
	return callout.ID
}

func (s *Store) UpdateClassName(name string) {
	s.mutate("update name", func(p *plan.ClassPlan) bool {
		p.Name = name
		return true
	})
}

func (s *Store) UpdateClassDuration(minutes int) {
	s.mutate("update class duration", func(p *plan.ClassPlan) bool {
		p.ClassDuration = minutes
		return true
	})
}

func (s *Store) UpdateClassImage(image string) {
	s.mutate("update image", func(p *plan.ClassPlan) bool {
		p.Image = image
		return true
	})
}

func (s *Store) UpdateClassNotes(notes string) {
	s.mutate("update notes", func(p *plan.ClassPlan) bool {
		p.Notes = notes
		return true
	})
}

// ClearClassPlan resets to an empty plan and deletes the stored document so
// a later load cannot bring the old plan back.
func (s *Store) ClearClassPlan() {
	s.mu.Lock()
	s.history.Reset(plan.New(s.now()))
	key := KeyForUser(s.userID)
	if err := s.storage.Remove(key); err != nil {
		s.logger.Warn("clear class plan: remove failed", "key", key, "error", err)
	}
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// LoadClassPlan replaces the current plan wholesale, used when opening a
// saved or duplicated class. History starts over.
func (s *Store) LoadClassPlan(p plan.ClassPlan) {
	next := p.Clone()
	if next.Exercises == nil {
		next.Exercises = []plan.Exercise{}
	}
	next.Recompute()

	s.mu.Lock()
	s.history.Reset(next)
	s.persistLocked(next)
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// DuplicateClassPlan replaces the current plan with an unsaved copy whose
// entries all carry fresh ids.
func (s *Store) DuplicateClassPlan() {
	s.LoadClassPlan(plan.Duplicate(s.Snapshot(), s.now()))
}

// Undo restores the previous plan. It reports false when there is none.
func (s *Store) Undo() bool {
	return s.step("undo", (*history.History[plan.ClassPlan]).Undo)
}

// Redo re-applies an undone change. It reports false when there is none.
func (s *Store) Redo() bool {
	return s.step("redo", (*history.History[plan.ClassPlan]).Redo)
}

func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanUndo()
}

func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanRedo()
}

// Reload re-reads the stored document, dropping history. The sync engine
// calls it after a newer remote copy overwrote storage.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Reset(s.loadLocked())
}

// SwitchUser loads userID's plan. Plans never leak between users.
func (s *Store) SwitchUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = strings.TrimSpace(userID)
	s.history.Reset(s.loadLocked())
}

func (s *Store) step(action string, move func(*history.History[plan.ClassPlan]) bool) bool {
	s.mu.Lock()
	if !move(s.history) {
		s.mu.Unlock()
		return false
	}
	s.persistLocked(s.history.Present())
	notify := s.onChange
	s.mu.Unlock()

	s.logger.Debug("class plan "+action, "key", s.StorageKey())
	if notify != nil {
		notify()
	}
	return true
}

// mutate applies fn to a copy of the present plan. fn reports whether it
// changed anything; unchanged plans are not recorded or persisted.
func (s *Store) mutate(action string, fn func(p *plan.ClassPlan) bool) {
	s.mu.Lock()
	next := s.history.Present().Clone()
	if !fn(&next) {
		s.mu.Unlock()
		return
	}
	next.Recompute()
	s.history.Set(next)
	s.persistLocked(next)
	notify := s.onChange
	s.mu.Unlock()

	s.logger.Debug("class plan "+action, "exercises", len(next.Exercises), "total_duration", next.TotalDuration)
	if notify != nil {
		notify()
	}
}

// persistLocked writes p under the user's key. Failures are logged and the
// plan stays in memory only.
func (s *Store) persistLocked(p plan.ClassPlan) {
	key := KeyForUser(s.userID)
	raw, err := json.Marshal(p)
	if err != nil {
		s.logger.Warn("persist class plan: encode failed", "key", key, "error", err)
		return
	}
	if err := s.storage.Set(key, string(raw)); err != nil {
		s.logger.Warn("persist class plan: write failed", "key", key, "error", err)
	}
}

func (s *Store) loadLocked() plan.ClassPlan {
	key := KeyForUser(s.userID)
	raw, ok, err := s.storage.Get(key)
	if err != nil {
		s.logger.Warn("load class plan: read failed", "key", key, "error", err)
		return plan.New(s.now())
	}
	if !ok {
		return plan.New(s.now())
	}
	p, err := Decode([]byte(raw))
	if err != nil {
		s.logger.Warn("load class plan: decode failed", "key", key, "error", err)
		return plan.New(s.now())
	}
	return p
}

// Decode parses a stored class plan, filling defaults for fields older
// documents lack and recomputing derived totals.
func Decode(raw []byte) (plan.ClassPlan, error) {
	var p plan.ClassPlan
	if err := json.Unmarshal(raw, &p); err != nil {
		return plan.ClassPlan{}, fmt.Errorf("decode class plan: %w", err)
	}
	if p.Exercises == nil {
		p.Exercises = []plan.Exercise{}
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = plan.DefaultName
	}
	if p.ClassDuration <= 0 {
		p.ClassDuration = plan.DefaultClassDuration
	}
	p.Recompute()
	return p, nil
}
