// Package prefs handles the instructor's preference document.
// Preferences are stored as JSON under a single device-wide storage key.
package prefs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/five82/reformer/internal/kv"
)

// StorageKey is where the preference document lives. It is not scoped by
// user: one device, one set of preferences.
const StorageKey = "userPreferences"

const defaultTheme = "Dracula"

// ExerciseDetail controls which sections an exercise detail view shows.
type ExerciseDetail struct {
	ShowSetup             bool `json:"showSetup"`
	ShowCues              bool `json:"showCues"`
	ShowProgressions      bool `json:"showProgressions"`
	ShowRegressions       bool `json:"showRegressions"`
	ShowContraindications bool `json:"showContraindications"`
	ShowMuscleGroups      bool `json:"showMuscleGroups"`
}

// TeachingMode controls the teaching-mode display.
type TeachingMode struct {
	ShowCues                bool `json:"showCues"`
	ShowNextExercise        bool `json:"showNextExercise"`
	ShowSprings             bool `json:"showSprings"`
	AutoAdvance             bool `json:"autoAdvance"`
	CountdownWarningSeconds int  `json:"countdownWarningSeconds"`
}

// CustomCallout is a user-defined section marker template.
type CustomCallout struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Style string `json:"style"`
}

// UserPreferences is the preference document.
type UserPreferences struct {
	ShowPregnancySafeOnly bool            `json:"showPregnancySafeOnly"`
	DarkMode              bool            `json:"darkMode"`
	Theme                 string          `json:"theme"`
	ExerciseDetail        ExerciseDetail  `json:"exerciseDetailPreferences"`
	TeachingMode          TeachingMode    `json:"teachingModePreferences"`
	FavoriteExercises     []string        `json:"favoriteExercises"`
	HiddenExercises       []string        `json:"hiddenExercises"`
	CustomCallouts        []CustomCallout `json:"customCallouts"`
}

// Defaults returns the preferences used when nothing is stored.
func Defaults() UserPreferences {
	return UserPreferences{
		DarkMode: true,
		Theme:    defaultTheme,
		ExerciseDetail: ExerciseDetail{
			ShowSetup:             true,
			ShowCues:              true,
			ShowProgressions:      true,
			ShowRegressions:       true,
			ShowContraindications: true,
			ShowMuscleGroups:      true,
		},
		TeachingMode: TeachingMode{
			ShowCues:                true,
			ShowNextExercise:        true,
			ShowSprings:             true,
			AutoAdvance:             false,
			CountdownWarningSeconds: 10,
		},
		FavoriteExercises: []string{},
		HiddenExercises:   []string{},
		CustomCallouts:    []CustomCallout{},
	}
}

// Clone returns a copy that shares no slices with p.
func (p UserPreferences) Clone() UserPreferences {
	dup := p
	dup.FavoriteExercises = slices.Clone(p.FavoriteExercises)
	dup.HiddenExercises = slices.Clone(p.HiddenExercises)
	dup.CustomCallouts = slices.Clone(p.CustomCallouts)
	return dup
}

// Decode parses a stored document. Each nested section is decoded on top of
// its defaults, so flags added after a document was saved take their
// default value instead of false.
func Decode(raw []byte) (UserPreferences, error) {
	p := Defaults()
	if err := json.Unmarshal(raw, &p); err != nil {
		return Defaults(), fmt.Errorf("decode preferences: %w", err)
	}
	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = defaultTheme
	}
	if p.TeachingMode.CountdownWarningSeconds < 0 {
		p.TeachingMode.CountdownWarningSeconds = 0
	}
	if p.FavoriteExercises == nil {
		p.FavoriteExercises = []string{}
	}
	if p.HiddenExercises == nil {
		p.HiddenExercises = []string{}
	}
	if p.CustomCallouts == nil {
		p.CustomCallouts = []CustomCallout{}
	}
	return p, nil
}

// Options configure a Store.
type Options struct {
	Storage  kv.Storage
	Logger   *slog.Logger
	OnChange func()
}

// Store owns the preference document and mirrors changes to storage.
type Store struct {
	mu       sync.RWMutex
	storage  kv.Storage
	logger   *slog.Logger
	prefs    UserPreferences
	onChange func()
}

// NewStore loads preferences, falling back to defaults when missing or
// unreadable.
func NewStore(opts Options) *Store {
	s := &Store{storage: opts.Storage, logger: opts.Logger, onChange: opts.OnChange}
	if s.storage == nil {
		s.storage = kv.NewMemoryStorage()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.prefs = s.load()
	return s
}

// SetOnChange replaces the mutation callback.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Get returns a copy of the current preferences.
func (s *Store) Get() UserPreferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Clone()
}

// Update applies fn to a copy of the preferences, then persists it.
func (s *Store) Update(fn func(p *UserPreferences)) {
	s.mu.Lock()
	next := s.prefs.Clone()
	fn(&next)
	s.prefs = next
	s.persistLocked()
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// SetTheme records the UI theme name.
func (s *Store) SetTheme(name string) {
	s.Update(func(p *UserPreferences) { p.Theme = name })
}

// ToggleFavorite flips exerciseID's favorite flag and reports the new state.
func (s *Store) ToggleFavorite(exerciseID string) bool {
	var on bool
	s.Update(func(p *UserPreferences) {
		p.FavoriteExercises, on = toggle(p.FavoriteExercises, exerciseID)
	})
	return on
}

// ToggleHidden flips exerciseID's hidden flag and reports the new state.
func (s *Store) ToggleHidden(exerciseID string) bool {
	var on bool
	s.Update(func(p *UserPreferences) {
		p.HiddenExercises, on = toggle(p.HiddenExercises, exerciseID)
	})
	return on
}

func (s *Store) IsFavorite(exerciseID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.prefs.FavoriteExercises, exerciseID)
}

func (s *Store) IsHidden(exerciseID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.prefs.HiddenExercises, exerciseID)
}

// AddCustomCallout stores a callout template, replacing one with the same id.
func (s *Store) AddCustomCallout(c CustomCallout) {
	s.Update(func(p *UserPreferences) {
		if i := slices.IndexFunc(p.CustomCallouts, func(x CustomCallout) bool { return x.ID == c.ID }); i >= 0 {
			p.CustomCallouts[i] = c
			return
		}
		p.CustomCallouts = append(p.CustomCallouts, c)
	})
}

// RemoveCustomCallout deletes the template with id.
func (s *Store) RemoveCustomCallout(id string) {
	s.Update(func(p *UserPreferences) {
		p.CustomCallouts = slices.DeleteFunc(p.CustomCallouts, func(x CustomCallout) bool { return x.ID == id })
	})
}

// Reload re-reads the stored document. The sync engine calls it after a
// newer remote copy overwrote storage.
func (s *Store) Reload() {
	loaded := s.load()
	s.mu.Lock()
	s.prefs = loaded
	s.mu.Unlock()
}

func (s *Store) load() UserPreferences {
	raw, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		s.logger.Warn("load preferences: read failed", "error", err)
		return Defaults()
	}
	if !ok {
		return Defaults()
	}
	p, err := Decode([]byte(raw))
	if err != nil {
		s.logger.Warn("load preferences: decode failed", "error", err)
		return Defaults()
	}
	return p
}

func (s *Store) persistLocked() {
	raw, err := json.Marshal(s.prefs)
	if err != nil {
		s.logger.Warn("persist preferences: encode failed", "error", err)
		return
	}
	if err := s.storage.Set(StorageKey, string(raw)); err != nil {
		s.logger.Warn("persist preferences: write failed", "error", err)
	}
}

// toggle adds id to set when absent and removes it when present. Order of
// the remaining ids is kept.
func toggle(set []string, id string) ([]string, bool) {
	if slices.Contains(set, id) {
		return slices.DeleteFunc(set, func(x string) bool { return x == id }), false
	}
	return append(set, id), true
}
