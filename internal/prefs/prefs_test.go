package prefs

import (
	"errors"
	"testing"

	"github.com/five82/reformer/internal/kv"
)

func TestNewStore_MissingDocumentUsesDefaults(t *testing.T) {
	s := NewStore(Options{Storage: kv.NewMemoryStorage()})
	p := s.Get()
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
	if !p.TeachingMode.ShowCues || p.TeachingMode.CountdownWarningSeconds != 10 {
		t.Fatalf("TeachingMode = %#v, want defaults", p.TeachingMode)
	}
}

func TestDecode_MergesNestedDefaults(t *testing.T) {
	// An old document written before showSprings and countdownWarningSeconds existed.
	raw := `{
		"darkMode": false,
		"exerciseDetailPreferences": {"showCues": false},
		"teachingModePreferences": {"showCues": false, "autoAdvance": true},
		"favoriteExercises": ["hundred"]
	}`
	p, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.DarkMode {
		t.Fatalf("DarkMode = true, want stored false")
	}
	if p.ExerciseDetail.ShowCues || !p.ExerciseDetail.ShowSetup || !p.ExerciseDetail.ShowMuscleGroups {
		t.Fatalf("ExerciseDetail = %#v, want stored showCues=false and defaults elsewhere", p.ExerciseDetail)
	}
	if p.TeachingMode.ShowCues || !p.TeachingMode.AutoAdvance {
		t.Fatalf("TeachingMode stored flags lost: %#v", p.TeachingMode)
	}
	if !p.TeachingMode.ShowSprings || p.TeachingMode.CountdownWarningSeconds != 10 {
		t.Fatalf("TeachingMode new flags not defaulted: %#v", p.TeachingMode)
	}
	if len(p.FavoriteExercises) != 1 || p.HiddenExercises == nil || p.CustomCallouts == nil {
		t.Fatalf("lists = %#v / %#v / %#v", p.FavoriteExercises, p.HiddenExercises, p.CustomCallouts)
	}
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want default", p.Theme)
	}
}

func TestDecode_InvalidJSONFallsBackToDefaults(t *testing.T) {
	p, err := Decode([]byte("not json {{{"))
	if err == nil {
		t.Fatalf("Decode returned nil error")
	}
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want default", p.Theme)
	}
}

func TestStore_ToggleFavoriteAndHiddenPersist(t *testing.T) {
	storage := kv.NewMemoryStorage()
	changes := 0
	s := NewStore(Options{Storage: storage, OnChange: func() { changes++ }})

	if !s.ToggleFavorite("hundred") {
		t.Fatalf("ToggleFavorite returned false on first toggle")
	}
	if !s.ToggleHidden("teaser") {
		t.Fatalf("ToggleHidden returned false on first toggle")
	}
	if !s.IsFavorite("hundred") || !s.IsHidden("teaser") {
		t.Fatalf("flags not set")
	}

	reloaded := NewStore(Options{Storage: storage})
	if !reloaded.IsFavorite("hundred") || !reloaded.IsHidden("teaser") {
		t.Fatalf("flags not persisted: %#v", reloaded.Get())
	}

	if s.ToggleFavorite("hundred") {
		t.Fatalf("second toggle returned true")
	}
	if s.IsFavorite("hundred") {
		t.Fatalf("favorite still set after second toggle")
	}
	if changes != 3 {
		t.Fatalf("OnChange calls = %d, want 3", changes)
	}
}

func TestStore_CustomCallouts(t *testing.T) {
	s := NewStore(Options{Storage: kv.NewMemoryStorage()})
	s.AddCustomCallout(CustomCallout{ID: "c1", Name: "Warm-up", Color: "#ff0", Style: "bold"})
	s.AddCustomCallout(CustomCallout{ID: "c1", Name: "Warm up", Color: "#ff0", Style: "bold"})
	s.AddCustomCallout(CustomCallout{ID: "c2", Name: "Cool-down"})

	got := s.Get().CustomCallouts
	if len(got) != 2 || got[0].Name != "Warm up" {
		t.Fatalf("CustomCallouts = %#v", got)
	}
	s.RemoveCustomCallout("c1")
	if got := s.Get().CustomCallouts; len(got) != 1 || got[0].ID != "c2" {
		t.Fatalf("after remove = %#v", got)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore(Options{Storage: kv.NewMemoryStorage()})
	s.ToggleFavorite("a")
	p := s.Get()
	p.FavoriteExercises[0] = "mutated"
	if !s.IsFavorite("a") {
		t.Fatalf("Get aliased internal slice")
	}
}

func TestStore_WriteFailureKeepsValueInMemory(t *testing.T) {
	storage := kv.NewMemoryStorage()
	storage.SetFailWrites(errors.New("quota"))
	s := NewStore(Options{Storage: storage})
	s.SetTheme("Slate")
	if s.Get().Theme != "Slate" {
		t.Fatalf("Theme = %q, want Slate in memory", s.Get().Theme)
	}
	if _, ok, _ := storage.Get(StorageKey); ok {
		t.Fatalf("document written despite failing storage")
	}
}

func TestStore_Reload(t *testing.T) {
	storage := kv.NewMemoryStorage()
	s := NewStore(Options{Storage: storage})
	if err := storage.Set(StorageKey, `{"theme":"Slate"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Reload()
	if s.Get().Theme != "Slate" {
		t.Fatalf("Theme = %q after Reload, want Slate", s.Get().Theme)
	}
}
