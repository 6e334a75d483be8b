package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/reformer/internal/kv"
	"github.com/five82/reformer/internal/notify"
	"github.com/five82/reformer/internal/plan"
	"github.com/five82/reformer/internal/prefs"
	"github.com/five82/reformer/internal/state"
	"github.com/five82/reformer/internal/syncer"
	"github.com/five82/reformer/internal/teaching"
)

type fakeSyncer struct {
	calls int
	state syncer.State
}

func (f *fakeSyncer) State() syncer.State { return f.state }

func (f *fakeSyncer) SyncNow(context.Context) error {
	f.calls++
	f.state.LastSyncTime = time.Unix(500, 0)
	return nil
}

type testEnv struct {
	model    Model
	plans    *state.Store
	prefs    *prefs.Store
	storage  *kv.MemoryStorage
	sync     *fakeSyncer
	notifier *notify.Notifier
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		storage: kv.NewMemoryStorage(),
		sync:    &fakeSyncer{state: syncer.State{IsOnline: true, UserID: "u1"}},
		now:     time.Unix(1000, 0),
	}
	clock := func() time.Time { return env.now }
	env.plans = state.New(state.Options{Storage: env.storage, UserID: "u1", Now: clock})
	env.plans.LoadClassPlan(plan.ClassPlan{
		Name: "Monday Class",
		Exercises: []plan.Exercise{
			{ID: "c1", Name: "Warm-up", Category: plan.CategoryCallout},
			{ID: "e1", Name: "Footwork", Category: "supine", Duration: 5, Springs: "red+blue", Cues: []string{"Neutral pelvis"}},
			{ID: "e2", Name: "Hundred", Category: "supine", Duration: 2},
		},
	})
	env.prefs = prefs.NewStore(prefs.Options{Storage: env.storage})
	env.notifier = notify.New(0, clock)
	env.model = New(Options{
		Plans:    env.plans,
		Prefs:    env.prefs,
		Sync:     env.sync,
		Notifier: env.notifier,
		Now:      clock,
	})
	return env
}

func (env *testEnv) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := env.model.Update(msg)
	m, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	env.model = m
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_SpaceStartsAndTickCountsDown(t *testing.T) {
	env := newTestEnv(t)

	env.send(t, tea.KeyMsg{Type: tea.KeySpace})
	if got := env.model.timer.Status(); got != teaching.Running {
		t.Fatalf("status after space = %v, want running", got)
	}

	env.now = env.now.Add(200 * time.Millisecond)
	if cmd := env.send(t, tickMsg(env.now)); cmd == nil {
		t.Fatalf("tick must schedule the next tick")
	}
	if got, want := env.model.timer.Remaining(), 5*time.Minute-200*time.Millisecond; got != want {
		t.Fatalf("Remaining = %v, want %v", got, want)
	}

	env.send(t, tea.KeyMsg{Type: tea.KeySpace})
	if got := env.model.timer.Status(); got != teaching.Paused {
		t.Fatalf("status after second space = %v, want paused", got)
	}
}

func TestModel_TickClampsLongGaps(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, tea.KeyMsg{Type: tea.KeySpace})

	env.now = env.now.Add(time.Hour)
	env.send(t, tickMsg(env.now))
	if got, want := env.model.timer.Remaining(), 5*time.Minute-4*defaultTick; got != want {
		t.Fatalf("Remaining = %v, want %v", got, want)
	}
}

func TestModel_NextAndPrevious(t *testing.T) {
	env := newTestEnv(t)

	env.send(t, runes("n"))
	if cur, _ := env.model.timer.Current(); cur.Exercise.ID != "e2" {
		t.Fatalf("after n current = %q, want e2", cur.Exercise.ID)
	}
	env.send(t, runes("p"))
	if cur, _ := env.model.timer.Current(); cur.Exercise.ID != "e1" {
		t.Fatalf("after p current = %q, want e1", cur.Exercise.ID)
	}
	env.send(t, runes("n"))
	env.send(t, runes("n"))
	if got := env.model.timer.Status(); got != teaching.Finished {
		t.Fatalf("status past last = %v, want finished", got)
	}
	env.send(t, runes("r"))
	if got := env.model.timer.Status(); got != teaching.Idle || env.model.timer.Index() != 0 {
		t.Fatalf("after reset status=%v index=%d", got, env.model.timer.Index())
	}
}

func TestModel_UndoRedoPlanEdit(t *testing.T) {
	env := newTestEnv(t)
	env.plans.UpdateClassName("Tuesday Class")
	env.send(t, tickMsg(env.now))
	if env.model.className != "Tuesday Class" {
		t.Fatalf("className = %q after edit", env.model.className)
	}

	env.send(t, runes("u"))
	if env.model.className != "Monday Class" || env.plans.Snapshot().Name != "Monday Class" {
		t.Fatalf("after undo className = %q, store = %q", env.model.className, env.plans.Snapshot().Name)
	}
	env.send(t, runes("U"))
	if env.model.className != "Tuesday Class" {
		t.Fatalf("after redo className = %q", env.model.className)
	}
}

func TestModel_ThemeCyclePersists(t *testing.T) {
	env := newTestEnv(t)
	if env.model.theme.Name != "Dracula" {
		t.Fatalf("initial theme = %q", env.model.theme.Name)
	}
	env.send(t, runes("T"))
	if env.model.theme.Name != "Nightfox" || env.prefs.Get().Theme != "Nightfox" {
		t.Fatalf("theme = %q, prefs = %q", env.model.theme.Name, env.prefs.Get().Theme)
	}
	raw, ok, _ := env.storage.Get(prefs.StorageKey)
	if !ok || !strings.Contains(raw, `"theme":"Nightfox"`) {
		t.Fatalf("stored prefs = %q", raw)
	}
}

func TestModel_TickPicksUpPreferenceChanges(t *testing.T) {
	env := newTestEnv(t)
	env.prefs.Update(func(p *prefs.UserPreferences) {
		p.Theme = "Slate"
		p.TeachingMode.AutoAdvance = true
	})
	env.send(t, tickMsg(env.now))
	if env.model.theme.Name != "Slate" {
		t.Fatalf("theme = %q, want Slate", env.model.theme.Name)
	}

	env.send(t, runes("a"))
	if env.prefs.Get().TeachingMode.AutoAdvance {
		t.Fatalf("a did not turn auto-advance off")
	}
}

func TestModel_SyncKeyRunsSyncNow(t *testing.T) {
	env := newTestEnv(t)
	cmd := env.send(t, runes("s"))
	if cmd == nil {
		t.Fatalf("s returned no command")
	}
	msg := cmd()
	if env.sync.calls != 1 {
		t.Fatalf("SyncNow calls = %d, want 1", env.sync.calls)
	}
	env.send(t, msg)
	if !env.model.syncState.LastSyncTime.Equal(time.Unix(500, 0)) {
		t.Fatalf("sync state not refreshed: %#v", env.model.syncState)
	}
}

func TestModel_HelpSwallowsNextKey(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, runes("?"))
	if !env.model.showHelp {
		t.Fatalf("? did not open help")
	}
	env.send(t, runes("n"))
	if env.model.showHelp {
		t.Fatalf("key did not close help")
	}
	if env.model.timer.Index() != 0 {
		t.Fatalf("key that closed help also advanced the timer")
	}
}

func TestModel_QuitKey(t *testing.T) {
	env := newTestEnv(t)
	cmd := env.send(t, runes("q"))
	if cmd == nil {
		t.Fatalf("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q command did not quit")
	}
}

func TestModel_View(t *testing.T) {
	env := newTestEnv(t)
	if got := env.model.View(); got != "Loading..." {
		t.Fatalf("View before size = %q", got)
	}
	env.send(t, tea.WindowSizeMsg{Width: 120, Height: 30})
	env.notifier.Success("Class plan synced")

	view := env.model.View()
	for _, want := range []string{"Monday", "WARM-UP", "Footwork", "red+blue", "05:00", "Neutral pelvis", "Hundred", "SYNCED", "Class plan synced"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}

	env.now = env.now.Add(toastTTL + time.Second)
	if strings.Contains(env.model.View(), "Class plan synced") {
		t.Errorf("stale toast still shown")
	}
}

func TestModel_ViewRespectsTeachingPreferences(t *testing.T) {
	env := newTestEnv(t)
	env.prefs.Update(func(p *prefs.UserPreferences) {
		p.TeachingMode.ShowCues = false
		p.TeachingMode.ShowNextExercise = false
		p.TeachingMode.ShowSprings = false
	})
	env.send(t, tea.WindowSizeMsg{Width: 120, Height: 30})

	view := env.model.View()
	for _, hidden := range []string{"red+blue", "Neutral pelvis", "Up next"} {
		if strings.Contains(view, hidden) {
			t.Errorf("View shows %q although disabled", hidden)
		}
	}
}

func TestModel_LogPaneToggle(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, tea.WindowSizeMsg{Width: 100, Height: 30})
	full := env.model.bodyHeight()

	cmd := env.send(t, runes("l"))
	if !env.model.showLogs || cmd == nil {
		t.Fatalf("l did not open the log pane")
	}
	if env.model.bodyHeight() >= full {
		t.Fatalf("body height %d not reduced from %d", env.model.bodyHeight(), full)
	}
	env.send(t, cmd())
	if !strings.Contains(env.model.View(), "Logging to file is disabled.") {
		t.Fatalf("log pane missing placeholder")
	}
}
