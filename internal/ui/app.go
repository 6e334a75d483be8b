package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/reformer/internal/logtail"
	"github.com/five82/reformer/internal/notify"
	"github.com/five82/reformer/internal/prefs"
	"github.com/five82/reformer/internal/state"
	"github.com/five82/reformer/internal/syncer"
	"github.com/five82/reformer/internal/teaching"
)

const (
	defaultTick  = 250 * time.Millisecond
	toastTTL     = 4 * time.Second
	logLineLimit = 200
)

// Syncer is the part of the sync engine the UI drives.
type Syncer interface {
	State() syncer.State
	SyncNow(ctx context.Context) error
}

// Options configures the UI.
type Options struct {
	Context  context.Context
	Plans    *state.Store
	Prefs    *prefs.Store
	Sync     Syncer
	Notifier *notify.Notifier
	LogPath  string
	Tick     time.Duration
	Now      func() time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx      context.Context
	plans    *state.Store
	prefs    *prefs.Store
	sync     Syncer
	notifier *notify.Notifier
	logPath  string
	tick     time.Duration
	now      func() time.Time

	// UI state
	keys     keyMap
	help     help.Model
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool
	showLogs bool

	// Teaching state
	timer    *teaching.Timer
	lastTick time.Time
	bar      progress.Model

	// Data state
	className string
	syncState syncer.State

	// Log pane
	logViewport viewport.Model
	logEntries  []logtail.Entry
	logErr      error
}

// New creates a new Bubble Tea model. Plans and Prefs are required.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	p := opts.Prefs.Get()
	snapshot := opts.Plans.Snapshot()

	m := Model{
		ctx:       ctx,
		plans:     opts.Plans,
		prefs:     opts.Prefs,
		sync:      opts.Sync,
		notifier:  opts.Notifier,
		logPath:   opts.LogPath,
		tick:      tick,
		now:       now,
		keys:      defaultKeyMap(),
		help:      help.New(),
		timer:     teaching.New(snapshot, p.TeachingMode.AutoAdvance),
		lastTick:  now(),
		className: snapshot.Name,
	}
	m.applyTheme(GetTheme(p.Theme))
	if m.sync != nil {
		m.syncState = m.sync.State()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, m.logPaneHeight())
		}
		m.ready = true
		m.resize()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case syncDoneMsg:
		if m.sync != nil {
			m.syncState = m.sync.State()
		}
		return m, nil

	case logLinesMsg:
		m.logEntries = msg.entries
		m.logErr = msg.err
		m.updateLogViewport()
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	sections := []string{m.renderHeader()}
	body := m.renderTeaching()
	sections = append(sections, lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, body))
	if m.showLogs {
		sections = append(sections, m.renderLogs())
	}
	sections = append(sections, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		m.timer.Toggle()
		m.lastTick = m.now()
		return m, nil

	case key.Matches(msg, m.keys.Next):
		m.timer.Next()
		return m, nil

	case key.Matches(msg, m.keys.Previous):
		m.timer.Previous()
		return m, nil

	case key.Matches(msg, m.keys.Reset):
		m.timer.Reset()
		return m, nil

	case key.Matches(msg, m.keys.Auto):
		on := !m.prefs.Get().TeachingMode.AutoAdvance
		m.prefs.Update(func(p *prefs.UserPreferences) { p.TeachingMode.AutoAdvance = on })
		m.timer.SetAutoAdvance(on)
		return m, nil

	case key.Matches(msg, m.keys.Undo):
		if m.plans.Undo() {
			m.reloadPlan()
		}
		return m, nil

	case key.Matches(msg, m.keys.Redo):
		if m.plans.Redo() {
			m.reloadPlan()
		}
		return m, nil

	case key.Matches(msg, m.keys.Sync):
		return m, m.syncNowCmd()

	case key.Matches(msg, m.keys.CycleTheme):
		next := GetTheme(NextTheme(m.theme.Name))
		m.applyTheme(next)
		m.prefs.SetTheme(next.Name)
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		m.showLogs = !m.showLogs
		m.resize()
		if m.showLogs {
			return m, m.readLogsCmd()
		}
		return m, nil
	}

	if m.showLogs {
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleTick advances the class clock and picks up changes made elsewhere:
// plan edits, preferences pulled from the backend and sync state.
func (m Model) handleTick(at time.Time) (tea.Model, tea.Cmd) {
	delta := at.Sub(m.lastTick)
	if delta < 0 {
		delta = 0
	}
	// A suspended terminal must not skip the class ahead.
	if limit := 4 * m.tick; delta > limit {
		delta = limit
	}
	m.lastTick = at

	m.reloadPlan()
	p := m.prefs.Get()
	m.timer.SetAutoAdvance(p.TeachingMode.AutoAdvance)
	if p.Theme != m.theme.Name {
		m.applyTheme(GetTheme(p.Theme))
	}
	m.timer.Tick(delta)
	if m.sync != nil {
		m.syncState = m.sync.State()
	}

	cmds := []tea.Cmd{tickCmd(m.tick)}
	if m.showLogs {
		cmds = append(cmds, m.readLogsCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) reloadPlan() {
	snapshot := m.plans.Snapshot()
	m.className = snapshot.Name
	m.timer.Load(snapshot)
}

func (m *Model) applyTheme(t Theme) {
	m.theme = t
	m.bar = progress.New(
		progress.WithSolidFill(t.Accent),
		progress.WithoutPercentage(),
	)
	m.bar.EmptyColor = t.Border
	m.help.Styles = help.Styles{
		ShortKey:       lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		ShortDesc:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		ShortSeparator: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		Ellipsis:       lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		FullKey:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		FullDesc:       lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		FullSeparator:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
	}
	m.resize()
}

func (m *Model) resize() {
	m.help.Width = m.width
	barWidth := m.width - 8
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 10 {
		barWidth = 10
	}
	m.bar.Width = barWidth
	if m.ready {
		m.logViewport.Width = m.width
		m.logViewport.Height = m.logPaneHeight()
		m.updateLogViewport()
	}
}

func (m Model) logPaneHeight() int {
	h := m.height / 3
	if h < 4 {
		h = 4
	}
	return h
}

// bodyHeight is what remains between the header and footer bars.
func (m Model) bodyHeight() int {
	h := m.height - 2
	if m.showLogs {
		// Pane content plus its top border
		h -= m.logPaneHeight() + 1
	}
	if h < 1 {
		h = 1
	}
	return h
}

// Messages

type tickMsg time.Time

type syncDoneMsg struct{ err error }

type logLinesMsg struct {
	entries []logtail.Entry
	err     error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// syncNowCmd runs a manual sync off the UI goroutine. The engine reports
// the outcome through the notifier.
func (m Model) syncNowCmd() tea.Cmd {
	if m.sync == nil {
		return nil
	}
	ctx, s := m.ctx, m.sync
	return func() tea.Msg {
		return syncDoneMsg{err: s.SyncNow(ctx)}
	}
}

func (m Model) readLogsCmd() tea.Cmd {
	path := m.logPath
	return func() tea.Msg {
		if path == "" {
			return logLinesMsg{}
		}
		lines, err := logtail.Read(path, logLineLimit)
		return logLinesMsg{entries: logtail.Filter(lines, minLogLevel), err: err}
	}
}

// Run starts the Bubble Tea program and blocks until it exits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	popts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		popts = append(popts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, popts...)
	_, err := p.Run()
	return err
}
