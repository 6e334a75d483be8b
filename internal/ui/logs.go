package ui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/reformer/internal/logtail"
)

const minLogLevel = slog.LevelInfo

// renderLogs renders the log pane under the teaching view.
func (m Model) renderLogs() string {
	return m.theme.Styles().LogPane.Width(m.width).Render(m.logViewport.View())
}

// updateLogViewport refreshes pane content, following the tail when the
// view was already at the bottom.
func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	follow := m.logViewport.AtBottom() || m.logViewport.TotalLineCount() == 0
	m.logViewport.SetContent(m.formatLogs())
	if follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) formatLogs() string {
	styles := m.theme.Styles()
	if m.logErr != nil {
		return styles.DangerText.Render("Log unavailable: " + m.logErr.Error())
	}
	if len(m.logEntries) == 0 {
		if m.logPath == "" {
			return styles.FaintText.Render("Logging to file is disabled.")
		}
		return styles.FaintText.Render("No log entries yet.")
	}

	var b strings.Builder
	for i, e := range m.logEntries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.formatLogEntry(e))
	}
	return b.String()
}

func (m Model) formatLogEntry(e logtail.Entry) string {
	styles := m.theme.Styles()
	var parts []string
	if !e.Time.IsZero() {
		parts = append(parts, styles.FaintText.Render(e.Time.Local().Format("15:04:05")))
	}
	parts = append(parts, m.levelStyle(e.Level).Render(levelTag(e.Level)))
	parts = append(parts, styles.Text.Render(e.Message))
	for _, a := range e.Attrs {
		parts = append(parts, styles.MutedText.Render(a.Key+"=")+styles.FaintText.Render(a.Value))
	}
	return strings.Join(parts, " ")
}

func (m Model) levelStyle(l slog.Level) lipgloss.Style {
	styles := m.theme.Styles()
	switch {
	case l >= slog.LevelError:
		return styles.DangerText
	case l >= slog.LevelWarn:
		return styles.WarningText
	case l >= slog.LevelInfo:
		return styles.InfoText
	default:
		return styles.FaintText
	}
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERR"
	case l >= slog.LevelWarn:
		return "WRN"
	case l >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}
