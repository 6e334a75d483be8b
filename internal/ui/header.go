package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/reformer/internal/notify"
	"github.com/five82/reformer/internal/teaching"
)

// renderHeader renders the status bar: plan name, timer state and sync state.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := newBgStyle(m.theme.Surface)
	compact := m.width < 90

	name := strings.TrimSpace(m.className)
	if name == "" {
		name = "Untitled class"
	}

	status := m.timer.Status()
	syncText, syncStatus := syncLabel(m.syncState)

	parts := []string{
		bg.render("reformer", styles.Logo),
		bg.render(truncate(name, 32), styles.Text.Bold(true)),
		styles.StatusStyle(status.String()).Render(strings.ToUpper(status.String())),
	}
	if m.timer.Len() > 0 && status != teaching.Finished {
		parts = append(parts, bg.render(fmt.Sprintf("%d/%d", m.timer.Index()+1, m.timer.Len()), styles.MutedText))
	}
	parts = append(parts, styles.StatusStyle(syncStatus).Render(syncText))
	if !compact {
		parts = append(parts, bg.render(lastSyncText(m.syncState, m.now()), styles.FaintText))
		if m.prefs.Get().TeachingMode.AutoAdvance {
			parts = append(parts, bg.render("auto", styles.InfoText))
		}
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.join(parts, 2))
}

// renderFooter shows the short key help, or the latest toast while it is
// fresh.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	content := m.help.ShortHelpView(m.keys.ShortHelp())
	if toast, ok := m.latestToast(); ok {
		content = toast
	}
	return styles.Footer.Width(m.width).Render(content)
}

func (m Model) latestToast() (string, bool) {
	if m.notifier == nil {
		return "", false
	}
	n, ok := m.notifier.Latest()
	if !ok || m.now().Sub(n.At) > toastTTL {
		return "", false
	}
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	switch n.Level {
	case notify.LevelError:
		return styles.DangerText.Render("✗ " + n.Message), true
	case notify.LevelSuccess:
		return styles.SuccessText.Render("✓ " + n.Message), true
	default:
		return styles.InfoText.Render("• " + n.Message), true
	}
}
