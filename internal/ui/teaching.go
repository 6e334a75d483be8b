package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/reformer/internal/plan"
	"github.com/five82/reformer/internal/teaching"
)

const maxCues = 4

// renderTeaching renders the current exercise as large as the body allows.
func (m Model) renderTeaching() string {
	styles := m.theme.Styles()
	tm := m.prefs.Get().TeachingMode

	if m.timer.Len() == 0 {
		return lipgloss.JoinVertical(lipgloss.Center,
			styles.MutedText.Render("This class plan has no exercises yet."),
			styles.FaintText.Render("Add exercises in the planner, then come back to teach."),
		)
	}

	if m.timer.Status() == teaching.Finished {
		return lipgloss.JoinVertical(lipgloss.Center,
			styles.SuccessText.Render("Class complete"),
			styles.MutedText.Render("Taught for "+humanizeDuration(m.timer.Elapsed())),
			"",
			styles.FaintText.Render("r to restart · p to go back"),
		)
	}

	cur, _ := m.timer.Current()
	var lines []string

	if cur.Section != "" {
		lines = append(lines, styles.AccentText.Render(strings.ToUpper(cur.Section)))
	}
	lines = append(lines, styles.Exercise.Render(cur.Exercise.Name))
	if tm.ShowSprings {
		if springs := springsText(cur.Exercise); springs != "" {
			lines = append(lines, styles.MutedText.Render("Springs: ")+styles.Text.Render(springs))
		}
	}
	lines = append(lines, "")

	clock := styles.Text.Bold(true)
	if m.timer.InWarning(time.Duration(tm.CountdownWarningSeconds) * time.Second) {
		clock = styles.WarningText
	}
	lines = append(lines, clock.Render(formatClock(m.timer.Remaining())))
	lines = append(lines, m.bar.ViewAs(m.timer.Progress()))
	lines = append(lines, styles.FaintText.Render(fmt.Sprintf(
		"Exercise %d of %d · %s elapsed", m.timer.Index()+1, m.timer.Len(), humanizeDuration(m.timer.Elapsed()))))

	if hint := m.statusHint(); hint != "" {
		lines = append(lines, "", hint)
	}

	if tm.ShowCues && len(cur.Exercise.Cues) > 0 {
		lines = append(lines, "")
		for i, cue := range cur.Exercise.Cues {
			if i == maxCues {
				lines = append(lines, styles.FaintText.Render(fmt.Sprintf("+%d more", len(cur.Exercise.Cues)-maxCues)))
				break
			}
			lines = append(lines, styles.Text.Render("• "+cue))
		}
	}

	if tm.ShowNextExercise {
		if next, ok := m.timer.Upcoming(); ok {
			label := next.Exercise.Name
			if next.Section != "" && next.Section != cur.Section {
				label = next.Section + ": " + label
			}
			lines = append(lines, "",
				styles.MutedText.Render("Up next ")+styles.Text.Render(label)+
					styles.FaintText.Render(fmt.Sprintf(" (%dm)", next.Exercise.Duration)))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m Model) statusHint() string {
	styles := m.theme.Styles()
	switch m.timer.Status() {
	case teaching.Idle:
		return styles.InfoText.Render("Press space to begin")
	case teaching.Paused:
		return styles.WarningText.Render("Paused")
	case teaching.Running:
		if m.timer.Remaining() == 0 {
			return styles.DangerText.Render("Time! Press n for the next exercise")
		}
	}
	return ""
}

func springsText(ex plan.Exercise) string {
	s := strings.TrimSpace(ex.Springs)
	if s == "" || s == plan.SpringsNone {
		return ""
	}
	return s
}
