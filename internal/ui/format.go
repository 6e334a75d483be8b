package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/reformer/internal/syncer"
)

// formatClock renders d as MM:SS, rounding partial seconds up so a step
// shows 00:01 until it actually reaches zero.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// humanizeDuration renders d the way the header shows elapsed class time.
func humanizeDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// truncate shortens s to width cells, ending with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// syncLabel maps engine state to the badge label and its status color key.
func syncLabel(st syncer.State) (label, status string) {
	switch {
	case st.IsSyncing:
		return "SYNCING", "syncing"
	case strings.TrimSpace(st.UserID) == "":
		return "LOCAL", "local"
	case !st.IsOnline:
		return "OFFLINE", "offline"
	case st.HasPendingChanges:
		return "PENDING", "pending"
	default:
		return "SYNCED", "synced"
	}
}

// lastSyncText describes when the plan last reconciled with the backend.
func lastSyncText(st syncer.State, now time.Time) string {
	if st.LastSyncTime.IsZero() {
		return "never synced"
	}
	ago := now.Sub(st.LastSyncTime)
	if ago < time.Minute {
		return "synced just now"
	}
	return "synced " + humanizeDuration(ago) + " ago"
}
