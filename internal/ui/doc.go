// Package ui is the teaching-mode terminal interface, built on Bubble Tea.
//
// The screen shows the exercise being taught with its countdown, a progress
// bar, cues and the next exercise, all filtered by the instructor's teaching
// preferences. A status bar shows the timer state and the sync state; a
// toggleable pane tails the application log.
//
// The model polls on a fixed tick. Each tick advances the class clock by the
// real time since the previous tick and re-reads the plan and preference
// stores, so edits that arrive from the sync engine appear without any
// extra wiring. Theme and auto-advance changes made here are written back
// through the preference store and therefore sync like any other edit.
//
// Key bindings:
//
//   - space: start, pause or resume
//   - n / p: next or previous exercise
//   - r: restart the class
//   - a: toggle auto-advance
//   - u / U: undo or redo the last plan edit
//   - s: sync now
//   - l: toggle the log pane (j/k scroll)
//   - T: cycle theme
//   - ?: help
//   - q or Ctrl+C: quit
package ui
