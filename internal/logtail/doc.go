// Package logtail reads the tail of the application log for the TUI's log
// pane.
//
// Read extracts the last N lines with a ring buffer, so memory stays
// O(N) regardless of file size. Parse understands the key=value lines
// written by slog's text handler and recovers time, level, message and the
// remaining attributes; anything else is treated as an INFO line. Filter
// combines both to hide lines below a level.
//
// Example:
//
//	lines, err := logtail.Read(cfg.LogPath(), 200)
//	if err != nil {
//		return err
//	}
//	for _, e := range logtail.Filter(lines, slog.LevelInfo) {
//		fmt.Println(e.Level, e.Message)
//	}
package logtail
