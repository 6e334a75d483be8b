// Package app is the composition root for the reformer client.
//
// Run loads configuration, points slog at the log file (the terminal belongs
// to the UI) and wires the pieces together:
//
//	config.Load()            client settings
//	kv.NewFileStorage()      local-first document storage
//	queue.Open()             offline queue (SQLite)
//	remote.NewClient()       HTTP client for the sync backend
//	state.New / prefs.New    class plan and preference stores
//	syncer.New()             last-writer-wins sync engine
//	syncer.NewMonitor()      backend reachability probe
//	ui.Run()                 teaching-mode TUI (blocks)
//
// Store edits mark the engine's pending flag. When the engine applies a newer
// remote record it reloads both stores, and the UI picks the new documents up
// on its next tick.
//
// The monitor reports connectivity transitions to the engine. Coming back
// online pushes local state and replays the queue. The engine's own loop
// pushes pending changes on a fixed interval.
//
// With Offline set the backend is never contacted: no startup probe and no
// monitor. Everything still persists locally and the pending flag stays set
// until a later online session pushes it.
package app
