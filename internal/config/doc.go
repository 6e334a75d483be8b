// Package config loads the client and backend TOML configuration files.
//
// # Configuration Discovery
//
// Load and LoadBackend follow the same resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise use ~/.config/reformer/config.toml (client) or
//     ~/.config/reformer/backend.toml (backend)
//  3. If the file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or empty, use defaults
//
// # Client Fields
//
//	backend_url = "http://127.0.0.1:7488"
//	data_dir = "~/.local/share/reformer"
//	user_id = "alice"          # empty means anonymous, no sync
//	sync_interval = "30s"
//	request_timeout = "15s"
//	queue_max_attempts = 8
//	theme = "Dracula"          # used until preferences choose one
//
// Derived paths live under data_dir: store/ (documents), queue.db (offline
// queue) and reformer.log.
//
// # Backend Fields
//
//	listen = "127.0.0.1:7488"
//	store = "sqlite"           # or "mongo"
//	sqlite_path = "~/.local/share/reformer/backend.db"
//	mongo_uri = "mongodb://127.0.0.1:27017"
//	mongo_database = "reformer"
//
// Tilde expansion is applied to the config path and to every path field.
//
// # Error Handling
//
// A missing file is not an error. Unreadable files, malformed TOML, bad
// durations and unknown store kinds are.
package config
