package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the client settings.
type Config struct {
	BackendURL       string
	DataDir          string
	UserID           string
	SyncInterval     time.Duration
	RequestTimeout   time.Duration
	QueueMaxAttempts int
	Theme            string
}

const (
	defaultConfigPath       = "~/.config/reformer/config.toml"
	defaultBackendURL       = "http://127.0.0.1:7488"
	defaultDataDir          = "~/.local/share/reformer"
	defaultSyncInterval     = 30 * time.Second
	defaultRequestTimeout   = 15 * time.Second
	defaultQueueMaxAttempts = 8
)

// Defaults returns the configuration used when no file exists.
func Defaults() Config {
	return Config{
		BackendURL:       defaultBackendURL,
		DataDir:          mustExpand(defaultDataDir),
		SyncInterval:     defaultSyncInterval,
		RequestTimeout:   defaultRequestTimeout,
		QueueMaxAttempts: defaultQueueMaxAttempts,
	}
}

// Load reads the client config at path, falling back to defaults when the
// file is missing or a field is empty.
func Load(path string) (Config, error) {
	bytes, found, err := readFile(path, defaultConfigPath)
	if err != nil {
		return Config{}, err
	}
	cfg := Defaults()
	if !found {
		return cfg, nil
	}

	var raw struct {
		BackendURL       string `toml:"backend_url"`
		DataDir          string `toml:"data_dir"`
		UserID           string `toml:"user_id"`
		SyncInterval     string `toml:"sync_interval"`
		RequestTimeout   string `toml:"request_timeout"`
		QueueMaxAttempts int    `toml:"queue_max_attempts"`
		Theme            string `toml:"theme"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.BackendURL); v != "" {
		cfg.BackendURL = v
	}
	if v := strings.TrimSpace(raw.DataDir); v != "" {
		cfg.DataDir = mustExpand(v)
	}
	cfg.UserID = strings.TrimSpace(raw.UserID)
	cfg.Theme = strings.TrimSpace(raw.Theme)
	if cfg.SyncInterval, err = parseDuration("sync_interval", raw.SyncInterval, defaultSyncInterval); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout, defaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if raw.QueueMaxAttempts > 0 {
		cfg.QueueMaxAttempts = raw.QueueMaxAttempts
	}
	return cfg, nil
}

// KVDir is where the class plan and preference documents are stored.
func (c Config) KVDir() string {
	return filepath.Join(c.dataDir(), "store")
}

// QueueDBPath is the offline queue's SQLite file.
func (c Config) QueueDBPath() string {
	return filepath.Join(c.dataDir(), "queue.db")
}

// LogPath is the application log file.
func (c Config) LogPath() string {
	return filepath.Join(c.dataDir(), "reformer.log")
}

func (c Config) dataDir() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir)
	}
	return c.DataDir
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse config: %s: %w", field, err)
	}
	if d <= 0 {
		return fallback, nil
	}
	return d, nil
}

// readFile returns the file's contents. found is false when the file does
// not exist, which is not an error.
func readFile(path, fallback string) ([]byte, bool, error) {
	resolved, err := resolvePath(path, fallback)
	if err != nil {
		return nil, false, err
	}
	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, false, fmt.Errorf("read config: %w", err)
	}
	return bytes, true, nil
}

func resolvePath(path, fallback string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(fallback)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
