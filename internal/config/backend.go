package config

import (
	"fmt"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Store kinds for the backend.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Backend holds the sync server's settings.
type Backend struct {
	Listen        string
	Store         string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
}

const (
	defaultBackendConfigPath = "~/.config/reformer/backend.toml"
	defaultListen            = "127.0.0.1:7488"
	defaultSQLitePath        = "~/.local/share/reformer/backend.db"
	defaultMongoURI          = "mongodb://127.0.0.1:27017"
	defaultMongoDatabase     = "reformer"
)

// LoadBackend reads the backend config at path with the same fallback rules
// as Load.
func LoadBackend(path string) (Backend, error) {
	cfg := Backend{
		Listen:        defaultListen,
		Store:         StoreSQLite,
		SQLitePath:    mustExpand(defaultSQLitePath),
		MongoURI:      defaultMongoURI,
		MongoDatabase: defaultMongoDatabase,
	}
	bytes, found, err := readFile(path, defaultBackendConfigPath)
	if err != nil {
		return Backend{}, err
	}
	if !found {
		return cfg, nil
	}

	var raw struct {
		Listen        string `toml:"listen"`
		Store         string `toml:"store"`
		SQLitePath    string `toml:"sqlite_path"`
		MongoURI      string `toml:"mongo_uri"`
		MongoDatabase string `toml:"mongo_database"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Backend{}, fmt.Errorf("parse config: %w", err)
	}
	if v := strings.TrimSpace(raw.Listen); v != "" {
		cfg.Listen = v
	}
	if v := strings.ToLower(strings.TrimSpace(raw.Store)); v != "" {
		if v != StoreSQLite && v != StoreMongo {
			return Backend{}, fmt.Errorf("parse config: store must be %q or %q, got %q", StoreSQLite, StoreMongo, v)
		}
		cfg.Store = v
	}
	if v := strings.TrimSpace(raw.SQLitePath); v != "" {
		cfg.SQLitePath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.MongoURI); v != "" {
		cfg.MongoURI = v
	}
	if v := strings.TrimSpace(raw.MongoDatabase); v != "" {
		cfg.MongoDatabase = v
	}
	return cfg, nil
}
