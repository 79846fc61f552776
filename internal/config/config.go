package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.firechat/config.toml.
type Config struct {
	DefaultSession string   `toml:"default_session"`
	Identity       Identity `toml:"identity"`
	Store          Store    `toml:"store"`
	Upload         Upload   `toml:"upload"`
}

// Identity is the session owner's raw identity. The canonical key is
// derived from Email at use time.
type Identity struct {
	Email string `toml:"email"`
	Name  string `toml:"name"`
}

// Store selects the key-path store backend. Backend is "sqlite" (default,
// session-local file), "postgres" (DSN required) or "memory".
type Store struct {
	Backend string `toml:"backend"`
	DSN     string `toml:"dsn"`
}

// Upload points at the attachment blob endpoint.
type Upload struct {
	Endpoint string `toml:"endpoint"`
}

// Load reads config from the given path. Returns an error if the file is
// missing; callers that tolerate a missing config fall back to Default.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the zero configuration with the sqlite backend.
func Default() *Config {
	return &Config{
		Store: Store{Backend: "sqlite"},
	}
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
