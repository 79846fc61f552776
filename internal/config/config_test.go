package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{
		DefaultSession: "work",
		Identity:       Identity{Email: "a.b@c.com", Name: "Alice"},
		Store:          Store{Backend: "postgres", DSN: "postgres://localhost/firechat"},
		Upload:         Upload{Endpoint: "https://blobs.example.com"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want work", loaded.DefaultSession)
	}
	if loaded.Identity.Email != "a.b@c.com" || loaded.Identity.Name != "Alice" {
		t.Errorf("Identity = %+v", loaded.Identity)
	}
	if loaded.Store.Backend != "postgres" || loaded.Store.DSN != "postgres://localhost/firechat" {
		t.Errorf("Store = %+v", loaded.Store)
	}
	if loaded.Upload.Endpoint != "https://blobs.example.com" {
		t.Errorf("Upload = %+v", loaded.Upload)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("default backend = %q, want sqlite", cfg.Store.Backend)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
