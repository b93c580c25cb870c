package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestLoadCreatesMissingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Library.Path != "./music" {
		t.Errorf("Expected default library path, got %q", cfg.Library.Path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected config file to be created: %v", err)
	}

	// Loading again reads the file it just wrote.
	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if reloaded.Storage.Backend != cfg.Storage.Backend {
		t.Error("Round-tripped config differs from defaults")
	}
}

func TestLoadCustomConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[library]
path = "/srv/music"
supported_formats = [".mp3"]
watch_for_changes = false
scan_on_startup = true
page_size = 50

[storage]
backend = "sqlite"
sqlite_path = "/srv/data/sonata.db"

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Library.Path != "/srv/music" {
		t.Errorf("Expected custom library path, got %q", cfg.Library.Path)
	}
	if cfg.Library.PageSize != 50 {
		t.Errorf("Expected page size 50, got %d", cfg.Library.PageSize)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Expected sqlite backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging config lost: %+v", cfg.Logging)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"EmptyLibraryPath", func(c *Config) { c.Library.Path = "" }},
		{"NoFormats", func(c *Config) { c.Library.SupportedFormats = nil }},
		{"ZeroPageSize", func(c *Config) { c.Library.PageSize = 0 }},
		{"UnknownBackend", func(c *Config) { c.Storage.Backend = "redis" }},
		{"EmptyFileDir", func(c *Config) { c.Storage.Dir = "" }},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "verbose" }},
		{"BadLogFormat", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestIsFormatSupported(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.IsFormatSupported(".mp3") {
		t.Error("Expected .mp3 to be supported by default")
	}
	if cfg.IsFormatSupported(".ogg") {
		t.Error("Expected .ogg to be unsupported by default")
	}
}
