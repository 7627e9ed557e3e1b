package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the batch post-processing toggles. It is loaded once per run
// and immutable afterwards.
type Config struct {
	ArchiveBanned  bool `toml:"archive_banned"`
	ArchiveLimited bool `toml:"archive_limited"`
}

// Default returns the configuration used when no file exists: both
// archival toggles enabled.
func Default() *Config {
	return &Config{
		ArchiveBanned:  true,
		ArchiveLimited: true,
	}
}

// Load reads the configuration from a TOML file. A missing file yields the
// defaults and persists them to disk so the next run finds an editable file.
// A malformed file also yields the defaults, silently, without touching the
// file on disk.
func Load(path string) *Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			_ = cfg.Save(path)
		}
		return cfg
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return Default()
	}
	return cfg
}

// Save writes the configuration to a TOML file, creating parent directories
// as needed.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
